package interfaces

import (
	"context"
	"time"

	"github.com/secmon-lab/socialink/pkg/domain/model"
	"github.com/secmon-lab/socialink/pkg/domain/types"
)

// WebhookEventRepository is the append-only event store for inbound deliveries
type WebhookEventRepository interface {
	// Append stores one event. Events are never updated.
	Append(ctx context.Context, event *model.WebhookEvent) error

	// Get retrieves an event by ID
	Get(ctx context.Context, id model.WebhookEventID) (*model.WebhookEvent, error)

	// List returns events of a kind received at or after since, newest first.
	// An empty kind matches every kind.
	List(ctx context.Context, kind types.EventKind, since time.Time, limit int) ([]*model.WebhookEvent, error)
}
