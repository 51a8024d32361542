package interfaces

import (
	"context"

	"github.com/secmon-lab/socialink/pkg/domain/model"
	"github.com/secmon-lab/socialink/pkg/domain/types"
)

// ConnectionRepository persists linked external accounts (the credential store).
//
// Every write replaces the whole record keyed by (UserID, Platform, ExternalAccountID).
// Implementations must not read-then-write.
type ConnectionRepository interface {
	// Put inserts or replaces the connection by its key. Last write wins.
	Put(ctx context.Context, conn *model.Connection) error

	// Get retrieves a connection by its key-derived ID
	Get(ctx context.Context, id model.ConnectionID) (*model.Connection, error)

	// FindByUser returns the user's connections for a platform, newest CreatedAt first
	FindByUser(ctx context.Context, userID string, platform types.Platform) ([]*model.Connection, error)

	// FindOne returns the user's connection for an external account on any platform
	FindOne(ctx context.Context, userID, externalAccountID string) (*model.Connection, error)

	// ListByPlatform returns every connection of a platform
	ListByPlatform(ctx context.Context, platform types.Platform) ([]*model.Connection, error)

	// RotateToken updates the credential of an existing connection without
	// recreating it. A deleted connection yields ErrNotFound and a token
	// replaced by a re-link yields ErrConflict.
	RotateToken(ctx context.Context, rotation *model.TokenRotation) error

	// DeleteAll removes all connections of the user for the platform. Deleting nothing is not an error.
	DeleteAll(ctx context.Context, userID string, platform types.Platform) error

	// PutPendingToken keeps an exchanged token whose account discovery has not completed
	PutPendingToken(ctx context.Context, token *model.PendingToken) error

	// GetPendingToken retrieves a pending token
	GetPendingToken(ctx context.Context, userID string, platform types.Platform) (*model.PendingToken, error)

	// DeletePendingToken removes a pending token. Deleting nothing is not an error.
	DeletePendingToken(ctx context.Context, userID string, platform types.Platform) error
}
