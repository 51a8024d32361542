package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/socialink/pkg/domain/model"
	"github.com/secmon-lab/socialink/pkg/domain/types"
)

type webhookEventRepository struct {
	mu     sync.RWMutex
	events []*model.WebhookEvent
}

func newWebhookEventRepository() *webhookEventRepository {
	return &webhookEventRepository{}
}

func (r *webhookEventRepository) Append(ctx context.Context, event *model.WebhookEvent) error {
	if event.ID == "" {
		return goerr.Wrap(model.ErrMissingRequired, "webhook event ID is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *event
	r.events = append(r.events, &copied)
	return nil
}

func (r *webhookEventRepository) Get(ctx context.Context, id model.WebhookEventID) (*model.WebhookEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, ev := range r.events {
		if ev.ID == id {
			copied := *ev
			return &copied, nil
		}
	}
	return nil, goerr.Wrap(ErrNotFound, "webhook event not found", goerr.V("id", id))
}

func (r *webhookEventRepository) List(ctx context.Context, kind types.EventKind, since time.Time, limit int) ([]*model.WebhookEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*model.WebhookEvent
	for _, ev := range r.events {
		if kind != "" && ev.Kind != kind {
			continue
		}
		if ev.ReceivedAt.Before(since) {
			continue
		}
		copied := *ev
		result = append(result, &copied)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].ReceivedAt.After(result[j].ReceivedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
