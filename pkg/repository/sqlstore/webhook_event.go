package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/socialink/pkg/domain/interfaces"
	"github.com/secmon-lab/socialink/pkg/domain/model"
	"github.com/secmon-lab/socialink/pkg/domain/types"
	"github.com/uptrace/bun"
)

type webhookEventRepository struct {
	db *bun.DB
}

var _ interfaces.WebhookEventRepository = &webhookEventRepository{}

func (r *webhookEventRepository) Append(ctx context.Context, event *model.WebhookEvent) error {
	if event.ID == "" {
		return goerr.Wrap(model.ErrMissingRequired, "webhook event ID is required")
	}
	if _, err := r.db.NewInsert().Model(newWebhookEventRecord(event)).Exec(ctx); err != nil {
		return goerr.Wrap(err, "failed to append webhook event", goerr.V("id", event.ID), goerr.V("kind", event.Kind))
	}
	return nil
}

func (r *webhookEventRepository) Get(ctx context.Context, id model.WebhookEventID) (*model.WebhookEvent, error) {
	record := &webhookEventRecord{}
	err := r.db.NewSelect().Model(record).Where("?TableAlias.id = ?", id.String()).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, goerr.Wrap(ErrNotFound, "webhook event not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get webhook event", goerr.V("id", id))
	}
	return record.toDomain(), nil
}

func (r *webhookEventRepository) List(ctx context.Context, kind types.EventKind, since time.Time, limit int) ([]*model.WebhookEvent, error) {
	var records []*webhookEventRecord
	q := r.db.NewSelect().Model(&records).
		Where("?TableAlias.received_at >= ?", since.UTC()).
		OrderExpr("?TableAlias.received_at DESC")
	if kind != "" {
		q = q.Where("?TableAlias.kind = ?", kind.String())
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, goerr.Wrap(err, "failed to list webhook events", goerr.V("kind", kind))
	}

	out := make([]*model.WebhookEvent, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}
