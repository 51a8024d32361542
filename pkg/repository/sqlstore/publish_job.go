package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/socialink/pkg/domain/interfaces"
	"github.com/secmon-lab/socialink/pkg/domain/model"
	"github.com/uptrace/bun"
)

type publishJobRepository struct {
	db *bun.DB
}

var _ interfaces.PublishJobRepository = &publishJobRepository{}

func (r *publishJobRepository) Put(ctx context.Context, job *model.PublishJob) error {
	if job.ID == "" {
		return goerr.Wrap(model.ErrMissingRequired, "publish job ID is required")
	}

	_, err := r.db.NewInsert().Model(newPublishJobRecord(job)).
		On("CONFLICT (id) DO UPDATE").
		Set("state = EXCLUDED.state").
		Set("container_id = EXCLUDED.container_id").
		Set("post_id = EXCLUDED.post_id").
		Set("failed_phase = EXCLUDED.failed_phase").
		Set("error = EXCLUDED.error").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return goerr.Wrap(err, "failed to put publish job", goerr.V("id", job.ID), goerr.V("state", job.State))
	}
	return nil
}

func (r *publishJobRepository) Get(ctx context.Context, id model.PublishJobID) (*model.PublishJob, error) {
	record := &publishJobRecord{}
	err := r.db.NewSelect().Model(record).Where("?TableAlias.id = ?", id.String()).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, goerr.Wrap(ErrNotFound, "publish job not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get publish job", goerr.V("id", id))
	}
	return record.toDomain(), nil
}

func (r *publishJobRepository) FindByIdempotencyKey(ctx context.Context, userID, key string) (*model.PublishJob, error) {
	record := &publishJobRecord{}
	err := r.db.NewSelect().Model(record).
		Where("?TableAlias.user_id = ?", userID).
		Where("?TableAlias.idempotency_key = ?", key).
		OrderExpr("?TableAlias.updated_at DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, goerr.Wrap(ErrNotFound, "publish job not found",
				goerr.V("user_id", userID), goerr.V("idempotency_key", key))
		}
		return nil, goerr.Wrap(err, "failed to find publish job",
			goerr.V("user_id", userID), goerr.V("idempotency_key", key))
	}
	return record.toDomain(), nil
}
