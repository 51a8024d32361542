package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/socialink/pkg/domain/interfaces"
	"github.com/secmon-lab/socialink/pkg/domain/model"
	"github.com/secmon-lab/socialink/pkg/domain/types"
	"github.com/uptrace/bun"
)

type userRepository struct {
	db *bun.DB
}

var _ interfaces.UserRepository = &userRepository{}

func (r *userRepository) Get(ctx context.Context, id string) (*model.User, error) {
	record := &userRecord{}
	err := r.db.NewSelect().Model(record).Where("?TableAlias.id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, goerr.Wrap(ErrNotFound, "user not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get user", goerr.V("id", id))
	}
	return &model.User{ID: record.ID, Email: record.Email, Name: record.Name}, nil
}

func (r *userRepository) Put(ctx context.Context, user *model.User) error {
	if user.ID == "" {
		return goerr.Wrap(model.ErrMissingRequired, "user ID is required")
	}

	record := &userRecord{ID: user.ID, Email: user.Email, Name: user.Name}
	_, err := r.db.NewInsert().Model(record).
		On("CONFLICT (id) DO UPDATE").
		Set("email = EXCLUDED.email").
		Set("name = EXCLUDED.name").
		Exec(ctx)
	if err != nil {
		return goerr.Wrap(err, "failed to put user", goerr.V("id", user.ID))
	}
	return nil
}

type usageRepository struct {
	db *bun.DB
}

var _ interfaces.UsageRepository = &usageRepository{}

func (r *usageRepository) Record(ctx context.Context, record *model.UsageRecord) error {
	row := &usageRecord{
		ID:        record.ID,
		UserID:    record.UserID,
		Platform:  record.Platform.String(),
		Action:    string(record.Action),
		JobID:     record.JobID.String(),
		CreatedAt: record.CreatedAt.UTC(),
	}
	if _, err := r.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return goerr.Wrap(err, "failed to record usage", goerr.V("user_id", record.UserID), goerr.V("action", record.Action))
	}
	return nil
}

func (r *usageRepository) ListByUser(ctx context.Context, userID string) ([]*model.UsageRecord, error) {
	var rows []*usageRecord
	err := r.db.NewSelect().Model(&rows).
		Where("?TableAlias.user_id = ?", userID).
		OrderExpr("?TableAlias.created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list usage records", goerr.V("user_id", userID))
	}

	out := make([]*model.UsageRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, &model.UsageRecord{
			ID:        row.ID,
			UserID:    row.UserID,
			Platform:  types.Platform(row.Platform),
			Action:    model.UsageAction(row.Action),
			JobID:     model.PublishJobID(row.JobID),
			CreatedAt: row.CreatedAt,
		})
	}
	return out, nil
}
