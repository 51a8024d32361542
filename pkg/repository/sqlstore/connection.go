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

type connectionRepository struct {
	db *bun.DB
}

var _ interfaces.ConnectionRepository = &connectionRepository{}

// Put is a single INSERT ... ON CONFLICT statement, so concurrent writers of
// the same key never interleave a read and a write
func (r *connectionRepository) Put(ctx context.Context, conn *model.Connection) error {
	if err := conn.Validate(); err != nil {
		return goerr.Wrap(err, "invalid connection")
	}

	_, err := r.db.NewInsert().
		Model(newConnectionRecord(conn)).
		On("CONFLICT (id) DO UPDATE").
		Set("external_account_name = EXCLUDED.external_account_name").
		Set("access_token = EXCLUDED.access_token").
		Set("linked_account_id = EXCLUDED.linked_account_id").
		Set("token_expires_at = EXCLUDED.token_expires_at").
		Set("created_at = EXCLUDED.created_at").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return goerr.Wrap(err, "failed to put connection",
			goerr.V("id", conn.ID), goerr.V("user_id", conn.UserID), goerr.V("platform", conn.Platform))
	}
	return nil
}

func (r *connectionRepository) Get(ctx context.Context, id model.ConnectionID) (*model.Connection, error) {
	record := &connectionRecord{}
	err := r.db.NewSelect().Model(record).Where("?TableAlias.id = ?", id.String()).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, goerr.Wrap(ErrNotFound, "connection not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get connection", goerr.V("id", id))
	}
	return record.toDomain(), nil
}

func (r *connectionRepository) FindByUser(ctx context.Context, userID string, platform types.Platform) ([]*model.Connection, error) {
	var records []*connectionRecord
	err := r.db.NewSelect().Model(&records).
		Where("?TableAlias.user_id = ?", userID).
		Where("?TableAlias.platform = ?", platform.String()).
		OrderExpr("?TableAlias.created_at DESC, ?TableAlias.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to find connections", goerr.V("user_id", userID), goerr.V("platform", platform))
	}
	return toConnections(records), nil
}

func (r *connectionRepository) FindOne(ctx context.Context, userID, externalAccountID string) (*model.Connection, error) {
	record := &connectionRecord{}
	err := r.db.NewSelect().Model(record).
		Where("?TableAlias.user_id = ?", userID).
		Where("?TableAlias.external_account_id = ?", externalAccountID).
		OrderExpr("?TableAlias.created_at DESC, ?TableAlias.id ASC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, goerr.Wrap(ErrNotFound, "connection not found",
				goerr.V("user_id", userID), goerr.V("external_account_id", externalAccountID))
		}
		return nil, goerr.Wrap(err, "failed to find connection",
			goerr.V("user_id", userID), goerr.V("external_account_id", externalAccountID))
	}
	return record.toDomain(), nil
}

func (r *connectionRepository) ListByPlatform(ctx context.Context, platform types.Platform) ([]*model.Connection, error) {
	var records []*connectionRecord
	err := r.db.NewSelect().Model(&records).
		Where("?TableAlias.platform = ?", platform.String()).
		OrderExpr("?TableAlias.created_at DESC, ?TableAlias.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list connections", goerr.V("platform", platform))
	}
	return toConnections(records), nil
}

// RotateToken is a conditional UPDATE; it never inserts, so a connection
// deleted while its token was being refreshed stays deleted
func (r *connectionRepository) RotateToken(ctx context.Context, rotation *model.TokenRotation) error {
	var expiresAt any
	if !rotation.ExpiresAt.IsZero() {
		expiresAt = rotation.ExpiresAt.UTC()
	}

	res, err := r.db.NewUpdate().Model((*connectionRecord)(nil)).
		Set("access_token = ?", rotation.AccessToken).
		Set("token_expires_at = ?", expiresAt).
		Set("updated_at = ?", rotation.UpdatedAt.UTC()).
		Where("?TableAlias.id = ?", rotation.ID.String()).
		Where("?TableAlias.access_token = ?", rotation.Previous).
		Exec(ctx)
	if err != nil {
		return goerr.Wrap(err, "failed to rotate connection token", goerr.V("id", rotation.ID))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return goerr.Wrap(err, "failed to get affected rows", goerr.V("id", rotation.ID))
	}
	if n > 0 {
		return nil
	}

	exists, err := r.db.NewSelect().Model((*connectionRecord)(nil)).
		Where("?TableAlias.id = ?", rotation.ID.String()).
		Exists(ctx)
	if err != nil {
		return goerr.Wrap(err, "failed to check connection", goerr.V("id", rotation.ID))
	}
	if !exists {
		return goerr.Wrap(ErrNotFound, "connection not found", goerr.V("id", rotation.ID))
	}
	return goerr.Wrap(interfaces.ErrConflict, "connection token was replaced", goerr.V("id", rotation.ID))
}

func (r *connectionRepository) DeleteAll(ctx context.Context, userID string, platform types.Platform) error {
	_, err := r.db.NewDelete().Model((*connectionRecord)(nil)).
		Where("user_id = ?", userID).
		Where("platform = ?", platform.String()).
		Exec(ctx)
	if err != nil {
		return goerr.Wrap(err, "failed to delete connections", goerr.V("user_id", userID), goerr.V("platform", platform))
	}
	return nil
}

func (r *connectionRepository) PutPendingToken(ctx context.Context, token *model.PendingToken) error {
	if token.UserID == "" || !token.Platform.IsValid() || token.AccessToken == "" {
		return goerr.Wrap(model.ErrMissingRequired, "invalid pending token",
			goerr.V("user_id", token.UserID), goerr.V("platform", token.Platform))
	}

	record := &pendingTokenRecord{
		UserID:      token.UserID,
		Platform:    token.Platform.String(),
		AccessToken: token.AccessToken,
		ExpiresAt:   token.ExpiresAt,
		CreatedAt:   token.CreatedAt.UTC(),
	}
	_, err := r.db.NewInsert().Model(record).
		On("CONFLICT (user_id, platform) DO UPDATE").
		Set("access_token = EXCLUDED.access_token").
		Set("expires_at = EXCLUDED.expires_at").
		Set("created_at = EXCLUDED.created_at").
		Exec(ctx)
	if err != nil {
		return goerr.Wrap(err, "failed to put pending token",
			goerr.V("user_id", token.UserID), goerr.V("platform", token.Platform))
	}
	return nil
}

func (r *connectionRepository) GetPendingToken(ctx context.Context, userID string, platform types.Platform) (*model.PendingToken, error) {
	record := &pendingTokenRecord{}
	err := r.db.NewSelect().Model(record).
		Where("?TableAlias.user_id = ?", userID).
		Where("?TableAlias.platform = ?", platform.String()).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, goerr.Wrap(ErrNotFound, "pending token not found",
				goerr.V("user_id", userID), goerr.V("platform", platform))
		}
		return nil, goerr.Wrap(err, "failed to get pending token",
			goerr.V("user_id", userID), goerr.V("platform", platform))
	}
	return &model.PendingToken{
		UserID:      record.UserID,
		Platform:    types.Platform(record.Platform),
		AccessToken: record.AccessToken,
		ExpiresAt:   record.ExpiresAt,
		CreatedAt:   record.CreatedAt,
	}, nil
}

func (r *connectionRepository) DeletePendingToken(ctx context.Context, userID string, platform types.Platform) error {
	_, err := r.db.NewDelete().Model((*pendingTokenRecord)(nil)).
		Where("user_id = ?", userID).
		Where("platform = ?", platform.String()).
		Exec(ctx)
	if err != nil {
		return goerr.Wrap(err, "failed to delete pending token", goerr.V("user_id", userID), goerr.V("platform", platform))
	}
	return nil
}

func toConnections(records []*connectionRecord) []*model.Connection {
	out := make([]*model.Connection, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out
}
