package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/socialink/pkg/domain/interfaces"
	"github.com/secmon-lab/socialink/pkg/domain/model"
	"github.com/secmon-lab/socialink/pkg/domain/types"
)

type pendingKey struct {
	userID   string
	platform types.Platform
}

type connectionRepository struct {
	mu          sync.RWMutex
	connections map[model.ConnectionID]*model.Connection
	pending     map[pendingKey]*model.PendingToken
}

func newConnectionRepository() *connectionRepository {
	return &connectionRepository{
		connections: make(map[model.ConnectionID]*model.Connection),
		pending:     make(map[pendingKey]*model.PendingToken),
	}
}

func (r *connectionRepository) Put(ctx context.Context, conn *model.Connection) error {
	if err := conn.Validate(); err != nil {
		return goerr.Wrap(err, "invalid connection")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Store a copy to prevent external modifications
	copied := *conn
	r.connections[conn.ID] = &copied
	return nil
}

func (r *connectionRepository) Get(ctx context.Context, id model.ConnectionID) (*model.Connection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.connections[id]
	if !ok {
		return nil, goerr.Wrap(ErrNotFound, "connection not found", goerr.V("id", id))
	}
	copied := *conn
	return &copied, nil
}

func (r *connectionRepository) FindByUser(ctx context.Context, userID string, platform types.Platform) ([]*model.Connection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*model.Connection
	for _, conn := range r.connections {
		if conn.UserID == userID && conn.Platform == platform {
			copied := *conn
			result = append(result, &copied)
		}
	}
	sortNewestFirst(result)
	return result, nil
}

func (r *connectionRepository) FindOne(ctx context.Context, userID, externalAccountID string) (*model.Connection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var found []*model.Connection
	for _, conn := range r.connections {
		if conn.UserID == userID && conn.ExternalAccountID == externalAccountID {
			found = append(found, conn)
		}
	}
	if len(found) == 0 {
		return nil, goerr.Wrap(ErrNotFound, "connection not found",
			goerr.V("user_id", userID), goerr.V("external_account_id", externalAccountID))
	}
	sortNewestFirst(found)
	copied := *found[0]
	return &copied, nil
}

func (r *connectionRepository) ListByPlatform(ctx context.Context, platform types.Platform) ([]*model.Connection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*model.Connection
	for _, conn := range r.connections {
		if conn.Platform == platform {
			copied := *conn
			result = append(result, &copied)
		}
	}
	sortNewestFirst(result)
	return result, nil
}

func (r *connectionRepository) RotateToken(ctx context.Context, rotation *model.TokenRotation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.connections[rotation.ID]
	if !ok {
		return goerr.Wrap(ErrNotFound, "connection not found", goerr.V("id", rotation.ID))
	}
	if conn.AccessToken != rotation.Previous {
		return goerr.Wrap(interfaces.ErrConflict, "connection token was replaced", goerr.V("id", rotation.ID))
	}

	updated := *conn
	updated.AccessToken = rotation.AccessToken
	updated.TokenExpiresAt = rotation.ExpiresAt
	updated.UpdatedAt = rotation.UpdatedAt
	r.connections[rotation.ID] = &updated
	return nil
}

func (r *connectionRepository) DeleteAll(ctx context.Context, userID string, platform types.Platform) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, conn := range r.connections {
		if conn.UserID == userID && conn.Platform == platform {
			delete(r.connections, id)
		}
	}
	return nil
}

func (r *connectionRepository) PutPendingToken(ctx context.Context, token *model.PendingToken) error {
	if token.UserID == "" || !token.Platform.IsValid() || token.AccessToken == "" {
		return goerr.Wrap(model.ErrMissingRequired, "invalid pending token",
			goerr.V("user_id", token.UserID), goerr.V("platform", token.Platform))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *token
	r.pending[pendingKey{userID: token.UserID, platform: token.Platform}] = &copied
	return nil
}

func (r *connectionRepository) GetPendingToken(ctx context.Context, userID string, platform types.Platform) (*model.PendingToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	token, ok := r.pending[pendingKey{userID: userID, platform: platform}]
	if !ok {
		return nil, goerr.Wrap(ErrNotFound, "pending token not found",
			goerr.V("user_id", userID), goerr.V("platform", platform))
	}
	copied := *token
	return &copied, nil
}

func (r *connectionRepository) DeletePendingToken(ctx context.Context, userID string, platform types.Platform) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.pending, pendingKey{userID: userID, platform: platform})
	return nil
}

func sortNewestFirst(conns []*model.Connection) {
	sort.SliceStable(conns, func(i, j int) bool {
		if conns[i].CreatedAt.Equal(conns[j].CreatedAt) {
			return conns[i].ID < conns[j].ID
		}
		return conns[i].CreatedAt.After(conns[j].CreatedAt)
	})
}
