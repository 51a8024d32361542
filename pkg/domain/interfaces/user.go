package interfaces

import (
	"context"

	"github.com/secmon-lab/socialink/pkg/domain/model"
)

// UserRepository is the read side of the external identity store
type UserRepository interface {
	// Get retrieves a user by ID
	Get(ctx context.Context, id string) (*model.User, error)

	// Put is used by provisioning and tests; the identity store owns user records
	Put(ctx context.Context, user *model.User) error
}
