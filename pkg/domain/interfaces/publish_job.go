package interfaces

import (
	"context"

	"github.com/secmon-lab/socialink/pkg/domain/model"
)

// PublishJobRepository records publish attempts for diagnosis and idempotency-key replay
type PublishJobRepository interface {
	// Put inserts or replaces the job
	Put(ctx context.Context, job *model.PublishJob) error

	// Get retrieves a job by ID
	Get(ctx context.Context, id model.PublishJobID) (*model.PublishJob, error)

	// FindByIdempotencyKey returns the most recently updated job of the user with the key
	FindByIdempotencyKey(ctx context.Context, userID, key string) (*model.PublishJob, error)
}
