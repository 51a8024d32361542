package memory

import (
	"context"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/socialink/pkg/domain/model"
)

type publishJobRepository struct {
	mu   sync.RWMutex
	jobs map[model.PublishJobID]*model.PublishJob
}

func newPublishJobRepository() *publishJobRepository {
	return &publishJobRepository{
		jobs: make(map[model.PublishJobID]*model.PublishJob),
	}
}

func (r *publishJobRepository) Put(ctx context.Context, job *model.PublishJob) error {
	if job.ID == "" {
		return goerr.Wrap(model.ErrMissingRequired, "publish job ID is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *job
	r.jobs[job.ID] = &copied
	return nil
}

func (r *publishJobRepository) Get(ctx context.Context, id model.PublishJobID) (*model.PublishJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[id]
	if !ok {
		return nil, goerr.Wrap(ErrNotFound, "publish job not found", goerr.V("id", id))
	}
	copied := *job
	return &copied, nil
}

func (r *publishJobRepository) FindByIdempotencyKey(ctx context.Context, userID, key string) (*model.PublishJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest *model.PublishJob
	for _, job := range r.jobs {
		if job.UserID != userID || job.IdempotencyKey != key {
			continue
		}
		if latest == nil || job.UpdatedAt.After(latest.UpdatedAt) {
			latest = job
		}
	}
	if latest == nil {
		return nil, goerr.Wrap(ErrNotFound, "publish job not found",
			goerr.V("user_id", userID), goerr.V("idempotency_key", key))
	}
	copied := *latest
	return &copied, nil
}
