package memory

import (
	"context"
	"sync"

	"github.com/secmon-lab/socialink/pkg/domain/model"
)

type usageRepository struct {
	mu      sync.RWMutex
	records []*model.UsageRecord
}

func newUsageRepository() *usageRepository {
	return &usageRepository{}
}

func (r *usageRepository) Record(ctx context.Context, record *model.UsageRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *record
	r.records = append(r.records, &copied)
	return nil
}

func (r *usageRepository) ListByUser(ctx context.Context, userID string) ([]*model.UsageRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*model.UsageRecord
	for _, rec := range r.records {
		if rec.UserID == userID {
			copied := *rec
			result = append(result, &copied)
		}
	}
	return result, nil
}
