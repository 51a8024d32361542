package interfaces

import (
	"context"

	"github.com/secmon-lab/socialink/pkg/domain/model"
)

// UsageRepository receives metered operations for the credit ledger
type UsageRepository interface {
	Record(ctx context.Context, record *model.UsageRecord) error
	ListByUser(ctx context.Context, userID string) ([]*model.UsageRecord, error)
}
