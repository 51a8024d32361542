package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/secmon-lab/socialink/pkg/domain/types"
)

// UsageAction names a metered platform operation
type UsageAction string

const (
	UsageActionPublish UsageAction = "publish"
)

// UsageRecord is appended for every metered operation. The credit ledger consumes these records.
type UsageRecord struct {
	ID        string
	UserID    string
	Platform  types.Platform
	Action    UsageAction
	JobID     PublishJobID
	CreatedAt time.Time
}

// NewUsageRecord creates a UsageRecord with a fresh ID
func NewUsageRecord(userID string, platform types.Platform, action UsageAction, jobID PublishJobID, now time.Time) *UsageRecord {
	return &UsageRecord{
		ID:        uuid.New().String(),
		UserID:    userID,
		Platform:  platform,
		Action:    action,
		JobID:     jobID,
		CreatedAt: now,
	}
}
