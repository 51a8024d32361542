package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/socialink/pkg/domain/interfaces"
	"github.com/secmon-lab/socialink/pkg/domain/model"
	"github.com/secmon-lab/socialink/pkg/domain/types"
	"google.golang.org/api/iterator"
)

type usageRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

var _ interfaces.UsageRepository = &usageRepository{}

func newUsageRepository(client *firestore.Client) *usageRepository {
	return &usageRepository{
		client: client,
	}
}

type usageDoc struct {
	ID        string    `firestore:"id"`
	UserID    string    `firestore:"user_id"`
	Platform  string    `firestore:"platform"`
	Action    string    `firestore:"action"`
	JobID     string    `firestore:"job_id"`
	CreatedAt time.Time `firestore:"created_at"`
}

func (r *usageRepository) collection() *firestore.CollectionRef {
	return r.client.Collection(collectionName(r.collectionPrefix, usageCollection))
}

func (r *usageRepository) Record(ctx context.Context, record *model.UsageRecord) error {
	d := &usageDoc{
		ID:        record.ID,
		UserID:    record.UserID,
		Platform:  record.Platform.String(),
		Action:    string(record.Action),
		JobID:     record.JobID.String(),
		CreatedAt: record.CreatedAt,
	}
	if _, err := r.collection().Doc(record.ID).Create(ctx, d); err != nil {
		return goerr.Wrap(err, "failed to record usage",
			goerr.V("user_id", record.UserID), goerr.V("action", record.Action))
	}
	return nil
}

func (r *usageRepository) ListByUser(ctx context.Context, userID string) ([]*model.UsageRecord, error) {
	iter := r.collection().Where("user_id", "==", userID).Documents(ctx)
	defer iter.Stop()

	var records []*model.UsageRecord
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate usage records", goerr.V("user_id", userID))
		}

		var d usageDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal usage record", goerr.V("docID", doc.Ref.ID))
		}
		records = append(records, &model.UsageRecord{
			ID:        d.ID,
			UserID:    d.UserID,
			Platform:  types.Platform(d.Platform),
			Action:    model.UsageAction(d.Action),
			JobID:     model.PublishJobID(d.JobID),
			CreatedAt: d.CreatedAt,
		})
	}
	return records, nil
}
