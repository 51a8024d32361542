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
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type publishJobRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

var _ interfaces.PublishJobRepository = &publishJobRepository{}

func newPublishJobRepository(client *firestore.Client) *publishJobRepository {
	return &publishJobRepository{
		client: client,
	}
}

type publishJobDoc struct {
	ID             string    `firestore:"id"`
	IdempotencyKey string    `firestore:"idempotency_key"`
	ConnectionID   string    `firestore:"connection_id"`
	UserID         string    `firestore:"user_id"`
	Platform       string    `firestore:"platform"`
	AccountID      string    `firestore:"account_id"`
	ImageURL       string    `firestore:"image_url"`
	Caption        string    `firestore:"caption"`
	State          string    `firestore:"state"`
	ContainerID    string    `firestore:"container_id"`
	PostID         string    `firestore:"post_id"`
	FailedPhase    string    `firestore:"failed_phase"`
	Error          string    `firestore:"error"`
	CreatedAt      time.Time `firestore:"created_at"`
	UpdatedAt      time.Time `firestore:"updated_at"`
}

func (r *publishJobRepository) collection() *firestore.CollectionRef {
	return r.client.Collection(collectionName(r.collectionPrefix, publishJobsCollection))
}

func (r *publishJobRepository) toDoc(job *model.PublishJob) *publishJobDoc {
	return &publishJobDoc{
		ID:             job.ID.String(),
		IdempotencyKey: job.IdempotencyKey,
		ConnectionID:   job.ConnectionID.String(),
		UserID:         job.UserID,
		Platform:       job.Platform.String(),
		AccountID:      job.AccountID,
		ImageURL:       job.Content.ImageURL,
		Caption:        job.Content.Caption,
		State:          job.State.String(),
		ContainerID:    job.ContainerID,
		PostID:         job.PostID,
		FailedPhase:    string(job.FailedPhase),
		Error:          job.Error,
		CreatedAt:      job.CreatedAt,
		UpdatedAt:      job.UpdatedAt,
	}
}

func (r *publishJobRepository) fromDoc(doc *publishJobDoc) *model.PublishJob {
	return &model.PublishJob{
		ID:             model.PublishJobID(doc.ID),
		IdempotencyKey: doc.IdempotencyKey,
		ConnectionID:   model.ConnectionID(doc.ConnectionID),
		UserID:         doc.UserID,
		Platform:       types.Platform(doc.Platform),
		AccountID:      doc.AccountID,
		Content: model.PublishContent{
			ImageURL: doc.ImageURL,
			Caption:  doc.Caption,
		},
		State:       types.PublishState(doc.State),
		ContainerID: doc.ContainerID,
		PostID:      doc.PostID,
		FailedPhase: types.PublishPhase(doc.FailedPhase),
		Error:       doc.Error,
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
	}
}

func (r *publishJobRepository) Put(ctx context.Context, job *model.PublishJob) error {
	if job.ID == "" {
		return goerr.Wrap(model.ErrMissingRequired, "publish job ID is required")
	}

	if _, err := r.collection().Doc(job.ID.String()).Set(ctx, r.toDoc(job)); err != nil {
		return goerr.Wrap(err, "failed to put publish job", goerr.V("id", job.ID), goerr.V("state", job.State))
	}
	return nil
}

func (r *publishJobRepository) Get(ctx context.Context, id model.PublishJobID) (*model.PublishJob, error) {
	doc, err := r.collection().Doc(id.String()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "publish job not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get publish job", goerr.V("id", id))
	}

	var jobDoc publishJobDoc
	if err := doc.DataTo(&jobDoc); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal publish job", goerr.V("id", id))
	}
	return r.fromDoc(&jobDoc), nil
}

func (r *publishJobRepository) FindByIdempotencyKey(ctx context.Context, userID, key string) (*model.PublishJob, error) {
	iter := r.collection().
		Where("user_id", "==", userID).
		Where("idempotency_key", "==", key).
		OrderBy("updated_at", firestore.Desc).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, goerr.Wrap(ErrNotFound, "publish job not found",
			goerr.V("user_id", userID), goerr.V("idempotency_key", key))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query publish job",
			goerr.V("user_id", userID), goerr.V("idempotency_key", key))
	}

	var jobDoc publishJobDoc
	if err := doc.DataTo(&jobDoc); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal publish job", goerr.V("docID", doc.Ref.ID))
	}
	return r.fromDoc(&jobDoc), nil
}
