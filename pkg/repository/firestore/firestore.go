package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/socialink/pkg/domain/interfaces"
)

// ErrNotFound is returned when a document does not exist
var ErrNotFound = interfaces.ErrNotFound

// Collection names. The prefix option is prepended with an underscore.
const (
	connectionsCollection   = "connections"
	pendingTokensCollection = "pending_tokens"
	webhookEventsCollection = "webhook_events"
	publishJobsCollection   = "publish_jobs"
	usersCollection         = "users"
	usageCollection         = "usage_records"
)

type Firestore struct {
	client       *firestore.Client
	connection   *connectionRepository
	webhookEvent *webhookEventRepository
	publishJob   *publishJobRepository
	user         *userRepository
	usage        *usageRepository
}

var _ interfaces.Repository = &Firestore{}

type Option func(*Firestore)

func WithCollectionPrefix(prefix string) Option {
	return func(f *Firestore) {
		f.connection.collectionPrefix = prefix
		f.webhookEvent.collectionPrefix = prefix
		f.publishJob.collectionPrefix = prefix
		f.user.collectionPrefix = prefix
		f.usage.collectionPrefix = prefix
	}
}

func New(ctx context.Context, projectID, databaseID string, opts ...Option) (*Firestore, error) {
	if databaseID == "" {
		databaseID = firestore.DefaultDatabaseID
	}

	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("projectID", projectID), goerr.V("databaseID", databaseID))
	}

	f := &Firestore{
		client:       client,
		connection:   newConnectionRepository(client),
		webhookEvent: newWebhookEventRepository(client),
		publishJob:   newPublishJobRepository(client),
		user:         newUserRepository(client),
		usage:        newUsageRepository(client),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f, nil
}

func (f *Firestore) Connection() interfaces.ConnectionRepository {
	return f.connection
}

func (f *Firestore) WebhookEvent() interfaces.WebhookEventRepository {
	return f.webhookEvent
}

func (f *Firestore) PublishJob() interfaces.PublishJobRepository {
	return f.publishJob
}

func (f *Firestore) User() interfaces.UserRepository {
	return f.user
}

func (f *Firestore) Usage() interfaces.UsageRepository {
	return f.usage
}

func (f *Firestore) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

func collectionName(prefix, name string) string {
	if prefix != "" {
		return prefix + "_" + name
	}
	return name
}
