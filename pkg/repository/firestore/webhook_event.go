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

type webhookEventRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

var _ interfaces.WebhookEventRepository = &webhookEventRepository{}

func newWebhookEventRepository(client *firestore.Client) *webhookEventRepository {
	return &webhookEventRepository{
		client: client,
	}
}

// webhookEventDoc is the Firestore persistence model. Exactly one of
// Structured and Raw is populated.
type webhookEventDoc struct {
	ID             string    `firestore:"id"`
	Kind           string    `firestore:"kind"`
	Object         string    `firestore:"object"`
	PageID         string    `firestore:"page_id"`
	FormID         string    `firestore:"form_id"`
	LeadgenID      string    `firestore:"leadgen_id"`
	SenderID       string    `firestore:"sender_id"`
	MessageText    string    `firestore:"message_text"`
	Structured     string    `firestore:"payload_json,omitempty"`
	Raw            []byte    `firestore:"payload_raw,omitempty"`
	SignatureValid bool      `firestore:"signature_valid"`
	DeliveryID     string    `firestore:"delivery_id"`
	ReceivedAt     time.Time `firestore:"received_at"`
}

func (r *webhookEventRepository) collection() *firestore.CollectionRef {
	return r.client.Collection(collectionName(r.collectionPrefix, webhookEventsCollection))
}

func (r *webhookEventRepository) toDoc(ev *model.WebhookEvent) *webhookEventDoc {
	doc := &webhookEventDoc{
		ID:             ev.ID.String(),
		Kind:           ev.Kind.String(),
		Object:         ev.Object,
		PageID:         ev.PageID,
		FormID:         ev.FormID,
		LeadgenID:      ev.LeadgenID,
		SenderID:       ev.SenderID,
		MessageText:    ev.MessageText,
		SignatureValid: ev.SignatureValid,
		DeliveryID:     ev.DeliveryID,
		ReceivedAt:     ev.ReceivedAt,
	}
	if ev.Payload.IsStructured() {
		doc.Structured = string(ev.Payload.Structured())
	} else {
		doc.Raw = ev.Payload.Raw()
	}
	return doc
}

func (r *webhookEventRepository) fromDoc(doc *webhookEventDoc) *model.WebhookEvent {
	payload := model.NewRawPayload(doc.Raw)
	if doc.Structured != "" {
		payload = model.NewStructuredPayload([]byte(doc.Structured))
	}
	return &model.WebhookEvent{
		ID:             model.WebhookEventID(doc.ID),
		Kind:           types.EventKind(doc.Kind),
		Object:         doc.Object,
		PageID:         doc.PageID,
		FormID:         doc.FormID,
		LeadgenID:      doc.LeadgenID,
		SenderID:       doc.SenderID,
		MessageText:    doc.MessageText,
		Payload:        payload,
		SignatureValid: doc.SignatureValid,
		DeliveryID:     doc.DeliveryID,
		ReceivedAt:     doc.ReceivedAt,
	}
}

// Append uses Create so an existing event is never overwritten
func (r *webhookEventRepository) Append(ctx context.Context, event *model.WebhookEvent) error {
	if event.ID == "" {
		return goerr.Wrap(model.ErrMissingRequired, "webhook event ID is required")
	}

	if _, err := r.collection().Doc(event.ID.String()).Create(ctx, r.toDoc(event)); err != nil {
		return goerr.Wrap(err, "failed to append webhook event",
			goerr.V("id", event.ID), goerr.V("kind", event.Kind))
	}
	return nil
}

func (r *webhookEventRepository) Get(ctx context.Context, id model.WebhookEventID) (*model.WebhookEvent, error) {
	doc, err := r.collection().Doc(id.String()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "webhook event not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get webhook event", goerr.V("id", id))
	}

	var evDoc webhookEventDoc
	if err := doc.DataTo(&evDoc); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal webhook event", goerr.V("id", id))
	}
	return r.fromDoc(&evDoc), nil
}

func (r *webhookEventRepository) List(ctx context.Context, kind types.EventKind, since time.Time, limit int) ([]*model.WebhookEvent, error) {
	query := r.collection().Query
	if kind != "" {
		query = query.Where("kind", "==", kind.String())
	}
	query = query.Where("received_at", ">=", since).OrderBy("received_at", firestore.Desc)
	if limit > 0 {
		query = query.Limit(limit)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var events []*model.WebhookEvent
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate webhook events", goerr.V("kind", kind))
		}

		var evDoc webhookEventDoc
		if err := doc.DataTo(&evDoc); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal webhook event", goerr.V("docID", doc.Ref.ID))
		}
		events = append(events, r.fromDoc(&evDoc))
	}
	return events, nil
}
