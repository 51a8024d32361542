package usecase

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/socialink/pkg/domain/interfaces"
	"github.com/secmon-lab/socialink/pkg/domain/model"
	"github.com/secmon-lab/socialink/pkg/domain/types"
	"github.com/secmon-lab/socialink/pkg/service/archive"
	"github.com/secmon-lab/socialink/pkg/utils/async"
	"github.com/secmon-lab/socialink/pkg/utils/logging"
)

const signaturePrefix = "sha256="

// WebhookDelivery is one inbound webhook request as seen by the transport
type WebhookDelivery struct {
	Body       []byte
	Signature  string // X-Hub-Signature-256
	DeliveryID string
}

// WebhookUseCase captures inbound Meta webhook deliveries. It never rejects a
// delivery because of its content; only a failed durable capture is an error.
type WebhookUseCase struct {
	repo        interfaces.Repository
	appSecret   string
	verifyToken string
	archiver    archive.Service
	now         func() time.Time
}

// WebhookOption is a functional option for WebhookUseCase
type WebhookOption func(*WebhookUseCase)

// WithAppSecret enables X-Hub-Signature-256 verification
func WithAppSecret(secret string) WebhookOption {
	return func(uc *WebhookUseCase) {
		uc.appSecret = secret
	}
}

// WithVerifyToken sets the token expected by the subscription handshake
func WithVerifyToken(token string) WebhookOption {
	return func(uc *WebhookUseCase) {
		uc.verifyToken = token
	}
}

// WithArchiver copies every captured body to long-term storage
func WithArchiver(a archive.Service) WebhookOption {
	return func(uc *WebhookUseCase) {
		uc.archiver = a
	}
}

// WithWebhookClock replaces the time source, for tests
func WithWebhookClock(now func() time.Time) WebhookOption {
	return func(uc *WebhookUseCase) {
		uc.now = now
	}
}

func NewWebhookUseCase(repo interfaces.Repository, opts ...WebhookOption) *WebhookUseCase {
	uc := &WebhookUseCase{
		repo: repo,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Verify answers the subscription handshake. It returns the challenge to echo
// back when mode is "subscribe" and the token matches.
func (uc *WebhookUseCase) Verify(mode, token, challenge string) (string, error) {
	if uc.verifyToken == "" {
		return "", goerr.Wrap(ErrUnauthorized, "webhook verify token is not configured")
	}
	if mode != "subscribe" || subtle.ConstantTimeCompare([]byte(token), []byte(uc.verifyToken)) != 1 {
		return "", goerr.Wrap(ErrUnauthorized, "webhook verification rejected", goerr.V("mode", mode))
	}
	return challenge, nil
}

// Ingest appends exactly one event for the delivery
func (uc *WebhookUseCase) Ingest(ctx context.Context, d WebhookDelivery) (*model.WebhookEvent, error) {
	if d.Body == nil {
		return nil, goerr.Wrap(ErrMalformedWebhook, "webhook body is missing")
	}

	event := &model.WebhookEvent{
		ID:             model.NewWebhookEventID(),
		Kind:           types.EventKindUnclassified,
		Payload:        model.NewPayload(d.Body),
		SignatureValid: uc.verifySignature(d.Body, d.Signature),
		DeliveryID:     d.DeliveryID,
		ReceivedAt:     uc.now(),
	}
	if event.Payload.IsStructured() {
		classify(event, event.Payload.Structured())
	}

	if err := uc.repo.WebhookEvent().Append(ctx, event); err != nil {
		return nil, goerr.Wrap(err, "failed to capture webhook event",
			goerr.V("event_id", event.ID), goerr.V("size", len(d.Body)))
	}

	logging.From(ctx).Info("webhook event captured",
		"event_id", event.ID,
		"kind", event.Kind,
		"object", event.Object,
		"structured", event.Payload.IsStructured(),
		"signature_valid", event.SignatureValid,
	)

	if uc.archiver != nil {
		async.Dispatch(ctx, func(ctx context.Context) error {
			return uc.archiver.Archive(ctx, event)
		})
	}

	return event, nil
}

// verifySignature reports whether header is a valid sha256 HMAC of body.
// Without a configured app secret nothing can be verified and the result is false.
func (uc *WebhookUseCase) verifySignature(body []byte, header string) bool {
	if uc.appSecret == "" || !strings.HasPrefix(header, signaturePrefix) {
		return false
	}
	got, err := hex.DecodeString(strings.TrimPrefix(header, signaturePrefix))
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(uc.appSecret))
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}

type webhookEnvelope struct {
	Object string `json:"object"`
	Entry  []struct {
		ID      string `json:"id"`
		Changes []struct {
			Field string          `json:"field"`
			Value json.RawMessage `json:"value"`
		} `json:"changes"`
		Messaging []webhookMessaging `json:"messaging"`
	} `json:"entry"`
}

type webhookMessaging struct {
	Sender struct {
		ID string `json:"id"`
	} `json:"sender"`
	Message struct {
		Text string `json:"text"`
	} `json:"message"`
}

// flexID accepts identifiers sent either as JSON strings or numbers
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

type leadgenValue struct {
	LeadgenID flexID `json:"leadgen_id"`
	FormID    flexID `json:"form_id"`
	PageID    flexID `json:"page_id"`
}

// classify inspects known field shapes. Anything it does not recognize stays unclassified.
func classify(event *model.WebhookEvent, doc json.RawMessage) {
	var env webhookEnvelope
	if err := json.Unmarshal(doc, &env); err != nil {
		return
	}
	event.Object = env.Object

	for _, entry := range env.Entry {
		if event.PageID == "" {
			event.PageID = entry.ID
		}

		for _, change := range entry.Changes {
			switch change.Field {
			case "leadgen":
				var v leadgenValue
				if err := json.Unmarshal(change.Value, &v); err != nil {
					continue
				}
				event.Kind = types.EventKindLead
				event.LeadgenID = string(v.LeadgenID)
				event.FormID = string(v.FormID)
				if v.PageID != "" {
					event.PageID = string(v.PageID)
				}
				return

			case "messages":
				var v webhookMessaging
				if err := json.Unmarshal(change.Value, &v); err != nil {
					continue
				}
				event.Kind = types.EventKindMessage
				event.SenderID = v.Sender.ID
				event.MessageText = v.Message.Text
				return
			}
		}

		if len(entry.Messaging) > 0 {
			event.Kind = types.EventKindMessage
			event.SenderID = entry.Messaging[0].Sender.ID
			event.MessageText = entry.Messaging[0].Message.Text
			return
		}
	}
}
