package model

import (
	"bytes"
	"encoding/json"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/secmon-lab/socialink/pkg/domain/types"
)

// WebhookEventID is a UUID-based identifier for WebhookEvent
type WebhookEventID string

// NewWebhookEventID generates a new UUID v4 WebhookEventID
func NewWebhookEventID() WebhookEventID {
	return WebhookEventID(uuid.New().String())
}

func (id WebhookEventID) String() string {
	return string(id)
}

// Payload is the body of a webhook delivery, decided once at ingestion as either
// structured JSON or opaque raw bytes. Both variants keep the original bytes.
type Payload struct {
	structured json.RawMessage
	raw        []byte
}

// NewPayload classifies body as structured when it is valid UTF-8 JSON and raw
// otherwise. json.Valid alone accepts invalid UTF-8 inside strings.
func NewPayload(body []byte) Payload {
	copied := bytes.Clone(body)
	if copied == nil {
		copied = []byte{}
	}
	if len(bytes.TrimSpace(copied)) > 0 && utf8.Valid(copied) && json.Valid(copied) {
		return Payload{structured: json.RawMessage(copied)}
	}
	return Payload{raw: copied}
}

// NewRawPayload builds a raw payload (for repository reconstruction)
func NewRawPayload(raw []byte) Payload {
	if raw == nil {
		raw = []byte{}
	}
	return Payload{raw: raw}
}

// NewStructuredPayload builds a structured payload (for repository reconstruction)
func NewStructuredPayload(data json.RawMessage) Payload {
	return Payload{structured: data}
}

func (p Payload) IsStructured() bool {
	return p.structured != nil
}

// Structured returns the JSON document, or nil for raw payloads
func (p Payload) Structured() json.RawMessage {
	return p.structured
}

// Raw returns the opaque bytes, or nil for structured payloads
func (p Payload) Raw() []byte {
	return p.raw
}

// Bytes returns the delivery body exactly as received
func (p Payload) Bytes() []byte {
	if p.structured != nil {
		return p.structured
	}
	return p.raw
}

// WebhookEvent is a normalized record of one inbound delivery
type WebhookEvent struct {
	ID             WebhookEventID
	Kind           types.EventKind
	Object         string // "page", "instagram", ...
	PageID         string
	FormID         string
	LeadgenID      string
	SenderID       string
	MessageText    string
	Payload        Payload
	SignatureValid bool
	DeliveryID     string
	ReceivedAt     time.Time
}
