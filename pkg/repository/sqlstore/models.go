package sqlstore

import (
	"time"

	"github.com/secmon-lab/socialink/pkg/domain/model"
	"github.com/secmon-lab/socialink/pkg/domain/types"
	"github.com/uptrace/bun"
)

type connectionRecord struct {
	bun.BaseModel `bun:"table:connections,alias:c"`

	ID                  string    `bun:"id,pk"`
	UserID              string    `bun:"user_id,notnull"`
	Platform            string    `bun:"platform,notnull"`
	ExternalAccountID   string    `bun:"external_account_id,notnull"`
	ExternalAccountName string    `bun:"external_account_name,notnull"`
	AccessToken         string    `bun:"access_token,notnull"`
	LinkedAccountID     string    `bun:"linked_account_id,notnull"`
	TokenExpiresAt      time.Time `bun:"token_expires_at,nullzero"`
	CreatedAt           time.Time `bun:"created_at,notnull"`
	UpdatedAt           time.Time `bun:"updated_at,notnull"`
}

func newConnectionRecord(conn *model.Connection) *connectionRecord {
	return &connectionRecord{
		ID:                  conn.ID.String(),
		UserID:              conn.UserID,
		Platform:            conn.Platform.String(),
		ExternalAccountID:   conn.ExternalAccountID,
		ExternalAccountName: conn.ExternalAccountName,
		AccessToken:         conn.AccessToken,
		LinkedAccountID:     conn.LinkedAccountID,
		TokenExpiresAt:      conn.TokenExpiresAt,
		CreatedAt:           conn.CreatedAt.UTC(),
		UpdatedAt:           conn.UpdatedAt.UTC(),
	}
}

func (r *connectionRecord) toDomain() *model.Connection {
	return &model.Connection{
		ID:                  model.ConnectionID(r.ID),
		UserID:              r.UserID,
		Platform:            types.Platform(r.Platform),
		ExternalAccountID:   r.ExternalAccountID,
		ExternalAccountName: r.ExternalAccountName,
		AccessToken:         r.AccessToken,
		LinkedAccountID:     r.LinkedAccountID,
		TokenExpiresAt:      r.TokenExpiresAt,
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
	}
}

type pendingTokenRecord struct {
	bun.BaseModel `bun:"table:pending_tokens,alias:pt"`

	UserID      string    `bun:"user_id,pk"`
	Platform    string    `bun:"platform,pk"`
	AccessToken string    `bun:"access_token,notnull"`
	ExpiresAt   time.Time `bun:"expires_at,nullzero"`
	CreatedAt   time.Time `bun:"created_at,notnull"`
}

type webhookEventRecord struct {
	bun.BaseModel `bun:"table:webhook_events,alias:we"`

	ID             string    `bun:"id,pk"`
	Kind           string    `bun:"kind,notnull"`
	Object         string    `bun:"object,notnull"`
	PageID         string    `bun:"page_id,notnull"`
	FormID         string    `bun:"form_id,notnull"`
	LeadgenID      string    `bun:"leadgen_id,notnull"`
	SenderID       string    `bun:"sender_id,notnull"`
	MessageText    string    `bun:"message_text,notnull"`
	Structured     bool      `bun:"structured,notnull"`
	Payload        []byte    `bun:"payload,notnull"`
	SignatureValid bool      `bun:"signature_valid,notnull"`
	DeliveryID     string    `bun:"delivery_id,notnull"`
	ReceivedAt     time.Time `bun:"received_at,notnull"`
}

func newWebhookEventRecord(ev *model.WebhookEvent) *webhookEventRecord {
	payload := ev.Payload.Bytes()
	if payload == nil {
		payload = []byte{}
	}
	return &webhookEventRecord{
		ID:             ev.ID.String(),
		Kind:           ev.Kind.String(),
		Object:         ev.Object,
		PageID:         ev.PageID,
		FormID:         ev.FormID,
		LeadgenID:      ev.LeadgenID,
		SenderID:       ev.SenderID,
		MessageText:    ev.MessageText,
		Structured:     ev.Payload.IsStructured(),
		Payload:        payload,
		SignatureValid: ev.SignatureValid,
		DeliveryID:     ev.DeliveryID,
		ReceivedAt:     ev.ReceivedAt.UTC(),
	}
}

func (r *webhookEventRecord) toDomain() *model.WebhookEvent {
	payload := model.NewRawPayload(r.Payload)
	if r.Structured {
		payload = model.NewStructuredPayload(r.Payload)
	}
	return &model.WebhookEvent{
		ID:             model.WebhookEventID(r.ID),
		Kind:           types.EventKind(r.Kind),
		Object:         r.Object,
		PageID:         r.PageID,
		FormID:         r.FormID,
		LeadgenID:      r.LeadgenID,
		SenderID:       r.SenderID,
		MessageText:    r.MessageText,
		Payload:        payload,
		SignatureValid: r.SignatureValid,
		DeliveryID:     r.DeliveryID,
		ReceivedAt:     r.ReceivedAt,
	}
}

type publishJobRecord struct {
	bun.BaseModel `bun:"table:publish_jobs,alias:pj"`

	ID             string    `bun:"id,pk"`
	IdempotencyKey string    `bun:"idempotency_key,notnull"`
	ConnectionID   string    `bun:"connection_id,notnull"`
	UserID         string    `bun:"user_id,notnull"`
	Platform       string    `bun:"platform,notnull"`
	AccountID      string    `bun:"account_id,notnull"`
	ImageURL       string    `bun:"image_url,notnull"`
	Caption        string    `bun:"caption,notnull"`
	State          string    `bun:"state,notnull"`
	ContainerID    string    `bun:"container_id,notnull"`
	PostID         string    `bun:"post_id,notnull"`
	FailedPhase    string    `bun:"failed_phase,notnull"`
	Error          string    `bun:"error,notnull"`
	CreatedAt      time.Time `bun:"created_at,notnull"`
	UpdatedAt      time.Time `bun:"updated_at,notnull"`
}

func newPublishJobRecord(job *model.PublishJob) *publishJobRecord {
	return &publishJobRecord{
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
		FailedPhase:    job.FailedPhase.String(),
		Error:          job.Error,
		CreatedAt:      job.CreatedAt.UTC(),
		UpdatedAt:      job.UpdatedAt.UTC(),
	}
}

func (r *publishJobRecord) toDomain() *model.PublishJob {
	return &model.PublishJob{
		ID:             model.PublishJobID(r.ID),
		IdempotencyKey: r.IdempotencyKey,
		ConnectionID:   model.ConnectionID(r.ConnectionID),
		UserID:         r.UserID,
		Platform:       types.Platform(r.Platform),
		AccountID:      r.AccountID,
		Content: model.PublishContent{
			ImageURL: r.ImageURL,
			Caption:  r.Caption,
		},
		State:       types.PublishState(r.State),
		ContainerID: r.ContainerID,
		PostID:      r.PostID,
		FailedPhase: types.PublishPhase(r.FailedPhase),
		Error:       r.Error,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

type userRecord struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID    string `bun:"id,pk"`
	Email string `bun:"email,notnull"`
	Name  string `bun:"name,notnull"`
}

type usageRecord struct {
	bun.BaseModel `bun:"table:usage_records,alias:ur"`

	ID        string    `bun:"id,pk"`
	UserID    string    `bun:"user_id,notnull"`
	Platform  string    `bun:"platform,notnull"`
	Action    string    `bun:"action,notnull"`
	JobID     string    `bun:"job_id,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}
