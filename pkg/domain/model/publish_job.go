package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/socialink/pkg/domain/types"
)

// ErrInvalidTransition is returned when a publish job is moved to a state it cannot reach
var ErrInvalidTransition = goerr.New("invalid publish state transition")

// PublishJobID is a UUID-based identifier for PublishJob
type PublishJobID string

// NewPublishJobID generates a new UUID v4 PublishJobID
func NewPublishJobID() PublishJobID {
	return PublishJobID(uuid.New().String())
}

func (id PublishJobID) String() string {
	return string(id)
}

// PublishContent is the content pushed to a platform
type PublishContent struct {
	ImageURL string
	Caption  string
}

// Validate checks that there is something to publish
func (c PublishContent) Validate() error {
	if c.ImageURL == "" && c.Caption == "" {
		return goerr.Wrap(ErrMissingRequired, "image URL or caption is required")
	}
	return nil
}

// PublishJob is one attempt to push content to a platform. It references the
// connection by ID and never holds its credential.
type PublishJob struct {
	ID             PublishJobID
	IdempotencyKey string
	ConnectionID   ConnectionID
	UserID         string
	Platform       types.Platform
	AccountID      string
	Content        PublishContent
	State          types.PublishState
	ContainerID    string
	PostID         string
	FailedPhase    types.PublishPhase
	Error          string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewPublishJob creates a job in Draft state for the connection
func NewPublishJob(conn *Connection, content PublishContent, idempotencyKey string, now time.Time) *PublishJob {
	return &PublishJob{
		ID:             NewPublishJobID(),
		IdempotencyKey: idempotencyKey,
		ConnectionID:   conn.ID,
		UserID:         conn.UserID,
		Platform:       conn.Platform,
		AccountID:      conn.ExternalAccountID,
		Content:        content,
		State:          types.PublishStateDraft,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func (j *PublishJob) transition(next types.PublishState, now time.Time) error {
	if !j.State.CanTransitionTo(next) {
		return goerr.Wrap(ErrInvalidTransition, "cannot transition publish job",
			goerr.V("job_id", j.ID), goerr.V("from", j.State), goerr.V("to", next))
	}
	j.State = next
	j.UpdatedAt = now
	return nil
}

// MarkContainerCreated records a successful media-container creation
func (j *PublishJob) MarkContainerCreated(containerID string, now time.Time) error {
	if err := j.transition(types.PublishStateContainerCreated, now); err != nil {
		return err
	}
	j.ContainerID = containerID
	return nil
}

// MarkPublished records a successful post. Two-phase jobs must have passed ContainerCreated.
func (j *PublishJob) MarkPublished(postID string, now time.Time) error {
	if j.Platform.IsTwoPhase() && j.State != types.PublishStateContainerCreated {
		return goerr.Wrap(ErrInvalidTransition, "two-phase job must have a container before publishing",
			goerr.V("job_id", j.ID), goerr.V("state", j.State))
	}
	if err := j.transition(types.PublishStatePublished, now); err != nil {
		return err
	}
	j.PostID = postID
	return nil
}

// MarkFailed records a failure at the given phase
func (j *PublishJob) MarkFailed(phase types.PublishPhase, cause error, now time.Time) error {
	if err := j.transition(types.PublishStateFailed, now); err != nil {
		return err
	}
	j.FailedPhase = phase
	if cause != nil {
		j.Error = cause.Error()
	}
	return nil
}
