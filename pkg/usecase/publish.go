package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/socialink/pkg/domain/interfaces"
	"github.com/secmon-lab/socialink/pkg/domain/model"
	"github.com/secmon-lab/socialink/pkg/domain/types"
	"github.com/secmon-lab/socialink/pkg/service/graph"
	"github.com/secmon-lab/socialink/pkg/utils/errutil"
	"github.com/secmon-lab/socialink/pkg/utils/logging"
)

// PublishRequest identifies the target account and the content to push
type PublishRequest struct {
	UserID         string
	Platform       types.Platform
	AccountID      string
	Content        model.PublishContent
	IdempotencyKey string
}

func (r PublishRequest) validate() error {
	if r.UserID == "" {
		return goerr.Wrap(ErrInvalidInput, "user ID is required")
	}
	if !r.Platform.IsValid() {
		return goerr.Wrap(ErrInvalidInput, "unknown platform", goerr.V(PlatformKey, r.Platform))
	}
	if r.AccountID == "" {
		return goerr.Wrap(ErrInvalidInput, "account ID is required")
	}
	if err := r.Content.Validate(); err != nil {
		return goerr.Wrap(errors.Join(ErrInvalidInput, err), "invalid content")
	}
	if r.Platform.IsTwoPhase() && r.Content.ImageURL == "" {
		return goerr.Wrap(ErrInvalidInput, "image URL is required for media platforms", goerr.V(PlatformKey, r.Platform))
	}
	return nil
}

// sameRequest reports whether job was created for the same target and content as req
func sameRequest(job *model.PublishJob, req PublishRequest) bool {
	return job.Platform == req.Platform &&
		job.AccountID == req.AccountID &&
		job.Content == req.Content
}

// PublishUseCase pushes content to a linked account. It never retries; the
// caller decides with its idempotency key.
type PublishUseCase struct {
	repo  interfaces.Repository
	graph graph.Service
	now   func() time.Time
}

// PublishOption is a functional option for PublishUseCase
type PublishOption func(*PublishUseCase)

// WithPublishClock replaces the time source, for tests
func WithPublishClock(now func() time.Time) PublishOption {
	return func(uc *PublishUseCase) {
		uc.now = now
	}
}

func NewPublishUseCase(repo interfaces.Repository, graphSvc graph.Service, opts ...PublishOption) *PublishUseCase {
	uc := &PublishUseCase{
		repo:  repo,
		graph: graphSvc,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Publish runs one attempt and returns the job in its terminal state. On a
// step failure both the Failed job and a *PublishStepError are returned.
func (uc *PublishUseCase) Publish(ctx context.Context, req PublishRequest) (*model.PublishJob, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	if req.IdempotencyKey != "" {
		prev, err := uc.repo.PublishJob().FindByIdempotencyKey(ctx, req.UserID, req.IdempotencyKey)
		switch {
		case err == nil && !sameRequest(prev, req):
			return nil, goerr.Wrap(ErrInvalidInput, "idempotency key was used for another request",
				goerr.V(UserIDKey, req.UserID), goerr.V(JobIDKey, prev.ID))
		case err == nil && prev.State == types.PublishStatePublished:
			logging.From(ctx).Info("publish replayed by idempotency key",
				"job_id", prev.ID, "idempotency_key", req.IdempotencyKey)
			return prev, nil
		case err != nil && !errors.Is(err, interfaces.ErrNotFound):
			return nil, goerr.Wrap(err, "failed to look up idempotency key", goerr.V(UserIDKey, req.UserID))
		}
	}

	connID := model.NewConnectionID(req.UserID, req.Platform, req.AccountID)
	conn, err := uc.repo.Connection().Get(ctx, connID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, goerr.Wrap(ErrNotConnected, "no connection for target account",
				goerr.V(UserIDKey, req.UserID), goerr.V(PlatformKey, req.Platform), goerr.V(AccountIDKey, req.AccountID))
		}
		return nil, goerr.Wrap(err, "failed to get connection", goerr.V(UserIDKey, req.UserID))
	}

	job := model.NewPublishJob(conn, req.Content, req.IdempotencyKey, uc.now())
	if err := uc.save(ctx, job); err != nil {
		return nil, err
	}

	content := graph.PostContent{ImageURL: req.Content.ImageURL, Caption: req.Content.Caption}
	if conn.Platform.IsTwoPhase() {
		err = uc.publishTwoPhase(ctx, conn, job, content)
	} else {
		err = uc.publishSingle(ctx, conn, job, content)
	}
	if err != nil {
		return job, err
	}

	record := model.NewUsageRecord(job.UserID, job.Platform, model.UsageActionPublish, job.ID, uc.now())
	if err := uc.repo.Usage().Record(ctx, record); err != nil {
		errutil.Handle(ctx, err, "failed to record publish usage")
	}

	logging.From(ctx).Info("content published",
		"job_id", job.ID, "platform", job.Platform, "account_id", job.AccountID, "post_id", job.PostID)
	return job, nil
}

func (uc *PublishUseCase) publishSingle(ctx context.Context, conn *model.Connection, job *model.PublishJob, content graph.PostContent) error {
	postID, err := uc.graph.CreatePost(ctx, conn.ExternalAccountID, conn.AccessToken, content)
	if err != nil {
		return uc.fail(ctx, job, types.PublishPhasePost, err)
	}
	if err := job.MarkPublished(postID, uc.now()); err != nil {
		return err
	}
	return uc.save(ctx, job)
}

func (uc *PublishUseCase) publishTwoPhase(ctx context.Context, conn *model.Connection, job *model.PublishJob, content graph.PostContent) error {
	containerID, err := uc.graph.CreateContainer(ctx, conn.Platform, conn.ExternalAccountID, conn.AccessToken, content)
	if err != nil {
		return uc.fail(ctx, job, types.PublishPhaseContainer, err)
	}
	if err := job.MarkContainerCreated(containerID, uc.now()); err != nil {
		return err
	}
	if err := uc.save(ctx, job); err != nil {
		return err
	}

	postID, err := uc.graph.PublishContainer(ctx, conn.Platform, conn.ExternalAccountID, conn.AccessToken, containerID)
	if err != nil {
		return uc.fail(ctx, job, types.PublishPhaseConfirm, err)
	}
	if err := job.MarkPublished(postID, uc.now()); err != nil {
		return err
	}
	return uc.save(ctx, job)
}

// fail records a step failure. A caller-cancelled attempt keeps the last completed state.
func (uc *PublishUseCase) fail(ctx context.Context, job *model.PublishJob, phase types.PublishPhase, cause error) error {
	if errors.Is(cause, context.DeadlineExceeded) {
		cause = errors.Join(ErrTimeout, cause)
	}
	stepErr := &PublishStepError{Phase: phase, Err: cause}
	wrapped := goerr.Wrap(stepErr, "publish step failed",
		goerr.V(JobIDKey, job.ID), goerr.V("phase", phase), goerr.V(PlatformKey, job.Platform))

	if ctx.Err() == context.Canceled {
		return wrapped
	}

	if err := job.MarkFailed(phase, cause, uc.now()); err != nil {
		return goerr.Wrap(err, "failed to mark publish job failed", goerr.V(JobIDKey, job.ID))
	}
	if err := uc.save(ctx, job); err != nil {
		errutil.Handle(ctx, err, "failed to save failed publish job")
	}
	return wrapped
}

func (uc *PublishUseCase) save(ctx context.Context, job *model.PublishJob) error {
	if err := uc.repo.PublishJob().Put(ctx, job); err != nil {
		return goerr.Wrap(err, "failed to save publish job", goerr.V(JobIDKey, job.ID), goerr.V("state", job.State))
	}
	return nil
}
