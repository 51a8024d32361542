package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/socialink/pkg/domain/model"
	"github.com/secmon-lab/socialink/pkg/domain/model/auth"
	"github.com/secmon-lab/socialink/pkg/domain/types"
	"github.com/secmon-lab/socialink/pkg/usecase"
	"github.com/secmon-lab/socialink/pkg/utils/errutil"
)

type publishRequest struct {
	Platform       types.Platform `json:"platform"`
	AccountID      string         `json:"account_id"`
	ImageURL       string         `json:"image_url"`
	Caption        string         `json:"caption"`
	IdempotencyKey string         `json:"idempotency_key"`
}

type publishResponse struct {
	Success bool               `json:"success"`
	JobID   string             `json:"job_id"`
	State   types.PublishState `json:"state"`
	PostID  string             `json:"post_id,omitempty"`
}

type publishErrorResponse struct {
	Success   bool               `json:"success"`
	Error     string             `json:"error"`
	JobID     string             `json:"job_id,omitempty"`
	State     types.PublishState `json:"state,omitempty"`
	Phase     types.PublishPhase `json:"phase,omitempty"`
	Retriable bool               `json:"retriable"`
}

func publishHandler(uc *usecase.PublishUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		session := auth.FromContext(ctx)

		var req publishRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(ctx, w, goerr.Wrap(usecase.ErrInvalidInput, "failed to decode publish request", goerr.V("error", err.Error())))
			return
		}
		if key := r.Header.Get("Idempotency-Key"); key != "" {
			req.IdempotencyKey = key
		}

		job, err := uc.Publish(ctx, usecase.PublishRequest{
			UserID:         session.UserID,
			Platform:       req.Platform,
			AccountID:      req.AccountID,
			Content:        model.PublishContent{ImageURL: req.ImageURL, Caption: req.Caption},
			IdempotencyKey: req.IdempotencyKey,
		})

		var stepErr *usecase.PublishStepError
		switch {
		case err == nil:
			writeJSON(ctx, w, http.StatusOK, publishResponse{
				Success: true,
				JobID:   job.ID.String(),
				State:   job.State,
				PostID:  job.PostID,
			})

		case errors.As(err, &stepErr):
			errutil.Handle(ctx, err, "publish failed")
			resp := publishErrorResponse{
				Error:     "publish failed at " + stepErr.Phase.String(),
				Phase:     stepErr.Phase,
				Retriable: usecase.IsRetriable(err),
			}
			if job != nil {
				resp.JobID = job.ID.String()
				resp.State = job.State
			}
			writeJSON(ctx, w, http.StatusInternalServerError, resp)

		default:
			writeError(ctx, w, err)
		}
	}
}
