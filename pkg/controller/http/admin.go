package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/socialink/pkg/usecase"
)

type impersonateRequest struct {
	UserID string `json:"user_id"`
}

type impersonateResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// impersonateHandler issues an impersonation grant. The operator authenticates
// with the X-Admin-Secret header; the token is returned once and never stored.
func impersonateHandler(uc *usecase.ImpersonateUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req impersonateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(ctx, w, goerr.Wrap(usecase.ErrInvalidInput, "failed to decode impersonate request", goerr.V("error", err.Error())))
			return
		}

		g, err := uc.Issue(ctx, r.Header.Get("X-Admin-Secret"), req.UserID)
		if err != nil {
			writeError(ctx, w, err)
			return
		}

		w.Header().Set("Cache-Control", "no-store")
		writeJSON(ctx, w, http.StatusOK, impersonateResponse{
			Token:     g.Token,
			ExpiresAt: g.ExpiresAt,
		})
	}
}
