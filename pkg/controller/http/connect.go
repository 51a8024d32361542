package http

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/socialink/pkg/domain/model"
	"github.com/secmon-lab/socialink/pkg/domain/model/auth"
	"github.com/secmon-lab/socialink/pkg/domain/types"
	"github.com/secmon-lab/socialink/pkg/usecase"
	"github.com/secmon-lab/socialink/pkg/utils/errutil"
	"github.com/secmon-lab/socialink/pkg/utils/logging"
)

type connectionsResponse struct {
	Connections []model.ConnectionSummary `json:"connections"`
}

type linkRefreshTokenRequest struct {
	Token string `json:"token"`
}

type linkRefreshTokenResponse struct {
	Success bool                    `json:"success"`
	Account model.ConnectionSummary `json:"account"`
}

type retryDiscoveryResponse struct {
	Success     bool                      `json:"success"`
	Connections []model.ConnectionSummary `json:"connections"`
}

func summaries(conns []*model.Connection) []model.ConnectionSummary {
	out := make([]model.ConnectionSummary, len(conns))
	for i, c := range conns {
		out[i] = c.Summary()
	}
	return out
}

// connectStartHandler redirects the browser to the provider consent screen
func connectStartHandler(uc *usecase.ConnectUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := auth.FromContext(r.Context())
		platform := types.Platform(chi.URLParam(r, "platform"))

		authURL, err := uc.AuthorizationURL(r.Context(), platform, session.UserID)
		if err != nil {
			writeError(r.Context(), w, err)
			return
		}
		http.Redirect(w, r, authURL, http.StatusTemporaryRedirect)
	}
}

// dashboardRedirect appends a single marker to the dashboard URL
func dashboardRedirect(dashboardURL, key string, platform types.Platform) string {
	u, err := url.Parse(dashboardURL)
	if err != nil {
		return "/?" + key + "=" + url.QueryEscape(platform.String())
	}
	q := u.Query()
	q.Set(key, platform.String())
	u.RawQuery = q.Encode()
	return u.String()
}

// connectCallbackHandler completes the authorization and always answers with a
// redirect. Failures are logged and only surface as an error marker.
func connectCallbackHandler(uc *usecase.ConnectUseCase, dashboardURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		platform := types.Platform(chi.URLParam(r, "platform"))
		q := r.URL.Query()

		if reason := q.Get("error"); reason != "" {
			logging.From(ctx).Info("authorization denied by user",
				"platform", platform, "error", reason, "error_reason", q.Get("error_reason"))
			http.Redirect(w, r, dashboardRedirect(dashboardURL, "error", platform), http.StatusTemporaryRedirect)
			return
		}

		result, err := uc.HandleCallback(ctx, platform, q.Get("code"), q.Get("state"))
		if err != nil {
			errutil.Handle(ctx, err, "authorization callback failed")
			http.Redirect(w, r, dashboardRedirect(dashboardURL, "error", platform), http.StatusTemporaryRedirect)
			return
		}

		logging.From(ctx).Info("authorization completed",
			"platform", platform, "user_id", result.UserID, "accounts", len(result.Connections))
		http.Redirect(w, r, dashboardRedirect(dashboardURL, "connected", platform), http.StatusTemporaryRedirect)
	}
}

func disconnectHandler(uc *usecase.ConnectUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := auth.FromContext(r.Context())
		platform := types.Platform(chi.URLParam(r, "platform"))

		if err := uc.Disconnect(r.Context(), session.UserID, platform); err != nil {
			writeError(r.Context(), w, err)
			return
		}
		writeJSON(r.Context(), w, http.StatusOK, successResponse{Success: true})
	}
}

func retryDiscoveryHandler(uc *usecase.ConnectUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := auth.FromContext(r.Context())
		platform := types.Platform(chi.URLParam(r, "platform"))

		result, err := uc.RetryDiscovery(r.Context(), session.UserID, platform)
		if err != nil {
			writeError(r.Context(), w, err)
			return
		}
		writeJSON(r.Context(), w, http.StatusOK, retryDiscoveryResponse{
			Success:     true,
			Connections: summaries(result.Connections),
		})
	}
}

func linkRefreshTokenHandler(uc *usecase.ConnectUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := auth.FromContext(r.Context())

		var req linkRefreshTokenRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(r.Context(), w, goerr.Wrap(usecase.ErrInvalidInput, "failed to decode request", goerr.V("error", err.Error())))
			return
		}

		conn, err := uc.LinkRefreshAccount(r.Context(), session.UserID, req.Token)
		if err != nil {
			writeError(r.Context(), w, err)
			return
		}
		writeJSON(r.Context(), w, http.StatusOK, linkRefreshTokenResponse{
			Success: true,
			Account: conn.Summary(),
		})
	}
}

func connectionsHandler(uc *usecase.ConnectUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := auth.FromContext(r.Context())
		platform := types.Platform(r.URL.Query().Get("platform"))

		list, err := uc.ListConnections(r.Context(), session.UserID, platform)
		if err != nil {
			writeError(r.Context(), w, err)
			return
		}
		writeJSON(r.Context(), w, http.StatusOK, connectionsResponse{Connections: list})
	}
}
