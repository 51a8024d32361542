package http

import (
	"net/http"
	"strings"

	"github.com/secmon-lab/socialink/pkg/domain/model/auth"
	"github.com/secmon-lab/socialink/pkg/service/grant"
	"github.com/secmon-lab/socialink/pkg/utils/logging"
)

const defaultSessionCookie = "socialink_session"

// sessionToken reads a bearer token first and falls back to the session cookie
func sessionToken(r *http.Request, cookieName string) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if c, err := r.Cookie(cookieName); err == nil {
		return c.Value
	}
	return ""
}

// sessionMiddleware validates the session or impersonation token for protected requests
func sessionMiddleware(signer *grant.Signer, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := sessionToken(r, cookieName)
			if raw == "" {
				writeJSON(r.Context(), w, http.StatusUnauthorized, errorResponse{Error: "Authentication required"})
				return
			}

			session, err := signer.VerifySession(raw)
			if err != nil {
				logging.From(r.Context()).Info("invalid session token", "error", err.Error())
				writeJSON(r.Context(), w, http.StatusUnauthorized, errorResponse{Error: "Invalid authentication token"})
				return
			}

			logger := logging.From(r.Context()).With("user_id", session.UserID, "impersonated", session.Impersonated)
			ctx := auth.ContextWithSession(r.Context(), session)
			ctx = logging.With(ctx, logger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
