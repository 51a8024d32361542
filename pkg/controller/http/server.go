package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/secmon-lab/socialink/pkg/service/grant"
	"github.com/secmon-lab/socialink/pkg/usecase"
	"github.com/secmon-lab/socialink/pkg/utils/logging"
)

const (
	defaultDashboardURL = "/"

	// Meta caps webhook payloads well below this
	maxWebhookBodySize = 4 << 20
)

type Server struct {
	router        *chi.Mux
	uc            *usecase.UseCases
	signer        *grant.Signer
	dashboardURL  string
	cookieName    string
	webhookLimit  int64
	enableWebhook bool
}

type Options func(*Server)

// WithDashboardURL sets where the browser lands after an authorization callback
func WithDashboardURL(u string) Options {
	return func(s *Server) {
		s.dashboardURL = u
	}
}

// WithSessionCookie sets the cookie carrying the session token
func WithSessionCookie(name string) Options {
	return func(s *Server) {
		s.cookieName = name
	}
}

// WithWebhook enables or disables the /hooks/meta endpoints
func WithWebhook(enabled bool) Options {
	return func(s *Server) {
		s.enableWebhook = enabled
	}
}

// WithWebhookBodyLimit caps the accepted webhook body size
func WithWebhookBodyLimit(n int64) Options {
	return func(s *Server) {
		s.webhookLimit = n
	}
}

func New(uc *usecase.UseCases, signer *grant.Signer, opts ...Options) *Server {
	r := chi.NewRouter()

	s := &Server{
		router:        r,
		uc:            uc,
		signer:        signer,
		dashboardURL:  defaultDashboardURL,
		cookieName:    defaultSessionCookie,
		webhookLimit:  maxWebhookBodySize,
		enableWebhook: true,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(accessLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", healthHandler)

	// Webhook endpoints authenticate by verify token and signature, not by session
	if s.enableWebhook {
		r.Route("/hooks/meta", func(r chi.Router) {
			r.Get("/", webhookVerifyHandler(uc.Webhook))
			r.Post("/", webhookIngestHandler(uc.Webhook, s.webhookLimit))
		})
	}

	r.Route("/api", func(r chi.Router) {
		// The provider redirects here; the signed state identifies the user
		r.Get("/connect/{platform}/callback", connectCallbackHandler(uc.Connect, s.dashboardURL))

		r.Post("/admin/impersonate", impersonateHandler(uc.Impersonate))

		r.Group(func(r chi.Router) {
			r.Use(sessionMiddleware(signer, s.cookieName))

			r.Post("/connect/instagram/refresh-token", linkRefreshTokenHandler(uc.Connect))
			r.Get("/connect/{platform}", connectStartHandler(uc.Connect))
			r.Delete("/connect/{platform}", disconnectHandler(uc.Connect))
			r.Post("/connect/{platform}/retry", retryDiscoveryHandler(uc.Connect))
			r.Get("/connections", connectionsHandler(uc.Connect))
			r.Post("/publish", publishHandler(uc.Publish))
		})
	})

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
}

// requestLogger attaches a logger carrying the request ID to the request context
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := logging.Default().With("request_id", middleware.GetReqID(r.Context()))
		next.ServeHTTP(w, r.WithContext(logging.With(r.Context(), logger)))
	})
}

// accessLogger is a middleware that logs HTTP requests. Query strings are
// omitted because callbacks carry authorization codes.
func accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			logging.From(r.Context()).Info("access",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
				"user_agent", r.UserAgent(),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
