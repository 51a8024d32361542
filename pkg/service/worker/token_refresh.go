package worker

import (
	"context"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/socialink/pkg/domain/interfaces"
	"github.com/secmon-lab/socialink/pkg/domain/model"
	"github.com/secmon-lab/socialink/pkg/domain/types"
	"github.com/secmon-lab/socialink/pkg/service/graph"
	"github.com/secmon-lab/socialink/pkg/utils/logging"
)

// DefaultRefreshWindow is how long before expiry a long-lived token gets refreshed
const DefaultRefreshWindow = 7 * 24 * time.Hour

// TokenRefreshWorker keeps long-lived Instagram tokens alive by refreshing them
// before they expire.
//
// Architecture assumptions:
// - Single server instance (no distributed locking)
// - A connection deleted or re-linked during a refresh keeps that newer state
type TokenRefreshWorker struct {
	repo     interfaces.Repository
	graph    graph.Service
	interval time.Duration
	window   time.Duration
	now      func() time.Time
	stopCh   chan struct{}
	doneCh   chan struct{}
}

type TokenRefreshOption func(*TokenRefreshWorker)

// WithRefreshWindow sets how close to expiry a token must be before it is refreshed
func WithRefreshWindow(d time.Duration) TokenRefreshOption {
	return func(w *TokenRefreshWorker) { w.window = d }
}

// WithRefreshClock replaces the time source, for tests
func WithRefreshClock(now func() time.Time) TokenRefreshOption {
	return func(w *TokenRefreshWorker) { w.now = now }
}

// NewTokenRefreshWorker creates a new worker for refreshing Instagram tokens
func NewTokenRefreshWorker(repo interfaces.Repository, graphSvc graph.Service, interval time.Duration, opts ...TokenRefreshOption) *TokenRefreshWorker {
	w := &TokenRefreshWorker{
		repo:     repo,
		graph:    graphSvc,
		interval: interval,
		window:   DefaultRefreshWindow,
		now:      time.Now,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins the background refresh loop without blocking server startup
func (w *TokenRefreshWorker) Start(ctx context.Context) error {
	logging.Default().Info("Token refresh worker starting",
		"interval", w.interval.String(),
		"window", w.window.String())

	go w.run(ctx)

	return nil
}

// Stop signals the worker to stop and waits for completion
func (w *TokenRefreshWorker) Stop() {
	logging.Default().Info("Token refresh worker stopping")
	close(w.stopCh)
	<-w.doneCh
	logging.Default().Info("Token refresh worker stopped")
}

func (w *TokenRefreshWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	if _, err := w.RefreshOnce(ctx); err != nil {
		logging.Default().Error("Initial token refresh failed (will retry next interval)",
			"error", err.Error())
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := w.RefreshOnce(ctx); err != nil {
				logging.Default().Error("Token refresh failed (will retry next interval)",
					"error", err.Error())
			}

		case <-w.stopCh:
			return

		case <-ctx.Done():
			logging.Default().Info("Token refresh worker context cancelled")
			return
		}
	}
}

// RefreshOnce performs a single refresh cycle and returns the number of refreshed
// connections. A failure on one connection does not stop the others.
func (w *TokenRefreshWorker) RefreshOnce(ctx context.Context) (int, error) {
	startTime := w.now()

	conns, err := w.repo.Connection().ListByPlatform(ctx, types.PlatformInstagram)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to list instagram connections")
	}

	refreshed := 0
	for _, conn := range conns {
		if !conn.TokenExpiresAt.IsZero() && conn.TokenExpiresAt.Sub(startTime) > w.window {
			continue
		}

		token, err := w.graph.RefreshInstagramToken(ctx, conn.AccessToken)
		if err != nil {
			logging.Default().Warn("Failed to refresh instagram token",
				"connection_id", conn.ID,
				"user_id", conn.UserID,
				"error", err.Error())
			continue
		}

		err = w.repo.Connection().RotateToken(ctx, &model.TokenRotation{
			ID:          conn.ID,
			Previous:    conn.AccessToken,
			AccessToken: token.AccessToken,
			ExpiresAt:   token.ExpiresAt,
			UpdatedAt:   w.now(),
		})
		if errors.Is(err, interfaces.ErrNotFound) || errors.Is(err, interfaces.ErrConflict) {
			logging.Default().Info("Connection changed during token refresh, skipped",
				"connection_id", conn.ID,
				"user_id", conn.UserID,
				"reason", err.Error())
			continue
		}
		if err != nil {
			return refreshed, goerr.Wrap(err, "failed to save refreshed token",
				goerr.V("connection_id", conn.ID))
		}
		refreshed++
	}

	logging.Default().Info("Token refresh completed",
		"candidates", len(conns),
		"refreshed", refreshed,
		"duration", time.Since(startTime).String())

	return refreshed, nil
}
