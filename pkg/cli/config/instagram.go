package config

import (
	"log/slog"
	"time"

	"github.com/secmon-lab/socialink/pkg/domain/interfaces"
	"github.com/secmon-lab/socialink/pkg/service/graph"
	"github.com/secmon-lab/socialink/pkg/service/worker"
	"github.com/urfave/cli/v3"
)

// Instagram holds CLI flags for the long-lived token refresh worker
type Instagram struct {
	refreshInterval time.Duration
	refreshWindow   time.Duration
}

func (x *Instagram) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.DurationFlag{
			Name:        "instagram-refresh-interval",
			Usage:       "How often Instagram tokens are checked for refresh. 0 disables the worker",
			Value:       6 * time.Hour,
			Category:    "Instagram",
			Sources:     cli.EnvVars("SOCIALINK_INSTAGRAM_REFRESH_INTERVAL"),
			Destination: &x.refreshInterval,
		},
		&cli.DurationFlag{
			Name:        "instagram-refresh-window",
			Usage:       "Refresh tokens expiring within this window",
			Value:       worker.DefaultRefreshWindow,
			Category:    "Instagram",
			Sources:     cli.EnvVars("SOCIALINK_INSTAGRAM_REFRESH_WINDOW"),
			Destination: &x.refreshWindow,
		},
	}
}

func (x Instagram) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Duration("refresh_interval", x.refreshInterval),
		slog.Duration("refresh_window", x.refreshWindow),
	)
}

// Configure returns nil when the worker is disabled
func (x *Instagram) Configure(repo interfaces.Repository, graphSvc graph.Service) *worker.TokenRefreshWorker {
	if x.refreshInterval <= 0 {
		return nil
	}
	var opts []worker.TokenRefreshOption
	if x.refreshWindow > 0 {
		opts = append(opts, worker.WithRefreshWindow(x.refreshWindow))
	}
	return worker.NewTokenRefreshWorker(repo, graphSvc, x.refreshInterval, opts...)
}
