package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/socialink/pkg/cli/config"
	httpctrl "github.com/secmon-lab/socialink/pkg/controller/http"
	"github.com/secmon-lab/socialink/pkg/service/worker"
	"github.com/secmon-lab/socialink/pkg/usecase"
	"github.com/secmon-lab/socialink/pkg/utils/async"
	"github.com/secmon-lab/socialink/pkg/utils/logging"
	"github.com/secmon-lab/socialink/pkg/utils/safe"
	"github.com/urfave/cli/v3"
)

func cmdServe() *cli.Command {
	var addr string
	var dashboardURL string
	var repoCfg config.Repository
	var metaCfg config.Meta
	var sessionCfg config.Session
	var adminCfg config.Admin
	var webhookCfg config.Webhook
	var archiveCfg config.Archive
	var instagramCfg config.Instagram

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("SOCIALINK_ADDR"),
			Destination: &addr,
		},
		&cli.StringFlag{
			Name:        "dashboard-url",
			Usage:       "Dashboard URL the OAuth callback redirects to",
			Value:       "/",
			Sources:     cli.EnvVars("SOCIALINK_DASHBOARD_URL"),
			Destination: &dashboardURL,
		},
	}

	// Add shared config flags
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, metaCfg.Flags()...)
	flags = append(flags, sessionCfg.Flags()...)
	flags = append(flags, adminCfg.Flags()...)
	flags = append(flags, webhookCfg.Flags()...)
	flags = append(flags, archiveCfg.Flags()...)
	flags = append(flags, instagramCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logging.Default().Info("Serve configuration",
				"addr", addr,
				"repository", repoCfg,
				"meta", metaCfg,
				"session", sessionCfg,
				"admin", adminCfg,
				"webhook", webhookCfg,
				"archive", archiveCfg,
				"instagram", instagramCfg,
			)

			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer safe.Close(ctx, repo)

			graphSvc, err := metaCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to configure Meta Graph API")
			}

			signer, err := sessionCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to configure session signer")
			}

			archiveSvc, archiveCloser, err := archiveCfg.Configure(ctx)
			if err != nil {
				return err
			}
			defer safe.Close(ctx, archiveCloser)

			ucOpts := []usecase.Option{
				usecase.WithGraph(graphSvc),
				usecase.WithSigner(signer),
				usecase.WithWebhookOptions(webhookCfg.UseCaseOptions(metaCfg.AppSecret())...),
			}
			ucOpts = append(ucOpts, adminCfg.Options()...)
			if archiveSvc != nil {
				ucOpts = append(ucOpts, usecase.WithArchive(archiveSvc))
			}
			if !adminCfg.Enabled() {
				logging.Default().Info("Admin secret not configured, impersonation is disabled")
			}

			uc := usecase.New(repo, ucOpts...)

			var refreshWorker *worker.TokenRefreshWorker
			if w := instagramCfg.Configure(repo, graphSvc); w != nil {
				refreshWorker = w
				if err := refreshWorker.Start(ctx); err != nil {
					return goerr.Wrap(err, "failed to start Instagram token refresh worker")
				}
			}

			httpOpts := []httpctrl.Options{
				httpctrl.WithDashboardURL(dashboardURL),
				httpctrl.WithSessionCookie(sessionCfg.CookieName()),
			}
			httpOpts = append(httpOpts, webhookCfg.ServerOptions()...)

			server := &http.Server{
				Addr:              addr,
				Handler:           httpctrl.New(uc, signer, httpOpts...),
				ReadHeaderTimeout: 30 * time.Second,
			}

			// Setup signal handling for graceful shutdown
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			errCh := make(chan error, 1)
			go func() {
				logging.Default().Info("Starting HTTP server", "addr", addr)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			select {
			case err := <-errCh:
				if refreshWorker != nil {
					refreshWorker.Stop()
				}
				return err
			case sig := <-sigCh:
				logging.Default().Info("Received shutdown signal", "signal", sig)

				if refreshWorker != nil {
					refreshWorker.Stop()
				}

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}

				// drain pending archive uploads
				if err := async.Wait(shutdownCtx); err != nil {
					logging.Default().Warn("Pending background tasks abandoned", "error", err.Error())
				}

				logging.Default().Info("Server shutdown completed")
				return nil
			}
		},
	}
}
