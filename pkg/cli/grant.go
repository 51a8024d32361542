package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/socialink/pkg/cli/config"
	"github.com/secmon-lab/socialink/pkg/usecase"
	"github.com/secmon-lab/socialink/pkg/utils/logging"
	"github.com/secmon-lab/socialink/pkg/utils/safe"
	"github.com/urfave/cli/v3"
)

func cmdGrant() *cli.Command {
	var userID string
	var sessionOnly bool
	var sessionTTL time.Duration
	var repoCfg config.Repository
	var sessionCfg config.Session
	var adminCfg config.Admin

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "user",
			Aliases:     []string{"u"},
			Usage:       "Target user ID",
			Required:    true,
			Destination: &userID,
		},
		&cli.BoolFlag{
			Name:        "session",
			Usage:       "Issue a regular session token instead of an impersonation grant (development only)",
			Destination: &sessionOnly,
		},
		&cli.DurationFlag{
			Name:        "session-ttl",
			Usage:       "Lifetime of a regular session token",
			Value:       24 * time.Hour,
			Destination: &sessionTTL,
		},
	}
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, sessionCfg.Flags()...)
	flags = append(flags, adminCfg.Flags()...)

	return &cli.Command{
		Name:    "grant",
		Aliases: []string{"g"},
		Usage:   "Issue an impersonation grant for a user",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			signer, err := sessionCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to configure session signer")
			}

			if sessionOnly {
				token, expiresAt, err := signer.IssueSession(userID, sessionTTL)
				if err != nil {
					return goerr.Wrap(err, "failed to issue session", goerr.V(usecase.UserIDKey, userID))
				}
				printToken("session", userID, token, expiresAt)
				return nil
			}

			if !adminCfg.Enabled() {
				return goerr.Wrap(config.ErrMissingFlag, "admin-secret is required to issue grants", goerr.V(config.FlagKey, "admin-secret"))
			}

			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer safe.Close(ctx, repo)

			opts := []usecase.Option{usecase.WithSigner(signer)}
			opts = append(opts, adminCfg.Options()...)
			uc := usecase.New(repo, opts...)

			g, err := uc.Impersonate.Issue(ctx, adminCfg.Secret(), userID)
			if err != nil {
				return err
			}

			logging.Default().Info("Impersonation grant issued",
				"grant_id", g.ID,
				"user_id", g.UserID,
				"expires_at", g.ExpiresAt)
			printToken("impersonation", g.UserID, g.Token, g.ExpiresAt)
			return nil
		},
	}
}

func printToken(kind, userID, token string, expiresAt time.Time) {
	label := color.New(color.FgCyan, color.Bold)
	_, _ = label.Fprintf(color.Output, "%s token for %s\n", kind, userID)
	_, _ = fmt.Fprintf(color.Output, "  expires: %s\n", expiresAt.Format(time.RFC3339))
	_, _ = color.New(color.FgGreen).Fprintln(color.Output, token)
}
