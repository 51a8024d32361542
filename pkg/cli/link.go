package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/socialink/pkg/cli/config"
	"github.com/secmon-lab/socialink/pkg/usecase"
	"github.com/secmon-lab/socialink/pkg/utils/safe"
	"github.com/urfave/cli/v3"
)

func cmdLink() *cli.Command {
	var userID string
	var token string
	var repoCfg config.Repository
	var metaCfg config.Meta

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "user",
			Aliases:     []string{"u"},
			Usage:       "User ID that owns the account",
			Required:    true,
			Destination: &userID,
		},
		&cli.StringFlag{
			Name:        "token",
			Usage:       "Long-lived Instagram access token",
			Required:    true,
			Sources:     cli.EnvVars("SOCIALINK_LINK_TOKEN"),
			Destination: &token,
		},
	}
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, metaCfg.Flags()...)

	return &cli.Command{
		Name:  "link",
		Usage: "Link an Instagram account from a long-lived token",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer safe.Close(ctx, repo)

			graphSvc, err := metaCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to configure Meta Graph API")
			}

			uc := usecase.New(repo, usecase.WithGraph(graphSvc))
			conn, err := uc.Connect.LinkRefreshAccount(ctx, userID, token)
			if err != nil {
				return err
			}

			_, _ = color.New(color.FgGreen, color.Bold).Fprintf(color.Output, "linked %s\n", conn.Platform)
			_, _ = fmt.Fprintf(color.Output, "  user:    %s\n  account: %s (%s)\n", conn.UserID, conn.ExternalAccountID, conn.ExternalAccountName)
			return nil
		},
	}
}
