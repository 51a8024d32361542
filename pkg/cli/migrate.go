package cli

import (
	"context"

	"github.com/m-mizutani/fireconf"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/socialink/pkg/cli/config"
	"github.com/secmon-lab/socialink/pkg/repository/firestore"
	"github.com/secmon-lab/socialink/pkg/utils/logging"
	"github.com/secmon-lab/socialink/pkg/utils/safe"
	"github.com/urfave/cli/v3"
)

func cmdMigrate() *cli.Command {
	var repoCfg config.Repository
	var dryRun bool

	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:        "dry-run",
			Usage:       "Preview changes without applying",
			Destination: &dryRun,
		},
	}
	flags = append(flags, repoCfg.Flags()...)

	return &cli.Command{
		Name:    "migrate",
		Aliases: []string{"m"},
		Usage:   "Migrate Firestore indexes or SQL schema",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logging.Default().Info("Migrate configuration",
				"repository", repoCfg,
				"dryRun", dryRun)

			switch repoCfg.Backend() {
			case config.BackendFirestore:
				return migrateFirestore(ctx, &repoCfg, dryRun)
			case config.BackendSQL:
				return migrateSQL(ctx, &repoCfg, dryRun)
			case config.BackendMemory:
				logging.Default().Info("Memory backend needs no migration")
				return nil
			default:
				return goerr.Wrap(config.ErrInvalidConfig, "invalid repository backend", goerr.V("backend", repoCfg.Backend()))
			}
		},
	}
}

func migrateFirestore(ctx context.Context, repoCfg *config.Repository, dryRun bool) error {
	logger := logging.Default()
	if repoCfg.ProjectID() == "" {
		return goerr.Wrap(config.ErrMissingFlag, "firestore-project-id is required", goerr.V(config.FlagKey, "firestore-project-id"))
	}

	indexConfig := firestore.Indexes(repoCfg.CollectionPrefix())

	client, err := fireconf.NewClient(ctx, repoCfg.ProjectID(), repoCfg.DatabaseID())
	if err != nil {
		return goerr.Wrap(err, "failed to create fireconf client")
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Error("failed to close fireconf client", "error", err.Error())
		}
	}()

	if !dryRun {
		logger.Info("Applying migrations")
		if err := client.Migrate(ctx, indexConfig); err != nil {
			return goerr.Wrap(err, "failed to apply migrations")
		}
		logger.Info("Migrations applied successfully")
		return nil
	}

	logger.Info("Dry run mode - previewing changes")
	plan, err := client.GetMigrationPlan(ctx, indexConfig)
	if err != nil {
		return goerr.Wrap(err, "failed to create migration plan")
	}

	if len(plan.Steps) == 0 {
		logger.Info("No changes required")
		return nil
	}

	for _, step := range plan.Steps {
		logger.Info("Migration step",
			"collection", step.Collection,
			"operation", step.Operation,
			"description", step.Description,
			"destructive", step.Destructive)
	}
	return nil
}

func migrateSQL(ctx context.Context, repoCfg *config.Repository, dryRun bool) error {
	store, err := repoCfg.OpenSQL()
	if err != nil {
		return err
	}
	defer safe.Close(ctx, store)

	if dryRun {
		logging.Default().Info("Dry run mode - tables and indexes would be created if missing")
		return nil
	}

	if err := store.Migrate(ctx); err != nil {
		return goerr.Wrap(err, "failed to migrate sql schema")
	}
	logging.Default().Info("SQL schema migrated successfully")
	return nil
}
