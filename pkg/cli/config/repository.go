package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/socialink/pkg/domain/interfaces"
	"github.com/secmon-lab/socialink/pkg/repository/firestore"
	"github.com/secmon-lab/socialink/pkg/repository/memory"
	"github.com/secmon-lab/socialink/pkg/repository/sqlstore"
	"github.com/secmon-lab/socialink/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

const (
	BackendFirestore = "firestore"
	BackendMemory    = "memory"
	BackendSQL       = "sql"
)

// Repository holds CLI flags for repository backend configuration
type Repository struct {
	backend          string
	projectID        string
	databaseID       string
	collectionPrefix string
	sqlDialect       string
	sqlDSN           string
	sqlMigrate       bool
}

// Flags returns CLI flags for repository configuration
func (r *Repository) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "repository-backend",
			Usage:       "Repository backend type (firestore, sql or memory)",
			Value:       BackendFirestore,
			Category:    "Repository",
			Sources:     cli.EnvVars("SOCIALINK_REPOSITORY_BACKEND"),
			Destination: &r.backend,
		},
		&cli.StringFlag{
			Name:        "firestore-project-id",
			Usage:       "Firestore Project ID (required when using firestore backend)",
			Category:    "Repository",
			Sources:     cli.EnvVars("SOCIALINK_FIRESTORE_PROJECT_ID"),
			Destination: &r.projectID,
		},
		&cli.StringFlag{
			Name:        "firestore-database-id",
			Usage:       "Firestore Database ID",
			Category:    "Repository",
			Sources:     cli.EnvVars("SOCIALINK_FIRESTORE_DATABASE_ID"),
			Destination: &r.databaseID,
		},
		&cli.StringFlag{
			Name:        "firestore-collection-prefix",
			Usage:       "Prefix for Firestore collection names",
			Category:    "Repository",
			Sources:     cli.EnvVars("SOCIALINK_FIRESTORE_COLLECTION_PREFIX"),
			Destination: &r.collectionPrefix,
		},
		&cli.StringFlag{
			Name:        "sql-dialect",
			Usage:       "SQL dialect (sqlite or postgres)",
			Value:       sqlstore.DialectSQLite,
			Category:    "Repository",
			Sources:     cli.EnvVars("SOCIALINK_SQL_DIALECT"),
			Destination: &r.sqlDialect,
		},
		&cli.StringFlag{
			Name:        "sql-dsn",
			Usage:       "SQL data source name (required when using sql backend)",
			Category:    "Repository",
			Sources:     cli.EnvVars("SOCIALINK_SQL_DSN"),
			Destination: &r.sqlDSN,
		},
		&cli.BoolFlag{
			Name:        "sql-auto-migrate",
			Usage:       "Create SQL tables on startup",
			Category:    "Repository",
			Sources:     cli.EnvVars("SOCIALINK_SQL_AUTO_MIGRATE"),
			Destination: &r.sqlMigrate,
		},
	}
}

func (r Repository) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("backend", r.backend),
		slog.String("project_id", r.projectID),
		slog.String("database_id", r.databaseID),
		slog.String("sql_dialect", r.sqlDialect),
		slog.Int("sql_dsn.len", len(r.sqlDSN)),
	)
}

// Backend returns the configured backend type
func (r *Repository) Backend() string {
	return r.backend
}

// ProjectID returns the Firestore project ID
func (r *Repository) ProjectID() string {
	return r.projectID
}

// DatabaseID returns the Firestore database ID
func (r *Repository) DatabaseID() string {
	return r.databaseID
}

// OpenSQL opens the SQL store without migrating it
func (r *Repository) OpenSQL() (*sqlstore.Store, error) {
	if r.sqlDSN == "" {
		return nil, goerr.Wrap(ErrMissingFlag, "sql-dsn is required when using sql backend", goerr.V(FlagKey, "sql-dsn"))
	}
	store, err := sqlstore.Open(r.sqlDialect, r.sqlDSN)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open sql repository", goerr.V("dialect", r.sqlDialect))
	}
	return store, nil
}

// Configure initializes and returns a repository based on the configured backend.
// The caller is responsible for calling Close() on the returned repository.
func (r *Repository) Configure(ctx context.Context) (interfaces.Repository, error) {
	switch r.backend {
	case BackendFirestore:
		if r.projectID == "" {
			return nil, goerr.Wrap(ErrMissingFlag, "firestore-project-id is required when using firestore backend",
				goerr.V(FlagKey, "firestore-project-id"))
		}
		var opts []firestore.Option
		if r.collectionPrefix != "" {
			opts = append(opts, firestore.WithCollectionPrefix(r.collectionPrefix))
		}
		repo, err := firestore.New(ctx, r.projectID, r.databaseID, opts...)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to initialize firestore repository")
		}
		logging.Default().Info("Using Firestore repository",
			"project_id", r.projectID,
			"database_id", r.databaseID,
		)
		return repo, nil

	case BackendSQL:
		store, err := r.OpenSQL()
		if err != nil {
			return nil, err
		}
		if r.sqlMigrate {
			if err := store.Migrate(ctx); err != nil {
				_ = store.Close()
				return nil, goerr.Wrap(err, "failed to migrate sql repository")
			}
		}
		logging.Default().Info("Using SQL repository", "dialect", r.sqlDialect)
		return store, nil

	case BackendMemory:
		logging.Default().Info("Using in-memory repository (development mode)")
		return memory.New(), nil

	default:
		return nil, goerr.Wrap(ErrInvalidConfig, "invalid repository backend", goerr.V("backend", r.backend))
	}
}

// CollectionPrefix returns the Firestore collection prefix
func (r *Repository) CollectionPrefix() string {
	return r.collectionPrefix
}
