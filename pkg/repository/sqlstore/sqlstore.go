package sqlstore

import (
	"context"
	"database/sql"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/socialink/pkg/domain/interfaces"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	// database drivers
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a row does not exist
var ErrNotFound = interfaces.ErrNotFound

// Supported SQL dialects
const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

type Store struct {
	db           *bun.DB
	connection   *connectionRepository
	webhookEvent *webhookEventRepository
	publishJob   *publishJobRepository
	user         *userRepository
	usage        *usageRepository
}

var _ interfaces.Repository = &Store{}

// Open connects to the database with the driver matching dialect
func Open(dialect, dsn string) (*Store, error) {
	switch dialect {
	case DialectSQLite:
		sqlDB, err := sql.Open("sqlite3", dsn)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to open sqlite database")
		}
		// sqlite serializes writers; a single connection avoids SQLITE_BUSY
		sqlDB.SetMaxOpenConns(1)
		return New(bun.NewDB(sqlDB, sqlitedialect.New())), nil

	case DialectPostgres:
		sqlDB, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to open postgres database")
		}
		return New(bun.NewDB(sqlDB, pgdialect.New())), nil

	default:
		return nil, goerr.New("unsupported sql dialect", goerr.V("dialect", dialect))
	}
}

// New wraps an existing bun.DB
func New(db *bun.DB) *Store {
	return &Store{
		db:           db,
		connection:   &connectionRepository{db: db},
		webhookEvent: &webhookEventRepository{db: db},
		publishJob:   &publishJobRepository{db: db},
		user:         &userRepository{db: db},
		usage:        &usageRepository{db: db},
	}
}

// DB exposes the underlying handle for migrations and tests
func (s *Store) DB() *bun.DB {
	return s.db
}

func (s *Store) Connection() interfaces.ConnectionRepository {
	return s.connection
}

func (s *Store) WebhookEvent() interfaces.WebhookEventRepository {
	return s.webhookEvent
}

func (s *Store) PublishJob() interfaces.PublishJobRepository {
	return s.publishJob
}

func (s *Store) User() interfaces.UserRepository {
	return s.user
}

func (s *Store) Usage() interfaces.UsageRepository {
	return s.usage
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

type index struct {
	name    string
	model   any
	columns []string
	unique  bool
}

// Migrate creates tables and indexes that do not exist yet
func (s *Store) Migrate(ctx context.Context) error {
	models := []any{
		(*connectionRecord)(nil),
		(*pendingTokenRecord)(nil),
		(*webhookEventRecord)(nil),
		(*publishJobRecord)(nil),
		(*userRecord)(nil),
		(*usageRecord)(nil),
	}
	for _, m := range models {
		if _, err := s.db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return goerr.Wrap(err, "failed to create table", goerr.V("model", m))
		}
	}

	indexes := []index{
		{name: "idx_connections_key", model: (*connectionRecord)(nil), columns: []string{"user_id", "platform", "external_account_id"}, unique: true},
		{name: "idx_connections_platform", model: (*connectionRecord)(nil), columns: []string{"platform", "created_at"}},
		{name: "idx_webhook_events_kind", model: (*webhookEventRecord)(nil), columns: []string{"kind", "received_at"}},
		{name: "idx_publish_jobs_idempotency", model: (*publishJobRecord)(nil), columns: []string{"user_id", "idempotency_key"}},
		{name: "idx_usage_records_user", model: (*usageRecord)(nil), columns: []string{"user_id"}},
	}
	for _, idx := range indexes {
		q := s.db.NewCreateIndex().Model(idx.model).Index(idx.name).Column(idx.columns...).IfNotExists()
		if idx.unique {
			q = q.Unique()
		}
		if _, err := q.Exec(ctx); err != nil {
			return goerr.Wrap(err, "failed to create index", goerr.V("index", idx.name))
		}
	}
	return nil
}
