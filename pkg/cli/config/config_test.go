package config_test

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/socialink/pkg/cli/config"
	"github.com/secmon-lab/socialink/pkg/domain/types"
	"github.com/secmon-lab/socialink/pkg/utils/logging"
)

func TestMeta_Configure(t *testing.T) {
	t.Run("missing app id", func(t *testing.T) {
		_, err := config.NewMetaForTest("", "secret", "https://example.com", "").Configure()
		gt.Error(t, err).Is(config.ErrMissingFlag)
	})

	t.Run("missing app secret", func(t *testing.T) {
		_, err := config.NewMetaForTest("123", "", "https://example.com", "").Configure()
		gt.Error(t, err).Is(config.ErrMissingFlag)
	})

	t.Run("missing base url", func(t *testing.T) {
		_, err := config.NewMetaForTest("123", "secret", "", "").Configure()
		gt.Error(t, err).Is(config.ErrMissingFlag)
	})

	t.Run("valid", func(t *testing.T) {
		svc, err := config.NewMetaForTest("123", "secret", "https://example.com", "").Configure()
		gt.NoError(t, err).Required()
		gt.Value(t, svc).NotNil()
	})

	t.Run("with platform file", func(t *testing.T) {
		path := writeFile(t, `
[platforms.facebook]
scopes = ["pages_show_list"]
`)
		svc, err := config.NewMetaForTest("123", "secret", "https://example.com", path).Configure()
		gt.NoError(t, err).Required()
		url, err := svc.AuthCodeURL(types.PlatformFacebook, "state-value")
		gt.NoError(t, err).Required()
		gt.String(t, url).Contains("scope=pages_show_list&")
	})

	t.Run("platform file not found", func(t *testing.T) {
		_, err := config.NewMetaForTest("123", "secret", "https://example.com",
			filepath.Join(t.TempDir(), "missing.toml")).Configure()
		gt.Error(t, err).Is(config.ErrConfigNotFound)
	})
}

func TestSession_Configure(t *testing.T) {
	t.Run("missing secret", func(t *testing.T) {
		_, err := config.NewSessionForTest("").Configure()
		gt.Error(t, err).Is(config.ErrMissingFlag)
	})

	t.Run("short secret", func(t *testing.T) {
		_, err := config.NewSessionForTest("too-short").Configure()
		gt.Error(t, err).Is(config.ErrInvalidConfig)
	})

	t.Run("signer round trip", func(t *testing.T) {
		signer, err := config.NewSessionForTest("0123456789abcdef0123456789abcdef").Configure()
		gt.NoError(t, err).Required()

		token, _, err := signer.IssueSession("user-1", time.Minute)
		gt.NoError(t, err).Required()
		session, err := signer.VerifySession(token)
		gt.NoError(t, err).Required()
		gt.Value(t, session.UserID).Equal("user-1")
	})
}

func TestRepository_Configure(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		repo, err := config.NewRepositoryForTest(config.BackendMemory, "", "", "", false).Configure(ctx)
		gt.NoError(t, err).Required()
		gt.Value(t, repo).NotNil()
		gt.NoError(t, repo.Close())
	})

	t.Run("firestore requires project", func(t *testing.T) {
		_, err := config.NewRepositoryForTest(config.BackendFirestore, "", "", "", false).Configure(ctx)
		gt.Error(t, err).Is(config.ErrMissingFlag)
	})

	t.Run("sql requires dsn", func(t *testing.T) {
		_, err := config.NewRepositoryForTest(config.BackendSQL, "", "sqlite", "", false).Configure(ctx)
		gt.Error(t, err).Is(config.ErrMissingFlag)
	})

	t.Run("sql sqlite with migration", func(t *testing.T) {
		dsn := "file:" + filepath.Join(t.TempDir(), "socialink.db")
		repo, err := config.NewRepositoryForTest(config.BackendSQL, "", "sqlite", dsn, true).Configure(ctx)
		gt.NoError(t, err).Required()
		defer func() { gt.NoError(t, repo.Close()) }()

		conns, err := repo.Connection().FindByUser(ctx, "nobody", types.PlatformFacebook)
		gt.NoError(t, err).Required()
		gt.Array(t, conns).Length(0)
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := config.NewRepositoryForTest("redis", "", "", "", false).Configure(ctx)
		gt.Error(t, err).Is(config.ErrInvalidConfig)
	})
}

func TestLogger(t *testing.T) {
	t.Run("levels", func(t *testing.T) {
		for input, want := range map[string]slog.Level{
			"debug": slog.LevelDebug,
			"":      slog.LevelInfo,
			"INFO":  slog.LevelInfo,
			"warn":  slog.LevelWarn,
			"error": slog.LevelError,
		} {
			got, err := config.ParseLevel(input)
			gt.NoError(t, err).Required()
			gt.Value(t, got).Equal(want)
		}

		_, err := config.ParseLevel("verbose")
		gt.Error(t, err).Is(config.ErrInvalidConfig)
	})

	t.Run("invalid format", func(t *testing.T) {
		_, err := config.NewLoggerForTest("info", "xml", "stdout").Configure()
		gt.Error(t, err).Is(config.ErrInvalidConfig)
	})

	t.Run("file output", func(t *testing.T) {
		prev := logging.Default()
		t.Cleanup(func() { logging.SetDefault(prev) })

		path := filepath.Join(t.TempDir(), "out.log")
		closer, err := config.NewLoggerForTest("info", "json", path).Configure()
		gt.NoError(t, err).Required()
		closer()
	})
}

func TestAdmin_Options(t *testing.T) {
	gt.Bool(t, config.NewAdminForTest("", 0, "").Enabled()).False()

	admin := config.NewAdminForTest("operator-secret", 5*time.Minute, "ops")
	gt.Bool(t, admin.Enabled()).True()
	gt.Array(t, admin.Options()).Length(2)
	gt.Value(t, admin.GrantTTL()).Equal(5 * time.Minute)
	gt.Value(t, admin.Operator()).Equal("ops")
}

func TestInstagram_Configure(t *testing.T) {
	gt.Value(t, config.NewInstagramForTest(0, time.Hour).Configure(nil, nil)).Nil()
	gt.Value(t, config.NewInstagramForTest(time.Hour, time.Hour).Configure(nil, nil)).NotNil()
}
