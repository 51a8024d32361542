package config

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/socialink/pkg/service/archive"
	"github.com/secmon-lab/socialink/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Archive holds CLI flags for raw webhook payload archiving to Cloud Storage
type Archive struct {
	bucket  string
	prefix  string
	timeout time.Duration
}

func (x *Archive) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "archive-bucket",
			Usage:       "Cloud Storage bucket for raw webhook payloads. Empty disables archiving",
			Category:    "Archive",
			Sources:     cli.EnvVars("SOCIALINK_ARCHIVE_BUCKET"),
			Destination: &x.bucket,
		},
		&cli.StringFlag{
			Name:        "archive-prefix",
			Usage:       "Object name prefix in the archive bucket",
			Value:       "webhooks",
			Category:    "Archive",
			Sources:     cli.EnvVars("SOCIALINK_ARCHIVE_PREFIX"),
			Destination: &x.prefix,
		},
		&cli.DurationFlag{
			Name:        "archive-timeout",
			Usage:       "Deadline of one archive upload",
			Value:       archive.DefaultWriteTimeout,
			Category:    "Archive",
			Sources:     cli.EnvVars("SOCIALINK_ARCHIVE_TIMEOUT"),
			Destination: &x.timeout,
		},
	}
}

func (x Archive) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("bucket", x.bucket),
		slog.String("prefix", x.prefix),
		slog.Duration("timeout", x.timeout),
	)
}

// Configure returns a nil service when no bucket is set
func (x *Archive) Configure(ctx context.Context) (archive.Service, io.Closer, error) {
	if x.bucket == "" {
		logging.Default().Info("Webhook archive disabled")
		return nil, nil, nil
	}

	svc, closer, err := archive.NewGCS(ctx, x.bucket, x.prefix, archive.WithWriteTimeout(x.timeout))
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to configure webhook archive", goerr.V("bucket", x.bucket))
	}
	logging.Default().Info("Webhook archive enabled", "bucket", x.bucket, "prefix", x.prefix)
	return svc, closer, nil
}
