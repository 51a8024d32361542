package archive

import (
	"bytes"
	"context"
	"io"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/socialink/pkg/domain/model"
	"google.golang.org/api/option"
)

// DefaultWriteTimeout bounds one object upload
const DefaultWriteTimeout = 30 * time.Second

// Service stores the exact bytes of inbound webhook deliveries
type Service interface {
	Archive(ctx context.Context, event *model.WebhookEvent) error
}

type gcs struct {
	client        *storage.Client
	bucket        string
	prefix        string
	timeout       time.Duration
	clientOptions []option.ClientOption
}

type Option func(*gcs)

// WithWriteTimeout sets the deadline of one object upload. Non-positive values keep the default.
func WithWriteTimeout(d time.Duration) Option {
	return func(g *gcs) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithClientOptions passes options to the storage client, e.g. an emulator endpoint
func WithClientOptions(opts ...option.ClientOption) Option {
	return func(g *gcs) { g.clientOptions = append(g.clientOptions, opts...) }
}

// NewGCS creates an archiver writing to gs://{bucket}/{prefix}/...
func NewGCS(ctx context.Context, bucket, prefix string, opts ...Option) (Service, io.Closer, error) {
	if bucket == "" {
		return nil, nil, goerr.New("archive bucket is required")
	}

	g := &gcs{
		bucket:  bucket,
		prefix:  strings.Trim(prefix, "/"),
		timeout: DefaultWriteTimeout,
	}
	for _, opt := range opts {
		opt(g)
	}

	client, err := storage.NewClient(ctx, g.clientOptions...)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to create storage client")
	}
	g.client = client

	return g, client, nil
}

// objectName lays events out by day and kind: {prefix}/2026/01/02/{kind}/{id}.{ext}
func objectName(prefix string, event *model.WebhookEvent) string {
	ext := "bin"
	if event.Payload.IsStructured() {
		ext = "json"
	}
	day := event.ReceivedAt.UTC().Format("2006/01/02")
	return path.Join(prefix, day, event.Kind.Normalize().String(), event.ID.String()+"."+ext)
}

func (g *gcs) Archive(ctx context.Context, event *model.WebhookEvent) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	name := objectName(g.prefix, event)
	w := g.client.Bucket(g.bucket).Object(name).NewWriter(ctx)
	if event.Payload.IsStructured() {
		w.ContentType = "application/json"
	} else {
		w.ContentType = "application/octet-stream"
	}
	w.Metadata = map[string]string{
		"event_id":        event.ID.String(),
		"kind":            event.Kind.String(),
		"signature_valid": boolString(event.SignatureValid),
	}

	if _, err := io.Copy(w, bytes.NewReader(event.Payload.Bytes())); err != nil {
		_ = w.Close()
		return goerr.Wrap(err, "failed to write archive object", goerr.V("bucket", g.bucket), goerr.V("object", name))
	}
	if err := w.Close(); err != nil {
		return goerr.Wrap(err, "failed to finalize archive object", goerr.V("bucket", g.bucket), goerr.V("object", name))
	}
	return nil
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
