package safe

import (
	"context"
	"io"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/socialink/pkg/utils/logging"
)

// ErrTooLarge is returned by ReadLimited when the input exceeds the limit
var ErrTooLarge = goerr.New("input exceeds size limit")

// Close closes c and logs a failure. A nil closer is ignored.
func Close(ctx context.Context, c io.Closer) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		logging.From(ctx).Warn("failed to close resource", "error", err.Error())
	}
}

// Write writes data to w and logs a failure. Used for response bodies where
// the status line is already sent and nothing else can be done.
func Write(ctx context.Context, w io.Writer, data []byte) {
	if w == nil {
		return
	}
	if _, err := w.Write(data); err != nil {
		logging.From(ctx).Warn("failed to write response", "error", err.Error(), "size", len(data))
	}
}

// ReadLimited reads r up to limit bytes. Unlike io.LimitReader it fails
// instead of silently truncating.
func ReadLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read")
	}
	if int64(len(data)) > limit {
		return nil, goerr.Wrap(ErrTooLarge, "input too large", goerr.V("limit", limit))
	}
	return data, nil
}
