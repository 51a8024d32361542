package async_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/socialink/pkg/utils/async"
)

type ctxKey struct{}

func TestDispatch(t *testing.T) {
	t.Run("handler outlives cancelled request context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.WithValue(context.Background(), ctxKey{}, "req-1"))
		var seen atomic.Value
		var ctxErr atomic.Value

		release := make(chan struct{})
		async.Dispatch(ctx, func(ctx context.Context) error {
			<-release
			seen.Store(ctx.Value(ctxKey{}))
			ctxErr.Store(ctx.Err() == nil)
			return nil
		})
		cancel()
		close(release)

		waitCtx, waitCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer waitCancel()
		gt.NoError(t, async.Wait(waitCtx)).Required()
		gt.Value(t, seen.Load()).Equal("req-1")
		gt.Value(t, ctxErr.Load()).Equal(true)
	})

	t.Run("errors and panics do not escape", func(t *testing.T) {
		ctx := context.Background()
		async.Dispatch(ctx, func(ctx context.Context) error {
			return errors.New("upload failed")
		})
		async.Dispatch(ctx, func(ctx context.Context) error {
			panic("boom")
		})

		waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		gt.NoError(t, async.Wait(waitCtx))
	})

	t.Run("wait honours deadline", func(t *testing.T) {
		release := make(chan struct{})
		defer close(release)
		async.Dispatch(context.Background(), func(ctx context.Context) error {
			<-release
			return nil
		})

		waitCtx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		gt.Error(t, async.Wait(waitCtx)).Is(context.DeadlineExceeded)
	})
}
