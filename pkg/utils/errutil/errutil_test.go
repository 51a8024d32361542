package errutil_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/socialink/pkg/utils/errutil"
)

func TestHandleHTTP(t *testing.T) {
	t.Run("writes status without leaking error detail", func(t *testing.T) {
		w := httptest.NewRecorder()
		err := goerr.New("database password rejected", goerr.V("dsn", "postgres://secret"))

		errutil.HandleHTTP(context.Background(), w, err, http.StatusInternalServerError)

		gt.Value(t, w.Code).Equal(http.StatusInternalServerError)
		gt.Bool(t, strings.Contains(w.Body.String(), "secret")).False()
	})

	t.Run("nil error writes nothing", func(t *testing.T) {
		w := httptest.NewRecorder()
		errutil.HandleHTTP(context.Background(), w, nil, http.StatusBadRequest)
		gt.Value(t, w.Body.Len()).Equal(0)
	})
}

func TestHandleWithoutSentryClient(t *testing.T) {
	errutil.Handle(context.Background(), goerr.New("boom"), "failed")
	errutil.Handle(context.Background(), nil, "ignored")
}

func TestHandleReportsErrorValuesToSentry(t *testing.T) {
	var events []*sentry.Event
	client, err := sentry.NewClient(sentry.ClientOptions{
		BeforeSend: func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
			events = append(events, event)
			return nil
		},
	})
	gt.NoError(t, err).Required()

	hub := sentry.NewHub(client, sentry.NewScope())
	ctx := sentry.SetHubOnContext(context.Background(), hub)

	errutil.Handle(ctx, goerr.New("publish failed", goerr.V("job_id", "job-1")), "failed")

	gt.Array(t, events).Length(1)
	gt.Value(t, events[0].Contexts["goerr"]["job_id"]).Equal("job-1")
}

func TestHandleHTTPSkipsSentryForClientErrors(t *testing.T) {
	var events []*sentry.Event
	client, err := sentry.NewClient(sentry.ClientOptions{
		BeforeSend: func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
			events = append(events, event)
			return nil
		},
	})
	gt.NoError(t, err).Required()

	ctx := sentry.SetHubOnContext(context.Background(), sentry.NewHub(client, sentry.NewScope()))
	errutil.HandleHTTP(ctx, httptest.NewRecorder(), goerr.New("bad request"), http.StatusBadRequest)

	gt.Array(t, events).Length(0)
}
