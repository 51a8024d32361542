package http

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/socialink/pkg/usecase"
	"github.com/secmon-lab/socialink/pkg/utils/errutil"
	"github.com/secmon-lab/socialink/pkg/utils/logging"
	"github.com/secmon-lab/socialink/pkg/utils/safe"
)

const webhookAck = "EVENT_RECEIVED"

// webhookVerifyHandler answers the Meta subscription handshake
func webhookVerifyHandler(uc *usecase.WebhookUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		challenge, err := uc.Verify(q.Get("hub.mode"), q.Get("hub.verify_token"), q.Get("hub.challenge"))
		if err != nil {
			logging.From(r.Context()).Warn("webhook verification rejected", "mode", q.Get("hub.mode"))
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}

		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		safe.Write(r.Context(), w, []byte(challenge))
	}
}

// webhookIngestHandler acknowledges every delivery once it is captured. Only an
// unreadable body (400) or a failed capture (500, so the provider retries) is an error.
func webhookIngestHandler(uc *usecase.WebhookUseCase, limit int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		defer safe.Close(ctx, r.Body)

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
		if err != nil {
			errutil.HandleHTTP(ctx, w, goerr.Wrap(usecase.ErrMalformedWebhook, "failed to read webhook body",
				goerr.V("error", err.Error())), http.StatusBadRequest)
			return
		}

		deliveryID := r.Header.Get("X-Meta-Delivery-Id")
		if deliveryID == "" {
			deliveryID = middleware.GetReqID(ctx)
		}

		if _, err := uc.Ingest(ctx, usecase.WebhookDelivery{
			Body:       body,
			Signature:  r.Header.Get("X-Hub-Signature-256"),
			DeliveryID: deliveryID,
		}); err != nil {
			errutil.HandleHTTP(ctx, w, err, http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		safe.Write(ctx, w, []byte(webhookAck))
	}
}
