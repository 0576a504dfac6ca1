package httphandler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	gh "github.com/google/go-github/v82/github"

	"github.com/ericfisherdev/stalebot/internal/domain/model"
	"github.com/ericfisherdev/stalebot/internal/domain/port/driven"
	"github.com/ericfisherdev/stalebot/internal/instrumentation"
	"github.com/ericfisherdev/stalebot/internal/logging"
)

const (
	// maxPayloadBytes matches the largest payload GitHub delivers.
	maxPayloadBytes = 25 << 20

	defaultHandleTimeout = 30 * time.Second
)

// EventDispatcher routes a domain event to its handler.
type EventDispatcher interface {
	Dispatch(ctx context.Context, event model.Event) error
}

// WebhookHandler receives GitHub webhook deliveries, verifies them and
// dispatches the events the bot reacts to.
type WebhookHandler struct {
	secret     []byte
	deliveries driven.DeliveryStore
	dispatcher EventDispatcher
	metrics    *instrumentation.Metrics
	logger     *slog.Logger
	timeout    time.Duration
	now        func() time.Time
}

// NewWebhookHandler creates a WebhookHandler. metrics may be nil.
func NewWebhookHandler(
	secret string,
	deliveries driven.DeliveryStore,
	dispatcher EventDispatcher,
	metrics *instrumentation.Metrics,
	logger *slog.Logger,
) *WebhookHandler {
	return &WebhookHandler{
		secret:     []byte(secret),
		deliveries: deliveries,
		dispatcher: dispatcher,
		metrics:    metrics,
		logger:     logger,
		timeout:    defaultHandleTimeout,
		now:        time.Now,
	}
}

// ServeHTTP handles one delivery. Processing is synchronous and runs on a
// context detached from the request so a client disconnect does not abort a
// half-applied label change. A delivery is recorded only after it was
// processed successfully, so GitHub redeliveries of failures are retried.
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxPayloadBytes)

	payload, err := gh.ValidatePayload(r, h.secret)
	if err != nil {
		h.logger.Warn("webhook rejected", logging.Err(err))
		h.metrics.RecordWebhook(r.Context(), "unknown", "rejected")
		writeError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	eventType := gh.WebHookType(r)
	deliveryID := gh.DeliveryID(r)
	log := h.logger.With(logging.KeyEvent, eventType, logging.KeyDelivery, deliveryID)

	if !handledEvents[eventType] {
		log.Debug("webhook event ignored")
		h.metrics.RecordWebhook(r.Context(), eventType, instrumentation.ResultIgnored)
		writeJSON(w, http.StatusAccepted, WebhookResponse{Status: webhookIgnored, Event: eventType})
		return
	}

	parsed, err := gh.ParseWebHook(eventType, payload)
	if err != nil {
		log.Warn("webhook payload unparseable", logging.Err(err))
		h.metrics.RecordWebhook(r.Context(), eventType, instrumentation.ResultError)
		writeError(w, http.StatusBadRequest, "unparseable payload")
		return
	}

	action := actionOf(parsed)
	name := eventType
	if action != "" {
		name += "." + action
	}

	event, ok := translate(parsed)
	if !ok {
		log.Debug("webhook action ignored", "action", action)
		h.metrics.RecordWebhook(r.Context(), name, instrumentation.ResultIgnored)
		writeJSON(w, http.StatusAccepted, WebhookResponse{Status: webhookIgnored, Event: name})
		return
	}

	if deliveryID != "" {
		seen, err := h.deliveries.Seen(r.Context(), deliveryID)
		if err != nil {
			log.Error("delivery lookup failed", logging.Err(err))
			h.metrics.RecordWebhook(r.Context(), name, instrumentation.ResultError)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		if seen {
			log.Info("duplicate delivery skipped")
			h.metrics.RecordWebhook(r.Context(), name, webhookDuplicate)
			writeJSON(w, http.StatusOK, WebhookResponse{Status: webhookDuplicate, Event: name})
			return
		}
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), h.timeout)
	defer cancel()

	if err := h.dispatcher.Dispatch(ctx, event); err != nil {
		log.Error("webhook handling failed", "action", action, logging.Err(err))
		h.metrics.RecordWebhook(ctx, name, instrumentation.ResultError)
		writeError(w, http.StatusInternalServerError, "event handling failed")
		return
	}

	if deliveryID != "" {
		err := h.deliveries.Record(ctx, model.Delivery{
			ID:         deliveryID,
			Event:      eventType,
			Action:     action,
			ReceivedAt: h.now(),
		})
		if err != nil {
			log.Warn("recording delivery failed", logging.Err(err))
		}
	}

	log.Info("webhook processed", "action", action)
	h.metrics.RecordWebhook(ctx, name, instrumentation.ResultSuccess)
	writeJSON(w, http.StatusOK, WebhookResponse{Status: webhookProcessed, Event: name})
}
