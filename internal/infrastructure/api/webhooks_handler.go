package api

import (
	"errors"
	"io"
	"net/http"

	"delyva-shipping-layer/internal/application"
	"delyva-shipping-layer/internal/application/webhook_handlers"
	"delyva-shipping-layer/internal/domain"
	"delyva-shipping-layer/internal/infrastructure/delyva"

	"github.com/rs/zerolog"
)

// signatureHeader carries the HMAC-SHA256 of the raw Delyva webhook body.
const signatureHeader = "X-Delyva-Signature"

// WebhooksHandler receives the inbound webhooks from both sides of the
// bridge: HighLevel order events and Delyva shipment status events.
type WebhooksHandler struct {
	dispatcher *webhook_handlers.Dispatcher
	status     *application.StatusService
	verifier   *delyva.WebhookVerifier
	logger     zerolog.Logger
}

func NewWebhooksHandler(
	dispatcher *webhook_handlers.Dispatcher,
	status *application.StatusService,
	verifier *delyva.WebhookVerifier,
	logger zerolog.Logger,
) *WebhooksHandler {
	return &WebhooksHandler{
		dispatcher: dispatcher,
		status:     status,
		verifier:   verifier,
		logger:     logger,
	}
}

// HighLevelOrders handles POST /api/webhooks/highlevel. Payloads missing
// the event type or order ID are rejected with a validation error;
// processing failures return 500 to trigger a retry.
func (h *WebhooksHandler) HighLevelOrders(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, h.logger, &domain.ValidationError{Message: "failed to read webhook body"})
		return
	}
	defer r.Body.Close()

	event, err := domain.ParseOrderEvent(payload)
	if err != nil {
		h.logger.Warn().Err(err).Msg("HighLevel webhook failed validation")
		writeError(w, h.logger, err)
		return
	}

	if err := h.dispatcher.Dispatch(r.Context(), event); err != nil {
		h.logger.Error().Err(err).
			Str("type", event.Type).
			Str("order_id", event.OrderID).
			Msg("Failed to process HighLevel webhook")
		writeError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// DelyvaStatus handles POST /api/webhooks/delyva/status. The signature is
// verified when a webhook secret is configured; without one the event is
// accepted with a warning.
func (h *WebhooksHandler) DelyvaStatus(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, h.logger, &domain.ValidationError{Message: "failed to read webhook body"})
		return
	}
	defer r.Body.Close()

	if h.verifier.Enabled() {
		if err := h.verifier.Verify(payload, r.Header.Get(signatureHeader)); err != nil {
			h.logger.Warn().Err(err).Msg("Delyva webhook signature verification failed")
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid signature"})
			return
		}
	} else {
		h.logger.Warn().Msg("Delyva webhook secret not configured, skipping signature verification")
	}

	event, err := domain.ParseStatusEvent(payload)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	shipment, err := h.status.HandleWebhookEvent(r.Context(), event)
	if err != nil {
		// A status event for an order this service never created is not a
		// provider problem; acknowledge so Delyva stops retrying.
		if errors.Is(err, domain.ErrShipmentNotFound) {
			h.logger.Warn().
				Str("delyva_order_id", event.DelyvaOrderID).
				Str("tracking_number", event.TrackingNumber).
				Msg("Status event for unknown shipment, acknowledging")
			writeJSON(w, http.StatusOK, map[string]any{"received": true})
			return
		}
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"received": true,
		"status":   shipment.Status,
	})
}
