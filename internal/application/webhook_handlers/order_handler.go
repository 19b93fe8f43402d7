package webhook_handlers

import (
	"context"

	"delyva-shipping-layer/internal/domain"

	"github.com/rs/zerolog"
)

// Fulfiller is the fulfillment entry point the order handler drives.
type Fulfiller interface {
	FulfillOrder(ctx context.Context, locationID, crmOrderID string) (*domain.Shipment, error)
}

// OrderHandler reacts to HighLevel order events, triggering fulfillment
// once an order's payment completes.
type OrderHandler struct {
	fulfillment Fulfiller
	logger      zerolog.Logger
}

// NewOrderHandler creates a new order webhook handler.
func NewOrderHandler(fulfillment Fulfiller, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		fulfillment: fulfillment,
		logger:      logger,
	}
}

// CanHandle returns true if this handler can process the given event type.
func (h *OrderHandler) CanHandle(eventType string) bool {
	return eventType == "OrderCreate" || eventType == "OrderStatusUpdate"
}

// Handle triggers fulfillment for completed orders. Events for orders that
// are not yet paid are acknowledged without action; HighLevel sends another
// event when the status changes.
func (h *OrderHandler) Handle(ctx context.Context, event *domain.OrderEvent) error {
	if !event.Completed() {
		h.logger.Debug().
			Str("type", event.Type).
			Str("order_id", event.OrderID).
			Str("status", event.Status).
			Msg("Order not completed, skipping fulfillment")
		return nil
	}
	if event.LocationID == "" {
		return &domain.ValidationError{Message: "order webhook missing location ID"}
	}

	h.logger.Info().
		Str("location_id", event.LocationID).
		Str("order_id", event.OrderID).
		Msg("Processing completed order webhook")

	_, err := h.fulfillment.FulfillOrder(ctx, event.LocationID, event.OrderID)
	return err
}
