package webhook_handlers

import (
	"context"

	"delyva-shipping-layer/internal/domain"

	"github.com/rs/zerolog"
)

// Handler processes one family of HighLevel webhook events.
type Handler interface {
	CanHandle(eventType string) bool
	Handle(ctx context.Context, event *domain.OrderEvent) error
}

// Dispatcher routes a webhook event to every handler that claims its type.
// Events no handler claims are logged and acknowledged so HighLevel does
// not retry them.
type Dispatcher struct {
	handlers []Handler
	logger   zerolog.Logger
}

// NewDispatcher creates a dispatcher over the given handlers.
func NewDispatcher(logger zerolog.Logger, handlers ...Handler) *Dispatcher {
	return &Dispatcher{
		handlers: handlers,
		logger:   logger,
	}
}

// Dispatch fans the event out to matching handlers. The first handler
// error stops the fan-out and is returned.
func (d *Dispatcher) Dispatch(ctx context.Context, event *domain.OrderEvent) error {
	handled := false
	for _, h := range d.handlers {
		if !h.CanHandle(event.Type) {
			continue
		}
		handled = true
		if err := h.Handle(ctx, event); err != nil {
			return err
		}
	}
	if !handled {
		d.logger.Info().
			Str("type", event.Type).
			Str("location_id", event.LocationID).
			Msg("No handler for webhook event type, acknowledging")
	}
	return nil
}
