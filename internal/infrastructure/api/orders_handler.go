package api

import (
	"encoding/json"
	"net/http"

	"delyva-shipping-layer/internal/application"
	"delyva-shipping-layer/internal/domain"
	"delyva-shipping-layer/internal/ports"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// OrdersHandler combines HighLevel order data with the local shipping
// records, and exposes manual tracking sync for shipments whose webhooks
// were missed.
type OrdersHandler struct {
	tokens    *application.TokenService
	status    *application.StatusService
	highlevel ports.HighLevelClient
	shipments ports.ShipmentRepository
	logger    zerolog.Logger
}

func NewOrdersHandler(
	tokens *application.TokenService,
	status *application.StatusService,
	highlevel ports.HighLevelClient,
	shipments ports.ShipmentRepository,
	logger zerolog.Logger,
) *OrdersHandler {
	return &OrdersHandler{
		tokens:    tokens,
		status:    status,
		highlevel: highlevel,
		shipments: shipments,
		logger:    logger,
	}
}

// List handles GET /api/orders/{locationId}: the HighLevel order list plus
// the local shipment records for the location.
func (h *OrdersHandler) List(w http.ResponseWriter, r *http.Request) {
	locationID := chi.URLParam(r, "locationId")

	var orders json.RawMessage
	err := h.tokens.WithAutoRefresh(r.Context(), locationID, func(accessToken string) error {
		body, callErr := h.highlevel.ListOrders(r.Context(), accessToken, locationID)
		if callErr != nil {
			return callErr
		}
		orders = body
		return nil
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	shipments, err := h.shipments.ListByLocation(r.Context(), locationID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"orders":    orders,
		"shipments": shipments,
	})
}

// Get handles GET /api/orders/{locationId}/{orderId}.
func (h *OrdersHandler) Get(w http.ResponseWriter, r *http.Request) {
	locationID := chi.URLParam(r, "locationId")
	orderID := chi.URLParam(r, "orderId")

	var order *ports.CRMOrder
	err := h.tokens.WithAutoRefresh(r.Context(), locationID, func(accessToken string) error {
		fetched, callErr := h.highlevel.GetOrder(r.Context(), accessToken, orderID)
		if callErr != nil {
			return callErr
		}
		order = fetched
		return nil
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	shipment, err := h.shipments.GetByOrder(r.Context(), locationID, orderID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"order":    order.Raw,
		"shipment": shipment,
	})
}

// SyncTracking handles POST /api/tracking/sync/{locationId}/{orderId}: a
// manual pull of the Delyva order status for shipments whose webhooks were
// missed.
func (h *OrdersHandler) SyncTracking(w http.ResponseWriter, r *http.Request) {
	shipment, err := h.status.SyncOrder(r.Context(), chi.URLParam(r, "locationId"), chi.URLParam(r, "orderId"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, shipment)
}

// TrackingInfo handles GET /api/tracking/info/{locationId}/{orderId}.
func (h *OrdersHandler) TrackingInfo(w http.ResponseWriter, r *http.Request) {
	shipment, err := h.shipments.GetByOrder(r.Context(), chi.URLParam(r, "locationId"), chi.URLParam(r, "orderId"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if shipment == nil {
		writeError(w, h.logger, domain.ErrShipmentNotFound)
		return
	}

	trackingURL := ""
	if shipment.TrackingNumber != "" {
		trackingURL = application.TrackingURL(shipment.TrackingNumber)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"crm_order_id":    shipment.CRMOrderID,
		"delyva_order_id": shipment.DelyvaOrderID,
		"tracking_number": shipment.TrackingNumber,
		"tracking_url":    trackingURL,
		"status":          shipment.Status,
		"shipped_at":      shipment.ShippedAt,
		"delivered_at":    shipment.DeliveredAt,
	})
}
