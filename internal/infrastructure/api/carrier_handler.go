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

// CarrierHandler exposes the shipping-carrier management endpoints.
type CarrierHandler struct {
	carrier *application.CarrierService
	logger  zerolog.Logger
}

func NewCarrierHandler(carrier *application.CarrierService, logger zerolog.Logger) *CarrierHandler {
	return &CarrierHandler{
		carrier: carrier,
		logger:  logger,
	}
}

// Register handles POST /api/carrier/register/{locationId}.
func (h *CarrierHandler) Register(w http.ResponseWriter, r *http.Request) {
	locationID := chi.URLParam(r, "locationId")
	carrierID, err := h.carrier.Register(r.Context(), locationID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"location_id": locationID,
		"carrier_id":  carrierID,
	})
}

// Info handles GET /api/carrier/info/{locationId}.
func (h *CarrierHandler) Info(w http.ResponseWriter, r *http.Request) {
	info, err := h.carrier.Info(r.Context(), chi.URLParam(r, "locationId"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(info)
}

// Update handles PUT /api/carrier/update/{locationId}. Decoding into
// CarrierUpdate drops everything outside the allowed fields.
func (h *CarrierHandler) Update(w http.ResponseWriter, r *http.Request) {
	var update ports.CarrierUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeError(w, h.logger, &domain.ValidationError{Message: "malformed carrier update payload"})
		return
	}

	result, err := h.carrier.Update(r.Context(), chi.URLParam(r, "locationId"), update)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(result)
}

// Deactivate handles PUT /api/carrier/deactivate/{locationId}.
func (h *CarrierHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	locationID := chi.URLParam(r, "locationId")
	if err := h.carrier.Deactivate(r.Context(), locationID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"location_id": locationID,
		"status":      "deactivated",
	})
}

// Unregister handles DELETE /api/carrier/unregister/{locationId}.
func (h *CarrierHandler) Unregister(w http.ResponseWriter, r *http.Request) {
	locationID := chi.URLParam(r, "locationId")
	if err := h.carrier.Unregister(r.Context(), locationID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"location_id": locationID,
		"status":      "unregistered",
	})
}

// Status handles GET /oauth/highlevel/status/{locationId}.
func (h *CarrierHandler) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.carrier.Status(r.Context(), chi.URLParam(r, "locationId"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}
