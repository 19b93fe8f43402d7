package api

import (
	"encoding/json"
	"net/http"

	"delyva-shipping-layer/internal/application"
	"delyva-shipping-layer/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// CredentialsHandler exposes the Delyva credential management endpoints.
type CredentialsHandler struct {
	credentials *application.CredentialsService
	validate    *validator.Validate
	logger      zerolog.Logger
}

func NewCredentialsHandler(credentials *application.CredentialsService, logger zerolog.Logger) *CredentialsHandler {
	return &CredentialsHandler{
		credentials: credentials,
		validate:    validator.New(),
		logger:      logger,
	}
}

type saveCredentialsPayload struct {
	LocationID string `json:"location_id" validate:"required"`
	application.DelyvaCredentialsInput
}

// Save handles POST /api/delyva/credentials.
func (h *CredentialsHandler) Save(w http.ResponseWriter, r *http.Request) {
	var payload saveCredentialsPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, h.logger, &domain.ValidationError{Message: "malformed credentials payload"})
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		writeError(w, h.logger, &domain.ValidationError{Message: "invalid credentials payload: " + err.Error()})
		return
	}

	view, err := h.credentials.Save(r.Context(), payload.LocationID, payload.DelyvaCredentialsInput)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Test handles POST /api/delyva/credentials/test. Nothing is persisted.
func (h *CredentialsHandler) Test(w http.ResponseWriter, r *http.Request) {
	var payload application.DelyvaCredentialsInput
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, h.logger, &domain.ValidationError{Message: "malformed credentials payload"})
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		writeError(w, h.logger, &domain.ValidationError{Message: "invalid credentials payload: " + err.Error()})
		return
	}

	account, err := h.credentials.Test(r.Context(), payload)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"valid":       true,
		"customer_id": account.CustomerID,
		"name":        account.Name,
	})
}

// Get handles GET /api/delyva/credentials/{locationId}. The response never
// contains the stored secrets, only presence flags and a short preview.
func (h *CredentialsHandler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.credentials.Get(r.Context(), chi.URLParam(r, "locationId"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Delete handles DELETE /api/delyva/credentials/{locationId}.
func (h *CredentialsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.credentials.Delete(r.Context(), chi.URLParam(r, "locationId")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type toggleShippingPayload struct {
	LocationID string `json:"location_id" validate:"required"`
	Enabled    bool   `json:"enabled"`
}

// ToggleShipping handles POST /api/delyva/shipping/toggle.
func (h *CredentialsHandler) ToggleShipping(w http.ResponseWriter, r *http.Request) {
	var payload toggleShippingPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, h.logger, &domain.ValidationError{Message: "malformed toggle payload"})
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		writeError(w, h.logger, &domain.ValidationError{Message: "invalid toggle payload: " + err.Error()})
		return
	}

	if err := h.credentials.ToggleShipping(r.Context(), payload.LocationID, payload.Enabled); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"location_id":      payload.LocationID,
		"shipping_enabled": payload.Enabled,
	})
}

// ListCouriers handles GET /api/delyva/couriers/{locationId}.
func (h *CredentialsHandler) ListCouriers(w http.ResponseWriter, r *http.Request) {
	couriers, err := h.credentials.ListCouriers(r.Context(), chi.URLParam(r, "locationId"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(couriers)
}
