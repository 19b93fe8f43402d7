package api

import (
	"encoding/json"
	"net/http"

	"delyva-shipping-layer/internal/application"
	"delyva-shipping-layer/internal/domain"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// rateCallbackPayload is the checkout rate callback HighLevel posts for
// every cart that needs shipping options. The quote request arrives nested
// under a rate key, with the location in rate.altId.
type rateCallbackPayload struct {
	Rate ratePayload `json:"rate"`
}

type ratePayload struct {
	AltID       string             `json:"altId"`
	LocationID  string             `json:"locationId"`
	Origin      *domain.RawAddress `json:"origin" validate:"required"`
	Destination *domain.RawAddress `json:"destination" validate:"required"`
	Items       []domain.LineItem  `json:"items" validate:"required,min=1,dive"`
	Currency    string             `json:"currency"`
}

// RatesHandler answers HighLevel's checkout rate callback.
type RatesHandler struct {
	rates    *application.RatesService
	validate *validator.Validate
	logger   zerolog.Logger
}

func NewRatesHandler(rates *application.RatesService, logger zerolog.Logger) *RatesHandler {
	return &RatesHandler{
		rates:    rates,
		validate: validator.New(),
		logger:   logger,
	}
}

// Callback handles POST /api/shipping/rates/callback.
func (h *RatesHandler) Callback(w http.ResponseWriter, r *http.Request) {
	var envelope rateCallbackPayload
	if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
		writeError(w, h.logger, &domain.ValidationError{Message: "malformed rate callback payload"})
		return
	}
	payload := envelope.Rate
	if err := h.validate.Struct(payload); err != nil {
		writeError(w, h.logger, &domain.ValidationError{Message: "invalid rate callback payload: " + err.Error()})
		return
	}

	locationID := payload.AltID
	if locationID == "" {
		locationID = payload.LocationID
	}
	if locationID == "" {
		writeError(w, h.logger, &domain.ValidationError{Message: "rate callback missing location ID"})
		return
	}

	rates, err := h.rates.GetRates(r.Context(), locationID, *payload.Origin, *payload.Destination, payload.Items)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rates": rates})
}
