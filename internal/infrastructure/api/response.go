package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"delyva-shipping-layer/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeError maps the domain error taxonomy onto HTTP statuses. Internal
// errors get a correlation ID so the log line can be found without leaking
// the error to the caller.
func writeError(w http.ResponseWriter, logger zerolog.Logger, err error) {
	var (
		credsMissing *domain.CredentialsMissingError
		validation   *domain.ValidationError
		unknownEvent *domain.UnknownEventTypeError
		authErr      *domain.AuthenticationError
		oauthErr     *domain.OAuthExchangeError
		quoteErr     *domain.QuoteFetchError
		remoteErr    *domain.RemoteCallError
	)

	switch {
	case errors.Is(err, domain.ErrIntegrationNotFound), errors.Is(err, domain.ErrShipmentNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.As(err, &credsMissing):
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":   "missing credentials",
			"field":   credsMissing.Field,
			"message": credsMissing.Error(),
		})
	case errors.As(err, &validation):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": validation.Message})
	case errors.As(err, &unknownEvent):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": unknownEvent.Error()})
	case errors.As(err, &authErr):
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication with HighLevel failed"})
	case errors.As(err, &oauthErr):
		writeJSON(w, http.StatusBadGateway, map[string]string{
			"error":       "oauth exchange failed",
			"code":        oauthErr.Code,
			"description": oauthErr.Description,
		})
	case errors.As(err, &quoteErr), errors.As(err, &remoteErr):
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "upstream service error"})
	default:
		errorID := uuid.NewString()
		logger.Error().Err(err).Str("error_id", errorID).Msg("Unhandled error")
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":    "internal server error",
			"error_id": errorID,
		})
	}
}
