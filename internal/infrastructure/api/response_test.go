package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"delyva-shipping-layer/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteErrorMapsTaxonomyToStatuses(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"integration not found", domain.ErrIntegrationNotFound, http.StatusNotFound},
		{"shipment not found", domain.ErrShipmentNotFound, http.StatusNotFound},
		{"missing credentials", &domain.CredentialsMissingError{LocationID: "loc-1", Field: "delyva_api_key"}, http.StatusBadRequest},
		{"validation", &domain.ValidationError{Message: "bad payload"}, http.StatusBadRequest},
		{"unknown event", &domain.UnknownEventTypeError{EventType: "order.x"}, http.StatusBadRequest},
		{"authentication", &domain.AuthenticationError{LocationID: "loc-1"}, http.StatusUnauthorized},
		{"oauth exchange", &domain.OAuthExchangeError{StatusCode: 400, Code: "invalid_grant"}, http.StatusBadGateway},
		{"quote fetch", &domain.QuoteFetchError{Err: errors.New("boom")}, http.StatusBadGateway},
		{"remote call", &domain.RemoteCallError{Service: "delyva", Operation: "quote", StatusCode: 500}, http.StatusBadGateway},
		{"wrapped sentinel", &domain.QuoteFetchError{Err: errors.New("x")}, http.StatusBadGateway},
		{"unclassified", errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, zerolog.Nop(), tt.err)
			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestWriteErrorInternalCarriesCorrelationID(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, zerolog.Nop(), errors.New("secret internals"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body["error_id"])
	// The underlying error text stays in the log, not the response.
	assert.NotContains(t, rec.Body.String(), "secret internals")
}

func TestInstallPagesRender(t *testing.T) {
	pages := NewPagesHandler(zerolog.Nop())

	rec := httptest.NewRecorder()
	pages.InstallSuccess(rec, httptest.NewRequest("GET", "/install/success?location_id=loc-1", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "loc-1")

	rec = httptest.NewRecorder()
	pages.InstallError(rec, httptest.NewRequest("GET", "/install/error?message=Authorization+failed", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Authorization failed")
}

func TestInstallErrorPageEscapesMarkup(t *testing.T) {
	pages := NewPagesHandler(zerolog.Nop())

	rec := httptest.NewRecorder()
	pages.InstallError(rec, httptest.NewRequest("GET", "/install/error?message="+`%3Cscript%3Ealert(1)%3C%2Fscript%3E`, nil))
	assert.NotContains(t, rec.Body.String(), "<script>")
}
