package api

import (
	"net/http"
	"net/url"

	"delyva-shipping-layer/internal/application"
	"delyva-shipping-layer/internal/domain"
	"delyva-shipping-layer/internal/infrastructure/highlevel"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// oauthScopes are the HighLevel scopes the bridge needs: order access for
// fulfillment, the shipping-carrier APIs for checkout rates, user read for
// the location resolver fallback.
var oauthScopes = []string{
	"payments/orders.readonly",
	"payments/orders.write",
	"products.readonly",
	"oauth.readonly",
	"users.readonly",
}

// OAuthHandler drives the HighLevel app install flow: the authorize
// redirect, the callback, and manual token refresh.
type OAuthHandler struct {
	tokens   *application.TokenService
	logger   zerolog.Logger
	clientID string
	appURL   string
}

func NewOAuthHandler(tokens *application.TokenService, logger zerolog.Logger, clientID, appURL string) *OAuthHandler {
	return &OAuthHandler{
		tokens:   tokens,
		logger:   logger,
		clientID: clientID,
		appURL:   appURL,
	}
}

func (h *OAuthHandler) redirectURI() string {
	return h.appURL + "/oauth/callback"
}

// Redirect handles GET /oauth/highlevel/redirect, sending the browser to
// the HighLevel marketplace location chooser.
func (h *OAuthHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	authURL := highlevel.AuthorizeURL(h.clientID, h.redirectURI(), oauthScopes)
	http.Redirect(w, r, authURL, http.StatusFound)
}

// Callback handles GET /oauth/callback. This is a browser flow: every
// outcome is a redirect to the install success or error page, never a JSON
// body.
func (h *OAuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	code := r.URL.Query().Get("code")
	if code == "" {
		h.redirectError(w, r, "Missing authorization code")
		return
	}

	pair, err := h.tokens.ExchangeCode(ctx, code, h.redirectURI())
	if err != nil {
		errorID := uuid.NewString()
		h.logger.Error().Err(err).Str("error_id", errorID).Msg("OAuth code exchange failed")
		h.redirectError(w, r, "Authorization failed ("+errorID+")")
		return
	}

	locationID, err := h.tokens.ResolveLocationID(ctx, r, pair)
	if err != nil {
		errorID := uuid.NewString()
		h.logger.Error().Err(err).Str("error_id", errorID).Msg("Could not resolve location from OAuth callback")
		h.redirectError(w, r, "Could not determine your location ("+errorID+")")
		return
	}

	if err := h.tokens.SaveTokens(ctx, locationID, pair); err != nil {
		errorID := uuid.NewString()
		h.logger.Error().Err(err).Str("error_id", errorID).Str("location_id", locationID).Msg("Failed to save tokens")
		h.redirectError(w, r, "Installation could not be saved ("+errorID+")")
		return
	}

	h.logger.Info().Str("location_id", locationID).Msg("App installed")
	http.Redirect(w, r, "/install/success?location_id="+url.QueryEscape(locationID), http.StatusFound)
}

// Refresh handles POST /oauth/highlevel/refresh/{locationId}. The response
// confirms the refresh without echoing the new tokens.
func (h *OAuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	locationID := chi.URLParam(r, "locationId")
	pair, err := h.tokens.Refresh(r.Context(), locationID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"location_id":          locationID,
		"status":               "refreshed",
		"access_token_preview": domain.Preview(pair.AccessToken, 10),
	})
}

func (h *OAuthHandler) redirectError(w http.ResponseWriter, r *http.Request, message string) {
	http.Redirect(w, r, "/install/error?message="+url.QueryEscape(message), http.StatusFound)
}
