package application

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"delyva-shipping-layer/internal/domain"
	"delyva-shipping-layer/internal/ports"

	"github.com/rs/zerolog"
)

// TokenService owns the HighLevel OAuth token lifecycle: code exchange,
// refresh, persistence, and the single-retry-on-401 wrapper every
// CRM-authenticated call goes through.
type TokenService struct {
	integrations ports.IntegrationRepository
	highlevel    ports.HighLevelClient
	crypto       ports.EncryptionService
	logger       zerolog.Logger
}

// NewTokenService creates a new token service.
func NewTokenService(
	integrations ports.IntegrationRepository,
	highlevel ports.HighLevelClient,
	crypto ports.EncryptionService,
	logger zerolog.Logger,
) *TokenService {
	return &TokenService{
		integrations: integrations,
		highlevel:    highlevel,
		crypto:       crypto,
		logger:       logger,
	}
}

// ExchangeCode exchanges an authorization code for a token pair. It does
// not persist anything; the callback flow resolves the location first.
func (s *TokenService) ExchangeCode(ctx context.Context, code, redirectURI string) (*domain.TokenPair, error) {
	pair, err := s.highlevel.ExchangeCode(ctx, code, redirectURI)
	if err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("location_id", pair.LocationID).
		Str("access_token", domain.Preview(pair.AccessToken, 10)).
		Msg("Authorization code exchanged")
	return pair, nil
}

// SaveTokens persists a token pair for a location, creating the integration
// record when none exists. Tokens are encrypted before storage.
func (s *TokenService) SaveTokens(ctx context.Context, locationID string, pair *domain.TokenPair) error {
	if locationID == "" {
		return &domain.ValidationError{Message: "location ID is required to save tokens"}
	}

	encAccess, err := s.crypto.Encrypt(pair.AccessToken)
	if err != nil {
		return fmt.Errorf("failed to encrypt access token: %w", err)
	}
	encRefresh, err := s.crypto.Encrypt(pair.RefreshToken)
	if err != nil {
		return fmt.Errorf("failed to encrypt refresh token: %w", err)
	}

	existing, err := s.integrations.GetByLocationID(ctx, locationID)
	if err != nil {
		return err
	}
	if existing == nil {
		existing = &domain.Integration{
			LocationID:      locationID,
			ShippingEnabled: true,
		}
	}
	existing.AccessToken = encAccess
	if pair.RefreshToken != "" {
		existing.RefreshToken = encRefresh
	}
	if pair.CompanyID != "" {
		existing.CompanyID = pair.CompanyID
	}
	if pair.UserID != "" {
		existing.UserID = pair.UserID
	}
	if pair.UserType != "" {
		existing.UserType = pair.UserType
	}

	if err := s.integrations.Upsert(ctx, existing); err != nil {
		return err
	}
	s.logger.Info().Str("location_id", locationID).Msg("OAuth tokens saved")
	return nil
}

// Refresh renews the stored token pair for a location. The new refresh
// token replaces the old one only when the provider includes one.
func (s *TokenService) Refresh(ctx context.Context, locationID string) (*domain.TokenPair, error) {
	integration, err := s.integrations.GetByLocationID(ctx, locationID)
	if err != nil {
		return nil, err
	}
	if integration == nil {
		return nil, domain.ErrIntegrationNotFound
	}
	if integration.RefreshToken == "" {
		return nil, &domain.CredentialsMissingError{LocationID: locationID, Field: "refresh_token"}
	}

	refreshToken, err := s.crypto.Decrypt(integration.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt refresh token: %w", err)
	}

	pair, err := s.highlevel.RefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	encAccess, err := s.crypto.Encrypt(pair.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt access token: %w", err)
	}
	encRefresh := ""
	if pair.RefreshToken != "" {
		encRefresh, err = s.crypto.Encrypt(pair.RefreshToken)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt refresh token: %w", err)
		}
	}
	if err := s.integrations.SetTokens(ctx, locationID, encAccess, encRefresh); err != nil {
		return nil, err
	}

	s.logger.Info().Str("location_id", locationID).Msg("Access token refreshed")
	return pair, nil
}

// WithAutoRefresh invokes fn with the location's current access token. On a
// 401 it refreshes once, persists the new tokens and retries fn once. A
// second 401 is a hard AuthenticationError; there is no further retry, so
// the loop is bounded by construction.
func (s *TokenService) WithAutoRefresh(ctx context.Context, locationID string, fn func(accessToken string) error) error {
	integration, err := s.integrations.GetByLocationID(ctx, locationID)
	if err != nil {
		return err
	}
	if integration == nil {
		return domain.ErrIntegrationNotFound
	}
	if !integration.HasCRMToken() {
		return &domain.CredentialsMissingError{LocationID: locationID, Field: "access_token"}
	}

	accessToken, err := s.crypto.Decrypt(integration.AccessToken)
	if err != nil {
		return fmt.Errorf("failed to decrypt access token: %w", err)
	}

	err = fn(accessToken)
	if !isUnauthorized(err) {
		return err
	}

	s.logger.Info().Str("location_id", locationID).Msg("Access token rejected, refreshing once")
	pair, refreshErr := s.Refresh(ctx, locationID)
	if refreshErr != nil {
		return &domain.AuthenticationError{LocationID: locationID, Err: refreshErr}
	}

	err = fn(pair.AccessToken)
	if isUnauthorized(err) {
		return &domain.AuthenticationError{LocationID: locationID, Err: err}
	}
	return err
}

func isUnauthorized(err error) bool {
	var remote *domain.RemoteCallError
	return errors.As(err, &remote) && remote.StatusCode == http.StatusUnauthorized
}

// locationAliases are the query parameter names HighLevel has been observed
// to carry the location under.
var locationAliases = []string{"location_id", "locationId", "altId"}

// ResolveLocationID determines the location for an OAuth callback by trying
// an ordered list of sources: query parameter aliases, the X-Location-Id
// header, a locationId embedded in the opaque state blob, the token
// response itself, and finally the CRM userinfo endpoint with the fresh
// access token. This chain is a compatibility shim around inconsistent
// callback shapes, not a guaranteed contract; when every source fails the
// callback fails explicitly rather than persisting under a guessed ID.
func (s *TokenService) ResolveLocationID(ctx context.Context, r *http.Request, pair *domain.TokenPair) (string, error) {
	tried := make([]string, 0, 5)

	tried = append(tried, "query")
	for _, alias := range locationAliases {
		if v := r.URL.Query().Get(alias); v != "" {
			return v, nil
		}
	}

	tried = append(tried, "header")
	if v := r.Header.Get("X-Location-Id"); v != "" {
		return v, nil
	}

	tried = append(tried, "state")
	if v := locationFromState(r.URL.Query().Get("state")); v != "" {
		return v, nil
	}

	tried = append(tried, "token response")
	if pair != nil && pair.LocationID != "" {
		return pair.LocationID, nil
	}

	tried = append(tried, "userinfo")
	if pair != nil && pair.AccessToken != "" {
		info, err := s.highlevel.GetUserInfo(ctx, pair.AccessToken)
		if err != nil {
			s.logger.Warn().Err(err).Msg("Userinfo location lookup failed")
		} else if info.LocationID != "" {
			return info.LocationID, nil
		}
	}

	return "", &domain.LocationResolutionError{Tried: tried}
}

// locationFromState extracts a locationId from the opaque state parameter,
// which some installs send as plain JSON and others as base64-encoded JSON.
func locationFromState(state string) string {
	if state == "" {
		return ""
	}
	candidates := [][]byte{[]byte(state)}
	if decoded, err := base64.StdEncoding.DecodeString(state); err == nil {
		candidates = append(candidates, decoded)
	}
	if decoded, err := base64.RawURLEncoding.DecodeString(state); err == nil {
		candidates = append(candidates, decoded)
	}
	for _, candidate := range candidates {
		var blob struct {
			LocationID string `json:"locationId"`
			AltID      string `json:"location_id"`
		}
		if err := json.Unmarshal(candidate, &blob); err != nil {
			continue
		}
		if blob.LocationID != "" {
			return blob.LocationID
		}
		if blob.AltID != "" {
			return blob.AltID
		}
	}
	return ""
}
