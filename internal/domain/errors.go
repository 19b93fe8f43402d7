package domain

import (
	"errors"
	"fmt"
)

// ErrIntegrationNotFound means no Integration record exists for the location.
var ErrIntegrationNotFound = errors.New("integration not found for location")

// ErrShipmentNotFound means no Shipment record matched the lookup.
var ErrShipmentNotFound = errors.New("shipment not found")

// CredentialsMissingError means the Integration record exists but a required
// credential is absent. Field names which piece is missing so callers can
// return a specific message per gap.
type CredentialsMissingError struct {
	LocationID string
	Field      string
}

func (e *CredentialsMissingError) Error() string {
	return fmt.Sprintf("location %s: missing credential %s", e.LocationID, e.Field)
}

// AuthenticationError means the remote rejected the token even after the
// single refresh retry.
type AuthenticationError struct {
	LocationID string
	Err        error
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("location %s: authentication failed after token refresh: %v", e.LocationID, e.Err)
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// OAuthExchangeError means the authorization-code exchange or refresh call
// failed, carrying the provider's error code and description.
type OAuthExchangeError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *OAuthExchangeError) Error() string {
	return fmt.Sprintf("oauth exchange failed (status %d): %s: %s", e.StatusCode, e.Code, e.Description)
}

// LocationResolutionError means no location ID could be resolved from the
// OAuth callback by any strategy. Tokens are never persisted under a
// synthetic ID; the callback fails with this instead.
type LocationResolutionError struct {
	Tried []string
}

func (e *LocationResolutionError) Error() string {
	return fmt.Sprintf("could not resolve location ID from callback (tried: %v)", e.Tried)
}

// RemoteCallError is a generic upstream failure, either transport-level or
// a well-formed non-2xx response. BodyPreview is truncated so diagnostics
// never leak full secrets or payloads.
type RemoteCallError struct {
	Service     string
	Operation   string
	StatusCode  int
	BodyPreview string
	Err         error
}

func (e *RemoteCallError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %v", e.Service, e.Operation, e.Err)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Service, e.Operation, e.StatusCode, e.BodyPreview)
}

func (e *RemoteCallError) Unwrap() error { return e.Err }

// Transport reports whether the failure happened before a response was
// received (network error, timeout) as opposed to a provider error body.
func (e *RemoteCallError) Transport() bool { return e.Err != nil }

// QuoteFetchError wraps a failure to fetch instant quotes from Delyva.
type QuoteFetchError struct {
	Err error
}

func (e *QuoteFetchError) Error() string { return fmt.Sprintf("quote fetch failed: %v", e.Err) }

func (e *QuoteFetchError) Unwrap() error { return e.Err }

// UnknownEventTypeError means a webhook carried an event type outside the
// status mapping table.
type UnknownEventTypeError struct {
	EventType string
}

func (e *UnknownEventTypeError) Error() string {
	return fmt.Sprintf("unknown webhook event type %q", e.EventType)
}

// ValidationError means an inbound payload failed validation.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Preview returns at most the first n characters of a secret for
// diagnostics, followed by an ellipsis.
func Preview(secret string, n int) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= n {
		return secret[:len(secret)/2] + "..."
	}
	return secret[:n] + "..."
}
