package application

import (
	"context"
	"encoding/json"

	"delyva-shipping-layer/internal/domain"
	"delyva-shipping-layer/internal/ports"

	"github.com/rs/zerolog"
)

// CarrierName is how the bridge appears in HighLevel's shipping settings.
const CarrierName = "Delyva Shipping"

// CarrierService registers and manages the Delyva carrier inside HighLevel.
// A location moves unregistered → registered → deactivated; deleting the
// registration returns it to unregistered.
type CarrierService struct {
	integrations ports.IntegrationRepository
	highlevel    ports.HighLevelClient
	delyva       ports.DelyvaClient
	tokens       *TokenService
	crypto       ports.EncryptionService
	logger       zerolog.Logger
	callbackURL  string
}

// NewCarrierService creates a new carrier service. callbackURL is the
// public rate-callback endpoint HighLevel will invoke during checkout.
func NewCarrierService(
	integrations ports.IntegrationRepository,
	highlevel ports.HighLevelClient,
	delyva ports.DelyvaClient,
	tokens *TokenService,
	crypto ports.EncryptionService,
	logger zerolog.Logger,
	callbackURL string,
) *CarrierService {
	return &CarrierService{
		integrations: integrations,
		highlevel:    highlevel,
		delyva:       delyva,
		tokens:       tokens,
		crypto:       crypto,
		logger:       logger,
		callbackURL:  callbackURL,
	}
}

// Register registers the carrier for a location. Calling it again is a
// no-op returning the existing carrier ID; the remote call happens at most
// once per registration. The carrier ID is persisted only after the remote
// call succeeds.
func (s *CarrierService) Register(ctx context.Context, locationID string) (string, error) {
	integration, err := s.integrations.GetByLocationID(ctx, locationID)
	if err != nil {
		return "", err
	}
	if integration == nil {
		return "", domain.ErrIntegrationNotFound
	}
	if integration.CarrierRegistered() {
		s.logger.Info().
			Str("location_id", locationID).
			Str("carrier_id", integration.CarrierID).
			Msg("Carrier already registered")
		return integration.CarrierID, nil
	}
	if !integration.HasCRMToken() {
		return "", &domain.CredentialsMissingError{LocationID: locationID, Field: "access_token"}
	}
	if !integration.HasDelyvaCredentials() {
		return "", &domain.CredentialsMissingError{LocationID: locationID, Field: "delyva_api_key"}
	}

	var carrierID string
	err = s.tokens.WithAutoRefresh(ctx, locationID, func(accessToken string) error {
		id, callErr := s.highlevel.RegisterCarrier(ctx, accessToken, ports.CarrierRegistration{
			LocationID:  locationID,
			Name:        CarrierName,
			CallbackURL: s.callbackURL,
		})
		if callErr != nil {
			return callErr
		}
		carrierID = id
		return nil
	})
	if err != nil {
		return "", err
	}

	if err := s.integrations.SetCarrierID(ctx, locationID, carrierID); err != nil {
		return "", err
	}
	s.logger.Info().
		Str("location_id", locationID).
		Str("carrier_id", carrierID).
		Msg("Carrier registered")
	return carrierID, nil
}

// Deactivate switches the remote carrier off without clearing the local
// carrier ID, so a later Update with isActive true can bring it back.
func (s *CarrierService) Deactivate(ctx context.Context, locationID string) error {
	_, carrierID, err := s.registered(ctx, locationID)
	if err != nil {
		return err
	}

	inactive := false
	return s.tokens.WithAutoRefresh(ctx, locationID, func(accessToken string) error {
		_, callErr := s.highlevel.UpdateCarrier(ctx, accessToken, carrierID, ports.CarrierUpdate{IsActive: &inactive})
		return callErr
	})
}

// Unregister deletes the remote carrier, then clears the local carrier ID.
// The local clear happens only after the remote delete succeeds, so a
// remote failure leaves local and remote consistent.
func (s *CarrierService) Unregister(ctx context.Context, locationID string) error {
	_, carrierID, err := s.registered(ctx, locationID)
	if err != nil {
		return err
	}

	err = s.tokens.WithAutoRefresh(ctx, locationID, func(accessToken string) error {
		return s.highlevel.DeleteCarrier(ctx, accessToken, carrierID)
	})
	if err != nil {
		return err
	}

	if err := s.integrations.SetCarrierID(ctx, locationID, ""); err != nil {
		return err
	}
	s.logger.Info().Str("location_id", locationID).Msg("Carrier unregistered")
	return nil
}

// Update passes the allow-listed carrier fields through to HighLevel.
// Fields outside the allow list never reach this method; the handler
// decodes only the permitted ones.
func (s *CarrierService) Update(ctx context.Context, locationID string, update ports.CarrierUpdate) (json.RawMessage, error) {
	_, carrierID, err := s.registered(ctx, locationID)
	if err != nil {
		return nil, err
	}

	var result json.RawMessage
	err = s.tokens.WithAutoRefresh(ctx, locationID, func(accessToken string) error {
		body, callErr := s.highlevel.UpdateCarrier(ctx, accessToken, carrierID, update)
		if callErr != nil {
			return callErr
		}
		result = body
		return nil
	})
	return result, err
}

// Info fetches the remote carrier record.
func (s *CarrierService) Info(ctx context.Context, locationID string) (json.RawMessage, error) {
	_, carrierID, err := s.registered(ctx, locationID)
	if err != nil {
		return nil, err
	}

	var result json.RawMessage
	err = s.tokens.WithAutoRefresh(ctx, locationID, func(accessToken string) error {
		body, callErr := s.highlevel.GetCarrier(ctx, accessToken, carrierID)
		if callErr != nil {
			return callErr
		}
		result = body
		return nil
	})
	return result, err
}

// IntegrationStatus is the full per-location readiness report.
type IntegrationStatus struct {
	LocationID           string `json:"location_id"`
	IntegrationExists    bool   `json:"integration_exists"`
	HasCRMToken          bool   `json:"has_highlevel_token"`
	HasDelyvaCredentials bool   `json:"has_delyva_credentials"`
	CarrierRegistered    bool   `json:"carrier_registered"`
	CarrierID            string `json:"carrier_id,omitempty"`
	ShippingEnabled      bool   `json:"shipping_enabled"`
	DelyvaAPIReachable   *bool  `json:"delyva_api_reachable,omitempty"`
}

// Status reports what is configured for a location, including a live
// Delyva credential check when an API key is stored.
func (s *CarrierService) Status(ctx context.Context, locationID string) (*IntegrationStatus, error) {
	status := &IntegrationStatus{LocationID: locationID}

	integration, err := s.integrations.GetByLocationID(ctx, locationID)
	if err != nil {
		return nil, err
	}
	if integration == nil {
		return status, nil
	}

	status.IntegrationExists = true
	status.HasCRMToken = integration.HasCRMToken()
	status.HasDelyvaCredentials = integration.HasDelyvaCredentials()
	status.CarrierRegistered = integration.CarrierRegistered()
	status.CarrierID = integration.CarrierID
	status.ShippingEnabled = integration.ShippingEnabled

	if status.HasDelyvaCredentials {
		reachable := false
		apiKey, decErr := s.crypto.Decrypt(integration.DelyvaAPIKey)
		if decErr == nil {
			creds := ports.DelyvaCredentials{APIKey: apiKey, CustomerID: integration.DelyvaCustomerID}
			if _, callErr := s.delyva.ValidateCredentials(ctx, creds); callErr == nil {
				reachable = true
			}
		}
		status.DelyvaAPIReachable = &reachable
	}
	return status, nil
}

func (s *CarrierService) registered(ctx context.Context, locationID string) (*domain.Integration, string, error) {
	integration, err := s.integrations.GetByLocationID(ctx, locationID)
	if err != nil {
		return nil, "", err
	}
	if integration == nil {
		return nil, "", domain.ErrIntegrationNotFound
	}
	if !integration.CarrierRegistered() {
		return nil, "", &domain.CredentialsMissingError{LocationID: locationID, Field: "carrier_id"}
	}
	if !integration.HasCRMToken() {
		return nil, "", &domain.CredentialsMissingError{LocationID: locationID, Field: "access_token"}
	}
	return integration, integration.CarrierID, nil
}
