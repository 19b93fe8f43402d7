package application

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"delyva-shipping-layer/internal/domain"
	"delyva-shipping-layer/internal/ports"

	"github.com/rs/zerolog"
)

// secretPreviewLen is how much of a stored secret the read API ever
// reveals.
const secretPreviewLen = 10

// DelyvaCredentialsInput is the merchant-supplied Delyva credential set.
type DelyvaCredentialsInput struct {
	APIKey      string `json:"api_key" validate:"required"`
	APISecret   string `json:"api_secret"`
	CustomerID  string `json:"customer_id"`
	CompanyCode string `json:"company_code"`
	CompanyID   string `json:"company_id"`
	UserID      string `json:"user_id"`
}

// CredentialsView is what the read API returns: presence flags and a short
// preview, never the stored secrets.
type CredentialsView struct {
	LocationID       string `json:"location_id"`
	HasAPIKey        bool   `json:"has_api_key"`
	APIKeyPreview    string `json:"api_key_preview,omitempty"`
	CustomerID       string `json:"customer_id,omitempty"`
	CompanyCode      string `json:"company_code,omitempty"`
	ShippingEnabled  bool   `json:"shipping_enabled"`
	HasCRMConnection bool   `json:"has_crm_connection"`
}

// CredentialsService manages the per-location Delyva credential set:
// validate against the live API, store encrypted, read back masked.
type CredentialsService struct {
	integrations ports.IntegrationRepository
	delyva       ports.DelyvaClient
	crypto       ports.EncryptionService
	logger       zerolog.Logger
	now          func() time.Time
}

func NewCredentialsService(
	integrations ports.IntegrationRepository,
	delyva ports.DelyvaClient,
	crypto ports.EncryptionService,
	logger zerolog.Logger,
) *CredentialsService {
	return &CredentialsService{
		integrations: integrations,
		delyva:       delyva,
		crypto:       crypto,
		logger:       logger,
		now:          time.Now,
	}
}

// Save validates the credentials against the live Delyva API, then stores
// them encrypted. When the merchant omits the customer ID, the one
// reported by the validation call is stored instead. Invalid credentials
// are never persisted.
func (s *CredentialsService) Save(ctx context.Context, locationID string, input DelyvaCredentialsInput) (*CredentialsView, error) {
	account, err := s.delyva.ValidateCredentials(ctx, ports.DelyvaCredentials{
		APIKey:     input.APIKey,
		CustomerID: input.CustomerID,
	})
	if err != nil {
		return nil, err
	}

	integration, err := s.integrations.GetByLocationID(ctx, locationID)
	if err != nil {
		return nil, err
	}
	if integration == nil {
		now := s.now()
		integration = &domain.Integration{
			LocationID:      locationID,
			ShippingEnabled: true,
			CreatedAt:       now,
		}
	}

	encryptedKey, err := s.crypto.Encrypt(input.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt api key: %w", err)
	}
	encryptedSecret, err := s.crypto.Encrypt(input.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt api secret: %w", err)
	}

	integration.DelyvaAPIKey = encryptedKey
	integration.DelyvaAPISecret = encryptedSecret
	integration.DelyvaCustomerID = input.CustomerID
	if integration.DelyvaCustomerID == "" {
		integration.DelyvaCustomerID = account.CustomerID
	}
	integration.DelyvaCompanyCode = input.CompanyCode
	integration.DelyvaCompanyID = input.CompanyID
	integration.DelyvaUserID = input.UserID
	integration.UpdatedAt = s.now()

	if err := s.integrations.Upsert(ctx, integration); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("location_id", locationID).
		Str("customer_id", integration.DelyvaCustomerID).
		Msg("Delyva credentials saved")
	return s.view(integration, input.APIKey), nil
}

// Test validates credentials against the live API without persisting
// anything.
func (s *CredentialsService) Test(ctx context.Context, input DelyvaCredentialsInput) (*ports.DelyvaAccount, error) {
	return s.delyva.ValidateCredentials(ctx, ports.DelyvaCredentials{
		APIKey:     input.APIKey,
		CustomerID: input.CustomerID,
	})
}

// Get returns the masked credential view for a location.
func (s *CredentialsService) Get(ctx context.Context, locationID string) (*CredentialsView, error) {
	integration, err := s.integrations.GetByLocationID(ctx, locationID)
	if err != nil {
		return nil, err
	}
	if integration == nil {
		return nil, domain.ErrIntegrationNotFound
	}

	apiKey := ""
	if integration.HasDelyvaCredentials() {
		apiKey, err = s.crypto.Decrypt(integration.DelyvaAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt api key: %w", err)
		}
	}
	return s.view(integration, apiKey), nil
}

// Delete removes the stored Delyva credentials, leaving the CRM connection
// in place.
func (s *CredentialsService) Delete(ctx context.Context, locationID string) error {
	integration, err := s.integrations.GetByLocationID(ctx, locationID)
	if err != nil {
		return err
	}
	if integration == nil {
		return domain.ErrIntegrationNotFound
	}
	if err := s.integrations.ClearDelyvaCredentials(ctx, locationID); err != nil {
		return err
	}
	s.logger.Info().Str("location_id", locationID).Msg("Delyva credentials deleted")
	return nil
}

// ToggleShipping flips the merchant kill switch for checkout rates.
func (s *CredentialsService) ToggleShipping(ctx context.Context, locationID string, enabled bool) error {
	integration, err := s.integrations.GetByLocationID(ctx, locationID)
	if err != nil {
		return err
	}
	if integration == nil {
		return domain.ErrIntegrationNotFound
	}
	return s.integrations.SetShippingEnabled(ctx, locationID, enabled)
}

// ListCouriers fetches the couriers available to the location's Delyva
// account.
func (s *CredentialsService) ListCouriers(ctx context.Context, locationID string) (json.RawMessage, error) {
	integration, err := s.integrations.GetByLocationID(ctx, locationID)
	if err != nil {
		return nil, err
	}
	if integration == nil {
		return nil, domain.ErrIntegrationNotFound
	}
	if !integration.HasDelyvaCredentials() {
		return nil, &domain.CredentialsMissingError{LocationID: locationID, Field: "delyva_api_key"}
	}
	apiKey, err := s.crypto.Decrypt(integration.DelyvaAPIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt api key: %w", err)
	}
	return s.delyva.ListCouriers(ctx, ports.DelyvaCredentials{
		APIKey:     apiKey,
		CustomerID: integration.DelyvaCustomerID,
	})
}

func (s *CredentialsService) view(integration *domain.Integration, apiKey string) *CredentialsView {
	return &CredentialsView{
		LocationID:       integration.LocationID,
		HasAPIKey:        apiKey != "",
		APIKeyPreview:    domain.Preview(apiKey, secretPreviewLen),
		CustomerID:       integration.DelyvaCustomerID,
		CompanyCode:      integration.DelyvaCompanyCode,
		ShippingEnabled:  integration.ShippingEnabled,
		HasCRMConnection: integration.HasCRMToken(),
	}
}
