package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"delyva-shipping-layer/internal/domain"
	"delyva-shipping-layer/internal/ports"

	"github.com/rs/zerolog"
)

// quoteCacheTTL bounds how stale a cached checkout quote may be.
const quoteCacheTTL = 5 * time.Minute

// RatesService answers HighLevel's checkout-time rate callback with Delyva
// instant quotes.
type RatesService struct {
	integrations   ports.IntegrationRepository
	delyva         ports.DelyvaClient
	crypto         ports.EncryptionService
	quoteCache     ports.QuoteCache
	logger         zerolog.Logger
	defaultCountry string
}

// NewRatesService creates a new rates service. defaultCountry fills in
// addresses that arrive without one; it is market configuration (MY for
// the observed deployment).
func NewRatesService(
	integrations ports.IntegrationRepository,
	delyva ports.DelyvaClient,
	crypto ports.EncryptionService,
	quoteCache ports.QuoteCache,
	logger zerolog.Logger,
	defaultCountry string,
) *RatesService {
	return &RatesService{
		integrations:   integrations,
		delyva:         delyva,
		crypto:         crypto,
		quoteCache:     quoteCache,
		logger:         logger,
		defaultCountry: defaultCountry,
	}
}

// GetRates quotes shipping options for a checkout. A disabled location
// returns an empty list, not an error: that is the merchant's kill switch.
func (s *RatesService) GetRates(ctx context.Context, locationID string, origin, destination domain.RawAddress, items []domain.LineItem) ([]domain.Rate, error) {
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
	if !integration.ShippingEnabled {
		s.logger.Info().Str("location_id", locationID).Msg("Shipping disabled, returning empty rates")
		return []domain.Rate{}, nil
	}

	weightKg := domain.ChargeableWeightKg(items)
	from := origin.Normalize(s.defaultCountry)
	to := destination.Normalize(s.defaultCountry)

	if cached, _ := s.quoteCache.Get(ctx, locationID, from, to, weightKg); cached != nil {
		return cached, nil
	}

	apiKey, err := s.crypto.Decrypt(integration.DelyvaAPIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt API key: %w", err)
	}
	creds := ports.DelyvaCredentials{APIKey: apiKey, CustomerID: integration.DelyvaCustomerID}

	services, err := s.delyva.InstantQuote(ctx, creds, ports.QuoteRequest{
		Origin:      from,
		Destination: to,
		WeightKg:    weightKg,
	})
	if err != nil {
		var remote *domain.RemoteCallError
		if errors.As(err, &remote) {
			return nil, &domain.QuoteFetchError{Err: remote}
		}
		return nil, &domain.QuoteFetchError{Err: err}
	}

	rates := make([]domain.Rate, 0, len(services))
	for _, svc := range services {
		name := svc.ServiceName
		if name == "" {
			name = "Unknown Service"
		}
		currency := svc.Currency
		if currency == "" {
			currency = "MYR"
		}
		rates = append(rates, domain.Rate{
			ServiceName:   name,
			Amount:        svc.Amount,
			Currency:      currency,
			EstimatedDays: EstimateDeliveryDays(name),
		})
	}

	_ = s.quoteCache.Set(ctx, locationID, from, to, weightKg, rates, quoteCacheTTL)

	s.logger.Info().
		Str("location_id", locationID).
		Float64("weight_kg", weightKg).
		Int("rates", len(rates)).
		Msg("Shipping rates fetched")
	return rates, nil
}

// EstimateDeliveryDays guesses transit time from keywords in the service
// name. It is a best-effort heuristic, not carrier data; unknown names get
// nil rather than a made-up number.
func EstimateDeliveryDays(serviceName string) *int {
	name := strings.ToLower(serviceName)
	days := func(n int) *int { return &n }
	switch {
	case strings.Contains(name, "instant"):
		return days(0)
	case strings.Contains(name, "next-day"), strings.Contains(name, "nextday"):
		return days(1)
	case strings.Contains(name, "express"):
		return days(1)
	default:
		return nil
	}
}
