package application

import (
	"context"
	"fmt"
	"time"

	"delyva-shipping-layer/internal/domain"
	"delyva-shipping-layer/internal/ports"

	"github.com/rs/zerolog"
)

// trackingURLBase is the public Delyva tracking page; the consignment
// number goes in the trackingNo query parameter.
const trackingURLBase = "https://my.delyva.app/customer/strack?trackingNo="

// TrackingURL builds the public tracking page URL for a consignment number.
func TrackingURL(trackingNumber string) string {
	return trackingURLBase + trackingNumber
}

// FulfillmentConfig carries the deployment-level fulfillment defaults.
type FulfillmentConfig struct {
	// DefaultOrigin is the store pickup address used when the CRM order
	// carries no origin of its own.
	DefaultOrigin domain.Address

	// DefaultServiceCode is the Delyva service booked when the order's
	// shipping method does not name one.
	DefaultServiceCode string

	DefaultCountry string
}

// FulfillmentService turns a completed HighLevel order into a Delyva
// shipping order: claim the local record, fetch the order, create a draft,
// process it, then push tracking back to HighLevel. The claim step makes
// webhook replays harmless.
type FulfillmentService struct {
	integrations ports.IntegrationRepository
	shipments    ports.ShipmentRepository
	highlevel    ports.HighLevelClient
	delyva       ports.DelyvaClient
	tokens       *TokenService
	crypto       ports.EncryptionService
	logger       zerolog.Logger
	config       FulfillmentConfig
	now          func() time.Time
}

func NewFulfillmentService(
	integrations ports.IntegrationRepository,
	shipments ports.ShipmentRepository,
	highlevel ports.HighLevelClient,
	delyva ports.DelyvaClient,
	tokens *TokenService,
	crypto ports.EncryptionService,
	logger zerolog.Logger,
	config FulfillmentConfig,
) *FulfillmentService {
	return &FulfillmentService{
		integrations: integrations,
		shipments:    shipments,
		highlevel:    highlevel,
		delyva:       delyva,
		tokens:       tokens,
		crypto:       crypto,
		logger:       logger,
		config:       config,
		now:          time.Now,
	}
}

// FulfillOrder runs the full pipeline for one (location, order) pair.
// A replay for an order that already has a Delyva order is a no-op
// returning the existing record. A record left mid-pipeline by an earlier
// failure is resumed from the draft-creation step.
func (s *FulfillmentService) FulfillOrder(ctx context.Context, locationID, crmOrderID string) (*domain.Shipment, error) {
	integration, err := s.integrations.GetByLocationID(ctx, locationID)
	if err != nil {
		return nil, err
	}
	if integration == nil {
		return nil, domain.ErrIntegrationNotFound
	}
	if !integration.HasCRMToken() {
		return nil, &domain.CredentialsMissingError{LocationID: locationID, Field: "access_token"}
	}
	if !integration.HasDelyvaCredentials() {
		return nil, &domain.CredentialsMissingError{LocationID: locationID, Field: "delyva_api_key"}
	}

	now := s.now()
	shipment, created, err := s.shipments.Claim(ctx, &domain.Shipment{
		LocationID: locationID,
		CRMOrderID: crmOrderID,
		Status:     domain.StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		return nil, err
	}
	if !created && shipment.DelyvaOrderID != "" {
		s.logger.Info().
			Str("location_id", locationID).
			Str("crm_order_id", crmOrderID).
			Str("delyva_order_id", shipment.DelyvaOrderID).
			Msg("Order already fulfilled, skipping")
		return shipment, nil
	}

	var order *ports.CRMOrder
	err = s.tokens.WithAutoRefresh(ctx, locationID, func(accessToken string) error {
		fetched, callErr := s.highlevel.GetOrder(ctx, accessToken, crmOrderID)
		if callErr != nil {
			return callErr
		}
		order = fetched
		return nil
	})
	if err != nil {
		return nil, err
	}
	shipment.CRMOrderSnapshot = order.Raw

	if !order.RequiresShipping {
		shipment.Status = domain.StatusCancelled
		shipment.Notes = "Order does not require shipping"
		shipment.UpdatedAt = s.now()
		if err := s.shipments.Update(ctx, shipment); err != nil {
			return nil, err
		}
		s.logger.Info().
			Str("location_id", locationID).
			Str("crm_order_id", crmOrderID).
			Msg("Order does not require shipping, skipping")
		return shipment, nil
	}

	dropoff, err := s.dropoffAddress(order)
	if err != nil {
		return nil, err
	}
	pickup := s.pickupAddress(order)

	apiKey, err := s.crypto.Decrypt(integration.DelyvaAPIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt delyva api key: %w", err)
	}
	creds := ports.DelyvaCredentials{APIKey: apiKey, CustomerID: integration.DelyvaCustomerID}

	serviceCode := order.ShippingMethod
	if serviceCode == "" {
		serviceCode = s.config.DefaultServiceCode
	}

	referenceNo := order.OrderNumber
	if referenceNo == "" {
		referenceNo = crmOrderID
	}

	delyvaOrder, err := s.delyva.CreateOrder(ctx, creds, ports.DelyvaOrderRequest{
		CustomerID:  integration.DelyvaCustomerID,
		ServiceCode: serviceCode,
		ReferenceNo: referenceNo,
		Note:        "HighLevel order " + referenceNo,
		Process:     false,
		Pickup:      ports.Waypoint{Type: "PICKUP", Address: pickup},
		Dropoff:     ports.Waypoint{Type: "DROPOFF", Address: dropoff},
	})
	if err != nil {
		return nil, err
	}

	shipment.DelyvaOrderID = delyvaOrder.ID
	shipment.DelyvaOrderSnapshot = delyvaOrder.Raw
	shipment.Status = domain.StatusDraft
	shipment.UpdatedAt = s.now()
	if err := s.shipments.Update(ctx, shipment); err != nil {
		return nil, err
	}

	if err := s.delyva.ProcessOrder(ctx, creds, delyvaOrder.ID, serviceCode); err != nil {
		// The draft stays recorded; a manual retry can process it later.
		s.logger.Error().Err(err).
			Str("location_id", locationID).
			Str("delyva_order_id", delyvaOrder.ID).
			Msg("Failed to process Delyva order")
		return shipment, err
	}

	processed, err := s.delyva.GetOrder(ctx, creds, delyvaOrder.ID)
	if err != nil {
		s.logger.Warn().Err(err).
			Str("delyva_order_id", delyvaOrder.ID).
			Msg("Failed to fetch processed order, tracking number pending")
	} else {
		shipment.TrackingNumber = processed.ConsignmentNo
		shipment.DelyvaOrderSnapshot = processed.Raw
	}
	shipment.Status = domain.StatusProcessing
	shipment.UpdatedAt = s.now()
	if err := s.shipments.Update(ctx, shipment); err != nil {
		return nil, err
	}

	if shipment.TrackingNumber != "" {
		s.pushFulfillment(ctx, locationID, crmOrderID, shipment.TrackingNumber)
	}

	s.logger.Info().
		Str("location_id", locationID).
		Str("crm_order_id", crmOrderID).
		Str("delyva_order_id", shipment.DelyvaOrderID).
		Str("tracking_number", shipment.TrackingNumber).
		Msg("Order fulfilled")
	return shipment, nil
}

// pushFulfillment reports tracking back to the HighLevel order. Failures
// are logged and swallowed: the Delyva order exists either way, and status
// sync will surface the tracking number again.
func (s *FulfillmentService) pushFulfillment(ctx context.Context, locationID, crmOrderID, trackingNumber string) {
	err := s.tokens.WithAutoRefresh(ctx, locationID, func(accessToken string) error {
		return s.highlevel.CreateFulfillment(ctx, accessToken, crmOrderID, ports.Fulfillment{
			LocationID:     locationID,
			TrackingNumber: trackingNumber,
			TrackingURL:    TrackingURL(trackingNumber),
			CarrierName:    CarrierName,
			NotifyCustomer: true,
		})
	})
	if err != nil {
		s.logger.Error().Err(err).
			Str("location_id", locationID).
			Str("crm_order_id", crmOrderID).
			Msg("Failed to push fulfillment to HighLevel")
	}
}

func (s *FulfillmentService) dropoffAddress(order *ports.CRMOrder) (domain.Address, error) {
	if order.Destination == nil {
		return domain.Address{}, &domain.ValidationError{Message: "order has no shipping address"}
	}
	addr := order.Destination.Normalize(s.config.DefaultCountry)
	if addr.Name == "" {
		addr.Name = order.ContactName
	}
	if addr.Phone == "" {
		addr.Phone = order.ContactPhone
	}
	if addr.Email == "" {
		addr.Email = order.ContactEmail
	}
	return addr, nil
}

func (s *FulfillmentService) pickupAddress(order *ports.CRMOrder) domain.Address {
	if order.Origin != nil {
		addr := order.Origin.Normalize(s.config.DefaultCountry)
		if addr.Address1 != "" {
			return addr
		}
	}
	return s.config.DefaultOrigin
}
