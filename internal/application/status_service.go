package application

import (
	"context"
	"fmt"
	"time"

	"delyva-shipping-layer/internal/domain"
	"delyva-shipping-layer/internal/ports"

	"github.com/rs/zerolog"
)

// StatusService keeps shipment status in sync with Delyva, from webhook
// pushes and from manual pulls, and mirrors changes onto the HighLevel
// order.
type StatusService struct {
	integrations ports.IntegrationRepository
	shipments    ports.ShipmentRepository
	highlevel    ports.HighLevelClient
	delyva       ports.DelyvaClient
	tokens       *TokenService
	crypto       ports.EncryptionService
	logger       zerolog.Logger
	now          func() time.Time
}

func NewStatusService(
	integrations ports.IntegrationRepository,
	shipments ports.ShipmentRepository,
	highlevel ports.HighLevelClient,
	delyva ports.DelyvaClient,
	tokens *TokenService,
	crypto ports.EncryptionService,
	logger zerolog.Logger,
) *StatusService {
	return &StatusService{
		integrations: integrations,
		shipments:    shipments,
		highlevel:    highlevel,
		delyva:       delyva,
		tokens:       tokens,
		crypto:       crypto,
		logger:       logger,
		now:          time.Now,
	}
}

// HandleWebhookEvent applies a Delyva status webhook to the matching
// shipment. Unknown event types are rejected without touching state.
// A repeat delivery of the same event is a no-op.
func (s *StatusService) HandleWebhookEvent(ctx context.Context, event *domain.StatusEvent) (*domain.Shipment, error) {
	status, ok := domain.MapDelyvaEvent(event.EventType)
	if !ok {
		return nil, &domain.UnknownEventTypeError{EventType: event.EventType}
	}

	shipment, err := s.lookupShipment(ctx, event.DelyvaOrderID, event.TrackingNumber)
	if err != nil {
		return nil, err
	}

	if event.TrackingNumber != "" && shipment.TrackingNumber == "" {
		shipment.TrackingNumber = event.TrackingNumber
	}
	shipment.DelyvaOrderSnapshot = event.Payload

	if !shipment.ApplyStatus(status, s.now()) {
		s.logger.Debug().
			Str("delyva_order_id", shipment.DelyvaOrderID).
			Str("status", string(status)).
			Msg("Status unchanged, skipping")
		return shipment, nil
	}
	shipment.UpdatedAt = s.now()
	if err := s.shipments.Update(ctx, shipment); err != nil {
		return nil, err
	}

	s.pushStatus(ctx, shipment, status)

	s.logger.Info().
		Str("location_id", shipment.LocationID).
		Str("crm_order_id", shipment.CRMOrderID).
		Str("status", string(status)).
		Msg("Shipment status updated")
	return shipment, nil
}

// SyncOrder pulls the current order state from Delyva and applies it, for
// shipments whose webhooks were missed. An unchanged status is a no-op.
func (s *StatusService) SyncOrder(ctx context.Context, locationID, crmOrderID string) (*domain.Shipment, error) {
	shipment, err := s.shipments.GetByOrder(ctx, locationID, crmOrderID)
	if err != nil {
		return nil, err
	}
	if shipment == nil {
		return nil, domain.ErrShipmentNotFound
	}
	if shipment.DelyvaOrderID == "" {
		return nil, &domain.ValidationError{Message: "shipment has no Delyva order to sync from"}
	}

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
		return nil, fmt.Errorf("failed to decrypt delyva api key: %w", err)
	}

	remote, err := s.delyva.GetOrder(ctx, ports.DelyvaCredentials{
		APIKey:     apiKey,
		CustomerID: integration.DelyvaCustomerID,
	}, shipment.DelyvaOrderID)
	if err != nil {
		return nil, err
	}

	shipment.DelyvaOrderSnapshot = remote.Raw
	if remote.ConsignmentNo != "" && shipment.TrackingNumber == "" {
		shipment.TrackingNumber = remote.ConsignmentNo
	}

	status, ok := domain.MapDelyvaStatus(remote.Status)
	if !ok {
		s.logger.Warn().
			Str("delyva_order_id", shipment.DelyvaOrderID).
			Str("remote_status", remote.Status).
			Msg("Unmapped Delyva status, keeping current")
		return shipment, nil
	}
	if !shipment.ApplyStatus(status, s.now()) {
		return shipment, nil
	}

	shipment.UpdatedAt = s.now()
	if err := s.shipments.Update(ctx, shipment); err != nil {
		return nil, err
	}

	s.pushStatus(ctx, shipment, status)
	return shipment, nil
}

// pushStatus mirrors a status change onto the HighLevel order. Failures
// are logged and swallowed; the local record is already updated and the
// next change will push again.
func (s *StatusService) pushStatus(ctx context.Context, shipment *domain.Shipment, status domain.ShipmentStatus) {
	err := s.tokens.WithAutoRefresh(ctx, shipment.LocationID, func(accessToken string) error {
		return s.highlevel.UpdateOrderStatus(ctx, accessToken, shipment.CRMOrderID, ports.OrderStatusUpdate{
			ShippingStatus: string(status),
			TrackingNumber: shipment.TrackingNumber,
			Notes:          domain.StatusNote(status),
		})
	})
	if err != nil {
		s.logger.Error().Err(err).
			Str("location_id", shipment.LocationID).
			Str("crm_order_id", shipment.CRMOrderID).
			Msg("Failed to push status to HighLevel")
	}
}

func (s *StatusService) lookupShipment(ctx context.Context, delyvaOrderID, trackingNumber string) (*domain.Shipment, error) {
	if delyvaOrderID != "" {
		shipment, err := s.shipments.GetByDelyvaOrderID(ctx, delyvaOrderID)
		if err != nil {
			return nil, err
		}
		if shipment != nil {
			return shipment, nil
		}
	}
	if trackingNumber != "" {
		shipment, err := s.shipments.GetByTrackingNumber(ctx, trackingNumber)
		if err != nil {
			return nil, err
		}
		if shipment != nil {
			return shipment, nil
		}
	}
	return nil, domain.ErrShipmentNotFound
}
