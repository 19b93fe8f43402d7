package ports

import (
	"context"

	"delyva-shipping-layer/internal/domain"
)

// IntegrationRepository persists the per-location Integration record.
// Lookups return (nil, nil) when no record exists.
type IntegrationRepository interface {
	GetByLocationID(ctx context.Context, locationID string) (*domain.Integration, error)

	// Upsert creates or replaces the record keyed by location ID, preserving
	// CreatedAt on update.
	Upsert(ctx context.Context, integration *domain.Integration) error

	// SetTokens replaces the stored OAuth token pair. An empty refresh token
	// leaves the existing one in place (providers may omit it on refresh).
	SetTokens(ctx context.Context, locationID, accessToken, refreshToken string) error

	// SetCarrierID stores the registered carrier ID; an empty value clears it.
	SetCarrierID(ctx context.Context, locationID, carrierID string) error

	SetShippingEnabled(ctx context.Context, locationID string, enabled bool) error

	// ClearDelyvaCredentials removes the Delyva credential fields, leaving
	// the CRM tokens untouched.
	ClearDelyvaCredentials(ctx context.Context, locationID string) error
}

// ShipmentRepository persists Shipment records. Records are never deleted.
// Lookups return (nil, nil) when no record matches.
type ShipmentRepository interface {
	GetByOrder(ctx context.Context, locationID, crmOrderID string) (*domain.Shipment, error)
	GetByDelyvaOrderID(ctx context.Context, delyvaOrderID string) (*domain.Shipment, error)
	GetByTrackingNumber(ctx context.Context, trackingNumber string) (*domain.Shipment, error)
	ListByLocation(ctx context.Context, locationID string) ([]*domain.Shipment, error)

	// Claim inserts the shipment if no record exists for its
	// (location, order) pair, relying on a unique index so concurrent claims
	// cannot both insert. When a record already exists the existing record
	// is returned and created is false.
	Claim(ctx context.Context, shipment *domain.Shipment) (existing *domain.Shipment, created bool, err error)

	Update(ctx context.Context, shipment *domain.Shipment) error
}
