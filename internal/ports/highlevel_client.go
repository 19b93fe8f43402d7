package ports

import (
	"context"
	"encoding/json"

	"delyva-shipping-layer/internal/domain"
)

// CRMOrder is the subset of a HighLevel order the bridge needs, plus the
// raw body for snapshotting.
type CRMOrder struct {
	ID               string
	OrderNumber      string
	Status           string
	RequiresShipping bool
	Origin           *domain.RawAddress
	Destination      *domain.RawAddress
	ShippingMethod   string
	ContactName      string
	ContactPhone     string
	ContactEmail     string
	Raw              json.RawMessage
}

// CRMUserInfo is the result of the current-user endpoint, used as the
// last-resort location resolver during the OAuth callback.
type CRMUserInfo struct {
	LocationID string
	CompanyID  string
	UserID     string
}

// Fulfillment is the tracking payload pushed back to a HighLevel order.
type Fulfillment struct {
	LocationID     string
	TrackingNumber string
	TrackingURL    string
	CarrierName    string
	NotifyCustomer bool
}

// OrderStatusUpdate is the status payload pushed to a HighLevel order after
// a shipment status change.
type OrderStatusUpdate struct {
	ShippingStatus string
	TrackingNumber string
	Notes          string
}

// CarrierRegistration registers a shipping carrier whose rate callback
// HighLevel invokes during checkout.
type CarrierRegistration struct {
	LocationID  string
	Name        string
	CallbackURL string
}

// CarrierUpdate carries the allow-listed mutable carrier fields. Nil
// pointers are omitted from the remote call.
type CarrierUpdate struct {
	Name              *string  `json:"name,omitempty"`
	Description       *string  `json:"description,omitempty"`
	IsActive          *bool    `json:"isActive,omitempty"`
	SupportedServices []string `json:"supportedServices,omitempty"`
}

// HighLevelClient is the outbound interface to the HighLevel OAuth server
// and REST API. All calls are bearer-token authenticated except the OAuth
// ones; 401 responses surface as *domain.RemoteCallError with status 401 so
// the token manager can refresh and retry.
type HighLevelClient interface {
	ExchangeCode(ctx context.Context, code, redirectURI string) (*domain.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*domain.TokenPair, error)
	GetUserInfo(ctx context.Context, accessToken string) (*CRMUserInfo, error)

	GetOrder(ctx context.Context, accessToken, orderID string) (*CRMOrder, error)
	ListOrders(ctx context.Context, accessToken, locationID string) (json.RawMessage, error)
	CreateFulfillment(ctx context.Context, accessToken, orderID string, fulfillment Fulfillment) error
	UpdateOrderStatus(ctx context.Context, accessToken, orderID string, update OrderStatusUpdate) error

	RegisterCarrier(ctx context.Context, accessToken string, reg CarrierRegistration) (carrierID string, err error)
	GetCarrier(ctx context.Context, accessToken, carrierID string) (json.RawMessage, error)
	UpdateCarrier(ctx context.Context, accessToken, carrierID string, update CarrierUpdate) (json.RawMessage, error)
	DeleteCarrier(ctx context.Context, accessToken, carrierID string) error
}
