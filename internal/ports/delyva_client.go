package ports

import (
	"context"
	"encoding/json"

	"delyva-shipping-layer/internal/domain"
)

// DelyvaCredentials is the per-call credential set for the Delyva API,
// already decrypted.
type DelyvaCredentials struct {
	APIKey     string
	CustomerID string
}

// QuoteRequest is one instant-quote call: a parcel of the given chargeable
// weight between two normalized addresses.
type QuoteRequest struct {
	Origin      domain.Address
	Destination domain.Address
	WeightKg    float64
}

// QuoteService is one service offering returned by the instant-quote call.
type QuoteService struct {
	ServiceCode string
	ServiceName string
	Amount      float64
	Currency    string
}

// Waypoint is one leg of a Delyva order, either pickup or dropoff.
type Waypoint struct {
	Type    string
	Address domain.Address
}

// DelyvaOrderRequest creates a provider order. Process false creates a
// draft; the order becomes billable only after a separate process call.
type DelyvaOrderRequest struct {
	CustomerID  string
	ServiceCode string
	ReferenceNo string
	Note        string
	Process     bool
	Pickup      Waypoint
	Dropoff     Waypoint
}

// DelyvaOrder is the provider-side order state the bridge tracks.
type DelyvaOrder struct {
	ID            string
	Status        string
	ConsignmentNo string
	Raw           json.RawMessage
}

// DelyvaAccount identifies the credential owner, returned by the
// credential-validation call.
type DelyvaAccount struct {
	CustomerID string
	Name       string
}

// DelyvaClient is the outbound interface to the Delyva shipping API,
// authenticated per call with the location's API key.
type DelyvaClient interface {
	InstantQuote(ctx context.Context, creds DelyvaCredentials, req QuoteRequest) ([]QuoteService, error)
	CreateOrder(ctx context.Context, creds DelyvaCredentials, req DelyvaOrderRequest) (*DelyvaOrder, error)
	ProcessOrder(ctx context.Context, creds DelyvaCredentials, orderID, serviceCode string) error
	GetOrder(ctx context.Context, creds DelyvaCredentials, orderID string) (*DelyvaOrder, error)
	ListCouriers(ctx context.Context, creds DelyvaCredentials) (json.RawMessage, error)

	// ValidateCredentials performs a live call and reports whether the
	// credentials are accepted, without persisting anything.
	ValidateCredentials(ctx context.Context, creds DelyvaCredentials) (*DelyvaAccount, error)
}
