package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"delyva-shipping-layer/internal/domain"
	"delyva-shipping-layer/internal/ports"
)

// fakeIntegrationRepo is an in-memory ports.IntegrationRepository.
type fakeIntegrationRepo struct {
	integrations map[string]*domain.Integration
}

func newFakeIntegrationRepo(integrations ...*domain.Integration) *fakeIntegrationRepo {
	repo := &fakeIntegrationRepo{integrations: map[string]*domain.Integration{}}
	for _, i := range integrations {
		repo.integrations[i.LocationID] = i
	}
	return repo
}

func (r *fakeIntegrationRepo) GetByLocationID(_ context.Context, locationID string) (*domain.Integration, error) {
	integration, ok := r.integrations[locationID]
	if !ok {
		return nil, nil
	}
	clone := *integration
	return &clone, nil
}

func (r *fakeIntegrationRepo) Upsert(_ context.Context, integration *domain.Integration) error {
	clone := *integration
	r.integrations[integration.LocationID] = &clone
	return nil
}

func (r *fakeIntegrationRepo) SetTokens(_ context.Context, locationID, accessToken, refreshToken string) error {
	integration, ok := r.integrations[locationID]
	if !ok {
		return domain.ErrIntegrationNotFound
	}
	integration.AccessToken = accessToken
	if refreshToken != "" {
		integration.RefreshToken = refreshToken
	}
	return nil
}

func (r *fakeIntegrationRepo) SetCarrierID(_ context.Context, locationID, carrierID string) error {
	integration, ok := r.integrations[locationID]
	if !ok {
		return domain.ErrIntegrationNotFound
	}
	integration.CarrierID = carrierID
	return nil
}

func (r *fakeIntegrationRepo) SetShippingEnabled(_ context.Context, locationID string, enabled bool) error {
	integration, ok := r.integrations[locationID]
	if !ok {
		return domain.ErrIntegrationNotFound
	}
	integration.ShippingEnabled = enabled
	return nil
}

func (r *fakeIntegrationRepo) ClearDelyvaCredentials(_ context.Context, locationID string) error {
	integration, ok := r.integrations[locationID]
	if !ok {
		return domain.ErrIntegrationNotFound
	}
	integration.DelyvaAPIKey = ""
	integration.DelyvaAPISecret = ""
	integration.DelyvaCustomerID = ""
	integration.DelyvaCompanyCode = ""
	return nil
}

// fakeShipmentRepo is an in-memory ports.ShipmentRepository keyed the same
// way the Mongo unique index is.
type fakeShipmentRepo struct {
	shipments map[string]*domain.Shipment
}

func newFakeShipmentRepo() *fakeShipmentRepo {
	return &fakeShipmentRepo{shipments: map[string]*domain.Shipment{}}
}

func shipmentKey(locationID, crmOrderID string) string {
	return locationID + "/" + crmOrderID
}

func (r *fakeShipmentRepo) GetByOrder(_ context.Context, locationID, crmOrderID string) (*domain.Shipment, error) {
	shipment, ok := r.shipments[shipmentKey(locationID, crmOrderID)]
	if !ok {
		return nil, nil
	}
	clone := *shipment
	return &clone, nil
}

func (r *fakeShipmentRepo) GetByDelyvaOrderID(_ context.Context, delyvaOrderID string) (*domain.Shipment, error) {
	for _, shipment := range r.shipments {
		if shipment.DelyvaOrderID == delyvaOrderID {
			clone := *shipment
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *fakeShipmentRepo) GetByTrackingNumber(_ context.Context, trackingNumber string) (*domain.Shipment, error) {
	for _, shipment := range r.shipments {
		if shipment.TrackingNumber == trackingNumber {
			clone := *shipment
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *fakeShipmentRepo) ListByLocation(_ context.Context, locationID string) ([]*domain.Shipment, error) {
	var out []*domain.Shipment
	for _, shipment := range r.shipments {
		if shipment.LocationID == locationID {
			clone := *shipment
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeShipmentRepo) Claim(_ context.Context, shipment *domain.Shipment) (*domain.Shipment, bool, error) {
	key := shipmentKey(shipment.LocationID, shipment.CRMOrderID)
	if existing, ok := r.shipments[key]; ok {
		clone := *existing
		return &clone, false, nil
	}
	clone := *shipment
	r.shipments[key] = &clone
	result := clone
	return &result, true, nil
}

func (r *fakeShipmentRepo) Update(_ context.Context, shipment *domain.Shipment) error {
	key := shipmentKey(shipment.LocationID, shipment.CRMOrderID)
	if _, ok := r.shipments[key]; !ok {
		return domain.ErrShipmentNotFound
	}
	clone := *shipment
	r.shipments[key] = &clone
	return nil
}

// fakeCrypto marks values instead of encrypting them, so tests can assert
// what was stored.
type fakeCrypto struct{}

func (fakeCrypto) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	return "enc:" + plaintext, nil
}

func (fakeCrypto) Decrypt(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}
	if !strings.HasPrefix(ciphertext, "enc:") {
		return "", errors.New("not encrypted")
	}
	return strings.TrimPrefix(ciphertext, "enc:"), nil
}

func encrypted(plaintext string) string { return "enc:" + plaintext }

// fakeHighLevel records calls and returns scripted responses.
type fakeHighLevel struct {
	refreshCalls     int
	refreshErr       error
	refreshedPair    *domain.TokenPair
	userInfo         *ports.CRMUserInfo
	userInfoErr      error
	order            *ports.CRMOrder
	orderErr         error
	orderHook        func() error
	exchangePair     *domain.TokenPair
	exchangeErr      error
	registerCalls    int
	registerErr      error
	carrierID        string
	deleteCarrierErr error
	deleteCalls      int
	updateCarrierErr error
	fulfillments     []ports.Fulfillment
	fulfillmentErr   error
	statusUpdates    []ports.OrderStatusUpdate
	statusUpdateErr  error
	listOrdersBody   json.RawMessage

	// seenTokens records the bearer token of every authenticated call, so
	// tests can assert the refreshed token was actually used on retry.
	seenTokens []string
}

func unauthorized() error {
	return &domain.RemoteCallError{Service: "highlevel", Operation: "test", StatusCode: 401, BodyPreview: "unauthorized"}
}

func (f *fakeHighLevel) ExchangeCode(_ context.Context, _, _ string) (*domain.TokenPair, error) {
	return f.exchangePair, f.exchangeErr
}

func (f *fakeHighLevel) RefreshToken(_ context.Context, _ string) (*domain.TokenPair, error) {
	f.refreshCalls++
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	if f.refreshedPair != nil {
		return f.refreshedPair, nil
	}
	return &domain.TokenPair{AccessToken: "refreshed-access", RefreshToken: "refreshed-refresh"}, nil
}

func (f *fakeHighLevel) GetUserInfo(_ context.Context, accessToken string) (*ports.CRMUserInfo, error) {
	f.seenTokens = append(f.seenTokens, accessToken)
	return f.userInfo, f.userInfoErr
}

func (f *fakeHighLevel) GetOrder(_ context.Context, accessToken, _ string) (*ports.CRMOrder, error) {
	f.seenTokens = append(f.seenTokens, accessToken)
	if f.orderHook != nil {
		if err := f.orderHook(); err != nil {
			return nil, err
		}
	}
	return f.order, f.orderErr
}

func (f *fakeHighLevel) ListOrders(_ context.Context, accessToken, _ string) (json.RawMessage, error) {
	f.seenTokens = append(f.seenTokens, accessToken)
	return f.listOrdersBody, nil
}

func (f *fakeHighLevel) CreateFulfillment(_ context.Context, accessToken, _ string, fulfillment ports.Fulfillment) error {
	f.seenTokens = append(f.seenTokens, accessToken)
	if f.fulfillmentErr != nil {
		return f.fulfillmentErr
	}
	f.fulfillments = append(f.fulfillments, fulfillment)
	return nil
}

func (f *fakeHighLevel) UpdateOrderStatus(_ context.Context, accessToken, _ string, update ports.OrderStatusUpdate) error {
	f.seenTokens = append(f.seenTokens, accessToken)
	if f.statusUpdateErr != nil {
		return f.statusUpdateErr
	}
	f.statusUpdates = append(f.statusUpdates, update)
	return nil
}

func (f *fakeHighLevel) RegisterCarrier(_ context.Context, accessToken string, _ ports.CarrierRegistration) (string, error) {
	f.seenTokens = append(f.seenTokens, accessToken)
	f.registerCalls++
	if f.registerErr != nil {
		return "", f.registerErr
	}
	if f.carrierID != "" {
		return f.carrierID, nil
	}
	return "carrier-1", nil
}

func (f *fakeHighLevel) GetCarrier(_ context.Context, accessToken, _ string) (json.RawMessage, error) {
	f.seenTokens = append(f.seenTokens, accessToken)
	return json.RawMessage(`{"id":"carrier-1"}`), nil
}

func (f *fakeHighLevel) UpdateCarrier(_ context.Context, accessToken, _ string, _ ports.CarrierUpdate) (json.RawMessage, error) {
	f.seenTokens = append(f.seenTokens, accessToken)
	if f.updateCarrierErr != nil {
		return nil, f.updateCarrierErr
	}
	return json.RawMessage(`{"id":"carrier-1"}`), nil
}

func (f *fakeHighLevel) DeleteCarrier(_ context.Context, accessToken, _ string) error {
	f.seenTokens = append(f.seenTokens, accessToken)
	f.deleteCalls++
	return f.deleteCarrierErr
}

// fakeDelyva records calls and returns scripted responses.
type fakeDelyva struct {
	quotes       []ports.QuoteService
	quoteErr     error
	quoteCalls   int
	lastQuote    ports.QuoteRequest
	createdOrder *ports.DelyvaOrder
	createErr    error
	createCalls  int
	lastCreate   ports.DelyvaOrderRequest
	processErr   error
	processCalls int
	order        *ports.DelyvaOrder
	orderErr     error
	account      *ports.DelyvaAccount
	accountErr   error
	couriers     json.RawMessage

	seenKeys []string
}

func (f *fakeDelyva) InstantQuote(_ context.Context, creds ports.DelyvaCredentials, req ports.QuoteRequest) ([]ports.QuoteService, error) {
	f.seenKeys = append(f.seenKeys, creds.APIKey)
	f.quoteCalls++
	f.lastQuote = req
	return f.quotes, f.quoteErr
}

func (f *fakeDelyva) CreateOrder(_ context.Context, creds ports.DelyvaCredentials, req ports.DelyvaOrderRequest) (*ports.DelyvaOrder, error) {
	f.seenKeys = append(f.seenKeys, creds.APIKey)
	f.createCalls++
	f.lastCreate = req
	return f.createdOrder, f.createErr
}

func (f *fakeDelyva) ProcessOrder(_ context.Context, creds ports.DelyvaCredentials, _, _ string) error {
	f.seenKeys = append(f.seenKeys, creds.APIKey)
	f.processCalls++
	return f.processErr
}

func (f *fakeDelyva) GetOrder(_ context.Context, creds ports.DelyvaCredentials, _ string) (*ports.DelyvaOrder, error) {
	f.seenKeys = append(f.seenKeys, creds.APIKey)
	return f.order, f.orderErr
}

func (f *fakeDelyva) ListCouriers(_ context.Context, creds ports.DelyvaCredentials) (json.RawMessage, error) {
	f.seenKeys = append(f.seenKeys, creds.APIKey)
	return f.couriers, nil
}

func (f *fakeDelyva) ValidateCredentials(_ context.Context, creds ports.DelyvaCredentials) (*ports.DelyvaAccount, error) {
	f.seenKeys = append(f.seenKeys, creds.APIKey)
	if f.accountErr != nil {
		return nil, f.accountErr
	}
	if f.account != nil {
		return f.account, nil
	}
	return &ports.DelyvaAccount{CustomerID: "100", Name: "Test Account"}, nil
}

// fakeQuoteCache is an in-memory ports.QuoteCache.
type fakeQuoteCache struct {
	entries map[string][]domain.Rate
	gets    int
	sets    int
}

func newFakeQuoteCache() *fakeQuoteCache {
	return &fakeQuoteCache{entries: map[string][]domain.Rate{}}
}

func quoteCacheKey(locationID string, origin, destination domain.Address, weightKg float64) string {
	return fmt.Sprintf("%s|%s|%s|%.3f", locationID, origin.Postcode, destination.Postcode, weightKg)
}

func (c *fakeQuoteCache) Get(_ context.Context, locationID string, origin, destination domain.Address, weightKg float64) ([]domain.Rate, error) {
	c.gets++
	return c.entries[quoteCacheKey(locationID, origin, destination, weightKg)], nil
}

func (c *fakeQuoteCache) Set(_ context.Context, locationID string, origin, destination domain.Address, weightKg float64, rates []domain.Rate, _ time.Duration) error {
	c.sets++
	c.entries[quoteCacheKey(locationID, origin, destination, weightKg)] = rates
	return nil
}
