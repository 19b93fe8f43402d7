package delyva

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"delyva-shipping-layer/internal/domain"
	"delyva-shipping-layer/internal/ports"

	"github.com/rs/zerolog"
)

const (
	accessTokenHeader = "X-Delyvax-Access-Token"
	bodyPreviewLen    = 200
)

type client struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a Delyva API client. Credentials are per-call because
// every location carries its own API key.
func NewClient(baseURL string, logger zerolog.Logger) ports.DelyvaClient {
	return &client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

type quotePayload struct {
	CustomerID  int            `json:"customerId,omitempty"`
	Origin      domain.Address `json:"origin"`
	Destination domain.Address `json:"destination"`
	Weight      struct {
		Unit  string  `json:"unit"`
		Value float64 `json:"value"`
	} `json:"weight"`
	ItemType string `json:"itemType"`
}

type quoteResponse struct {
	Services []struct {
		Service struct {
			Code string `json:"code"`
			Name string `json:"name"`
		} `json:"service"`
		ServiceCompany struct {
			Name string `json:"name"`
		} `json:"serviceCompany"`
		Price struct {
			Amount   float64 `json:"amount"`
			Currency string  `json:"currency"`
		} `json:"price"`
	} `json:"services"`
}

// InstantQuote fetches rate quotes for a parcel between two addresses.
func (c *client) InstantQuote(ctx context.Context, creds ports.DelyvaCredentials, req ports.QuoteRequest) ([]ports.QuoteService, error) {
	payload := quotePayload{
		Origin:      req.Origin,
		Destination: req.Destination,
		ItemType:    "PARCEL",
	}
	payload.Weight.Unit = "kg"
	payload.Weight.Value = req.WeightKg
	if id, err := strconv.Atoi(creds.CustomerID); err == nil && id > 0 {
		payload.CustomerID = id
	}

	body, err := c.call(ctx, creds, http.MethodPost, "/v1.0/service/instantQuote", payload)
	if err != nil {
		return nil, err
	}

	var raw quoteResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse quote response: %w", err)
	}

	services := make([]ports.QuoteService, 0, len(raw.Services))
	for _, svc := range raw.Services {
		name := svc.ServiceCompany.Name
		if name == "" {
			name = svc.Service.Name
		}
		services = append(services, ports.QuoteService{
			ServiceCode: svc.Service.Code,
			ServiceName: name,
			Amount:      svc.Price.Amount,
			Currency:    svc.Price.Currency,
		})
	}
	return services, nil
}

type orderPayload struct {
	CustomerID  int             `json:"customerId,omitempty"`
	Process     bool            `json:"process"`
	ServiceCode string          `json:"serviceCode"`
	Source      string          `json:"source"`
	ReferenceNo string          `json:"referenceNo"`
	Note        string          `json:"note"`
	Waypoint    []waypointEntry `json:"waypoint"`
}

type waypointEntry struct {
	Type     string `json:"type"`
	Address1 string `json:"address1"`
	City     string `json:"city"`
	State    string `json:"state"`
	Postcode string `json:"postcode"`
	Country  string `json:"country"`
	Contact  struct {
		Name  string `json:"name"`
		Phone string `json:"phone"`
		Email string `json:"email"`
	} `json:"contact"`
	Inventory []any `json:"inventory"`
}

func toWaypoint(w ports.Waypoint) waypointEntry {
	entry := waypointEntry{
		Type:      w.Type,
		Address1:  w.Address.Address1,
		City:      w.Address.City,
		State:     w.Address.State,
		Postcode:  w.Address.Postcode,
		Country:   w.Address.Country,
		Inventory: []any{},
	}
	entry.Contact.Name = w.Address.Name
	entry.Contact.Phone = w.Address.Phone
	entry.Contact.Email = w.Address.Email
	return entry
}

type orderResponse struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	ConsignmentNo string `json:"consignmentNo"`
	Data          *struct {
		ID            string `json:"id"`
		Status        string `json:"status"`
		ConsignmentNo string `json:"consignmentNo"`
	} `json:"data"`
}

func (r *orderResponse) normalize() (id, status, consignmentNo string) {
	id, status, consignmentNo = r.ID, r.Status, r.ConsignmentNo
	if r.Data != nil {
		if r.Data.ID != "" {
			id = r.Data.ID
		}
		if r.Data.Status != "" {
			status = r.Data.Status
		}
		if r.Data.ConsignmentNo != "" {
			consignmentNo = r.Data.ConsignmentNo
		}
	}
	return id, status, consignmentNo
}

// CreateOrder creates a provider order; with Process false it stays a draft
// until ProcessOrder confirms it.
func (c *client) CreateOrder(ctx context.Context, creds ports.DelyvaCredentials, req ports.DelyvaOrderRequest) (*ports.DelyvaOrder, error) {
	payload := orderPayload{
		Process:     req.Process,
		ServiceCode: req.ServiceCode,
		Source:      "HighLevel",
		ReferenceNo: req.ReferenceNo,
		Note:        req.Note,
		Waypoint:    []waypointEntry{toWaypoint(req.Pickup), toWaypoint(req.Dropoff)},
	}
	if id, err := strconv.Atoi(req.CustomerID); err == nil && id > 0 {
		payload.CustomerID = id
	}

	body, err := c.call(ctx, creds, http.MethodPost, "/v1.0/order", payload)
	if err != nil {
		return nil, err
	}

	var raw orderResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse order response: %w", err)
	}
	id, status, consignmentNo := raw.normalize()
	if id == "" {
		return nil, &domain.RemoteCallError{
			Service:     "delyva",
			Operation:   "create order",
			StatusCode:  http.StatusOK,
			BodyPreview: "order created but no ID returned",
		}
	}
	return &ports.DelyvaOrder{
		ID:            id,
		Status:        status,
		ConsignmentNo: consignmentNo,
		Raw:           json.RawMessage(body),
	}, nil
}

// ProcessOrder confirms a draft order, making it billable.
func (c *client) ProcessOrder(ctx context.Context, creds ports.DelyvaCredentials, orderID, serviceCode string) error {
	payload := map[string]string{"serviceCode": serviceCode}
	_, err := c.call(ctx, creds, http.MethodPost, "/v1.0/order/"+orderID+"/process", payload)
	return err
}

// GetOrder fetches the current provider-side order state.
func (c *client) GetOrder(ctx context.Context, creds ports.DelyvaCredentials, orderID string) (*ports.DelyvaOrder, error) {
	body, err := c.call(ctx, creds, http.MethodGet, "/v1.0/order/"+orderID, nil)
	if err != nil {
		return nil, err
	}

	var raw orderResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse order response: %w", err)
	}
	id, status, consignmentNo := raw.normalize()
	return &ports.DelyvaOrder{
		ID:            id,
		Status:        status,
		ConsignmentNo: consignmentNo,
		Raw:           json.RawMessage(body),
	}, nil
}

// ListCouriers fetches the couriers available to the credential owner.
func (c *client) ListCouriers(ctx context.Context, creds ports.DelyvaCredentials) (json.RawMessage, error) {
	return c.call(ctx, creds, http.MethodGet, "/v1.0/couriers", nil)
}

// ValidateCredentials performs a live profile call to check the API key.
func (c *client) ValidateCredentials(ctx context.Context, creds ports.DelyvaCredentials) (*ports.DelyvaAccount, error) {
	body, err := c.call(ctx, creds, http.MethodGet, "/v1.0/customer", nil)
	if err != nil {
		return nil, err
	}

	var raw struct {
		Data []struct {
			ID   json.Number `json:"id"`
			Name string      `json:"name"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse customer response: %w", err)
	}
	account := &ports.DelyvaAccount{}
	if len(raw.Data) > 0 {
		account.CustomerID = raw.Data[0].ID.String()
		account.Name = raw.Data[0].Name
	}
	return account, nil
}

func (c *client) call(ctx context.Context, creds ports.DelyvaCredentials, method, path string, payload any) (json.RawMessage, error) {
	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set(accessTokenHeader, creds.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &domain.RemoteCallError{Service: "delyva", Operation: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.RemoteCallError{Service: "delyva", Operation: method + " " + path, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn().
			Int("status", resp.StatusCode).
			Str("path", path).
			Msg("Delyva API call failed")
		return nil, &domain.RemoteCallError{
			Service:     "delyva",
			Operation:   method + " " + path,
			StatusCode:  resp.StatusCode,
			BodyPreview: preview(body),
		}
	}
	return json.RawMessage(body), nil
}

func preview(body []byte) string {
	if len(body) > bodyPreviewLen {
		return string(body[:bodyPreviewLen]) + "..."
	}
	return string(body)
}
