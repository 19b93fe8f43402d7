package highlevel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"delyva-shipping-layer/internal/domain"
	"delyva-shipping-layer/internal/ports"

	"github.com/rs/zerolog"
)

// apiVersion is the HighLevel API version header sent on every REST call.
const apiVersion = "2021-07-28"

const bodyPreviewLen = 200

// Config carries the HighLevel app credentials and endpoints.
type Config struct {
	ClientID     string
	ClientSecret string
	BaseURL      string // REST API, e.g. https://services.leadconnectorhq.com
	OAuthURL     string // token endpoint host, e.g. https://api.msgsndr.com
}

type client struct {
	cfg        Config
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a HighLevel API client. All calls share a bounded
// timeout; nothing here retries, the token manager owns the 401 retry.
func NewClient(cfg Config, logger zerolog.Logger) ports.HighLevelClient {
	return &client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// AuthorizeURL builds the marketplace chooselocation URL the install flow
// redirects merchants to.
func AuthorizeURL(clientID, redirectURI string, scopes []string) string {
	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", clientID)
	q.Set("redirect_uri", redirectURI)
	q.Set("scope", strings.Join(scopes, " "))
	return "https://marketplace.leadconnectorhq.com/oauth/chooselocation?" + q.Encode()
}

type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	LocationID       string `json:"locationId"`
	CompanyID        string `json:"companyId"`
	UserID           string `json:"userId"`
	UserType         string `json:"userType"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// ExchangeCode exchanges an authorization code for a token pair.
func (c *client) ExchangeCode(ctx context.Context, code, redirectURI string) (*domain.TokenPair, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	if redirectURI != "" {
		form.Set("redirect_uri", redirectURI)
	}
	return c.tokenCall(ctx, form)
}

// RefreshToken exchanges a refresh token for a new token pair.
func (c *client) RefreshToken(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	return c.tokenCall(ctx, form)
}

func (c *client) tokenCall(ctx context.Context, form url.Values) (*domain.TokenPair, error) {
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)

	endpoint := c.cfg.OAuthURL + "/oauth/token"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &domain.RemoteCallError{Service: "highlevel", Operation: "oauth/token", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.RemoteCallError{Service: "highlevel", Operation: "oauth/token", Err: err}
	}

	var tr tokenResponse
	_ = json.Unmarshal(body, &tr)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || tr.AccessToken == "" {
		c.logger.Warn().
			Int("status", resp.StatusCode).
			Str("error", tr.Error).
			Msg("HighLevel token call failed")
		return nil, &domain.OAuthExchangeError{
			StatusCode:  resp.StatusCode,
			Code:        tr.Error,
			Description: tr.ErrorDescription,
		}
	}

	return &domain.TokenPair{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		LocationID:   tr.LocationID,
		CompanyID:    tr.CompanyID,
		UserID:       tr.UserID,
		UserType:     tr.UserType,
	}, nil
}

// GetUserInfo fetches the current user for the given token. Used as the
// last-resort location resolver during the OAuth callback.
func (c *client) GetUserInfo(ctx context.Context, accessToken string) (*ports.CRMUserInfo, error) {
	body, err := c.call(ctx, accessToken, http.MethodGet, "/users/me", nil)
	if err != nil {
		return nil, err
	}
	var info struct {
		LocationID string   `json:"locationId"`
		Locations  []string `json:"locations"`
		CompanyID  string   `json:"companyId"`
		ID         string   `json:"id"`
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("failed to parse userinfo response: %w", err)
	}
	locationID := info.LocationID
	if locationID == "" && len(info.Locations) > 0 {
		locationID = info.Locations[0]
	}
	return &ports.CRMUserInfo{
		LocationID: locationID,
		CompanyID:  info.CompanyID,
		UserID:     info.ID,
	}, nil
}

type orderResponse struct {
	ID               string  `json:"_id"`
	AltID            string  `json:"altId"`
	OrderNumber      string  `json:"orderNumber"`
	Status           string  `json:"status"`
	RequiresShipping *bool   `json:"requiresShipping"`
	Shipping         *struct {
		Origin     *domain.RawAddress `json:"origin"`
		Address    *domain.RawAddress `json:"address"`
		MethodName string             `json:"methodName"`
	} `json:"shipping"`
	Address *domain.RawAddress `json:"address"`
	Contact *struct {
		Name  string `json:"name"`
		Phone string `json:"phone"`
		Email string `json:"email"`
	} `json:"contact"`
}

// GetOrder fetches a full order from the payments API.
func (c *client) GetOrder(ctx context.Context, accessToken, orderID string) (*ports.CRMOrder, error) {
	body, err := c.call(ctx, accessToken, http.MethodGet, "/payments/orders/"+orderID, nil)
	if err != nil {
		return nil, err
	}

	var raw orderResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse order response: %w", err)
	}

	order := &ports.CRMOrder{
		ID:          orderID,
		OrderNumber: raw.OrderNumber,
		Status:      raw.Status,
		// Orders without an explicit flag are treated as shippable.
		RequiresShipping: raw.RequiresShipping == nil || *raw.RequiresShipping,
		Destination:      raw.Address,
		Raw:              json.RawMessage(body),
	}
	if raw.Shipping != nil {
		order.Origin = raw.Shipping.Origin
		order.ShippingMethod = raw.Shipping.MethodName
		if raw.Shipping.Address != nil {
			order.Destination = raw.Shipping.Address
		}
	}
	if raw.Contact != nil {
		order.ContactName = raw.Contact.Name
		order.ContactPhone = raw.Contact.Phone
		order.ContactEmail = raw.Contact.Email
	}
	return order, nil
}

// ListOrders fetches the orders for a location from the payments API.
func (c *client) ListOrders(ctx context.Context, accessToken, locationID string) (json.RawMessage, error) {
	path := "/payments/orders?altId=" + url.QueryEscape(locationID) + "&altType=location"
	return c.call(ctx, accessToken, http.MethodGet, path, nil)
}

// CreateFulfillment pushes tracking info back to a HighLevel order.
func (c *client) CreateFulfillment(ctx context.Context, accessToken, orderID string, fulfillment ports.Fulfillment) error {
	payload := map[string]any{
		"altId":   fulfillment.LocationID,
		"altType": "location",
		"items":   []any{},
		"trackings": []map[string]any{{
			"trackingNumber":  fulfillment.TrackingNumber,
			"shippingCarrier": fulfillment.CarrierName,
			"trackingUrl":     fulfillment.TrackingURL,
		}},
		"notifyCustomer": fulfillment.NotifyCustomer,
	}
	_, err := c.call(ctx, accessToken, http.MethodPost, "/payments/orders/"+orderID+"/fulfillments", payload)
	return err
}

// UpdateOrderStatus pushes a shipping status and note to a HighLevel order.
func (c *client) UpdateOrderStatus(ctx context.Context, accessToken, orderID string, update ports.OrderStatusUpdate) error {
	payload := map[string]any{
		"shippingStatus": update.ShippingStatus,
		"trackingNumber": update.TrackingNumber,
	}
	if update.Notes != "" {
		payload["notes"] = update.Notes
	}
	_, err := c.call(ctx, accessToken, http.MethodPut, "/payments/orders/"+orderID, payload)
	return err
}

type carrierResponse struct {
	ID   string `json:"id"`
	Data *struct {
		ID string `json:"_id"`
	} `json:"data"`
}

// RegisterCarrier registers a shipping carrier for a location and returns
// the carrier ID HighLevel assigned.
func (c *client) RegisterCarrier(ctx context.Context, accessToken string, reg ports.CarrierRegistration) (string, error) {
	payload := map[string]any{
		"altId":       reg.LocationID,
		"altType":     "location",
		"name":        reg.Name,
		"callbackUrl": reg.CallbackURL,
	}
	body, err := c.call(ctx, accessToken, http.MethodPost, "/store/shipping-carrier", payload)
	if err != nil {
		return "", err
	}

	var raw carrierResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", fmt.Errorf("failed to parse carrier response: %w", err)
	}
	carrierID := raw.ID
	if raw.Data != nil && raw.Data.ID != "" {
		carrierID = raw.Data.ID
	}
	if carrierID == "" {
		return "", &domain.RemoteCallError{
			Service:     "highlevel",
			Operation:   "register carrier",
			StatusCode:  http.StatusOK,
			BodyPreview: "registration succeeded but no carrier ID returned",
		}
	}
	return carrierID, nil
}

// GetCarrier fetches the registered carrier.
func (c *client) GetCarrier(ctx context.Context, accessToken, carrierID string) (json.RawMessage, error) {
	return c.call(ctx, accessToken, http.MethodGet, "/store/shipping-carrier/"+carrierID, nil)
}

// UpdateCarrier applies the allow-listed mutable fields to the carrier.
func (c *client) UpdateCarrier(ctx context.Context, accessToken, carrierID string, update ports.CarrierUpdate) (json.RawMessage, error) {
	return c.call(ctx, accessToken, http.MethodPut, "/store/shipping-carrier/"+carrierID, update)
}

// DeleteCarrier removes the carrier registration.
func (c *client) DeleteCarrier(ctx context.Context, accessToken, carrierID string) error {
	_, err := c.call(ctx, accessToken, http.MethodDelete, "/store/shipping-carrier/"+carrierID, nil)
	return err
}

// call performs an authenticated REST call and returns the response body,
// translating transport failures and non-2xx responses into
// *domain.RemoteCallError.
func (c *client) call(ctx context.Context, accessToken, method, path string, payload any) (json.RawMessage, error) {
	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Version", apiVersion)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &domain.RemoteCallError{Service: "highlevel", Operation: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.RemoteCallError{Service: "highlevel", Operation: method + " " + path, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &domain.RemoteCallError{
			Service:     "highlevel",
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
