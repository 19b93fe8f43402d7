package domain

import "time"

// Integration holds everything the bridge knows about one HighLevel location:
// the CRM OAuth token pair, the Delyva API credentials, and the shipping
// carrier registered for checkout rates. Credentials may be partially
// present; callers must validate the subset of fields they need.
type Integration struct {
	ID         string `json:"id" bson:"_id"`
	LocationID string `json:"location_id" bson:"location_id"`
	CompanyID  string `json:"company_id,omitempty" bson:"company_id,omitempty"`
	UserID     string `json:"user_id,omitempty" bson:"user_id,omitempty"`
	UserType   string `json:"user_type,omitempty" bson:"user_type,omitempty"`

	// HighLevel OAuth tokens, encrypted at rest.
	AccessToken  string `json:"-" bson:"access_token"`
	RefreshToken string `json:"-" bson:"refresh_token"`

	// Delyva credentials. API key and secret are encrypted at rest.
	DelyvaAPIKey      string `json:"-" bson:"delyva_api_key"`
	DelyvaAPISecret   string `json:"-" bson:"delyva_api_secret"`
	DelyvaCustomerID  string `json:"delyva_customer_id,omitempty" bson:"delyva_customer_id,omitempty"`
	DelyvaCompanyCode string `json:"delyva_company_code,omitempty" bson:"delyva_company_code,omitempty"`
	DelyvaCompanyID   string `json:"delyva_company_id,omitempty" bson:"delyva_company_id,omitempty"`
	DelyvaUserID      string `json:"delyva_user_id,omitempty" bson:"delyva_user_id,omitempty"`

	// CarrierID is set only after a successful shipping-carrier registration
	// with HighLevel; unregistering clears it.
	CarrierID string `json:"carrier_id,omitempty" bson:"carrier_id,omitempty"`

	// ShippingEnabled is the merchant kill switch for checkout rates.
	ShippingEnabled bool `json:"shipping_enabled" bson:"shipping_enabled"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// HasCRMToken reports whether a HighLevel access token is stored.
func (i *Integration) HasCRMToken() bool {
	return i != nil && i.AccessToken != ""
}

// HasDelyvaCredentials reports whether a Delyva API key is stored.
func (i *Integration) HasDelyvaCredentials() bool {
	return i != nil && i.DelyvaAPIKey != ""
}

// CarrierRegistered reports whether a shipping carrier has been registered
// with HighLevel for this location.
func (i *Integration) CarrierRegistered() bool {
	return i != nil && i.CarrierID != ""
}

// TokenPair is the result of an OAuth code exchange or refresh. LocationID,
// CompanyID and UserID are present only when the provider includes them in
// the token response.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	LocationID   string `json:"locationId,omitempty"`
	CompanyID    string `json:"companyId,omitempty"`
	UserID       string `json:"userId,omitempty"`
	UserType     string `json:"userType,omitempty"`
}
