package entity

import (
	"time"

	"delyva-shipping-layer/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MongoIntegrationDoc represents an integration record in MongoDB.
type MongoIntegrationDoc struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	LocationID string             `bson:"locationId"`
	CompanyID  string             `bson:"companyId,omitempty"`
	UserID     string             `bson:"userId,omitempty"`
	UserType   string             `bson:"userType,omitempty"`

	AccessToken  string `bson:"accessToken,omitempty"`
	RefreshToken string `bson:"refreshToken,omitempty"`

	DelyvaAPIKey      string `bson:"delyvaApiKey,omitempty"`
	DelyvaAPISecret   string `bson:"delyvaApiSecret,omitempty"`
	DelyvaCustomerID  string `bson:"delyvaCustomerId,omitempty"`
	DelyvaCompanyCode string `bson:"delyvaCompanyCode,omitempty"`
	DelyvaCompanyID   string `bson:"delyvaCompanyId,omitempty"`
	DelyvaUserID      string `bson:"delyvaUserId,omitempty"`

	CarrierID       string `bson:"carrierId,omitempty"`
	ShippingEnabled bool   `bson:"shippingEnabled"`

	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// ToDomain converts the MongoDB document to a domain entity.
func (d *MongoIntegrationDoc) ToDomain() *domain.Integration {
	return &domain.Integration{
		ID:                d.ID.Hex(),
		LocationID:        d.LocationID,
		CompanyID:         d.CompanyID,
		UserID:            d.UserID,
		UserType:          d.UserType,
		AccessToken:       d.AccessToken,
		RefreshToken:      d.RefreshToken,
		DelyvaAPIKey:      d.DelyvaAPIKey,
		DelyvaAPISecret:   d.DelyvaAPISecret,
		DelyvaCustomerID:  d.DelyvaCustomerID,
		DelyvaCompanyCode: d.DelyvaCompanyCode,
		DelyvaCompanyID:   d.DelyvaCompanyID,
		DelyvaUserID:      d.DelyvaUserID,
		CarrierID:         d.CarrierID,
		ShippingEnabled:   d.ShippingEnabled,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}
}

// MongoIntegrationDocFromDomain converts a domain entity to a MongoDB document.
func MongoIntegrationDocFromDomain(integration *domain.Integration) *MongoIntegrationDoc {
	doc := &MongoIntegrationDoc{
		LocationID:        integration.LocationID,
		CompanyID:         integration.CompanyID,
		UserID:            integration.UserID,
		UserType:          integration.UserType,
		AccessToken:       integration.AccessToken,
		RefreshToken:      integration.RefreshToken,
		DelyvaAPIKey:      integration.DelyvaAPIKey,
		DelyvaAPISecret:   integration.DelyvaAPISecret,
		DelyvaCustomerID:  integration.DelyvaCustomerID,
		DelyvaCompanyCode: integration.DelyvaCompanyCode,
		DelyvaCompanyID:   integration.DelyvaCompanyID,
		DelyvaUserID:      integration.DelyvaUserID,
		CarrierID:         integration.CarrierID,
		ShippingEnabled:   integration.ShippingEnabled,
		CreatedAt:         integration.CreatedAt,
		UpdatedAt:         integration.UpdatedAt,
	}

	if integration.ID != "" {
		if objID, err := primitive.ObjectIDFromHex(integration.ID); err == nil {
			doc.ID = objID
		}
	}

	return doc
}
