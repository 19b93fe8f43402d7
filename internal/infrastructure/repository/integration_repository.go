package repository

import (
	"context"
	"fmt"
	"time"

	"delyva-shipping-layer/internal/domain"
	"delyva-shipping-layer/internal/infrastructure/repository/entity"
	"delyva-shipping-layer/internal/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoIntegrationRepository implements IntegrationRepository using MongoDB.
type MongoIntegrationRepository struct {
	collection *mongo.Collection
}

// NewMongoIntegrationRepository creates a new MongoDB integration repository.
func NewMongoIntegrationRepository(db *mongo.Database) ports.IntegrationRepository {
	collection := db.Collection("integrations")

	indexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "locationId", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	_, _ = collection.Indexes().CreateOne(context.Background(), indexModel)

	return &MongoIntegrationRepository{collection: collection}
}

// GetByLocationID retrieves the integration record for a location.
func (r *MongoIntegrationRepository) GetByLocationID(ctx context.Context, locationID string) (*domain.Integration, error) {
	var doc entity.MongoIntegrationDoc
	filter := bson.M{"locationId": locationID}

	err := r.collection.FindOne(ctx, filter).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get integration: %w", err)
	}

	return doc.ToDomain(), nil
}

// Upsert creates or replaces the record keyed by location ID.
func (r *MongoIntegrationRepository) Upsert(ctx context.Context, integration *domain.Integration) error {
	doc := entity.MongoIntegrationDocFromDomain(integration)
	doc.UpdatedAt = time.Now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = doc.UpdatedAt
	}

	filter := bson.M{"locationId": integration.LocationID}
	update := bson.M{
		"$set": bson.M{
			"locationId":        doc.LocationID,
			"companyId":         doc.CompanyID,
			"userId":            doc.UserID,
			"userType":          doc.UserType,
			"accessToken":       doc.AccessToken,
			"refreshToken":      doc.RefreshToken,
			"delyvaApiKey":      doc.DelyvaAPIKey,
			"delyvaApiSecret":   doc.DelyvaAPISecret,
			"delyvaCustomerId":  doc.DelyvaCustomerID,
			"delyvaCompanyCode": doc.DelyvaCompanyCode,
			"delyvaCompanyId":   doc.DelyvaCompanyID,
			"delyvaUserId":      doc.DelyvaUserID,
			"carrierId":         doc.CarrierID,
			"shippingEnabled":   doc.ShippingEnabled,
			"updatedAt":         doc.UpdatedAt,
		},
		"$setOnInsert": bson.M{"createdAt": doc.CreatedAt},
	}

	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert integration: %w", err)
	}
	return nil
}

// SetTokens replaces the stored OAuth token pair. An empty refresh token
// keeps the existing one.
func (r *MongoIntegrationRepository) SetTokens(ctx context.Context, locationID, accessToken, refreshToken string) error {
	set := bson.M{
		"accessToken": accessToken,
		"updatedAt":   time.Now(),
	}
	if refreshToken != "" {
		set["refreshToken"] = refreshToken
	}
	return r.updateOne(ctx, locationID, bson.M{"$set": set})
}

// SetCarrierID stores the registered carrier ID; an empty value clears it.
func (r *MongoIntegrationRepository) SetCarrierID(ctx context.Context, locationID, carrierID string) error {
	update := bson.M{"$set": bson.M{"carrierId": carrierID, "updatedAt": time.Now()}}
	if carrierID == "" {
		update = bson.M{
			"$unset": bson.M{"carrierId": ""},
			"$set":   bson.M{"updatedAt": time.Now()},
		}
	}
	return r.updateOne(ctx, locationID, update)
}

// SetShippingEnabled toggles the checkout-rate kill switch.
func (r *MongoIntegrationRepository) SetShippingEnabled(ctx context.Context, locationID string, enabled bool) error {
	return r.updateOne(ctx, locationID, bson.M{
		"$set": bson.M{"shippingEnabled": enabled, "updatedAt": time.Now()},
	})
}

// ClearDelyvaCredentials removes the Delyva credential fields, leaving the
// CRM tokens untouched.
func (r *MongoIntegrationRepository) ClearDelyvaCredentials(ctx context.Context, locationID string) error {
	return r.updateOne(ctx, locationID, bson.M{
		"$unset": bson.M{
			"delyvaApiKey":      "",
			"delyvaApiSecret":   "",
			"delyvaCustomerId":  "",
			"delyvaCompanyCode": "",
			"delyvaCompanyId":   "",
			"delyvaUserId":      "",
		},
		"$set": bson.M{"updatedAt": time.Now()},
	})
}

func (r *MongoIntegrationRepository) updateOne(ctx context.Context, locationID string, update bson.M) error {
	result, err := r.collection.UpdateOne(ctx, bson.M{"locationId": locationID}, update)
	if err != nil {
		return fmt.Errorf("failed to update integration: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrIntegrationNotFound
	}
	return nil
}
