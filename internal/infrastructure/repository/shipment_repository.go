package repository

import (
	"context"
	"fmt"
	"time"

	"delyva-shipping-layer/internal/domain"
	"delyva-shipping-layer/internal/infrastructure/repository/entity"
	"delyva-shipping-layer/internal/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoShipmentRepository implements ShipmentRepository using MongoDB.
type MongoShipmentRepository struct {
	collection *mongo.Collection
}

// NewMongoShipmentRepository creates a new MongoDB shipment repository.
func NewMongoShipmentRepository(db *mongo.Database) ports.ShipmentRepository {
	collection := db.Collection("shipping_orders")

	// The compound unique index backs the at-most-once claim; the secondary
	// indexes back webhook lookups by provider order ID and tracking number.
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "locationId", Value: 1}, {Key: "crmOrderId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "delyvaOrderId", Value: 1}}},
		{Keys: bson.D{{Key: "trackingNumber", Value: 1}}},
	}
	_, _ = collection.Indexes().CreateMany(context.Background(), indexes)

	return &MongoShipmentRepository{collection: collection}
}

// GetByOrder retrieves the shipment for a (location, order) pair.
func (r *MongoShipmentRepository) GetByOrder(ctx context.Context, locationID, crmOrderID string) (*domain.Shipment, error) {
	return r.findOne(ctx, bson.M{"locationId": locationID, "crmOrderId": crmOrderID})
}

// GetByDelyvaOrderID retrieves the shipment for a Delyva order ID.
func (r *MongoShipmentRepository) GetByDelyvaOrderID(ctx context.Context, delyvaOrderID string) (*domain.Shipment, error) {
	if delyvaOrderID == "" {
		return nil, nil
	}
	return r.findOne(ctx, bson.M{"delyvaOrderId": delyvaOrderID})
}

// GetByTrackingNumber retrieves the shipment for a tracking number.
func (r *MongoShipmentRepository) GetByTrackingNumber(ctx context.Context, trackingNumber string) (*domain.Shipment, error) {
	if trackingNumber == "" {
		return nil, nil
	}
	return r.findOne(ctx, bson.M{"trackingNumber": trackingNumber})
}

// ListByLocation retrieves all shipments for a location, newest first.
func (r *MongoShipmentRepository) ListByLocation(ctx context.Context, locationID string) ([]*domain.Shipment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"locationId": locationID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list shipments: %w", err)
	}
	defer cursor.Close(ctx)

	var shipments []*domain.Shipment
	for cursor.Next(ctx) {
		var doc entity.MongoShipmentDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode shipment: %w", err)
		}
		shipments = append(shipments, doc.ToDomain())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate shipments: %w", err)
	}
	return shipments, nil
}

// Claim inserts the shipment unless a record already exists for its
// (location, order) pair. The unique index decides the race: the losing
// insert gets a duplicate-key error and the existing record is returned.
func (r *MongoShipmentRepository) Claim(ctx context.Context, shipment *domain.Shipment) (*domain.Shipment, bool, error) {
	doc := entity.MongoShipmentDocFromDomain(shipment)
	doc.ID = primitive.NewObjectID()
	doc.CreatedAt = time.Now()
	doc.UpdatedAt = doc.CreatedAt

	_, err := r.collection.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		existing, ferr := r.GetByOrder(ctx, shipment.LocationID, shipment.CRMOrderID)
		if ferr != nil {
			return nil, false, ferr
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to claim shipment: %w", err)
	}

	shipment.ID = doc.ID.Hex()
	shipment.CreatedAt = doc.CreatedAt
	shipment.UpdatedAt = doc.UpdatedAt
	return shipment, true, nil
}

// Update replaces the mutable fields of an existing shipment.
func (r *MongoShipmentRepository) Update(ctx context.Context, shipment *domain.Shipment) error {
	doc := entity.MongoShipmentDocFromDomain(shipment)
	doc.UpdatedAt = time.Now()

	filter := bson.M{"locationId": shipment.LocationID, "crmOrderId": shipment.CRMOrderID}
	update := bson.M{"$set": bson.M{
		"delyvaOrderId":       doc.DelyvaOrderID,
		"trackingNumber":      doc.TrackingNumber,
		"status":              doc.Status,
		"crmOrderSnapshot":    doc.CRMOrderSnapshot,
		"delyvaOrderSnapshot": doc.DelyvaOrderSnapshot,
		"shippedAt":           doc.ShippedAt,
		"deliveredAt":         doc.DeliveredAt,
		"notes":               doc.Notes,
		"updatedAt":           doc.UpdatedAt,
	}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update shipment: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrShipmentNotFound
	}
	return nil
}

func (r *MongoShipmentRepository) findOne(ctx context.Context, filter bson.M) (*domain.Shipment, error) {
	var doc entity.MongoShipmentDoc
	err := r.collection.FindOne(ctx, filter).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get shipment: %w", err)
	}
	return doc.ToDomain(), nil
}
