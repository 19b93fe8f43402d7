package entity

import (
	"encoding/json"
	"time"

	"delyva-shipping-layer/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MongoShipmentDoc represents a shipment record in MongoDB.
type MongoShipmentDoc struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	LocationID     string             `bson:"locationId"`
	CRMOrderID     string             `bson:"crmOrderId"`
	DelyvaOrderID  string             `bson:"delyvaOrderId,omitempty"`
	TrackingNumber string             `bson:"trackingNumber,omitempty"`

	Status string `bson:"status"`

	CRMOrderSnapshot    []byte `bson:"crmOrderSnapshot,omitempty"`
	DelyvaOrderSnapshot []byte `bson:"delyvaOrderSnapshot,omitempty"`

	ShippedAt   *time.Time `bson:"shippedAt,omitempty"`
	DeliveredAt *time.Time `bson:"deliveredAt,omitempty"`

	Notes string `bson:"notes,omitempty"`

	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// ToDomain converts the MongoDB document to a domain entity.
func (d *MongoShipmentDoc) ToDomain() *domain.Shipment {
	return &domain.Shipment{
		ID:                  d.ID.Hex(),
		LocationID:          d.LocationID,
		CRMOrderID:          d.CRMOrderID,
		DelyvaOrderID:       d.DelyvaOrderID,
		TrackingNumber:      d.TrackingNumber,
		Status:              domain.ShipmentStatus(d.Status),
		CRMOrderSnapshot:    json.RawMessage(d.CRMOrderSnapshot),
		DelyvaOrderSnapshot: json.RawMessage(d.DelyvaOrderSnapshot),
		ShippedAt:           d.ShippedAt,
		DeliveredAt:         d.DeliveredAt,
		Notes:               d.Notes,
		CreatedAt:           d.CreatedAt,
		UpdatedAt:           d.UpdatedAt,
	}
}

// MongoShipmentDocFromDomain converts a domain entity to a MongoDB document.
func MongoShipmentDocFromDomain(shipment *domain.Shipment) *MongoShipmentDoc {
	doc := &MongoShipmentDoc{
		LocationID:          shipment.LocationID,
		CRMOrderID:          shipment.CRMOrderID,
		DelyvaOrderID:       shipment.DelyvaOrderID,
		TrackingNumber:      shipment.TrackingNumber,
		Status:              string(shipment.Status),
		CRMOrderSnapshot:    []byte(shipment.CRMOrderSnapshot),
		DelyvaOrderSnapshot: []byte(shipment.DelyvaOrderSnapshot),
		ShippedAt:           shipment.ShippedAt,
		DeliveredAt:         shipment.DeliveredAt,
		Notes:               shipment.Notes,
		CreatedAt:           shipment.CreatedAt,
		UpdatedAt:           shipment.UpdatedAt,
	}

	if shipment.ID != "" {
		if objID, err := primitive.ObjectIDFromHex(shipment.ID); err == nil {
			doc.ID = objID
		}
	}

	return doc
}
