package domain

import (
	"encoding/json"
	"time"
)

// ShipmentStatus is the canonical status vocabulary shared by the webhook
// and manual sync paths. Delyva's courier statuses map many-to-one onto it.
type ShipmentStatus string

const (
	StatusPending    ShipmentStatus = "pending"
	StatusDraft      ShipmentStatus = "draft"
	StatusProcessing ShipmentStatus = "processing"
	StatusShipped    ShipmentStatus = "shipped"
	StatusDelivered  ShipmentStatus = "delivered"
	StatusFailed     ShipmentStatus = "failed"
	StatusCancelled  ShipmentStatus = "cancelled"
	StatusReturned   ShipmentStatus = "returned"
)

// Shipment is the local record tying one HighLevel order to one Delyva
// order. Records are created at most once per (location, order) pair and
// never deleted; they are the audit trail of the integration.
type Shipment struct {
	ID             string `json:"id" bson:"_id"`
	LocationID     string `json:"location_id" bson:"location_id"`
	CRMOrderID     string `json:"crm_order_id" bson:"crm_order_id"`
	DelyvaOrderID  string `json:"delyva_order_id,omitempty" bson:"delyva_order_id,omitempty"`
	TrackingNumber string `json:"tracking_number,omitempty" bson:"tracking_number,omitempty"`

	Status ShipmentStatus `json:"status" bson:"status"`

	// Last-known state from each side, stored as opaque JSON.
	CRMOrderSnapshot    json.RawMessage `json:"crm_order_snapshot,omitempty" bson:"crm_order_snapshot,omitempty"`
	DelyvaOrderSnapshot json.RawMessage `json:"delyva_order_snapshot,omitempty" bson:"delyva_order_snapshot,omitempty"`

	ShippedAt   *time.Time `json:"shipped_at,omitempty" bson:"shipped_at,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty" bson:"delivered_at,omitempty"`

	Notes string `json:"notes,omitempty" bson:"notes,omitempty"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// ApplyStatus transitions the shipment to status and stamps shipped_at /
// delivered_at at most once each; repeat transitions never move a timestamp
// that is already set. It returns false when the status is unchanged.
func (s *Shipment) ApplyStatus(status ShipmentStatus, now time.Time) bool {
	changed := s.Status != status
	s.Status = status

	if status == StatusShipped && s.ShippedAt == nil {
		t := now
		s.ShippedAt = &t
		changed = true
	}
	if status == StatusDelivered && s.DeliveredAt == nil {
		t := now
		s.DeliveredAt = &t
		changed = true
	}
	return changed
}

// delyvaStatusMap maps Delyva order/tracking statuses onto the canonical
// vocabulary. Both the webhook and the manual pull path use this table.
var delyvaStatusMap = map[string]ShipmentStatus{
	"pending":          StatusPending,
	"created":          StatusProcessing,
	"confirmed":        StatusProcessing,
	"picked_up":        StatusShipped,
	"in_transit":       StatusShipped,
	"out_for_delivery": StatusShipped,
	"delivered":        StatusDelivered,
	"failed":           StatusFailed,
	"cancelled":        StatusCancelled,
	"returned":         StatusReturned,
}

// MapDelyvaStatus translates a Delyva status string into the canonical
// vocabulary. The second return is false for statuses outside the table.
func MapDelyvaStatus(status string) (ShipmentStatus, bool) {
	mapped, ok := delyvaStatusMap[status]
	return mapped, ok
}

// delyvaEventMap maps Delyva webhook event types onto the canonical
// vocabulary. Events outside the table are rejected without mutating state.
var delyvaEventMap = map[string]ShipmentStatus{
	"order.created":          StatusProcessing,
	"order.confirmed":        StatusProcessing,
	"order.picked_up":        StatusShipped,
	"order.in_transit":       StatusShipped,
	"order.out_for_delivery": StatusShipped,
	"order.delivered":        StatusDelivered,
	"order.failed":           StatusFailed,
	"order.cancelled":        StatusCancelled,
	"order.returned":         StatusReturned,
}

// MapDelyvaEvent translates a Delyva webhook event type into the canonical
// vocabulary. The second return is false for unknown event types.
func MapDelyvaEvent(eventType string) (ShipmentStatus, bool) {
	mapped, ok := delyvaEventMap[eventType]
	return mapped, ok
}

// StatusNote returns the human-readable note pushed to the HighLevel order
// alongside a status update.
func StatusNote(status ShipmentStatus) string {
	switch status {
	case StatusProcessing:
		return "Order is being processed by Delyva"
	case StatusShipped:
		return "Order has been shipped via Delyva"
	case StatusDelivered:
		return "Order has been delivered successfully"
	case StatusFailed:
		return "Delivery failed"
	case StatusCancelled:
		return "Order has been cancelled"
	case StatusReturned:
		return "Order has been returned"
	default:
		return ""
	}
}
