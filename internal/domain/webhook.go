package domain

import "encoding/json"

// OrderEvent is a HighLevel order webhook after alias normalization.
// HighLevel sends the location under either "locationId" or "altId"; the
// normalization step resolves that once so downstream logic never does.
type OrderEvent struct {
	Type       string
	OrderID    string
	LocationID string
	Status     string
	Payload    json.RawMessage
}

// Completed reports whether the event should trigger shipment creation:
// an order creation or status update whose payment status is completed.
func (e *OrderEvent) Completed() bool {
	if e.Type != "OrderCreate" && e.Type != "OrderStatusUpdate" {
		return false
	}
	return e.Status == "completed" && e.OrderID != ""
}

// rawOrderEvent carries every alias HighLevel has been observed to use.
type rawOrderEvent struct {
	Type       string `json:"type"`
	OrderID    string `json:"orderId"`
	LocationID string `json:"locationId"`
	AltID      string `json:"altId"`
	Status     string `json:"status"`
}

// ParseOrderEvent normalizes a HighLevel order webhook payload.
func ParseOrderEvent(payload []byte) (*OrderEvent, error) {
	var raw rawOrderEvent
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, &ValidationError{Message: "malformed order webhook payload"}
	}
	if raw.Type == "" {
		return nil, &ValidationError{Message: "order webhook missing type"}
	}
	if raw.OrderID == "" {
		return nil, &ValidationError{Message: "order webhook missing orderId"}
	}
	locationID := raw.LocationID
	if locationID == "" {
		locationID = raw.AltID
	}
	return &OrderEvent{
		Type:       raw.Type,
		OrderID:    raw.OrderID,
		LocationID: locationID,
		Status:     raw.Status,
		Payload:    json.RawMessage(payload),
	}, nil
}

// StatusEvent is a Delyva shipment-status webhook after alias normalization.
// Delyva nests order fields under "data" on some event versions and flattens
// them on others, and names the event "event" or "type"; both shapes resolve
// to this one struct.
type StatusEvent struct {
	EventType      string
	DelyvaOrderID  string
	TrackingNumber string
	Payload        json.RawMessage
}

type rawStatusBody struct {
	Event string           `json:"event"`
	Type  string           `json:"type"`
	Data  *rawStatusFields `json:"data"`
	rawStatusFields
}

type rawStatusFields struct {
	ID             string `json:"id"`
	OrderID        string `json:"order_id"`
	TrackingNumber string `json:"tracking_number"`
	AWB            string `json:"awb"`
}

func (f *rawStatusFields) orderID() string {
	if f.ID != "" {
		return f.ID
	}
	return f.OrderID
}

func (f *rawStatusFields) tracking() string {
	if f.TrackingNumber != "" {
		return f.TrackingNumber
	}
	return f.AWB
}

// ParseStatusEvent normalizes a Delyva status webhook payload.
func ParseStatusEvent(payload []byte) (*StatusEvent, error) {
	var raw rawStatusBody
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, &ValidationError{Message: "malformed status webhook payload"}
	}
	eventType := raw.Event
	if eventType == "" {
		eventType = raw.Type
	}
	if eventType == "" {
		return nil, &ValidationError{Message: "status webhook missing event type"}
	}
	fields := raw.rawStatusFields
	if raw.Data != nil {
		fields = *raw.Data
	}
	return &StatusEvent{
		EventType:      eventType,
		DelyvaOrderID:  fields.orderID(),
		TrackingNumber: fields.tracking(),
		Payload:        json.RawMessage(payload),
	}, nil
}
