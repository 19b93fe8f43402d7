package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyStatusStampsShippedAtOnce(t *testing.T) {
	shipment := &Shipment{Status: StatusProcessing}
	first := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	later := first.Add(48 * time.Hour)

	changed := shipment.ApplyStatus(StatusShipped, first)
	assert.True(t, changed)
	require.NotNil(t, shipment.ShippedAt)
	assert.Equal(t, first, *shipment.ShippedAt)

	// A repeat shipped transition neither changes state nor moves the stamp.
	changed = shipment.ApplyStatus(StatusShipped, later)
	assert.False(t, changed)
	assert.Equal(t, first, *shipment.ShippedAt)
}

func TestApplyStatusStampsDeliveredAtOnce(t *testing.T) {
	shipment := &Shipment{Status: StatusShipped}
	first := time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC)

	assert.True(t, shipment.ApplyStatus(StatusDelivered, first))
	require.NotNil(t, shipment.DeliveredAt)

	assert.False(t, shipment.ApplyStatus(StatusDelivered, first.Add(time.Hour)))
	assert.Equal(t, first, *shipment.DeliveredAt)
}

func TestApplyStatusReportsChange(t *testing.T) {
	shipment := &Shipment{Status: StatusPending}
	now := time.Now()

	assert.True(t, shipment.ApplyStatus(StatusProcessing, now))
	assert.False(t, shipment.ApplyStatus(StatusProcessing, now))
	assert.True(t, shipment.ApplyStatus(StatusCancelled, now))
}

func TestMapDelyvaStatus(t *testing.T) {
	tests := []struct {
		in   string
		want ShipmentStatus
	}{
		{"pending", StatusPending},
		{"created", StatusProcessing},
		{"confirmed", StatusProcessing},
		{"picked_up", StatusShipped},
		{"in_transit", StatusShipped},
		{"out_for_delivery", StatusShipped},
		{"delivered", StatusDelivered},
		{"failed", StatusFailed},
		{"cancelled", StatusCancelled},
		{"returned", StatusReturned},
	}
	for _, tt := range tests {
		got, ok := MapDelyvaStatus(tt.in)
		require.True(t, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, ok := MapDelyvaStatus("quantum")
	assert.False(t, ok)
}

func TestMapDelyvaEvent(t *testing.T) {
	got, ok := MapDelyvaEvent("order.out_for_delivery")
	require.True(t, ok)
	assert.Equal(t, StatusShipped, got)

	_, ok = MapDelyvaEvent("order.levitating")
	assert.False(t, ok)
}

func TestStatusNoteCoversPushedStatuses(t *testing.T) {
	for _, status := range []ShipmentStatus{
		StatusProcessing, StatusShipped, StatusDelivered,
		StatusFailed, StatusCancelled, StatusReturned,
	} {
		assert.NotEmpty(t, StatusNote(status), string(status))
	}
	assert.Empty(t, StatusNote(StatusPending))
}
