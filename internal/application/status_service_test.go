package application

import (
	"context"
	"testing"
	"time"

	"delyva-shipping-layer/internal/domain"
	"delyva-shipping-layer/internal/ports"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStatusService(repo *fakeIntegrationRepo, shipments *fakeShipmentRepo, hl *fakeHighLevel, delyva *fakeDelyva) *StatusService {
	tokens := NewTokenService(repo, hl, fakeCrypto{}, zerolog.Nop())
	svc := NewStatusService(repo, shipments, hl, delyva, tokens, fakeCrypto{}, zerolog.Nop())
	svc.now = func() time.Time { return time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC) }
	return svc
}

func trackedShipment() *domain.Shipment {
	return &domain.Shipment{
		LocationID:    "loc-1",
		CRMOrderID:    "ord-1",
		DelyvaOrderID: "dv-1",
		Status:        domain.StatusProcessing,
	}
}

func seedShipment(t *testing.T, shipments *fakeShipmentRepo, shipment *domain.Shipment) {
	t.Helper()
	_, created, err := shipments.Claim(context.Background(), shipment)
	require.NoError(t, err)
	require.True(t, created)
}

func TestHandleWebhookEventDeliveredPushesOnce(t *testing.T) {
	shipments := newFakeShipmentRepo()
	seedShipment(t, shipments, trackedShipment())
	hl := &fakeHighLevel{}
	svc := newStatusService(newFakeIntegrationRepo(delyvaIntegration()), shipments, hl, &fakeDelyva{})

	event := &domain.StatusEvent{
		EventType:      "order.delivered",
		DelyvaOrderID:  "dv-1",
		TrackingNumber: "AWB123",
		Payload:        []byte(`{"event":"order.delivered"}`),
	}

	shipment, err := svc.HandleWebhookEvent(context.Background(), event)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDelivered, shipment.Status)
	require.NotNil(t, shipment.DeliveredAt)
	firstDeliveredAt := *shipment.DeliveredAt

	require.Len(t, hl.statusUpdates, 1)
	assert.Equal(t, "delivered", hl.statusUpdates[0].ShippingStatus)
	assert.Equal(t, "AWB123", hl.statusUpdates[0].TrackingNumber)
	assert.NotEmpty(t, hl.statusUpdates[0].Notes)

	// Replaying the same event changes nothing and pushes nothing.
	svc.now = func() time.Time { return time.Date(2024, 3, 3, 9, 0, 0, 0, time.UTC) }
	replayed, err := svc.HandleWebhookEvent(context.Background(), event)
	require.NoError(t, err)
	assert.Equal(t, firstDeliveredAt, *replayed.DeliveredAt)
	assert.Len(t, hl.statusUpdates, 1)
}

func TestHandleWebhookEventUnknownType(t *testing.T) {
	shipments := newFakeShipmentRepo()
	seedShipment(t, shipments, trackedShipment())
	svc := newStatusService(newFakeIntegrationRepo(delyvaIntegration()), shipments, &fakeHighLevel{}, &fakeDelyva{})

	_, err := svc.HandleWebhookEvent(context.Background(), &domain.StatusEvent{
		EventType:     "order.telepathy",
		DelyvaOrderID: "dv-1",
	})

	var unknown *domain.UnknownEventTypeError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "order.telepathy", unknown.EventType)

	// The record is untouched.
	stored, err := shipments.GetByOrder(context.Background(), "loc-1", "ord-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessing, stored.Status)
}

func TestHandleWebhookEventFallsBackToTrackingNumber(t *testing.T) {
	shipments := newFakeShipmentRepo()
	shipment := trackedShipment()
	shipment.TrackingNumber = "AWB123"
	seedShipment(t, shipments, shipment)
	svc := newStatusService(newFakeIntegrationRepo(delyvaIntegration()), shipments, &fakeHighLevel{}, &fakeDelyva{})

	got, err := svc.HandleWebhookEvent(context.Background(), &domain.StatusEvent{
		EventType:      "order.picked_up",
		TrackingNumber: "AWB123",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusShipped, got.Status)
	assert.NotNil(t, got.ShippedAt)
}

func TestHandleWebhookEventUnknownShipment(t *testing.T) {
	svc := newStatusService(newFakeIntegrationRepo(delyvaIntegration()), newFakeShipmentRepo(), &fakeHighLevel{}, &fakeDelyva{})

	_, err := svc.HandleWebhookEvent(context.Background(), &domain.StatusEvent{
		EventType:     "order.delivered",
		DelyvaOrderID: "ghost",
	})
	assert.ErrorIs(t, err, domain.ErrShipmentNotFound)
}

func TestHandleWebhookEventShippedAtIsMonotonic(t *testing.T) {
	shipments := newFakeShipmentRepo()
	seedShipment(t, shipments, trackedShipment())
	svc := newStatusService(newFakeIntegrationRepo(delyvaIntegration()), shipments, &fakeHighLevel{}, &fakeDelyva{})

	first, err := svc.HandleWebhookEvent(context.Background(), &domain.StatusEvent{
		EventType:     "order.picked_up",
		DelyvaOrderID: "dv-1",
	})
	require.NoError(t, err)
	require.NotNil(t, first.ShippedAt)
	shippedAt := *first.ShippedAt

	// A later in_transit event keeps the original shipped_at.
	svc.now = func() time.Time { return time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC) }
	second, err := svc.HandleWebhookEvent(context.Background(), &domain.StatusEvent{
		EventType:     "order.in_transit",
		DelyvaOrderID: "dv-1",
	})
	require.NoError(t, err)
	assert.Equal(t, shippedAt, *second.ShippedAt)
}

func TestSyncOrderAppliesRemoteStatus(t *testing.T) {
	shipments := newFakeShipmentRepo()
	seedShipment(t, shipments, trackedShipment())
	hl := &fakeHighLevel{}
	delyva := &fakeDelyva{order: &ports.DelyvaOrder{
		ID:            "dv-1",
		Status:        "delivered",
		ConsignmentNo: "AWB123",
		Raw:           []byte(`{"status":"delivered"}`),
	}}
	svc := newStatusService(newFakeIntegrationRepo(delyvaIntegration()), shipments, hl, delyva)

	shipment, err := svc.SyncOrder(context.Background(), "loc-1", "ord-1")
	require.NoError(t, err)

	assert.Equal(t, domain.StatusDelivered, shipment.Status)
	assert.Equal(t, "AWB123", shipment.TrackingNumber)
	assert.Equal(t, []string{"delyva-key"}, delyva.seenKeys)
	require.Len(t, hl.statusUpdates, 1)
}

func TestSyncOrderUnchangedStatusIsNoOp(t *testing.T) {
	shipments := newFakeShipmentRepo()
	shipment := trackedShipment()
	shipment.TrackingNumber = "AWB123"
	seedShipment(t, shipments, shipment)
	hl := &fakeHighLevel{}
	delyva := &fakeDelyva{order: &ports.DelyvaOrder{ID: "dv-1", Status: "confirmed"}}
	svc := newStatusService(newFakeIntegrationRepo(delyvaIntegration()), shipments, hl, delyva)

	got, err := svc.SyncOrder(context.Background(), "loc-1", "ord-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessing, got.Status)
	assert.Empty(t, hl.statusUpdates)
}

func TestSyncOrderWithoutDelyvaOrder(t *testing.T) {
	shipments := newFakeShipmentRepo()
	shipment := trackedShipment()
	shipment.DelyvaOrderID = ""
	seedShipment(t, shipments, shipment)
	svc := newStatusService(newFakeIntegrationRepo(delyvaIntegration()), shipments, &fakeHighLevel{}, &fakeDelyva{})

	_, err := svc.SyncOrder(context.Background(), "loc-1", "ord-1")
	var validation *domain.ValidationError
	assert.ErrorAs(t, err, &validation)
}

func TestSyncOrderUnknownShipment(t *testing.T) {
	svc := newStatusService(newFakeIntegrationRepo(delyvaIntegration()), newFakeShipmentRepo(), &fakeHighLevel{}, &fakeDelyva{})

	_, err := svc.SyncOrder(context.Background(), "loc-1", "ghost")
	assert.ErrorIs(t, err, domain.ErrShipmentNotFound)
}

func TestHandleWebhookEventPushFailureKeepsLocalUpdate(t *testing.T) {
	shipments := newFakeShipmentRepo()
	seedShipment(t, shipments, trackedShipment())
	hl := &fakeHighLevel{statusUpdateErr: &domain.RemoteCallError{Service: "highlevel", Operation: "update status", StatusCode: 500}}
	svc := newStatusService(newFakeIntegrationRepo(delyvaIntegration()), shipments, hl, &fakeDelyva{})

	shipment, err := svc.HandleWebhookEvent(context.Background(), &domain.StatusEvent{
		EventType:     "order.delivered",
		DelyvaOrderID: "dv-1",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDelivered, shipment.Status)

	stored, err := shipments.GetByOrder(context.Background(), "loc-1", "ord-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDelivered, stored.Status)
}
