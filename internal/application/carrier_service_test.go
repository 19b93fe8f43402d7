package application

import (
	"context"
	"testing"

	"delyva-shipping-layer/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCarrierService(repo *fakeIntegrationRepo, hl *fakeHighLevel, delyva *fakeDelyva) *CarrierService {
	tokens := NewTokenService(repo, hl, fakeCrypto{}, zerolog.Nop())
	return NewCarrierService(repo, hl, delyva, tokens, fakeCrypto{}, zerolog.Nop(),
		"https://bridge.example.com/api/shipping/rates/callback")
}

func TestRegisterPersistsCarrierID(t *testing.T) {
	repo := newFakeIntegrationRepo(delyvaIntegration())
	hl := &fakeHighLevel{carrierID: "carrier-42"}
	svc := newCarrierService(repo, hl, &fakeDelyva{})

	carrierID, err := svc.Register(context.Background(), "loc-1")
	require.NoError(t, err)
	assert.Equal(t, "carrier-42", carrierID)
	assert.Equal(t, 1, hl.registerCalls)

	stored, err := repo.GetByLocationID(context.Background(), "loc-1")
	require.NoError(t, err)
	assert.Equal(t, "carrier-42", stored.CarrierID)
}

func TestRegisterIsIdempotent(t *testing.T) {
	integration := delyvaIntegration()
	integration.CarrierID = "carrier-42"
	repo := newFakeIntegrationRepo(integration)
	hl := &fakeHighLevel{}
	svc := newCarrierService(repo, hl, &fakeDelyva{})

	carrierID, err := svc.Register(context.Background(), "loc-1")
	require.NoError(t, err)
	assert.Equal(t, "carrier-42", carrierID)
	assert.Equal(t, 0, hl.registerCalls)
}

func TestRegisterRequiresBothCredentialSets(t *testing.T) {
	noToken := delyvaIntegration()
	noToken.AccessToken = ""
	svc := newCarrierService(newFakeIntegrationRepo(noToken), &fakeHighLevel{}, &fakeDelyva{})

	_, err := svc.Register(context.Background(), "loc-1")
	var credsErr *domain.CredentialsMissingError
	require.ErrorAs(t, err, &credsErr)
	assert.Equal(t, "access_token", credsErr.Field)

	noKey := delyvaIntegration()
	noKey.DelyvaAPIKey = ""
	svc = newCarrierService(newFakeIntegrationRepo(noKey), &fakeHighLevel{}, &fakeDelyva{})

	_, err = svc.Register(context.Background(), "loc-1")
	require.ErrorAs(t, err, &credsErr)
	assert.Equal(t, "delyva_api_key", credsErr.Field)
}

func TestRegisterFailureDoesNotPersistCarrierID(t *testing.T) {
	repo := newFakeIntegrationRepo(delyvaIntegration())
	hl := &fakeHighLevel{registerErr: &domain.RemoteCallError{Service: "highlevel", Operation: "register carrier", StatusCode: 500}}
	svc := newCarrierService(repo, hl, &fakeDelyva{})

	_, err := svc.Register(context.Background(), "loc-1")
	require.Error(t, err)

	stored, err := repo.GetByLocationID(context.Background(), "loc-1")
	require.NoError(t, err)
	assert.Empty(t, stored.CarrierID)
}

func TestUnregisterClearsLocalIDAfterRemoteDelete(t *testing.T) {
	integration := delyvaIntegration()
	integration.CarrierID = "carrier-42"
	repo := newFakeIntegrationRepo(integration)
	hl := &fakeHighLevel{}
	svc := newCarrierService(repo, hl, &fakeDelyva{})

	require.NoError(t, svc.Unregister(context.Background(), "loc-1"))
	assert.Equal(t, 1, hl.deleteCalls)

	stored, err := repo.GetByLocationID(context.Background(), "loc-1")
	require.NoError(t, err)
	assert.Empty(t, stored.CarrierID)
}

func TestUnregisterRemoteFailureKeepsLocalID(t *testing.T) {
	integration := delyvaIntegration()
	integration.CarrierID = "carrier-42"
	repo := newFakeIntegrationRepo(integration)
	hl := &fakeHighLevel{deleteCarrierErr: &domain.RemoteCallError{Service: "highlevel", Operation: "delete carrier", StatusCode: 500}}
	svc := newCarrierService(repo, hl, &fakeDelyva{})

	err := svc.Unregister(context.Background(), "loc-1")
	require.Error(t, err)

	stored, err := repo.GetByLocationID(context.Background(), "loc-1")
	require.NoError(t, err)
	assert.Equal(t, "carrier-42", stored.CarrierID)
}

func TestDeactivateKeepsLocalID(t *testing.T) {
	integration := delyvaIntegration()
	integration.CarrierID = "carrier-42"
	repo := newFakeIntegrationRepo(integration)
	svc := newCarrierService(repo, &fakeHighLevel{}, &fakeDelyva{})

	require.NoError(t, svc.Deactivate(context.Background(), "loc-1"))

	stored, err := repo.GetByLocationID(context.Background(), "loc-1")
	require.NoError(t, err)
	assert.Equal(t, "carrier-42", stored.CarrierID)
}

func TestStatusReportsConfigurationAndLiveCheck(t *testing.T) {
	integration := delyvaIntegration()
	integration.CarrierID = "carrier-42"
	svc := newCarrierService(newFakeIntegrationRepo(integration), &fakeHighLevel{}, &fakeDelyva{})

	status, err := svc.Status(context.Background(), "loc-1")
	require.NoError(t, err)

	assert.True(t, status.IntegrationExists)
	assert.True(t, status.HasCRMToken)
	assert.True(t, status.HasDelyvaCredentials)
	assert.True(t, status.CarrierRegistered)
	assert.Equal(t, "carrier-42", status.CarrierID)
	require.NotNil(t, status.DelyvaAPIReachable)
	assert.True(t, *status.DelyvaAPIReachable)
}

func TestStatusUnknownLocation(t *testing.T) {
	svc := newCarrierService(newFakeIntegrationRepo(), &fakeHighLevel{}, &fakeDelyva{})

	status, err := svc.Status(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, status.IntegrationExists)
	assert.Nil(t, status.DelyvaAPIReachable)
}

func TestStatusReportsUnreachableDelyva(t *testing.T) {
	delyva := &fakeDelyva{accountErr: &domain.RemoteCallError{Service: "delyva", Operation: "GET /v1.0/customer", StatusCode: 401}}
	svc := newCarrierService(newFakeIntegrationRepo(delyvaIntegration()), &fakeHighLevel{}, delyva)

	status, err := svc.Status(context.Background(), "loc-1")
	require.NoError(t, err)
	require.NotNil(t, status.DelyvaAPIReachable)
	assert.False(t, *status.DelyvaAPIReachable)
}
