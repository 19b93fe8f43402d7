package delyva

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyAcceptsValidSignature(t *testing.T) {
	verifier := NewWebhookVerifier("shh")
	body := []byte(`{"event":"order.delivered","id":"dv-1"}`)

	assert.NoError(t, verifier.Verify(body, sign("shh", body)))
}

func TestVerifyRejectsWrongSignature(t *testing.T) {
	verifier := NewWebhookVerifier("shh")
	body := []byte(`{"event":"order.delivered"}`)

	assert.Error(t, verifier.Verify(body, sign("wrong-secret", body)))
	assert.Error(t, verifier.Verify(body, "deadbeef"))
	assert.Error(t, verifier.Verify(body, ""))
}

func TestVerifyRejectsTamperedBody(t *testing.T) {
	verifier := NewWebhookVerifier("shh")
	signature := sign("shh", []byte(`{"id":"dv-1"}`))

	assert.Error(t, verifier.Verify([]byte(`{"id":"dv-2"}`), signature))
}

func TestEnabled(t *testing.T) {
	assert.True(t, NewWebhookVerifier("shh").Enabled())
	assert.False(t, NewWebhookVerifier("").Enabled())
}
