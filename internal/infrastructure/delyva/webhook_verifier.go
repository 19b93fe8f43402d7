package delyva

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// WebhookVerifier validates HMAC-SHA256 signatures over raw webhook bodies.
type WebhookVerifier struct {
	secret []byte
}

// NewWebhookVerifier creates a verifier for the shared webhook secret.
func NewWebhookVerifier(secret string) *WebhookVerifier {
	return &WebhookVerifier{secret: []byte(secret)}
}

// Enabled reports whether a secret is configured. When it is not,
// verification is skipped entirely; that is a documented gap to close
// before production hardening.
func (v *WebhookVerifier) Enabled() bool {
	return len(v.secret) > 0
}

// Verify checks the hex-encoded signature against the raw body.
func (v *WebhookVerifier) Verify(body []byte, signature string) error {
	if signature == "" {
		return fmt.Errorf("missing webhook signature")
	}
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return fmt.Errorf("webhook signature mismatch")
	}
	return nil
}
