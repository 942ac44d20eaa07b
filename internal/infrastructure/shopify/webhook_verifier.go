package shopify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"

	"shopify-video-layer/internal/domain"
)

// HmacHeader carries the base64 HMAC-SHA256 digest of a webhook body.
const HmacHeader = "X-Shopify-Hmac-SHA256"

// WebhookVerifier validates webhook bodies against the shared app secret.
type WebhookVerifier struct {
	secret []byte
}

// NewWebhookVerifier creates a verifier for the given secret.
func NewWebhookVerifier(secret string) *WebhookVerifier {
	return &WebhookVerifier{secret: []byte(secret)}
}

// Sign returns the base64 digest Shopify would send for body.
func (v *WebhookVerifier) Sign(body []byte) string {
	return base64.StdEncoding.EncodeToString(v.sum(body))
}

// Verify recomputes the digest over the exact raw body and compares it in
// constant time.
func (v *WebhookVerifier) Verify(body []byte, digest string) error {
	digest = strings.TrimSpace(digest)
	if digest == "" {
		return fmt.Errorf("%w: missing %s header", domain.ErrWebhookSignatureInvalid, HmacHeader)
	}

	claimed, err := base64.StdEncoding.DecodeString(digest)
	if err != nil {
		return fmt.Errorf("%w: digest is not base64", domain.ErrWebhookSignatureInvalid)
	}

	if !hmac.Equal(claimed, v.sum(body)) {
		return domain.ErrWebhookSignatureInvalid
	}
	return nil
}

func (v *WebhookVerifier) sum(body []byte) []byte {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	return mac.Sum(nil)
}
