package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// VerifyWebhookSignature checks the HMAC-SHA256 signature the provider sends
// with each webhook. It must be computed over the exact raw request bytes;
// re-serializing the JSON first produces a different byte sequence and breaks
// verification.
func VerifyWebhookSignature(rawBody []byte, signature, secret string) bool {
	if signature == "" || secret == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}
