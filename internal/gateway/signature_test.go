package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("VerifyWebhookSignature", func() {
	const secret = "whsec_test"

	sign := func(body []byte) string {
		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write(body)
		return hex.EncodeToString(mac.Sum(nil))
	}

	It("accepts a signature computed over the exact raw bytes", func() {
		body := []byte(`{"event":"payment.captured","payload":{}}`)

		Expect(VerifyWebhookSignature(body, sign(body), secret)).To(BeTrue())
	})

	It("rejects when the body was altered", func() {
		body := []byte(`{"event":"payment.captured"}`)
		signature := sign(body)

		tampered := []byte(`{"event":"payment.captured" }`)
		Expect(VerifyWebhookSignature(tampered, signature, secret)).To(BeFalse())
	})

	It("rejects a signature under a different secret", func() {
		body := []byte(`{}`)
		mac := hmac.New(sha256.New, []byte("other_secret"))
		mac.Write(body)

		Expect(VerifyWebhookSignature(body, hex.EncodeToString(mac.Sum(nil)), secret)).To(BeFalse())
	})

	It("rejects an empty signature", func() {
		Expect(VerifyWebhookSignature([]byte(`{}`), "", secret)).To(BeFalse())
	})

	It("rejects when no secret is configured", func() {
		body := []byte(`{}`)
		Expect(VerifyWebhookSignature(body, sign(body), "")).To(BeFalse())
	})
})
