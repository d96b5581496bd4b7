package payment

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	apperrors "github.com/my-other-app/moa-backend/internal"
	"github.com/my-other-app/moa-backend/internal/gateway"
)

func decodeDetails(raw json.RawMessage) map[string]interface{} {
	var details map[string]interface{}
	ExpectWithOffset(1, json.Unmarshal(raw, &details)).To(Succeed())
	return details
}

var _ = Describe("normalizeMethodDetails", func() {
	Context("upi", func() {
		It("keeps the upi block", func() {
			raw := gateway.RawPayment{
				"upi": map[string]interface{}{"vpa": "payer@bank", "flow": "collect"},
			}

			encoded, err := normalizeMethodDetails(MethodUPI, raw)

			Expect(err).ToNot(HaveOccurred())
			details := decodeDetails(encoded)
			Expect(details).To(HaveKeyWithValue("vpa", "payer@bank"))
			Expect(details).To(HaveKeyWithValue("flow", "collect"))
		})
	})

	Context("netbanking", func() {
		It("keeps the acquirer data with its bank code", func() {
			raw := gateway.RawPayment{
				"acquirer_data": map[string]interface{}{"bank_transaction_id": "txn123", "bank": "ICIC"},
			}

			encoded, err := normalizeMethodDetails(MethodNetbanking, raw)

			Expect(err).ToNot(HaveOccurred())
			details := decodeDetails(encoded)
			Expect(details).To(HaveKeyWithValue("bank_transaction_id", "txn123"))
			Expect(details).To(HaveKeyWithValue("bank", "ICIC"))
		})

		It("stores an explicit null bank when the acquirer omits it", func() {
			raw := gateway.RawPayment{
				"acquirer_data": map[string]interface{}{"bank_transaction_id": "txn123"},
				"bank":          "HDFC",
			}

			encoded, err := normalizeMethodDetails(MethodNetbanking, raw)

			Expect(err).ToNot(HaveOccurred())
			details := decodeDetails(encoded)
			Expect(details).To(HaveKey("bank"))
			Expect(details["bank"]).To(BeNil())
		})
	})

	Context("card", func() {
		It("prefers the expanded card block", func() {
			raw := gateway.RawPayment{
				"card":          map[string]interface{}{"last4": "4242", "network": "Visa"},
				"acquirer_data": map[string]interface{}{"auth_code": "123456"},
			}

			encoded, err := normalizeMethodDetails(MethodCard, raw)

			Expect(err).ToNot(HaveOccurred())
			details := decodeDetails(encoded)
			Expect(details).To(HaveKeyWithValue("last4", "4242"))
			Expect(details).ToNot(HaveKey("auth_code"))
		})

		It("falls back to acquirer data when the card block is absent", func() {
			raw := gateway.RawPayment{
				"acquirer_data": map[string]interface{}{"auth_code": "123456"},
			}

			encoded, err := normalizeMethodDetails(MethodCard, raw)

			Expect(err).ToNot(HaveOccurred())
			Expect(decodeDetails(encoded)).To(HaveKeyWithValue("auth_code", "123456"))
		})
	})

	Context("wallet", func() {
		It("merges the wallet name into acquirer data", func() {
			raw := gateway.RawPayment{
				"acquirer_data": map[string]interface{}{"transaction_id": "w1"},
				"wallet":        "freecharge",
			}

			encoded, err := normalizeMethodDetails(MethodWallet, raw)

			Expect(err).ToNot(HaveOccurred())
			details := decodeDetails(encoded)
			Expect(details).To(HaveKeyWithValue("transaction_id", "w1"))
			Expect(details).To(HaveKeyWithValue("wallet", "freecharge"))
		})
	})

	Context("unknown method", func() {
		It("rejects instead of storing blind", func() {
			_, err := normalizeMethodDetails("emi", gateway.RawPayment{})

			Expect(err).To(HaveOccurred())
			appErr, ok := apperrors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(apperrors.ErrorTypeValidation))
			details, ok := appErr.Details.(apperrors.ValidationErrors)
			Expect(ok).To(BeTrue())
			Expect(details.Errors).To(HaveLen(1))
			Expect(details.Errors[0].Code).To(Equal(string(apperrors.ErrCodeInvalidMethod)))
		})
	})

	Context("missing method block", func() {
		It("stores an empty object rather than failing", func() {
			encoded, err := normalizeMethodDetails(MethodUPI, gateway.RawPayment{})

			Expect(err).ToNot(HaveOccurred())
			Expect(decodeDetails(encoded)).To(BeEmpty())
		})
	})
})
