package payment_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/my-other-app/moa-backend/internal/core/datamodel/payment"
	"github.com/my-other-app/moa-backend/internal/core/events"
	paymentPkg "github.com/my-other-app/moa-backend/internal/payment"
)

var _ = Describe("WebhookHandler", func() {
	var (
		handler     *paymentPkg.WebhookHandler
		service     *paymentPkg.Service
		orderRepo   *mockOrderRepository
		logRepo     *mockLogRepository
		webhookRepo *mockWebhookRepository
		payable     *mockPayable
		order       *payment.PaymentOrder
	)

	BeforeEach(func() {
		log := quietLogger()

		orderRepo = newMockOrderRepository()
		logRepo = newMockLogRepository(orderRepo)
		webhookRepo = newMockWebhookRepository()

		payable = &mockPayable{
			amountDue: decimal.NewFromInt(500),
			receipt:   "er_ticket-hook",
		}

		registry := paymentPkg.NewRegistry(log)
		registry.Register("event_registration", payable)

		service = paymentPkg.NewService(
			orderRepo, logRepo, webhookRepo,
			newMockGateway(), registry, events.NewEventBus(log),
			"INR", testWebhookSecret, log,
		)
		handler = paymentPkg.NewWebhookHandler(service)

		var err error
		order, err = service.CreateOrder(context.Background(), "event_registration",
			paymentPkg.Payload{"event_id": float64(1), "event_registration_id": float64(9)}, 0)
		Expect(err).ToNot(HaveOccurred())
	})

	deliver := func(eventID, signature string, body []byte) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook", bytes.NewReader(body))
		if signature != "" {
			req.Header.Set("X-Razorpay-Signature", signature)
		}
		if eventID != "" {
			req.Header.Set("X-Razorpay-Event-Id", eventID)
		}
		rec := httptest.NewRecorder()
		handler.HandleWebhook(rec, req)
		return rec
	}

	capturedBody := func(paymentID string, amountMinor int64) []byte {
		body, err := json.Marshal(map[string]interface{}{
			"entity": "event",
			"event":  "payment.captured",
			"payload": map[string]interface{}{
				"payment": map[string]interface{}{
					"entity": upiPayment(paymentID, order.GatewayOrderID, payment.PaymentStatusCaptured, amountMinor),
				},
			},
		})
		Expect(err).ToNot(HaveOccurred())
		return body
	}

	Context("with a correctly signed delivery", func() {
		It("returns 200 and settles the order", func() {
			body := capturedBody("pay_wh1", 50000)

			rec := deliver("evt_wh1", signBody(body), body)

			Expect(rec.Code).To(Equal(http.StatusOK))

			stored, err := orderRepo.GetByReceipt(order.Receipt)
			Expect(err).ToNot(HaveOccurred())
			Expect(stored.Status).To(Equal(payment.OrderStatusPaid))
		})
	})

	Context("with a replayed delivery", func() {
		It("returns 200 without reprocessing", func() {
			body := capturedBody("pay_wh2", 50000)

			Expect(deliver("evt_wh2", signBody(body), body).Code).To(Equal(http.StatusOK))
			Expect(deliver("evt_wh2", signBody(body), body).Code).To(Equal(http.StatusOK))

			Expect(payable.onPaidCalls).To(Equal(1))
			total, _ := logRepo.SumCapturedByOrderID(order.ID)
			Expect(total).To(Equal(int64(50000)))
		})
	})

	Context("with a bad signature", func() {
		It("rejects the delivery and records nothing", func() {
			body := capturedBody("pay_wh3", 50000)

			rec := deliver("evt_wh3", "deadbeef", body)

			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
			Expect(webhookRepo.seen).To(BeEmpty())
			Expect(logRepo.byPaymentID).To(BeEmpty())
		})
	})

	Context("with no signature header", func() {
		It("rejects the delivery", func() {
			body := capturedBody("pay_wh4", 50000)

			rec := deliver("evt_wh4", "", body)

			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		})
	})

	Context("with an empty body", func() {
		It("acknowledges the probe", func() {
			rec := deliver("", "", nil)

			Expect(rec.Code).To(Equal(http.StatusOK))
		})
	})
})
