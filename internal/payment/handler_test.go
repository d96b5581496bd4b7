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

	"github.com/my-other-app/moa-backend/internal/auth"
	"github.com/my-other-app/moa-backend/internal/core/datamodel/payment"
	"github.com/my-other-app/moa-backend/internal/core/events"
	paymentPkg "github.com/my-other-app/moa-backend/internal/payment"
)

var _ = Describe("PaymentHandler", func() {
	var (
		handler   *paymentPkg.Handler
		service   *paymentPkg.Service
		orderRepo *mockOrderRepository
		logRepo   *mockLogRepository
		gw        *mockGateway
		payable   *mockPayable
	)

	newAuthedRequest := func(method, target string, body []byte) *http.Request {
		req := httptest.NewRequest(method, target, bytes.NewReader(body))
		ctx := auth.ContextWithUser(req.Context(), &auth.User{ID: 42, Email: "demo@myotherapp.com", Name: "Demo"})
		return req.WithContext(ctx)
	}

	BeforeEach(func() {
		log := quietLogger()

		orderRepo = newMockOrderRepository()
		logRepo = newMockLogRepository(orderRepo)
		gw = newMockGateway()

		payable = &mockPayable{
			amountDue: decimal.NewFromInt(500),
			receipt:   "er_ticket-xyz",
		}

		registry := paymentPkg.NewRegistry(log)
		registry.Register("event_registration", payable)

		service = paymentPkg.NewService(
			orderRepo, logRepo, newMockWebhookRepository(),
			gw, registry, events.NewEventBus(log),
			"INR", testWebhookSecret, log,
		)
		handler = paymentPkg.NewHandler(service)
	})

	Describe("CreateOrder", func() {
		Context("with a valid request", func() {
			It("returns the order with the amount in minor units", func() {
				body := []byte(`{"source":"event_registration","payload":{"event_id":1,"event_registration_id":7}}`)
				req := newAuthedRequest(http.MethodPost, "/api/v1/payments/orders", body)
				rec := httptest.NewRecorder()

				handler.CreateOrder(rec, req)

				Expect(rec.Code).To(Equal(http.StatusOK))

				var resp paymentPkg.OrderResponse
				Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
				Expect(resp.Amount).To(Equal(int64(50000)))
				Expect(resp.Currency).To(Equal("INR"))
				Expect(resp.GatewayOrderID).ToNot(BeEmpty())
				Expect(resp.Status).To(Equal(payment.OrderStatusCreated))
			})
		})

		Context("without an authenticated user", func() {
			It("returns 401", func() {
				body := []byte(`{"source":"event_registration","payload":{}}`)
				req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/orders", bytes.NewReader(body))
				rec := httptest.NewRecorder()

				handler.CreateOrder(rec, req)

				Expect(rec.Code).To(Equal(http.StatusUnauthorized))
			})
		})

		Context("with a missing source", func() {
			It("returns 400", func() {
				body := []byte(`{"payload":{"event_id":1}}`)
				req := newAuthedRequest(http.MethodPost, "/api/v1/payments/orders", body)
				rec := httptest.NewRecorder()

				handler.CreateOrder(rec, req)

				Expect(rec.Code).To(Equal(http.StatusBadRequest))
			})
		})

		Context("with a malformed body", func() {
			It("returns 400", func() {
				req := newAuthedRequest(http.MethodPost, "/api/v1/payments/orders", []byte(`{not json`))
				rec := httptest.NewRecorder()

				handler.CreateOrder(rec, req)

				Expect(rec.Code).To(Equal(http.StatusBadRequest))
			})
		})
	})

	Describe("VerifyPayment", func() {
		var order *payment.PaymentOrder

		BeforeEach(func() {
			var err error
			order, err = service.CreateOrder(context.Background(), "event_registration",
				paymentPkg.Payload{"event_id": float64(1), "event_registration_id": float64(7)}, 42)
			Expect(err).ToNot(HaveOccurred())
		})

		Context("when the payment is captured in full", func() {
			It("reports captured status and zero remaining", func() {
				gw.payments["pay_1"] = upiPayment("pay_1", order.GatewayOrderID, payment.PaymentStatusCaptured, 50000)

				body := []byte(`{"gateway_order_id":"` + order.GatewayOrderID + `","gateway_payment_id":"pay_1"}`)
				req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/verify", bytes.NewReader(body))
				rec := httptest.NewRecorder()

				handler.VerifyPayment(rec, req)

				Expect(rec.Code).To(Equal(http.StatusOK))

				var resp paymentPkg.VerifyPaymentResponse
				Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
				Expect(resp.PaymentStatus).To(Equal(payment.PaymentStatusCaptured))
				Expect(resp.PaymentAmount.Equal(decimal.NewFromInt(500))).To(BeTrue())
				Expect(resp.RemainingAmount.IsZero()).To(BeTrue())
			})
		})

		Context("when the gateway order id is unknown", func() {
			It("returns 404", func() {
				body := []byte(`{"gateway_order_id":"order_nope","gateway_payment_id":"pay_1"}`)
				req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/verify", bytes.NewReader(body))
				rec := httptest.NewRecorder()

				handler.VerifyPayment(rec, req)

				Expect(rec.Code).To(Equal(http.StatusNotFound))
			})
		})

		Context("when identifiers are missing", func() {
			It("returns 400", func() {
				body := []byte(`{"gateway_order_id":"` + order.GatewayOrderID + `"}`)
				req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/verify", bytes.NewReader(body))
				rec := httptest.NewRecorder()

				handler.VerifyPayment(rec, req)

				Expect(rec.Code).To(Equal(http.StatusBadRequest))
			})
		})
	})
})
