package payment

import (
	"encoding/json"
	"net/http"

	"github.com/my-other-app/moa-backend/internal/auth"
	"github.com/my-other-app/moa-backend/internal/transport"
	"github.com/my-other-app/moa-backend/pkg/logger"
)

type Handler struct {
	transport.BaseHandler
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// CreateOrder godoc
// @Summary Create or retrieve a payment order
// @Description Resolves the payable named by source and returns the one live order for it. Calling again before payment returns the same order.
// @Tags payments
// @Accept json
// @Produce json
// @Param request body CreateOrderRequest true "order request"
// @Success 200 {object} OrderResponse
// @Failure 400 {object} errors.AppError
// @Failure 401 {object} errors.AppError
// @Security BearerAuth
// @Router /payments/orders [post]
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	log := logger.From(r.Context())

	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn("malformed order request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := req.Validate(); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	order, err := h.service.CreateOrder(r.Context(), req.Source, req.Payload, user.ID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, NewOrderResponse(order))
}

// VerifyPayment godoc
// @Summary Verify a payment against the gateway
// @Description Fetches the payment from the gateway, records it on the ledger and settles the order when the captured total covers it. Idempotent.
// @Tags payments
// @Accept json
// @Produce json
// @Param request body VerifyPaymentRequest true "verification request"
// @Success 200 {object} VerifyPaymentResponse
// @Failure 400 {object} errors.AppError
// @Failure 404 {object} errors.AppError
// @Router /payments/verify [post]
func (h *Handler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	log := logger.From(r.Context())

	var req VerifyPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn("malformed verification request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := req.Validate(); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	paymentLog, err := h.service.VerifyPayment(r.Context(), req.GatewayOrderID, req.GatewayPaymentID, nil, true)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, NewVerifyPaymentResponse(paymentLog))
}
