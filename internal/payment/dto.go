package payment

import (
	"github.com/shopspring/decimal"

	errors "github.com/my-other-app/moa-backend/internal"
	"github.com/my-other-app/moa-backend/internal/core/common/validation"
	"github.com/my-other-app/moa-backend/internal/core/datamodel/payment"
)

type CreateOrderRequest struct {
	Source  string  `json:"source"`
	Payload Payload `json:"payload"`
}

func (r *CreateOrderRequest) Validate() error {
	validator := validation.NewValidator()

	validator.Field("source", r.Source).Required()
	validator.Field("payload", "").Custom(func(interface{}) *errors.AppError {
		if len(r.Payload) == 0 {
			return errors.NewValidationFieldError("payload", "payload is required", errors.ErrCodeInvalidPayload)
		}
		return nil
	})

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

// OrderResponse echoes the created (or already existing) order. Amount is in
// integer minor units, ready to hand to the provider's checkout widget.
type OrderResponse struct {
	ID             int64  `json:"id"`
	GatewayOrderID string `json:"gateway_order_id"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	Status         string `json:"status"`
}

func NewOrderResponse(order *payment.PaymentOrder) *OrderResponse {
	return &OrderResponse{
		ID:             order.ID,
		GatewayOrderID: order.GatewayOrderID,
		Amount:         ToMinorUnits(order.Amount),
		Currency:       order.Currency,
		Status:         order.Status,
	}
}

type VerifyPaymentRequest struct {
	GatewayOrderID   string `json:"gateway_order_id"`
	GatewayPaymentID string `json:"gateway_payment_id"`
}

func (r *VerifyPaymentRequest) Validate() error {
	validator := validation.NewValidator()

	validator.Field("gateway_order_id", r.GatewayOrderID).Required()
	validator.Field("gateway_payment_id", r.GatewayPaymentID).Required()

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

type VerifyPaymentResponse struct {
	PaymentStatus   string          `json:"payment_status"`
	PaymentAmount   decimal.Decimal `json:"payment_amount"`
	RemainingAmount decimal.Decimal `json:"remaining_amount"`
	PaymentMethod   string          `json:"payment_method,omitempty"`
}

func NewVerifyPaymentResponse(log *payment.PaymentLog) *VerifyPaymentResponse {
	paid := ToMajorUnits(log.Amount)
	resp := &VerifyPaymentResponse{
		PaymentStatus: log.Status,
		PaymentAmount: paid,
	}
	if log.PaymentMethod != nil {
		resp.PaymentMethod = *log.PaymentMethod
	}
	if log.Order != nil {
		resp.RemainingAmount = log.Order.Amount.Sub(paid)
	}
	return resp
}
