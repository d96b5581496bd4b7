package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypePaymentCaptured = "payment.captured"
	EventTypeOrderPaid       = "payment.order_paid"
)

// PaymentCapturedEvent fires for every captured confirmation, including
// partial ones that do not settle the order.
type PaymentCapturedEvent struct {
	BaseEvent
	OrderID          int64  `json:"order_id"`
	Receipt          string `json:"receipt"`
	GatewayPaymentID string `json:"gateway_payment_id"`
	AmountMinor      int64  `json:"amount_minor"`
	PaymentMethod    string `json:"payment_method"`
}

func NewPaymentCapturedEvent(orderID int64, receipt, gatewayPaymentID string, amountMinor int64, method string) *PaymentCapturedEvent {
	return &PaymentCapturedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePaymentCaptured,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"order_id":           orderID,
				"receipt":            receipt,
				"gateway_payment_id": gatewayPaymentID,
				"amount_minor":       amountMinor,
				"payment_method":     method,
			},
		},
		OrderID:          orderID,
		Receipt:          receipt,
		GatewayPaymentID: gatewayPaymentID,
		AmountMinor:      amountMinor,
		PaymentMethod:    method,
	}
}

// OrderPaidEvent fires exactly once per order, when the captured sum first
// reaches the order amount.
type OrderPaidEvent struct {
	BaseEvent
	OrderID          int64  `json:"order_id"`
	Receipt          string `json:"receipt"`
	Source           string `json:"source"`
	Amount           string `json:"amount"`
	Currency         string `json:"currency"`
	GatewayPaymentID string `json:"gateway_payment_id"`
	PaymentMethod    string `json:"payment_method"`
	UserID           int64  `json:"user_id,omitempty"`
}

func NewOrderPaidEvent(orderID int64, receipt, source, amount, currency, gatewayPaymentID, method string, userID int64) *OrderPaidEvent {
	return &OrderPaidEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeOrderPaid,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"order_id":           orderID,
				"receipt":            receipt,
				"source":             source,
				"amount":             amount,
				"currency":           currency,
				"gateway_payment_id": gatewayPaymentID,
				"payment_method":     method,
				"user_id":            userID,
			},
		},
		OrderID:          orderID,
		Receipt:          receipt,
		Source:           source,
		Amount:           amount,
		Currency:         currency,
		GatewayPaymentID: gatewayPaymentID,
		PaymentMethod:    method,
		UserID:           userID,
	}
}
