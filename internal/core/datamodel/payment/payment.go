package payment

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Order lifecycle. An order stays "attempted" while confirmations trickle in
// and flips to "paid" exactly once, when the captured sum reaches the order
// amount.
const (
	OrderStatusCreated   = "created"
	OrderStatusAttempted = "attempted"
	OrderStatusPaid      = "paid"
)

// Gateway-reported payment states. Captured is the terminal success state;
// refunded and disputed are reachable after captured.
const (
	PaymentStatusCreated    = "created"
	PaymentStatusAuthorized = "authorized"
	PaymentStatusCaptured   = "captured"
	PaymentStatusRefunded   = "refunded"
	PaymentStatusDisputed   = "disputed"
	PaymentStatusPending    = "pending"
	PaymentStatusFailed     = "failed"
)

// PaymentOrder is one charge against the gateway for a domain payable.
// Receipt is the stable domain key (at most one live order per receipt);
// GatewayReceipt is receipt plus a creation timestamp because the provider
// requires per-attempt-unique receipts.
type PaymentOrder struct {
	ID             int64           `json:"id" gorm:"primaryKey"`
	Receipt        string          `json:"receipt" gorm:"column:receipt;not null;uniqueIndex"`
	GatewayReceipt string          `json:"gateway_receipt" gorm:"column:gateway_receipt"`
	GatewayOrderID string          `json:"gateway_order_id" gorm:"column:gateway_order_id;not null;uniqueIndex"`
	Amount         decimal.Decimal `json:"amount" gorm:"column:amount;type:numeric(12,2);not null"`
	Currency       string          `json:"currency" gorm:"column:currency;not null;default:'INR'"`
	Status         string          `json:"status" gorm:"column:status;not null;default:'created'"`
	Source         string          `json:"source" gorm:"column:source;not null"`
	Payload        json.RawMessage `json:"payload" gorm:"column:payload;type:jsonb"`
	UserID         *int64          `json:"user_id,omitempty" gorm:"column:user_id"`
	CreatedAt      time.Time       `json:"created_at" gorm:"column:created_at"`
	UpdatedAt      time.Time       `json:"updated_at" gorm:"column:updated_at"`

	PaymentLogs []PaymentLog `json:"-" gorm:"foreignKey:OrderID"`
}

func (PaymentOrder) TableName() string {
	return "payment_orders"
}

// PaymentLog is the ledger row for one distinct gateway payment attempt.
// Amount is in integer minor units as reported by the gateway; the sum over
// captured rows is the authoritative amount paid for the order.
type PaymentLog struct {
	ID               int64           `json:"id" gorm:"primaryKey"`
	OrderID          int64           `json:"order_id" gorm:"column:order_id;not null;index"`
	GatewayPaymentID string          `json:"gateway_payment_id" gorm:"column:gateway_payment_id;not null;uniqueIndex"`
	Status           string          `json:"status" gorm:"column:status;not null"`
	Amount           int64           `json:"amount" gorm:"column:amount;not null;default:0"`
	PaymentMethod    *string         `json:"payment_method,omitempty" gorm:"column:payment_method"`
	PaymentDetails   json.RawMessage `json:"payment_details,omitempty" gorm:"column:payment_details;type:jsonb"`
	CreatedAt        time.Time       `json:"created_at" gorm:"column:created_at"`
	UpdatedAt        time.Time       `json:"updated_at" gorm:"column:updated_at"`

	Order *PaymentOrder `json:"order,omitempty" gorm:"foreignKey:OrderID"`
}

func (PaymentLog) TableName() string {
	return "payment_logs"
}

// WebhookLog records a gateway event before any processing happens, so a
// redelivered event id is a guaranteed no-op even if processing crashed.
type WebhookLog struct {
	ID        int64           `json:"id" gorm:"primaryKey"`
	EventID   string          `json:"event_id" gorm:"column:event_id;not null;uniqueIndex"`
	Entity    string          `json:"entity" gorm:"column:entity"`
	Event     string          `json:"event" gorm:"column:event"`
	Signature string          `json:"signature" gorm:"column:signature"`
	Payload   json.RawMessage `json:"payload" gorm:"column:payload;type:jsonb"`
	CreatedAt time.Time       `json:"created_at" gorm:"column:created_at"`
}

func (WebhookLog) TableName() string {
	return "webhook_logs"
}
