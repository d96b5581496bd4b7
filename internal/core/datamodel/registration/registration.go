package registration

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventRegistration is the payable behind the "event_registration" payment
// source. The payments subsystem only ever touches it through PaymentReceipt.
type EventRegistration struct {
	ID             int64           `json:"id" gorm:"primaryKey"`
	EventID        int64           `json:"event_id" gorm:"column:event_id;not null;index"`
	UserID         int64           `json:"user_id" gorm:"column:user_id;not null"`
	TicketID       string          `json:"ticket_id" gorm:"column:ticket_id;not null;uniqueIndex"`
	FullName       string          `json:"full_name" gorm:"column:full_name"`
	Email          string          `json:"email" gorm:"column:email"`
	ActualAmount   decimal.Decimal `json:"actual_amount" gorm:"column:actual_amount;type:numeric(12,2);not null"`
	PaidAmount     decimal.Decimal `json:"paid_amount" gorm:"column:paid_amount;type:numeric(12,2);not null;default:0"`
	IsPaid         bool            `json:"is_paid" gorm:"column:is_paid;not null;default:false"`
	PaymentReceipt *string         `json:"payment_receipt,omitempty" gorm:"column:payment_receipt;index"`
	CreatedAt      time.Time       `json:"created_at" gorm:"column:created_at"`
	UpdatedAt      time.Time       `json:"updated_at" gorm:"column:updated_at"`
}

func (EventRegistration) TableName() string {
	return "event_registrations"
}

// AmountDue is what remains to be collected for this registration.
func (r *EventRegistration) AmountDue() decimal.Decimal {
	return r.ActualAmount.Sub(r.PaidAmount)
}
