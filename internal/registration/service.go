package registration

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	errors "github.com/my-other-app/moa-backend/internal"
	datamodel "github.com/my-other-app/moa-backend/internal/core/datamodel/payment"
	"github.com/my-other-app/moa-backend/internal/core/datamodel/registration"
	"github.com/my-other-app/moa-backend/internal/payment"
)

// Source is the payable source key registrations register under.
const Source = "event_registration"

const receiptPrefix = "er_"

type Repository interface {
	GetByID(id int64) (*registration.EventRegistration, error)
	GetByEventAndID(eventID, id int64) (*registration.EventRegistration, error)
	GetByReceipt(receipt string) (*registration.EventRegistration, error)
	Update(reg *registration.EventRegistration) error
}

// LedgerReader exposes the captured total of an order's ledger.
type LedgerReader interface {
	SumCapturedByOrderID(orderID int64) (int64, error)
}

// Notifier delivers the ticket once a registration is fully paid.
type Notifier interface {
	SendTicket(ctx context.Context, reg *registration.EventRegistration) error
}

// Service implements the payable contract for event registrations.
type Service struct {
	repo     Repository
	ledger   LedgerReader
	notifier Notifier
	logger   *slog.Logger
}

func NewService(repo Repository, ledger LedgerReader, notifier Notifier, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		ledger:   ledger,
		notifier: notifier,
		logger:   logger,
	}
}

// Resolve validates that the registration can accept a payment and returns
// the amount still due together with its stable receipt. The receipt is
// written back onto the registration row so webhooks can find it later.
func (s *Service) Resolve(ctx context.Context, payload payment.Payload) (decimal.Decimal, string, error) {
	eventID, ok := payload.Int64("event_id")
	if !ok {
		return decimal.Zero, "", errors.NewValidationFieldError("event_id", "event_id is required", errors.ErrCodeInvalidPayload)
	}
	registrationID, ok := payload.Int64("event_registration_id")
	if !ok {
		return decimal.Zero, "", errors.NewValidationFieldError("event_registration_id", "event_registration_id is required", errors.ErrCodeInvalidPayload)
	}

	reg, err := s.repo.GetByEventAndID(eventID, registrationID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, "", errors.NewNotFoundError("registration not found", errors.ErrCodeRegistrationNotFound)
		}
		return decimal.Zero, "", errors.NewInternalError("failed to look up registration", err)
	}

	if reg.IsPaid {
		return decimal.Zero, "", errors.NewConflictError("registration is already paid", errors.ErrCodeAlreadyPaid)
	}

	amountDue := reg.AmountDue()
	if !amountDue.IsPositive() {
		return decimal.Zero, "", errors.NewConflictError("registration has nothing left to pay", errors.ErrCodeNothingToPay)
	}

	receipt := receiptPrefix + reg.TicketID
	if reg.PaymentReceipt == nil || *reg.PaymentReceipt != receipt {
		reg.PaymentReceipt = &receipt
		if err := s.repo.Update(reg); err != nil {
			return decimal.Zero, "", errors.NewInternalError("failed to stamp registration receipt", err)
		}
	}

	return amountDue, receipt, nil
}

// OnPaid settles the registration against the order's captured total. A
// partial capture updates the paid amount and leaves the registration open;
// the ticket goes out only on the transition to fully paid.
func (s *Service) OnPaid(ctx context.Context, order *datamodel.PaymentOrder) error {
	reg, err := s.repo.GetByReceipt(order.Receipt)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return errors.NewNotFoundError(fmt.Sprintf("no registration for receipt %s", order.Receipt), errors.ErrCodeReceiptNotFound)
		}
		return errors.NewInternalError("failed to look up registration", err)
	}

	totalMinor, err := s.ledger.SumCapturedByOrderID(order.ID)
	if err != nil {
		return errors.NewInternalError("failed to sum captured payments", err)
	}
	totalMajor := payment.ToMajorUnits(totalMinor)

	wasPaid := reg.IsPaid
	reg.PaidAmount = totalMajor
	reg.IsPaid = totalMajor.GreaterThanOrEqual(reg.ActualAmount)

	if err := s.repo.Update(reg); err != nil {
		return errors.NewInternalError("failed to update registration", err)
	}

	s.logger.Info("registration payment applied",
		"registration_id", reg.ID,
		"ticket_id", reg.TicketID,
		"paid_amount", totalMajor.String(),
		"actual_amount", reg.ActualAmount.String(),
		"is_paid", reg.IsPaid)

	if reg.IsPaid && !wasPaid && s.notifier != nil {
		// Ticket delivery is best effort; the settled payment stands even
		// when the mail bounces.
		if err := s.notifier.SendTicket(ctx, reg); err != nil {
			s.logger.Error("ticket delivery failed",
				"registration_id", reg.ID,
				"email", reg.Email,
				"error", err)
		}
	}

	return nil
}
