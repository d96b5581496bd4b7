package notification

import (
	"context"
	"log/slog"

	"github.com/my-other-app/moa-backend/internal/core/datamodel/registration"
	"github.com/my-other-app/moa-backend/internal/core/events"
)

// RecipientResolver maps a payment receipt back to the registration whose
// holder should get the mail.
type RecipientResolver interface {
	GetByReceipt(receipt string) (*registration.EventRegistration, error)
}

// EventHandler subscribes to settlement events and mails payment receipts.
type EventHandler struct {
	mailer   *Mailer
	resolver RecipientResolver
	logger   *slog.Logger
}

func NewEventHandler(mailer *Mailer, resolver RecipientResolver, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		mailer:   mailer,
		resolver: resolver,
		logger:   logger,
	}
}

func (h *EventHandler) Subscribe(bus *events.EventBus) {
	bus.Subscribe(events.EventTypeOrderPaid, h.handleOrderPaid)
}

func (h *EventHandler) handleOrderPaid(ctx context.Context, event events.Event) error {
	paid, ok := event.(*events.OrderPaidEvent)
	if !ok {
		h.logger.Warn("unexpected event payload", "event_type", event.EventType())
		return nil
	}

	reg, err := h.resolver.GetByReceipt(paid.Receipt)
	if err != nil {
		h.logger.Warn("no recipient for settled order",
			"receipt", paid.Receipt,
			"order_id", paid.OrderID,
			"error", err)
		return nil
	}

	if err := h.mailer.SendPaymentReceipt(ctx, reg.Email, paid.Receipt, paid.Amount, paid.Currency); err != nil {
		h.logger.Error("receipt mail failed",
			"receipt", paid.Receipt,
			"email", reg.Email,
			"error", err)
	}
	return nil
}
