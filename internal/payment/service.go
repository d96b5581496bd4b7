package payment

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	errors "github.com/my-other-app/moa-backend/internal"
	"github.com/my-other-app/moa-backend/internal/core/datamodel/payment"
	"github.com/my-other-app/moa-backend/internal/core/events"
	"github.com/my-other-app/moa-backend/internal/gateway"
)

// OrderRepository persists payment orders. Uniqueness of receipt and
// gateway_order_id is enforced by the database; Create reports a lost race as
// ErrDuplicate.
type OrderRepository interface {
	Create(order *payment.PaymentOrder) error
	GetByReceipt(receipt string) (*payment.PaymentOrder, error)
	GetByGatewayOrderID(gatewayOrderID string) (*payment.PaymentOrder, error)
	UpdateStatus(id int64, status string) error
	// MarkPaid flips the order to paid unless it already is, reporting whether
	// this call made the transition. Concurrent settlements race on this flag.
	MarkPaid(id int64) (bool, error)
	GetStuckAttempted(olderThan time.Time, limit int) ([]*payment.PaymentOrder, error)
}

// LogRepository persists the payment ledger. SumCapturedByOrderID recomputes
// the captured total fresh from storage every time; the total is never
// accumulated incrementally.
type LogRepository interface {
	Create(log *payment.PaymentLog) error
	GetByGatewayPaymentID(gatewayPaymentID string) (*payment.PaymentLog, error)
	Update(log *payment.PaymentLog) error
	SumCapturedByOrderID(orderID int64) (int64, error)
	ListPendingByOrderID(orderID int64) ([]*payment.PaymentLog, error)
}

// WebhookRepository records inbound gateway events. Insert returns false when
// the event id was already recorded.
type WebhookRepository interface {
	Insert(log *payment.WebhookLog) (created bool, err error)
}

// GatewayAPI is the slice of the gateway client the service needs.
type GatewayAPI interface {
	CreateOrder(ctx context.Context, req gateway.OrderRequest) (*gateway.Order, error)
	FetchPayment(ctx context.Context, paymentID string) (gateway.RawPayment, error)
	FetchPaymentExpanded(ctx context.Context, paymentID, expand string) (gateway.RawPayment, error)
}

type Service struct {
	orders        OrderRepository
	logs          LogRepository
	webhooks      WebhookRepository
	gateway       GatewayAPI
	registry      *Registry
	eventBus      *events.EventBus
	currency      string
	webhookSecret string
	logger        *slog.Logger
}

func NewService(
	orders OrderRepository,
	logs LogRepository,
	webhooks WebhookRepository,
	gatewayClient GatewayAPI,
	registry *Registry,
	eventBus *events.EventBus,
	currency string,
	webhookSecret string,
	logger *slog.Logger,
) *Service {
	return &Service{
		orders:        orders,
		logs:          logs,
		webhooks:      webhooks,
		gateway:       gatewayClient,
		registry:      registry,
		eventBus:      eventBus,
		currency:      currency,
		webhookSecret: webhookSecret,
		logger:        logger,
	}
}

// CreateOrder resolves the payable, then creates or retrieves the one live
// order for its receipt. Repeated create calls for the same payable are
// idempotent: the existing order is returned unchanged and no second gateway
// order is created.
func (s *Service) CreateOrder(ctx context.Context, source string, payload Payload, userID int64) (*payment.PaymentOrder, error) {
	amountDue, receipt, err := s.registry.Resolve(ctx, source, payload)
	if err != nil {
		s.logger.Error("payable resolution failed", "source", source, "error", err)
		return nil, err
	}

	if existing, err := s.orders.GetByReceipt(receipt); err == nil {
		s.logger.Info("returning existing order for receipt",
			"receipt", receipt,
			"order_id", existing.ID,
			"gateway_order_id", existing.GatewayOrderID)
		return existing, nil
	} else if !stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.NewInternalError("failed to look up order", err)
	}

	// Providers require a per-attempt-unique receipt; the domain receipt
	// stays stable across retries.
	gatewayReceipt := fmt.Sprintf("%s#%d", receipt, time.Now().Unix())

	remote, err := s.gateway.CreateOrder(ctx, gateway.OrderRequest{
		AmountMinor: ToMinorUnits(amountDue),
		Currency:    s.currency,
		Receipt:     gatewayReceipt,
		Notes:       payload.Notes(),
	})
	if err != nil {
		return nil, err
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.NewInternalError("failed to encode order payload", err)
	}

	order := &payment.PaymentOrder{
		Receipt:        receipt,
		GatewayReceipt: gatewayReceipt,
		GatewayOrderID: remote.ID,
		Amount:         amountDue,
		Currency:       s.currency,
		Status:         payment.OrderStatusCreated,
		Source:         source,
		Payload:        payloadJSON,
	}
	if userID != 0 {
		order.UserID = &userID
	}

	if err := s.orders.Create(order); err != nil {
		if stderrors.Is(err, ErrDuplicate) {
			// Lost a concurrent-create race on the receipt; the winner's
			// order is the live one.
			return s.orders.GetByReceipt(receipt)
		}
		return nil, errors.NewInternalError("failed to persist order", err)
	}

	s.logger.Info("payment order created",
		"order_id", order.ID,
		"receipt", receipt,
		"gateway_order_id", order.GatewayOrderID,
		"amount", amountDue.String(),
		"source", source)

	return order, nil
}

// VerifyPayment is the settlement state machine. It is safe to call any
// number of times for the same gateway payment id, from the client path and
// the webhook path concurrently.
//
// details may be supplied inline (the webhook path always does) to avoid a
// gateway round trip; expandDetails requests the extra card fetch that the
// webhook path skips.
func (s *Service) VerifyPayment(ctx context.Context, gatewayOrderID, gatewayPaymentID string, details gateway.RawPayment, expandDetails bool) (*payment.PaymentLog, error) {
	order, err := s.orders.GetByGatewayOrderID(gatewayOrderID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrOrderNotFound
		}
		return nil, errors.NewInternalError("failed to look up order", err)
	}

	existingLog, err := s.logs.GetByGatewayPaymentID(gatewayPaymentID)
	if err != nil && !stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.NewInternalError("failed to look up payment log", err)
	}

	if existingLog != nil && existingLog.Status == payment.PaymentStatusCaptured {
		// Duplicate confirmation for an already captured payment.
		s.logger.Info("payment already captured, returning unchanged",
			"gateway_payment_id", gatewayPaymentID,
			"order_id", order.ID)
		return existingLog, nil
	}

	if order.Status == payment.OrderStatusPaid {
		return nil, errors.ErrOrderAlreadyPaid
	}

	if details == nil {
		details, err = s.gateway.FetchPayment(ctx, gatewayPaymentID)
		if err != nil {
			return nil, err
		}
	}

	status := details.String("status")
	method := details.String("method")

	if expandDetails && method == MethodCard {
		expanded, err := s.gateway.FetchPaymentExpanded(ctx, gatewayPaymentID, MethodCard)
		if err != nil {
			return nil, err
		}
		details = expanded
	}

	normalized, err := normalizeMethodDetails(method, details)
	if err != nil {
		return nil, err
	}

	amountMinor := details.Int64("amount")

	if status == payment.PaymentStatusCaptured {
		if err := s.recordCapture(ctx, order, existingLog, gatewayPaymentID, amountMinor, method, normalized); err != nil {
			return nil, err
		}
	} else {
		if err := s.recordAttempt(order, existingLog, gatewayPaymentID, status, amountMinor, method, normalized); err != nil {
			return nil, err
		}
	}

	committed, err := s.logs.GetByGatewayPaymentID(gatewayPaymentID)
	if err != nil {
		return nil, errors.NewInternalError("failed to reload payment log", err)
	}
	return committed, nil
}

// recordCapture writes the captured ledger row, recomputes the order's
// captured total and flips the order to paid when the total first reaches the
// order amount. The post-payment dispatcher runs exactly once, on that
// transition.
func (s *Service) recordCapture(ctx context.Context, order *payment.PaymentOrder, existingLog *payment.PaymentLog, gatewayPaymentID string, amountMinor int64, method string, normalized json.RawMessage) error {
	if err := s.writeLog(order, existingLog, gatewayPaymentID, payment.PaymentStatusCaptured, amountMinor, method, normalized); err != nil {
		return err
	}

	totalMinor, err := s.logs.SumCapturedByOrderID(order.ID)
	if err != nil {
		return errors.NewInternalError("failed to sum captured payments", err)
	}
	totalMajor := ToMajorUnits(totalMinor)

	s.eventBus.Publish(ctx, events.NewPaymentCapturedEvent(order.ID, order.Receipt, gatewayPaymentID, amountMinor, method))

	if totalMajor.GreaterThanOrEqual(order.Amount) {
		flipped, err := s.orders.MarkPaid(order.ID)
		if err != nil {
			return errors.NewInternalError("failed to mark order paid", err)
		}
		order.Status = payment.OrderStatusPaid
		if !flipped {
			// A concurrent verification crossed the threshold first and
			// already ran the dispatcher.
			s.logger.Info("order already settled concurrently", "order_id", order.ID)
			return nil
		}

		s.logger.Info("order settled",
			"order_id", order.ID,
			"receipt", order.Receipt,
			"total_captured", totalMajor.String(),
			"amount", order.Amount.String())

		if err := s.registry.OnPaid(ctx, order); err != nil {
			return err
		}

		var userID int64
		if order.UserID != nil {
			userID = *order.UserID
		}
		// Receipt notification is best effort; subscribers log their own
		// failures and a committed capture is never rolled back for one.
		s.eventBus.Publish(ctx, events.NewOrderPaidEvent(
			order.ID, order.Receipt, order.Source,
			order.Amount.String(), order.Currency,
			gatewayPaymentID, method, userID))
	} else {
		if err := s.orders.UpdateStatus(order.ID, payment.OrderStatusAttempted); err != nil {
			return errors.NewInternalError("failed to update order status", err)
		}
		order.Status = payment.OrderStatusAttempted

		s.logger.Info("partial capture recorded",
			"order_id", order.ID,
			"receipt", order.Receipt,
			"total_captured", totalMajor.String(),
			"amount", order.Amount.String())
	}

	return nil
}

// recordAttempt writes a non-captured confirmation. The order stays (or
// becomes) attempted and the dispatcher is not invoked.
func (s *Service) recordAttempt(order *payment.PaymentOrder, existingLog *payment.PaymentLog, gatewayPaymentID, status string, amountMinor int64, method string, normalized json.RawMessage) error {
	if err := s.writeLog(order, existingLog, gatewayPaymentID, status, amountMinor, method, normalized); err != nil {
		return err
	}

	if err := s.orders.UpdateStatus(order.ID, payment.OrderStatusAttempted); err != nil {
		return errors.NewInternalError("failed to update order status", err)
	}
	order.Status = payment.OrderStatusAttempted

	s.logger.Info("payment attempt recorded",
		"order_id", order.ID,
		"gateway_payment_id", gatewayPaymentID,
		"status", status)

	return nil
}

func (s *Service) writeLog(order *payment.PaymentOrder, existingLog *payment.PaymentLog, gatewayPaymentID, status string, amountMinor int64, method string, normalized json.RawMessage) error {
	if existingLog == nil {
		newLog := &payment.PaymentLog{
			OrderID:          order.ID,
			GatewayPaymentID: gatewayPaymentID,
			Status:           status,
			Amount:           amountMinor,
			PaymentMethod:    &method,
			PaymentDetails:   normalized,
		}
		if err := s.logs.Create(newLog); err != nil {
			if stderrors.Is(err, ErrDuplicate) {
				// A concurrent verification for the same payment won the
				// insert; its row is authoritative and ours is a no-op.
				s.logger.Info("lost payment log insert race, using existing row",
					"gateway_payment_id", gatewayPaymentID)
				return nil
			}
			return errors.NewInternalError("failed to write payment log", err)
		}
		return nil
	}

	existingLog.Status = status
	existingLog.Amount = amountMinor
	existingLog.PaymentMethod = &method
	existingLog.PaymentDetails = normalized
	if err := s.logs.Update(existingLog); err != nil {
		return errors.NewInternalError("failed to update payment log", err)
	}
	return nil
}

type webhookEnvelope struct {
	Entity  string          `json:"entity"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

type webhookPayload struct {
	Payment struct {
		Entity gateway.RawPayment `json:"entity"`
	} `json:"payment"`
}

// IngestWebhook processes one gateway delivery. Signature failures reject
// with zero side effects and no log row. After the event id is durably
// recorded, redelivery is a no-op and downstream failures are logged but
// never surfaced, so the provider does not retry a delivery it already made.
func (s *Service) IngestWebhook(ctx context.Context, eventID, signature string, rawBody []byte) error {
	if !gateway.VerifyWebhookSignature(rawBody, signature, s.webhookSecret) {
		s.logger.Warn("webhook signature mismatch", "event_id", eventID)
		return errors.ErrInvalidSignature
	}

	if eventID == "" {
		return errors.NewValidationFieldError("event_id", "event id header is required", errors.ErrCodeInvalidPayload)
	}

	var envelope webhookEnvelope
	if err := json.Unmarshal(rawBody, &envelope); err != nil {
		return errors.NewValidationFieldError("payload", "Invalid payload", errors.ErrCodeInvalidPayload)
	}

	created, err := s.webhooks.Insert(&payment.WebhookLog{
		EventID:   eventID,
		Entity:    envelope.Entity,
		Event:     envelope.Event,
		Signature: signature,
		Payload:   envelope.Payload,
	})
	if err != nil {
		return errors.NewInternalError("failed to record webhook event", err)
	}
	if !created {
		s.logger.Info("duplicate webhook delivery ignored", "event_id", eventID)
		return nil
	}

	var body webhookPayload
	if err := json.Unmarshal(envelope.Payload, &body); err != nil || body.Payment.Entity == nil {
		return errors.NewValidationFieldError("payload", "Invalid payload", errors.ErrCodeInvalidPayload)
	}
	entity := body.Payment.Entity

	paymentID := entity.String("id")
	orderID := entity.String("order_id")

	// The event is durably recorded; verification failures from here on are
	// logged, not surfaced, to avoid provider retry storms.
	if _, err := s.VerifyPayment(ctx, orderID, paymentID, entity, false); err != nil {
		s.logger.Error("webhook verification failed",
			"event_id", eventID,
			"gateway_order_id", orderID,
			"gateway_payment_id", paymentID,
			"error", err)
	}

	return nil
}

// ReconcileStuckOrders re-verifies orders that have sat in attempted longer
// than minAge, covering deliveries dropped between the webhook log insert and
// the ledger write. Returns the number of orders examined.
func (s *Service) ReconcileStuckOrders(ctx context.Context, minAge time.Duration, limit int) (int, error) {
	olderThan := time.Now().Add(-minAge)

	stuck, err := s.orders.GetStuckAttempted(olderThan, limit)
	if err != nil {
		return 0, errors.NewInternalError("failed to list stuck orders", err)
	}

	for _, order := range stuck {
		pending, err := s.logs.ListPendingByOrderID(order.ID)
		if err != nil {
			s.logger.Error("reconcile: failed to list pending payments", "order_id", order.ID, "error", err)
			continue
		}

		for _, log := range pending {
			if _, err := s.VerifyPayment(ctx, order.GatewayOrderID, log.GatewayPaymentID, nil, true); err != nil {
				s.logger.Warn("reconcile: verification did not settle payment",
					"order_id", order.ID,
					"gateway_payment_id", log.GatewayPaymentID,
					"error", err)
			}
		}
	}

	return len(stuck), nil
}
