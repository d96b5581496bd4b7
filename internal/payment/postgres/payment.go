package postgres

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	datamodel "github.com/my-other-app/moa-backend/internal/core/datamodel/payment"
	"github.com/my-other-app/moa-backend/internal/payment"
)

// isUniqueViolation recognizes unique-constraint failures from postgres and
// from the in-memory sqlite used in tests.
func isUniqueViolation(err error) bool {
	if stderrors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Create(order *datamodel.PaymentOrder) error {
	if err := r.db.Create(order).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("order for receipt %s: %w", order.Receipt, payment.ErrDuplicate)
		}
		return fmt.Errorf("create payment order: %w", err)
	}
	return nil
}

func (r *OrderRepository) GetByReceipt(receipt string) (*datamodel.PaymentOrder, error) {
	var order datamodel.PaymentOrder
	if err := r.db.Where("receipt = ?", receipt).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *OrderRepository) GetByGatewayOrderID(gatewayOrderID string) (*datamodel.PaymentOrder, error) {
	var order datamodel.PaymentOrder
	if err := r.db.Where("gateway_order_id = ?", gatewayOrderID).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *OrderRepository) UpdateStatus(id int64, status string) error {
	result := r.db.Model(&datamodel.PaymentOrder{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("update order status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// MarkPaid is a conditional update so two settlements racing on the same
// order cannot both observe the transition.
func (r *OrderRepository) MarkPaid(id int64) (bool, error) {
	result := r.db.Model(&datamodel.PaymentOrder{}).
		Where("id = ? AND status <> ?", id, datamodel.OrderStatusPaid).
		Update("status", datamodel.OrderStatusPaid)
	if result.Error != nil {
		return false, fmt.Errorf("mark order paid: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *OrderRepository) GetStuckAttempted(olderThan time.Time, limit int) ([]*datamodel.PaymentOrder, error) {
	var orders []*datamodel.PaymentOrder
	err := r.db.
		Where("status = ? AND updated_at < ?", datamodel.OrderStatusAttempted, olderThan).
		Order("updated_at ASC").
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("list stuck orders: %w", err)
	}
	return orders, nil
}

type LogRepository struct {
	db *gorm.DB
}

func NewLogRepository(db *gorm.DB) *LogRepository {
	return &LogRepository{db: db}
}

func (r *LogRepository) Create(log *datamodel.PaymentLog) error {
	if err := r.db.Create(log).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("payment log for %s: %w", log.GatewayPaymentID, payment.ErrDuplicate)
		}
		return fmt.Errorf("create payment log: %w", err)
	}
	return nil
}

func (r *LogRepository) GetByGatewayPaymentID(gatewayPaymentID string) (*datamodel.PaymentLog, error) {
	var log datamodel.PaymentLog
	err := r.db.
		Preload("Order").
		Where("gateway_payment_id = ?", gatewayPaymentID).
		First(&log).Error
	if err != nil {
		return nil, err
	}
	return &log, nil
}

func (r *LogRepository) Update(log *datamodel.PaymentLog) error {
	if err := r.db.Save(log).Error; err != nil {
		return fmt.Errorf("update payment log: %w", err)
	}
	return nil
}

// SumCapturedByOrderID recomputes the captured total from the ledger rows.
func (r *LogRepository) SumCapturedByOrderID(orderID int64) (int64, error) {
	var total int64
	err := r.db.Model(&datamodel.PaymentLog{}).
		Where("order_id = ? AND status = ?", orderID, datamodel.PaymentStatusCaptured).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("sum captured payments: %w", err)
	}
	return total, nil
}

func (r *LogRepository) ListPendingByOrderID(orderID int64) ([]*datamodel.PaymentLog, error) {
	var logs []*datamodel.PaymentLog
	err := r.db.
		Where("order_id = ? AND status IN ?", orderID,
			[]string{datamodel.PaymentStatusCreated, datamodel.PaymentStatusAuthorized, datamodel.PaymentStatusPending}).
		Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("list pending payments: %w", err)
	}
	return logs, nil
}

type WebhookRepository struct {
	db *gorm.DB
}

func NewWebhookRepository(db *gorm.DB) *WebhookRepository {
	return &WebhookRepository{db: db}
}

// Insert records the event. A redelivered event id reports created=false
// without error.
func (r *WebhookRepository) Insert(log *datamodel.WebhookLog) (bool, error) {
	if err := r.db.Create(log).Error; err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("insert webhook log: %w", err)
	}
	return true, nil
}
