package payment

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	errors "github.com/my-other-app/moa-backend/internal"
	"github.com/my-other-app/moa-backend/internal/core/datamodel/payment"
)

// ErrDuplicate is reported by repositories when an insert loses a
// unique-constraint race. Callers re-read the winner's row instead of failing.
var ErrDuplicate = stderrors.New("duplicate row")

// Payload is the opaque creation request for a payable. Only the registered
// payable for a source knows which keys it needs.
type Payload map[string]interface{}

func (p Payload) Int64(key string) (int64, bool) {
	switch v := p[key].(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	}
	return 0, false
}

func (p Payload) String(key string) (string, bool) {
	if v, ok := p[key].(string); ok {
		return v, true
	}
	return "", false
}

// Notes flattens the payload for the gateway's order notes.
func (p Payload) Notes() map[string]string {
	notes := make(map[string]string, len(p))
	for k, v := range p {
		notes[k] = fmt.Sprintf("%v", v)
	}
	return notes
}

// Payable is what a domain object type registers to participate in the
// payment lifecycle. Resolve validates a creation request and returns the
// amount due plus the stable receipt; OnPaid applies a settled order's effect
// back onto the domain object.
type Payable interface {
	Resolve(ctx context.Context, payload Payload) (amountDue decimal.Decimal, receipt string, err error)
	OnPaid(ctx context.Context, order *payment.PaymentOrder) error
}

// Registry maps payment sources to their Payable. New payable types register
// at process start; dispatch code never changes.
type Registry struct {
	mu      sync.RWMutex
	sources map[string]Payable
	logger  *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		sources: make(map[string]Payable),
		logger:  logger,
	}
}

func (r *Registry) Register(source string, p Payable) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sources[source] = p
	r.logger.Info("payable source registered", "source", source)
}

func (r *Registry) lookup(source string) (Payable, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.sources[source]
	if !ok {
		return nil, errors.NewValidationFieldError("source", "source is invalid", errors.ErrCodeInvalidSource)
	}
	return p, nil
}

func (r *Registry) Resolve(ctx context.Context, source string, payload Payload) (decimal.Decimal, string, error) {
	p, err := r.lookup(source)
	if err != nil {
		return decimal.Zero, "", err
	}
	return p.Resolve(ctx, payload)
}

func (r *Registry) OnPaid(ctx context.Context, order *payment.PaymentOrder) error {
	p, err := r.lookup(order.Source)
	if err != nil {
		return err
	}
	return p.OnPaid(ctx, order)
}

// Minor-unit conversion lives here and nowhere else. The gateway speaks
// integer minor units, the domain speaks decimal major units.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).IntPart()
}

func ToMajorUnits(amountMinor int64) decimal.Decimal {
	return decimal.NewFromInt(amountMinor).Div(decimal.NewFromInt(100))
}
