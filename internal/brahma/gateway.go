package brahma

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrPaymentDeclined = errors.New("payment declined")

type ChargeRequest struct {
	Reference string
	Amount    decimal.Decimal
	Method    string
}

// PaymentGateway charges and refunds consultation fees. Charge returns the
// gateway's transaction id.
type PaymentGateway interface {
	Charge(ctx context.Context, req ChargeRequest) (string, error)
	Refund(ctx context.Context, transactionID string, amount decimal.Decimal) error
}

// MockGateway stands in for a card processor. Every call waits Latency,
// and charges above FailAbove are declined. A zero FailAbove never
// declines.
type MockGateway struct {
	Latency   time.Duration
	FailAbove decimal.Decimal
}

func (g *MockGateway) wait(ctx context.Context) error {
	if g.Latency <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(g.Latency)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (g *MockGateway) Charge(ctx context.Context, req ChargeRequest) (string, error) {
	if err := g.wait(ctx); err != nil {
		return "", err
	}
	if g.FailAbove.IsPositive() && req.Amount.GreaterThan(g.FailAbove) {
		return "", fmt.Errorf("%w: %s exceeds test limit", ErrPaymentDeclined, req.Amount)
	}
	return "txn_" + uuid.NewString(), nil
}

func (g *MockGateway) Refund(ctx context.Context, _ string, _ decimal.Decimal) error {
	return g.wait(ctx)
}
