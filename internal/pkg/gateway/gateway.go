package gateway

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrGateway marks retryable upstream failures. The ledger never rolls back
// because of a gateway failure; callers retry the dispatch, not the debit.
var ErrGateway = errors.New("payment gateway error")

// Order represents a created gateway payment order
type Order struct {
	OrderID    string `json:"order_id"`
	PaymentURL string `json:"payment_url"`
	Status     string `json:"status"`
}

// CaptureResult represents the outcome of capturing an order
type CaptureResult struct {
	OrderID   string `json:"order_id"`
	Succeeded bool   `json:"succeeded"`
}

// PaymentGateway is the capability contract for the external payment provider.
// Payout dispatch must be idempotent by reference on the provider side.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, amount decimal.Decimal, currency string) (*Order, error)
	CaptureOrder(ctx context.Context, orderID string) (*CaptureResult, error)
	DispatchPayout(ctx context.Context, destination string, amount decimal.Decimal, reference string) (string, error)
}
