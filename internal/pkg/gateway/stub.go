package gateway

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PayoutCall records one DispatchPayout invocation against the stub.
type PayoutCall struct {
	Destination string
	Amount      decimal.Decimal
	Reference   string
}

// Stub is an in-memory PaymentGateway for tests and local development.
type Stub struct {
	mu sync.Mutex

	FailPayouts  int // fail this many DispatchPayout calls before succeeding
	FailCaptures bool

	orders   map[string]decimal.Decimal
	Payouts  []PayoutCall
	captures int
}

// NewStub creates an in-memory gateway stub.
func NewStub() *Stub {
	return &Stub{orders: make(map[string]decimal.Decimal)}
}

func (s *Stub) CreateOrder(ctx context.Context, amount decimal.Decimal, currency string) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New().String()
	s.orders[id] = amount
	return &Order{OrderID: id, PaymentURL: "https://gateway.test/pay/" + id, Status: "created"}, nil
}

func (s *Stub) CaptureOrder(ctx context.Context, orderID string) (*CaptureResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[orderID]; !ok {
		return nil, fmt.Errorf("%w: unknown order %s", ErrGateway, orderID)
	}
	s.captures++
	if s.FailCaptures {
		return &CaptureResult{OrderID: orderID, Succeeded: false}, nil
	}
	return &CaptureResult{OrderID: orderID, Succeeded: true}, nil
}

func (s *Stub) DispatchPayout(ctx context.Context, destination string, amount decimal.Decimal, reference string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailPayouts > 0 {
		s.FailPayouts--
		return "", fmt.Errorf("%w: provider unavailable", ErrGateway)
	}

	// Idempotent by reference: a repeated dispatch returns without recording twice.
	for _, c := range s.Payouts {
		if c.Reference == reference {
			return "payout-" + reference, nil
		}
	}

	s.Payouts = append(s.Payouts, PayoutCall{Destination: destination, Amount: amount, Reference: reference})
	return "payout-" + reference, nil
}

// PayoutCount returns how many distinct payouts the stub has dispatched.
func (s *Stub) PayoutCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Payouts)
}

// CaptureCount returns how many CaptureOrder calls the stub has served.
func (s *Stub) CaptureCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.captures
}
