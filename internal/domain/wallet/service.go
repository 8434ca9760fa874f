package wallet

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/starclip/starclip-api/internal/pkg/gateway"
)

// Service is the single entry point for ledger mutations outside the
// withdrawal approval path (which debits inside its own transaction scope).
type Service struct {
	store    Store
	gw       gateway.PaymentGateway
	events   EventPublisher
	currency string
}

func NewService(store Store, gw gateway.PaymentGateway, events EventPublisher, currency string) *Service {
	return &Service{store: store, gw: gw, events: events, currency: currency}
}

// Store exposes the underlying store to collaborating domains that must share
// its transaction scope (withdrawal approval, earnings credit).
func (s *Service) Store() Store {
	return s.store
}

func (s *Service) GetBalance(ctx context.Context, ownerID uuid.UUID) (decimal.Decimal, error) {
	return s.store.GetBalance(ctx, ownerID)
}

// Credit appends a positive completed transaction.
func (s *Service) Credit(ctx context.Context, ownerID uuid.UUID, amount decimal.Decimal, kind TransactionKind, referenceID string) (*Transaction, error) {
	if amount.Sign() <= 0 {
		return nil, ErrNegativeAmount
	}

	t, err := s.store.Apply(ctx, ownerID, amount, kind, referenceID)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, t)
	log.Info().
		Str("account_id", ownerID.String()).
		Str("kind", string(kind)).
		Str("amount", amount.StringFixed(2)).
		Str("reference_id", referenceID).
		Msg("wallet credit applied")
	return t, nil
}

// Debit appends a negative completed transaction, failing with
// ErrInsufficientFunds when the balance cannot cover it.
func (s *Service) Debit(ctx context.Context, ownerID uuid.UUID, amount decimal.Decimal, kind TransactionKind, referenceID string) (*Transaction, error) {
	if amount.Sign() <= 0 {
		return nil, ErrNegativeAmount
	}

	t, err := s.store.Apply(ctx, ownerID, amount.Neg(), kind, referenceID)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, t)
	log.Info().
		Str("account_id", ownerID.String()).
		Str("kind", string(kind)).
		Str("amount", amount.StringFixed(2)).
		Str("reference_id", referenceID).
		Msg("wallet debit applied")
	return t, nil
}

// AdminAdjust applies a signed manual adjustment with its audit entry,
// deduplicated by idempotency key. Authorization is the admin gateway's job.
func (s *Service) AdminAdjust(ctx context.Context, ownerID uuid.UUID, amount decimal.Decimal, reason string, actorID uuid.UUID, idempotencyKey string) (*Transaction, error) {
	if amount.IsZero() {
		return nil, ErrNegativeAmount
	}

	t, err := s.store.AdminAdjust(ctx, ownerID, amount, reason, actorID, idempotencyKey)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, t)
	log.Info().
		Str("account_id", ownerID.String()).
		Str("actor_id", actorID.String()).
		Str("amount", amount.StringFixed(2)).
		Str("reason", reason).
		Msg("admin balance adjustment applied")
	return t, nil
}

// InitTopUp creates a gateway order and records it as a pending transaction.
func (s *Service) InitTopUp(ctx context.Context, ownerID uuid.UUID, amount decimal.Decimal) (*gateway.Order, error) {
	if amount.Sign() <= 0 {
		return nil, ErrNegativeAmount
	}

	order, err := s.gw.CreateOrder(ctx, amount, s.currency)
	if err != nil {
		return nil, err
	}

	if _, err := s.store.CreatePendingTopUp(ctx, ownerID, amount, order.OrderID); err != nil {
		return nil, err
	}
	return order, nil
}

// ConfirmTopUp captures the gateway order and settles the pending transaction.
// A replayed webhook for a settled order fails ErrAlreadySettled without
// touching the gateway; providers reject double captures.
func (s *Service) ConfirmTopUp(ctx context.Context, orderID string) (*Transaction, error) {
	pending, err := s.store.GetTopUp(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if pending.Status != StatusPending {
		return nil, ErrAlreadySettled
	}

	capture, err := s.gw.CaptureOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	t, err := s.store.SettleTopUp(ctx, orderID, capture.Succeeded)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, t)
	log.Info().
		Str("order_id", orderID).
		Str("status", string(t.Status)).
		Msg("top-up settled")
	return t, nil
}

func (s *Service) ListTransactions(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]Transaction, error) {
	return s.store.ListTransactions(ctx, ownerID, limit, offset)
}

// Reconciliation compares the stored balance against the replayed ledger sum.
type Reconciliation struct {
	AccountID uuid.UUID       `json:"account_id"`
	Balance   decimal.Decimal `json:"balance"`
	LedgerSum decimal.Decimal `json:"ledger_sum"`
	Match     bool            `json:"match"`
}

// Reconcile verifies that balance == sum of completed transaction amounts.
func (s *Service) Reconcile(ctx context.Context, ownerID uuid.UUID) (*Reconciliation, error) {
	balance, err := s.store.GetBalance(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	sum, err := s.store.SumCompleted(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	return &Reconciliation{
		AccountID: ownerID,
		Balance:   balance,
		LedgerSum: sum,
		Match:     balance.Equal(sum),
	}, nil
}

// PublishEvent emits a ledger event for a transaction committed by a
// collaborating domain inside its own transaction scope.
func (s *Service) PublishEvent(ctx context.Context, t *Transaction) {
	s.publish(ctx, t)
}

func (s *Service) publish(ctx context.Context, t *Transaction) {
	if s.events == nil || t == nil || t.Status != StatusCompleted {
		return
	}
	s.events.PublishLedgerEvent(ctx, newEvent(t))
}
