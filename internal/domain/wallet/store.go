package wallet

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Store persists accounts and their append-only transaction log. Every
// mutating call serializes on the target account (row lock or mutex) so a
// read-balance/write-balance pair never interleaves with another.
type Store interface {
	EnsureAccount(ctx context.Context, ownerID uuid.UUID, currency string) error
	GetAccount(ctx context.Context, ownerID uuid.UUID) (*Account, error)
	GetBalance(ctx context.Context, ownerID uuid.UUID) (decimal.Decimal, error)

	// Apply appends a completed transaction with the given signed amount and
	// atomically updates the balance. A negative result fails with
	// ErrInsufficientFunds without mutating anything. Re-applying the same
	// (kind, reference) with the same amount is a no-op returning the
	// original transaction; a different amount fails ErrReferenceConflict.
	Apply(ctx context.Context, ownerID uuid.UUID, amount decimal.Decimal, kind TransactionKind, referenceID string) (*Transaction, error)

	// AdminAdjust applies a signed adjustment and writes its audit entry in
	// the same atomic unit, deduplicated by idempotency key.
	AdminAdjust(ctx context.Context, ownerID uuid.UUID, amount decimal.Decimal, reason string, actorID uuid.UUID, idempotencyKey string) (*Transaction, error)

	// CreatePendingTopUp records a gateway order as a pending transaction
	// with no balance effect.
	CreatePendingTopUp(ctx context.Context, ownerID uuid.UUID, amount decimal.Decimal, orderID string) (*Transaction, error)

	// GetTopUp fetches the top-up transaction recorded for a gateway order;
	// ErrAccountNotFound when no such order was initiated.
	GetTopUp(ctx context.Context, orderID string) (*Transaction, error)

	// SettleTopUp flips a pending top-up to completed (crediting the balance)
	// or failed. Settling twice fails ErrAlreadySettled.
	SettleTopUp(ctx context.Context, orderID string, succeeded bool) (*Transaction, error)

	ListTransactions(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]Transaction, error)

	// SumCompleted returns the signed sum of the account's completed
	// transactions, for reconciliation against the stored balance.
	SumCompleted(ctx context.Context, ownerID uuid.UUID) (decimal.Decimal, error)
}
