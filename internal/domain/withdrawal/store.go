package withdrawal

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/starclip/starclip-api/internal/domain/wallet"
)

// Store persists withdrawal requests. Create and Approve share the creator
// account's serialization point with the wallet ledger so an availability
// check can never interleave with another reservation or debit.
type Store interface {
	// Available returns balance minus pending withdrawal reservations minus
	// earning net still inside the dispute window.
	Available(ctx context.Context, creatorID uuid.UUID) (decimal.Decimal, error)

	// Create checks availability and inserts the pending request in one
	// atomic unit; ErrInsufficientAvailable when the claim exceeds it.
	// No ledger mutation happens here.
	Create(ctx context.Context, creatorID uuid.UUID, amount decimal.Decimal, method Method, details string) (*Withdrawal, error)

	Get(ctx context.Context, id uuid.UUID) (*Withdrawal, error)
	ListByCreator(ctx context.Context, creatorID uuid.UUID, limit, offset int) ([]Withdrawal, error)
	ListByStatus(ctx context.Context, status Status, limit, offset int) ([]Withdrawal, error)

	// Approve debits the creator's wallet (kind payout) and flips the request
	// to completed in one atomic unit, with its audit entry.
	// ErrAlreadyProcessed unless pending.
	Approve(ctx context.Context, id, actorID uuid.UUID) (*Withdrawal, *wallet.Transaction, error)

	// Reject flips the request to rejected with its audit entry; the reserved
	// amount becomes available again with no ledger mutation.
	Reject(ctx context.Context, id, actorID uuid.UUID) (*Withdrawal, error)
}
