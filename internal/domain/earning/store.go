package earning

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Store interface {
	// Create inserts a new earning; ErrDuplicateRequest when the request
	// already has one.
	Create(ctx context.Context, e *Earning) error
	Get(ctx context.Context, id uuid.UUID) (*Earning, error)
	GetByRequestID(ctx context.Context, requestID uuid.UUID) (*Earning, error)
	ListByCreator(ctx context.Context, creatorID uuid.UUID, limit, offset int) ([]Earning, error)

	// ClearDue promotes pending earnings created at or before the cutoff to
	// completed and returns them.
	ClearDue(ctx context.Context, cutoff time.Time) ([]Earning, error)

	// MarkRefunded flips a pending earning to refunded; ErrNotRefundable
	// once cleared or already refunded.
	MarkRefunded(ctx context.Context, id uuid.UUID) (*Earning, error)

	// SumPendingNet returns the net total still inside the dispute window for
	// one creator. That money sits in the ledger balance but is excluded from
	// available-for-withdrawal.
	SumPendingNet(ctx context.Context, creatorID uuid.UUID) (decimal.Decimal, error)
}
