package affiliate

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Store persists commissions and the tier table. Tier data is admin-mutable
// and read fresh on every commission computation, never cached.
type Store interface {
	Tiers(ctx context.Context) ([]Tier, error)

	// ReplaceTiers swaps the whole tier table atomically with its audit entry.
	ReplaceTiers(ctx context.Context, tiers []Tier, actorID uuid.UUID) error

	Create(ctx context.Context, c *Commission) error
	Get(ctx context.Context, id uuid.UUID) (*Commission, error)

	// ListByAffiliate filters by status when status is non-empty.
	ListByAffiliate(ctx context.Context, affiliateID uuid.UUID, status Status, limit, offset int) ([]Commission, error)

	// ConfirmedTotal sums confirmed and paid commission amounts; this is the
	// running total tier lookup reads.
	ConfirmedTotal(ctx context.Context, affiliateID uuid.UUID) (decimal.Decimal, error)

	// Confirm flips pending to confirmed; ErrAlreadyProcessed otherwise.
	Confirm(ctx context.Context, id, actorID uuid.UUID) (*Commission, error)

	// Pay flips confirmed to paid; ErrNotConfirmed while pending or cancelled,
	// ErrAlreadyProcessed once paid.
	Pay(ctx context.Context, id, actorID uuid.UUID) (*Commission, error)

	// Cancel flips pending to cancelled; ErrAlreadyProcessed otherwise.
	Cancel(ctx context.Context, id, actorID uuid.UUID) (*Commission, error)
}
