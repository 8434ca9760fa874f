package earning

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Status string

const (
	// StatusPending: credited to the ledger balance but not yet withdrawable;
	// the dispute window has not elapsed.
	StatusPending Status = "pending"
	// StatusCompleted: withdrawable.
	StatusCompleted Status = "completed"
	// StatusRefunded: reversed during the dispute window. Terminal.
	StatusRefunded Status = "refunded"
)

// Earning records the fee split for one completed video request. One request
// produces at most one earning.
type Earning struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	CreatorID uuid.UUID       `db:"creator_id" json:"creator_id"`
	RequestID uuid.UUID       `db:"request_id" json:"request_id"`
	Gross     decimal.Decimal `db:"gross" json:"gross"`
	Fee       decimal.Decimal `db:"fee" json:"fee"`
	Net       decimal.Decimal `db:"net" json:"net"`
	Status    Status          `db:"status" json:"status"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	ClearedAt *time.Time      `db:"cleared_at" json:"cleared_at,omitempty"`
}
