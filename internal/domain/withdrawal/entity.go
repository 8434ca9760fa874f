package withdrawal

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Method string

const (
	MethodPayPal Method = "paypal"
	MethodBank   Method = "bank"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusRejected  Status = "rejected"
)

// Withdrawal is a creator's claim on part of their balance. While pending,
// the amount is reserved: excluded from available-for-withdrawal but not yet
// debited. Only an admin decision moves it to a terminal state.
type Withdrawal struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	CreatorID   uuid.UUID       `db:"creator_id" json:"creator_id"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
	Method      Method          `db:"method" json:"method"`
	Details     string          `db:"details" json:"details"`
	Status      Status          `db:"status" json:"status"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	ProcessedAt *time.Time      `db:"processed_at" json:"processed_at,omitempty"`
}
