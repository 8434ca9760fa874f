package wallet

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionKind string

const (
	KindTopUp           TransactionKind = "top_up"
	KindPurchase        TransactionKind = "purchase"
	KindEarning         TransactionKind = "earning"
	KindFee             TransactionKind = "fee"
	KindRefund          TransactionKind = "refund"
	KindPayout          TransactionKind = "payout"
	KindAdminAdjustment TransactionKind = "admin_adjustment"
)

type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusFailed    TransactionStatus = "failed"
)

// Account holds one owner's balance. The balance always equals the sum of the
// account's completed transaction amounts; both are written in one transaction.
type Account struct {
	OwnerID   uuid.UUID       `db:"owner_id" json:"owner_id"`
	Balance   decimal.Decimal `db:"balance" json:"balance"`
	Currency  string          `db:"currency" json:"currency"`
	Version   int64           `db:"version" json:"version"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// Transaction is one append-only ledger row. Immutable once completed.
type Transaction struct {
	ID          uuid.UUID         `db:"id" json:"id"`
	AccountID   uuid.UUID         `db:"account_id" json:"account_id"`
	Kind        TransactionKind   `db:"kind" json:"kind"`
	Amount      decimal.Decimal   `db:"amount" json:"amount"`
	Status      TransactionStatus `db:"status" json:"status"`
	ReferenceID *string           `db:"reference_id" json:"reference_id,omitempty"`
	CreatedAt   time.Time         `db:"created_at" json:"created_at"`
}
