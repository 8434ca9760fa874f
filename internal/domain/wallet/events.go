package wallet

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// LedgerEvent is emitted once per committed ledger mutation. Delivery is
// at-least-once; consumers dedupe by event ID and never use the stream as a
// source of truth for balance or authorization decisions.
type LedgerEvent struct {
	ID          uuid.UUID   `json:"id"`
	AccountID   uuid.UUID   `json:"account_id"`
	Transaction Transaction `json:"transaction"`
	At          time.Time   `json:"at"`
}

// EventPublisher publishes committed ledger mutations to interested consumers.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, ev LedgerEvent)
}

func newEvent(tx *Transaction) LedgerEvent {
	return LedgerEvent{
		ID:          uuid.New(),
		AccountID:   tx.AccountID,
		Transaction: *tx,
		At:          time.Now().UTC(),
	}
}
