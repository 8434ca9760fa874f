package affiliate

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Type string

const (
	TypeSignup    Type = "signup"
	TypeBooking   Type = "booking"
	TypeRecurring Type = "recurring"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusPaid      Status = "paid"
	StatusCancelled Status = "cancelled"
)

// Commission is one referral reward. pending moves to confirmed or cancelled;
// only confirmed moves to paid. Confirmed amounts feed the running total that
// tier lookup reads.
type Commission struct {
	ID             uuid.UUID       `db:"id" json:"id"`
	AffiliateID    uuid.UUID       `db:"affiliate_id" json:"affiliate_id"`
	ReferredUserID *uuid.UUID      `db:"referred_user_id" json:"referred_user_id,omitempty"`
	Type           Type            `db:"type" json:"type"`
	Amount         decimal.Decimal `db:"amount" json:"amount"`
	Status         Status          `db:"status" json:"status"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	PaidAt         *time.Time      `db:"paid_at" json:"paid_at,omitempty"`
}

// Tier is one rate bracket. The affiliate's cumulative confirmed total picks
// the highest tier whose threshold it reaches.
type Tier struct {
	Name        string          `db:"name" json:"name"`
	Threshold   decimal.Decimal `db:"threshold" json:"threshold"`
	RatePercent decimal.Decimal `db:"rate_percent" json:"rate_percent"`
}

// DefaultTiers seeds a fresh install.
func DefaultTiers() []Tier {
	return []Tier{
		{Name: "bronze", Threshold: decimal.Zero, RatePercent: decimal.NewFromInt(10)},
		{Name: "silver", Threshold: decimal.NewFromInt(500), RatePercent: decimal.NewFromInt(12)},
		{Name: "gold", Threshold: decimal.NewFromInt(2000), RatePercent: decimal.NewFromInt(15)},
	}
}
