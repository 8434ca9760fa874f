package affiliate_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/starclip/starclip-api/internal/domain/affiliate"
	"github.com/starclip/starclip-api/internal/domain/audit"
	"github.com/starclip/starclip-api/internal/pkg/gateway"
)

func newTestService(t *testing.T) (*affiliate.Service, *affiliate.MemoryStore, *gateway.Stub) {
	t.Helper()
	store := affiliate.NewMemoryStore(nil, audit.NewMemoryLog())
	gw := gateway.NewStub()
	return affiliate.NewService(store, gw), store, gw
}

func amt(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad amount %q: %v", s, err)
	}
	return d
}

// confirmTotal records and confirms commissions until the affiliate's
// confirmed total reaches the given value.
func confirmTotal(t *testing.T, svc *affiliate.Service, affiliateID uuid.UUID, value string) {
	t.Helper()
	ctx := context.Background()
	actor := uuid.New()

	// Drive the total directly with a single large action at the base rate.
	// value/rate gives the action value whose commission equals value.
	target := amt(t, value)
	tier, err := svc.TierFor(ctx, affiliateID)
	if err != nil {
		t.Fatalf("tier lookup failed: %v", err)
	}
	action := target.Div(tier.RatePercent).Mul(decimal.NewFromInt(100))

	c, err := svc.Record(ctx, affiliateID, nil, affiliate.TypeBooking, action)
	if err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if _, err := svc.Confirm(ctx, c.ID, actor); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
}

func TestTierTransition(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	affiliateID := uuid.New()

	// Fresh affiliate sits in the base tier.
	tier, err := svc.TierFor(ctx, affiliateID)
	if err != nil {
		t.Fatalf("tier lookup failed: %v", err)
	}
	if tier.Name != "bronze" || tier.RatePercent.StringFixed(0) != "10" {
		t.Fatalf("base tier = %s/%s, want bronze/10", tier.Name, tier.RatePercent)
	}

	// With 600.00 confirmed the affiliate crosses the silver threshold (500)
	// but not gold (2000).
	confirmTotal(t, svc, affiliateID, "600.00")

	tier, err = svc.TierFor(ctx, affiliateID)
	if err != nil {
		t.Fatalf("tier lookup failed: %v", err)
	}
	if tier.Name != "silver" {
		t.Fatalf("tier = %s, want silver", tier.Name)
	}

	c, err := svc.Record(ctx, affiliateID, nil, affiliate.TypeBooking, amt(t, "100.00"))
	if err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if c.Amount.StringFixed(2) != "12.00" {
		t.Fatalf("commission = %s, want 12.00 (12%% of 100.00)", c.Amount.StringFixed(2))
	}
}

func TestRecordRoundsToCents(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	// 10% of 33.33 is 3.333, rounded half-up to 3.33.
	c, err := svc.Record(ctx, uuid.New(), nil, affiliate.TypeSignup, amt(t, "33.33"))
	if err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if c.Amount.StringFixed(2) != "3.33" {
		t.Fatalf("commission = %s, want 3.33", c.Amount.StringFixed(2))
	}

	if _, err := svc.Record(ctx, uuid.New(), nil, affiliate.TypeSignup, decimal.Zero); !errors.Is(err, affiliate.ErrInvalidValue) {
		t.Fatalf("zero value: expected ErrInvalidValue, got %v", err)
	}
}

func TestCommissionLifecycle(t *testing.T) {
	svc, _, gw := newTestService(t)
	ctx := context.Background()
	affiliateID := uuid.New()
	actor := uuid.New()

	c, err := svc.Record(ctx, affiliateID, nil, affiliate.TypeRecurring, amt(t, "100.00"))
	if err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if c.Status != affiliate.StatusPending {
		t.Fatalf("status = %s, want pending", c.Status)
	}

	// Cannot pay before confirmation.
	if _, err := svc.Pay(ctx, c.ID, actor); !errors.Is(err, affiliate.ErrNotConfirmed) {
		t.Fatalf("pay before confirm: expected ErrNotConfirmed, got %v", err)
	}

	if _, err := svc.Confirm(ctx, c.ID, actor); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}

	// A commission must never be confirmed twice.
	if _, err := svc.Confirm(ctx, c.ID, actor); !errors.Is(err, affiliate.ErrAlreadyProcessed) {
		t.Fatalf("double confirm: expected ErrAlreadyProcessed, got %v", err)
	}

	paid, err := svc.Pay(ctx, c.ID, actor)
	if err != nil {
		t.Fatalf("pay failed: %v", err)
	}
	if paid.Status != affiliate.StatusPaid || paid.PaidAt == nil {
		t.Fatalf("pay did not mark commission paid: %+v", paid)
	}
	if gw.PayoutCount() != 1 {
		t.Fatalf("payouts dispatched = %d, want 1", gw.PayoutCount())
	}

	if _, err := svc.Pay(ctx, c.ID, actor); !errors.Is(err, affiliate.ErrAlreadyProcessed) {
		t.Fatalf("double pay: expected ErrAlreadyProcessed, got %v", err)
	}
	if _, err := svc.Cancel(ctx, c.ID, actor); !errors.Is(err, affiliate.ErrAlreadyProcessed) {
		t.Fatalf("cancel after pay: expected ErrAlreadyProcessed, got %v", err)
	}
}

func TestCancelledCommissionStaysOutOfTotal(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	affiliateID := uuid.New()
	actor := uuid.New()

	c, err := svc.Record(ctx, affiliateID, nil, affiliate.TypeSignup, amt(t, "100.00"))
	if err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if _, err := svc.Cancel(ctx, c.ID, actor); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	total, err := store.ConfirmedTotal(ctx, affiliateID)
	if err != nil {
		t.Fatalf("total failed: %v", err)
	}
	if !total.IsZero() {
		t.Fatalf("cancelled commission counted in total: %s", total)
	}

	if _, err := svc.Confirm(ctx, c.ID, actor); !errors.Is(err, affiliate.ErrAlreadyProcessed) {
		t.Fatalf("confirm after cancel: expected ErrAlreadyProcessed, got %v", err)
	}
}

func TestReplaceTiersTakesEffectImmediately(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	affiliateID := uuid.New()
	actor := uuid.New()

	newTiers := []affiliate.Tier{
		{Name: "basic", Threshold: decimal.Zero, RatePercent: decimal.NewFromInt(20)},
	}
	if err := svc.ReplaceTiers(ctx, newTiers, actor); err != nil {
		t.Fatalf("replace tiers failed: %v", err)
	}

	c, err := svc.Record(ctx, affiliateID, nil, affiliate.TypeBooking, amt(t, "50.00"))
	if err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if c.Amount.StringFixed(2) != "10.00" {
		t.Fatalf("commission = %s, want 10.00 (20%% of 50.00)", c.Amount.StringFixed(2))
	}

	// A tier table without a zero threshold would leave small totals tierless.
	bad := []affiliate.Tier{
		{Name: "late", Threshold: decimal.NewFromInt(100), RatePercent: decimal.NewFromInt(5)},
	}
	if err := svc.ReplaceTiers(ctx, bad, actor); !errors.Is(err, affiliate.ErrInvalidTiers) {
		t.Fatalf("expected ErrInvalidTiers, got %v", err)
	}
}

func TestListByStatus(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	affiliateID := uuid.New()
	actor := uuid.New()

	first, _ := svc.Record(ctx, affiliateID, nil, affiliate.TypeSignup, amt(t, "10.00"))
	svc.Record(ctx, affiliateID, nil, affiliate.TypeBooking, amt(t, "20.00"))
	svc.Confirm(ctx, first.ID, actor)

	pending, err := svc.List(ctx, affiliateID, affiliate.StatusPending, 10, 0)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending = %d, want 1", len(pending))
	}

	all, err := svc.List(ctx, affiliateID, "", 10, 0)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("all = %d, want 2", len(all))
	}
}
