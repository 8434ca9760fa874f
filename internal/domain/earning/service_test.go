package earning_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/starclip/starclip-api/internal/domain/audit"
	"github.com/starclip/starclip-api/internal/domain/earning"
	"github.com/starclip/starclip-api/internal/domain/wallet"
	"github.com/starclip/starclip-api/internal/pkg/gateway"
)

var platformID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

func newTestServices(t *testing.T, disputeWindowHours int) (*earning.Service, *wallet.Service) {
	t.Helper()
	walletStore := wallet.NewMemoryStore(audit.NewMemoryLog())
	wallets := wallet.NewService(walletStore, gateway.NewStub(), nil, "USD")
	feeRate, _ := decimal.NewFromString("0.10")
	svc := earning.NewService(earning.NewMemoryStore(), wallets, feeRate, disputeWindowHours, platformID)
	return svc, wallets
}

func amt(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad amount %q: %v", s, err)
	}
	return d
}

func TestCompletedRequestFeeSplit(t *testing.T) {
	svc, wallets := newTestServices(t, 0)
	ctx := context.Background()
	creator := uuid.New()

	e, err := svc.OnRequestCompleted(ctx, uuid.New(), creator, amt(t, "100.00"))
	if err != nil {
		t.Fatalf("completed failed: %v", err)
	}

	if e.Fee.StringFixed(2) != "10.00" {
		t.Errorf("fee = %s, want 10.00", e.Fee.StringFixed(2))
	}
	if e.Net.StringFixed(2) != "90.00" {
		t.Errorf("net = %s, want 90.00", e.Net.StringFixed(2))
	}

	creatorBalance, _ := wallets.GetBalance(ctx, creator)
	if creatorBalance.StringFixed(2) != "90.00" {
		t.Errorf("creator balance = %s, want 90.00", creatorBalance.StringFixed(2))
	}
	platformBalance, _ := wallets.GetBalance(ctx, platformID)
	if platformBalance.StringFixed(2) != "10.00" {
		t.Errorf("platform balance = %s, want 10.00", platformBalance.StringFixed(2))
	}
}

func TestCompletedImmediatelyWithdrawableWithoutWindow(t *testing.T) {
	svc, _ := newTestServices(t, 0)
	ctx := context.Background()

	e, err := svc.OnRequestCompleted(ctx, uuid.New(), uuid.New(), amt(t, "50.00"))
	if err != nil {
		t.Fatalf("completed failed: %v", err)
	}
	if e.Status != earning.StatusCompleted {
		t.Fatalf("status = %s, want completed", e.Status)
	}
	if e.ClearedAt == nil {
		t.Fatal("cleared_at not set")
	}
}

func TestDisputeWindowHoldsEarning(t *testing.T) {
	svc, wallets := newTestServices(t, 72)
	ctx := context.Background()
	creator := uuid.New()

	e, err := svc.OnRequestCompleted(ctx, uuid.New(), creator, amt(t, "40.00"))
	if err != nil {
		t.Fatalf("completed failed: %v", err)
	}
	if e.Status != earning.StatusPending {
		t.Fatalf("status = %s, want pending", e.Status)
	}

	// The money is on the ledger already, only withdrawability is gated.
	balance, _ := wallets.GetBalance(ctx, creator)
	if balance.StringFixed(2) != "36.00" {
		t.Fatalf("balance = %s, want 36.00", balance.StringFixed(2))
	}

	// The window has not elapsed, so nothing clears yet.
	count, err := svc.ClearDue(ctx)
	if err != nil {
		t.Fatalf("clear due failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("cleared %d earnings inside the window", count)
	}
}

func TestDuplicateCompletedEventIsIdempotent(t *testing.T) {
	svc, wallets := newTestServices(t, 0)
	ctx := context.Background()
	creator := uuid.New()
	requestID := uuid.New()

	first, err := svc.OnRequestCompleted(ctx, requestID, creator, amt(t, "100.00"))
	if err != nil {
		t.Fatalf("completed failed: %v", err)
	}

	second, err := svc.OnRequestCompleted(ctx, requestID, creator, amt(t, "100.00"))
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if second.ID != first.ID {
		t.Fatal("replay created a second earning")
	}

	balance, _ := wallets.GetBalance(ctx, creator)
	if balance.StringFixed(2) != "90.00" {
		t.Fatalf("replay double-credited: balance %s", balance.StringFixed(2))
	}
}

func TestReplayedCompletionHealsMissingCredits(t *testing.T) {
	store := earning.NewMemoryStore()
	wallets := wallet.NewService(wallet.NewMemoryStore(audit.NewMemoryLog()), gateway.NewStub(), nil, "USD")
	feeRate, _ := decimal.NewFromString("0.10")
	svc := earning.NewService(store, wallets, feeRate, 0, platformID)

	ctx := context.Background()
	creator := uuid.New()
	requestID := uuid.New()

	// The earning row exists but the credits never ran, as after a crash
	// between the insert and the ledger writes.
	now := time.Now().UTC()
	if err := store.Create(ctx, &earning.Earning{
		ID:        uuid.New(),
		CreatorID: creator,
		RequestID: requestID,
		Gross:     amt(t, "100.00"),
		Fee:       amt(t, "10.00"),
		Net:       amt(t, "90.00"),
		Status:    earning.StatusCompleted,
		CreatedAt: now,
		ClearedAt: &now,
	}); err != nil {
		t.Fatalf("seed earning failed: %v", err)
	}

	if _, err := svc.OnRequestCompleted(ctx, requestID, creator, amt(t, "100.00")); err != nil {
		t.Fatalf("replay failed: %v", err)
	}

	creatorBalance, _ := wallets.GetBalance(ctx, creator)
	if creatorBalance.StringFixed(2) != "90.00" {
		t.Errorf("replay did not heal the missing credit: creator balance = %s, want 90.00", creatorBalance.StringFixed(2))
	}
	platformBalance, _ := wallets.GetBalance(ctx, platformID)
	if platformBalance.StringFixed(2) != "10.00" {
		t.Errorf("replay did not heal the missing fee: platform balance = %s, want 10.00", platformBalance.StringFixed(2))
	}
}

func TestBookAndDecline(t *testing.T) {
	svc, wallets := newTestServices(t, 0)
	ctx := context.Background()
	fan := uuid.New()
	requestID := uuid.New()

	if _, err := wallets.Credit(ctx, fan, amt(t, "30.00"), wallet.KindTopUp, "seed"); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	if err := svc.BookRequest(ctx, requestID, fan, amt(t, "25.00")); err != nil {
		t.Fatalf("book failed: %v", err)
	}
	balance, _ := wallets.GetBalance(ctx, fan)
	if balance.StringFixed(2) != "5.00" {
		t.Fatalf("balance after booking = %s, want 5.00", balance.StringFixed(2))
	}

	// Booking beyond the balance fails without mutation.
	if err := svc.BookRequest(ctx, uuid.New(), fan, amt(t, "6.00")); !errors.Is(err, wallet.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	if err := svc.OnRequestDeclined(ctx, requestID, fan, amt(t, "25.00")); err != nil {
		t.Fatalf("decline failed: %v", err)
	}
	balance, _ = wallets.GetBalance(ctx, fan)
	if balance.StringFixed(2) != "30.00" {
		t.Fatalf("balance after refund = %s, want 30.00", balance.StringFixed(2))
	}
}

func TestRefundOnlyWhilePending(t *testing.T) {
	svc, wallets := newTestServices(t, 72)
	ctx := context.Background()
	creator := uuid.New()
	actor := uuid.New()

	e, err := svc.OnRequestCompleted(ctx, uuid.New(), creator, amt(t, "100.00"))
	if err != nil {
		t.Fatalf("completed failed: %v", err)
	}

	refunded, err := svc.Refund(ctx, e.ID, actor)
	if err != nil {
		t.Fatalf("refund failed: %v", err)
	}
	if refunded.Status != earning.StatusRefunded {
		t.Fatalf("status = %s, want refunded", refunded.Status)
	}

	// Net and fee both reversed.
	creatorBalance, _ := wallets.GetBalance(ctx, creator)
	if !creatorBalance.IsZero() {
		t.Errorf("creator balance = %s, want 0.00", creatorBalance.StringFixed(2))
	}
	platformBalance, _ := wallets.GetBalance(ctx, platformID)
	if !platformBalance.IsZero() {
		t.Errorf("platform balance = %s, want 0.00", platformBalance.StringFixed(2))
	}

	// A second refund of the same earning fails.
	if _, err := svc.Refund(ctx, e.ID, actor); !errors.Is(err, earning.ErrNotRefundable) {
		t.Fatalf("expected ErrNotRefundable, got %v", err)
	}
}

func TestFailedClawBackLeavesEarningRefundable(t *testing.T) {
	store := earning.NewMemoryStore()
	wallets := wallet.NewService(wallet.NewMemoryStore(audit.NewMemoryLog()), gateway.NewStub(), nil, "USD")
	feeRate, _ := decimal.NewFromString("0.10")
	svc := earning.NewService(store, wallets, feeRate, 72, platformID)

	ctx := context.Background()
	creator := uuid.New()
	actor := uuid.New()

	e, err := svc.OnRequestCompleted(ctx, uuid.New(), creator, amt(t, "100.00"))
	if err != nil {
		t.Fatalf("completed failed: %v", err)
	}

	// An adjustment drains the balance below the net, so the claw-back
	// cannot cover.
	if _, err := wallets.AdminAdjust(ctx, creator, amt(t, "-50.00"), "support correction", actor, "drain"); err != nil {
		t.Fatalf("adjust failed: %v", err)
	}

	if _, err := svc.Refund(ctx, e.ID, actor); !errors.Is(err, wallet.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	// The earning stays pending, so the refund can be retried once the
	// balance covers again.
	after, err := store.Get(ctx, e.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if after.Status != earning.StatusPending {
		t.Fatalf("status after failed claw-back = %s, want pending", after.Status)
	}

	if _, err := wallets.AdminAdjust(ctx, creator, amt(t, "50.00"), "restore", actor, "restore"); err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	refunded, err := svc.Refund(ctx, e.ID, actor)
	if err != nil {
		t.Fatalf("retried refund failed: %v", err)
	}
	if refunded.Status != earning.StatusRefunded {
		t.Fatalf("status = %s, want refunded", refunded.Status)
	}
	balance, _ := wallets.GetBalance(ctx, creator)
	if !balance.IsZero() {
		t.Fatalf("creator balance after refund = %s, want 0.00", balance.StringFixed(2))
	}
}

func TestRefundRejectedOnceCleared(t *testing.T) {
	svc, _ := newTestServices(t, 0)
	ctx := context.Background()
	actor := uuid.New()

	e, err := svc.OnRequestCompleted(ctx, uuid.New(), uuid.New(), amt(t, "20.00"))
	if err != nil {
		t.Fatalf("completed failed: %v", err)
	}

	// Cleared immediately without a window; no longer refundable.
	if _, err := svc.Refund(ctx, e.ID, actor); !errors.Is(err, earning.ErrNotRefundable) {
		t.Fatalf("expected ErrNotRefundable, got %v", err)
	}
}

func TestInvalidAmounts(t *testing.T) {
	svc, _ := newTestServices(t, 0)
	ctx := context.Background()

	if _, err := svc.OnRequestCompleted(ctx, uuid.New(), uuid.New(), decimal.Zero); !errors.Is(err, earning.ErrInvalidAmount) {
		t.Fatalf("zero gross: expected ErrInvalidAmount, got %v", err)
	}
	if err := svc.BookRequest(ctx, uuid.New(), uuid.New(), amt(t, "-1.00")); !errors.Is(err, earning.ErrInvalidAmount) {
		t.Fatalf("negative booking: expected ErrInvalidAmount, got %v", err)
	}
	if err := svc.OnRequestDeclined(ctx, uuid.New(), uuid.New(), decimal.Zero); !errors.Is(err, earning.ErrInvalidAmount) {
		t.Fatalf("zero decline: expected ErrInvalidAmount, got %v", err)
	}
}
