package withdrawal_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/starclip/starclip-api/internal/domain/audit"
	"github.com/starclip/starclip-api/internal/domain/earning"
	"github.com/starclip/starclip-api/internal/domain/wallet"
	"github.com/starclip/starclip-api/internal/domain/withdrawal"
	"github.com/starclip/starclip-api/internal/pkg/gateway"
)

type fixture struct {
	svc      *withdrawal.Service
	wallets  *wallet.Service
	earnings *earning.MemoryStore
	gw       *gateway.Stub
	auditLog *audit.MemoryLog
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	auditLog := audit.NewMemoryLog()
	walletStore := wallet.NewMemoryStore(auditLog)
	wallets := wallet.NewService(walletStore, gateway.NewStub(), nil, "USD")
	earnings := earning.NewMemoryStore()
	gw := gateway.NewStub()
	store := withdrawal.NewMemoryStore(walletStore, earnings, auditLog)
	dispatcher := withdrawal.NewDispatcher(gw, time.Millisecond)
	minAmount, _ := decimal.NewFromString("10.00")
	return &fixture{
		svc:      withdrawal.NewService(store, wallets, dispatcher, minAmount),
		wallets:  wallets,
		earnings: earnings,
		gw:       gw,
		auditLog: auditLog,
	}
}

func amt(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad amount %q: %v", s, err)
	}
	return d
}

func seed(t *testing.T, f *fixture, creator uuid.UUID, amount string) {
	t.Helper()
	if _, err := f.wallets.Credit(context.Background(), creator, amt(t, amount), wallet.KindEarning, "seed-"+uuid.NewString()); err != nil {
		t.Fatalf("seed credit failed: %v", err)
	}
}

func TestRequestValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creator := uuid.New()
	seed(t, f, creator, "100.00")

	if _, err := f.svc.Request(ctx, creator, decimal.Zero, withdrawal.MethodPayPal, "dest"); !errors.Is(err, withdrawal.ErrInvalidAmount) {
		t.Fatalf("zero amount: expected ErrInvalidAmount, got %v", err)
	}
	if _, err := f.svc.Request(ctx, creator, amt(t, "9.99"), withdrawal.MethodPayPal, "dest"); !errors.Is(err, withdrawal.ErrBelowMinimum) {
		t.Fatalf("below minimum: expected ErrBelowMinimum, got %v", err)
	}
}

func TestNoOverWithdrawal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creator := uuid.New()
	seed(t, f, creator, "50.00")

	if _, err := f.svc.Request(ctx, creator, amt(t, "50.01"), withdrawal.MethodBank, "iban"); !errors.Is(err, withdrawal.ErrInsufficientAvailable) {
		t.Fatalf("expected ErrInsufficientAvailable, got %v", err)
	}

	// Zero mutation: nothing reserved, nothing recorded.
	available, _ := f.svc.Available(ctx, creator)
	if available.StringFixed(2) != "50.00" {
		t.Fatalf("available = %s, want 50.00", available.StringFixed(2))
	}
	wds, _ := f.svc.ListByCreator(ctx, creator, 10, 0)
	if len(wds) != 0 {
		t.Fatalf("failed request left %d withdrawals behind", len(wds))
	}
}

func TestPendingRequestReservesAmount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creator := uuid.New()
	seed(t, f, creator, "100.00")

	if _, err := f.svc.Request(ctx, creator, amt(t, "60.00"), withdrawal.MethodPayPal, "me@pay.test"); err != nil {
		t.Fatalf("request failed: %v", err)
	}

	// Balance is untouched while pending; only availability shrinks.
	balance, _ := f.wallets.GetBalance(ctx, creator)
	if balance.StringFixed(2) != "100.00" {
		t.Fatalf("balance = %s, want 100.00", balance.StringFixed(2))
	}
	available, _ := f.svc.Available(ctx, creator)
	if available.StringFixed(2) != "40.00" {
		t.Fatalf("available = %s, want 40.00", available.StringFixed(2))
	}
}

func TestPendingEarningsExcludedFromAvailable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creator := uuid.New()
	seed(t, f, creator, "100.00")

	e := &earning.Earning{
		ID:        uuid.New(),
		CreatorID: creator,
		RequestID: uuid.New(),
		Gross:     amt(t, "30.00"),
		Fee:       amt(t, "3.00"),
		Net:       amt(t, "27.00"),
		Status:    earning.StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := f.earnings.Create(ctx, e); err != nil {
		t.Fatalf("earning create failed: %v", err)
	}

	available, _ := f.svc.Available(ctx, creator)
	if available.StringFixed(2) != "73.00" {
		t.Fatalf("available = %s, want 73.00", available.StringFixed(2))
	}

	if _, err := f.svc.Request(ctx, creator, amt(t, "80.00"), withdrawal.MethodBank, "iban"); !errors.Is(err, withdrawal.ErrInsufficientAvailable) {
		t.Fatalf("expected ErrInsufficientAvailable, got %v", err)
	}
}

func TestConcurrentCreateSingleWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creator := uuid.New()
	seed(t, f, creator, "100.00")

	// Each request is individually valid; together they exceed the balance.
	const workers = 2
	var wg sync.WaitGroup
	var mu sync.Mutex
	success := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Request(ctx, creator, amt(t, "70.00"), withdrawal.MethodPayPal, "me@pay.test")
			if err == nil {
				mu.Lock()
				success++
				mu.Unlock()
				return
			}
			if !errors.Is(err, withdrawal.ErrInsufficientAvailable) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if success != 1 {
		t.Fatalf("expected exactly 1 successful request, got %d", success)
	}
}

func TestApproveDebitsAndDispatches(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creator := uuid.New()
	admin := uuid.New()
	seed(t, f, creator, "100.00")

	wd, err := f.svc.Request(ctx, creator, amt(t, "60.00"), withdrawal.MethodPayPal, "me@pay.test")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	approved, err := f.svc.Approve(ctx, wd.ID, admin)
	if err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if approved.Status != withdrawal.StatusCompleted {
		t.Fatalf("status = %s, want completed", approved.Status)
	}
	if approved.ProcessedAt == nil {
		t.Fatal("processed_at not set")
	}

	balance, _ := f.wallets.GetBalance(ctx, creator)
	if balance.StringFixed(2) != "40.00" {
		t.Fatalf("balance = %s, want 40.00", balance.StringFixed(2))
	}
	if f.gw.PayoutCount() != 1 {
		t.Fatalf("payouts dispatched = %d, want 1", f.gw.PayoutCount())
	}

	rec, _ := f.wallets.Reconcile(ctx, creator)
	if !rec.Match {
		t.Fatalf("ledger out of balance after approval: %s vs %s", rec.Balance, rec.LedgerSum)
	}

	entries := f.auditLog.Entries()
	if len(entries) != 1 || entries[0].Action != "withdrawal.approve" {
		t.Fatalf("expected a single withdrawal.approve audit entry, got %+v", entries)
	}
}

func TestTerminalStateProtection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creator := uuid.New()
	admin := uuid.New()
	seed(t, f, creator, "100.00")

	wd, err := f.svc.Request(ctx, creator, amt(t, "30.00"), withdrawal.MethodBank, "iban")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if _, err := f.svc.Approve(ctx, wd.ID, admin); err != nil {
		t.Fatalf("approve failed: %v", err)
	}

	if _, err := f.svc.Approve(ctx, wd.ID, admin); !errors.Is(err, withdrawal.ErrAlreadyProcessed) {
		t.Fatalf("second approve: expected ErrAlreadyProcessed, got %v", err)
	}
	if _, err := f.svc.Reject(ctx, wd.ID, admin); !errors.Is(err, withdrawal.ErrAlreadyProcessed) {
		t.Fatalf("reject after approve: expected ErrAlreadyProcessed, got %v", err)
	}

	// The ledger was debited exactly once.
	balance, _ := f.wallets.GetBalance(ctx, creator)
	if balance.StringFixed(2) != "70.00" {
		t.Fatalf("balance = %s, want 70.00", balance.StringFixed(2))
	}
}

func TestRejectReleasesReservation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creator := uuid.New()
	admin := uuid.New()
	seed(t, f, creator, "100.00")

	wd, err := f.svc.Request(ctx, creator, amt(t, "60.00"), withdrawal.MethodPayPal, "me@pay.test")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	rejected, err := f.svc.Reject(ctx, wd.ID, admin)
	if err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	if rejected.Status != withdrawal.StatusRejected {
		t.Fatalf("status = %s, want rejected", rejected.Status)
	}

	// No ledger mutation; the full balance is available again.
	balance, _ := f.wallets.GetBalance(ctx, creator)
	if balance.StringFixed(2) != "100.00" {
		t.Fatalf("balance = %s, want 100.00", balance.StringFixed(2))
	}
	available, _ := f.svc.Available(ctx, creator)
	if available.StringFixed(2) != "100.00" {
		t.Fatalf("available = %s, want 100.00", available.StringFixed(2))
	}
	if f.gw.PayoutCount() != 0 {
		t.Fatalf("reject dispatched a payout")
	}
}

func TestGatewayFailureDoesNotRollBackDebit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creator := uuid.New()
	admin := uuid.New()
	seed(t, f, creator, "100.00")

	wd, err := f.svc.Request(ctx, creator, amt(t, "50.00"), withdrawal.MethodPayPal, "me@pay.test")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	f.gw.FailPayouts = 1000
	approved, err := f.svc.Approve(ctx, wd.ID, admin)
	if !errors.Is(err, gateway.ErrGateway) {
		t.Fatalf("expected ErrGateway, got %v", err)
	}

	// The debit is the authoritative decision to pay; it stands.
	if approved == nil || approved.Status != withdrawal.StatusCompleted {
		t.Fatalf("withdrawal not completed after gateway failure: %+v", approved)
	}
	balance, _ := f.wallets.GetBalance(ctx, creator)
	if balance.StringFixed(2) != "50.00" {
		t.Fatalf("balance = %s, want 50.00", balance.StringFixed(2))
	}
}

func TestDispatchRetriesTransientFailure(t *testing.T) {
	gw := gateway.NewStub()
	gw.FailPayouts = 1
	dispatcher := withdrawal.NewDispatcher(gw, 5*time.Second)

	wd := &withdrawal.Withdrawal{
		ID:        uuid.New(),
		CreatorID: uuid.New(),
		Amount:    amt(t, "20.00"),
		Method:    withdrawal.MethodBank,
		Details:   "iban",
		Status:    withdrawal.StatusCompleted,
	}

	if err := dispatcher.Dispatch(context.Background(), wd); err != nil {
		t.Fatalf("dispatch did not recover from transient failure: %v", err)
	}
	if gw.PayoutCount() != 1 {
		t.Fatalf("payouts dispatched = %d, want 1", gw.PayoutCount())
	}
}
