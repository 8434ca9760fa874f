package feed_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/starclip/starclip-api/internal/domain/feed"
	"github.com/starclip/starclip-api/internal/domain/wallet"
)

func testEvent(accountID uuid.UUID) wallet.LedgerEvent {
	return wallet.LedgerEvent{
		ID:        uuid.New(),
		AccountID: accountID,
		Transaction: wallet.Transaction{
			ID:        uuid.New(),
			AccountID: accountID,
			Kind:      wallet.KindEarning,
			Amount:    decimal.NewFromInt(10),
			Status:    wallet.StatusCompleted,
			CreatedAt: time.Now().UTC(),
		},
		At: time.Now().UTC(),
	}
}

func TestSubscribeReceivesPublishedEvents(t *testing.T) {
	n := feed.NewNotifier(nil)
	received := make(chan wallet.LedgerEvent, 1)

	cancel := n.Subscribe(func(ev wallet.LedgerEvent) {
		received <- ev
	})
	defer cancel()

	ev := testEvent(uuid.New())
	n.PublishLedgerEvent(context.Background(), ev)

	select {
	case got := <-received:
		if got.ID != ev.ID {
			t.Fatalf("received event %s, want %s", got.ID, ev.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber never received the event")
	}
}

func TestCancelledSubscriberStopsReceiving(t *testing.T) {
	n := feed.NewNotifier(nil)
	received := make(chan wallet.LedgerEvent, 4)

	cancel := n.Subscribe(func(ev wallet.LedgerEvent) {
		received <- ev
	})
	cancel()

	n.PublishLedgerEvent(context.Background(), testEvent(uuid.New()))

	select {
	case <-received:
		t.Fatal("cancelled subscriber received an event")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestWalletServicePublishesOnCredit(t *testing.T) {
	n := feed.NewNotifier(nil)
	received := make(chan wallet.LedgerEvent, 1)
	cancel := n.Subscribe(func(ev wallet.LedgerEvent) {
		received <- ev
	})
	defer cancel()

	store := wallet.NewMemoryStore(nil)
	svc := wallet.NewService(store, nil, n, "USD")

	owner := uuid.New()
	if _, err := svc.Credit(context.Background(), owner, decimal.NewFromInt(5), wallet.KindTopUp, "ref"); err != nil {
		t.Fatalf("credit failed: %v", err)
	}

	select {
	case ev := <-received:
		if ev.AccountID != owner {
			t.Fatalf("event account = %s, want %s", ev.AccountID, owner)
		}
		if ev.Transaction.Status != wallet.StatusCompleted {
			t.Fatalf("event carries non-completed transaction: %s", ev.Transaction.Status)
		}
	case <-time.After(time.Second):
		t.Fatal("no ledger event published for committed credit")
	}
}
