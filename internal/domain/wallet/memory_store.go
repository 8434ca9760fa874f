package wallet

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/starclip/starclip-api/internal/domain/audit"
)

// MemoryStore implements Store in memory. A single mutex serializes every
// mutation, which satisfies the per-account serialization requirement for
// tests and local development.
type MemoryStore struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*Account
	log      []Transaction
	auditLog *audit.MemoryLog
}

func NewMemoryStore(auditLog *audit.MemoryLog) *MemoryStore {
	return &MemoryStore{
		accounts: make(map[uuid.UUID]*Account),
		auditLog: auditLog,
	}
}

func (s *MemoryStore) ensureLocked(ownerID uuid.UUID, currency string) *Account {
	acc, ok := s.accounts[ownerID]
	if !ok {
		acc = &Account{
			OwnerID:   ownerID,
			Balance:   decimal.Zero,
			Currency:  currency,
			UpdatedAt: time.Now().UTC(),
		}
		s.accounts[ownerID] = acc
	}
	return acc
}

func (s *MemoryStore) EnsureAccount(ctx context.Context, ownerID uuid.UUID, currency string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLocked(ownerID, currency)
	return nil
}

func (s *MemoryStore) GetAccount(ctx context.Context, ownerID uuid.UUID) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[ownerID]
	if !ok {
		return nil, ErrAccountNotFound
	}
	cp := *acc
	return &cp, nil
}

func (s *MemoryStore) GetBalance(ctx context.Context, ownerID uuid.UUID) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureLocked(ownerID, defaultCurrency).Balance, nil
}

func (s *MemoryStore) findByReferenceLocked(ownerID uuid.UUID, kind TransactionKind, referenceID string) *Transaction {
	if referenceID == "" {
		return nil
	}
	for i := range s.log {
		t := &s.log[i]
		if t.AccountID == ownerID && t.Kind == kind && t.ReferenceID != nil && *t.ReferenceID == referenceID {
			return t
		}
	}
	return nil
}

func (s *MemoryStore) applyLocked(ownerID uuid.UUID, amount decimal.Decimal, kind TransactionKind, referenceID string) (*Transaction, error) {
	acc := s.ensureLocked(ownerID, defaultCurrency)

	if existing := s.findByReferenceLocked(ownerID, kind, referenceID); existing != nil {
		if !existing.Amount.Equal(amount) {
			return nil, ErrReferenceConflict
		}
		cp := *existing
		return &cp, nil
	}

	next := acc.Balance.Add(amount)
	if next.IsNegative() {
		return nil, ErrInsufficientFunds
	}

	acc.Balance = next
	acc.Version++
	acc.UpdatedAt = time.Now().UTC()

	t := newCompletedTransaction(ownerID, amount, kind, referenceID)
	s.log = append(s.log, *t)
	return t, nil
}

func (s *MemoryStore) Apply(ctx context.Context, ownerID uuid.UUID, amount decimal.Decimal, kind TransactionKind, referenceID string) (*Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyLocked(ownerID, amount, kind, referenceID)
}

func (s *MemoryStore) AdminAdjust(ctx context.Context, ownerID uuid.UUID, amount decimal.Decimal, reason string, actorID uuid.UUID, idempotencyKey string) (*Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing := s.findByReferenceLocked(ownerID, KindAdminAdjustment, idempotencyKey); existing != nil {
		if !existing.Amount.Equal(amount) {
			return nil, ErrReferenceConflict
		}
		cp := *existing
		return &cp, nil
	}

	t, err := s.applyLocked(ownerID, amount, KindAdminAdjustment, idempotencyKey)
	if err != nil {
		return nil, err
	}

	if s.auditLog != nil {
		s.auditLog.Record(audit.NewEntry("wallet.adjust", "wallet_account", ownerID.String(), actorID, map[string]interface{}{
			"amount":          amount.StringFixed(2),
			"reason":          reason,
			"idempotency_key": idempotencyKey,
			"transaction_id":  t.ID.String(),
		}))
	}

	return t, nil
}

func (s *MemoryStore) CreatePendingTopUp(ctx context.Context, ownerID uuid.UUID, amount decimal.Decimal, orderID string) (*Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureLocked(ownerID, defaultCurrency)

	if existing := s.findByReferenceLocked(ownerID, KindTopUp, orderID); existing != nil {
		return nil, ErrDuplicateReference
	}

	t := newCompletedTransaction(ownerID, amount, KindTopUp, orderID)
	t.Status = StatusPending
	s.log = append(s.log, *t)
	cp := *t
	return &cp, nil
}

func (s *MemoryStore) GetTopUp(ctx context.Context, orderID string) (*Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.log {
		t := &s.log[i]
		if t.Kind == KindTopUp && t.ReferenceID != nil && *t.ReferenceID == orderID {
			cp := *t
			return &cp, nil
		}
	}
	return nil, ErrAccountNotFound
}

func (s *MemoryStore) SettleTopUp(ctx context.Context, orderID string, succeeded bool) (*Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.log {
		t := &s.log[i]
		if t.Kind == KindTopUp && t.ReferenceID != nil && *t.ReferenceID == orderID {
			if t.Status != StatusPending {
				return nil, ErrAlreadySettled
			}
			if succeeded {
				acc := s.ensureLocked(t.AccountID, defaultCurrency)
				acc.Balance = acc.Balance.Add(t.Amount)
				acc.Version++
				acc.UpdatedAt = time.Now().UTC()
				t.Status = StatusCompleted
			} else {
				t.Status = StatusFailed
			}
			cp := *t
			return &cp, nil
		}
	}
	return nil, ErrAccountNotFound
}

func (s *MemoryStore) ListTransactions(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var all []Transaction
	for i := len(s.log) - 1; i >= 0; i-- {
		if s.log[i].AccountID == ownerID {
			all = append(all, s.log[i])
		}
	}

	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (s *MemoryStore) SumCompleted(ctx context.Context, ownerID uuid.UUID) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sum := decimal.Zero
	for i := range s.log {
		t := &s.log[i]
		if t.AccountID == ownerID && t.Status == StatusCompleted {
			sum = sum.Add(t.Amount)
		}
	}
	return sum, nil
}
