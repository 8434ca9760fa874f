package withdrawal

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/starclip/starclip-api/internal/domain/audit"
	"github.com/starclip/starclip-api/internal/domain/earning"
	"github.com/starclip/starclip-api/internal/domain/wallet"
)

// MemoryStore implements Store in memory. Its mutex is the serialization
// point for availability checks, which is enough for tests and local
// development because approvals and rejections also pass through it.
type MemoryStore struct {
	mu       sync.Mutex
	wallets  *wallet.MemoryStore
	earnings earning.Store
	auditLog *audit.MemoryLog
	byID     map[uuid.UUID]*Withdrawal
	order    []uuid.UUID
}

func NewMemoryStore(wallets *wallet.MemoryStore, earnings earning.Store, auditLog *audit.MemoryLog) *MemoryStore {
	return &MemoryStore{
		wallets:  wallets,
		earnings: earnings,
		auditLog: auditLog,
		byID:     make(map[uuid.UUID]*Withdrawal),
	}
}

func (s *MemoryStore) availableLocked(ctx context.Context, creatorID uuid.UUID) (decimal.Decimal, error) {
	balance, err := s.wallets.GetBalance(ctx, creatorID)
	if err != nil {
		return decimal.Zero, err
	}

	reserved := decimal.Zero
	for _, id := range s.order {
		wd := s.byID[id]
		if wd.CreatorID == creatorID && wd.Status == StatusPending {
			reserved = reserved.Add(wd.Amount)
		}
	}

	uncleared := decimal.Zero
	if s.earnings != nil {
		uncleared, err = s.earnings.SumPendingNet(ctx, creatorID)
		if err != nil {
			return decimal.Zero, err
		}
	}

	return balance.Sub(reserved).Sub(uncleared), nil
}

func (s *MemoryStore) Available(ctx context.Context, creatorID uuid.UUID) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.availableLocked(ctx, creatorID)
}

func (s *MemoryStore) Create(ctx context.Context, creatorID uuid.UUID, amount decimal.Decimal, method Method, details string) (*Withdrawal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	available, err := s.availableLocked(ctx, creatorID)
	if err != nil {
		return nil, err
	}
	if amount.GreaterThan(available) {
		return nil, ErrInsufficientAvailable
	}

	wd := &Withdrawal{
		ID:        uuid.New(),
		CreatorID: creatorID,
		Amount:    amount,
		Method:    method,
		Details:   details,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	s.byID[wd.ID] = wd
	s.order = append(s.order, wd.ID)

	cp := *wd
	return &cp, nil
}

func (s *MemoryStore) Get(ctx context.Context, id uuid.UUID) (*Withdrawal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wd, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *wd
	return &cp, nil
}

func (s *MemoryStore) Approve(ctx context.Context, id, actorID uuid.UUID) (*Withdrawal, *wallet.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wd, ok := s.byID[id]
	if !ok {
		return nil, nil, ErrNotFound
	}
	if wd.Status != StatusPending {
		return nil, nil, ErrAlreadyProcessed
	}

	t, err := s.wallets.Apply(ctx, wd.CreatorID, wd.Amount.Neg(), wallet.KindPayout, wd.ID.String())
	if err != nil {
		return nil, nil, err
	}

	now := time.Now().UTC()
	wd.Status = StatusCompleted
	wd.ProcessedAt = &now

	if s.auditLog != nil {
		s.auditLog.Record(audit.NewEntry("withdrawal.approve", "withdrawal", wd.ID.String(), actorID, map[string]interface{}{
			"creator_id": wd.CreatorID.String(),
			"amount":     wd.Amount.StringFixed(2),
			"method":     string(wd.Method),
		}))
	}

	cp := *wd
	return &cp, t, nil
}

func (s *MemoryStore) Reject(ctx context.Context, id, actorID uuid.UUID) (*Withdrawal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wd, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	if wd.Status != StatusPending {
		return nil, ErrAlreadyProcessed
	}

	now := time.Now().UTC()
	wd.Status = StatusRejected
	wd.ProcessedAt = &now

	if s.auditLog != nil {
		s.auditLog.Record(audit.NewEntry("withdrawal.reject", "withdrawal", wd.ID.String(), actorID, map[string]interface{}{
			"creator_id": wd.CreatorID.String(),
			"amount":     wd.Amount.StringFixed(2),
		}))
	}

	cp := *wd
	return &cp, nil
}

func (s *MemoryStore) ListByCreator(ctx context.Context, creatorID uuid.UUID, limit, offset int) ([]Withdrawal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var all []Withdrawal
	for i := len(s.order) - 1; i >= 0; i-- {
		wd := s.byID[s.order[i]]
		if wd.CreatorID == creatorID {
			all = append(all, *wd)
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

func (s *MemoryStore) ListByStatus(ctx context.Context, status Status, limit, offset int) ([]Withdrawal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var all []Withdrawal
	for _, id := range s.order {
		wd := s.byID[id]
		if wd.Status == status {
			all = append(all, *wd)
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
