package earning

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type MemoryStore struct {
	mu       sync.Mutex
	earnings map[uuid.UUID]*Earning
	byReq    map[uuid.UUID]uuid.UUID
	order    []uuid.UUID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		earnings: make(map[uuid.UUID]*Earning),
		byReq:    make(map[uuid.UUID]uuid.UUID),
	}
}

func (s *MemoryStore) Create(ctx context.Context, e *Earning) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byReq[e.RequestID]; exists {
		return ErrDuplicateRequest
	}

	cp := *e
	s.earnings[e.ID] = &cp
	s.byReq[e.RequestID] = e.ID
	s.order = append(s.order, e.ID)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id uuid.UUID) (*Earning, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.earnings[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (s *MemoryStore) GetByRequestID(ctx context.Context, requestID uuid.UUID) (*Earning, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byReq[requestID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s.earnings[id]
	return &cp, nil
}

func (s *MemoryStore) ListByCreator(ctx context.Context, creatorID uuid.UUID, limit, offset int) ([]Earning, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var all []Earning
	for i := len(s.order) - 1; i >= 0; i-- {
		e := s.earnings[s.order[i]]
		if e.CreatorID == creatorID {
			all = append(all, *e)
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

func (s *MemoryStore) ClearDue(ctx context.Context, cutoff time.Time) ([]Earning, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	var cleared []Earning
	for _, id := range s.order {
		e := s.earnings[id]
		if e.Status == StatusPending && !e.CreatedAt.After(cutoff) {
			e.Status = StatusCompleted
			at := now
			e.ClearedAt = &at
			cleared = append(cleared, *e)
		}
	}
	return cleared, nil
}

func (s *MemoryStore) MarkRefunded(ctx context.Context, id uuid.UUID) (*Earning, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.earnings[id]
	if !ok {
		return nil, ErrNotFound
	}
	if e.Status != StatusPending {
		return nil, ErrNotRefundable
	}
	e.Status = StatusRefunded
	cp := *e
	return &cp, nil
}

func (s *MemoryStore) SumPendingNet(ctx context.Context, creatorID uuid.UUID) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sum := decimal.Zero
	for _, id := range s.order {
		e := s.earnings[id]
		if e.CreatorID == creatorID && e.Status == StatusPending {
			sum = sum.Add(e.Net)
		}
	}
	return sum, nil
}
