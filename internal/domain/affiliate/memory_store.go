package affiliate

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/starclip/starclip-api/internal/domain/audit"
)

// MemoryStore implements Store in memory for tests and local development.
type MemoryStore struct {
	mu       sync.Mutex
	tiers    []Tier
	byID     map[uuid.UUID]*Commission
	order    []uuid.UUID
	auditLog *audit.MemoryLog
}

func NewMemoryStore(tiers []Tier, auditLog *audit.MemoryLog) *MemoryStore {
	if len(tiers) == 0 {
		tiers = DefaultTiers()
	}
	return &MemoryStore{
		tiers:    tiers,
		byID:     make(map[uuid.UUID]*Commission),
		auditLog: auditLog,
	}
}

func (s *MemoryStore) Tiers(ctx context.Context) ([]Tier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Tier, len(s.tiers))
	copy(out, s.tiers)
	return out, nil
}

func (s *MemoryStore) ReplaceTiers(ctx context.Context, tiers []Tier, actorID uuid.UUID) error {
	if len(tiers) == 0 {
		return ErrInvalidTiers
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.tiers = make([]Tier, len(tiers))
	copy(s.tiers, tiers)

	if s.auditLog != nil {
		names := make([]string, 0, len(tiers))
		for _, t := range tiers {
			names = append(names, t.Name)
		}
		s.auditLog.Record(audit.NewEntry("affiliate.tiers.replace", "affiliate_tiers", "config", actorID, map[string]interface{}{
			"tiers": names,
		}))
	}
	return nil
}

func (s *MemoryStore) Create(ctx context.Context, c *Commission) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *c
	s.byID[c.ID] = &cp
	s.order = append(s.order, c.ID)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id uuid.UUID) (*Commission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *MemoryStore) ListByAffiliate(ctx context.Context, affiliateID uuid.UUID, status Status, limit, offset int) ([]Commission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var all []Commission
	for i := len(s.order) - 1; i >= 0; i-- {
		c := s.byID[s.order[i]]
		if c.AffiliateID != affiliateID {
			continue
		}
		if status != "" && c.Status != status {
			continue
		}
		all = append(all, *c)
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

func (s *MemoryStore) ConfirmedTotal(ctx context.Context, affiliateID uuid.UUID) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := decimal.Zero
	for _, id := range s.order {
		c := s.byID[id]
		if c.AffiliateID == affiliateID && (c.Status == StatusConfirmed || c.Status == StatusPaid) {
			total = total.Add(c.Amount)
		}
	}
	return total, nil
}

func (s *MemoryStore) transition(id, actorID uuid.UUID, check func(*Commission) error, apply func(*Commission), action string) (*Commission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	if err := check(c); err != nil {
		return nil, err
	}
	apply(c)

	if s.auditLog != nil {
		s.auditLog.Record(audit.NewEntry(action, "affiliate_commission", c.ID.String(), actorID, map[string]interface{}{
			"affiliate_id": c.AffiliateID.String(),
			"amount":       c.Amount.StringFixed(2),
		}))
	}

	cp := *c
	return &cp, nil
}

func (s *MemoryStore) Confirm(ctx context.Context, id, actorID uuid.UUID) (*Commission, error) {
	return s.transition(id, actorID,
		func(c *Commission) error {
			if c.Status != StatusPending {
				return ErrAlreadyProcessed
			}
			return nil
		},
		func(c *Commission) { c.Status = StatusConfirmed },
		"commission.confirm")
}

func (s *MemoryStore) Pay(ctx context.Context, id, actorID uuid.UUID) (*Commission, error) {
	return s.transition(id, actorID,
		func(c *Commission) error {
			switch c.Status {
			case StatusConfirmed:
				return nil
			case StatusPaid:
				return ErrAlreadyProcessed
			default:
				return ErrNotConfirmed
			}
		},
		func(c *Commission) {
			now := time.Now().UTC()
			c.Status = StatusPaid
			c.PaidAt = &now
		},
		"commission.pay")
}

func (s *MemoryStore) Cancel(ctx context.Context, id, actorID uuid.UUID) (*Commission, error) {
	return s.transition(id, actorID,
		func(c *Commission) error {
			if c.Status != StatusPending {
				return ErrAlreadyProcessed
			}
			return nil
		},
		func(c *Commission) { c.Status = StatusCancelled },
		"commission.cancel")
}
