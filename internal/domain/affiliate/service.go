package affiliate

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/starclip/starclip-api/internal/pkg/gateway"
	"github.com/starclip/starclip-api/internal/pkg/money"
)

var hundred = decimal.NewFromInt(100)

type Service struct {
	store Store
	gw    gateway.PaymentGateway
}

func NewService(store Store, gw gateway.PaymentGateway) *Service {
	return &Service{store: store, gw: gw}
}

// TierFor selects the highest tier whose threshold the affiliate's cumulative
// confirmed total reaches. Tiers are read fresh on every call so an admin
// change takes effect immediately.
func (s *Service) TierFor(ctx context.Context, affiliateID uuid.UUID) (*Tier, error) {
	total, err := s.store.ConfirmedTotal(ctx, affiliateID)
	if err != nil {
		return nil, err
	}

	tiers, err := s.store.Tiers(ctx)
	if err != nil {
		return nil, err
	}
	if len(tiers) == 0 {
		return nil, ErrNoTiers
	}

	var best *Tier
	for i := range tiers {
		t := &tiers[i]
		if t.Threshold.GreaterThan(total) {
			continue
		}
		if best == nil || t.Threshold.GreaterThan(best.Threshold) {
			best = t
		}
	}
	if best == nil {
		return nil, ErrNoTiers
	}
	return best, nil
}

// Record creates a pending commission for a referral event. The amount is the
// action value at the affiliate's current tier rate, rounded to cents.
func (s *Service) Record(ctx context.Context, affiliateID uuid.UUID, referredUserID *uuid.UUID, typ Type, actionValue decimal.Decimal) (*Commission, error) {
	if actionValue.Sign() <= 0 {
		return nil, ErrInvalidValue
	}

	tier, err := s.TierFor(ctx, affiliateID)
	if err != nil {
		return nil, err
	}

	c := &Commission{
		ID:             uuid.New(),
		AffiliateID:    affiliateID,
		ReferredUserID: referredUserID,
		Type:           typ,
		Amount:         money.Round2(actionValue.Mul(tier.RatePercent).Div(hundred)),
		Status:         StatusPending,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.store.Create(ctx, c); err != nil {
		return nil, err
	}

	log.Info().
		Str("commission_id", c.ID.String()).
		Str("affiliate_id", affiliateID.String()).
		Str("tier", tier.Name).
		Str("amount", c.Amount.StringFixed(2)).
		Msg("commission recorded")
	return c, nil
}

func (s *Service) Confirm(ctx context.Context, id, actorID uuid.UUID) (*Commission, error) {
	c, err := s.store.Confirm(ctx, id, actorID)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("commission_id", c.ID.String()).
		Str("actor_id", actorID.String()).
		Msg("commission confirmed")
	return c, nil
}

// Pay marks the commission paid and then dispatches the payout. As with
// withdrawals, the status flip is authoritative; a gateway failure after it
// surfaces as an error for operational follow-up but is never rolled back.
func (s *Service) Pay(ctx context.Context, id, actorID uuid.UUID) (*Commission, error) {
	c, err := s.store.Pay(ctx, id, actorID)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("commission_id", c.ID.String()).
		Str("actor_id", actorID.String()).
		Str("amount", c.Amount.StringFixed(2)).
		Msg("commission paid")

	if s.gw != nil {
		policy := backoff.NewExponentialBackOff()
		policy.MaxElapsedTime = 30 * time.Second

		dispatch := func() error {
			_, err := s.gw.DispatchPayout(ctx, c.AffiliateID.String(), c.Amount, c.ID.String())
			return err
		}
		if err := backoff.Retry(dispatch, backoff.WithContext(policy, ctx)); err != nil {
			log.Error().
				Err(err).
				Str("commission_id", c.ID.String()).
				Msg("commission payout dispatch failed")
			return c, err
		}
	}
	return c, nil
}

func (s *Service) Cancel(ctx context.Context, id, actorID uuid.UUID) (*Commission, error) {
	c, err := s.store.Cancel(ctx, id, actorID)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("commission_id", c.ID.String()).
		Str("actor_id", actorID.String()).
		Msg("commission cancelled")
	return c, nil
}

func (s *Service) List(ctx context.Context, affiliateID uuid.UUID, status Status, limit, offset int) ([]Commission, error) {
	return s.store.ListByAffiliate(ctx, affiliateID, status, limit, offset)
}

func (s *Service) Tiers(ctx context.Context) ([]Tier, error) {
	return s.store.Tiers(ctx)
}

// ReplaceTiers validates and swaps the tier table. Thresholds must start at
// zero so every total maps to some tier.
func (s *Service) ReplaceTiers(ctx context.Context, tiers []Tier, actorID uuid.UUID) error {
	if len(tiers) == 0 {
		return ErrInvalidTiers
	}

	hasZero := false
	for _, t := range tiers {
		if t.Name == "" || t.Threshold.IsNegative() || t.RatePercent.IsNegative() {
			return ErrInvalidTiers
		}
		if t.Threshold.IsZero() {
			hasZero = true
		}
	}
	if !hasZero {
		return ErrInvalidTiers
	}

	if err := s.store.ReplaceTiers(ctx, tiers, actorID); err != nil {
		return err
	}

	log.Info().
		Str("actor_id", actorID.String()).
		Int("tiers", len(tiers)).
		Msg("affiliate tiers replaced")
	return nil
}
