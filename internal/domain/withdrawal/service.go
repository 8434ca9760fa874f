package withdrawal

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/starclip/starclip-api/internal/domain/wallet"
)

type Service struct {
	store      Store
	wallets    *wallet.Service
	dispatcher *Dispatcher
	minAmount  decimal.Decimal
}

func NewService(store Store, wallets *wallet.Service, dispatcher *Dispatcher, minAmount decimal.Decimal) *Service {
	return &Service{store: store, wallets: wallets, dispatcher: dispatcher, minAmount: minAmount}
}

// Available returns how much the creator can withdraw right now: ledger
// balance minus pending reservations minus earnings still in the dispute
// window.
func (s *Service) Available(ctx context.Context, creatorID uuid.UUID) (decimal.Decimal, error) {
	return s.store.Available(ctx, creatorID)
}

// Request creates a pending withdrawal. The amount is reserved but the
// ledger stays untouched until an admin approves.
func (s *Service) Request(ctx context.Context, creatorID uuid.UUID, amount decimal.Decimal, method Method, details string) (*Withdrawal, error) {
	if amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if amount.LessThan(s.minAmount) {
		return nil, ErrBelowMinimum
	}

	wd, err := s.store.Create(ctx, creatorID, amount, method, details)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("withdrawal_id", wd.ID.String()).
		Str("creator_id", creatorID.String()).
		Str("amount", amount.StringFixed(2)).
		Str("method", string(method)).
		Msg("withdrawal requested")
	return wd, nil
}

// Approve debits the creator's wallet, marks the request completed, and then
// hands the payout to the gateway. The ledger commit is the source of truth:
// a gateway failure after commit surfaces as an error but never rolls the
// withdrawal back, so the caller can retry the dispatch side independently.
func (s *Service) Approve(ctx context.Context, id, actorID uuid.UUID) (*Withdrawal, error) {
	wd, t, err := s.store.Approve(ctx, id, actorID)
	if err != nil {
		return nil, err
	}

	s.wallets.PublishEvent(ctx, t)
	log.Info().
		Str("withdrawal_id", wd.ID.String()).
		Str("actor_id", actorID.String()).
		Str("amount", wd.Amount.StringFixed(2)).
		Msg("withdrawal approved")

	if s.dispatcher != nil {
		if err := s.dispatcher.Dispatch(ctx, wd); err != nil {
			return wd, err
		}
	}
	return wd, nil
}

// Reject releases the reservation without touching the ledger.
func (s *Service) Reject(ctx context.Context, id, actorID uuid.UUID) (*Withdrawal, error) {
	wd, err := s.store.Reject(ctx, id, actorID)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("withdrawal_id", wd.ID.String()).
		Str("actor_id", actorID.String()).
		Msg("withdrawal rejected")
	return wd, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Withdrawal, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) ListByCreator(ctx context.Context, creatorID uuid.UUID, limit, offset int) ([]Withdrawal, error) {
	return s.store.ListByCreator(ctx, creatorID, limit, offset)
}

func (s *Service) ListByStatus(ctx context.Context, status Status, limit, offset int) ([]Withdrawal, error) {
	return s.store.ListByStatus(ctx, status, limit, offset)
}
