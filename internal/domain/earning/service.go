package earning

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/starclip/starclip-api/internal/domain/wallet"
	"github.com/starclip/starclip-api/internal/pkg/money"
)

// Service converts request lifecycle events into fee splits and ledger
// credits. The earning status gates withdrawability, not the ledger balance:
// the net amount is credited immediately, but stays out of
// available-for-withdrawal while the dispute window runs.
type Service struct {
	store             Store
	wallets           *wallet.Service
	feeRate           decimal.Decimal
	disputeWindow     time.Duration
	platformAccountID uuid.UUID
}

func NewService(store Store, wallets *wallet.Service, feeRate decimal.Decimal, disputeWindowHours int, platformAccountID uuid.UUID) *Service {
	return &Service{
		store:             store,
		wallets:           wallets,
		feeRate:           feeRate,
		disputeWindow:     time.Duration(disputeWindowHours) * time.Hour,
		platformAccountID: platformAccountID,
	}
}

// BookRequest debits the fan's wallet when a video request is placed.
func (s *Service) BookRequest(ctx context.Context, requestID, fanID uuid.UUID, amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	_, err := s.wallets.Debit(ctx, fanID, amount, wallet.KindPurchase, requestID.String())
	return err
}

// OnRequestCompleted records the earning and credits the creator's net and
// the platform's fee. Idempotent by request id.
func (s *Service) OnRequestCompleted(ctx context.Context, requestID, creatorID uuid.UUID, gross decimal.Decimal) (*Earning, error) {
	if gross.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}

	fee, net := money.Split(gross, s.feeRate)

	e := &Earning{
		ID:        uuid.New(),
		CreatorID: creatorID,
		RequestID: requestID,
		Gross:     gross,
		Fee:       fee,
		Net:       net,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if s.disputeWindow == 0 {
		now := e.CreatedAt
		e.Status = StatusCompleted
		e.ClearedAt = &now
	}

	if err := s.store.Create(ctx, e); err != nil {
		if err != ErrDuplicateRequest {
			return nil, err
		}
		// Replayed event. Fall through to the credits with the stored
		// amounts so a replay heals a first attempt that recorded the
		// earning but died before crediting; the ledger deduplicates the
		// credits by reference.
		e, err = s.store.GetByRequestID(ctx, requestID)
		if err != nil {
			return nil, err
		}
	}

	if _, err := s.wallets.Credit(ctx, e.CreatorID, e.Net, wallet.KindEarning, e.RequestID.String()); err != nil {
		return nil, err
	}
	if e.Fee.Sign() > 0 {
		if _, err := s.wallets.Credit(ctx, s.platformAccountID, e.Fee, wallet.KindFee, e.RequestID.String()); err != nil {
			return nil, err
		}
	}

	log.Info().
		Str("request_id", requestID.String()).
		Str("creator_id", e.CreatorID.String()).
		Str("gross", e.Gross.StringFixed(2)).
		Str("fee", e.Fee.StringFixed(2)).
		Str("net", e.Net.StringFixed(2)).
		Str("status", string(e.Status)).
		Msg("earning recorded")
	return e, nil
}

// OnRequestDeclined returns the fan's reserved funds.
func (s *Service) OnRequestDeclined(ctx context.Context, requestID, fanID uuid.UUID, amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return ErrInvalidAmount
	}

	if _, err := s.wallets.Credit(ctx, fanID, amount, wallet.KindRefund, requestID.String()); err != nil {
		return err
	}

	log.Info().
		Str("request_id", requestID.String()).
		Str("fan_id", fanID.String()).
		Str("amount", amount.StringFixed(2)).
		Msg("declined request refunded")
	return nil
}

// Refund reverses a disputed earning. Only possible while still pending.
func (s *Service) Refund(ctx context.Context, earningID, actorID uuid.UUID) (*Earning, error) {
	e, err := s.store.Get(ctx, earningID)
	if err != nil {
		return nil, err
	}
	if e.Status != StatusPending {
		return nil, ErrNotRefundable
	}

	// Claw the money back before flipping the status: a failed debit must
	// leave the earning pending so the refund can be retried. The debits are
	// deduplicated by reference, so a retry never claws back twice.
	if _, err := s.wallets.Debit(ctx, e.CreatorID, e.Net, wallet.KindRefund, "earning:"+e.ID.String()); err != nil {
		return nil, err
	}
	if e.Fee.Sign() > 0 {
		if _, err := s.wallets.Debit(ctx, s.platformAccountID, e.Fee, wallet.KindRefund, "earning:"+e.ID.String()); err != nil {
			return nil, err
		}
	}

	e, err = s.store.MarkRefunded(ctx, earningID)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("earning_id", e.ID.String()).
		Str("actor_id", actorID.String()).
		Str("net", e.Net.StringFixed(2)).
		Msg("earning refunded")
	return e, nil
}

// ClearDue promotes pending earnings whose dispute window has elapsed.
func (s *Service) ClearDue(ctx context.Context) (int, error) {
	if s.disputeWindow == 0 {
		return 0, nil
	}

	cutoff := time.Now().UTC().Add(-s.disputeWindow)
	cleared, err := s.store.ClearDue(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	return len(cleared), nil
}

func (s *Service) ListByCreator(ctx context.Context, creatorID uuid.UUID, limit, offset int) ([]Earning, error) {
	return s.store.ListByCreator(ctx, creatorID, limit, offset)
}
