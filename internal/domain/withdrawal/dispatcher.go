package withdrawal

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"

	"github.com/starclip/starclip-api/internal/pkg/gateway"
)

// Dispatcher pushes approved withdrawals to the payment gateway. Dispatch is
// retried with exponential backoff because gateway blips are common; the
// withdrawal ID doubles as the payout reference, so the gateway side stays
// idempotent across retries.
type Dispatcher struct {
	gw         gateway.PaymentGateway
	maxElapsed time.Duration
}

func NewDispatcher(gw gateway.PaymentGateway, maxElapsed time.Duration) *Dispatcher {
	if maxElapsed <= 0 {
		maxElapsed = 30 * time.Second
	}
	return &Dispatcher{gw: gw, maxElapsed: maxElapsed}
}

func (d *Dispatcher) Dispatch(ctx context.Context, wd *Withdrawal) error {
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = d.maxElapsed

	var payoutID string
	operation := func() error {
		id, err := d.gw.DispatchPayout(ctx, wd.Details, wd.Amount, wd.ID.String())
		if err != nil {
			return err
		}
		payoutID = id
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(policy, ctx)); err != nil {
		log.Error().
			Err(err).
			Str("withdrawal_id", wd.ID.String()).
			Str("method", string(wd.Method)).
			Msg("payout dispatch failed")
		return err
	}

	log.Info().
		Str("withdrawal_id", wd.ID.String()).
		Str("payout_id", payoutID).
		Str("amount", wd.Amount.StringFixed(2)).
		Msg("payout dispatched")
	return nil
}
