package affiliate

import "errors"

var (
	ErrInvalidValue     = errors.New("action value must be greater than zero")
	ErrNotFound         = errors.New("commission not found")
	ErrAlreadyProcessed = errors.New("commission already processed")
	ErrNotConfirmed     = errors.New("commission must be confirmed before payout")
	ErrNoTiers          = errors.New("no affiliate tiers configured")
	ErrInvalidTiers     = errors.New("tier list is invalid")
)
