package withdrawal

import "errors"

var (
	ErrInvalidAmount         = errors.New("amount must be greater than zero")
	ErrBelowMinimum          = errors.New("amount is below the minimum withdrawal")
	ErrInsufficientAvailable = errors.New("amount exceeds available balance")
	ErrNotFound              = errors.New("withdrawal request not found")
	ErrAlreadyProcessed      = errors.New("withdrawal request already processed")
)
