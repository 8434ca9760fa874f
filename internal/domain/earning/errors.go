package earning

import "errors"

var (
	ErrInvalidAmount    = errors.New("amount must be greater than zero")
	ErrNotFound         = errors.New("earning not found")
	ErrDuplicateRequest = errors.New("earning already recorded for request")
	ErrNotRefundable    = errors.New("earning is no longer refundable")
)
