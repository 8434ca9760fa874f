package wallet

import "errors"

var (
	ErrNegativeAmount     = errors.New("amount must be greater than zero")
	ErrAccountNotFound    = errors.New("wallet account not found")
	ErrInsufficientFunds  = errors.New("insufficient wallet balance")
	ErrDuplicateReference = errors.New("duplicate transaction reference")
	ErrReferenceConflict  = errors.New("reference already used with a different amount")
	ErrAlreadySettled     = errors.New("top-up already settled")
)
