package ledger

import "errors"

// Service errors
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrAccountNotFound   = errors.New("account not found")
	ErrAccountClosed     = errors.New("account closed")
	ErrRateNotFound      = errors.New("exchange rate not found")
)
