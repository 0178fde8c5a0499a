package limits

import "errors"

// Service errors
var (
	ErrExceedsTransactionLimit = errors.New("amount exceeds transaction limit")
	ErrExceedsDailyLimit       = errors.New("transaction would exceed daily spending limit")
	ErrExceedsMonthlyLimit     = errors.New("transaction would exceed monthly spending limit")
)
