package repositories

import "errors"

// Repository errors
var (
	ErrRequestNotFound  = errors.New("authorization request not found")
	ErrDecisionNotFound = errors.New("authorization decision not found")
	ErrHoldNotFound     = errors.New("authorization hold not found")
	ErrWindowNotFound   = errors.New("spending window not found")
	ErrDuplicateKey     = errors.New("duplicate key")
	ErrStaleVersion     = errors.New("stale row version")
	ErrLimitExceeded    = errors.New("window limit exceeded")
)
