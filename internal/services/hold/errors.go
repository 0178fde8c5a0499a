package hold

import "errors"

// Service errors
var (
	ErrHoldNotFound  = errors.New("hold not found")
	ErrInvalidState  = errors.New("hold is not in a state that allows this operation")
	ErrInvalidAmount = errors.New("invalid capture amount")
)
