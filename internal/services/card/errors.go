package card

import "errors"

// Service errors
var (
	ErrInvalidInput   = errors.New("neither PAN hash nor token provided")
	ErrCardNotFound   = errors.New("card not found")
	ErrCardNotActive  = errors.New("card is not active")
	ErrCardExpired    = errors.New("card has expired")
	ErrCardLostStolen = errors.New("card reported lost or stolen")
)
