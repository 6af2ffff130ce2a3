package credit

import "errors"

var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrDuplicateReference  = errors.New("duplicate reference")
)
