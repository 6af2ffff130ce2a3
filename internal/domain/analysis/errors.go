package analysis

import "errors"

var (
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrInvalidImage        = errors.New("invalid chart image")
	ErrInferenceFailed     = errors.New("model inference failed")
	ErrNotFound            = errors.New("prediction not found")
	ErrInvalidOutcome      = errors.New("invalid outcome")
)
