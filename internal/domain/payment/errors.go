package payment

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound          = errors.New("payment not found")
	ErrInvalidAddress    = errors.New("invalid sender address")
	ErrInvalidNetwork    = errors.New("unsupported network")
	ErrInvalidTxHash     = errors.New("invalid transaction hash")
	ErrOracleUnavailable = errors.New("chain oracle unavailable")
	ErrKindMismatch      = errors.New("payment kind mismatch")
)

// InsufficientFundsError rejects an intent before creation when the sender
// wallet cannot cover the expected amount.
type InsufficientFundsError struct {
	Required  decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: required %s, available %s", e.Required, e.Available)
}
