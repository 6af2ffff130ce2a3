package payment

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Kind string

const (
	KindSolana    Kind = "sol"
	KindWorldcoin Kind = "wld"
)

type Status string

const (
	// StatusPending means the intent is created and no transfer has been matched yet.
	StatusPending Status = "pending"
	// StatusProcessing means a transaction hash was submitted and awaits on-chain confirmation.
	StatusProcessing Status = "processing"
	// StatusVerified is the terminal success state for native SOL payments.
	StatusVerified Status = "verified"
	// StatusConfirmed is the terminal success state for token payments.
	StatusConfirmed Status = "confirmed"
	// StatusCancelled means the payment window elapsed without a matching transfer.
	StatusCancelled Status = "cancelled"
	// StatusFailed means the submitted transaction did not pass verification.
	StatusFailed Status = "failed"
)

type Intent struct {
	ID              uuid.UUID           `db:"id" json:"id"`
	UserID          uuid.UUID           `db:"user_id" json:"user_id"`
	Kind            Kind                `db:"kind" json:"kind"`
	SenderAddress   string              `db:"sender_address" json:"sender_address,omitempty"`
	ReceiverAddress string              `db:"receiver_address" json:"receiver_address"`
	ExpectedAmount  decimal.Decimal     `db:"expected_amount" json:"expected_amount"`
	ObservedAmount  decimal.NullDecimal `db:"observed_amount" json:"observed_amount,omitempty"`
	Network         string              `db:"network" json:"network,omitempty"`
	Status          Status              `db:"status" json:"status"`
	CreditsToGrant  int64               `db:"credits_to_grant" json:"credits_to_grant"`
	TxRef           *string             `db:"tx_ref" json:"tx_ref,omitempty"`
	FailureReason   *string             `db:"failure_reason" json:"failure_reason,omitempty"`
	CreatedAt       time.Time           `db:"created_at" json:"created_at"`
	ExpiresAt       time.Time           `db:"expires_at" json:"expires_at"`
	VerifiedAt      *time.Time          `db:"verified_at" json:"verified_at,omitempty"`
}

// Succeeded reports whether the intent reached a terminal success state.
func (i *Intent) Succeeded() bool {
	return i.Status == StatusVerified || i.Status == StatusConfirmed
}

// Terminal reports whether no further transitions are possible.
func (i *Intent) Terminal() bool {
	switch i.Status {
	case StatusVerified, StatusConfirmed, StatusCancelled, StatusFailed:
		return true
	}
	return false
}

// Expired reports whether the payment window has elapsed.
func (i *Intent) Expired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

// Tolerance returns the acceptable deviation for a matching transfer,
// one percent of the expected amount.
func (i *Intent) Tolerance() decimal.Decimal {
	return i.ExpectedAmount.Mul(decimal.RequireFromString("0.01"))
}

// AmountMatches reports whether an observed transfer amount is within
// tolerance of the expected amount.
func (i *Intent) AmountMatches(observed decimal.Decimal) bool {
	return observed.Sub(i.ExpectedAmount).Abs().LessThanOrEqual(i.Tolerance())
}
