package payment

import (
	"time"

	"github.com/shopspring/decimal"
)

type InitSolanaRequest struct {
	SenderAddress string `json:"sender_address" validate:"required"`
}

type InitWorldcoinRequest struct {
	Network string `json:"network" validate:"omitempty,network"`
}

type VerifyRequest struct {
	PaymentID string `json:"payment_id" validate:"required,uuid"`
}

type VerifyWorldcoinRequest struct {
	PaymentID string `json:"payment_id" validate:"required,uuid"`
	TxHash    string `json:"tx_hash" validate:"required"`
}

type IntentResponse struct {
	ID              string           `json:"id"`
	Kind            string           `json:"kind"`
	Status          string           `json:"status"`
	ReceiverAddress string           `json:"receiver_address"`
	ExpectedAmount  decimal.Decimal  `json:"expected_amount"`
	ObservedAmount  *decimal.Decimal `json:"observed_amount,omitempty"`
	Network         string           `json:"network,omitempty"`
	CreditsToGrant  int64            `json:"credits_to_grant"`
	TxRef           string           `json:"tx_ref,omitempty"`
	FailureReason   string           `json:"failure_reason,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	ExpiresAt       time.Time        `json:"expires_at"`
	VerifiedAt      *time.Time       `json:"verified_at,omitempty"`
}

func ToIntentResponse(i *Intent) IntentResponse {
	resp := IntentResponse{
		ID:              i.ID.String(),
		Kind:            string(i.Kind),
		Status:          string(i.Status),
		ReceiverAddress: i.ReceiverAddress,
		ExpectedAmount:  i.ExpectedAmount,
		Network:         i.Network,
		CreditsToGrant:  i.CreditsToGrant,
		CreatedAt:       i.CreatedAt,
		ExpiresAt:       i.ExpiresAt,
		VerifiedAt:      i.VerifiedAt,
	}
	if i.ObservedAmount.Valid {
		amount := i.ObservedAmount.Decimal
		resp.ObservedAmount = &amount
	}
	if i.TxRef != nil {
		resp.TxRef = *i.TxRef
	}
	if i.FailureReason != nil {
		resp.FailureReason = *i.FailureReason
	}
	return resp
}
