package analysis

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Outcome string

const (
	OutcomeOngoing Outcome = "ongoing"
	OutcomeWon     Outcome = "won"
	OutcomeLost    Outcome = "lost"
)

// Prediction is a stored trade recommendation produced from a chart image.
type Prediction struct {
	ID             uuid.UUID           `db:"id" json:"id"`
	UserID         uuid.UUID           `db:"user_id" json:"user_id"`
	Timeframe      string              `db:"timeframe" json:"timeframe"`
	Recommendation string              `db:"recommendation" json:"recommendation"`
	Entry          decimal.NullDecimal `db:"entry" json:"entry,omitempty"`
	StopLoss       decimal.NullDecimal `db:"stop_loss" json:"stop_loss,omitempty"`
	TakeProfit     decimal.NullDecimal `db:"take_profit" json:"take_profit,omitempty"`
	Confidence     *int                `db:"confidence" json:"confidence,omitempty"`
	Reasoning      string              `db:"reasoning" json:"reasoning"`
	Structured     bool                `db:"structured" json:"structured"`
	Outcome        Outcome             `db:"outcome" json:"outcome"`
	CreatedAt      time.Time           `db:"created_at" json:"created_at"`
}
