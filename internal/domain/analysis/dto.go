package analysis

import (
	"time"

	"github.com/shopspring/decimal"
)

type UpdateOutcomeRequest struct {
	Outcome string `json:"outcome" validate:"required,outcome"`
}

type PredictionResponse struct {
	ID             string           `json:"id"`
	Timeframe      string           `json:"timeframe"`
	Recommendation string           `json:"recommendation"`
	Entry          *decimal.Decimal `json:"entry,omitempty"`
	StopLoss       *decimal.Decimal `json:"stop_loss,omitempty"`
	TakeProfit     *decimal.Decimal `json:"take_profit,omitempty"`
	Confidence     *int             `json:"confidence,omitempty"`
	Reasoning      string           `json:"reasoning"`
	Structured     bool             `json:"structured"`
	Outcome        string           `json:"outcome"`
	CreatedAt      time.Time        `json:"created_at"`
}

func ToPredictionResponse(p *Prediction) PredictionResponse {
	resp := PredictionResponse{
		ID:             p.ID.String(),
		Timeframe:      p.Timeframe,
		Recommendation: p.Recommendation,
		Confidence:     p.Confidence,
		Reasoning:      p.Reasoning,
		Structured:     p.Structured,
		Outcome:        string(p.Outcome),
		CreatedAt:      p.CreatedAt,
	}
	if p.Entry.Valid {
		v := p.Entry.Decimal
		resp.Entry = &v
	}
	if p.StopLoss.Valid {
		v := p.StopLoss.Decimal
		resp.StopLoss = &v
	}
	if p.TakeProfit.Valid {
		v := p.TakeProfit.Decimal
		resp.TakeProfit = &v
	}
	return resp
}
