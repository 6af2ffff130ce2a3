package analysis

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/lunapredict/luna-api/internal/domain/credit"
	"github.com/lunapredict/luna-api/internal/pkg/imaging"
)

// analysisCost is how many credits one chart analysis consumes.
const analysisCost = 1

// CreditLedger debits the analysis fee and returns it when inference fails.
type CreditLedger interface {
	Deduct(ctx context.Context, userID uuid.UUID, amount int64, referenceID string) error
	Refund(ctx context.Context, userID uuid.UUID, amount int64, referenceID string) error
}

// Inference produces a completion from a prompt and a chart image.
type Inference interface {
	AnalyzeImage(ctx context.Context, prompt, imageDataURL string) (string, error)
}

// Store persists predictions.
type Store interface {
	Create(ctx context.Context, p *Prediction) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Prediction, error)
	UpdateOutcome(ctx context.Context, id, userID uuid.UUID, outcome Outcome) error
}

type Service struct {
	store     Store
	credits   CreditLedger
	inference Inference
	processor *imaging.Processor
}

func NewService(store Store, credits CreditLedger, inference Inference, processor *imaging.Processor) *Service {
	return &Service{store: store, credits: credits, inference: inference, processor: processor}
}

// Analyze runs the full flow: prepare the image, charge the fee, query the
// model and store the prediction. The fee is refunded when anything past
// the debit fails.
func (s *Service) Analyze(ctx context.Context, userID uuid.UUID, image io.Reader, timeframe string) (*Prediction, error) {
	if timeframe == "" {
		timeframe = "auto"
	}
	if !ValidTimeframe(timeframe) {
		timeframe = "auto"
	}

	processed, err := s.processor.Process(image)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	analysisID := uuid.New()
	ref := "analysis:" + analysisID.String()

	if err := s.credits.Deduct(ctx, userID, analysisCost, ref); err != nil {
		if errors.Is(err, credit.ErrInsufficientCredits) {
			return nil, ErrInsufficientCredits
		}
		return nil, err
	}

	raw, err := s.inference.AnalyzeImage(ctx, BuildPrompt(timeframe), processed.DataURL())
	if err != nil {
		s.refund(ctx, userID, ref)
		return nil, fmt.Errorf("%w: %v", ErrInferenceFailed, err)
	}

	result, err := ParseCompletion(raw)
	if err != nil {
		s.refund(ctx, userID, ref)
		return nil, err
	}

	p := &Prediction{
		ID:             analysisID,
		UserID:         userID,
		Timeframe:      timeframe,
		Recommendation: result.Recommendation,
		Confidence:     result.Confidence,
		Reasoning:      result.Reasoning,
		Structured:     result.Structured,
		Outcome:        OutcomeOngoing,
	}
	if result.Entry != nil {
		p.Entry = decimal.NullDecimal{Decimal: *result.Entry, Valid: true}
	}
	if result.StopLoss != nil {
		p.StopLoss = decimal.NullDecimal{Decimal: *result.StopLoss, Valid: true}
	}
	if result.TakeProfit != nil {
		p.TakeProfit = decimal.NullDecimal{Decimal: *result.TakeProfit, Valid: true}
	}

	if err := s.store.Create(ctx, p); err != nil {
		s.refund(ctx, userID, ref)
		return nil, err
	}

	log.Info().
		Str("prediction_id", p.ID.String()).
		Str("user_id", userID.String()).
		Str("recommendation", p.Recommendation).
		Bool("structured", p.Structured).
		Msg("chart analysis completed")
	return p, nil
}

func (s *Service) refund(ctx context.Context, userID uuid.UUID, ref string) {
	if err := s.credits.Refund(ctx, userID, analysisCost, ref); err != nil {
		log.Error().Err(err).Str("user_id", userID.String()).Str("reference_id", ref).Msg("analysis refund failed")
	}
}

func (s *Service) History(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Prediction, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.ListByUser(ctx, userID, limit, offset)
}

func (s *Service) SetOutcome(ctx context.Context, userID, predictionID uuid.UUID, outcome string) error {
	switch Outcome(outcome) {
	case OutcomeWon, OutcomeLost, OutcomeOngoing:
	default:
		return ErrInvalidOutcome
	}
	return s.store.UpdateOutcome(ctx, predictionID, userID, Outcome(outcome))
}
