package analysis_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"testing"

	"github.com/google/uuid"

	"github.com/lunapredict/luna-api/internal/domain/analysis"
	"github.com/lunapredict/luna-api/internal/domain/credit"
	"github.com/lunapredict/luna-api/internal/pkg/imaging"
)

type fakeLedger struct {
	deductErr error
	deducted  int64
	refunded  int64
}

func (l *fakeLedger) Deduct(_ context.Context, _ uuid.UUID, amount int64, _ string) error {
	if l.deductErr != nil {
		return l.deductErr
	}
	l.deducted += amount
	return nil
}

func (l *fakeLedger) Refund(_ context.Context, _ uuid.UUID, amount int64, _ string) error {
	l.refunded += amount
	return nil
}

type fakeInference struct {
	completion string
	err        error
	calls      int
}

func (f *fakeInference) AnalyzeImage(_ context.Context, _, _ string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.completion, nil
}

type fakePredictionStore struct {
	saved []analysis.Prediction
}

func (s *fakePredictionStore) Create(_ context.Context, p *analysis.Prediction) error {
	s.saved = append(s.saved, *p)
	return nil
}

func (s *fakePredictionStore) ListByUser(_ context.Context, _ uuid.UUID, _, _ int) ([]analysis.Prediction, error) {
	return s.saved, nil
}

func (s *fakePredictionStore) UpdateOutcome(_ context.Context, _, _ uuid.UUID, _ analysis.Outcome) error {
	return nil
}

func chartPNG(t *testing.T) *bytes.Reader {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode test image: %v", err)
	}
	return bytes.NewReader(buf.Bytes())
}

const goodCompletion = "```json\n" +
	`{"recommendation": "LONG", "entry": 100, "stop_loss": 95, "take_profit": 110, "confidence": 80, "reasoning": "uptrend"}` +
	"\n```"

func TestAnalyzeHappyPath(t *testing.T) {
	ledger := &fakeLedger{}
	inference := &fakeInference{completion: goodCompletion}
	store := &fakePredictionStore{}
	svc := analysis.NewService(store, ledger, inference, imaging.NewProcessor(imaging.DefaultConfig()))

	p, err := svc.Analyze(context.Background(), uuid.New(), chartPNG(t), "1h")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if p.Recommendation != "LONG" || !p.Structured {
		t.Errorf("got %+v, want structured LONG", p)
	}
	if p.Outcome != analysis.OutcomeOngoing {
		t.Errorf("outcome = %s, want ongoing", p.Outcome)
	}
	if ledger.deducted != 1 || ledger.refunded != 0 {
		t.Errorf("deducted=%d refunded=%d, want 1/0", ledger.deducted, ledger.refunded)
	}
	if len(store.saved) != 1 {
		t.Errorf("saved %d predictions, want 1", len(store.saved))
	}
}

func TestAnalyzeInsufficientCredits(t *testing.T) {
	ledger := &fakeLedger{deductErr: credit.ErrInsufficientCredits}
	inference := &fakeInference{completion: goodCompletion}
	svc := analysis.NewService(&fakePredictionStore{}, ledger, inference, imaging.NewProcessor(imaging.DefaultConfig()))

	_, err := svc.Analyze(context.Background(), uuid.New(), chartPNG(t), "1h")
	if !errors.Is(err, analysis.ErrInsufficientCredits) {
		t.Fatalf("expected ErrInsufficientCredits, got %v", err)
	}
	if inference.calls != 0 {
		t.Errorf("inference ran %d times before payment, want 0", inference.calls)
	}
}

func TestAnalyzeRefundsOnInferenceFailure(t *testing.T) {
	ledger := &fakeLedger{}
	inference := &fakeInference{err: errors.New("upstream timeout")}
	svc := analysis.NewService(&fakePredictionStore{}, ledger, inference, imaging.NewProcessor(imaging.DefaultConfig()))

	_, err := svc.Analyze(context.Background(), uuid.New(), chartPNG(t), "auto")
	if !errors.Is(err, analysis.ErrInferenceFailed) {
		t.Fatalf("expected ErrInferenceFailed, got %v", err)
	}
	if ledger.deducted != 1 || ledger.refunded != 1 {
		t.Errorf("deducted=%d refunded=%d, want 1/1", ledger.deducted, ledger.refunded)
	}
}

func TestAnalyzeRefundsOnUnusableCompletion(t *testing.T) {
	ledger := &fakeLedger{}
	inference := &fakeInference{completion: "no idea"}
	svc := analysis.NewService(&fakePredictionStore{}, ledger, inference, imaging.NewProcessor(imaging.DefaultConfig()))

	_, err := svc.Analyze(context.Background(), uuid.New(), chartPNG(t), "auto")
	if !errors.Is(err, analysis.ErrInferenceFailed) {
		t.Fatalf("expected ErrInferenceFailed, got %v", err)
	}
	if ledger.refunded != 1 {
		t.Errorf("refunded=%d, want 1", ledger.refunded)
	}
}

func TestAnalyzeRejectsBadImage(t *testing.T) {
	ledger := &fakeLedger{}
	svc := analysis.NewService(&fakePredictionStore{}, ledger, &fakeInference{completion: goodCompletion}, imaging.NewProcessor(imaging.DefaultConfig()))

	_, err := svc.Analyze(context.Background(), uuid.New(), bytes.NewReader([]byte("not an image")), "auto")
	if !errors.Is(err, analysis.ErrInvalidImage) {
		t.Fatalf("expected ErrInvalidImage, got %v", err)
	}
	if ledger.deducted != 0 {
		t.Errorf("deducted=%d, want 0 for invalid image", ledger.deducted)
	}
}
