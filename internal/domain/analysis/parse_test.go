package analysis

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseCompletionFencedJSON(t *testing.T) {
	raw := "Here is my analysis:\n```json\n" +
		`{"recommendation": "long", "entry": 64250.5, "stop_loss": 63800, "take_profit": 65500, "confidence": 72, "reasoning": "breakout retest"}` +
		"\n```\nGood luck!"

	res, err := ParseCompletion(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !res.Structured {
		t.Error("expected structured result")
	}
	if res.Recommendation != "LONG" {
		t.Errorf("recommendation = %s, want LONG", res.Recommendation)
	}
	if res.Entry == nil || !res.Entry.Equal(decimal.RequireFromString("64250.5")) {
		t.Errorf("entry = %v, want 64250.5", res.Entry)
	}
	if res.Confidence == nil || *res.Confidence != 72 {
		t.Errorf("confidence = %v, want 72", res.Confidence)
	}
	if res.Reasoning != "breakout retest" {
		t.Errorf("reasoning = %q", res.Reasoning)
	}
}

func TestParseCompletionBareJSON(t *testing.T) {
	raw := `{"recommendation": "SHORT", "reasoning": "lower highs"}`

	res, err := ParseCompletion(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !res.Structured || res.Recommendation != "SHORT" {
		t.Errorf("got %+v, want structured SHORT", res)
	}
}

func TestParseCompletionKeywordFallback(t *testing.T) {
	res, err := ParseCompletion("I would go short here, the trend is clearly down.")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if res.Structured {
		t.Error("fallback result must not be structured")
	}
	if res.Recommendation != "SHORT" {
		t.Errorf("recommendation = %s, want SHORT", res.Recommendation)
	}

	// First direction mentioned wins.
	res, err = ParseCompletion("Long is tempting but short also works.")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if res.Recommendation != "LONG" {
		t.Errorf("recommendation = %s, want LONG", res.Recommendation)
	}
}

func TestParseCompletionUnusable(t *testing.T) {
	_, err := ParseCompletion("I cannot tell anything from this image.")
	if !errors.Is(err, ErrInferenceFailed) {
		t.Fatalf("expected ErrInferenceFailed, got %v", err)
	}
}

func TestParseCompletionBadJSONFallsBack(t *testing.T) {
	raw := "```json\n{\"recommendation\": \"HOLD\"}\n```\nOverall I lean LONG on this chart."

	res, err := ParseCompletion(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if res.Structured {
		t.Error("HOLD is not a valid structured direction")
	}
	if res.Recommendation != "LONG" {
		t.Errorf("recommendation = %s, want LONG", res.Recommendation)
	}
}
