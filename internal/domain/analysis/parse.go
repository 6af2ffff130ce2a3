package analysis

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Result is a parsed model completion. Structured is false when the model
// ignored the JSON contract and only a direction could be salvaged.
type Result struct {
	Recommendation string           `json:"recommendation"`
	Entry          *decimal.Decimal `json:"entry"`
	StopLoss       *decimal.Decimal `json:"stop_loss"`
	TakeProfit     *decimal.Decimal `json:"take_profit"`
	Confidence     *int             `json:"confidence"`
	Reasoning      string           `json:"reasoning"`
	Structured     bool             `json:"-"`
}

var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// ParseCompletion extracts a trade recommendation from raw model output.
// It first tries the fenced JSON contract, then any bare JSON object, and
// finally falls back to scanning for a LONG or SHORT keyword.
func ParseCompletion(raw string) (Result, error) {
	if candidate := extractJSON(raw); candidate != "" {
		var res Result
		if err := json.Unmarshal([]byte(candidate), &res); err == nil {
			res.Recommendation = strings.ToUpper(strings.TrimSpace(res.Recommendation))
			if res.Recommendation == "LONG" || res.Recommendation == "SHORT" {
				res.Structured = true
				return res, nil
			}
		}
	}

	// Keyword fallback. The first direction mentioned wins.
	upper := strings.ToUpper(raw)
	longIdx := strings.Index(upper, "LONG")
	shortIdx := strings.Index(upper, "SHORT")
	switch {
	case longIdx >= 0 && (shortIdx < 0 || longIdx < shortIdx):
		return Result{Recommendation: "LONG", Reasoning: raw}, nil
	case shortIdx >= 0:
		return Result{Recommendation: "SHORT", Reasoning: raw}, nil
	}

	return Result{}, ErrInferenceFailed
}

func extractJSON(raw string) string {
	if m := fencedJSON.FindStringSubmatch(raw); m != nil {
		return m[1]
	}
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return ""
}
