package analysis

import "fmt"

// Timeframes accepted for analysis. "auto" lets the model infer the
// chart's timeframe from its axis labels.
var Timeframes = []string{"auto", "1m", "5m", "15m", "30m", "1h", "4h", "1d", "1w", "1M"}

func ValidTimeframe(tf string) bool {
	for _, t := range Timeframes {
		if t == tf {
			return true
		}
	}
	return false
}

const promptFormat = `Respond ONLY with a JSON object in a fenced code block, no prose before or after:

` + "```json" + `
{
  "recommendation": "LONG or SHORT",
  "entry": 0.0,
  "stop_loss": 0.0,
  "take_profit": 0.0,
  "confidence": 0,
  "reasoning": "short explanation"
}
` + "```" + `

confidence is an integer from 0 to 100. Price levels must be read from the chart.`

// BuildPrompt renders the analysis prompt for a timeframe.
func BuildPrompt(timeframe string) string {
	if timeframe == "" || timeframe == "auto" {
		return "You are an experienced technical analyst. Study this trading chart, " +
			"determine its timeframe from the axis labels, and give one actionable trade recommendation.\n\n" +
			promptFormat
	}
	return fmt.Sprintf("You are an experienced technical analyst. Study this %s trading chart "+
		"and give one actionable trade recommendation for that timeframe.\n\n%s", timeframe, promptFormat)
}
