package generator

import "strings"

// modelRates holds USD pricing per 1K tokens. Keyed by model name prefix so
// dated model aliases resolve to the same rate.
type modelRates struct {
	inputPer1K  float64
	outputPer1K float64
}

var rates = map[string]modelRates{
	"claude-3-5-haiku":  {inputPer1K: 0.0008, outputPer1K: 0.004},
	"claude-3-7-sonnet": {inputPer1K: 0.003, outputPer1K: 0.015},
	"claude-sonnet-4":   {inputPer1K: 0.003, outputPer1K: 0.015},
	"claude-opus-4":     {inputPer1K: 0.015, outputPer1K: 0.075},
}

// defaultRates is applied to unknown models so cost accounting never silently
// records zero.
var defaultRates = modelRates{inputPer1K: 0.003, outputPer1K: 0.015}

// Cost computes the USD cost of a call for the given model.
func Cost(modelName string, u Usage) float64 {
	r := defaultRates
	for prefix, known := range rates {
		if strings.HasPrefix(modelName, prefix) {
			r = known
			break
		}
	}
	return float64(u.InputTokens)/1000*r.inputPer1K + float64(u.OutputTokens)/1000*r.outputPer1K
}

// estimateTokens approximates token usage from text length (4 chars per token).
func estimateTokens(s string) int {
	n := len(s) / 4
	if n == 0 && len(s) > 0 {
		return 1
	}
	return n
}
