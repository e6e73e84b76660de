package sentiment

import (
	"fmt"
	"math"
	"strings"

	"sentiment-trading-bot/internal/types"
)

// Labels is the output order of the classifier head.
var Labels = []types.SentimentLabel{types.LabelPositive, types.LabelNegative, types.LabelNeutral}

// Softmax is numerically stable for large logits.
func Softmax(x []float64) []float64 {
	if len(x) == 0 {
		return nil
	}
	maxV := math.Inf(-1)
	for _, v := range x {
		maxV = math.Max(maxV, v)
	}
	out := make([]float64, len(x))
	var sum float64
	for i, v := range x {
		out[i] = math.Exp(v - maxV)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// FromLogits aggregates per-headline logits into one signal: the logits are
// summed across headlines, passed through softmax, and the dominant class wins.
func FromLogits(rows [][]float64) (types.SentimentSignal, error) {
	if len(rows) == 0 {
		return types.NeutralSignal(), nil
	}
	sum := make([]float64, len(Labels))
	for i, row := range rows {
		if len(row) != len(Labels) {
			return types.SentimentSignal{}, fmt.Errorf("logits row %d has %d classes, want %d", i, len(row), len(Labels))
		}
		for j, v := range row {
			sum[j] += v
		}
	}

	probs := Softmax(sum)
	best := 0
	for i, p := range probs {
		if p > probs[best] {
			best = i
		}
	}
	return types.SentimentSignal{Probability: probs[best], Label: Labels[best]}, nil
}

// ParseLabel maps free text to a label. Anything unrecognized is neutral.
func ParseLabel(s string) types.SentimentLabel {
	switch types.SentimentLabel(strings.ToLower(strings.TrimSpace(s))) {
	case types.LabelPositive:
		return types.LabelPositive
	case types.LabelNegative:
		return types.LabelNegative
	}
	return types.LabelNeutral
}

// Clamp bounds a probability to [0, 1]. NaN becomes 0.
func Clamp(p float64) float64 {
	if math.IsNaN(p) || p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
