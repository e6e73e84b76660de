package sentiment

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentiment-trading-bot/internal/types"
)

func TestSoftmaxSumsToOne(t *testing.T) {
	p := Softmax([]float64{1000, 999, 998})
	var sum float64
	for _, v := range p {
		assert.False(t, math.IsNaN(v))
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 1e-12)
	assert.Greater(t, p[0], p[1])
	assert.Nil(t, Softmax(nil))
}

func TestFromLogitsSumsAcrossHeadlines(t *testing.T) {
	// Individually the first row is positive, but the batch is negative overall.
	sig, err := FromLogits([][]float64{
		{2.0, 0.5, 0.1},
		{-1.0, 3.0, 0.2},
		{0.0, 1.0, 0.0},
	})
	require.NoError(t, err)
	assert.Equal(t, types.LabelNegative, sig.Label)

	want := Softmax([]float64{1.0, 4.5, 0.3})[1]
	assert.InDelta(t, want, sig.Probability, 1e-12)
}

func TestFromLogitsEmptyIsNeutral(t *testing.T) {
	sig, err := FromLogits(nil)
	require.NoError(t, err)
	assert.Equal(t, types.NeutralSignal(), sig)
}

func TestFromLogitsRejectsWrongWidth(t *testing.T) {
	_, err := FromLogits([][]float64{{1, 2}})
	assert.Error(t, err)
}

func TestParseLabel(t *testing.T) {
	assert.Equal(t, types.LabelPositive, ParseLabel(" Positive "))
	assert.Equal(t, types.LabelNegative, ParseLabel("NEGATIVE"))
	assert.Equal(t, types.LabelNeutral, ParseLabel("bullish"))
	assert.Equal(t, types.LabelNeutral, ParseLabel(""))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.0, Clamp(-0.2))
	assert.Equal(t, 1.0, Clamp(1.7))
	assert.Equal(t, 0.0, Clamp(math.NaN()))
	assert.Equal(t, 0.42, Clamp(0.42))
}
