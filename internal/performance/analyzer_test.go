package performance

import (
	"bytes"
	"math"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentiment-trading-bot/internal/types"
)

func trade(a types.Action, p float64) types.Trade {
	return types.Trade{Action: a, Price: p}
}

func TestComputeTwoBuys(t *testing.T) {
	m, err := Compute([]types.Trade{trade(types.ActionBuy, 100), trade(types.ActionBuy, 110)}, []float64{1000})
	require.NoError(t, err)

	require.Len(t, m.Returns, 1)
	assert.InDelta(t, 0.10, m.Returns[0], 1e-12)
	assert.Equal(t, 1.0, m.WinRate)
	assert.True(t, math.IsNaN(m.Sharpe), "a single return has no defined Sharpe ratio")
	assert.False(t, m.SharpeDefined())
	assert.Equal(t, 0.0, m.MaxDrawdown)
}

func TestComputeNoTrades(t *testing.T) {
	_, err := Compute(nil, []float64{100, 90})
	assert.ErrorIs(t, err, ErrNoTrades)
}

func TestSharpeRatio(t *testing.T) {
	returns := []float64{0.10, -0.05, 0.02}
	mean := (0.10 - 0.05 + 0.02) / 3
	var ss float64
	for _, r := range returns {
		ss += (r - mean) * (r - mean)
	}
	want := mean / math.Sqrt(ss/3) * math.Sqrt(252)

	assert.InDelta(t, want, SharpeRatio(returns), 1e-9)
	assert.True(t, math.IsNaN(SharpeRatio([]float64{0.01, 0.01})), "zero dispersion")
	assert.True(t, math.IsNaN(SharpeRatio(nil)))
}

func TestMaxDrawdown(t *testing.T) {
	assert.InDelta(t, -1.0/3.0, MaxDrawdown([]float64{100, 90, 120, 80}), 1e-9)
	assert.Equal(t, 0.0, MaxDrawdown([]float64{100}))
	assert.Equal(t, 0.0, MaxDrawdown(nil))
	assert.Equal(t, 0.0, MaxDrawdown([]float64{100, 110, 120}))
	assert.InDelta(t, -0.5, MaxDrawdown([]float64{0, 10, 5}), 1e-9)
}

func TestWinRateCountsBuySide(t *testing.T) {
	trades := []types.Trade{
		trade(types.ActionBuy, 100),
		trade(types.ActionSell, 90),
		trade(types.ActionSell, 80),
		trade(types.ActionBuy, 85),
	}
	assert.Equal(t, 0.5, WinRate(trades))
	assert.Equal(t, 0.0, WinRate(nil))
}

func TestCSVRoundTrip(t *testing.T) {
	t1 := time.Date(2024, 5, 1, 14, 30, 0, 0, time.UTC)
	t2 := time.Date(2024, 5, 2, 14, 30, 0, 123456789, time.UTC)
	ledger := []types.Trade{
		{Action: types.ActionBuy, Price: 100, Timestamp: t1},
		{Action: types.ActionSell, Price: 105, Timestamp: t2},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, ledger))
	assert.True(t, strings.HasPrefix(buf.String(), "Trade Type,Price,Timestamp\n"))

	got, err := ReadCSV(&buf)
	require.NoError(t, err)
	require.Len(t, got, 2)
	for i := range ledger {
		assert.Equal(t, ledger[i].Action, got[i].Action)
		assert.Equal(t, ledger[i].Price, got[i].Price)
		assert.True(t, ledger[i].Timestamp.Equal(got[i].Timestamp))
	}
}

func TestReadCSVRejectsBadInput(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""))
	assert.Error(t, err)

	_, err = ReadCSV(strings.NewReader("Side,Price,When\n"))
	assert.Error(t, err)

	_, err = ReadCSV(strings.NewReader("Trade Type,Price,Timestamp\nhold,1,2024-01-01T00:00:00Z\n"))
	assert.Error(t, err)

	_, err = ReadCSV(strings.NewReader("Trade Type,Price,Timestamp\nbuy,abc,2024-01-01T00:00:00Z\n"))
	assert.Error(t, err)
}

func TestExportImportFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "trades.csv")
	ledger := []types.Trade{{Action: types.ActionBuy, Price: 412.37, Timestamp: time.Unix(1700000000, 0).UTC()}}

	require.NoError(t, ExportCSV(path, ledger))
	got, err := ImportCSV(path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 412.37, got[0].Price)

	require.NoError(t, ExportCSV(path, nil))
	got, err = ImportCSV(path)
	require.NoError(t, err)
	assert.Empty(t, got)
}
