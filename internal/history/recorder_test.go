package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentiment-trading-bot/internal/types"
)

type memorySink struct {
	trades  []types.Trade
	samples []types.HistorySample
	err     error
}

func (m *memorySink) AppendTrade(_ context.Context, t types.Trade) error {
	m.trades = append(m.trades, t)
	return m.err
}

func (m *memorySink) AppendSample(_ context.Context, s types.HistorySample) error {
	m.samples = append(m.samples, s)
	return m.err
}

func TestRecorderKeepsOrderAndParallelSeries(t *testing.T) {
	sink := &memorySink{}
	r := NewRecorder(sink)
	ctx := context.Background()
	t0 := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

	r.RecordTrade(ctx, types.Trade{Action: types.ActionBuy, Price: 100, Timestamp: t0})
	r.RecordSample(ctx, 950, t0)
	r.RecordSample(ctx, 960, t0.Add(24*time.Hour))
	r.RecordTrade(ctx, types.Trade{Action: types.ActionSell, Price: 105, Timestamp: t0.Add(48 * time.Hour)})
	r.RecordSample(ctx, 1010, t0.Add(48*time.Hour))

	trades := r.Trades()
	require.Len(t, trades, 2)
	assert.Equal(t, types.ActionBuy, trades[0].Action)
	assert.Equal(t, types.ActionSell, trades[1].Action)

	assert.Equal(t, []float64{950, 960, 1010}, r.CashHistory())
	assert.Len(t, r.Timestamps(), len(r.CashHistory()))
	assert.Equal(t, t0.Add(24*time.Hour), r.Timestamps()[1])

	assert.Len(t, sink.trades, 2)
	assert.Len(t, sink.samples, 3)

	last, ok := r.LastTrade()
	require.True(t, ok)
	assert.Equal(t, 105.0, last.Price)
}

func TestRecorderReturnsCopies(t *testing.T) {
	r := NewRecorder()
	r.RecordTrade(context.Background(), types.Trade{Action: types.ActionBuy, Price: 1})

	snapshot := r.Trades()
	snapshot[0].Price = 999

	assert.Equal(t, 1.0, r.Trades()[0].Price)
}

func TestSinkFailureDoesNotDropEntries(t *testing.T) {
	r := NewRecorder(&memorySink{err: errors.New("disk full")})
	r.RecordTrade(context.Background(), types.Trade{Action: types.ActionBuy, Price: 1})
	r.RecordSample(context.Background(), 10, time.Now())

	assert.Len(t, r.Trades(), 1)
	assert.Len(t, r.CashHistory(), 1)
}

func TestRestore(t *testing.T) {
	r := Restore(
		[]types.Trade{{Action: types.ActionBuy, Price: 10}},
		[]types.HistorySample{{Cash: 5}, {Cash: 6}},
	)
	assert.Len(t, r.Trades(), 1)
	assert.Equal(t, []float64{5, 6}, r.CashHistory())

	_, ok := NewRecorder().LastTrade()
	assert.False(t, ok)
}
