// Package history keeps the trade ledger and the cash/time series of one
// strategy instance.
package history

import (
	"context"
	"sync"
	"time"

	"sentiment-trading-bot/internal/interfaces"
	"sentiment-trading-bot/internal/logger"
	"sentiment-trading-bot/internal/types"
)

// Recorder is append-only. The decision loop is its only writer; the mutex
// lets reporting read snapshots while a run is in progress.
type Recorder struct {
	mu      sync.RWMutex
	trades  []types.Trade
	samples []types.HistorySample
	sinks   []interfaces.HistorySink
}

func NewRecorder(sinks ...interfaces.HistorySink) *Recorder {
	return &Recorder{sinks: sinks}
}

// Restore builds a read-only view over persisted data, e.g. a journaled run.
func Restore(trades []types.Trade, samples []types.HistorySample) *Recorder {
	r := &Recorder{}
	r.trades = append(r.trades, trades...)
	r.samples = append(r.samples, samples...)
	return r
}

// RecordTrade appends t to the ledger. Sink failures are logged, never returned.
func (r *Recorder) RecordTrade(ctx context.Context, t types.Trade) {
	r.mu.Lock()
	r.trades = append(r.trades, t)
	r.mu.Unlock()

	for _, s := range r.sinks {
		if err := s.AppendTrade(ctx, t); err != nil {
			logger.ErrorWithErr(ctx, "Failed to persist trade", err, "action", string(t.Action), "price", t.Price)
		}
	}
}

// RecordSample appends one cash/time pair.
func (r *Recorder) RecordSample(ctx context.Context, cash float64, at time.Time) {
	sample := types.HistorySample{Cash: cash, Timestamp: at}

	r.mu.Lock()
	r.samples = append(r.samples, sample)
	r.mu.Unlock()

	for _, s := range r.sinks {
		if err := s.AppendSample(ctx, sample); err != nil {
			logger.ErrorWithErr(ctx, "Failed to persist history sample", err, "cash", cash)
		}
	}
}

func (r *Recorder) Trades() []types.Trade {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.Trade, len(r.trades))
	copy(out, r.trades)
	return out
}

// CashHistory and Timestamps are parallel and always the same length.
func (r *Recorder) CashHistory() []float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]float64, len(r.samples))
	for i, s := range r.samples {
		out[i] = s.Cash
	}
	return out
}

func (r *Recorder) Timestamps() []time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]time.Time, len(r.samples))
	for i, s := range r.samples {
		out[i] = s.Timestamp
	}
	return out
}

// LastTrade returns the most recent ledger entry.
func (r *Recorder) LastTrade() (types.Trade, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.trades) == 0 {
		return types.Trade{}, false
	}
	return r.trades[len(r.trades)-1], true
}
