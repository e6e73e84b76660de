// Package performance computes post-hoc metrics over a trade ledger and a cash
// history, and exports the ledger as CSV.
package performance

import (
	"errors"
	"math"

	"sentiment-trading-bot/internal/stats"
	"sentiment-trading-bot/internal/types"
)

// TradingDaysPerYear annualizes the Sharpe ratio.
const TradingDaysPerYear = 252

// ErrNoTrades is returned by Compute when the ledger is empty.
var ErrNoTrades = errors.New("no trades executed, unable to calculate performance metrics")

type Metrics struct {
	Sharpe      float64   `json:"sharpe"`
	MaxDrawdown float64   `json:"max_drawdown"`
	WinRate     float64   `json:"win_rate"`
	Returns     []float64 `json:"returns"`
	Trades      int       `json:"trades"`
}

// SharpeDefined reports whether Sharpe holds a number rather than the NaN sentinel.
func (m Metrics) SharpeDefined() bool {
	return !math.IsNaN(m.Sharpe) && !math.IsInf(m.Sharpe, 0)
}

// Compute returns ErrNoTrades for an empty ledger.
func Compute(trades []types.Trade, cash []float64) (Metrics, error) {
	if len(trades) == 0 {
		return Metrics{Sharpe: math.NaN()}, ErrNoTrades
	}
	r := Returns(trades)
	return Metrics{
		Sharpe:      SharpeRatio(r),
		MaxDrawdown: MaxDrawdown(cash),
		WinRate:     WinRate(trades),
		Returns:     r,
		Trades:      len(trades),
	}, nil
}

// Returns is the relative change between consecutive trade prices in ledger order.
func Returns(trades []types.Trade) []float64 {
	prices := make([]float64, len(trades))
	for i, t := range trades {
		prices[i] = t.Price
	}
	return stats.PctChange(prices)
}

// SharpeRatio is mean/stdev*sqrt(252) with population stdev. It is NaN with
// fewer than two returns or when the returns have no dispersion.
func SharpeRatio(returns []float64) float64 {
	if len(returns) < 2 {
		return math.NaN()
	}
	sd := stats.StdDev(returns)
	if sd == 0 || math.IsNaN(sd) {
		return math.NaN()
	}
	return stats.Mean(returns) / sd * math.Sqrt(TradingDaysPerYear)
}

// MaxDrawdown is the most negative (cash_t - peak_t)/peak_t over the history.
// A history of zero or one sample yields 0. Points whose running peak is not
// positive are skipped since the ratio is undefined there.
func MaxDrawdown(cash []float64) float64 {
	if len(cash) <= 1 {
		return 0
	}
	peaks := stats.RunningMax(cash)
	worst := 0.0
	for i, c := range cash {
		if peaks[i] <= 0 {
			continue
		}
		if d := (c - peaks[i]) / peaks[i]; d < worst {
			worst = d
		}
	}
	return worst
}

// WinRate is the fraction of ledger entries on the buy side. It does not
// measure profitability.
func WinRate(trades []types.Trade) float64 {
	if len(trades) == 0 {
		return 0
	}
	buys := 0
	for _, t := range trades {
		if t.Action == types.ActionBuy {
			buys++
		}
	}
	return float64(buys) / float64(len(trades))
}
