// Package report renders run summaries. Every operation returns a Result so a
// reporting failure is visible to the caller without aborting a run.
package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"

	"sentiment-trading-bot/internal/engine"
	"sentiment-trading-bot/internal/history"
	"sentiment-trading-bot/internal/interfaces"
	"sentiment-trading-bot/internal/logger"
	"sentiment-trading-bot/internal/performance"
	"sentiment-trading-bot/internal/tradelog"
	"sentiment-trading-bot/internal/types"
)

const msgNoTrades = "No trades executed, unable to calculate performance metrics."

// Result is either a value or the reason the value is unavailable.
type Result[T any] struct {
	Value T
	Err   error
}

func (r Result[T]) OK() bool { return r.Err == nil }

func ok[T any](v T) Result[T] { return Result[T]{Value: v} }

var titleStyle = lipgloss.NewStyle().Bold(true).Underline(true)

type Reporter struct {
	out    io.Writer
	runlog *tradelog.RunLog
}

// New prints to out (stdout when nil) and mirrors logged lines to runlog.
func New(out io.Writer, runlog *tradelog.RunLog) *Reporter {
	if out == nil {
		out = os.Stdout
	}
	return &Reporter{out: out, runlog: runlog}
}

// log writes msg to the run log at INFO and echoes it to the console.
func (r *Reporter) log(msg string) {
	r.runlog.Info(msg)
	r.print(msg)
}

func (r *Reporter) print(msg string) {
	_, _ = fmt.Fprintln(r.out, msg)
}

func (r *Reporter) title(s string) {
	r.print(titleStyle.Render(s))
}

func fail[T any](ctx context.Context, r *Reporter, op string, err error) Result[T] {
	logger.ErrorWithErrSkip(ctx, 1, "Report failed", err, "operation", op)
	r.runlog.Error(fmt.Sprintf("Error %s: %v", op, err))
	r.print(fmt.Sprintf("Error %s: %v", op, err))
	return Result[T]{Err: fmt.Errorf("%s: %w", op, err)}
}

func formatMetric(v float64) string {
	if math.IsNaN(v) {
		return "nan"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// GetResults computes the performance metrics of rec and writes them to the
// run log. An empty ledger yields performance.ErrNoTrades.
func (r *Reporter) GetResults(ctx context.Context, rec *history.Recorder) Result[performance.Metrics] {
	m, err := performance.Compute(rec.Trades(), rec.CashHistory())
	if errors.Is(err, performance.ErrNoTrades) {
		r.log(msgNoTrades)
		return Result[performance.Metrics]{Value: m, Err: err}
	}
	if err != nil {
		return fail[performance.Metrics](ctx, r, "calculating performance metrics", err)
	}
	r.log("Sharpe Ratio: " + formatMetric(m.Sharpe))
	r.log("Max Drawdown: " + formatMetric(m.MaxDrawdown))
	r.log("Win Rate: " + formatMetric(m.WinRate))
	if ts := rec.Timestamps(); len(ts) > 0 {
		r.print(fmt.Sprintf("Period: %s to %s (%d iterations)",
			ts[0].Format(time.RFC3339), ts[len(ts)-1].Format(time.RFC3339), len(ts)))
	}
	if last, ok := rec.LastTrade(); ok {
		r.print(fmt.Sprintf("Last trade: %s %d @ %.2f", last.Action, last.Qty, last.Price))
	}
	logger.Info(ctx, "Performance metrics computed",
		"sharpe", m.Sharpe, "max_drawdown", m.MaxDrawdown, "win_rate", m.WinRate, "trades", m.Trades)
	return ok(m)
}

// ExportTradeHistory writes the ledger as CSV to path and returns the path.
func (r *Reporter) ExportTradeHistory(ctx context.Context, trades []types.Trade, path string) Result[string] {
	if err := performance.ExportCSV(path, trades); err != nil {
		return fail[string](ctx, r, "exporting trade history", err)
	}
	r.log(fmt.Sprintf("Trade history exported to %s (%d trades)", path, len(trades)))
	return ok(path)
}

// PrintTradeHistory prints one line per trade and returns the count.
func (r *Reporter) PrintTradeHistory(ctx context.Context, trades []types.Trade) Result[int] {
	if len(trades) == 0 {
		r.print("No trades have been made yet.")
		return ok(0)
	}
	r.title("Trade History")
	for _, t := range trades {
		r.print(fmt.Sprintf("Trade: %s, Price: %s, Time: %s", t.Action, formatMetric(t.Price), t.Timestamp.Format("2006-01-02 15:04:05")))
	}
	return ok(len(trades))
}

// StrategyParameters prints the state of a strategy instance.
func (r *Reporter) StrategyParameters(ctx context.Context, st engine.StrategyState, mode string) Result[engine.StrategyState] {
	debug := "Disabled"
	if logger.IsDebugEnabled() {
		debug = "Enabled"
	}
	r.title("Strategy Parameters")
	r.print("Symbol: " + st.Symbol)
	r.print("Cash at Risk: " + formatMetric(st.CashAtRisk))
	r.print("Sleeptime: " + st.SleepInterval.String())
	r.print("Last Trade: " + st.LastTradeName())
	r.print("Mode: " + mode)
	r.print("Debug Mode: " + debug)
	return ok(st)
}

type Snapshot struct {
	Cash      float64 `json:"cash"`
	LastPrice float64 `json:"last_price"`
	Qty       int     `json:"qty"`
}

// CashAndPosition logs the current cash, last price and the position size
// the next iteration would use.
func (r *Reporter) CashAndPosition(ctx context.Context, brk interfaces.Broker, st engine.StrategyState) Result[Snapshot] {
	cash, err := brk.Cash(ctx)
	if err != nil {
		return fail[Snapshot](ctx, r, "logging cash and position details", err)
	}
	last, err := brk.LastPrice(ctx, st.Symbol)
	if err != nil {
		return fail[Snapshot](ctx, r, "logging cash and position details", err)
	}
	_, _, qty := engine.NewPositionSizer(nil).Size(ctx, cash, last, st.CashAtRisk)

	r.log("Current Cash: " + formatMetric(cash))
	r.log(fmt.Sprintf("Last Price of %s: %s", st.Symbol, formatMetric(last)))
	r.log(fmt.Sprintf("Position Size: %d", qty))
	return ok(Snapshot{Cash: cash, LastPrice: last, Qty: qty})
}

// SentimentSummary displays a resolved signal.
func (r *Reporter) SentimentSummary(ctx context.Context, symbol string, sig types.SentimentSignal, err error) Result[types.SentimentSignal] {
	if err != nil {
		return fail[types.SentimentSignal](ctx, r, "displaying sentiment analysis", err)
	}
	r.title("Sentiment " + symbol)
	r.print("Sentiment: " + string(sig.Label))
	r.print("Probability: " + formatMetric(sig.Probability))
	return ok(sig)
}

// AccountStatus checks broker connectivity.
func (r *Reporter) AccountStatus(ctx context.Context, brk interfaces.Broker) Result[types.Account] {
	acct, err := brk.Account(ctx)
	if err != nil {
		return fail[types.Account](ctx, r, "connecting to broker API", err)
	}
	r.log("Connected to broker API")
	r.log("Account status: " + acct.Status)
	return ok(acct)
}

// MarketClock reports whether the market is open.
func (r *Reporter) MarketClock(ctx context.Context, brk interfaces.Broker) Result[types.Clock] {
	clk, err := brk.Clock(ctx)
	if err != nil {
		return fail[types.Clock](ctx, r, "checking trading status", err)
	}
	if clk.IsOpen {
		r.log("Trading is currently open")
	} else {
		msg := "Trading is currently closed"
		if !clk.NextOpen.IsZero() {
			msg += ", next open " + clk.NextOpen.Format("2006-01-02 15:04 MST")
		}
		r.log(msg)
	}
	return ok(clk)
}
