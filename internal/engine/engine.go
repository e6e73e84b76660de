// Package engine is the sentiment decision loop: sizing, signal, bracket
// orders and the no_position/long/short state machine.
package engine

import (
	"context"
	"fmt"
	"time"

	"sentiment-trading-bot/internal/alert"
	"sentiment-trading-bot/internal/history"
	"sentiment-trading-bot/internal/interfaces"
	"sentiment-trading-bot/internal/logger"
	"sentiment-trading-bot/internal/metrics"
	"sentiment-trading-bot/internal/types"
)

const (
	msgClosedOnPositive = "Position closed due to positive sentiment. Selling all holdings."
	msgClosedOnNegative = "Position closed due to negative sentiment. Selling all holdings."
	msgInsufficientCash = "Insufficient cash to execute any trades. Closing all trades..."
	msgInDebt           = "In Debt. Closing all Trades Immediately!"
)

const defaultTradeThreshold = 0.999

// Params are the tunables of one strategy instance.
type Params struct {
	Symbol        string
	CashAtRisk    float64
	SleepInterval time.Duration
	Threshold     float64
	RiskTolerance float64
	ProfitMargin  float64
	CapLimit      float64
	MinTick       float64
	LookbackDays  int
}

// Strategy owns its state, ledger and history. Step must not be called
// concurrently.
type Strategy struct {
	params  Params
	state   StrategyState
	broker  interfaces.Broker
	sizer   *PositionSizer
	signals *SignalProvider
	emitter *OrderEmitter
	history *history.Recorder
	alerts  alert.Notifier
}

var _ interfaces.TradingPolicy = (*Strategy)(nil)

func NewStrategy(p Params, broker interfaces.Broker, news interfaces.NewsProvider, model interfaces.SentimentModel, rec *history.Recorder, alerts alert.Notifier) *Strategy {
	if p.Threshold <= 0 {
		p.Threshold = defaultTradeThreshold
	}
	if rec == nil {
		rec = history.NewRecorder()
	}
	return &Strategy{
		params: p,
		state: StrategyState{
			Symbol:        p.Symbol,
			CashAtRisk:    p.CashAtRisk,
			SleepInterval: p.SleepInterval,
		},
		broker:  broker,
		sizer:   NewPositionSizer(alerts),
		signals: NewSignalProvider(news, model, p.LookbackDays),
		emitter: NewOrderEmitter(broker, rec, p.MinTick),
		history: rec,
		alerts:  alerts,
	}
}

// State returns a copy of the strategy state.
func (s *Strategy) State() StrategyState { return s.state }

func (s *Strategy) History() *history.Recorder { return s.history }

// Step runs one iteration. A collaborator failure aborts the iteration with
// no history sample. ErrInsufficientFunds (wrapped) means the run must stop.
func (s *Strategy) Step(ctx context.Context) (*types.StepResult, error) {
	symbol := s.state.Symbol
	logger.Debug(ctx, "Starting trading step", "symbol", symbol, "state", s.state.Position().String())

	rawCash, err := s.broker.Cash(ctx)
	if err != nil {
		return nil, fmt.Errorf("get cash: %w", err)
	}
	rawPrice, err := s.broker.LastPrice(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("get last price for %s: %w", symbol, err)
	}
	cash, lastPrice, qty := s.sizer.Size(ctx, rawCash, rawPrice, s.state.CashAtRisk)

	now, err := s.broker.Now(ctx)
	if err != nil {
		return nil, fmt.Errorf("get broker time: %w", err)
	}

	res := &types.StepResult{
		Symbol:      symbol,
		Time:        now,
		Cash:        cash,
		Price:       lastPrice,
		Qty:         qty,
		Signal:      types.NeutralSignal(),
		StateBefore: s.state.Position().String(),
	}
	metrics.LastPrice.Set(lastPrice)

	if cash > 0 {
		sig, err := s.signals.Signal(ctx, symbol, now)
		if err != nil {
			return nil, err
		}
		res.Signal = sig
		if err := s.decide(ctx, res); err != nil {
			return nil, err
		}
	} else {
		if err := s.breakCircuit(ctx, res); err != nil {
			return nil, err
		}
	}

	sampleCash := cash
	if c, err := s.broker.Cash(ctx); err == nil {
		sampleCash = c
	} else {
		logger.Warn(ctx, "Cash re-query failed, recording sized cash", "error", err, "cash", cash)
	}
	s.history.RecordSample(ctx, sampleCash, now)
	metrics.Cash.Set(sampleCash)

	res.StateAfter = s.state.Position().String()
	metrics.Position.Set(s.state.Position().gauge())
	logger.Debug(ctx, "Trading step completed", "symbol", symbol, "state", res.StateAfter, "reason", res.Reason)
	return res, nil
}

// intent maps a signal to an entry side when it clears the threshold.
func (s *Strategy) intent(sig types.SentimentSignal) (types.Action, bool) {
	if !(sig.Probability > s.params.Threshold) {
		return "", false
	}
	switch sig.Label {
	case types.LabelPositive:
		return types.ActionBuy, true
	case types.LabelNegative:
		return types.ActionSell, true
	}
	return "", false
}

func (s *Strategy) decide(ctx context.Context, res *types.StepResult) error {
	action, ok := s.intent(res.Signal)
	if !ok {
		res.Reason = fmt.Sprintf("hold: %s %.4f below threshold", res.Signal.Label, res.Signal.Probability)
		return nil
	}
	if res.Qty == 0 {
		res.Reason = "hold: position sized to zero"
		return nil
	}

	if s.state.Position().opposes(action) {
		if err := s.broker.SellAll(ctx); err != nil {
			return fmt.Errorf("liquidate %s position: %w", s.state.Position(), err)
		}
		res.Liquidated = true
		msg, reason := msgClosedOnPositive, "positive_sentiment"
		if action == types.ActionSell {
			msg, reason = msgClosedOnNegative, "negative_sentiment"
		}
		metrics.Liquidations.WithLabelValues(reason).Inc()
		logger.Risk(ctx, res.Symbol, "POSITION_REVERSED", "from", s.state.Position().String(), "to_side", string(action))
		notify(ctx, s.alerts, alert.LevelAlert, msg)
	}

	bounds := Bounds(res.Price, s.params.RiskTolerance, s.params.ProfitMargin, s.params.CapLimit)
	trade, err := s.emitter.Emit(ctx, res.Symbol, res.Qty, action, bounds, res.Price, res.Time)
	if err != nil {
		return err
	}
	s.state.LastTrade = action
	res.Trade = &trade
	res.Reason = fmt.Sprintf("%s: %s %.4f", action, res.Signal.Label, res.Signal.Probability)
	return nil
}

// breakCircuit liquidates everything when cash is not positive. It returns
// ErrInsufficientFunds when the liquidation fails or cash is still not
// positive afterwards.
func (s *Strategy) breakCircuit(ctx context.Context, res *types.StepResult) error {
	notify(ctx, s.alerts, alert.LevelAlert, msgInsufficientCash)
	logger.Risk(ctx, res.Symbol, "INSUFFICIENT_CASH", "cash", res.Cash)

	// This liquidation attempt is the final one: any failure ends the run.
	if err := s.broker.SellAll(ctx); err != nil {
		return fmt.Errorf("%w: liquidate with cash %.2f: %w", ErrInsufficientFunds, res.Cash, err)
	}
	res.Liquidated = true
	metrics.Liquidations.WithLabelValues("insufficient_cash").Inc()

	after, err := s.broker.Cash(ctx)
	if err != nil {
		return fmt.Errorf("%w: get cash after liquidation: %w", ErrInsufficientFunds, err)
	}
	if after <= 0 {
		notify(ctx, s.alerts, alert.LevelAlert, msgInDebt)
		logger.Risk(ctx, res.Symbol, "IN_DEBT", "cash", after)
		return fmt.Errorf("%w: cash %.2f after liquidation", ErrInsufficientFunds, after)
	}
	res.Reason = "liquidated: insufficient cash"
	return nil
}
