package brokerobs

import (
	"context"
	"time"

	"sentiment-trading-bot/internal/interfaces"
	"sentiment-trading-bot/internal/logger"
	"sentiment-trading-bot/internal/trace"
	"sentiment-trading-bot/internal/types"
)

// observableBroker wraps a Broker with observability (logging & tracing)
type observableBroker struct {
	broker interfaces.Broker
}

// Compile-time interface check
var _ interfaces.Broker = (*observableBroker)(nil)

// Wrap wraps a broker with observability middleware
func Wrap(broker interfaces.Broker) interfaces.Broker {
	return &observableBroker{
		broker: broker,
	}
}

// Cash returns available cash with observability
func (ob *observableBroker) Cash(ctx context.Context) (float64, error) {
	ctx, span := trace.StartSpan(ctx, "broker.Cash")
	defer span.End()

	cash, err := ob.broker.Cash(ctx)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch cash", err)
		return 0, err
	}

	logger.DebugSkip(ctx, 1, "Cash fetched successfully", "cash", cash)
	return cash, nil
}

// LastPrice returns the last traded price with observability
func (ob *observableBroker) LastPrice(ctx context.Context, symbol string) (float64, error) {
	ctx, span := trace.StartSpan(ctx, "broker.LastPrice")
	defer span.End()

	logger.DebugSkip(ctx, 1, "Fetching last price", "symbol", symbol)

	price, err := ob.broker.LastPrice(ctx, symbol)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch last price", err, "symbol", symbol)
		return 0, err
	}

	logger.DebugSkip(ctx, 1, "Last price fetched successfully", "symbol", symbol, "price", price)
	return price, nil
}

func (ob *observableBroker) Now(ctx context.Context) (time.Time, error) {
	ctx, span := trace.StartSpan(ctx, "broker.Now")
	defer span.End()

	now, err := ob.broker.Now(ctx)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch broker time", err)
	}
	return now, err
}

// SubmitBracket places a bracket order with observability
func (ob *observableBroker) SubmitBracket(ctx context.Context, order types.BracketOrder) (types.OrderResp, error) {
	ctx, span := trace.StartSpan(ctx, "broker.SubmitBracket")
	defer span.End()

	logger.InfoSkip(ctx, 1, "Placing bracket order",
		"symbol", order.Symbol,
		"side", order.Side,
		"qty", order.Qty,
		"take_profit", order.Bounds.TakeProfit,
		"stop_loss", order.Bounds.StopLoss,
		"tag", order.Tag,
	)

	resp, err := ob.broker.SubmitBracket(ctx, order)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to place bracket order", err,
			"symbol", order.Symbol,
			"side", order.Side,
			"qty", order.Qty,
		)
		return types.OrderResp{}, err
	}

	logger.InfoSkip(ctx, 1, "Bracket order placed successfully",
		"symbol", order.Symbol,
		"order_id", resp.OrderID,
		"status", resp.Status,
	)
	return resp, nil
}

// SellAll liquidates every position with observability
func (ob *observableBroker) SellAll(ctx context.Context) error {
	ctx, span := trace.StartSpan(ctx, "broker.SellAll")
	defer span.End()

	logger.InfoSkip(ctx, 1, "Closing all positions")

	if err := ob.broker.SellAll(ctx); err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to close positions", err)
		return err
	}

	logger.InfoSkip(ctx, 1, "All positions closed")
	return nil
}

func (ob *observableBroker) Account(ctx context.Context) (types.Account, error) {
	ctx, span := trace.StartSpan(ctx, "broker.Account")
	defer span.End()

	acct, err := ob.broker.Account(ctx)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch account", err)
		return types.Account{}, err
	}

	logger.DebugSkip(ctx, 1, "Account fetched successfully", "account_id", acct.ID, "status", acct.Status)
	return acct, nil
}

func (ob *observableBroker) Clock(ctx context.Context) (types.Clock, error) {
	ctx, span := trace.StartSpan(ctx, "broker.Clock")
	defer span.End()

	clock, err := ob.broker.Clock(ctx)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch market clock", err)
		return types.Clock{}, err
	}

	logger.DebugSkip(ctx, 1, "Market clock fetched successfully", "is_open", clock.IsOpen)
	return clock, nil
}
