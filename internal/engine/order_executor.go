package engine

import (
	"context"
	"fmt"
	"time"

	"sentiment-trading-bot/internal/broker/price"
	"sentiment-trading-bot/internal/history"
	"sentiment-trading-bot/internal/interfaces"
	"sentiment-trading-bot/internal/logger"
	"sentiment-trading-bot/internal/metrics"
	"sentiment-trading-bot/internal/types"
)

// OrderTag marks every bracket order placed by the decision loop.
const OrderTag = "SENTIMENT"

// OrderEmitter submits bracket orders and records them in the ledger.
type OrderEmitter struct {
	broker  interfaces.Broker
	ledger  *history.Recorder
	minTick float64
}

func NewOrderEmitter(broker interfaces.Broker, ledger *history.Recorder, minTick float64) *OrderEmitter {
	return &OrderEmitter{broker: broker, ledger: ledger, minTick: minTick}
}

// Emit submits one bracket order of qty units and, once the broker accepted
// it, appends Trade{action, price, at} to the ledger. Submission errors are
// returned unchanged in meaning and nothing is recorded.
func (oe *OrderEmitter) Emit(ctx context.Context, symbol string, qty int, action types.Action, bounds types.RiskBounds, lastPrice float64, at time.Time) (types.Trade, error) {
	order := types.BracketOrder{
		Symbol:     symbol,
		Side:       action,
		Qty:        qty,
		EntryPrice: lastPrice,
		Bounds:     price.RoundBounds(bounds, oe.minTick),
		Tag:        OrderTag,
	}
	op := logger.StartOperation(ctx, "engine.EmitOrder", "symbol", symbol, "side", string(action), "qty", qty)
	ctx = op.GetContext()

	resp, err := oe.broker.SubmitBracket(ctx, order)
	if err != nil {
		op.EndWithError(err)
		metrics.Orders.WithLabelValues(string(action), "failed").Inc()
		logger.ErrorWithErr(ctx, "Failed to submit bracket order", err,
			"symbol", symbol,
			"side", string(action),
			"qty", qty,
			"take_profit", order.Bounds.TakeProfit,
			"stop_loss", order.Bounds.StopLoss,
		)
		return types.Trade{}, fmt.Errorf("submit %s bracket for %s: %w", action, symbol, err)
	}
	metrics.Orders.WithLabelValues(string(action), "submitted").Inc()

	trade := types.Trade{
		Action:    action,
		Price:     lastPrice,
		Timestamp: at,
		Symbol:    symbol,
		Qty:       qty,
		OrderID:   resp.OrderID,
	}
	oe.ledger.RecordTrade(ctx, trade)

	logger.Trade(ctx, symbol, string(action), qty, lastPrice, resp.OrderID,
		"take_profit", order.Bounds.TakeProfit,
		"stop_loss", order.Bounds.StopLoss,
		"status", resp.Status,
	)
	op.End("order_id", resp.OrderID)
	return trade, nil
}
