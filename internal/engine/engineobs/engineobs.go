package engineobs

import (
	"context"
	"time"

	"sentiment-trading-bot/internal/interfaces"
	"sentiment-trading-bot/internal/logger"
	"sentiment-trading-bot/internal/metrics"
	"sentiment-trading-bot/internal/trace"
	"sentiment-trading-bot/internal/types"
)

type observablePolicy struct {
	policy interfaces.TradingPolicy
}

var _ interfaces.TradingPolicy = (*observablePolicy)(nil)

func Wrap(p interfaces.TradingPolicy) interfaces.TradingPolicy {
	return &observablePolicy{
		policy: p,
	}
}

func (op *observablePolicy) Step(ctx context.Context) (*types.StepResult, error) {
	ctx, span := trace.StartSpan(ctx, "engine.Step")
	defer span.End()

	start := time.Now()

	logger.InfoSkip(ctx, 1, "Starting trading iteration")

	result, err := op.policy.Step(ctx)
	if err != nil {
		metrics.IterationFails.Inc()
		logger.ErrorWithErrSkip(ctx, 1, "Trading iteration failed", err,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}
	metrics.Iterations.Inc()

	fields := []any{
		"symbol", result.Symbol,
		"cash", result.Cash,
		"price", result.Price,
		"qty", result.Qty,
		"label", string(result.Signal.Label),
		"probability", result.Signal.Probability,
		"state_before", result.StateBefore,
		"state_after", result.StateAfter,
		"liquidated", result.Liquidated,
		"reason", result.Reason,
		"duration_ms", time.Since(start).Milliseconds(),
	}
	if result.Trade != nil {
		fields = append(fields, "order_id", result.Trade.OrderID)
	}
	logger.InfoSkip(ctx, 1, "Trading iteration completed", fields...)

	return result, nil
}
