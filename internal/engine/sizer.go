package engine

import (
	"context"
	"math"

	"sentiment-trading-bot/internal/alert"
	"sentiment-trading-bot/internal/logger"
)

const msgNonPositiveSizing = "Cash or last price is non-positive. Cannot calculate position size."

// PositionSizer turns available cash into a share quantity.
type PositionSizer struct {
	alerts alert.Notifier
}

func NewPositionSizer(alerts alert.Notifier) *PositionSizer {
	return &PositionSizer{alerts: alerts}
}

// Size returns cash and lastPrice unchanged together with the quantity to
// trade: round(cash*cashAtRisk/lastPrice), floored at 1. Non-positive cash or
// price is not an error; it raises an ALERT and sizes to 0.
func (s *PositionSizer) Size(ctx context.Context, cash, lastPrice, cashAtRisk float64) (float64, float64, int) {
	if !(cash > 0) || !(lastPrice > 0) {
		notify(ctx, s.alerts, alert.LevelAlert, msgNonPositiveSizing)
		return cash, lastPrice, 0
	}
	qty := int(math.RoundToEven(cash * cashAtRisk / lastPrice))
	if qty < 1 {
		qty = 1
	}
	logger.Debug(ctx, "Position sized", "cash", cash, "last_price", lastPrice, "cash_at_risk", cashAtRisk, "qty", qty)
	return cash, lastPrice, qty
}

func notify(ctx context.Context, n alert.Notifier, level alert.Level, msg string) {
	if n == nil {
		return
	}
	if err := n.Notify(ctx, level, msg); err != nil {
		logger.ErrorWithErr(ctx, "Failed to raise alert", err, "alert_level", string(level))
	}
}
