package interfaces

import (
	"context"

	"sentiment-trading-bot/internal/types"
)

// TradingPolicy advances the strategy by one iteration. It is driven by an
// external scheduler.
type TradingPolicy interface {
	Step(ctx context.Context) (*types.StepResult, error)
}
