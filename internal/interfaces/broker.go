package interfaces

import (
	"context"
	"time"

	"sentiment-trading-bot/internal/types"
)

// Broker is the brokerage and market-data collaborator of the decision loop.
type Broker interface {
	Cash(ctx context.Context) (float64, error)
	LastPrice(ctx context.Context, symbol string) (float64, error)
	Now(ctx context.Context) (time.Time, error)
	// SubmitBracket creates and submits an entry order with its exit legs.
	SubmitBracket(ctx context.Context, order types.BracketOrder) (types.OrderResp, error)
	// SellAll closes every open position and returns once the broker acknowledged it.
	SellAll(ctx context.Context) error
	Account(ctx context.Context) (types.Account, error)
	Clock(ctx context.Context) (types.Clock, error)
}
