package interfaces

import (
	"context"

	"sentiment-trading-bot/internal/types"
)

// SentimentModel scores a batch of headlines as one aggregate signal.
type SentimentModel interface {
	Estimate(ctx context.Context, headlines []string) (types.SentimentSignal, error)
}
