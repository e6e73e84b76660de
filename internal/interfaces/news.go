package interfaces

import (
	"context"
	"time"

	"sentiment-trading-bot/internal/types"
)

// NewsProvider returns headlines published for symbol within [start, end].
type NewsProvider interface {
	Headlines(ctx context.Context, symbol string, start, end time.Time) ([]types.Headline, error)
}
