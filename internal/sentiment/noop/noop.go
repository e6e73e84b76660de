package noop

import (
	"context"

	"sentiment-trading-bot/internal/interfaces"
	"sentiment-trading-bot/internal/logger"
	"sentiment-trading-bot/internal/types"
)

// Model is used when no sentiment model is configured. It never clears a
// trading threshold, so the strategy always holds.
type Model struct{}

var _ interfaces.SentimentModel = (*Model)(nil)

func New() *Model {
	return &Model{}
}

// Estimate always returns {0, neutral}.
func (m *Model) Estimate(ctx context.Context, headlines []string) (types.SentimentSignal, error) {
	logger.Debug(ctx, "Noop sentiment model called - always neutral", "headlines", len(headlines))
	return types.NeutralSignal(), nil
}
