package sentimentobs

import (
	"context"

	"sentiment-trading-bot/internal/interfaces"
	"sentiment-trading-bot/internal/logger"
	"sentiment-trading-bot/internal/trace"
	"sentiment-trading-bot/internal/types"
)

// observableModel wraps a SentimentModel with observability (logging & tracing)
type observableModel struct {
	model interfaces.SentimentModel
}

// Compile-time interface check
var _ interfaces.SentimentModel = (*observableModel)(nil)

// Wrap wraps a sentiment model with observability middleware
func Wrap(model interfaces.SentimentModel) interfaces.SentimentModel {
	return &observableModel{
		model: model,
	}
}

// Estimate scores headlines with observability
func (om *observableModel) Estimate(ctx context.Context, headlines []string) (types.SentimentSignal, error) {
	ctx, span := trace.StartSpan(ctx, "sentiment.Estimate")
	defer span.End()

	logger.DebugSkip(ctx, 1, "Requesting sentiment estimate", "headlines", len(headlines))

	sig, err := om.model.Estimate(ctx, headlines)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to estimate sentiment", err, "headlines", len(headlines))
		return types.SentimentSignal{}, err
	}

	logger.InfoSkip(ctx, 1, "Sentiment estimate received",
		"headlines", len(headlines),
		"label", sig.Label,
		"probability", sig.Probability,
	)
	return sig, nil
}
