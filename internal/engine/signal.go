package engine

import (
	"context"
	"fmt"
	"time"

	"sentiment-trading-bot/internal/interfaces"
	"sentiment-trading-bot/internal/logger"
	"sentiment-trading-bot/internal/metrics"
	"sentiment-trading-bot/internal/types"
)

// SignalProvider resolves the aggregate sentiment of a symbol's recent headlines.
type SignalProvider struct {
	news         interfaces.NewsProvider
	model        interfaces.SentimentModel
	lookbackDays int
}

func NewSignalProvider(news interfaces.NewsProvider, model interfaces.SentimentModel, lookbackDays int) *SignalProvider {
	if lookbackDays <= 0 {
		lookbackDays = 3
	}
	return &SignalProvider{news: news, model: model, lookbackDays: lookbackDays}
}

// Signal scores the headlines published in [asOf-lookback, asOf]. With no
// headlines it returns {0, neutral} without consulting the model. Collaborator
// failures are returned to the caller.
func (p *SignalProvider) Signal(ctx context.Context, symbol string, asOf time.Time) (types.SentimentSignal, error) {
	start := asOf.AddDate(0, 0, -p.lookbackDays)
	op := logger.StartOperation(ctx, "engine.Signal", "symbol", symbol)
	ctx = op.GetContext()

	headlines, err := p.news.Headlines(ctx, symbol, start, asOf)
	if err != nil {
		err = fmt.Errorf("fetch news for %s: %w", symbol, err)
		op.EndWithError(err)
		return types.SentimentSignal{}, err
	}

	sig := types.NeutralSignal()
	if len(headlines) > 0 {
		texts := make([]string, len(headlines))
		for i, h := range headlines {
			texts[i] = h.Headline
		}
		sig, err = p.model.Estimate(ctx, texts)
		if err != nil {
			err = fmt.Errorf("estimate sentiment for %s: %w", symbol, err)
			op.EndWithError(err)
			return types.SentimentSignal{}, err
		}
	}

	logger.Signal(ctx, symbol, string(sig.Label), sig.Probability, len(headlines),
		"window_start", start, "window_end", asOf)
	metrics.Signal.Reset()
	metrics.Signal.WithLabelValues(string(sig.Label)).Set(sig.Probability)
	op.End("label", string(sig.Label), "headlines", len(headlines))
	return sig, nil
}
