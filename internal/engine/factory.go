package engine

import (
	"sentiment-trading-bot/internal/alert"
	"sentiment-trading-bot/internal/history"
	"sentiment-trading-bot/internal/interfaces"
	"sentiment-trading-bot/internal/store"
)

// ParamsFromConfig maps the yaml config onto strategy parameters.
func ParamsFromConfig(cfg *store.Config) Params {
	return Params{
		Symbol:        cfg.Symbol,
		CashAtRisk:    cfg.CashAtRisk,
		SleepInterval: cfg.Interval(),
		Threshold:     cfg.Signal.Threshold,
		RiskTolerance: cfg.Risk.RiskTolerance,
		ProfitMargin:  cfg.Risk.ProfitMargin,
		CapLimit:      cfg.Risk.CapLimit,
		MinTick:       cfg.Risk.MinTick,
		LookbackDays:  cfg.Signal.LookbackDays,
	}
}

func New(cfg *store.Config, brk interfaces.Broker, news interfaces.NewsProvider, model interfaces.SentimentModel, rec *history.Recorder, alerts alert.Notifier) *Strategy {
	return NewStrategy(ParamsFromConfig(cfg), brk, news, model, rec, alerts)
}
