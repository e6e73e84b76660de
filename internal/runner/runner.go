// Package runner drives a TradingPolicy on a fixed interval.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sentiment-trading-bot/internal/alert"
	"sentiment-trading-bot/internal/engine"
	"sentiment-trading-bot/internal/interfaces"
	"sentiment-trading-bot/internal/logger"
)

type Runner struct {
	policy   interfaces.TradingPolicy
	interval time.Duration
	alerts   alert.Notifier

	// MaxIterations stops the loop after that many iterations; 0 runs until
	// the context is cancelled.
	MaxIterations int
}

func New(policy interfaces.TradingPolicy, interval time.Duration, alerts alert.Notifier) *Runner {
	return &Runner{policy: policy, interval: interval, alerts: alerts}
}

// Run executes the first iteration immediately and then one per interval.
// Failed iterations are reported and the loop continues. It returns nil on
// cancellation or when MaxIterations is reached, and the error when the
// policy reports engine.ErrInsufficientFunds.
func (r *Runner) Run(ctx context.Context) error {
	if r.interval <= 0 {
		return fmt.Errorf("invalid interval %s: must be positive", r.interval)
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for n := 1; ; n++ {
		if err := r.iterate(ctx, n); err != nil {
			return err
		}
		if r.MaxIterations > 0 && n >= r.MaxIterations {
			logger.Info(ctx, "Iteration limit reached", "iterations", n)
			return nil
		}

		select {
		case <-ctx.Done():
			logger.Info(ctx, "Runner stopped", "iterations", n)
			return nil
		case <-ticker.C:
		}
	}
}

func (r *Runner) iterate(ctx context.Context, n int) error {
	_, err := r.policy.Step(ctx)
	if err == nil {
		return nil
	}
	if errors.Is(err, engine.ErrInsufficientFunds) {
		logger.ErrorWithErr(ctx, "Run terminated by circuit breaker", err, "iteration", n)
		return err
	}
	if ctx.Err() != nil {
		return nil
	}
	if r.alerts != nil {
		if aerr := r.alerts.Notify(ctx, alert.LevelError, fmt.Sprintf("Trading iteration %d failed: %v", n, err)); aerr != nil {
			logger.ErrorWithErr(ctx, "Failed to raise alert", aerr)
		}
	}
	return nil
}
