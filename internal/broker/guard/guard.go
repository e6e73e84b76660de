// Package guard applies the caller's retry and timeout policy to a broker.
package guard

import (
	"context"
	"time"

	"sentiment-trading-bot/internal/interfaces"
	"sentiment-trading-bot/internal/logger"
	"sentiment-trading-bot/internal/metrics"
	"sentiment-trading-bot/internal/store"
	"sentiment-trading-bot/internal/types"
)

// Policy bounds every broker call. Reads are retried with linear backoff;
// order submission and liquidation are not idempotent and only get the timeout.
type Policy struct {
	MaxRetries int
	Backoff    time.Duration
	Timeout    time.Duration
}

// PolicyFrom maps the broker_policy section of the bot config.
func PolicyFrom(cfg *store.Config) Policy {
	return Policy{
		MaxRetries: cfg.BrokerPolicy.MaxRetries,
		Backoff:    time.Duration(cfg.BrokerPolicy.BackoffMillis) * time.Millisecond,
		Timeout:    time.Duration(cfg.BrokerPolicy.TimeoutSeconds) * time.Second,
	}
}

// SafeBroker wraps a broker with the policy and counts calls by outcome.
type SafeBroker struct {
	inner  interfaces.Broker
	policy Policy
}

var _ interfaces.Broker = (*SafeBroker)(nil)

func New(inner interfaces.Broker, p Policy) *SafeBroker {
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	return &SafeBroker{inner: inner, policy: p}
}

func (s *SafeBroker) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.policy.Timeout > 0 {
		return context.WithTimeout(ctx, s.policy.Timeout)
	}
	return context.WithCancel(ctx)
}

func read[T any](ctx context.Context, s *SafeBroker, op string, call func(context.Context) (T, error)) (T, error) {
	var (
		v   T
		err error
	)
	for i := 0; i <= s.policy.MaxRetries; i++ {
		callCtx, cancel := s.withTimeout(ctx)
		v, err = call(callCtx)
		cancel()
		if err == nil {
			metrics.BrokerCalls.WithLabelValues(op, "ok").Inc()
			return v, nil
		}
		if ctx.Err() != nil || i == s.policy.MaxRetries {
			break
		}

		metrics.BrokerCalls.WithLabelValues(op, "retry").Inc()
		wait := time.Duration(i+1) * s.policy.Backoff
		logger.Warn(ctx, "Broker call failed, retrying", "op", op, "attempt", i+1, "error", err, "wait", wait)
		select {
		case <-ctx.Done():
			metrics.BrokerCalls.WithLabelValues(op, "error").Inc()
			return v, ctx.Err()
		case <-time.After(wait):
		}
	}
	metrics.BrokerCalls.WithLabelValues(op, "error").Inc()
	return v, err
}

func (s *SafeBroker) once(ctx context.Context, op string, call func(context.Context) error) error {
	callCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := call(callCtx); err != nil {
		metrics.BrokerCalls.WithLabelValues(op, "error").Inc()
		return err
	}
	metrics.BrokerCalls.WithLabelValues(op, "ok").Inc()
	return nil
}

func (s *SafeBroker) Cash(ctx context.Context) (float64, error) {
	return read(ctx, s, "cash", s.inner.Cash)
}

func (s *SafeBroker) LastPrice(ctx context.Context, symbol string) (float64, error) {
	return read(ctx, s, "last_price", func(ctx context.Context) (float64, error) {
		return s.inner.LastPrice(ctx, symbol)
	})
}

func (s *SafeBroker) Now(ctx context.Context) (time.Time, error) {
	return read(ctx, s, "now", s.inner.Now)
}

func (s *SafeBroker) Account(ctx context.Context) (types.Account, error) {
	return read(ctx, s, "account", s.inner.Account)
}

func (s *SafeBroker) Clock(ctx context.Context) (types.Clock, error) {
	return read(ctx, s, "clock", s.inner.Clock)
}

func (s *SafeBroker) SubmitBracket(ctx context.Context, order types.BracketOrder) (types.OrderResp, error) {
	var resp types.OrderResp
	err := s.once(ctx, "submit_bracket", func(ctx context.Context) error {
		var err error
		resp, err = s.inner.SubmitBracket(ctx, order)
		return err
	})
	return resp, err
}

func (s *SafeBroker) SellAll(ctx context.Context) error {
	return s.once(ctx, "sell_all", s.inner.SellAll)
}
