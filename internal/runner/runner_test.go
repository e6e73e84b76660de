package runner

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentiment-trading-bot/internal/alert"
	"sentiment-trading-bot/internal/engine"
	"sentiment-trading-bot/internal/types"
)

type scriptedPolicy struct {
	errs  []error
	calls atomic.Int32
}

func (p *scriptedPolicy) Step(context.Context) (*types.StepResult, error) {
	i := int(p.calls.Add(1)) - 1
	if i < len(p.errs) && p.errs[i] != nil {
		return nil, p.errs[i]
	}
	return &types.StepResult{}, nil
}

func TestRunStopsAtMaxIterations(t *testing.T) {
	p := &scriptedPolicy{}
	r := New(p, time.Millisecond, nil)
	r.MaxIterations = 3

	require.NoError(t, r.Run(context.Background()))
	assert.Equal(t, int32(3), p.calls.Load())
}

func TestRunContinuesAfterCollaboratorFailure(t *testing.T) {
	p := &scriptedPolicy{errs: []error{errors.New("news timeout"), nil}}
	alerts := &alert.Recorder{}
	r := New(p, time.Millisecond, alerts)
	r.MaxIterations = 2

	require.NoError(t, r.Run(context.Background()))
	assert.Equal(t, int32(2), p.calls.Load())
	require.Len(t, alerts.Messages(alert.LevelError), 1)
	assert.Contains(t, alerts.Messages(alert.LevelError)[0], "news timeout")
}

func TestRunTerminatesOnInsufficientFunds(t *testing.T) {
	p := &scriptedPolicy{errs: []error{nil, fmt.Errorf("%w: cash -5.00 after liquidation", engine.ErrInsufficientFunds)}}
	r := New(p, time.Millisecond, nil)
	r.MaxIterations = 10

	err := r.Run(context.Background())
	assert.ErrorIs(t, err, engine.ErrInsufficientFunds)
	assert.Equal(t, int32(2), p.calls.Load())
}

// debtBroker reports negative cash and cannot liquidate.
type debtBroker struct {
	sellAll atomic.Int32
}

func (b *debtBroker) Cash(context.Context) (float64, error) { return -500, nil }
func (b *debtBroker) LastPrice(context.Context, string) (float64, error) {
	return 100, nil
}
func (b *debtBroker) Now(context.Context) (time.Time, error) { return time.Now(), nil }
func (b *debtBroker) SubmitBracket(context.Context, types.BracketOrder) (types.OrderResp, error) {
	return types.OrderResp{}, errors.New("not expected")
}
func (b *debtBroker) SellAll(context.Context) error {
	b.sellAll.Add(1)
	return errors.New("broker offline")
}
func (b *debtBroker) Account(context.Context) (types.Account, error) { return types.Account{}, nil }
func (b *debtBroker) Clock(context.Context) (types.Clock, error) { return types.Clock{}, nil }

func TestRunStopsWhenInDebtAndLiquidationFails(t *testing.T) {
	brk := &debtBroker{}
	strategy := engine.NewStrategy(engine.Params{Symbol: "SPY", CashAtRisk: 0.5}, brk, nil, nil, nil, &alert.Recorder{})
	r := New(strategy, time.Millisecond, nil)
	r.MaxIterations = 5

	err := r.Run(context.Background())
	assert.ErrorIs(t, err, engine.ErrInsufficientFunds)
	assert.Equal(t, int32(1), brk.sellAll.Load())
}

func TestRunFirstIterationIsImmediate(t *testing.T) {
	p := &scriptedPolicy{}
	r := New(p, time.Hour, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	assert.Eventually(t, func() bool { return p.calls.Load() >= 1 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("runner did not stop after cancellation")
	}
}

func TestRunRejectsNonPositiveInterval(t *testing.T) {
	assert.Error(t, New(&scriptedPolicy{}, 0, nil).Run(context.Background()))
}
