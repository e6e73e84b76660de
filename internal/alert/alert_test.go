package alert

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentiment-trading-bot/internal/metrics"
	"sentiment-trading-bot/internal/tradelog"
)

func TestParseLevel(t *testing.T) {
	for _, s := range []string{"INFO", "WARNING", "ALERT", "ERROR"} {
		l, err := ParseLevel(s)
		require.NoError(t, err)
		assert.Equal(t, Level(s), l)
	}

	_, err := ParseLevel("CRITICAL")
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "CRITICAL", verr.Value)

	_, err = ParseLevel("info")
	assert.Error(t, err, "levels are case sensitive")
}

func TestNotifyRoutesToConsoleAndRunLog(t *testing.T) {
	var console, file bytes.Buffer
	a := New(&console, tradelog.New(&file))
	ctx := context.Background()

	require.NoError(t, a.Notify(ctx, LevelInfo, "Connected to broker API"))
	require.NoError(t, a.Notify(ctx, LevelWarning, "market closed"))
	require.NoError(t, a.Notify(ctx, LevelAlert, "In Debt. Closing all Trades Immediately!"))
	require.NoError(t, a.Notify(ctx, LevelError, "export failed"))

	out := console.String()
	assert.Contains(t, out, "Connected to broker API")
	assert.Contains(t, out, "WARNING: market closed")
	assert.Contains(t, out, "ALERT: In Debt. Closing all Trades Immediately!")
	assert.Contains(t, out, "ERROR: export failed")

	logged := file.String()
	assert.Contains(t, logged, " - INFO - Connected to broker API")
	assert.Contains(t, logged, " - ERROR - export failed")
	assert.NotContains(t, logged, "market closed", "warnings are console-only")
	assert.NotContains(t, logged, "In Debt", "alerts are console-only")
}

func TestEmitRejectsUnknownLevel(t *testing.T) {
	var console bytes.Buffer
	a := New(&console, nil)

	before := testutil.ToFloat64(metrics.Alerts.WithLabelValues("ALERT"))
	require.NoError(t, a.Emit(context.Background(), "ALERT", "flip"))
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.Alerts.WithLabelValues("ALERT")))

	err := a.Emit(context.Background(), "DEBUG", "nope")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.NotContains(t, console.String(), "nope")
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	require.NoError(t, r.Notify(context.Background(), LevelAlert, "a"))
	require.NoError(t, r.Notify(context.Background(), LevelInfo, "b"))
	require.Error(t, r.Notify(context.Background(), Level("LOUD"), "c"))

	assert.Equal(t, []string{"a"}, r.Messages(LevelAlert))
	assert.Len(t, r.Entries, 2)
}
