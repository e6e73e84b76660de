// Package alert renders operator notices on the console and mirrors INFO and
// ERROR notices into the run log.
package alert

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"

	"sentiment-trading-bot/internal/logger"
	"sentiment-trading-bot/internal/metrics"
	"sentiment-trading-bot/internal/tradelog"
)

type Level string

const (
	LevelInfo    Level = "INFO"
	LevelWarning Level = "WARNING"
	LevelAlert   Level = "ALERT"
	LevelError   Level = "ERROR"
)

// ValidationError reports an alert level outside INFO, WARNING, ALERT, ERROR.
type ValidationError struct {
	Value string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid alert level %q: must be one of INFO, WARNING, ALERT, ERROR", e.Value)
}

// ParseLevel is case sensitive, like the levels written to the run log.
func ParseLevel(s string) (Level, error) {
	switch l := Level(s); l {
	case LevelInfo, LevelWarning, LevelAlert, LevelError:
		return l, nil
	}
	return "", &ValidationError{Value: s}
}

// Notifier is what the decision loop needs from an alerter.
type Notifier interface {
	Notify(ctx context.Context, level Level, msg string) error
}

var (
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	alertStyle   = lipgloss.NewStyle().Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
)

type Alerter struct {
	out    io.Writer
	runlog *tradelog.RunLog
}

var _ Notifier = (*Alerter)(nil)

// New writes to out (stdout when nil) and to runlog (may be nil).
func New(out io.Writer, runlog *tradelog.RunLog) *Alerter {
	if out == nil {
		out = os.Stdout
	}
	return &Alerter{out: out, runlog: runlog}
}

// Emit validates a free-form level before notifying.
func (a *Alerter) Emit(ctx context.Context, level, msg string) error {
	l, err := ParseLevel(level)
	if err != nil {
		return err
	}
	return a.Notify(ctx, l, msg)
}

// Notify only fails on an invalid level. Console write errors are logged and dropped.
func (a *Alerter) Notify(ctx context.Context, level Level, msg string) error {
	if _, err := ParseLevel(string(level)); err != nil {
		return err
	}
	metrics.Alerts.WithLabelValues(string(level)).Inc()

	var line string
	switch level {
	case LevelInfo:
		line = infoStyle.Render(msg)
		a.runlog.Info(msg)
		logger.InfoSkip(ctx, 1, msg, "alert_level", string(level))
	case LevelWarning:
		line = warningStyle.Render("WARNING: " + msg)
		logger.WarnSkip(ctx, 1, msg, "alert_level", string(level))
	case LevelAlert:
		line = alertStyle.Render("ALERT: " + msg)
		logger.WarnSkip(ctx, 1, msg, "alert_level", string(level))
	case LevelError:
		line = errorStyle.Render("ERROR: " + msg)
		a.runlog.Error(msg)
		logger.ErrorSkip(ctx, 1, msg, "alert_level", string(level))
	}

	if _, err := fmt.Fprintln(a.out, line); err != nil {
		logger.Warn(ctx, "Failed to write alert to console", "error", err, "alert_level", string(level))
	}
	return nil
}

// Recorder keeps notices in memory. Useful for dry runs and tests.
type Recorder struct {
	Entries []Entry
}

type Entry struct {
	Level   Level
	Message string
}

func (r *Recorder) Notify(_ context.Context, level Level, msg string) error {
	if _, err := ParseLevel(string(level)); err != nil {
		return err
	}
	r.Entries = append(r.Entries, Entry{Level: level, Message: msg})
	return nil
}

// Messages returns the recorded messages at level.
func (r *Recorder) Messages(level Level) []string {
	var out []string
	for _, e := range r.Entries {
		if e.Level == level {
			out = append(out, e.Message)
		}
	}
	return out
}
