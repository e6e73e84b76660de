package tradelog

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// TimeLayout matches "<date> <time>,<millis>" used by the run log.
const TimeLayout = "2006-01-02 15:04:05,000"

// RunLog is the append-only "<timestamp> - <LEVEL> - <message>" file of a run.
type RunLog struct {
	mu     sync.Mutex
	z      *zap.Logger
	closer io.Closer
}

// Open appends to path, creating parent directories as needed.
func Open(path string) (*RunLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	rl := New(f)
	rl.closer = f
	return rl, nil
}

// New writes run log lines to w.
func New(w io.Writer) *RunLog {
	enc := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		TimeKey:          "time",
		LevelKey:         "level",
		MessageKey:       "msg",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeTime:       zapcore.TimeEncoderOfLayout(TimeLayout),
		EncodeLevel:      zapcore.CapitalLevelEncoder,
		EncodeDuration:   zapcore.StringDurationEncoder,
		ConsoleSeparator: " - ",
	})
	core := zapcore.NewCore(enc, zapcore.AddSync(w), zap.InfoLevel)
	return &RunLog{z: zap.New(core)}
}

// Discard returns a RunLog that drops every line.
func Discard() *RunLog {
	return &RunLog{z: zap.NewNop()}
}

func (l *RunLog) Info(msg string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.z.Info(msg)
}

func (l *RunLog) Error(msg string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.z.Error(msg)
}

func (l *RunLog) Close() error {
	if l == nil {
		return nil
	}
	_ = l.z.Sync()
	if l.closer != nil {
		return l.closer.Close()
	}
	return nil
}

// CompressOlder gzips run logs and trade exports under dir whose modification
// time is older than retentionDays. The original file is removed once its .gz exists.
func CompressOlder(dir string, retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	matches, err := doublestar.Glob(os.DirFS(dir), "**/*.{log,csv}")
	if err != nil {
		return 0, err
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	compressed := 0
	for _, rel := range matches {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		info, err := os.Stat(p)
		if err != nil || info.IsDir() || !info.ModTime().Before(cutoff) {
			continue
		}
		gz := p + ".gz"
		if _, err := os.Stat(gz); err == nil {
			_ = os.Remove(p)
			continue
		}
		if err := gzipFile(p, gz); err != nil {
			return compressed, fmt.Errorf("compress %s: %w", p, err)
		}
		_ = os.Remove(p)
		compressed++
	}
	return compressed, nil
}

func gzipFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	gw := gzip.NewWriter(out)
	if _, err := io.Copy(gw, in); err != nil {
		_ = gw.Close()
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err := gw.Close(); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
