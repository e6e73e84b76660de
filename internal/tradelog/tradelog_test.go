package tradelog

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"
)

var lineRE = regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2},\d{3} - (INFO|ERROR) - (.+)$`)

func TestRunLogFormat(t *testing.T) {
	var buf bytes.Buffer
	rl := New(&buf)
	rl.Info("Sharpe Ratio: 1.25")
	rl.Error("Failed to export trade history")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 lines, got %d: %q", len(lines), buf.String())
	}

	m := lineRE.FindStringSubmatch(lines[0])
	if m == nil {
		t.Fatalf("Unexpected line format: %q", lines[0])
	}
	if m[1] != "INFO" || m[2] != "Sharpe Ratio: 1.25" {
		t.Errorf("Expected INFO line with message, got %q", lines[0])
	}

	m = lineRE.FindStringSubmatch(lines[1])
	if m == nil || m[1] != "ERROR" {
		t.Errorf("Expected ERROR line, got %q", lines[1])
	}
}

func TestOpenAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "trading_bot.log")

	rl, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	rl.Info("first")
	if err := rl.Close(); err != nil {
		t.Fatal(err)
	}

	rl, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	rl.Info("second")
	_ = rl.Close()

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Count(string(b), "\n") != 2 {
		t.Errorf("Expected two appended lines, got %q", string(b))
	}
}

func TestNilAndDiscardAreSafe(t *testing.T) {
	var rl *RunLog
	rl.Info("ignored")
	rl.Error("ignored")
	if err := rl.Close(); err != nil {
		t.Errorf("Expected nil close on nil log, got %v", err)
	}
	Discard().Info("ignored")
}

func TestCompressOlder(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "runs", "old.log")
	fresh := filepath.Join(dir, "fresh.csv")
	other := filepath.Join(dir, "notes.txt")
	for _, p := range []string{old, fresh, other} {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("data\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	past := time.Now().AddDate(0, 0, -10)
	for _, p := range []string{old, other} {
		if err := os.Chtimes(p, past, past); err != nil {
			t.Fatal(err)
		}
	}

	n, err := CompressOlder(dir, 7)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("Expected 1 compressed file, got %d", n)
	}
	if _, err := os.Stat(old + ".gz"); err != nil {
		t.Errorf("Expected gzip of old log: %v", err)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Error("Expected original old log to be removed")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Error("Expected fresh csv to remain")
	}
	if _, err := os.Stat(other); err != nil {
		t.Error("Expected non-matching file to remain")
	}
}
