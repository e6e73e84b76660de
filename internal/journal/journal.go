// Package journal mirrors the trade ledger and cash history of every run into
// SQLite so a finished run can be analyzed and exported later.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"sentiment-trading-bot/internal/interfaces"
	"sentiment-trading-bot/internal/types"
)

const (
	StatusRunning  = "running"
	StatusFinished = "finished"
	StatusHalted   = "halted"
)

// ErrNoRuns is returned by LatestRun on an empty journal.
var ErrNoRuns = errors.New("journal has no runs")

type Store struct {
	db *sql.DB
}

type RunRecord struct {
	ID         string
	Symbol     string
	Mode       string
	Broker     string
	CashAtRisk float64
	Status     string
	StartedAt  time.Time
}

func Open(dbPath string) (*Store, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, fmt.Errorf("db path is required")
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// a single connection keeps ":memory:" databases intact and serializes writers
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=3000;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma %s: %w", p, err)
		}
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func initSchema(db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    symbol TEXT NOT NULL,
    mode TEXT NOT NULL,
    broker TEXT,
    cash_at_risk REAL NOT NULL,
    status TEXT NOT NULL,
    started_at TEXT NOT NULL,
    finished_at TEXT
);

CREATE TABLE IF NOT EXISTS trades (
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    seq INTEGER NOT NULL,
    action TEXT NOT NULL,
    price REAL NOT NULL,
    ts TEXT NOT NULL,
    symbol TEXT,
    qty INTEGER,
    order_id TEXT,
    PRIMARY KEY (run_id, seq)
);

CREATE TABLE IF NOT EXISTS samples (
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    seq INTEGER NOT NULL,
    cash REAL NOT NULL,
    ts TEXT NOT NULL,
    PRIMARY KEY (run_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// StartRun inserts run, assigning a fresh id when run.ID is empty.
func (s *Store) StartRun(ctx context.Context, run RunRecord) (RunRecord, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.Status == "" {
		run.Status = StatusRunning
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO runs (id, symbol, mode, broker, cash_at_risk, status, started_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Symbol, run.Mode, run.Broker, run.CashAtRisk, run.Status, formatTime(run.StartedAt))
	if err != nil {
		return RunRecord{}, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

func (s *Store) FinishRun(ctx context.Context, runID, status string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE runs SET status = ?, finished_at = ? WHERE id = ?`,
		status, formatTime(time.Now().UTC()), runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish run: run %s not found", runID)
	}
	return nil
}

func (s *Store) GetRun(ctx context.Context, runID string) (RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, symbol, mode, broker, cash_at_risk, status, started_at FROM runs WHERE id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, fmt.Errorf("run %s not found", runID)
	}
	return run, err
}

// LatestRun returns the most recently inserted run.
func (s *Store) LatestRun(ctx context.Context) (RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, symbol, mode, broker, cash_at_risk, status, started_at FROM runs
ORDER BY rowid DESC LIMIT 1`)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, ErrNoRuns
	}
	return run, err
}

func scanRun(row *sql.Row) (RunRecord, error) {
	var (
		run     RunRecord
		broker  sql.NullString
		started string
	)
	if err := row.Scan(&run.ID, &run.Symbol, &run.Mode, &broker, &run.CashAtRisk, &run.Status, &started); err != nil {
		return RunRecord{}, err
	}
	run.Broker = broker.String
	t, err := parseTime(started)
	if err != nil {
		return RunRecord{}, err
	}
	run.StartedAt = t
	return run, nil
}

func (s *Store) AppendTrade(ctx context.Context, runID string, t types.Trade) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO trades (run_id, seq, action, price, ts, symbol, qty, order_id)
VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM trades WHERE run_id = ?), ?, ?, ?, ?, ?, ?)`,
		runID, runID, string(t.Action), t.Price, formatTime(t.Timestamp), t.Symbol, t.Qty, t.OrderID)
	if err != nil {
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}

func (s *Store) AppendSample(ctx context.Context, runID string, sample types.HistorySample) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO samples (run_id, seq, cash, ts)
VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM samples WHERE run_id = ?), ?, ?)`,
		runID, runID, sample.Cash, formatTime(sample.Timestamp))
	if err != nil {
		return fmt.Errorf("insert sample: %w", err)
	}
	return nil
}

// LoadTrades returns the ledger of a run in insertion order.
func (s *Store) LoadTrades(ctx context.Context, runID string) ([]types.Trade, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT action, price, ts, symbol, qty, order_id FROM trades WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	var out []types.Trade
	for rows.Next() {
		var (
			t               types.Trade
			action, ts      string
			symbol, orderID sql.NullString
			qty             sql.NullInt64
		)
		if err := rows.Scan(&action, &t.Price, &ts, &symbol, &qty, &orderID); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		if t.Action, err = types.ParseAction(action); err != nil {
			return nil, err
		}
		if t.Timestamp, err = parseTime(ts); err != nil {
			return nil, err
		}
		t.Symbol, t.Qty, t.OrderID = symbol.String, int(qty.Int64), orderID.String
		out = append(out, t)
	}
	return out, rows.Err()
}

// LoadSamples returns the cash history of a run in insertion order.
func (s *Store) LoadSamples(ctx context.Context, runID string) ([]types.HistorySample, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT cash, ts FROM samples WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()

	var out []types.HistorySample
	for rows.Next() {
		var (
			sample types.HistorySample
			ts     string
		)
		if err := rows.Scan(&sample.Cash, &ts); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		if sample.Timestamp, err = parseTime(ts); err != nil {
			return nil, err
		}
		out = append(out, sample)
	}
	return out, rows.Err()
}

// Sink binds the store to one run so it can receive history appends.
func (s *Store) Sink(runID string) interfaces.HistorySink {
	return &runSink{store: s, runID: runID}
}

type runSink struct {
	store *Store
	runID string
}

func (r *runSink) AppendTrade(ctx context.Context, t types.Trade) error {
	return r.store.AppendTrade(ctx, r.runID, t)
}

func (r *runSink) AppendSample(ctx context.Context, s types.HistorySample) error {
	return r.store.AppendSample(ctx, r.runID, s)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse journal time %q: %w", s, err)
	}
	return t, nil
}
