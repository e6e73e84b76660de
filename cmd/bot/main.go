package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/piquette/finance-go/quote"
	"github.com/spf13/cobra"

	"sentiment-trading-bot/internal/alert"
	"sentiment-trading-bot/internal/engine"
	"sentiment-trading-bot/internal/engine/engineobs"
	"sentiment-trading-bot/internal/history"
	"sentiment-trading-bot/internal/journal"
	"sentiment-trading-bot/internal/logger"
	"sentiment-trading-bot/internal/metrics"
	"sentiment-trading-bot/internal/performance"
	"sentiment-trading-bot/internal/report"
	"sentiment-trading-bot/internal/runner"
	"sentiment-trading-bot/internal/store"
	"sentiment-trading-bot/internal/tradelog"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:          "bot",
		Short:        "News sentiment trading bot",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initializeSystem()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = logger.Shutdown(ctx)
		},
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "Path to the YAML config")

	cmd.AddCommand(
		runCmd(&configPath),
		statusCmd(&configPath),
		sentimentCmd(&configPath),
		metricsCmd(&configPath),
		exportCmd(&configPath),
		validateCmd(),
	)
	return cmd
}

func runCmd(configPath *string) *cobra.Command {
	var maxIterations int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the trading loop until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runBot(ctx, *configPath, maxIterations)
		},
	}
	cmd.Flags().IntVar(&maxIterations, "max-iterations", 0, "Stop after this many iterations (0 runs until interrupted)")
	return cmd
}

func runBot(ctx context.Context, configPath string, maxIterations int) error {
	cfg, err := loadConfig(ctx, configPath)
	if err != nil {
		return err
	}
	compressOldLogs(ctx, cfg)

	runlog, err := tradelog.Open(cfg.Report.RunLog)
	if err != nil {
		return fmt.Errorf("open run log: %w", err)
	}
	defer runlog.Close()
	alerts := alert.New(os.Stdout, runlog)
	reporter := report.New(os.Stdout, runlog)

	brk, err := initializeBroker(ctx, cfg)
	if err != nil {
		return err
	}
	newsSvc := initializeNews(ctx, cfg)
	model, release, err := initializeSentiment(ctx, cfg)
	if err != nil {
		return err
	}
	defer release()

	jstore, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		return err
	}
	defer jstore.Close()
	run, err := jstore.StartRun(ctx, journal.RunRecord{
		Symbol:     cfg.Symbol,
		Mode:       cfg.Mode,
		Broker:     cfg.Broker,
		CashAtRisk: cfg.CashAtRisk,
	})
	if err != nil {
		return err
	}
	logger.Info(ctx, "Run started", "run_id", run.ID, "symbol", cfg.Symbol, "mode", cfg.Mode)

	rec := history.NewRecorder(jstore.Sink(run.ID))
	strategy := engine.New(cfg, brk, newsSvc, model, rec, alerts)

	reporter.StrategyParameters(ctx, strategy.State(), cfg.Mode)
	reporter.AccountStatus(ctx, brk)
	reporter.MarketClock(ctx, brk)

	if cfg.Metrics.ListenAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.ListenAddr); err != nil {
				logger.ErrorWithErr(ctx, "Metrics server stopped", err, "addr", cfg.Metrics.ListenAddr)
			}
		}()
	}

	_ = alerts.Notify(ctx, alert.LevelInfo, fmt.Sprintf("Bot started for %s (run %s)", cfg.Symbol, run.ID))
	r := runner.New(engineobs.Wrap(strategy), cfg.Interval(), alerts)
	r.MaxIterations = maxIterations
	runErr := r.Run(ctx)

	// Reporting runs after cancellation, so it gets its own context.
	done, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	status := journal.StatusFinished
	if errors.Is(runErr, engine.ErrInsufficientFunds) {
		status = journal.StatusHalted
	}
	if err := jstore.FinishRun(done, run.ID, status); err != nil {
		logger.ErrorWithErr(done, "Failed to finish journal run", err)
	}

	reporter.GetResults(done, rec)
	if res := reporter.ExportTradeHistory(done, rec.Trades(), cfg.Report.CSVPath); res.OK() {
		logger.Info(done, "Trade history exported", "path", res.Value, "trades", len(rec.Trades()))
	}
	reporter.PrintTradeHistory(done, rec.Trades())
	reporter.CashAndPosition(done, brk, strategy.State())

	return runErr
}

func statusCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check broker connectivity, market clock and strategy parameters",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig(ctx, *configPath)
			if err != nil {
				return err
			}
			brk, err := initializeBroker(ctx, cfg)
			if err != nil {
				return err
			}

			reporter := report.New(os.Stdout, tradelog.Discard())
			st := engine.StrategyState{Symbol: cfg.Symbol, CashAtRisk: cfg.CashAtRisk, SleepInterval: cfg.Interval()}
			account := reporter.AccountStatus(ctx, brk)
			reporter.MarketClock(ctx, brk)
			reporter.StrategyParameters(ctx, st, cfg.Mode)
			reporter.CashAndPosition(ctx, brk, st)
			return account.Err
		},
	}
}

func sentimentCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sentiment [SYMBOL]",
		Short: "Resolve and display the current news sentiment signal",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig(ctx, *configPath)
			if err != nil {
				return err
			}
			symbol := cfg.Symbol
			if len(args) == 1 {
				symbol = strings.ToUpper(args[0])
			}

			model, release, err := initializeSentiment(ctx, cfg)
			if err != nil {
				return err
			}
			defer release()

			provider := engine.NewSignalProvider(initializeNews(ctx, cfg), model, cfg.Signal.LookbackDays)
			sig, err := provider.Signal(ctx, symbol, time.Now())
			return report.New(os.Stdout, tradelog.Discard()).SentimentSummary(ctx, symbol, sig, err).Err
		},
	}
}

// loadRun opens the journal and returns the requested run, or the latest one.
func loadRun(ctx context.Context, cfg *store.Config, runID string) (*journal.Store, journal.RunRecord, error) {
	jstore, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		return nil, journal.RunRecord{}, err
	}
	var run journal.RunRecord
	if runID == "" {
		run, err = jstore.LatestRun(ctx)
	} else {
		run, err = jstore.GetRun(ctx, runID)
	}
	if err != nil {
		jstore.Close()
		return nil, journal.RunRecord{}, err
	}
	return jstore, run, nil
}

func metricsCmd(configPath *string) *cobra.Command {
	var runID string

	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Compute performance metrics for a journaled run",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig(ctx, *configPath)
			if err != nil {
				return err
			}
			jstore, run, err := loadRun(ctx, cfg, runID)
			if err != nil {
				return err
			}
			defer jstore.Close()

			trades, err := jstore.LoadTrades(ctx, run.ID)
			if err != nil {
				return err
			}
			samples, err := jstore.LoadSamples(ctx, run.ID)
			if err != nil {
				return err
			}

			fmt.Printf("Run %s (%s, %s, started %s)\n", run.ID, run.Symbol, run.Status, run.StartedAt.Format(time.RFC3339))
			res := report.New(os.Stdout, tradelog.Discard()).GetResults(ctx, history.Restore(trades, samples))
			if res.Err != nil && !errors.Is(res.Err, performance.ErrNoTrades) {
				return res.Err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&runID, "run", "", "Run id (default: latest run)")
	return cmd
}

func exportCmd(configPath *string) *cobra.Command {
	var (
		runID string
		out   string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the trade history of a journaled run to CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig(ctx, *configPath)
			if err != nil {
				return err
			}
			jstore, run, err := loadRun(ctx, cfg, runID)
			if err != nil {
				return err
			}
			defer jstore.Close()

			trades, err := jstore.LoadTrades(ctx, run.ID)
			if err != nil {
				return err
			}
			if out == "" {
				out = cfg.Report.CSVPath
			}
			reporter := report.New(os.Stdout, tradelog.Discard())
			reporter.PrintTradeHistory(ctx, trades)
			return reporter.ExportTradeHistory(ctx, trades, out).Err
		},
	}
	cmd.Flags().StringVar(&runID, "run", "", "Run id (default: latest run)")
	cmd.Flags().StringVar(&out, "out", "", "Output CSV path (default: report.csv_path)")
	return cmd
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate SYMBOL",
		Short: "Check that a ticker symbol exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbol := strings.ToUpper(strings.TrimSpace(args[0]))
			q, err := quote.Get(symbol)
			if err != nil {
				return fmt.Errorf("lookup %s: %w", symbol, err)
			}
			if q == nil || q.ShortName == "" {
				return fmt.Errorf("invalid ticker symbol: %s", symbol)
			}
			fmt.Printf("%s (%s) last price %.2f %s\n", q.Symbol, q.ShortName, q.RegularMarketPrice, q.CurrencyID)
			return nil
		},
	}
}
