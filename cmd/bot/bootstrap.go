package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"sentiment-trading-bot/internal/broker/alpaca"
	"sentiment-trading-bot/internal/broker/brokerobs"
	"sentiment-trading-bot/internal/broker/guard"
	"sentiment-trading-bot/internal/broker/paper"
	"sentiment-trading-bot/internal/broker/zerodha"
	"sentiment-trading-bot/internal/interfaces"
	"sentiment-trading-bot/internal/logger"
	"sentiment-trading-bot/internal/news"
	"sentiment-trading-bot/internal/sentiment/finbert"
	"sentiment-trading-bot/internal/sentiment/llm"
	"sentiment-trading-bot/internal/sentiment/noop"
	"sentiment-trading-bot/internal/sentiment/sentimentobs"
	"sentiment-trading-bot/internal/store"
	"sentiment-trading-bot/internal/tradelog"

	"github.com/joho/godotenv"
)

// initializeSystem loads the environment and initializes the logger
func initializeSystem() error {
	// Load environment variables
	_ = godotenv.Load()

	// Also initializes tracing when LOG_TRACING_ENABLED is set
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Debug(context.Background(), "System initialized", "tracing", logger.IsTracingEnabled())
	return nil
}

// loadConfig loads and returns the configuration
func loadConfig(ctx context.Context, path string) (*store.Config, error) {
	cfg, err := store.LoadConfig(path)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err, "path", path)
		return nil, err
	}
	return cfg, nil
}

// compressOldLogs compresses old run logs and exports if retention is configured
func compressOldLogs(ctx context.Context, cfg *store.Config) {
	dir := filepath.Dir(cfg.Report.RunLog)
	n, err := tradelog.CompressOlder(dir, cfg.Report.RetentionDays)
	if err != nil {
		logger.Warn(ctx, "Failed to compress old logs", "dir", dir, "error", err)
		return
	}
	if n > 0 {
		logger.Info(ctx, "Compressed old run logs", "dir", dir, "files", n)
	}
}

// initializeBroker builds the broker for the configured mode, wrapped with the
// retry/timeout policy and observability middleware
func initializeBroker(ctx context.Context, cfg *store.Config) (interfaces.Broker, error) {
	var brk interfaces.Broker

	switch {
	case cfg.Mode == "DRY_RUN":
		logger.Warn(ctx, "Running in DRY_RUN mode - orders will be simulated")
		brk = paper.New(paper.Params{
			InitialCash: cfg.Paper.InitialCash,
			PriceSource: cfg.Paper.PriceSource,
			StaticPrice: cfg.Paper.StaticPrice,
		})
	case cfg.Broker == "ALPACA":
		brk = alpaca.New(alpaca.Params{
			BaseURL: cfg.Alpaca.BaseURL,
			DataURL: cfg.Alpaca.DataURL,
			KeyID:   os.Getenv("ALPACA_API_KEY"),
			Secret:  os.Getenv("ALPACA_API_SECRET"),
			Timeout: time.Duration(cfg.BrokerPolicy.TimeoutSeconds) * time.Second,
		})
	case cfg.Broker == "ZERODHA":
		z, err := zerodha.NewZerodha(zerodha.Params{
			APIKey:      os.Getenv("KITE_API_KEY"),
			AccessToken: os.Getenv("KITE_ACCESS_TOKEN"),
			Exchange:    cfg.Zerodha.Exchange,
			Product:     cfg.Zerodha.Product,
			MinTick:     cfg.Risk.MinTick,
		})
		if err != nil {
			return nil, fmt.Errorf("zerodha broker: %w", err)
		}
		brk = z
	default:
		return nil, fmt.Errorf("unsupported broker '%s'", cfg.Broker)
	}

	logger.Info(ctx, "Broker initialized", "mode", cfg.Mode, "broker", cfg.Broker)
	return brokerobs.Wrap(guard.New(brk, guard.PolicyFrom(cfg))), nil
}

func newsProvider(name string, cfg *store.Config) interfaces.NewsProvider {
	timeout := time.Duration(cfg.News.TimeoutSeconds) * time.Second
	switch name {
	case "ALPACA":
		return news.NewAlpacaProvider(cfg.Alpaca.DataURL, os.Getenv("ALPACA_API_KEY"), os.Getenv("ALPACA_API_SECRET"), timeout)
	case "RSS":
		return news.NewScraper(cfg.News.RSSURL, timeout)
	}
	return nil
}

// initializeNews builds the news service with its optional fallback provider
func initializeNews(ctx context.Context, cfg *store.Config) interfaces.NewsProvider {
	primary := newsProvider(cfg.News.Provider, cfg)
	var fallback interfaces.NewsProvider
	if cfg.News.Fallback != "" && cfg.News.Fallback != cfg.News.Provider {
		fallback = newsProvider(cfg.News.Fallback, cfg)
	}
	logger.Info(ctx, "News service initialized", "provider", cfg.News.Provider, "fallback", cfg.News.Fallback)
	return news.NewService(primary, fallback, news.ServiceConfigFrom(cfg))
}

// initializeSentiment returns the configured model with observability and a
// release func for its resources
func initializeSentiment(ctx context.Context, cfg *store.Config) (interfaces.SentimentModel, func(), error) {
	var (
		model   interfaces.SentimentModel
		release = func() {}
	)

	switch cfg.Sentiment.Provider {
	case "FINBERT":
		libPath := cfg.Sentiment.LibraryPath
		if libPath == "" {
			libPath = os.Getenv("ONNXRUNTIME_LIB")
		}
		c, err := finbert.New(finbert.Config{
			ModelPath:   cfg.Sentiment.ModelPath,
			VocabPath:   cfg.Sentiment.VocabPath,
			LibraryPath: libPath,
			MaxSeqLen:   cfg.Sentiment.MaxSeqLen,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("finbert model: %w", err)
		}
		model, release = c, c.Close
	case "OPENAI", "CLAUDE":
		key := os.Getenv("OPENAI_API_KEY")
		if cfg.Sentiment.Provider == "CLAUDE" {
			key = os.Getenv("ANTHROPIC_API_KEY")
		}
		c, err := llm.New(llm.Config{
			Provider:    cfg.Sentiment.Provider,
			Model:       cfg.Sentiment.LLMModel,
			APIKey:      key,
			MaxTokens:   cfg.Sentiment.MaxTokens,
			Temperature: cfg.Sentiment.Temperature,
			Timeout:     time.Duration(cfg.News.TimeoutSeconds) * time.Second,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("llm sentiment model: %w", err)
		}
		model = c
	default:
		model = noop.New()
		logger.Warn(ctx, "No sentiment model configured - using Noop model (always neutral, never trades)")
	}

	return sentimentobs.Wrap(model), release, nil
}
