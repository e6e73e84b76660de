package store

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Mode          string  `yaml:"mode"`
	Broker        string  `yaml:"broker"`
	Symbol        string  `yaml:"symbol"`
	CashAtRisk    float64 `yaml:"cash_at_risk"`
	SleepInterval string  `yaml:"sleep_interval"`
	Risk          struct {
		RiskTolerance float64 `yaml:"risk_tolerance"`
		ProfitMargin  float64 `yaml:"profit_margin"`
		CapLimit      float64 `yaml:"cap_limit"`
		MinTick       float64 `yaml:"min_tick"`
	} `yaml:"risk"`
	Signal struct {
		Threshold    float64 `yaml:"threshold"`
		LookbackDays int     `yaml:"lookback_days"`
	} `yaml:"signal"`
	News struct {
		Provider       string `yaml:"provider"`
		Fallback       string `yaml:"fallback"`
		MaxHeadlines   int    `yaml:"max_headlines"`
		CacheMinutes   int    `yaml:"cache_minutes"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
		RSSURL         string `yaml:"rss_url"`
	} `yaml:"news"`
	Sentiment struct {
		Provider    string  `yaml:"provider"`
		ModelPath   string  `yaml:"model_path"`
		VocabPath   string  `yaml:"vocab_path"`
		LibraryPath string  `yaml:"library_path"`
		MaxSeqLen   int     `yaml:"max_seq_len"`
		LLMModel    string  `yaml:"llm_model"`
		MaxTokens   int     `yaml:"max_tokens"`
		Temperature float32 `yaml:"temperature"`
	} `yaml:"sentiment"`
	Paper struct {
		InitialCash float64 `yaml:"initial_cash"`
		PriceSource string  `yaml:"price_source"`
		StaticPrice float64 `yaml:"static_price"`
	} `yaml:"paper"`
	Alpaca struct {
		BaseURL string `yaml:"base_url"`
		DataURL string `yaml:"data_url"`
	} `yaml:"alpaca"`
	Zerodha struct {
		Exchange string `yaml:"exchange"`
		Product  string `yaml:"product"`
	} `yaml:"zerodha"`
	BrokerPolicy struct {
		MaxRetries     int `yaml:"max_retries"`
		BackoffMillis  int `yaml:"backoff_ms"`
		TimeoutSeconds int `yaml:"timeout_seconds"`
	} `yaml:"broker_policy"`
	Journal struct {
		Path string `yaml:"path"`
	} `yaml:"journal"`
	Report struct {
		CSVPath       string `yaml:"csv_path"`
		RunLog        string `yaml:"run_log"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"report"`
	Metrics struct {
		ListenAddr string `yaml:"listen_addr"`
	} `yaml:"metrics"`
}

// Interval parses sleep_interval. Validate guarantees it is positive.
func (c *Config) Interval() time.Duration {
	d, err := time.ParseDuration(c.SleepInterval)
	if err != nil {
		return 24 * time.Hour
	}
	return d
}

func (c *Config) Validate() error {
	if c.Mode != "DRY_RUN" && c.Mode != "LIVE" {
		return fmt.Errorf("invalid mode '%s': must be 'DRY_RUN' or 'LIVE'", c.Mode)
	}
	if c.Mode == "LIVE" && c.Broker != "ALPACA" && c.Broker != "ZERODHA" {
		return fmt.Errorf("invalid broker '%s': must be 'ALPACA' or 'ZERODHA' in LIVE mode", c.Broker)
	}
	if strings.TrimSpace(c.Symbol) == "" {
		return errors.New("symbol cannot be empty")
	}
	if c.CashAtRisk <= 0 || c.CashAtRisk > 1 {
		return fmt.Errorf("cash_at_risk must be in (0, 1], got %.4f", c.CashAtRisk)
	}
	d, err := time.ParseDuration(c.SleepInterval)
	if err != nil {
		return fmt.Errorf("invalid sleep_interval '%s': %w", c.SleepInterval, err)
	}
	if d <= 0 {
		return fmt.Errorf("sleep_interval must be positive, got %s", c.SleepInterval)
	}
	if c.Risk.RiskTolerance <= 0 || c.Risk.RiskTolerance >= 1 {
		return fmt.Errorf("risk.risk_tolerance must be in (0, 1), got %.4f", c.Risk.RiskTolerance)
	}
	if c.Risk.ProfitMargin <= 0 {
		return fmt.Errorf("risk.profit_margin must be positive, got %.4f", c.Risk.ProfitMargin)
	}
	if c.Risk.CapLimit <= 0 || c.Risk.CapLimit >= 1 {
		return fmt.Errorf("risk.cap_limit must be in (0, 1), got %.4f", c.Risk.CapLimit)
	}
	if c.Signal.Threshold < 0 || c.Signal.Threshold >= 1 {
		return fmt.Errorf("signal.threshold must be in [0, 1), got %.4f", c.Signal.Threshold)
	}
	if c.Signal.LookbackDays <= 0 {
		return fmt.Errorf("signal.lookback_days must be positive, got %d", c.Signal.LookbackDays)
	}
	if !oneOf(c.News.Provider, "ALPACA", "RSS") {
		return fmt.Errorf("news.provider must be 'ALPACA' or 'RSS', got '%s'", c.News.Provider)
	}
	if c.News.Fallback != "" && !oneOf(c.News.Fallback, "ALPACA", "RSS") {
		return fmt.Errorf("news.fallback must be empty, 'ALPACA' or 'RSS', got '%s'", c.News.Fallback)
	}
	if !oneOf(c.Sentiment.Provider, "FINBERT", "OPENAI", "CLAUDE", "NOOP") {
		return fmt.Errorf("sentiment.provider must be 'FINBERT', 'OPENAI', 'CLAUDE' or 'NOOP', got '%s'", c.Sentiment.Provider)
	}
	if c.Sentiment.Provider == "FINBERT" && (c.Sentiment.ModelPath == "" || c.Sentiment.VocabPath == "") {
		return errors.New("sentiment.model_path and sentiment.vocab_path are required for FINBERT")
	}
	if !oneOf(c.Paper.PriceSource, "STATIC", "YAHOO") {
		return fmt.Errorf("paper.price_source must be 'STATIC' or 'YAHOO', got '%s'", c.Paper.PriceSource)
	}
	if c.Mode == "DRY_RUN" && c.Paper.InitialCash <= 0 {
		return fmt.Errorf("paper.initial_cash must be positive, got %.2f", c.Paper.InitialCash)
	}
	if c.BrokerPolicy.MaxRetries < 0 {
		return fmt.Errorf("broker_policy.max_retries cannot be negative, got %d", c.BrokerPolicy.MaxRetries)
	}
	return nil
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseConfig(b)
}

// ParseConfig decodes YAML, applies defaults and validates.
func ParseConfig(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Mode == "" {
		c.Mode = "DRY_RUN"
	}
	c.Mode = strings.ToUpper(c.Mode)
	c.Broker = strings.ToUpper(c.Broker)
	if c.Symbol == "" {
		c.Symbol = "SPY"
	}
	if c.CashAtRisk == 0 {
		c.CashAtRisk = 0.5
	}
	if c.SleepInterval == "" {
		c.SleepInterval = "24h"
	}
	if c.Risk.RiskTolerance == 0 {
		c.Risk.RiskTolerance = 0.02
	}
	if c.Risk.ProfitMargin == 0 {
		c.Risk.ProfitMargin = 0.10
	}
	if c.Risk.CapLimit == 0 {
		c.Risk.CapLimit = 0.30
	}
	if c.Risk.MinTick == 0 {
		c.Risk.MinTick = 0.01
	}
	if c.Signal.Threshold == 0 {
		c.Signal.Threshold = 0.999
	}
	if c.Signal.LookbackDays == 0 {
		c.Signal.LookbackDays = 3
	}
	if c.News.Provider == "" {
		c.News.Provider = "ALPACA"
	}
	c.News.Provider = strings.ToUpper(c.News.Provider)
	c.News.Fallback = strings.ToUpper(c.News.Fallback)
	if c.News.MaxHeadlines == 0 {
		c.News.MaxHeadlines = 50
	}
	if c.News.CacheMinutes == 0 {
		c.News.CacheMinutes = 60
	}
	if c.News.TimeoutSeconds == 0 {
		c.News.TimeoutSeconds = 30
	}
	if c.Sentiment.Provider == "" {
		c.Sentiment.Provider = "NOOP"
	}
	c.Sentiment.Provider = strings.ToUpper(c.Sentiment.Provider)
	if c.Sentiment.MaxSeqLen == 0 {
		c.Sentiment.MaxSeqLen = 128
	}
	if c.Sentiment.MaxTokens == 0 {
		c.Sentiment.MaxTokens = 200
	}
	if c.Paper.InitialCash == 0 {
		c.Paper.InitialCash = 100000
	}
	if c.Paper.PriceSource == "" {
		c.Paper.PriceSource = "STATIC"
	}
	c.Paper.PriceSource = strings.ToUpper(c.Paper.PriceSource)
	if c.Paper.StaticPrice == 0 {
		c.Paper.StaticPrice = 100
	}
	if c.Alpaca.BaseURL == "" {
		c.Alpaca.BaseURL = "https://paper-api.alpaca.markets"
	}
	if c.Alpaca.DataURL == "" {
		c.Alpaca.DataURL = "https://data.alpaca.markets"
	}
	if c.Zerodha.Exchange == "" {
		c.Zerodha.Exchange = "NSE"
	}
	if c.Zerodha.Product == "" {
		c.Zerodha.Product = "MIS"
	}
	if c.BrokerPolicy.BackoffMillis == 0 {
		c.BrokerPolicy.BackoffMillis = 500
	}
	if c.BrokerPolicy.TimeoutSeconds == 0 {
		c.BrokerPolicy.TimeoutSeconds = 30
	}
	if c.Journal.Path == "" {
		c.Journal.Path = "data/journal.db"
	}
	if c.Report.CSVPath == "" {
		c.Report.CSVPath = "trades.csv"
	}
	if c.Report.RunLog == "" {
		c.Report.RunLog = "logs/trading_bot.log"
	}
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
