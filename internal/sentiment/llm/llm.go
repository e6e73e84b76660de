package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"sentiment-trading-bot/internal/interfaces"
	"sentiment-trading-bot/internal/logger"
	"sentiment-trading-bot/internal/sentiment"
	"sentiment-trading-bot/internal/types"
)

const (
	ProviderOpenAI = "OPENAI"
	ProviderClaude = "CLAUDE"

	DefaultOpenAIEndpoint = "https://api.openai.com/v1/chat/completions"
	DefaultClaudeEndpoint = "https://api.anthropic.com/v1/messages"
	anthropicVersion      = "2023-06-01"

	defaultRetries   = 2
	defaultRetryWait = time.Second
)

const systemPrompt = "You are a financial news sentiment classifier. Read the headlines as one batch " +
	"and answer ONLY with compact JSON: {\"label\":\"positive|negative|neutral\",\"probability\":<0..1>}. " +
	"probability is your confidence in the label."

// Config selects the chat API and model.
type Config struct {
	Provider    string
	Model       string
	APIKey      string
	Endpoint    string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration

	// Retries is the number of extra attempts after a transport error, 429 or 5xx.
	Retries   int
	RetryWait time.Duration
}

// Classifier asks a chat model for the aggregate sentiment of a headline batch.
type Classifier struct {
	cfg    Config
	client *resty.Client
}

var _ interfaces.SentimentModel = (*Classifier)(nil)

func New(cfg Config) (*Classifier, error) {
	cfg.Provider = strings.ToUpper(cfg.Provider)
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s API key missing", cfg.Provider)
	}

	client := resty.New()
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}
	client.SetHeader("Content-Type", "application/json")
	switch cfg.Provider {
	case ProviderOpenAI:
		if cfg.Endpoint == "" {
			cfg.Endpoint = DefaultOpenAIEndpoint
		}
		if cfg.Model == "" {
			cfg.Model = "gpt-4o-mini"
		}
		client.SetAuthToken(cfg.APIKey)
	case ProviderClaude:
		if cfg.Endpoint == "" {
			cfg.Endpoint = DefaultClaudeEndpoint
		}
		if cfg.Model == "" {
			cfg.Model = "claude-3-5-haiku-latest"
		}
		client.SetHeader("x-api-key", cfg.APIKey)
		client.SetHeader("anthropic-version", anthropicVersion)
	default:
		return nil, fmt.Errorf("unsupported LLM provider '%s': must be '%s' or '%s'", cfg.Provider, ProviderOpenAI, ProviderClaude)
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 200
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	} else if cfg.Retries == 0 {
		cfg.Retries = defaultRetries
	}
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = defaultRetryWait
	}

	client.SetRetryCount(cfg.Retries).
		SetRetryWaitTime(cfg.RetryWait).
		SetRetryMaxWaitTime(5 * cfg.RetryWait).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= http.StatusInternalServerError
		})

	return &Classifier{cfg: cfg, client: client}, nil
}

// Estimate returns {0, neutral} for an empty batch without calling the API.
func (c *Classifier) Estimate(ctx context.Context, headlines []string) (types.SentimentSignal, error) {
	if len(headlines) == 0 {
		return types.NeutralSignal(), nil
	}
	ctx, span := logger.StartSpan(ctx, strings.ToLower(c.cfg.Provider)+"-api-call")
	defer span.End()

	var b strings.Builder
	b.WriteString("Headlines:\n")
	for _, h := range headlines {
		b.WriteString("- ")
		b.WriteString(h)
		b.WriteByte('\n')
	}
	user := b.String()

	var body map[string]any
	if c.cfg.Provider == ProviderClaude {
		body = map[string]any{
			"model":       c.cfg.Model,
			"system":      systemPrompt,
			"messages":    []map[string]string{{"role": "user", "content": user}},
			"max_tokens":  c.cfg.MaxTokens,
			"temperature": c.cfg.Temperature,
		}
	} else {
		body = map[string]any{
			"model":       c.cfg.Model,
			"messages":    []map[string]string{{"role": "system", "content": systemPrompt}, {"role": "user", "content": user}},
			"max_tokens":  c.cfg.MaxTokens,
			"temperature": c.cfg.Temperature,
		}
	}

	provider := strings.ToLower(c.cfg.Provider)
	resp, err := c.client.R().SetContext(ctx).SetBody(body).Post(c.cfg.Endpoint)
	if err != nil {
		return types.SentimentSignal{}, fmt.Errorf("%s sentiment request failed: %w", provider, err)
	}
	if resp.IsError() {
		logger.Warn(ctx, "LLM API error response", "provider", c.cfg.Provider, "status", resp.StatusCode(), "attempts", resp.Request.Attempt)
		return types.SentimentSignal{}, fmt.Errorf("%s API error %d: %s", provider, resp.StatusCode(), resp.String())
	}

	text, err := c.extractText(resp.Body())
	if err != nil {
		return types.SentimentSignal{}, err
	}
	sig := parseSignal(text)
	logger.Debug(ctx, "LLM scored headlines", "provider", c.cfg.Provider, "headlines", len(headlines), "label", sig.Label, "probability", sig.Probability)
	return sig, nil
}

func (c *Classifier) extractText(body []byte) (string, error) {
	if c.cfg.Provider == ProviderClaude {
		var r struct {
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		}
		if err := json.Unmarshal(body, &r); err != nil {
			return "", fmt.Errorf("failed to parse claude response: %w", err)
		}
		for _, part := range r.Content {
			if part.Type == "text" && strings.TrimSpace(part.Text) != "" {
				return part.Text, nil
			}
		}
		return "", errors.New("no text content in claude response")
	}

	var r struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &r); err != nil {
		return "", fmt.Errorf("failed to parse openai response: %w", err)
	}
	if len(r.Choices) == 0 {
		return "", errors.New("no choices")
	}
	return r.Choices[0].Message.Content, nil
}

type answer struct {
	Label       string  `json:"label"`
	Probability float64 `json:"probability"`
}

// parseSignal locates the first JSON object in text. Unparseable output is neutral.
func parseSignal(text string) types.SentimentSignal {
	t := strings.TrimSpace(text)
	start := strings.Index(t, "{")
	end := strings.LastIndex(t, "}")
	if start < 0 || end <= start {
		return types.NeutralSignal()
	}

	var a answer
	if err := json.Unmarshal([]byte(t[start:end+1]), &a); err != nil {
		return types.NeutralSignal()
	}
	label := sentiment.ParseLabel(a.Label)
	return types.SentimentSignal{Probability: sentiment.Clamp(a.Probability), Label: label}
}
