package news

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"sentiment-trading-bot/internal/interfaces"
	"sentiment-trading-bot/internal/logger"
	"sentiment-trading-bot/internal/types"
)

const (
	DefaultAlpacaDataURL = "https://data.alpaca.markets"
	alpacaNewsPageLimit  = 50
	alpacaMaxPages       = 20
)

// AlpacaProvider reads headlines from the Alpaca market data news endpoint.
type AlpacaProvider struct {
	client *resty.Client
}

var _ interfaces.NewsProvider = (*AlpacaProvider)(nil)

func NewAlpacaProvider(dataURL, keyID, secret string, timeout time.Duration) *AlpacaProvider {
	if dataURL == "" {
		dataURL = DefaultAlpacaDataURL
	}
	client := resty.New()
	client.SetBaseURL(dataURL)
	client.SetTimeout(timeout)
	client.SetHeader("APCA-API-KEY-ID", keyID)
	client.SetHeader("APCA-API-SECRET-KEY", secret)
	client.SetHeader("Accept", "application/json")

	return &AlpacaProvider{client: client}
}

type alpacaNewsItem struct {
	ID        int64     `json:"id"`
	Headline  string    `json:"headline"`
	Source    string    `json:"source"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
	Symbols   []string  `json:"symbols"`
}

type alpacaNewsPage struct {
	News          []alpacaNewsItem `json:"news"`
	NextPageToken *string          `json:"next_page_token"`
}

// Headlines follows next_page_token until the window is exhausted.
func (p *AlpacaProvider) Headlines(ctx context.Context, symbol string, start, end time.Time) ([]types.Headline, error) {
	var (
		out   []types.Headline
		token string
	)
	for page := 0; page < alpacaMaxPages; page++ {
		req := p.client.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"symbols": symbol,
				"start":   start.UTC().Format(time.RFC3339),
				"end":     end.UTC().Format(time.RFC3339),
				"limit":   strconv.Itoa(alpacaNewsPageLimit),
				"sort":    "desc",
			})
		if token != "" {
			req.SetQueryParam("page_token", token)
		}

		resp, err := req.Get("/v1beta1/news")
		if err != nil {
			return nil, fmt.Errorf("failed to fetch news for %s: %w", symbol, err)
		}
		if resp.StatusCode() != 200 {
			return nil, fmt.Errorf("alpaca news API error %d: %s", resp.StatusCode(), resp.String())
		}

		var body alpacaNewsPage
		if err := json.Unmarshal(resp.Body(), &body); err != nil {
			return nil, fmt.Errorf("failed to parse news response: %w", err)
		}
		for _, n := range body.News {
			out = append(out, types.Headline{
				Headline:  n.Headline,
				Source:    n.Source,
				URL:       n.URL,
				CreatedAt: n.CreatedAt,
			})
		}

		if body.NextPageToken == nil || *body.NextPageToken == "" {
			break
		}
		token = *body.NextPageToken
	}

	logger.Debug(ctx, "Alpaca news fetched", "symbol", symbol, "headlines", len(out))
	return out, nil
}
