package news

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"sentiment-trading-bot/internal/interfaces"
	"sentiment-trading-bot/internal/logger"
	"sentiment-trading-bot/internal/types"
)

// DefaultRSSURL is the Google News search feed. {query} is replaced with the
// escaped search terms.
const DefaultRSSURL = "https://news.google.com/rss/search?q={query}&hl=en-US&gl=US&ceid=US:en"

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Scraper reads headlines from an RSS search feed.
type Scraper struct {
	feedURL string
	timeout time.Duration
}

var _ interfaces.NewsProvider = (*Scraper)(nil)

// NewScraper uses DefaultRSSURL when feedURL is empty.
func NewScraper(feedURL string, timeout time.Duration) *Scraper {
	if feedURL == "" {
		feedURL = DefaultRSSURL
	}
	return &Scraper{feedURL: feedURL, timeout: timeout}
}

// Headlines visits the feed once and keeps items published within [start, end].
func (s *Scraper) Headlines(ctx context.Context, symbol string, start, end time.Time) ([]types.Headline, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	feed := s.searchURL(symbol)

	c := colly.NewCollector(
		colly.AllowedDomains(getDomain(feed)),
		colly.MaxDepth(1),
		colly.UserAgent(userAgent),
	)
	if s.timeout > 0 {
		c.SetRequestTimeout(s.timeout)
	}

	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
		}
	})

	var (
		out      []types.Headline
		skipped  int
		visitErr error
	)
	c.OnXML("//item", func(e *colly.XMLElement) {
		title := strings.TrimSpace(e.ChildText("title"))
		if title == "" {
			return
		}
		published, err := parsePubDate(e.ChildText("pubDate"))
		if err != nil || !inWindow(published, start, end) {
			skipped++
			return
		}
		out = append(out, types.Headline{
			Headline:  title,
			Source:    strings.TrimSpace(e.ChildText("source")),
			URL:       strings.TrimSpace(e.ChildText("link")),
			CreatedAt: published,
		})
	})

	c.OnError(func(r *colly.Response, err error) {
		visitErr = fmt.Errorf("feed request failed with status %d: %w", r.StatusCode, err)
	})

	if err := c.Visit(feed); err != nil {
		return nil, fmt.Errorf("failed to visit %s: %w", feed, err)
	}
	c.Wait()

	if visitErr != nil {
		return nil, visitErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logger.Debug(ctx, "RSS news scraped", "symbol", symbol, "headlines", len(out), "outside_window", skipped)
	return out, nil
}

func (s *Scraper) searchURL(symbol string) string {
	q := url.QueryEscape(symbol + " stock")
	return strings.ReplaceAll(s.feedURL, "{query}", q)
}

var pubDateLayouts = []string{time.RFC1123, time.RFC1123Z, time.RFC3339}

func parsePubDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range pubDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized pubDate %q", s)
}

func inWindow(t, start, end time.Time) bool {
	return !t.Before(start) && !t.After(end)
}

// getDomain extracts domain from URL
func getDomain(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
