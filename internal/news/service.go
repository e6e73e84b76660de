package news

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"sentiment-trading-bot/internal/interfaces"
	"sentiment-trading-bot/internal/logger"
	"sentiment-trading-bot/internal/store"
	"sentiment-trading-bot/internal/types"
)

// Service combines a primary and an optional fallback provider behind a TTL
// cache and cleans the headlines it returns.
type Service struct {
	primary  interfaces.NewsProvider
	fallback interfaces.NewsProvider
	cache    *headlineCache
	cfg      *ServiceConfig
}

var _ interfaces.NewsProvider = (*Service)(nil)

// ServiceConfig configures the news service
type ServiceConfig struct {
	MaxHeadlines  int           // Cap on headlines returned per window, 0 for no cap
	CacheDuration time.Duration // How long a fetched window is reused
}

// DefaultServiceConfig returns default configuration
func DefaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		MaxHeadlines:  50,
		CacheDuration: 1 * time.Hour,
	}
}

// ServiceConfigFrom maps the news section of the bot config.
func ServiceConfigFrom(cfg *store.Config) *ServiceConfig {
	return &ServiceConfig{
		MaxHeadlines:  cfg.News.MaxHeadlines,
		CacheDuration: time.Duration(cfg.News.CacheMinutes) * time.Minute,
	}
}

type headlineCache struct {
	mu   sync.RWMutex
	data map[string]*cacheEntry
	ttl  time.Duration
}

type cacheEntry struct {
	headlines []types.Headline
	timestamp time.Time
}

func newHeadlineCache(ttl time.Duration) *headlineCache {
	return &headlineCache{
		data: make(map[string]*cacheEntry),
		ttl:  ttl,
	}
}

func (c *headlineCache) get(key string) ([]types.Headline, bool) {
	if c.ttl <= 0 {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.data[key]
	if !exists || time.Since(entry.timestamp) > c.ttl {
		return nil, false
	}
	return append([]types.Headline(nil), entry.headlines...), true
}

// set stores headlines and drops expired entries.
func (c *headlineCache) set(key string, headlines []types.Headline) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for k, e := range c.data {
		if now.Sub(e.timestamp) > c.ttl {
			delete(c.data, k)
		}
	}
	c.data[key] = &cacheEntry{headlines: append([]types.Headline(nil), headlines...), timestamp: now}
}

func (c *headlineCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string]*cacheEntry)
}

// NewService creates a news service. fallback may be nil.
func NewService(primary, fallback interfaces.NewsProvider, cfg *ServiceConfig) *Service {
	if cfg == nil {
		cfg = DefaultServiceConfig()
	}
	return &Service{
		primary:  primary,
		fallback: fallback,
		cache:    newHeadlineCache(cfg.CacheDuration),
		cfg:      cfg,
	}
}

func cacheKey(symbol string, start, end time.Time) string {
	return fmt.Sprintf("%s|%d|%d", strings.ToUpper(symbol), start.Truncate(time.Minute).Unix(), end.Truncate(time.Minute).Unix())
}

// Headlines returns cleaned headlines for the window. The fallback is used
// when the primary fails or finds nothing; an error is returned only when
// every provider failed.
func (s *Service) Headlines(ctx context.Context, symbol string, start, end time.Time) ([]types.Headline, error) {
	key := cacheKey(symbol, start, end)
	if cached, ok := s.cache.get(key); ok {
		logger.Debug(ctx, "Using cached headlines", "symbol", symbol, "headlines", len(cached))
		return cached, nil
	}

	raw, err := s.primary.Headlines(ctx, symbol, start, end)
	if err != nil {
		logger.ErrorWithErr(ctx, "Primary news provider failed", err, "symbol", symbol)
	}

	if (err != nil || len(raw) == 0) && s.fallback != nil {
		logger.Info(ctx, "Trying fallback news provider", "symbol", symbol)
		fb, ferr := s.fallback.Headlines(ctx, symbol, start, end)
		switch {
		case ferr == nil:
			raw, err = fb, nil
		case err != nil:
			err = errors.Join(err, ferr)
		default:
			logger.ErrorWithErr(ctx, "Fallback news provider failed", ferr, "symbol", symbol)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("news unavailable for %s: %w", symbol, err)
	}

	headlines := Clean(raw, s.cfg.MaxHeadlines)
	s.cache.set(key, headlines)
	logger.Info(ctx, "Headlines fetched", "symbol", symbol, "raw", len(raw), "kept", len(headlines))
	return headlines, nil
}

// ClearCache removes all cached windows
func (s *Service) ClearCache() {
	s.cache.clear()
}

// Clean strips markup, collapses whitespace, drops empty and duplicate
// headlines, orders newest first and applies the cap.
func Clean(in []types.Headline, limit int) []types.Headline {
	seen := make(map[string]struct{}, len(in))
	out := make([]types.Headline, 0, len(in))
	for _, h := range in {
		text := Sanitize(h.Headline)
		if text == "" {
			continue
		}
		k := strings.ToLower(text)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		h.Headline = text
		out = append(out, h)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Sanitize returns the text content of a headline that may carry HTML.
func Sanitize(s string) string {
	if strings.ContainsAny(s, "<&") {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(s)); err == nil {
			s = doc.Text()
		}
	}
	return strings.Join(strings.Fields(s), " ")
}
