package news

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"sentiment-trading-bot/internal/store"
	"sentiment-trading-bot/internal/types"
)

type stubProvider struct {
	headlines []types.Headline
	err       error
	calls     int
}

func (p *stubProvider) Headlines(context.Context, string, time.Time, time.Time) ([]types.Headline, error) {
	p.calls++
	return p.headlines, p.err
}

var (
	windowEnd   = time.Date(2024, 4, 10, 16, 0, 0, 0, time.UTC)
	windowStart = windowEnd.AddDate(0, 0, -3)
)

func TestHeadlineCache(t *testing.T) {
	cache := newHeadlineCache(1 * time.Second)

	key := cacheKey("spy", windowStart, windowEnd)
	cache.set(key, []types.Headline{{Headline: "Fed holds rates"}})

	retrieved, found := cache.get(cacheKey("SPY", windowStart, windowEnd.Add(10*time.Second)))
	if !found {
		t.Fatal("Expected to find cached headlines")
	}
	if len(retrieved) != 1 || retrieved[0].Headline != "Fed holds rates" {
		t.Errorf("Expected cached headline, got %v", retrieved)
	}

	// Test expiration
	time.Sleep(1100 * time.Millisecond)
	if _, found = cache.get(key); found {
		t.Error("Expected cache entry to be expired")
	}
}

func TestServiceConfig(t *testing.T) {
	cfg := DefaultServiceConfig()
	if cfg.MaxHeadlines != 50 {
		t.Errorf("Expected MaxHeadlines to be 50, got %d", cfg.MaxHeadlines)
	}
	if cfg.CacheDuration != 1*time.Hour {
		t.Errorf("Expected CacheDuration to be 1 hour, got %v", cfg.CacheDuration)
	}

	botCfg := &store.Config{}
	botCfg.News.MaxHeadlines = 10
	botCfg.News.CacheMinutes = 5
	mapped := ServiceConfigFrom(botCfg)
	if mapped.MaxHeadlines != 10 || mapped.CacheDuration != 5*time.Minute {
		t.Errorf("Unexpected mapped config %+v", mapped)
	}
}

func TestServiceUsesCache(t *testing.T) {
	primary := &stubProvider{headlines: []types.Headline{{Headline: "Stocks rally"}}}
	svc := NewService(primary, nil, DefaultServiceConfig())

	for i := 0; i < 2; i++ {
		got, err := svc.Headlines(context.Background(), "SPY", windowStart, windowEnd)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if len(got) != 1 {
			t.Fatalf("Expected 1 headline, got %d", len(got))
		}
	}
	if primary.calls != 1 {
		t.Errorf("Expected 1 provider call, got %d", primary.calls)
	}

	svc.ClearCache()
	if _, err := svc.Headlines(context.Background(), "SPY", windowStart, windowEnd); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if primary.calls != 2 {
		t.Errorf("Expected cache clear to force a fetch, got %d calls", primary.calls)
	}
}

func TestServiceFallback(t *testing.T) {
	fallback := &stubProvider{headlines: []types.Headline{{Headline: "From RSS"}}}

	svc := NewService(&stubProvider{err: errors.New("401 unauthorized")}, fallback, &ServiceConfig{})
	got, err := svc.Headlines(context.Background(), "SPY", windowStart, windowEnd)
	if err != nil {
		t.Fatalf("Expected fallback to recover, got %v", err)
	}
	if len(got) != 1 || got[0].Headline != "From RSS" {
		t.Errorf("Expected fallback headline, got %v", got)
	}

	empty := &stubProvider{}
	svc = NewService(empty, &stubProvider{err: errors.New("rss down")}, &ServiceConfig{})
	got, err = svc.Headlines(context.Background(), "SPY", windowStart, windowEnd)
	if err != nil {
		t.Fatalf("Primary succeeded with no news, expected no error, got %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Expected no headlines, got %v", got)
	}
}

func TestServiceAllProvidersFail(t *testing.T) {
	svc := NewService(&stubProvider{err: errors.New("alpaca down")}, &stubProvider{err: errors.New("rss down")}, nil)
	_, err := svc.Headlines(context.Background(), "SPY", windowStart, windowEnd)
	if err == nil {
		t.Fatal("Expected error when every provider fails")
	}
	if !strings.Contains(err.Error(), "alpaca down") || !strings.Contains(err.Error(), "rss down") {
		t.Errorf("Expected both causes in error, got %v", err)
	}
}

func TestClean(t *testing.T) {
	in := []types.Headline{
		{Headline: "  <b>Apple</b>   beats &amp; raises ", CreatedAt: windowEnd.Add(-2 * time.Hour)},
		{Headline: "apple beats & raises", CreatedAt: windowEnd.Add(-time.Hour)},
		{Headline: "   ", CreatedAt: windowEnd},
		{Headline: "Newest story", CreatedAt: windowEnd},
		{Headline: "Oldest story", CreatedAt: windowStart},
	}

	got := Clean(in, 2)
	if len(got) != 2 {
		t.Fatalf("Expected 2 headlines after cap, got %d: %v", len(got), got)
	}
	if got[0].Headline != "Newest story" {
		t.Errorf("Expected newest first, got %q", got[0].Headline)
	}
	if got[1].Headline != "Apple beats & raises" {
		t.Errorf("Expected sanitized headline, got %q", got[1].Headline)
	}
}

func TestSanitize(t *testing.T) {
	cases := map[string]string{
		"Plain headline":                "Plain headline",
		"<p>Tagged <i>text</i></p>":     "Tagged text",
		"AT&amp;T   slips\n after call": "AT&T slips after call",
	}
	for in, want := range cases {
		if got := Sanitize(in); got != want {
			t.Errorf("Sanitize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParsePubDate(t *testing.T) {
	got, err := parsePubDate("Wed, 10 Apr 2024 13:05:00 GMT")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !got.Equal(time.Date(2024, 4, 10, 13, 5, 0, 0, time.UTC)) {
		t.Errorf("Unexpected time %v", got)
	}
	if _, err := parsePubDate("yesterday"); err == nil {
		t.Error("Expected error for unparseable date")
	}
}

func TestScraperReadsFeedWithinWindow(t *testing.T) {
	feed := `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel>
<item><title>SPY climbs on jobs data</title><link>https://example.com/a</link><pubDate>Wed, 10 Apr 2024 13:05:00 GMT</pubDate><source url="https://example.com">Example</source></item>
<item><title>Old news</title><link>https://example.com/b</link><pubDate>Mon, 01 Apr 2024 09:00:00 GMT</pubDate></item>
</channel></rss>`

	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query().Get("q")
		w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
		fmt.Fprint(w, feed)
	}))
	defer srv.Close()

	s := NewScraper(srv.URL+"/rss/search?q={query}", 5*time.Second)
	got, err := s.Headlines(context.Background(), "SPY", windowStart, windowEnd)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if query != "SPY stock" {
		t.Errorf("Expected search query 'SPY stock', got %q", query)
	}
	if len(got) != 1 {
		t.Fatalf("Expected 1 headline in window, got %d: %v", len(got), got)
	}
	if got[0].Headline != "SPY climbs on jobs data" || got[0].Source != "Example" {
		t.Errorf("Unexpected headline %+v", got[0])
	}
}

func TestAlpacaProviderPaginates(t *testing.T) {
	var tokens []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1beta1/news" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("APCA-API-KEY-ID") != "key" || r.Header.Get("APCA-API-SECRET-KEY") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		tok := r.URL.Query().Get("page_token")
		tokens = append(tokens, tok)
		w.Header().Set("Content-Type", "application/json")
		if tok == "" {
			fmt.Fprint(w, `{"news":[{"id":1,"headline":"First","source":"benzinga","created_at":"2024-04-10T12:00:00Z"}],"next_page_token":"p2"}`)
			return
		}
		fmt.Fprint(w, `{"news":[{"id":2,"headline":"Second","source":"benzinga","created_at":"2024-04-09T12:00:00Z"}],"next_page_token":null}`)
	}))
	defer srv.Close()

	p := NewAlpacaProvider(srv.URL, "key", "secret", 5*time.Second)
	got, err := p.Headlines(context.Background(), "SPY", windowStart, windowEnd)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(got) != 2 || got[1].Headline != "Second" {
		t.Errorf("Expected two pages of headlines, got %v", got)
	}
	if len(tokens) != 2 || tokens[1] != "p2" {
		t.Errorf("Expected page token to be forwarded, got %v", tokens)
	}

	bad := NewAlpacaProvider(srv.URL, "key", "wrong", 5*time.Second)
	if _, err := bad.Headlines(context.Background(), "SPY", windowStart, windowEnd); err == nil {
		t.Error("Expected error on unauthorized response")
	}
}
