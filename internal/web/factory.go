package web

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ppiankov/firecheck/internal/cache"
	"github.com/ppiankov/firecheck/internal/model"
	"github.com/ppiankov/firecheck/internal/util"
	"github.com/ppiankov/firecheck/internal/worker"
)

// NewAPIClient returns the HTTP client used for provider APIs
func NewAPIClient(cfg model.HTTPConfig) *http.Client {
	return &http.Client{
		Timeout: cfg.Timeout,
		Transport: &http.Transport{
			Proxy:             util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy),
			MaxIdleConns:      20,
			ForceAttemptHTTP2: true,
		},
	}
}

// NewSearcher builds the configured search provider with metrics, caching and authority tagging.
// c may be nil to disable caching.
func NewSearcher(cfg model.Config, c cache.Cache, logger *slog.Logger) (Searcher, error) {
	client := NewAPIClient(cfg.HTTP)

	var base Searcher
	switch strings.ToLower(strings.TrimSpace(cfg.Search.Provider)) {
	case "serper", "":
		base = NewSerperSearcher(cfg.Search.APIKey, cfg.Search.BaseURL, cfg.Search.Country, client)
	case "brave":
		base = NewBraveSearcher(cfg.Search.APIKey, cfg.Search.BaseURL, cfg.Search.Country, client)
	default:
		return nil, fmt.Errorf("unknown search provider: %s (supported: serper, brave)", cfg.Search.Provider)
	}

	var s Searcher = instrumentedSearcher{next: base}
	s = NewCachedSearcher(s, c, cfg.Cache.DiskTTL, WithCacheLogger(logger), WithSharedTimeout(sharedCallTimeout(cfg.HTTP)))
	return WithAuthority(s, NewAuthorityClassifier(cfg.Authority)), nil
}

// NewScraper builds the configured scrape provider with a concurrency ceiling and caching.
// limiter applies to the http provider only and may be nil.
func NewScraper(cfg model.Config, c cache.Cache, limiter *worker.Limiter, logger *slog.Logger) (Scraper, error) {
	var base Scraper
	switch strings.ToLower(strings.TrimSpace(cfg.Scrape.Provider)) {
	case "firecrawl", "":
		base = NewFirecrawlScraper(cfg.Scrape.APIKey, cfg.Scrape.BaseURL, cfg.Scrape.MaxChars, NewAPIClient(cfg.HTTP))
	case "http":
		base = NewHTTPScraper(HTTPScraperConfigFromModel(cfg), limiter)
	default:
		return nil, fmt.Errorf("unknown scrape provider: %s (supported: firecrawl, http)", cfg.Scrape.Provider)
	}

	throttled := NewThrottledScraper(base, cfg.Scrape.MaxConcurrent)
	return NewCachedScraper(throttled, c, cfg.Cache.DiskTTL, WithCacheLogger(logger), WithSharedTimeout(sharedCallTimeout(cfg.HTTP))), nil
}

// sharedCallTimeout covers every retry of one provider call plus backoff
func sharedCallTimeout(cfg model.HTTPConfig) time.Duration {
	if cfg.Timeout <= 0 {
		return 0
	}
	attempts := max(cfg.MaxRetries, 1)
	return time.Duration(attempts)*cfg.Timeout + time.Duration(1<<attempts)*time.Second
}
