package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ppiankov/firecheck/internal/cache"
	"github.com/ppiankov/firecheck/internal/metrics"
	"github.com/ppiankov/firecheck/internal/model"
)

// defaultSharedTimeout bounds a collapsed provider call when no timeout is configured
const defaultSharedTimeout = 2 * time.Minute

// CacheOption configures a cached searcher or scraper
type CacheOption func(*cacheOptions)

type cacheOptions struct {
	logger        *slog.Logger
	sharedTimeout time.Duration
}

// WithCacheLogger sets the logger for cache write failures
func WithCacheLogger(logger *slog.Logger) CacheOption {
	return func(o *cacheOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithSharedTimeout bounds a provider call shared by collapsed callers.
// The shared call does not inherit any single caller's cancellation.
func WithSharedTimeout(d time.Duration) CacheOption {
	return func(o *cacheOptions) {
		if d > 0 {
			o.sharedTimeout = d
		}
	}
}

func newCacheOptions(opts []CacheOption) cacheOptions {
	o := cacheOptions{logger: slog.New(slog.DiscardHandler), sharedTimeout: defaultSharedTimeout}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// sharedContext detaches the collapsed call from the caller that happened to start it
func sharedContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), timeout)
}

// CachedSearcher memoizes search results and collapses identical in-flight queries
type CachedSearcher struct {
	next          Searcher
	cache         cache.Cache
	ttl           time.Duration
	group         singleflight.Group
	sharedTimeout time.Duration
	logger        *slog.Logger
}

// NewCachedSearcher wraps next. A nil cache returns next unchanged.
func NewCachedSearcher(next Searcher, c cache.Cache, ttl time.Duration, opts ...CacheOption) Searcher {
	if c == nil {
		return next
	}
	o := newCacheOptions(opts)
	return &CachedSearcher{next: next, cache: c, ttl: ttl, sharedTimeout: o.sharedTimeout, logger: o.logger}
}

// Name returns the wrapped provider name
func (s *CachedSearcher) Name() string {
	return s.next.Name()
}

// Search returns cached results when present. Errors are never cached.
func (s *CachedSearcher) Search(ctx context.Context, query string, count int) ([]model.SearchResult, error) {
	key := cache.Key("search", s.next.Name(), strconv.Itoa(count), strings.ToLower(strings.Join(strings.Fields(query), " ")))

	if data, ok := s.cache.Get(key); ok {
		var results []model.SearchResult
		if err := json.Unmarshal(data, &results); err == nil {
			metrics.CacheLookups.WithLabelValues("search", "hit").Inc()
			return results, nil
		}
		_ = s.cache.Delete(key)
	}
	metrics.CacheLookups.WithLabelValues("search", "miss").Inc()

	ch := s.group.DoChan(key, func() (interface{}, error) {
		callCtx, cancel := sharedContext(ctx, s.sharedTimeout)
		defer cancel()

		results, err := s.next.Search(callCtx, query, count)
		if err != nil {
			return nil, err
		}
		if data, err := json.Marshal(results); err == nil {
			if err := s.cache.Set(key, data, s.ttl); err != nil {
				s.logger.Debug("cache write failed", "namespace", "search", "error", err)
			}
		}
		return results, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, res.Err
	}

	shared := res.Val.([]model.SearchResult)
	out := make([]model.SearchResult, len(shared))
	copy(out, shared)
	return out, nil
}

// CachedScraper memoizes successful scrapes and collapses concurrent fetches of the same URL
type CachedScraper struct {
	next          Scraper
	cache         cache.Cache
	ttl           time.Duration
	group         singleflight.Group
	sharedTimeout time.Duration
	logger        *slog.Logger
}

// NewCachedScraper wraps next. A nil cache returns next unchanged.
func NewCachedScraper(next Scraper, c cache.Cache, ttl time.Duration, opts ...CacheOption) Scraper {
	if c == nil {
		return next
	}
	o := newCacheOptions(opts)
	return &CachedScraper{next: next, cache: c, ttl: ttl, sharedTimeout: o.sharedTimeout, logger: o.logger}
}

// Name returns the wrapped provider name
func (s *CachedScraper) Name() string {
	return s.next.Name()
}

// Scrape returns a cached page when present. Failed scrapes are never cached.
func (s *CachedScraper) Scrape(ctx context.Context, rawURL string) (*model.ScrapedPage, error) {
	target := CleanURL(rawURL)
	key := cache.Key("scrape", s.next.Name(), target)

	if data, ok := s.cache.Get(key); ok {
		var page model.ScrapedPage
		if err := json.Unmarshal(data, &page); err == nil && page.Success {
			metrics.CacheLookups.WithLabelValues("scrape", "hit").Inc()
			return &page, nil
		}
		_ = s.cache.Delete(key)
	}
	metrics.CacheLookups.WithLabelValues("scrape", "miss").Inc()

	type scrapeOutcome struct {
		page *model.ScrapedPage
		err  error
	}

	ch := s.group.DoChan(key, func() (interface{}, error) {
		callCtx, cancel := sharedContext(ctx, s.sharedTimeout)
		defer cancel()

		page, err := s.next.Scrape(callCtx, target)
		if err == nil && page != nil && page.Success {
			if data, err := json.Marshal(page); err == nil {
				if err := s.cache.Set(key, data, s.ttl); err != nil {
					s.logger.Debug("cache write failed", "namespace", "scrape", "error", err)
				}
			}
		}
		return scrapeOutcome{page: page, err: err}, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return failedPage(target, ctx.Err()), ctx.Err()
	case res = <-ch:
	}

	outcome := res.Val.(scrapeOutcome)
	if outcome.page == nil {
		return outcome.page, outcome.err
	}
	page := *outcome.page
	return &page, outcome.err
}
