package web

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"

	"github.com/ppiankov/firecheck/internal/metrics"
	"github.com/ppiankov/firecheck/internal/model"
)

// ThrottledScraper bounds the number of scrapes in flight across all callers
type ThrottledScraper struct {
	next Scraper
	sem  *semaphore.Weighted
}

// NewThrottledScraper wraps next with a ceiling of maxConcurrent scrapes. maxConcurrent < 1 means 1.
func NewThrottledScraper(next Scraper, maxConcurrent int) *ThrottledScraper {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &ThrottledScraper{
		next: next,
		sem:  semaphore.NewWeighted(int64(maxConcurrent)),
	}
}

// Name returns the wrapped provider name
func (s *ThrottledScraper) Name() string {
	return s.next.Name()
}

// Scrape waits for a slot, then delegates
func (s *ThrottledScraper) Scrape(ctx context.Context, rawURL string) (*model.ScrapedPage, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		err = fmt.Errorf("acquire scrape slot: %w", err)
		return failedPage(CleanURL(rawURL), err), err
	}
	defer s.sem.Release(1)

	page, err := s.next.Scrape(ctx, rawURL)
	metrics.ScrapeCalls.WithLabelValues(s.next.Name(), metrics.Result(err)).Inc()
	return page, err
}

// instrumentedSearcher counts search calls
type instrumentedSearcher struct {
	next Searcher
}

func (s instrumentedSearcher) Name() string {
	return s.next.Name()
}

func (s instrumentedSearcher) Search(ctx context.Context, query string, count int) ([]model.SearchResult, error) {
	results, err := s.next.Search(ctx, query, count)
	metrics.SearchCalls.WithLabelValues(s.next.Name(), metrics.Result(err)).Inc()
	return results, err
}
