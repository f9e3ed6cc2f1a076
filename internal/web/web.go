// Package web provides the search and scrape providers used by research.
package web

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/firecheck/internal/model"
)

// Searcher runs a web search. A failed call returns an error; an empty
// result list is not an error.
type Searcher interface {
	Name() string
	Search(ctx context.Context, query string, count int) ([]model.SearchResult, error)
}

// Scraper fetches a page and returns its text. On failure it returns a page
// with Success=false and the error that caused it.
type Scraper interface {
	Name() string
	Scrape(ctx context.Context, rawURL string) (*model.ScrapedPage, error)
}

// TruncationMarker is appended to page text cut at the configured limit
const TruncationMarker = "\n\n[Content truncated...]"

const (
	maxErrorBodyBytes = 8 * 1024
	maxQueryWords     = 50
)

// ErrMissingAPIKey is returned by providers constructed without credentials
var ErrMissingAPIKey = errors.New("api key is not configured")

// APIError is a non-2xx response from a provider API
type APIError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e APIError) Error() string {
	return fmt.Sprintf("%s returned %d: %s", e.Provider, e.StatusCode, e.Body)
}

// Truncate cuts text to maxChars runes and appends TruncationMarker when it was cut.
// maxChars <= 0 disables truncation.
func Truncate(text string, maxChars int) string {
	if maxChars <= 0 || utf8.RuneCountInString(text) <= maxChars {
		return text
	}
	return trimToRunes(text, maxChars) + TruncationMarker
}

var markdownLink = regexp.MustCompile(`^\[[^\]]*\]\((.+)\)$`)

// CleanURL normalizes a URL as emitted by a language model: surrounding
// whitespace, quotes, angle brackets and markdown link syntax are removed,
// trailing punctuation is dropped and a missing scheme becomes https.
func CleanURL(raw string) string {
	u := strings.TrimSpace(raw)
	if m := markdownLink.FindStringSubmatch(u); m != nil {
		u = strings.TrimSpace(m[1])
	}

	u = strings.TrimLeft(u, "\"'`<[({ ")
	for {
		trimmed := strings.TrimRight(u, "\"'`>]} .,;:!?")
		// Keep a closing paren that balances one in the path, e.g. Foo_(bar)
		if strings.HasSuffix(trimmed, ")") && strings.Count(trimmed, "(") < strings.Count(trimmed, ")") {
			trimmed = strings.TrimSuffix(trimmed, ")")
		}
		if trimmed == u {
			break
		}
		u = trimmed
	}

	if u == "" {
		return ""
	}
	switch {
	case strings.HasPrefix(u, "//"):
		u = "https:" + u
	case !strings.Contains(u, "://"):
		u = "https://" + u
	}
	return u
}

// failedPage builds the failure record returned alongside a scrape error
func failedPage(rawURL string, err error) *model.ScrapedPage {
	return &model.ScrapedPage{
		URL:     rawURL,
		Success: false,
		Error:   err.Error(),
	}
}

func trimToRunes(raw string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(raw) <= limit {
		return raw
	}
	return string([]rune(raw)[:limit])
}

func trimToWordLimit(input string, maxWords int) string {
	if maxWords <= 0 {
		return ""
	}
	words := strings.Fields(strings.TrimSpace(input))
	if len(words) <= maxWords {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:maxWords], " ")
}
