package web

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/ppiankov/firecheck/internal/model"
)

const (
	defaultBraveURL = "https://api.search.brave.com/res/v1"
	braveMaxCount   = 20
)

// BraveSearcher queries the Brave Search API
type BraveSearcher struct {
	apiKey     string
	baseURL    string
	country    string
	httpClient *http.Client
}

type braveResponse struct {
	Web struct {
		Results []braveResult `json:"results"`
	} `json:"web"`
	Results []braveResult `json:"results"`
}

type braveResult struct {
	URL           string   `json:"url"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Snippet       string   `json:"snippet"`
	ExtraSnippets []string `json:"extra_snippets"`
}

// NewBraveSearcher creates a Brave client. An empty baseURL uses the public API.
func NewBraveSearcher(apiKey, baseURL, country string, httpClient *http.Client) *BraveSearcher {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultBraveURL
	}
	return &BraveSearcher{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    baseURL,
		country:    country,
		httpClient: httpClient,
	}
}

// Name returns the provider name
func (b *BraveSearcher) Name() string {
	return "brave"
}

// Search returns up to count web results ranked from 1. Brave caps count at 20.
func (b *BraveSearcher) Search(ctx context.Context, query string, count int) ([]model.SearchResult, error) {
	if b.apiKey == "" {
		return nil, fmt.Errorf("brave: %w", ErrMissingAPIKey)
	}

	trimmedQuery := strings.TrimSpace(query)
	if trimmedQuery == "" {
		return []model.SearchResult{}, nil
	}
	trimmedQuery = trimToWordLimit(trimmedQuery, maxQueryWords)

	if count <= 0 {
		count = 10
	}
	if count > braveMaxCount {
		count = braveMaxCount
	}

	endpoint, err := url.Parse(b.baseURL + "/web/search")
	if err != nil {
		return nil, fmt.Errorf("parse brave endpoint: %w", err)
	}

	params := endpoint.Query()
	params.Set("q", trimmedQuery)
	params.Set("count", strconv.Itoa(count))
	params.Set("spellcheck", "0")
	params.Set("text_decorations", "0")
	if b.country != "" {
		params.Set("country", b.country)
	}
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build brave request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", b.apiKey)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request brave: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, APIError{
			Provider:   "brave",
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	var parsed braveResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode brave response: %w", err)
	}

	rawResults := parsed.Web.Results
	if len(rawResults) == 0 {
		rawResults = parsed.Results
	}

	results := make([]model.SearchResult, 0, len(rawResults))
	seenURLs := make(map[string]struct{}, len(rawResults))
	for _, item := range rawResults {
		rawURL := strings.TrimSpace(item.URL)
		if rawURL == "" {
			continue
		}
		if _, exists := seenURLs[rawURL]; exists {
			continue
		}
		seenURLs[rawURL] = struct{}{}

		title := strings.TrimSpace(item.Title)
		if title == "" {
			title = rawURL
		}

		snippet := strings.TrimSpace(item.Description)
		if snippet == "" {
			snippet = strings.TrimSpace(item.Snippet)
		}
		if snippet == "" && len(item.ExtraSnippets) > 0 {
			snippet = strings.TrimSpace(item.ExtraSnippets[0])
		}

		results = append(results, model.SearchResult{
			Title:   title,
			Link:    rawURL,
			Snippet: snippet,
			Rank:    len(results) + 1,
		})

		if len(results) >= count {
			break
		}
	}

	return results, nil
}
