package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ppiankov/firecheck/internal/model"
)

const defaultSerperURL = "https://google.serper.dev/search"

// SerperSearcher queries Google through the Serper API
type SerperSearcher struct {
	apiKey     string
	endpoint   string
	country    string
	httpClient *http.Client
}

type serperRequest struct {
	Query   string `json:"q"`
	Num     int    `json:"num"`
	Country string `json:"gl,omitempty"`
}

type serperResponse struct {
	Organic []struct {
		Title    string `json:"title"`
		Link     string `json:"link"`
		Snippet  string `json:"snippet"`
		Position int    `json:"position"`
	} `json:"organic"`
}

// NewSerperSearcher creates a Serper client. An empty endpoint uses the public API.
func NewSerperSearcher(apiKey, endpoint, country string, httpClient *http.Client) *SerperSearcher {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		endpoint = defaultSerperURL
	}
	return &SerperSearcher{
		apiKey:     strings.TrimSpace(apiKey),
		endpoint:   endpoint,
		country:    country,
		httpClient: httpClient,
	}
}

// Name returns the provider name
func (s *SerperSearcher) Name() string {
	return "serper"
}

// Search returns up to count organic results ranked from 1
func (s *SerperSearcher) Search(ctx context.Context, query string, count int) ([]model.SearchResult, error) {
	if s.apiKey == "" {
		return nil, fmt.Errorf("serper: %w", ErrMissingAPIKey)
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return []model.SearchResult{}, nil
	}
	if count <= 0 {
		count = 10
	}

	payload, err := json.Marshal(serperRequest{Query: query, Num: count, Country: s.country})
	if err != nil {
		return nil, fmt.Errorf("encode serper request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build serper request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request serper: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, APIError{
			Provider:   "serper",
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	var parsed serperResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode serper response: %w", err)
	}

	results := make([]model.SearchResult, 0, len(parsed.Organic))
	seen := make(map[string]struct{}, len(parsed.Organic))
	for _, item := range parsed.Organic {
		link := strings.TrimSpace(item.Link)
		if link == "" {
			continue
		}
		if _, dup := seen[link]; dup {
			continue
		}
		seen[link] = struct{}{}

		results = append(results, model.SearchResult{
			Title:   strings.TrimSpace(item.Title),
			Link:    link,
			Snippet: strings.TrimSpace(item.Snippet),
			Rank:    len(results) + 1,
		})
		if len(results) >= count {
			break
		}
	}

	return results, nil
}
