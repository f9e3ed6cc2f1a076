package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ppiankov/firecheck/internal/model"
)

const defaultFirecrawlURL = "https://api.firecrawl.dev"

// FirecrawlScraper renders pages to markdown through the Firecrawl API
type FirecrawlScraper struct {
	apiKey     string
	baseURL    string
	maxChars   int
	httpClient *http.Client
}

type firecrawlRequest struct {
	URL             string   `json:"url"`
	Formats         []string `json:"formats"`
	OnlyMainContent bool     `json:"onlyMainContent"`
}

type firecrawlResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Data    struct {
		Markdown string `json:"markdown"`
		Metadata struct {
			Title      string `json:"title"`
			SourceURL  string `json:"sourceURL"`
			StatusCode int    `json:"statusCode"`
			Error      string `json:"error"`
		} `json:"metadata"`
	} `json:"data"`
}

// NewFirecrawlScraper creates a Firecrawl client. Page text is cut at maxChars.
func NewFirecrawlScraper(apiKey, baseURL string, maxChars int, httpClient *http.Client) *FirecrawlScraper {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultFirecrawlURL
	}
	return &FirecrawlScraper{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    baseURL,
		maxChars:   maxChars,
		httpClient: httpClient,
	}
}

// Name returns the provider name
func (f *FirecrawlScraper) Name() string {
	return "firecrawl"
}

// Scrape fetches the page as markdown
func (f *FirecrawlScraper) Scrape(ctx context.Context, rawURL string) (*model.ScrapedPage, error) {
	target := CleanURL(rawURL)
	page, err := f.scrape(ctx, target)
	if err != nil {
		return failedPage(target, err), err
	}
	return page, nil
}

func (f *FirecrawlScraper) scrape(ctx context.Context, target string) (*model.ScrapedPage, error) {
	if f.apiKey == "" {
		return nil, fmt.Errorf("firecrawl: %w", ErrMissingAPIKey)
	}
	if target == "" {
		return nil, errors.New("empty url")
	}

	payload, err := json.Marshal(firecrawlRequest{
		URL:             target,
		Formats:         []string{"markdown"},
		OnlyMainContent: true,
	})
	if err != nil {
		return nil, fmt.Errorf("encode firecrawl request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.baseURL+"/v1/scrape", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build firecrawl request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+f.apiKey)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request firecrawl: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, APIError{
			Provider:   "firecrawl",
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	var parsed firecrawlResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode firecrawl response: %w", err)
	}
	if !parsed.Success {
		msg := parsed.Error
		if msg == "" {
			msg = parsed.Data.Metadata.Error
		}
		if msg == "" {
			msg = "scrape unsuccessful"
		}
		return nil, fmt.Errorf("firecrawl: %s", msg)
	}
	if code := parsed.Data.Metadata.StatusCode; code >= 400 {
		return nil, fmt.Errorf("unexpected status: %d", code)
	}

	return &model.ScrapedPage{
		URL:     target,
		Text:    Truncate(parsed.Data.Markdown, f.maxChars),
		Title:   strings.TrimSpace(parsed.Data.Metadata.Title),
		Success: true,
	}, nil
}
