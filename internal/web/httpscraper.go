package web

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/http/httpproxy"

	"github.com/ppiankov/firecheck/internal/model"
	"github.com/ppiankov/firecheck/internal/util"
	"github.com/ppiankov/firecheck/internal/worker"
)

// fetchSleepFunc waits between retries; overridden in tests to skip backoff
var fetchSleepFunc = sleepContext

// sleepContext waits for d or until ctx ends
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ErrRobotsDisallowed is returned when robots.txt forbids the fetch
var ErrRobotsDisallowed = errors.New("disallowed by robots.txt")

// HTTPScraperConfig configures direct page fetching
type HTTPScraperConfig struct {
	Timeout           time.Duration
	UserAgent         string
	MaxBodyBytes      int64
	MaxRetries        int
	MaxChars          int
	RespectRobots     bool
	InsecureTLS       bool
	AllowPrivateHosts bool
	HTTPProxy         string
	HTTPSProxy        string
	NoProxy           string
}

// HTTPScraperConfigFromModel builds the scraper config from the http and scrape sections
func HTTPScraperConfigFromModel(cfg model.Config) HTTPScraperConfig {
	return HTTPScraperConfig{
		Timeout:           cfg.HTTP.Timeout,
		UserAgent:         cfg.HTTP.UserAgent,
		MaxBodyBytes:      cfg.HTTP.MaxBodyBytes,
		MaxRetries:        cfg.HTTP.MaxRetries,
		MaxChars:          cfg.Scrape.MaxChars,
		RespectRobots:     cfg.Scrape.RespectRobots,
		InsecureTLS:       cfg.HTTP.InsecureTLS,
		AllowPrivateHosts: cfg.HTTP.AllowPrivateHosts,
		HTTPProxy:         cfg.HTTP.HTTPProxy,
		HTTPSProxy:        cfg.HTTP.HTTPSProxy,
		NoProxy:           cfg.HTTP.NoProxy,
	}
}

// HTTPScraper fetches pages directly and extracts their text
type HTTPScraper struct {
	httpClient *http.Client
	config     HTTPScraperConfig
	robots     *util.RobotsChecker
	limiter    *worker.Limiter
}

// FetchResult is a raw page fetch
type FetchResult struct {
	Body        []byte
	ContentType string
	StatusCode  int
	FinalURL    string
}

// NewHTTPScraper creates a direct scraper. limiter may be nil to disable per-domain throttling.
func NewHTTPScraper(cfg HTTPScraperConfig, limiter *worker.Limiter) *HTTPScraper {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 5_000_000
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "firecheck"
	}

	dialer := &net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}
	transport := &http.Transport{
		Proxy:               util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy),
		DialContext:         dialer.DialContext,
		MaxIdleConns:        50,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	if !cfg.AllowPrivateHosts {
		proxies := []string{cfg.HTTPProxy, cfg.HTTPSProxy}
		if cfg.HTTPProxy == "" && cfg.HTTPSProxy == "" {
			env := httpproxy.FromEnvironment()
			proxies = []string{env.HTTPProxy, env.HTTPSProxy}
		}
		transport.DialContext = secureDialContext(dialer, proxyDialAddrs(proxies...)...)
	}
	if cfg.InsecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in via config
	}

	client := &http.Client{
		Timeout:   cfg.Timeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 3 {
				return fmt.Errorf("stopped after 3 redirects")
			}
			if !cfg.AllowPrivateHosts {
				if _, err := validatePublicURL(req.URL.String()); err != nil {
					return fmt.Errorf("redirect to %s: %w", req.URL.Host, err)
				}
			}
			return nil
		},
	}

	s := &HTTPScraper{
		httpClient: client,
		config:     cfg,
		limiter:    limiter,
	}
	if cfg.RespectRobots {
		s.robots = util.NewRobotsChecker(cfg.UserAgent, client, cfg.Timeout, 0)
	}
	return s
}

// Name returns the provider name
func (s *HTTPScraper) Name() string {
	return "http"
}

// Scrape fetches the page, extracts its text and truncates it to MaxChars
func (s *HTTPScraper) Scrape(ctx context.Context, rawURL string) (*model.ScrapedPage, error) {
	target := CleanURL(rawURL)
	page, err := s.scrape(ctx, target)
	if err != nil {
		return failedPage(target, err), err
	}
	return page, nil
}

func (s *HTTPScraper) scrape(ctx context.Context, target string) (*model.ScrapedPage, error) {
	if target == "" {
		return nil, errors.New("empty url")
	}
	if !s.config.AllowPrivateHosts {
		if _, err := validatePublicURL(target); err != nil {
			return nil, fmt.Errorf("refusing %s: %w", target, err)
		}
	}

	var crawlDelay time.Duration
	if s.robots != nil {
		allowed, delay, err := s.robots.CanFetch(ctx, target)
		if err != nil {
			return nil, fmt.Errorf("robots check: %w", err)
		}
		if !allowed {
			return nil, ErrRobotsDisallowed
		}
		crawlDelay = delay
	}

	if s.limiter != nil {
		if err := s.limiter.WaitWithDelay(ctx, target, crawlDelay); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	result, err := s.FetchWithRetry(ctx, target)
	if err != nil {
		return nil, err
	}

	title, text, err := extractContent(result.ContentType, result.Body)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", result.ContentType, err)
	}
	if text == "" {
		return nil, errors.New("no extractable text")
	}

	return &model.ScrapedPage{
		URL:     result.FinalURL,
		Text:    Truncate(text, s.config.MaxChars),
		Title:   title,
		Success: true,
	}, nil
}

// FetchWithRetry fetches with exponential backoff on transient failures
func (s *HTTPScraper) FetchWithRetry(ctx context.Context, rawURL string) (*FetchResult, error) {
	var lastErr error
	for attempt := 0; attempt < s.config.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := fetchSleepFunc(ctx, time.Duration(1<<(attempt-1))*time.Second); err != nil {
				return nil, err
			}
		}

		result, err := s.Fetch(ctx, rawURL)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !isRetryableFetchError(err) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("after %d attempts: %w", s.config.MaxRetries, lastErr)
}

// Fetch performs a single GET with the body capped at MaxBodyBytes
func (s *HTTPScraper) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", s.config.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/pdf,text/plain;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status: %d %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.config.MaxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &FetchResult{
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		StatusCode:  resp.StatusCode,
		FinalURL:    resp.Request.URL.String(),
	}, nil
}

// isRetryableFetchError reports whether a fetch error is worth retrying:
// 5xx and 429 statuses, refused or reset connections, and timeouts.
func isRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := err.Error()
	if strings.Contains(msg, "unexpected status: ") {
		idx := strings.Index(msg, "unexpected status: ") + len("unexpected status: ")
		code := msg[idx:]
		return strings.HasPrefix(code, "5") || strings.HasPrefix(code, "429")
	}
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset") ||
		(strings.HasPrefix(msg, "fetch:") && strings.HasSuffix(msg, "EOF"))
}
