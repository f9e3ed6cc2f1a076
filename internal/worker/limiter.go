package worker

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ppiankov/firecheck/internal/model"
)

// Limiter implements per-domain rate limiting for outbound page fetches
type Limiter struct {
	domains      map[string]*domainLimiter
	mu           sync.Mutex
	defaultRate  rate.Limit
	defaultBurst int
	now          func() time.Time
}

type domainLimiter struct {
	limiter  *rate.Limiter
	lastUsed time.Time
	pinned   bool // Set via SetDomainRate; never pruned
}

// NewLimiter creates a new rate limiter. burst < 1 means 5.
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 5
	}

	return &Limiter{
		domains:      make(map[string]*domainLimiter),
		defaultRate:  rate.Limit(requestsPerSecond),
		defaultBurst: burst,
		now:          time.Now,
	}
}

// NewLimiterFromConfig creates a limiter from the rate limiting section
func NewLimiterFromConfig(cfg model.RateLimitConfig) *Limiter {
	return NewLimiter(cfg.RequestsPerSecond, cfg.BurstSize)
}

// Wait blocks until the URL's domain has a token available
func (l *Limiter) Wait(ctx context.Context, rawURL string) error {
	domain, err := extractDomain(rawURL)
	if err != nil {
		return err
	}
	return l.get(domain).Wait(ctx)
}

// Allow reports whether a request may proceed now, consuming a token if so
func (l *Limiter) Allow(rawURL string) bool {
	domain, err := extractDomain(rawURL)
	if err != nil {
		return false
	}
	return l.get(domain).Allow()
}

// WaitWithDelay waits for a token and then an additional delay (e.g. robots.txt crawl-delay)
func (l *Limiter) WaitWithDelay(ctx context.Context, rawURL string, additionalDelay time.Duration) error {
	if err := l.Wait(ctx, rawURL); err != nil {
		return err
	}

	if additionalDelay > 0 {
		timer := time.NewTimer(additionalDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	return nil
}

// SetDomainRate sets a custom rate limit for a specific domain
func (l *Limiter) SetDomainRate(domain string, requestsPerSecond float64, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if burst <= 0 {
		burst = l.defaultBurst
	}

	l.domains[normalizeDomain(domain)] = &domainLimiter{
		limiter:  rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
		lastUsed: l.now(),
		pinned:   true,
	}
}

// Prune drops limiters for domains idle longer than maxIdle. Returns the number removed.
func (l *Limiter) Prune(maxIdle time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-maxIdle)
	removed := 0
	for domain, d := range l.domains {
		if !d.pinned && d.lastUsed.Before(cutoff) {
			delete(l.domains, domain)
			removed++
		}
	}
	return removed
}

// Domains returns the number of tracked domains
func (l *Limiter) Domains() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.domains)
}

func (l *Limiter) get(domain string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	d, ok := l.domains[domain]
	if !ok {
		d = &domainLimiter{limiter: rate.NewLimiter(l.defaultRate, l.defaultBurst)}
		l.domains[domain] = d
	}
	d.lastUsed = l.now()
	return d.limiter
}

// extractDomain returns the lowercased hostname of a URL, without port
func extractDomain(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("url has no host: %q", rawURL)
	}
	return normalizeDomain(parsed.Hostname()), nil
}

func normalizeDomain(domain string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(domain)), "www.")
}
