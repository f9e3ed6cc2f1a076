package web

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/ppiankov/firecheck/internal/model"
)

// AuthorityClassifier classifies sources into authority tiers
type AuthorityClassifier struct {
	domainMap    map[string]model.AuthorityTier
	primary      []string
	secondary    []string
	pathPatterns []compiledPattern
}

type compiledPattern struct {
	pattern *regexp.Regexp
	tier    model.AuthorityTier
}

// NewAuthorityClassifier creates a classifier. Invalid path patterns are skipped.
func NewAuthorityClassifier(cfg model.AuthorityConfig) *AuthorityClassifier {
	a := &AuthorityClassifier{
		domainMap: make(map[string]model.AuthorityTier, len(cfg.DomainMap)),
	}

	for domain, tier := range cfg.DomainMap {
		a.domainMap[normalizeHost(domain)] = parseTier(tier)
	}
	for _, domain := range cfg.PrimaryDomains {
		a.primary = append(a.primary, normalizeHost(domain))
	}
	for _, domain := range cfg.SecondaryDomains {
		a.secondary = append(a.secondary, normalizeHost(domain))
	}
	for _, p := range cfg.PathPatterns {
		re, err := regexp.Compile(p.Pattern)
		if err != nil {
			continue
		}
		a.pathPatterns = append(a.pathPatterns, compiledPattern{pattern: re, tier: parseTier(p.Tier)})
	}

	return a
}

// Classify classifies a URL into an authority tier
func (a *AuthorityClassifier) Classify(rawURL string) model.AuthorityTier {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return model.TierUnknown
	}

	host := normalizeHost(parsed.Hostname())

	if tier, ok := a.domainMap[host]; ok {
		return tier
	}
	if matchesDomain(host, a.primary) {
		return model.TierPrimary
	}
	if matchesDomain(host, a.secondary) {
		return model.TierSecondary
	}
	for _, cp := range a.pathPatterns {
		if cp.pattern.MatchString(parsed.Path) {
			return cp.tier
		}
	}

	// Government and academic TLDs
	if strings.HasSuffix(host, ".gov") || strings.HasSuffix(host, ".edu") ||
		strings.HasSuffix(host, ".ac.uk") || strings.Contains(host, ".gov.") {
		return model.TierPrimary
	}

	return model.TierTertiary
}

// Annotate sets Authority on each result in place
func (a *AuthorityClassifier) Annotate(results []model.SearchResult) {
	for i := range results {
		results[i].Authority = a.Classify(results[i].Link)
	}
}

// classifyingSearcher tags results with their authority tier
type classifyingSearcher struct {
	next       Searcher
	classifier *AuthorityClassifier
}

// WithAuthority wraps a searcher so results carry an authority tier
func WithAuthority(next Searcher, classifier *AuthorityClassifier) Searcher {
	if classifier == nil {
		return next
	}
	return &classifyingSearcher{next: next, classifier: classifier}
}

func (s *classifyingSearcher) Name() string {
	return s.next.Name()
}

func (s *classifyingSearcher) Search(ctx context.Context, query string, count int) ([]model.SearchResult, error) {
	results, err := s.next.Search(ctx, query, count)
	if err != nil {
		return nil, err
	}
	out := make([]model.SearchResult, len(results))
	copy(out, results)
	s.classifier.Annotate(out)
	return out, nil
}

func matchesDomain(host string, domains []string) bool {
	for _, d := range domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func normalizeHost(host string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(host)), "www.")
}

func parseTier(tier string) model.AuthorityTier {
	switch strings.ToLower(strings.TrimSpace(tier)) {
	case "primary", "1":
		return model.TierPrimary
	case "secondary", "2":
		return model.TierSecondary
	default:
		return model.TierTertiary
	}
}
