package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds all firecheck configuration
type Config struct {
	LLM          LLMConfig         `yaml:"llm" mapstructure:"llm"`
	Search       SearchConfig      `yaml:"search" mapstructure:"search"`
	Scrape       ScrapeConfig      `yaml:"scrape" mapstructure:"scrape"`
	HTTP         HTTPConfig        `yaml:"http" mapstructure:"http"`
	Cache        CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Engine       EngineConfig      `yaml:"engine" mapstructure:"engine"`
	Concurrency  ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimiting RateLimitConfig   `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Authority    AuthorityConfig   `yaml:"authority" mapstructure:"authority"`
	Store        StoreConfig       `yaml:"store" mapstructure:"store"`
	Server       ServerConfig      `yaml:"server" mapstructure:"server"`
	Log          LogConfig         `yaml:"log" mapstructure:"log"`
	Output       OutputConfig      `yaml:"output" mapstructure:"output"`
}

// LLMConfig configures the oracle's language model
type LLMConfig struct {
	Provider    string        `yaml:"provider" mapstructure:"provider" validate:"oneof=openai anthropic claude ollama"`
	Model       string        `yaml:"model" mapstructure:"model"`
	APIKey      string        `yaml:"-" mapstructure:"api_key"` // From env; never written out
	BaseURL     string        `yaml:"base_url,omitempty" mapstructure:"base_url" validate:"omitempty,url"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gt=0"` // Per oracle call
	MaxTokens   int           `yaml:"max_tokens" mapstructure:"max_tokens" validate:"gte=0"`
	Temperature float32       `yaml:"temperature" mapstructure:"temperature" validate:"gte=0,lte=2"`
}

// SearchConfig configures the web search provider
type SearchConfig struct {
	Provider    string `yaml:"provider" mapstructure:"provider" validate:"oneof=serper brave"`
	APIKey      string `yaml:"-" mapstructure:"api_key"`
	BaseURL     string `yaml:"base_url,omitempty" mapstructure:"base_url" validate:"omitempty,url"`
	ResultCount int    `yaml:"result_count" mapstructure:"result_count" validate:"gte=1,lte=100"`
	Country     string `yaml:"country" mapstructure:"country"`
}

// ScrapeConfig configures page fetching
type ScrapeConfig struct {
	Provider      string `yaml:"provider" mapstructure:"provider" validate:"oneof=firecrawl http"`
	APIKey        string `yaml:"-" mapstructure:"api_key"`
	BaseURL       string `yaml:"base_url,omitempty" mapstructure:"base_url" validate:"omitempty,url"`
	MaxChars      int    `yaml:"max_chars" mapstructure:"max_chars" validate:"gte=1"`           // Truncation limit for page text
	MaxConcurrent int    `yaml:"max_concurrent" mapstructure:"max_concurrent" validate:"gte=1"` // Outbound scrape ceiling
	RespectRobots bool   `yaml:"respect_robots" mapstructure:"respect_robots"`                  // http provider only
}

// HTTPConfig holds shared HTTP client settings
type HTTPConfig struct {
	Timeout           time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gt=0"` // Per provider call
	UserAgent         string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes      int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes" validate:"gt=0"`
	MaxRetries        int           `yaml:"max_retries" mapstructure:"max_retries" validate:"gte=1"`
	InsecureTLS       bool          `yaml:"insecure_tls" mapstructure:"insecure_tls"`
	AllowPrivateHosts bool          `yaml:"allow_private_hosts" mapstructure:"allow_private_hosts"` // Disables SSRF guard
	HTTPProxy         string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy        string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy           string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// CacheConfig configures search and scrape result caching
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// EngineConfig holds the verification budgets
type EngineConfig struct {
	MaxJudgeIterations int `yaml:"max_judge_iterations" mapstructure:"max_judge_iterations" validate:"gte=1"`
	MaxPageVisits      int `yaml:"max_page_visits" mapstructure:"max_page_visits" validate:"gte=1"`
	SearchResultCount  int `yaml:"search_result_count" mapstructure:"search_result_count" validate:"gte=1,lte=100"`
	ClaimConcurrency   int `yaml:"claim_concurrency" mapstructure:"claim_concurrency" validate:"gte=1"` // 1 = sequential
}

// ConcurrencyConfig configures batch parallelism
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers" validate:"gte=1"`
}

// RateLimitConfig configures per-domain throttling of direct page fetches
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second" validate:"gt=0"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size" validate:"gte=1"`
}

// AuthorityConfig configures source authority classification
type AuthorityConfig struct {
	PrimaryDomains   []string          `yaml:"primary_domains" mapstructure:"primary_domains"`
	SecondaryDomains []string          `yaml:"secondary_domains" mapstructure:"secondary_domains"`
	DomainMap        map[string]string `yaml:"domain_map,omitempty" mapstructure:"domain_map"`
	PathPatterns     []PathPattern     `yaml:"path_patterns,omitempty" mapstructure:"path_patterns"`
}

// PathPattern maps a URL path regex to a tier name
type PathPattern struct {
	Pattern string `yaml:"pattern" mapstructure:"pattern"`
	Tier    string `yaml:"tier" mapstructure:"tier"`
}

// StoreConfig configures the run store
type StoreConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"` // ":memory:" for tests
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr           string        `yaml:"addr" mapstructure:"addr"`
	RequestTimeout time.Duration `yaml:"request_timeout" mapstructure:"request_timeout"`
	MaxBodyBytes   int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	MaxBatchSize   int           `yaml:"max_batch_size" mapstructure:"max_batch_size" validate:"gte=1"`
	AllowedOrigins []string      `yaml:"allowed_origins,omitempty" mapstructure:"allowed_origins"`
}

// LogConfig configures structured logging
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" mapstructure:"format" validate:"oneof=text json logfmt"`
}

// OutputConfig configures result rendering
type OutputConfig struct {
	Verbose bool   `yaml:"verbose" mapstructure:"verbose"`
	Format  string `yaml:"format" mapstructure:"format" validate:"oneof=json markdown"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		LLM: LLMConfig{
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			Timeout:     60 * time.Second,
			MaxTokens:   1500,
			Temperature: 0.2,
		},
		Search: SearchConfig{
			Provider:    "serper",
			ResultCount: 10,
			Country:     "us",
		},
		Scrape: ScrapeConfig{
			Provider:      "firecrawl",
			MaxChars:      10000,
			MaxConcurrent: 5,
			RespectRobots: true,
		},
		HTTP: HTTPConfig{
			Timeout:      30 * time.Second,
			UserAgent:    "firecheck/0.1 (+https://github.com/ppiankov/firecheck)",
			MaxBodyBytes: 5_000_000,
			MaxRetries:   3,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       "",
			MemoryTTL: 15 * time.Minute,
			DiskTTL:   24 * time.Hour,
		},
		Engine: EngineConfig{
			MaxJudgeIterations: 3,
			MaxPageVisits:      3,
			SearchResultCount:  10,
			ClaimConcurrency:   1,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		RateLimiting: RateLimitConfig{
			RequestsPerSecond: 2,
			BurstSize:         4,
		},
		Authority: AuthorityConfig{
			PrimaryDomains: []string{
				"doi.org",
				"pubmed.ncbi.nlm.nih.gov",
				"who.int",
				"europa.eu",
				"legislation.gov.uk",
				"congress.gov",
				"nature.com",
				"science.org",
			},
			SecondaryDomains: []string{
				"wikipedia.org",
				"britannica.com",
				"reuters.com",
				"apnews.com",
				"bbc.co.uk",
				"bbc.com",
				"nytimes.com",
				"theguardian.com",
			},
		},
		Store: StoreConfig{
			Enabled: true,
		},
		Server: ServerConfig{
			Addr:           ":8080",
			RequestTimeout: 10 * time.Minute,
			MaxBodyBytes:   1 << 20,
			MaxBatchSize:   100,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Output: OutputConfig{
			Format: "json",
		},
	}
}

var configValidator = validator.New()

// Validate checks field constraints and cross-field requirements
func (c Config) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
