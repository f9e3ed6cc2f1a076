package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ppiankov/firecheck/internal/cache"
	"github.com/ppiankov/firecheck/internal/llm"
	"github.com/ppiankov/firecheck/internal/model"
	"github.com/ppiankov/firecheck/internal/oracle"
	"github.com/ppiankov/firecheck/internal/pipeline"
	"github.com/ppiankov/firecheck/internal/store"
	"github.com/ppiankov/firecheck/internal/web"
	"github.com/ppiankov/firecheck/internal/worker"
)

// engine bundles everything a command needs to run checks
type engine struct {
	cfg      model.Config
	logger   *slog.Logger
	pipeline *pipeline.Pipeline
	oracle   *oracle.Instrumented
	limiter  *worker.Limiter
	store    *store.Store // nil when the store is disabled
}

// buildEngine wires providers, oracle and pipeline from cfg
func buildEngine(cfg model.Config, logger *slog.Logger) (*engine, error) {
	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg))
	if err != nil {
		return nil, fmt.Errorf("llm provider: %w", err)
	}
	if err := requireKey(cfg.Search.Provider, cfg.Search.APIKey, "search"); err != nil {
		return nil, err
	}
	if cfg.Scrape.Provider == "firecrawl" {
		if err := requireKey(cfg.Scrape.Provider, cfg.Scrape.APIKey, "scrape"); err != nil {
			return nil, err
		}
	}

	c := cache.FromConfig(cfg.Cache)
	limiter := worker.NewLimiterFromConfig(cfg.RateLimiting)

	searcher, err := web.NewSearcher(cfg, c, logger.With("component", "search"))
	if err != nil {
		return nil, err
	}
	scraper, err := web.NewScraper(cfg, c, limiter, logger.With("component", "scrape"))
	if err != nil {
		return nil, err
	}

	o := oracle.NewInstrumented(oracle.NewLLMOracle(provider), cfg.LLM.Timeout, logger.With("component", "oracle"))
	p := pipeline.New(o, searcher, scraper, cfg.Engine, pipeline.WithLogger(logger))

	e := &engine{cfg: cfg, logger: logger, pipeline: p, oracle: o, limiter: limiter}
	if cfg.Store.Enabled {
		s, err := openStore(cfg.Store)
		if err != nil {
			return nil, err
		}
		e.store = s
	}
	return e, nil
}

func (e *engine) Close() error {
	if e.store != nil {
		return e.store.Close()
	}
	return nil
}

// openStore opens the run store, defaulting to ~/.firecheck/runs.db
func openStore(cfg model.StoreConfig) (*store.Store, error) {
	path := cfg.Path
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve store path: %w", err)
		}
		path = filepath.Join(home, ".firecheck", "runs.db")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}
	s, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}
	return s, nil
}

func requireKey(provider, key, kind string) error {
	if key != "" {
		return nil
	}
	return fmt.Errorf("%s provider %s: %w (set it in the config file or the provider's environment variable)",
		kind, provider, web.ErrMissingAPIKey)
}

var errChecksFailed = errors.New("one or more checks failed")
