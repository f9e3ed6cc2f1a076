package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/firecheck/internal/server"
	"github.com/ppiankov/firecheck/internal/worker"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve exposes fact checking over HTTP:
  POST /v1/check      {"statement": "..."}
  POST /v1/batch      {"statements": [{"id": "...", "statement": "..."}]}
  GET  /v1/runs       ?limit=N&verdict=SUPPORTED
  GET  /v1/runs/{id}
  GET  /healthz
  GET  /metrics       Prometheus metrics

Example:
  firecheck serve --addr :8080`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address (default :8080)")
	serveCmd.Flags().Int("concurrency", 0, "workers per batch request")
	serveCmd.Flags().Bool("no-cache", false, "disable search and scrape caching")
	serveCmd.Flags().Bool("no-store", false, "do not persist results")

	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("concurrency.workers", serveCmd.Flags().Lookup("concurrency"))
}

func runServe(cmd *cobra.Command, args []string) error {
	applyToggles(cmd)
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	e, err := buildEngine(cfg, logger)
	if err != nil {
		return err
	}
	defer e.Close()

	var runs server.RunStore
	if e.store != nil {
		runs = e.store
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go pruneLimiter(ctx, e.limiter, logger)

	srv := server.New(e.pipeline, runs, cfg.Server, cfg.Concurrency.Workers, logger.With("component", "server"))
	return srv.ListenAndServe(ctx)
}

// limiterIdle is how long a domain may go unused before its limiter is dropped
const limiterIdle = 30 * time.Minute

// pruneLimiter keeps the per-domain limiter map bounded in a long-running server
func pruneLimiter(ctx context.Context, limiter *worker.Limiter, logger *slog.Logger) {
	ticker := time.NewTicker(limiterIdle / 3)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := limiter.Prune(limiterIdle); n > 0 {
				logger.Debug("pruned idle domain limiters", "removed", n, "remaining", limiter.Domains())
			}
		}
	}
}
