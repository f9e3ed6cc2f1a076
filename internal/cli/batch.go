package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/firecheck/internal/oracle"
	"github.com/ppiankov/firecheck/internal/pipeline"
	"github.com/ppiankov/firecheck/internal/worker"
)

var (
	batchOutput      string
	batchTimeout     time.Duration
	statementTimeout time.Duration
	outputDir        string
	batchBaseline    bool
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Fact-check many statements from a file in parallel",
	Long: `Batch checks every statement in a file:
- One statement per line, or JSONL objects with "id", "statement" and optional "label"
- Blank lines and lines starting with # are skipped
- Statements are processed in parallel with a configurable worker count
- Every input appears in the report, in input order; failures carry an ERROR verdict
- With --baseline, each statement is also judged by the LLM alone, without research

Example:
  firecheck batch statements.txt
  firecheck batch eval.jsonl --concurrency 8 --output results.json
  firecheck batch statements.txt --output-dir ./reports
  firecheck batch eval.jsonl --baseline`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().Int("concurrency", 0, "number of concurrent workers")
	batchCmd.Flags().StringVar(&batchOutput, "output", "", "write the JSON report to path (default: stdout)")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "", "also write one Markdown report per statement")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 2*time.Hour, "total timeout for batch processing")
	batchCmd.Flags().DurationVar(&statementTimeout, "statement-timeout", 10*time.Minute, "timeout for each statement")
	batchCmd.Flags().Int("max-iterations", 0, "judge rounds per claim")
	batchCmd.Flags().Int("max-page-visits", 0, "pages read per search")
	batchCmd.Flags().Int("claim-concurrency", 0, "claims judged in parallel")
	batchCmd.Flags().String("llm-provider", "", "LLM provider (openai, anthropic, ollama)")
	batchCmd.Flags().String("llm-model", "", "LLM model name")
	batchCmd.Flags().String("search-provider", "", "search provider (serper, brave)")
	batchCmd.Flags().String("scrape-provider", "", "scrape provider (firecrawl, http)")
	batchCmd.Flags().Bool("no-cache", false, "disable search and scrape caching")
	batchCmd.Flags().BoolVar(&batchBaseline, "baseline", false, "also judge each statement from LLM knowledge alone and report its label match")
	batchCmd.Flags().Bool("no-store", false, "do not save results to the run store")

	_ = viper.BindPFlag("concurrency.workers", batchCmd.Flags().Lookup("concurrency"))
	bindEngineFlags(batchCmd)
}

// batchReport is the JSON document written by batch
type batchReport struct {
	Input    string                     `json:"input"`
	Summary  worker.BatchSummary        `json:"summary"`
	Outcomes []*worker.StatementOutcome `json:"outcomes"`
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]

	applyToggles(cmd)
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	statements, err := worker.ReadStatementsFromFile(file)
	if err != nil {
		return fmt.Errorf("read statements: %w", err)
	}

	e, err := buildEngine(cfg, logger)
	if err != nil {
		return err
	}
	defer e.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, batchTimeout)
	defer cancel()

	logger.Info("batch started", "input", file, "statements", len(statements), "workers", cfg.Concurrency.Workers)

	renderer := pipeline.NewRenderer(cfg.Output.Verbose)
	if outputDir != "" {
		if err := os.MkdirAll(outputDir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	opts := []worker.BatchOption{
		worker.WithStatementTimeout(statementTimeout),
		worker.WithLogger(logger),
	}
	if batchBaseline {
		opts = append(opts, worker.WithBaseline(oracle.BaselineVerdict(e.oracle)))
	}
	opts = append(opts, worker.WithOutcomeHook(func(o *worker.StatementOutcome) {
			if e.store != nil {
				if err := e.store.Save(context.WithoutCancel(ctx), o.Result); err != nil {
					logger.Warn("failed to save run", "run_id", o.Result.RunID, "error", err)
				}
			}
			if outputDir != "" {
				path := filepath.Join(outputDir, sanitizeFilename(o.Statement.ID)+".md")
				if err := renderer.RenderMarkdown(o.Result, path); err != nil {
					logger.Warn("failed to write report", "path", path, "error", err)
				}
			}
		}))
	processor := worker.NewBatchProcessor(e.pipeline, cfg.Concurrency.Workers, opts...)

	outcomes := processor.ProcessStatements(ctx, statements)
	summary := worker.Summarize(outcomes)

	report := batchReport{Input: file, Summary: summary, Outcomes: outcomes}
	if batchOutput != "" {
		f, err := os.Create(batchOutput)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		if err := pipeline.WriteJSON(f, report); err != nil {
			f.Close()
			return fmt.Errorf("write report: %w", err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("close output: %w", err)
		}
	} else if err := pipeline.WriteJSON(cmd.OutOrStdout(), report); err != nil {
		return err
	}

	printBatchSummary(summary, batchOutput)
	if summary.Errors > 0 {
		return errChecksFailed
	}
	return nil
}

func printBatchSummary(s worker.BatchSummary, output string) {
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:      %d statements\n", s.Total)
	fmt.Fprintf(os.Stderr, "  Succeeded:  %d\n", s.Succeeded)
	fmt.Fprintf(os.Stderr, "  Errors:     %d\n", s.Errors)
	for verdict, n := range s.ByVerdict {
		fmt.Fprintf(os.Stderr, "  %-28s %d\n", verdict+":", n)
	}
	if s.Labeled > 0 {
		fmt.Fprintf(os.Stderr, "  Label match: %d/%d\n", s.Matched, s.Labeled)
	}
	if s.BaselineLabeled > 0 {
		fmt.Fprintf(os.Stderr, "  Baseline match: %d/%d\n", s.BaselineMatched, s.BaselineLabeled)
	}
	if output != "" {
		fmt.Fprintf(os.Stderr, "  Output:     %s\n", output)
	}
	fmt.Fprintf(os.Stderr, "\n")
}

// sanitizeFilename sanitizes a string for use as a filename
func sanitizeFilename(s string) string {
	replacer := []string{
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "-",
	}
	for i := 0; i < len(replacer); i += 2 {
		s = strings.ReplaceAll(s, replacer[i], replacer[i+1])
	}

	if len(s) > 100 {
		s = s[:100]
	}
	if s == "" || s == "." || s == ".." {
		s = "statement"
	}
	return s
}
