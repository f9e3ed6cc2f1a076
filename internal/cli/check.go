package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/firecheck/internal/pipeline"
)

var (
	checkJSON    string
	checkMD      string
	checkTimeout time.Duration
	checkFormat  string
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check <statement>",
	Short: "Fact-check a single statement",
	Long: `Check extracts the atomic claims in a statement, researches and judges
each claim, and prints the overall verdict.

Use "-" to read the statement from stdin.

Example:
  firecheck check "The Eiffel Tower was completed in 1889 and is 330 metres tall."
  firecheck check "Water boils at 90C at sea level." --md report.md
  echo "Mount Everest is in Nepal." | firecheck check - --format markdown`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVar(&checkJSON, "json", "", "write JSON result to path")
	checkCmd.Flags().StringVar(&checkMD, "md", "", "write Markdown report to path")
	checkCmd.Flags().DurationVar(&checkTimeout, "timeout", 10*time.Minute, "overall check timeout")
	checkCmd.Flags().StringVar(&checkFormat, "format", "", "stdout format (json, markdown)")
	checkCmd.Flags().Int("max-iterations", 0, "judge rounds per claim")
	checkCmd.Flags().Int("max-page-visits", 0, "pages read per search")
	checkCmd.Flags().Int("claim-concurrency", 0, "claims judged in parallel")
	checkCmd.Flags().String("llm-provider", "", "LLM provider (openai, anthropic, ollama)")
	checkCmd.Flags().String("llm-model", "", "LLM model name")
	checkCmd.Flags().String("search-provider", "", "search provider (serper, brave)")
	checkCmd.Flags().String("scrape-provider", "", "scrape provider (firecrawl, http)")
	checkCmd.Flags().Bool("no-cache", false, "disable search and scrape caching")
	checkCmd.Flags().Bool("no-store", false, "do not save the result to the run store")

	bindEngineFlags(checkCmd)
}

// bindEngineFlags maps shared flags onto config keys
func bindEngineFlags(cmd *cobra.Command) {
	pairs := map[string]string{
		"max-iterations":    "engine.max_judge_iterations",
		"max-page-visits":   "engine.max_page_visits",
		"claim-concurrency": "engine.claim_concurrency",
		"llm-provider":      "llm.provider",
		"llm-model":         "llm.model",
		"search-provider":   "search.provider",
		"scrape-provider":   "scrape.provider",
	}
	for flag, key := range pairs {
		if f := cmd.Flags().Lookup(flag); f != nil {
			_ = viper.BindPFlag(key, f)
		}
	}
}

// applyToggles turns negative flags into config values
func applyToggles(cmd *cobra.Command) {
	if noCache, _ := cmd.Flags().GetBool("no-cache"); noCache {
		viper.Set("cache.enabled", false)
	}
	if noStore, _ := cmd.Flags().GetBool("no-store"); noStore {
		viper.Set("store.enabled", false)
	}
}

func runCheck(cmd *cobra.Command, args []string) error {
	statement, err := readStatement(args, cmd.InOrStdin())
	if err != nil {
		return err
	}

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	result, err := e.pipeline.Check(ctx, statement)
	if err != nil {
		return fmt.Errorf("check failed: %w", err)
	}

	if e.store != nil {
		if err := e.store.Save(context.WithoutCancel(ctx), result); err != nil {
			logger.Warn("failed to save run", "run_id", result.RunID, "error", err)
		}
	}

	renderer := pipeline.NewRenderer(cfg.Output.Verbose)
	if checkJSON != "" {
		if err := renderer.RenderJSON(result, checkJSON); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		if cfg.Output.Verbose {
			fmt.Fprintf(os.Stderr, "Wrote JSON: %s\n", checkJSON)
		}
	}
	if checkMD != "" {
		if err := renderer.RenderMarkdown(result, checkMD); err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		if cfg.Output.Verbose {
			fmt.Fprintf(os.Stderr, "Wrote Markdown: %s\n", checkMD)
		}
	}

	format := checkFormat
	if format == "" {
		format = cfg.Output.Format
	}
	out := cmd.OutOrStdout()
	switch format {
	case "markdown", "md":
		_, err = io.WriteString(out, renderer.Markdown(result))
	default:
		err = pipeline.WriteJSON(out, result)
	}
	if err != nil {
		return err
	}

	if result.ErrorCount() > 0 {
		return errChecksFailed
	}
	return nil
}

func readStatement(args []string, stdin io.Reader) (string, error) {
	statement := strings.Join(args, " ")
	if statement == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		statement = string(data)
	}
	statement = strings.TrimSpace(statement)
	if statement == "" {
		return "", fmt.Errorf("statement is empty")
	}
	return statement, nil
}
