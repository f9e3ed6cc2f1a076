package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/firecheck/internal/logging"
	"github.com/ppiankov/firecheck/internal/model"
)

// Version is set at build time via -ldflags
var Version = "v0.1.0"

var (
	cfgFile   string
	verbose   bool
	logLevel  string
	logFormat string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "firecheck",
	Short: "firecheck - iterative fact verification for free-text statements",
	Long: `firecheck verifies a statement by decomposing it into atomic factual claims,
judging each claim against evidence gathered from iterative web research,
and combining the per-claim verdicts into one overall verdict.

Each claim is judged in bounded rounds: the model either rules on the claim or
asks for one more search, whose results are read page by page until the
evidence is decisive or the page budget runs out.

Overall verdicts follow a fixed priority rule:
  any refuted claim        -> CONTAINS_REFUTED_CLAIMS
  any unsupported claim    -> CONTAINS_UNSUPPORTED_CLAIMS
  otherwise                -> SUPPORTED`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "firecheck %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.firecheck/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (text, json, logfmt)")

	// Bind flags to viper
	_ = viper.BindPFlag("output.verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if err := registerDefaults(viper.GetViper(), model.DefaultConfig()); err != nil {
		fmt.Fprintf(os.Stderr, "Error registering defaults: %v\n", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}
		viper.AddConfigPath(filepath.Join(home, ".firecheck"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// FIRECHECK_ENGINE_MAX_PAGE_VISITS overrides engine.max_page_visits, etc.
	viper.SetEnvPrefix("FIRECHECK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// registerDefaults makes every config key known to viper so env overrides apply
func registerDefaults(v *viper.Viper, cfg model.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return err
	}
	setDefaults(v, "", tree)

	// Secrets are not serialized but may still come from env or file
	for _, key := range []string{"llm.api_key", "search.api_key", "scrape.api_key"} {
		v.SetDefault(key, "")
	}
	return nil
}

func setDefaults(v *viper.Viper, prefix string, tree map[string]any) {
	for k, val := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := val.(map[string]any); ok && len(sub) > 0 {
			setDefaults(v, key, sub)
			continue
		}
		v.SetDefault(key, val)
	}
}

// loadConfig merges defaults, config file, env and flags, then applies
// conventional API key environment variables and validates the result
func loadConfig(v *viper.Viper) (model.Config, error) {
	cfg := model.DefaultConfig()
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	applyEnvFallbacks(&cfg, os.Getenv)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnvFallbacks fills unset secrets from the providers' usual env vars
func applyEnvFallbacks(cfg *model.Config, getenv func(string) string) {
	if cfg.LLM.APIKey == "" {
		switch strings.ToLower(cfg.LLM.Provider) {
		case "openai":
			cfg.LLM.APIKey = getenv("OPENAI_API_KEY")
		case "anthropic", "claude":
			cfg.LLM.APIKey = getenv("ANTHROPIC_API_KEY")
		}
	}
	if strings.EqualFold(cfg.LLM.Provider, "ollama") && cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = getenv("OLLAMA_BASE_URL")
	}

	if cfg.Search.APIKey == "" {
		switch strings.ToLower(cfg.Search.Provider) {
		case "serper":
			cfg.Search.APIKey = getenv("SERPER_API_KEY")
		case "brave":
			cfg.Search.APIKey = getenv("BRAVE_API_KEY")
		}
	}

	if cfg.Scrape.APIKey == "" && strings.EqualFold(cfg.Scrape.Provider, "firecrawl") {
		cfg.Scrape.APIKey = getenv("FIRECRAWL_API_KEY")
	}

	if cfg.HTTP.HTTPProxy == "" {
		cfg.HTTP.HTTPProxy = getenv("HTTP_PROXY")
	}
	if cfg.HTTP.HTTPSProxy == "" {
		cfg.HTTP.HTTPSProxy = getenv("HTTPS_PROXY")
	}
	if cfg.HTTP.NoProxy == "" {
		cfg.HTTP.NoProxy = getenv("NO_PROXY")
	}
}

// newLogger builds the process logger from cfg
func newLogger(cfg model.Config) (*slog.Logger, error) {
	logger, err := logging.New(cfg.Log, os.Stderr)
	if err != nil {
		return nil, err
	}
	logger.Debug("configuration loaded",
		"llm_provider", cfg.LLM.Provider,
		"llm_model", cfg.LLM.Model,
		"llm_api_key_present", cfg.LLM.APIKey != "",
		"search_provider", cfg.Search.Provider,
		"search_api_key_present", cfg.Search.APIKey != "",
		"scrape_provider", cfg.Scrape.Provider,
		"scrape_api_key_present", cfg.Scrape.APIKey != "",
	)
	return logger, nil
}
