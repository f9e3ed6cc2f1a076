package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/firecheck/internal/model"
)

func newViper(t *testing.T) *viper.Viper {
	t.Helper()
	v := viper.New()
	if err := registerDefaults(v, model.DefaultConfig()); err != nil {
		t.Fatalf("registerDefaults: %v", err)
	}
	v.SetEnvPrefix("FIRECHECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig(newViper(t))
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	def := model.DefaultConfig()
	if cfg.Engine != def.Engine {
		t.Errorf("Expected default engine config, got %+v", cfg.Engine)
	}
	if cfg.LLM.Timeout != def.LLM.Timeout {
		t.Errorf("Expected duration to round-trip, got %v", cfg.LLM.Timeout)
	}
	if len(cfg.Authority.PrimaryDomains) != len(def.Authority.PrimaryDomains) {
		t.Errorf("Expected primary domains to round-trip, got %v", cfg.Authority.PrimaryDomains)
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("FIRECHECK_ENGINE_MAX_PAGE_VISITS", "5")
	t.Setenv("FIRECHECK_LLM_PROVIDER", "ollama")

	cfg, err := loadConfig(newViper(t))
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Engine.MaxPageVisits != 5 {
		t.Errorf("Expected 5 page visits, got %d", cfg.Engine.MaxPageVisits)
	}
	if cfg.LLM.Provider != "ollama" {
		t.Errorf("Expected ollama, got %s", cfg.LLM.Provider)
	}
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "engine:\n  max_judge_iterations: 4\n  claim_concurrency: 2\nsearch:\n  provider: brave\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	v := newViper(t)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		t.Fatalf("ReadInConfig: %v", err)
	}

	cfg, err := loadConfig(v)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Engine.MaxJudgeIterations != 4 || cfg.Engine.ClaimConcurrency != 2 || cfg.Search.Provider != "brave" {
		t.Errorf("File values not applied: %+v %+v", cfg.Engine, cfg.Search)
	}
	if cfg.Engine.MaxPageVisits != 3 {
		t.Errorf("Expected unset keys to keep defaults, got %d", cfg.Engine.MaxPageVisits)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Setenv("FIRECHECK_ENGINE_MAX_JUDGE_ITERATIONS", "0")
	if _, err := loadConfig(newViper(t)); err == nil {
		t.Error("Expected validation error for zero iterations")
	}
}

func TestApplyEnvFallbacks(t *testing.T) {
	env := map[string]string{
		"ANTHROPIC_API_KEY": "sk-ant",
		"BRAVE_API_KEY":     "brave-key",
		"FIRECRAWL_API_KEY": "fc-key",
		"HTTPS_PROXY":       "http://proxy:3128",
	}
	cfg := model.DefaultConfig()
	cfg.LLM.Provider = "anthropic"
	cfg.Search.Provider = "brave"

	applyEnvFallbacks(&cfg, func(k string) string { return env[k] })

	if cfg.LLM.APIKey != "sk-ant" || cfg.Search.APIKey != "brave-key" || cfg.Scrape.APIKey != "fc-key" {
		t.Errorf("Keys not applied: %q %q %q", cfg.LLM.APIKey, cfg.Search.APIKey, cfg.Scrape.APIKey)
	}
	if cfg.HTTP.HTTPSProxy != "http://proxy:3128" {
		t.Errorf("Proxy not applied: %q", cfg.HTTP.HTTPSProxy)
	}

	// Explicit values win
	cfg.LLM.APIKey = "explicit"
	applyEnvFallbacks(&cfg, func(k string) string { return "env" })
	if cfg.LLM.APIKey != "explicit" {
		t.Errorf("Expected explicit key to be kept, got %q", cfg.LLM.APIKey)
	}
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	if err := writeDefaultConfig(path, false); err != nil {
		t.Fatalf("writeDefaultConfig: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "api_key:") {
		t.Error("Secrets must not be written")
	}
	var decoded model.Config
	if err := yaml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Written config is not valid YAML: %v", err)
	}
	if decoded.Engine.MaxPageVisits != 3 {
		t.Errorf("Unexpected engine config %+v", decoded.Engine)
	}

	if err := writeDefaultConfig(path, false); err == nil {
		t.Error("Expected error when config exists")
	}
	if err := writeDefaultConfig(path, true); err != nil {
		t.Errorf("Expected --force to overwrite: %v", err)
	}
}

func TestReadStatement(t *testing.T) {
	got, err := readStatement([]string{"The", "sky", "is", "blue."}, nil)
	if err != nil || got != "The sky is blue." {
		t.Errorf("Got %q, %v", got, err)
	}

	got, err = readStatement([]string{"-"}, strings.NewReader("  from stdin\n"))
	if err != nil || got != "from stdin" {
		t.Errorf("Got %q, %v", got, err)
	}

	if _, err := readStatement([]string{"  "}, nil); err == nil {
		t.Error("Expected error for empty statement")
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"line-3":       "line-3",
		"a/b:c":        "a_b_c",
		"has space":    "has-space",
		"..":           "statement",
		"":             "statement",
		"what?<x>|\"y": "what__x___y",
	}
	for in, want := range tests {
		if got := sanitizeFilename(in); got != want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBatchBaselineFlag(t *testing.T) {
	f := batchCmd.Flags().Lookup("baseline")
	if f == nil {
		t.Fatal("Expected --baseline flag on batch")
	}
	if f.DefValue != "false" {
		t.Errorf("Expected baseline off by default, got %s", f.DefValue)
	}
}
