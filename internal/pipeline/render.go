package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ppiankov/firecheck/internal/model"
)

// Renderer writes statement results as JSON or Markdown
type Renderer struct {
	verbose bool // Include full evidence logs in Markdown
}

// NewRenderer creates a renderer
func NewRenderer(verbose bool) *Renderer {
	return &Renderer{verbose: verbose}
}

// WriteJSON writes v as indented JSON
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// RenderJSON writes result to path
func (r *Renderer) RenderJSON(result *model.StatementResult, path string) error {
	return writeFile(path, func(w io.Writer) error { return WriteJSON(w, result) })
}

// RenderMarkdown writes result to path as Markdown
func (r *Renderer) RenderMarkdown(result *model.StatementResult, path string) error {
	return writeFile(path, func(w io.Writer) error {
		_, err := io.WriteString(w, r.Markdown(result))
		return err
	})
}

// Markdown renders result as a Markdown report
func (r *Renderer) Markdown(result *model.StatementResult) string {
	var b strings.Builder

	b.WriteString("# Fact check\n\n")
	fmt.Fprintf(&b, "> %s\n\n", strings.ReplaceAll(strings.TrimSpace(result.Statement), "\n", "\n> "))
	fmt.Fprintf(&b, "**Verdict:** %s  \n", result.OverallVerdict)
	if result.OverallVerdict != model.OverallError {
		fmt.Fprintf(&b, "**Confidence:** %.0f%%  \n", result.Confidence*100)
	}
	fmt.Fprintf(&b, "**Run:** `%s` (%s, %s)\n\n", result.RunID,
		result.StartedAt.Format(time.RFC3339), result.Duration.Round(time.Millisecond))

	if result.Error != "" {
		fmt.Fprintf(&b, "**Error:** %s\n\n", result.Error)
	}
	if result.Reasoning != "" {
		b.WriteString("## Reasoning\n\n")
		b.WriteString(strings.TrimSpace(result.Reasoning))
		b.WriteString("\n\n")
	}

	if len(result.Judgments) > 0 {
		b.WriteString("## Claims\n\n")
		b.WriteString("| # | Claim | Verdict | Rounds | Searches |\n")
		b.WriteString("|---|-------|---------|--------|----------|\n")
		for i, j := range result.Judgments {
			fmt.Fprintf(&b, "| %d | %s | %s | %d | %s |\n",
				i+1, escapeCell(j.Claim), verdictCell(j), j.IterationsUsed, escapeCell(strings.Join(j.SearchQueries, "; ")))
		}
		b.WriteString("\n")
	}

	if r.verbose {
		for i, j := range result.Judgments {
			fmt.Fprintf(&b, "### Claim %d evidence\n\n", i+1)
			switch {
			case j.Error != "":
				fmt.Fprintf(&b, "Evaluation failed: %s\n\n", j.Error)
			case strings.TrimSpace(j.EvidenceSummary) == "":
				b.WriteString("_No evidence gathered._\n\n")
			default:
				fmt.Fprintf(&b, "```\n%s\n```\n\n", strings.TrimSpace(j.EvidenceSummary))
			}
		}
	}

	if len(result.Warnings) > 0 {
		b.WriteString("## Warnings\n\n")
		for _, w := range result.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
		b.WriteString("\n")
	}

	return b.String()
}

// RenderSummary prints a short human-readable summary
func (r *Renderer) RenderSummary(w io.Writer, result *model.StatementResult) {
	fmt.Fprintf(w, "%s  %s\n", result.OverallVerdict, result.Statement)
	for _, j := range result.Judgments {
		fmt.Fprintf(w, "  [%s] %s\n", j.Verdict, j.Claim)
	}
	if result.Error != "" {
		fmt.Fprintf(w, "  error: %s\n", result.Error)
	}
}

func verdictCell(j model.Judgment) string {
	if j.Verdict == model.VerdictError && j.Error != "" {
		return fmt.Sprintf("ERROR (%s)", escapeCell(j.Error))
	}
	return string(j.Verdict)
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}

func writeFile(path string, write func(io.Writer) error) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
