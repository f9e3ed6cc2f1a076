package model

import (
	"errors"
	"strings"
	"testing"
)

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		in   string
		want Verdict
		ok   bool
	}{
		{"supported", VerdictSupported, true},
		{" Supported ", VerdictSupported, true},
		{"not_supported", VerdictNotSupported, true},
		{"not supported", VerdictNotSupported, true},
		{"Not-Supported", VerdictNotSupported, true},
		{"refuted", VerdictRefuted, true},
		{"", "", false},
		{"none", "", false},
		{"null", "", false},
		{"maybe", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseVerdict(tt.in)
			if got != tt.want || ok != tt.ok {
				t.Errorf("ParseVerdict(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestParseStance(t *testing.T) {
	tests := map[string]Stance{
		"supports":  StanceSupports,
		"SUPPORTS":  StanceSupports,
		"refutes":   StanceRefutes,
		"neutral":   StanceNeutral,
		"":          StanceNeutral,
		"uncertain": StanceNeutral,
	}
	for in, want := range tests {
		if got := ParseStance(in); got != want {
			t.Errorf("ParseStance(%q) = %q, want %q", in, got, want)
		}
	}

	if StanceNeutral.IsDecisive() {
		t.Error("neutral must not be decisive")
	}
	if !StanceSupports.IsDecisive() || !StanceRefutes.IsDecisive() {
		t.Error("supports and refutes must be decisive")
	}
}

func TestParseOverallVerdict(t *testing.T) {
	got, ok := ParseOverallVerdict(" contains refuted claims ")
	if !ok || got != OverallContainsRefuted {
		t.Errorf("got (%q, %v)", got, ok)
	}
	if _, ok := ParseOverallVerdict("TRUE"); ok {
		t.Error("expected unknown verdict to be rejected")
	}
}

func TestSearchHistory_Dedup(t *testing.T) {
	h := NewSearchHistory()

	if !h.Add("X date") {
		t.Fatal("first add should succeed")
	}
	if h.Add("  x   DATE ") {
		t.Error("equivalent query should be rejected")
	}
	if h.Add("") || h.Add("   ") {
		t.Error("empty query should be rejected")
	}
	if !h.Add("X location") {
		t.Error("distinct query should be accepted")
	}

	got := h.Queries()
	if len(got) != 2 || got[0] != "X date" || got[1] != "X location" {
		t.Errorf("unexpected queries: %v", got)
	}

	got[0] = "mutated"
	if h.Queries()[0] != "X date" {
		t.Error("Queries must return a copy")
	}
}

func TestEvidenceLog_Render(t *testing.T) {
	var log EvidenceLog
	if log.String() != "" {
		t.Fatalf("empty log should render empty, got %q", log.String())
	}

	log.Append("q1", "block one")
	log.Append("q2", "block two")

	want := "\n\n--- Search: q1 ---\nblock one\n\n--- Search: q2 ---\nblock two"
	if log.String() != want {
		t.Errorf("got %q, want %q", log.String(), want)
	}
	if log.Len() != 2 || log.Entries()[1].Query != "q2" {
		t.Errorf("unexpected entries: %+v", log.Entries())
	}
}

func TestPageEvidence_Block(t *testing.T) {
	e := PageEvidence{SourceURL: "https://a.example", Stance: StanceSupports, Text: "fact"}
	want := "Source: https://a.example\nStance: supports\nEvidence: fact"
	if e.Block() != want {
		t.Errorf("got %q", e.Block())
	}
}

func TestFailedJudgment(t *testing.T) {
	j := FailedJudgment("c", errors.New("boom"))
	if j.Verdict != VerdictError || j.Error != "boom" || j.Outcome != OutcomeFailed {
		t.Errorf("unexpected judgment: %+v", j)
	}
	if j.Verdict.IsValid() {
		t.Error("ERROR is not a judge verdict")
	}
}

func TestDefaultConfig_Validates(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Engine.MaxJudgeIterations != 3 || cfg.Engine.MaxPageVisits != 3 {
		t.Errorf("unexpected engine defaults: %+v", cfg.Engine)
	}
	if cfg.Scrape.MaxChars != 10000 {
		t.Errorf("unexpected max chars: %d", cfg.Scrape.MaxChars)
	}
}

func TestConfig_ValidateRejects(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Engine.MaxPageVisits = 0
	cfg.LLM.Provider = "gemini"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "MaxPageVisits") || !strings.Contains(msg, "Provider") {
		t.Errorf("error should name both fields: %s", msg)
	}
}
