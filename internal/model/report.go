package model

import (
	"strings"
	"time"
)

// OverallVerdict is the statement-level reduction of claim verdicts
type OverallVerdict string

const (
	OverallSupported           OverallVerdict = "SUPPORTED"
	OverallContainsUnsupported OverallVerdict = "CONTAINS_UNSUPPORTED_CLAIMS"
	OverallContainsRefuted     OverallVerdict = "CONTAINS_REFUTED_CLAIMS"

	// OverallError marks a statement whose pipeline run failed outright
	OverallError OverallVerdict = "ERROR"
)

// ParseOverallVerdict normalizes a free-form overall verdict
func ParseOverallVerdict(s string) (OverallVerdict, bool) {
	switch OverallVerdict(normalizeUpper(s)) {
	case OverallSupported:
		return OverallSupported, true
	case OverallContainsUnsupported:
		return OverallContainsUnsupported, true
	case OverallContainsRefuted:
		return OverallContainsRefuted, true
	default:
		return "", false
	}
}

// ClaimDetail echoes one judgment for audit
type ClaimDetail struct {
	Claim           string  `json:"claim"`
	Verdict         Verdict `json:"verdict"`
	EvidenceSummary string  `json:"evidence_summary"`
}

// AggregationResult is the statement-level verdict with its explanation
type AggregationResult struct {
	OverallVerdict  OverallVerdict `json:"overall_verdict"`
	Confidence      float64        `json:"confidence"`                 // 0.0 - 1.0
	Reasoning       string         `json:"reasoning"`
	ClaimDetails    []ClaimDetail  `json:"claim_details"`
	AdvisoryVerdict OverallVerdict `json:"advisory_verdict,omitempty"` // What the oracle said; never authoritative
	Warnings        []string       `json:"warnings,omitempty"`
}

// StatementResult is the full output of checking one statement
type StatementResult struct {
	RunID          string         `json:"run_id"`
	Statement      string         `json:"statement"`
	Claims         []string       `json:"claims"`
	Judgments      []Judgment     `json:"judgments"`
	OverallVerdict OverallVerdict `json:"overall_verdict"`
	Confidence     float64        `json:"confidence"`
	Reasoning      string         `json:"reasoning"`
	ClaimDetails   []ClaimDetail  `json:"claim_details"`
	Warnings       []string       `json:"warnings,omitempty"`
	StartedAt      time.Time      `json:"started_at"`
	Duration       time.Duration  `json:"duration_ns"`
	Error          string         `json:"error,omitempty"` // Set when OverallVerdict == ERROR
}

// FailedResult builds the ERROR record for a statement that could not be checked
func FailedResult(runID, statement string, startedAt time.Time, err error) *StatementResult {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return &StatementResult{
		RunID:          runID,
		Statement:      statement,
		Claims:         []string{},
		Judgments:      []Judgment{},
		OverallVerdict: OverallError,
		ClaimDetails:   []ClaimDetail{},
		StartedAt:      startedAt,
		Duration:       time.Since(startedAt),
		Error:          msg,
	}
}

// ErrorCount returns the number of claims recorded as ERROR
func (r *StatementResult) ErrorCount() int {
	n := 0
	for _, j := range r.Judgments {
		if j.Verdict == VerdictError {
			n++
		}
	}
	return n
}

func normalizeUpper(s string) string {
	s = strings.Trim(strings.TrimSpace(s), `"'`)
	s = strings.NewReplacer("-", "_", " ", "_").Replace(s)
	return strings.ToUpper(s)
}
