package model

import "strings"

// Verdict is the judgment of a single claim
type Verdict string

const (
	VerdictSupported    Verdict = "supported"
	VerdictNotSupported Verdict = "not_supported"
	VerdictRefuted      Verdict = "refuted"

	// VerdictError marks a claim whose evaluation failed. It is never produced
	// by the judge itself, only recorded by the pipeline.
	VerdictError Verdict = "ERROR"
)

// ParseVerdict normalizes a free-form verdict string.
// Returns false for empty or unrecognized values ("none", "null", ...).
func ParseVerdict(s string) (Verdict, bool) {
	v := strings.ToLower(strings.TrimSpace(s))
	v = strings.NewReplacer("-", "_", " ", "_").Replace(v)
	switch v {
	case "supported":
		return VerdictSupported, true
	case "not_supported", "unsupported":
		return VerdictNotSupported, true
	case "refuted":
		return VerdictRefuted, true
	default:
		return "", false
	}
}

// IsValid reports whether v is one of the three judge verdicts
func (v Verdict) IsValid() bool {
	return v == VerdictSupported || v == VerdictNotSupported || v == VerdictRefuted
}

// Outcome records how a judge run terminated
type Outcome string

const (
	OutcomeVerdict   Outcome = "verdict"   // Oracle emitted a verdict
	OutcomeExhausted Outcome = "exhausted" // Iteration budget ran out
	OutcomeFailed    Outcome = "failed"    // Evaluation raised an error
)

// Judgment is the terminal result of evaluating one claim
type Judgment struct {
	Claim           string   `json:"claim"`
	Verdict         Verdict  `json:"verdict"`
	EvidenceSummary string   `json:"evidence_summary"`         // Final evidence log
	SearchQueries   []string `json:"search_queries"`           // Final search history
	IterationsUsed  int      `json:"iterations_used"`          // Judge rounds consumed
	Outcome         Outcome  `json:"outcome,omitempty"`        // How the loop ended
	Error           string   `json:"error,omitempty"`          // Set when Verdict == ERROR
}

// FailedJudgment builds the ERROR record for a claim whose evaluation failed
func FailedJudgment(claim string, err error) Judgment {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return Judgment{
		Claim:         claim,
		Verdict:       VerdictError,
		SearchQueries: []string{},
		Outcome:       OutcomeFailed,
		Error:         msg,
	}
}

// SearchHistory is the ordered, duplicate-free list of queries issued for a claim
type SearchHistory struct {
	queries []string
	seen    map[string]struct{}
}

// NewSearchHistory returns an empty history
func NewSearchHistory() *SearchHistory {
	return &SearchHistory{
		queries: []string{},
		seen:    make(map[string]struct{}),
	}
}

// Contains reports whether an equivalent query was already issued.
// Comparison ignores case and collapses whitespace.
func (h *SearchHistory) Contains(query string) bool {
	_, ok := h.seen[queryKey(query)]
	return ok
}

// Add appends query unless an equivalent one is present. Returns true if appended.
func (h *SearchHistory) Add(query string) bool {
	query = strings.TrimSpace(query)
	if query == "" || h.Contains(query) {
		return false
	}
	h.seen[queryKey(query)] = struct{}{}
	h.queries = append(h.queries, query)
	return true
}

// Queries returns a copy of the issued queries in order
func (h *SearchHistory) Queries() []string {
	out := make([]string, len(h.queries))
	copy(out, h.queries)
	return out
}

// Len returns the number of issued queries
func (h *SearchHistory) Len() int {
	return len(h.queries)
}

func queryKey(query string) string {
	return strings.ToLower(strings.Join(strings.Fields(query), " "))
}
