// Package oracle defines the typed contract to the reasoning engine and
// its language-model implementation.
package oracle

import (
	"context"
	"errors"

	"github.com/ppiankov/firecheck/internal/model"
)

// ErrMalformedOutput is returned when the model's reply cannot be decoded into the expected shape
var ErrMalformedOutput = errors.New("malformed oracle output")

// Oracle is the reasoning engine consulted by every stage of a check.
// Implementations must be safe for concurrent use.
type Oracle interface {
	ExtractClaims(ctx context.Context, req ExtractRequest) (*ExtractResponse, error)
	Judge(ctx context.Context, req JudgeRequest) (*JudgeResponse, error)
	SelectPage(ctx context.Context, req SelectPageRequest) (*SelectPageResponse, error)
	SummarizeEvidence(ctx context.Context, req SummarizeRequest) (*SummarizeResponse, error)
	Aggregate(ctx context.Context, req AggregateRequest) (*AggregateResponse, error)
}

// Baseliner judges a statement from the model's own knowledge, without research.
// It is a reference point for batch evaluation, never part of a check.
type Baseliner interface {
	Baseline(ctx context.Context, req BaselineRequest) (*BaselineResponse, error)
}

// BaselineRequest asks for a knowledge-only verdict on a statement
type BaselineRequest struct {
	Statement string
}

// BaselineResponse maps the model's verdict onto the statement-level verdicts
type BaselineResponse struct {
	Reasoning string
	Verdict   model.OverallVerdict
}

// ExtractRequest asks for the atomic claims in a statement
type ExtractRequest struct {
	Statement string
}

// ExtractResponse lists claims as returned by the model, before cleanup
type ExtractResponse struct {
	Claims []string
}

// JudgeRequest asks for a verdict on one claim
type JudgeRequest struct {
	Claim         string
	Evidence      string   // Rendered evidence log; empty on the first round
	SearchHistory []string // Queries already issued for this claim
}

// JudgeResponse carries either a verdict or a follow-up query, or neither
type JudgeResponse struct {
	Reasoning  string
	Verdict    model.Verdict // Empty when the model wants more evidence
	NextSearch string        // Empty when no further search is proposed
}

// HasVerdict reports whether the response is terminal
func (r *JudgeResponse) HasVerdict() bool {
	return r != nil && r.Verdict != ""
}

// SelectPageRequest asks which search result to visit next
type SelectPageRequest struct {
	Claim           string
	Results         []model.SearchResult
	Visited         []string
	CurrentEvidence string
}

// SelectPageResponse names the next URL, or none
type SelectPageResponse struct {
	Reasoning   string
	SelectedURL string // Empty means stop
}

// SummarizeRequest asks for the claim-relevant content of one page
type SummarizeRequest struct {
	Claim       string
	PageContent string
	SourceURL   string
}

// SummarizeResponse is the extracted evidence and the page's stance
type SummarizeResponse struct {
	Evidence string
	Stance   model.Stance
}

// AggregateRequest asks for an explanation of the statement-level verdict
type AggregateRequest struct {
	Statement string
	Claims    []model.ClaimDetail
}

// AggregateResponse is advisory: only Reasoning and Confidence are used directly
type AggregateResponse struct {
	Reasoning      string
	OverallVerdict model.OverallVerdict // Empty when the model's value was unrecognized
	Confidence     float64
}
