package oracle

import (
	"context"
	"fmt"

	"github.com/ppiankov/firecheck/internal/llm"
)

// LLMOracle answers oracle calls with JSON-mode completions from a language model
type LLMOracle struct {
	provider llm.Provider
}

// NewLLMOracle creates an oracle over the given provider
func NewLLMOracle(provider llm.Provider) *LLMOracle {
	return &LLMOracle{provider: provider}
}

// ExtractClaims decomposes a statement into claims
func (o *LLMOracle) ExtractClaims(ctx context.Context, req ExtractRequest) (*ExtractResponse, error) {
	text, err := o.complete(ctx, extractSystem, extractPrompt(req))
	if err != nil {
		return nil, err
	}
	return parseClaims(text)
}

// Judge asks for a verdict or a follow-up query
func (o *LLMOracle) Judge(ctx context.Context, req JudgeRequest) (*JudgeResponse, error) {
	text, err := o.complete(ctx, judgeSystem, judgePrompt(req))
	if err != nil {
		return nil, err
	}
	return parseJudge(text)
}

// SelectPage picks the next result to visit
func (o *LLMOracle) SelectPage(ctx context.Context, req SelectPageRequest) (*SelectPageResponse, error) {
	text, err := o.complete(ctx, selectSystem, selectPrompt(req))
	if err != nil {
		return nil, err
	}
	return parseSelection(text)
}

// SummarizeEvidence extracts claim-relevant evidence from a page
func (o *LLMOracle) SummarizeEvidence(ctx context.Context, req SummarizeRequest) (*SummarizeResponse, error) {
	text, err := o.complete(ctx, summarizeSystem, summarizePrompt(req))
	if err != nil {
		return nil, err
	}
	return parseSummary(text)
}

// Aggregate explains the statement-level verdict
func (o *LLMOracle) Aggregate(ctx context.Context, req AggregateRequest) (*AggregateResponse, error) {
	text, err := o.complete(ctx, aggregateSystem, aggregatePrompt(req))
	if err != nil {
		return nil, err
	}
	return parseAggregate(text)
}

// Baseline judges a statement without evidence
func (o *LLMOracle) Baseline(ctx context.Context, req BaselineRequest) (*BaselineResponse, error) {
	text, err := o.complete(ctx, baselineSystem, baselinePrompt(req))
	if err != nil {
		return nil, err
	}
	return parseBaseline(text)
}

func (o *LLMOracle) complete(ctx context.Context, system, prompt string) (string, error) {
	resp, err := o.provider.Complete(ctx, llm.CompletionRequest{
		System: system,
		Prompt: prompt,
		JSON:   true,
	})
	if err != nil {
		return "", fmt.Errorf("%s completion: %w", o.provider.Name(), err)
	}
	return resp.Text, nil
}
