package oracle

import (
	"fmt"
	"strings"

	"github.com/ppiankov/firecheck/internal/model"
)

// Prompt inputs are truncated to keep requests inside model context windows
const (
	maxPromptEvidence = 24_000
	maxPromptPage     = 16_000
	maxPromptSnippet  = 400
)

const extractSystem = `You decompose statements into atomic factual claims for fact-checking.
Each claim must be a single, self-contained, independently verifiable assertion.
Resolve pronouns so every claim stands alone. Skip opinions, questions and predictions.
Respond with JSON: {"claims": ["...", "..."]}`

const judgeSystem = `You are a fact-checking judge. Evaluate a single factual claim given evidence gathered from web research.
Either produce a final verdict if the evidence is sufficient, or propose one new search query.
Decision logic:
- Evidence clearly supports the claim: verdict "supported".
- Evidence clearly contradicts the claim: verdict "refuted".
- Evidence is insufficient but a useful search is possible: verdict null and next_search set to the query.
- No more useful searches and evidence is inconclusive: verdict "not_supported".
next_search must differ from every query in the search history.
Respond with JSON: {"reasoning": "...", "verdict": "supported" | "not_supported" | "refuted" | null, "next_search": "..." | null}`

const selectSystem = `You choose which search result to read next while fact-checking a claim.
Prefer relevant, authoritative pages likely to support or refute the claim. Never choose a visited URL.
Return null when the evidence gathered so far is sufficient or no useful unvisited page remains.
Respond with JSON: {"reasoning": "...", "selected_url": "https://..." | null}`

const summarizeSystem = `You extract evidence relevant to verifying a specific claim from a web page.
Quote or paraphrase only facts present on the page that bear on the claim, with attribution to the source.
Classify the page's stance toward the claim as "supports", "refutes" or "neutral".
Respond with JSON: {"relevant_evidence": "...", "evidence_stance": "supports" | "refutes" | "neutral"}`

const aggregateSystem = `You explain the overall verdict for a statement from its per-claim verdicts.
Priority rule:
1. If ANY claim is refuted: CONTAINS_REFUTED_CLAIMS.
2. Else if ANY claim is not_supported (or ERROR): CONTAINS_UNSUPPORTED_CLAIMS.
3. Else (all supported, or no claims): SUPPORTED.
Respond with JSON: {"reasoning": "...", "overall_verdict": "SUPPORTED" | "CONTAINS_UNSUPPORTED_CLAIMS" | "CONTAINS_REFUTED_CLAIMS", "confidence": 0.0-1.0}`

const baselineSystem = `You determine whether a statement is factually correct using only your own knowledge.
You have no access to web search or any external source.
Respond with JSON: {"reasoning": "...", "verdict": "SUPPORTED" | "NOT_ENOUGH_INFO" | "REFUTED"}`

func baselinePrompt(req BaselineRequest) string {
	return "Statement:\n" + req.Statement
}

func extractPrompt(req ExtractRequest) string {
	return "Statement:\n" + req.Statement
}

func judgePrompt(req JudgeRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Claim: %s\n\n", req.Claim)

	b.WriteString("Search history:\n")
	if len(req.SearchHistory) == 0 {
		b.WriteString("(none)\n")
	}
	for _, q := range req.SearchHistory {
		fmt.Fprintf(&b, "- %s\n", q)
	}

	b.WriteString("\nEvidence:\n")
	evidence := strings.TrimSpace(req.Evidence)
	if evidence == "" {
		evidence = "(no evidence gathered yet)"
	}
	b.WriteString(clip(evidence, maxPromptEvidence))
	return b.String()
}

func selectPrompt(req SelectPageRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Claim: %s\n\nSearch results:\n", req.Claim)
	for _, r := range req.Results {
		fmt.Fprintf(&b, "%d. %s\n   URL: %s\n", r.Rank, r.Title, r.Link)
		if r.Authority != model.TierUnknown {
			fmt.Fprintf(&b, "   Source authority: %s\n", r.Authority)
		}
		if r.Snippet != "" {
			fmt.Fprintf(&b, "   %s\n", clip(r.Snippet, maxPromptSnippet))
		}
	}

	b.WriteString("\nVisited URLs:\n")
	if len(req.Visited) == 0 {
		b.WriteString("(none)\n")
	}
	for _, u := range req.Visited {
		fmt.Fprintf(&b, "- %s\n", u)
	}

	b.WriteString("\nEvidence gathered so far:\n")
	evidence := strings.TrimSpace(req.CurrentEvidence)
	if evidence == "" {
		evidence = "(none)"
	}
	b.WriteString(clip(evidence, maxPromptEvidence))
	return b.String()
}

func summarizePrompt(req SummarizeRequest) string {
	return fmt.Sprintf("Claim: %s\n\nSource URL: %s\n\nPage content:\n%s",
		req.Claim, req.SourceURL, clip(req.PageContent, maxPromptPage))
}

func aggregatePrompt(req AggregateRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Original statement: %s\n\nClaim verdicts:\n", req.Statement)
	if len(req.Claims) == 0 {
		b.WriteString("(no claims were extracted)\n")
	}
	for i, c := range req.Claims {
		fmt.Fprintf(&b, "%d. Claim: %s\n   Verdict: %s\n   Evidence summary: %s\n",
			i+1, c.Claim, c.Verdict, clip(strings.TrimSpace(c.EvidenceSummary), maxPromptEvidence/4))
	}
	return b.String()
}

func clip(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "\n[...]"
}
