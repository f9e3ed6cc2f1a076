// Package aggregate reduces per-claim judgments to one statement verdict.
package aggregate

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/ppiankov/firecheck/internal/metrics"
	"github.com/ppiankov/firecheck/internal/model"
	"github.com/ppiankov/firecheck/internal/oracle"
)

// Decide applies the priority rule: any refuted claim wins, then any
// not_supported or ERROR claim, otherwise the statement is supported.
// An empty list is supported.
func Decide(judgments []model.Judgment) model.OverallVerdict {
	unsupported := false
	for _, j := range judgments {
		switch j.Verdict {
		case model.VerdictRefuted:
			return model.OverallContainsRefuted
		case model.VerdictSupported:
		default:
			unsupported = true
		}
	}
	if unsupported {
		return model.OverallContainsUnsupported
	}
	return model.OverallSupported
}

// Details echoes judgments as claim details
func Details(judgments []model.Judgment) []model.ClaimDetail {
	details := make([]model.ClaimDetail, len(judgments))
	for i, j := range judgments {
		details[i] = model.ClaimDetail{
			Claim:           j.Claim,
			Verdict:         j.Verdict,
			EvidenceSummary: j.EvidenceSummary,
		}
	}
	return details
}

// Aggregator combines the priority rule with the oracle's explanation
type Aggregator struct {
	oracle oracle.Oracle
	logger *slog.Logger
}

// New creates an aggregator. A nil logger discards.
func New(o oracle.Oracle, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Aggregator{oracle: o, logger: logger}
}

// Aggregate returns the statement verdict for judgments. The verdict always
// comes from Decide; the oracle only contributes reasoning and confidence.
func (a *Aggregator) Aggregate(ctx context.Context, statement string, judgments []model.Judgment) model.AggregationResult {
	result := model.AggregationResult{
		OverallVerdict: Decide(judgments),
		ClaimDetails:   Details(judgments),
	}

	resp, err := a.oracle.Aggregate(ctx, oracle.AggregateRequest{
		Statement: statement,
		Claims:    result.ClaimDetails,
	})
	if err != nil {
		a.logger.Warn("aggregation oracle failed", "error", err)
		result.Reasoning = DeterministicReasoning(judgments, result.OverallVerdict)
		result.Warnings = append(result.Warnings, fmt.Sprintf("aggregation reasoning unavailable: %v", err))
		return result
	}

	result.Reasoning = resp.Reasoning
	if result.Reasoning == "" {
		result.Reasoning = DeterministicReasoning(judgments, result.OverallVerdict)
	}
	result.Confidence = clampConfidence(resp.Confidence)
	result.AdvisoryVerdict = resp.OverallVerdict

	if resp.OverallVerdict != "" && resp.OverallVerdict != result.OverallVerdict {
		metrics.AggregationDisagreements.Inc()
		a.logger.Warn("oracle verdict disagrees with priority rule",
			"rule", result.OverallVerdict, "oracle", resp.OverallVerdict)
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"oracle suggested %s; priority rule gives %s", resp.OverallVerdict, result.OverallVerdict))
	}
	return result
}

// DeterministicReasoning explains a verdict from the verdict counts alone
func DeterministicReasoning(judgments []model.Judgment, verdict model.OverallVerdict) string {
	if len(judgments) == 0 {
		return "No verifiable claims were extracted from the statement."
	}

	counts := make(map[model.Verdict]int)
	for _, j := range judgments {
		counts[j.Verdict]++
	}

	var parts []string
	for _, v := range []model.Verdict{model.VerdictSupported, model.VerdictNotSupported, model.VerdictRefuted, model.VerdictError} {
		if counts[v] > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", counts[v], v))
		}
	}

	var reason string
	switch verdict {
	case model.OverallContainsRefuted:
		reason = "at least one claim is refuted by the evidence"
	case model.OverallContainsUnsupported:
		reason = "at least one claim could not be supported"
	default:
		reason = "every claim is supported by the evidence"
	}
	return fmt.Sprintf("%d claims judged (%s): %s.", len(judgments), strings.Join(parts, ", "), reason)
}

func clampConfidence(c float64) float64 {
	switch {
	case math.IsNaN(c) || c < 0:
		return 0
	case c > 1:
		return 1
	default:
		return c
	}
}
