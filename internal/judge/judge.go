// Package judge implements the bounded claim judgment loop: the oracle either
// rules on a claim or asks for one more search, until a verdict or the round
// budget is reached.
package judge

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ppiankov/firecheck/internal/metrics"
	"github.com/ppiankov/firecheck/internal/model"
	"github.com/ppiankov/firecheck/internal/oracle"
	"github.com/ppiankov/firecheck/internal/research"
)

// DefaultMaxIterations is used when the constructor receives a non-positive budget
const DefaultMaxIterations = 3

// Researcher gathers evidence for one query
type Researcher interface {
	Research(ctx context.Context, claim, query string) (*research.Result, error)
}

// Judge evaluates single claims
type Judge struct {
	oracle        oracle.Oracle
	researcher    Researcher
	maxIterations int
	logger        *slog.Logger
}

// Option configures a Judge
type Option func(*Judge)

// WithLogger sets the judge's logger
func WithLogger(logger *slog.Logger) Option {
	return func(j *Judge) {
		if logger != nil {
			j.logger = logger
		}
	}
}

// New creates a judge with the given round budget
func New(o oracle.Oracle, researcher Researcher, maxIterations int, opts ...Option) *Judge {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	j := &Judge{
		oracle:        o,
		researcher:    researcher,
		maxIterations: maxIterations,
		logger:        slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// MaxIterations returns the round budget
func (j *Judge) MaxIterations() int {
	return j.maxIterations
}

// Evaluate runs the judgment loop for claim.
// Exhausting the budget yields not_supported; oracle and research errors are returned as-is.
func (j *Judge) Evaluate(ctx context.Context, claim string) (model.Judgment, error) {
	var (
		log     model.EvidenceLog
		history = model.NewSearchHistory()
	)

	for round := 0; round < j.maxIterations; round++ {
		if err := ctx.Err(); err != nil {
			return model.Judgment{}, err
		}

		resp, err := j.oracle.Judge(ctx, oracle.JudgeRequest{
			Claim:         claim,
			Evidence:      log.String(),
			SearchHistory: history.Queries(),
		})
		if err != nil {
			return model.Judgment{}, fmt.Errorf("judge round %d: %w", round+1, err)
		}

		if resp.HasVerdict() {
			j.logger.Debug("verdict reached", "claim", claim, "verdict", resp.Verdict, "round", round+1)
			return j.finish(claim, resp.Verdict, model.OutcomeVerdict, round+1, &log, history), nil
		}

		if !history.Add(resp.NextSearch) {
			j.logger.Debug("judge round stalled", "claim", claim, "round", round+1, "suggested", resp.NextSearch)
			continue
		}
		query := history.Queries()[history.Len()-1]

		result, err := j.researcher.Research(ctx, claim, query)
		if err != nil {
			return model.Judgment{}, fmt.Errorf("research %q: %w", query, err)
		}
		log.Append(query, result.Text)
	}

	j.logger.Debug("judge budget exhausted", "claim", claim, "rounds", j.maxIterations)
	return j.finish(claim, model.VerdictNotSupported, model.OutcomeExhausted, j.maxIterations, &log, history), nil
}

func (j *Judge) finish(claim string, verdict model.Verdict, outcome model.Outcome, rounds int, log *model.EvidenceLog, history *model.SearchHistory) model.Judgment {
	metrics.JudgeRounds.WithLabelValues(string(outcome)).Observe(float64(rounds))
	return model.Judgment{
		Claim:           claim,
		Verdict:         verdict,
		EvidenceSummary: log.String(),
		SearchQueries:   history.Queries(),
		IterationsUsed:  rounds,
		Outcome:         outcome,
	}
}
