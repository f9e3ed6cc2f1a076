// Package pipeline wires extraction, judgment and aggregation into one
// statement check.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/firecheck/internal/aggregate"
	"github.com/ppiankov/firecheck/internal/extract"
	"github.com/ppiankov/firecheck/internal/judge"
	"github.com/ppiankov/firecheck/internal/metrics"
	"github.com/ppiankov/firecheck/internal/model"
	"github.com/ppiankov/firecheck/internal/oracle"
	"github.com/ppiankov/firecheck/internal/research"
	"github.com/ppiankov/firecheck/internal/web"
)

var tracer = otel.Tracer("firecheck.pipeline")

// Pipeline orchestrates the complete check of one statement.
// It holds no per-run state and is safe for concurrent use.
type Pipeline struct {
	extractor        *extract.ClaimExtractor
	judge            *judge.Judge
	aggregator       *aggregate.Aggregator
	claimConcurrency int
	logger           *slog.Logger
}

// Option configures a Pipeline
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger shared by every stage
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// New creates a pipeline from an oracle, web providers and engine budgets
func New(o oracle.Oracle, searcher web.Searcher, scraper web.Scraper, cfg model.EngineConfig, opts ...Option) *Pipeline {
	opt := options{logger: slog.New(slog.DiscardHandler)}
	for _, fn := range opts {
		fn(&opt)
	}

	agent := research.NewAgent(o, searcher, scraper, cfg.MaxPageVisits, cfg.SearchResultCount,
		research.WithLogger(opt.logger.With("component", "research")))

	concurrency := cfg.ClaimConcurrency
	if concurrency < 1 {
		concurrency = 1
	}

	return &Pipeline{
		extractor:        extract.NewClaimExtractor(o, opt.logger.With("component", "extract")),
		judge:            judge.New(o, agent, cfg.MaxJudgeIterations, judge.WithLogger(opt.logger.With("component", "judge"))),
		aggregator:       aggregate.New(o, opt.logger.With("component", "aggregate")),
		claimConcurrency: concurrency,
		logger:           opt.logger,
	}
}

// Check extracts, judges and aggregates the claims in statement.
// Per-claim failures are recorded as ERROR judgments; only cancellation
// of ctx is returned as an error.
func (p *Pipeline) Check(ctx context.Context, statement string) (*model.StatementResult, error) {
	runID := uuid.NewString()
	startedAt := time.Now().UTC()
	logger := p.logger.With("run_id", runID)

	ctx, span := tracer.Start(ctx, "pipeline.check")
	defer span.End()
	span.SetAttributes(attribute.String("run.id", runID))

	result := &model.StatementResult{
		RunID:     runID,
		Statement: statement,
		StartedAt: startedAt,
	}

	// 1. Extract claims
	claims, err := p.extractor.TryExtract(ctx, statement)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, p.fail(span, ctxErr)
		}
		logger.Warn("claim extraction failed", "error", err)
		result.Warnings = append(result.Warnings, fmt.Sprintf("claim extraction failed: %v", err))
	}
	result.Claims = claims
	span.SetAttributes(attribute.Int("run.claims", len(claims)))
	logger.Info("claims extracted", "count", len(claims))

	// 2. Judge each claim
	result.Judgments = p.judgeClaims(ctx, logger, claims)
	if err := ctx.Err(); err != nil {
		return nil, p.fail(span, err)
	}

	// 3. Aggregate
	agg := p.aggregator.Aggregate(ctx, statement, result.Judgments)
	result.OverallVerdict = agg.OverallVerdict
	result.Confidence = agg.Confidence
	result.Reasoning = agg.Reasoning
	result.ClaimDetails = agg.ClaimDetails
	result.Warnings = append(result.Warnings, agg.Warnings...)
	result.Duration = time.Since(startedAt)

	metrics.StatementVerdicts.WithLabelValues(string(result.OverallVerdict)).Inc()
	metrics.StatementDuration.Observe(result.Duration.Seconds())
	span.SetAttributes(
		attribute.String("run.verdict", string(result.OverallVerdict)),
		attribute.Int("run.claim_errors", result.ErrorCount()),
	)
	span.SetStatus(codes.Ok, "")

	logger.Info("statement checked",
		"verdict", result.OverallVerdict,
		"claims", len(claims),
		"errors", result.ErrorCount(),
		"duration", result.Duration.Round(time.Millisecond))
	return result, nil
}

// judgeClaims evaluates claims with at most claimConcurrency in flight.
// Results keep claim order.
func (p *Pipeline) judgeClaims(ctx context.Context, logger *slog.Logger, claims []string) []model.Judgment {
	judgments := make([]model.Judgment, len(claims))

	var g errgroup.Group
	g.SetLimit(p.claimConcurrency)
	for i, claim := range claims {
		g.Go(func() error {
			j, err := p.judge.Evaluate(ctx, claim)
			if err != nil {
				logger.Warn("claim evaluation failed", "claim", claim, "error", err)
				j = model.FailedJudgment(claim, err)
			} else {
				logger.Debug("claim judged", "claim", claim, "verdict", j.Verdict, "rounds", j.IterationsUsed)
			}
			metrics.ClaimVerdicts.WithLabelValues(string(j.Verdict)).Inc()
			judgments[i] = j
			return nil
		})
	}
	_ = g.Wait()

	return judgments
}

func (p *Pipeline) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
