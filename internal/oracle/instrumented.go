package oracle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ppiankov/firecheck/internal/metrics"
	"github.com/ppiankov/firecheck/internal/model"
)

var tracer = otel.Tracer("firecheck.oracle")

// Call kinds used for metrics, spans and logs
const (
	KindExtract   = "extract"
	KindJudge     = "judge"
	KindSelect    = "select_page"
	KindSummarize = "summarize"
	KindAggregate = "aggregate"
	KindBaseline  = "baseline"
)

// Instrumented wraps an Oracle with a per-call timeout, tracing, metrics and debug logging
type Instrumented struct {
	next    Oracle
	timeout time.Duration
	logger  *slog.Logger
}

// NewInstrumented wraps next. timeout <= 0 disables the per-call deadline.
func NewInstrumented(next Oracle, timeout time.Duration, logger *slog.Logger) *Instrumented {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Instrumented{next: next, timeout: timeout, logger: logger}
}

// ExtractClaims implements Oracle
func (i *Instrumented) ExtractClaims(ctx context.Context, req ExtractRequest) (*ExtractResponse, error) {
	return observe(ctx, i, KindExtract, func(ctx context.Context) (*ExtractResponse, error) {
		return i.next.ExtractClaims(ctx, req)
	})
}

// Judge implements Oracle
func (i *Instrumented) Judge(ctx context.Context, req JudgeRequest) (*JudgeResponse, error) {
	return observe(ctx, i, KindJudge, func(ctx context.Context) (*JudgeResponse, error) {
		return i.next.Judge(ctx, req)
	})
}

// SelectPage implements Oracle
func (i *Instrumented) SelectPage(ctx context.Context, req SelectPageRequest) (*SelectPageResponse, error) {
	return observe(ctx, i, KindSelect, func(ctx context.Context) (*SelectPageResponse, error) {
		return i.next.SelectPage(ctx, req)
	})
}

// SummarizeEvidence implements Oracle
func (i *Instrumented) SummarizeEvidence(ctx context.Context, req SummarizeRequest) (*SummarizeResponse, error) {
	return observe(ctx, i, KindSummarize, func(ctx context.Context) (*SummarizeResponse, error) {
		return i.next.SummarizeEvidence(ctx, req)
	})
}

// Aggregate implements Oracle
func (i *Instrumented) Aggregate(ctx context.Context, req AggregateRequest) (*AggregateResponse, error) {
	return observe(ctx, i, KindAggregate, func(ctx context.Context) (*AggregateResponse, error) {
		return i.next.Aggregate(ctx, req)
	})
}

// Baseline implements Baseliner when the wrapped oracle does
func (i *Instrumented) Baseline(ctx context.Context, req BaselineRequest) (*BaselineResponse, error) {
	b, ok := i.next.(Baseliner)
	if !ok {
		return nil, fmt.Errorf("oracle %s: %w", KindBaseline, errors.ErrUnsupported)
	}
	return observe(ctx, i, KindBaseline, func(ctx context.Context) (*BaselineResponse, error) {
		return b.Baseline(ctx, req)
	})
}

// BaselineVerdict adapts a Baseliner to a statement-in, verdict-out function
func BaselineVerdict(b Baseliner) func(context.Context, string) (model.OverallVerdict, error) {
	return func(ctx context.Context, statement string) (model.OverallVerdict, error) {
		resp, err := b.Baseline(ctx, BaselineRequest{Statement: statement})
		if err != nil {
			return "", err
		}
		return resp.Verdict, nil
	}
}

func observe[T any](ctx context.Context, i *Instrumented, kind string, call func(context.Context) (*T, error)) (*T, error) {
	ctx, span := tracer.Start(ctx, "oracle."+kind)
	defer span.End()

	if i.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := call(ctx)
	elapsed := time.Since(start)

	if err == nil && resp == nil {
		err = fmt.Errorf("%w: empty %s response", ErrMalformedOutput, kind)
	}

	metrics.OracleCalls.WithLabelValues(kind, metrics.Result(err)).Inc()
	metrics.OracleDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
	span.SetAttributes(
		attribute.String("oracle.kind", kind),
		attribute.Int64("oracle.duration_ms", elapsed.Milliseconds()),
	)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		i.logger.Debug("oracle call failed", "kind", kind, "duration", elapsed, "error", err)
		return nil, fmt.Errorf("oracle %s: %w", kind, err)
	}

	span.SetStatus(codes.Ok, "")
	i.logger.Debug("oracle call", "kind", kind, "duration", elapsed)
	return resp, nil
}
