package aggregate

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/firecheck/internal/model"
	"github.com/ppiankov/firecheck/internal/oracle"
	"github.com/ppiankov/firecheck/internal/oracle/oracletest"
)

func judgments(verdicts ...model.Verdict) []model.Judgment {
	out := make([]model.Judgment, len(verdicts))
	for i, v := range verdicts {
		out[i] = model.Judgment{Claim: string(rune('A' + i)), Verdict: v, EvidenceSummary: "evidence " + string(v)}
	}
	return out
}

func TestDecide(t *testing.T) {
	const (
		s   = model.VerdictSupported
		ns  = model.VerdictNotSupported
		r   = model.VerdictRefuted
		err = model.VerdictError
	)
	tests := []struct {
		name     string
		verdicts []model.Verdict
		want     model.OverallVerdict
	}{
		{"empty", nil, model.OverallSupported},
		{"all supported", []model.Verdict{s, s, s}, model.OverallSupported},
		{"one refuted among supported", []model.Verdict{s, r, s}, model.OverallContainsRefuted},
		{"refuted beats unsupported", []model.Verdict{ns, r}, model.OverallContainsRefuted},
		{"refuted last", []model.Verdict{ns, ns, s, r}, model.OverallContainsRefuted},
		{"unsupported", []model.Verdict{s, ns}, model.OverallContainsUnsupported},
		{"error counts as unsupported", []model.Verdict{s, err}, model.OverallContainsUnsupported},
		{"refuted beats error", []model.Verdict{err, r}, model.OverallContainsRefuted},
		{"single refuted", []model.Verdict{r}, model.OverallContainsRefuted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decide(judgments(tt.verdicts...)))
		})
	}
}

// Every multiset over the three verdicts up to size 4 obeys the priority order
func TestDecide_AllMultisets(t *testing.T) {
	all := []model.Verdict{model.VerdictSupported, model.VerdictNotSupported, model.VerdictRefuted}
	var walk func(prefix []model.Verdict)
	walk = func(prefix []model.Verdict) {
		want := model.OverallSupported
		for _, v := range prefix {
			if v == model.VerdictRefuted {
				want = model.OverallContainsRefuted
				break
			}
			if v == model.VerdictNotSupported {
				want = model.OverallContainsUnsupported
			}
		}
		require.Equal(t, want, Decide(judgments(prefix...)), "verdicts %v", prefix)
		if len(prefix) == 4 {
			return
		}
		for _, v := range all {
			walk(append(append([]model.Verdict(nil), prefix...), v))
		}
	}
	walk(nil)
}

func TestAggregate_RuleOverridesOracle(t *testing.T) {
	o := &oracletest.Scripted{AggregateFunc: func(oracle.AggregateRequest) (*oracle.AggregateResponse, error) {
		return &oracle.AggregateResponse{
			Reasoning:      "Mostly fine.",
			OverallVerdict: model.OverallSupported,
			Confidence:     0.9,
		}, nil
	}}
	js := judgments(model.VerdictSupported, model.VerdictRefuted, model.VerdictSupported)

	res := New(o, nil).Aggregate(context.Background(), "statement", js)
	assert.Equal(t, model.OverallContainsRefuted, res.OverallVerdict)
	assert.Equal(t, model.OverallSupported, res.AdvisoryVerdict)
	assert.Equal(t, "Mostly fine.", res.Reasoning)
	assert.Equal(t, 0.9, res.Confidence)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "priority rule gives CONTAINS_REFUTED_CLAIMS")

	require.Len(t, o.AggregateCalls, 1)
	assert.Equal(t, Details(js), o.AggregateCalls[0].Claims)
}

func TestAggregate_ClaimDetailsEchoJudgments(t *testing.T) {
	o := &oracletest.Scripted{AggregateFunc: func(oracle.AggregateRequest) (*oracle.AggregateResponse, error) {
		return &oracle.AggregateResponse{Reasoning: "ok", OverallVerdict: model.OverallContainsUnsupported, Confidence: 0.5}, nil
	}}
	js := judgments(model.VerdictSupported, model.VerdictNotSupported)

	res := New(o, nil).Aggregate(context.Background(), "statement", js)
	require.Len(t, res.ClaimDetails, 2)
	for i, d := range res.ClaimDetails {
		assert.Equal(t, js[i].Claim, d.Claim)
		assert.Equal(t, js[i].Verdict, d.Verdict)
		assert.Equal(t, js[i].EvidenceSummary, d.EvidenceSummary)
	}
	assert.Empty(t, res.Warnings)
}

func TestAggregate_OracleFailure(t *testing.T) {
	o := &oracletest.Scripted{}
	js := judgments(model.VerdictSupported, model.VerdictNotSupported)

	res := New(o, nil).Aggregate(context.Background(), "statement", js)
	assert.Equal(t, model.OverallContainsUnsupported, res.OverallVerdict)
	assert.Zero(t, res.Confidence)
	assert.Empty(t, res.AdvisoryVerdict)
	assert.Equal(t, "2 claims judged (1 supported, 1 not_supported): at least one claim could not be supported.", res.Reasoning)
	require.Len(t, res.Warnings, 1)
}

func TestAggregate_NoClaims(t *testing.T) {
	res := New(&oracletest.Scripted{}, nil).Aggregate(context.Background(), "statement", nil)
	assert.Equal(t, model.OverallSupported, res.OverallVerdict)
	assert.NotNil(t, res.ClaimDetails)
	assert.Equal(t, "No verifiable claims were extracted from the statement.", res.Reasoning)
}

func TestClampConfidence(t *testing.T) {
	assert.Equal(t, 0.0, clampConfidence(-0.2))
	assert.Equal(t, 1.0, clampConfidence(7))
	assert.Equal(t, 0.0, clampConfidence(math.NaN()))
	assert.Equal(t, 0.4, clampConfidence(0.4))
}

func TestAggregate_PropagatesNothingOnOracleError(t *testing.T) {
	boom := errors.New("timeout")
	o := &oracletest.Scripted{AggregateFunc: func(oracle.AggregateRequest) (*oracle.AggregateResponse, error) {
		return nil, boom
	}}
	res := New(o, nil).Aggregate(context.Background(), "s", judgments(model.VerdictRefuted))
	assert.Equal(t, model.OverallContainsRefuted, res.OverallVerdict)
	assert.Contains(t, res.Warnings[0], "timeout")
}
