package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestResult(t *testing.T) {
	if Result(nil) != "ok" {
		t.Error("Expected ok for nil error")
	}
	if Result(errors.New("boom")) != "error" {
		t.Error("Expected error label")
	}
}

func TestCountersIncrement(t *testing.T) {
	before := testutil.ToFloat64(ResearchStops.WithLabelValues("selector_done"))
	ResearchStops.WithLabelValues("selector_done").Inc()
	if got := testutil.ToFloat64(ResearchStops.WithLabelValues("selector_done")); got != before+1 {
		t.Errorf("Expected %v, got %v", before+1, got)
	}

	before = testutil.ToFloat64(AggregationDisagreements)
	AggregationDisagreements.Inc()
	if got := testutil.ToFloat64(AggregationDisagreements); got != before+1 {
		t.Errorf("Expected %v, got %v", before+1, got)
	}
}
