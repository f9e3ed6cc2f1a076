// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OracleCalls counts oracle calls by kind (extract, judge, select_page, summarize, aggregate) and result
	OracleCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "firecheck_oracle_calls_total",
		Help: "Total oracle calls by kind and result",
	}, []string{"kind", "result"})

	OracleDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "firecheck_oracle_duration_seconds",
		Help:    "Oracle call duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.25, 2, 9), // 250ms to ~64s
	}, []string{"kind"})

	SearchCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "firecheck_search_calls_total",
		Help: "Total search provider calls by provider and result",
	}, []string{"provider", "result"})

	ScrapeCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "firecheck_scrape_calls_total",
		Help: "Total page scrapes by provider and result",
	}, []string{"provider", "result"})

	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "firecheck_cache_lookups_total",
		Help: "Provider cache lookups by namespace and outcome",
	}, []string{"namespace", "outcome"})

	// ResearchStops counts research runs by the reason they ended
	ResearchStops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "firecheck_research_stops_total",
		Help: "Research runs by stop reason",
	}, []string{"reason"})

	PageVisits = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "firecheck_research_page_visits",
		Help:    "Pages visited per research run",
		Buckets: []float64{0, 1, 2, 3, 5, 8},
	})

	JudgeRounds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "firecheck_judge_rounds",
		Help:    "Judge rounds consumed per claim by outcome",
		Buckets: []float64{1, 2, 3, 4, 5, 8},
	}, []string{"outcome"})

	ClaimVerdicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "firecheck_claim_verdicts_total",
		Help: "Claim judgments by verdict",
	}, []string{"verdict"})

	StatementVerdicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "firecheck_statement_verdicts_total",
		Help: "Statement results by overall verdict",
	}, []string{"verdict"})

	StatementDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "firecheck_statement_duration_seconds",
		Help:    "End-to-end statement check duration in seconds",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1s to ~8.5m
	})

	// AggregationDisagreements counts runs where the oracle's advisory verdict differed from the rule
	AggregationDisagreements = promauto.NewCounter(prometheus.CounterOpts{
		Name: "firecheck_aggregation_disagreements_total",
		Help: "Aggregations where the oracle verdict disagreed with the priority rule",
	})
)

// Result maps an error to a metric label
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
