package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AnalysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "decision_analyses_total",
			Help: "Total number of analyses by method and outcome",
		},
		[]string{"kind", "method", "outcome"},
	)

	AnalysisDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "decision_analysis_duration_seconds",
			Help:    "Duration of analyses in seconds",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
		},
		[]string{"kind", "method"},
	)

	ValidationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "decision_validation_failures_total",
			Help: "Rejected problems and requests by error kind",
		},
		[]string{"kind"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "decision_cache_lookups_total",
			Help: "Result cache lookups by outcome",
		},
		[]string{"outcome"},
	)

	RunsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "decision_runs_active",
			Help: "Number of runs currently executing",
		},
	)

	RunsReaped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "decision_runs_reaped_total",
			Help: "Runs failed by the stale run reaper",
		},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "decision_http_requests_total",
			Help: "HTTP requests by route pattern and status code",
		},
		[]string{"route", "code"},
	)
)

// Outcomes recorded on AnalysesTotal and CacheLookups.
const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeHit     = "hit"
	OutcomeMiss    = "miss"
	OutcomeFailure = "failure"
)

// ObserveAnalysis records one finished analysis.
func ObserveAnalysis(kind, method string, started time.Time, err error) {
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	AnalysesTotal.WithLabelValues(kind, method, outcome).Inc()
	AnalysisDuration.WithLabelValues(kind, method).Observe(time.Since(started).Seconds())
}
