// Package metrics provides Prometheus metrics for the HTTP server and the
// dataset pipeline:
//   - http_request_total: Counter with method, path, and status labels
//   - http_request_duration_seconds: Histogram with method and path labels
//   - http_request_in_flight: Gauge for concurrent requests
//   - pipeline_runs_total: Counter of pipeline runs by outcome
//   - pipeline_run_duration_seconds: Histogram of full run time
//   - pipeline_diagnostics_total: Counter of data quality issues by kind
//   - dataset_drugs / dataset_compatibility_entries: size of the served dataset
//
// All metrics are registered with the Prometheus default registry during
// package initialization.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	HTTPRequestInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_request_in_flight",
			Help: "Current in-flight requests",
		},
	)

	RateLimiterBucketsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rate_limiter_buckets_total",
			Help: "Total number of rate limiter buckets (IPs seen in last ~5 minutes)",
		},
	)

	PipelineRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_runs_total",
			Help: "Dataset pipeline runs by outcome",
		},
		[]string{"outcome"},
	)

	PipelineRunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pipeline_run_duration_seconds",
			Help:    "Time to read, process and persist the source",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)

	PipelineDiagnosticsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_diagnostics_total",
			Help: "Data quality issues found in the source, by kind",
		},
		[]string{"kind"},
	)

	DatasetDrugs = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dataset_drugs",
			Help: "Number of drugs in the served dataset",
		},
	)

	DatasetCompatibilityEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dataset_compatibility_entries",
			Help: "Number of compatibility pairs in the served dataset",
		},
	)
)

// Pipeline run outcomes.
const (
	OutcomeSuccess  = "success"
	OutcomeWarnings = "warnings"
	OutcomeFailure  = "failure"
)

func init() {
	prometheus.MustRegister(HTTPRequestTotals)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(HTTPRequestInFlight)
	prometheus.MustRegister(RateLimiterBucketsTotal)
	prometheus.MustRegister(PipelineRunsTotal)
	prometheus.MustRegister(PipelineRunDuration)
	prometheus.MustRegister(PipelineDiagnosticsTotal)
	prometheus.MustRegister(DatasetDrugs)
	prometheus.MustRegister(DatasetCompatibilityEntries)
}

// RecordPipelineRun counts one run and its diagnostics.
func RecordPipelineRun(outcome string, duration time.Duration, diagnostics map[string]int) {
	PipelineRunsTotal.WithLabelValues(outcome).Inc()
	PipelineRunDuration.Observe(duration.Seconds())
	for kind, n := range diagnostics {
		PipelineDiagnosticsTotal.WithLabelValues(kind).Add(float64(n))
	}
}

// SetDatasetSize publishes the size of the dataset being served.
func SetDatasetSize(drugs, entries int) {
	DatasetDrugs.Set(float64(drugs))
	DatasetCompatibilityEntries.Set(float64(entries))
}
