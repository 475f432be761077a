// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Optimization metrics
	OptimizationAttempts *prometheus.CounterVec
	AttemptDuration      prometheus.Histogram
	RecommenderLatency   *prometheus.HistogramVec

	// Sweep metrics
	SweepRunsTotal       *prometheus.CounterVec
	SweepProductsDue     prometheus.Gauge
	SweepFailuresTotal   prometheus.Counter
	LastSuccessfulSweep  prometheus.Gauge
	DeadLetteredAttempts prometheus.Counter

	// Lock metrics
	LockContentionTotal prometheus.Counter
}

// NewMetrics creates a new Metrics instance registered on reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "repricer"
	}
	f := promauto.With(reg)

	return &Metrics{
		OptimizationAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "optimizer",
			Name:      "attempts_total",
			Help:      "Optimization attempts by outcome (applied, recorded, failed, busy)",
		}, []string{"outcome"}),
		AttemptDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "optimizer",
			Name:      "attempt_duration_seconds",
			Help:      "Wall time of one optimization attempt, lock wait included",
			Buckets:   prometheus.DefBuckets,
		}),
		RecommenderLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "recommender",
			Name:      "call_latency_seconds",
			Help:      "Recommender call latency in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"status"}),

		SweepRunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "runs_total",
			Help:      "Sweeps started, by scope (global, user)",
		}, []string{"scope"}),
		SweepProductsDue: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "products_due",
			Help:      "Products selected as due by the most recent sweep",
		}),
		SweepFailuresTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "product_failures_total",
			Help:      "Per-product failures caught during sweeps",
		}),
		LastSuccessfulSweep: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "last_completed_timestamp_seconds",
			Help:      "Unix timestamp of the last completed sweep",
		}),
		DeadLetteredAttempts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "dead_lettered_total",
			Help:      "Failed sweep attempts pushed to the dead-letter list",
		}),

		LockContentionTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lock",
			Name:      "contention_total",
			Help:      "Attempts rejected because the product lock was held",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", prometheus.DefaultRegisterer)

// RecordAttempt records one finished optimization attempt.
func RecordAttempt(outcome string, seconds float64) {
	DefaultMetrics.OptimizationAttempts.WithLabelValues(outcome).Inc()
	DefaultMetrics.AttemptDuration.Observe(seconds)
}

// RecordRecommenderCall records recommender call latency.
func RecordRecommenderCall(err error, seconds float64) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	DefaultMetrics.RecommenderLatency.WithLabelValues(status).Observe(seconds)
}

// RecordLockContention counts an attempt that found the product locked.
func RecordLockContention() {
	DefaultMetrics.LockContentionTotal.Inc()
}

// RecordSweepStart records a sweep and how many products it selected.
func RecordSweepStart(scope string, due int) {
	DefaultMetrics.SweepRunsTotal.WithLabelValues(scope).Inc()
	DefaultMetrics.SweepProductsDue.Set(float64(due))
}

// RecordSweepFailure counts a product failure inside a sweep.
func RecordSweepFailure() {
	DefaultMetrics.SweepFailuresTotal.Inc()
}

// RecordSweepDone stamps the completion time of a sweep.
func RecordSweepDone(unixSeconds int64) {
	DefaultMetrics.LastSuccessfulSweep.Set(float64(unixSeconds))
}

// RecordDeadLettered counts an attempt pushed to the dead-letter list.
func RecordDeadLettered() {
	DefaultMetrics.DeadLetteredAttempts.Inc()
}
