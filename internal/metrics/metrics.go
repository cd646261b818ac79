// Package metrics exposes prometheus collectors for planning, analysis and HTTP traffic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder owns its own registry so tests and multiple servers do not collide
type Recorder struct {
	registry *prometheus.Registry

	plans              *prometheus.CounterVec
	analyses           *prometheus.CounterVec
	validationFailures *prometheus.CounterVec
	requestDuration    *prometheus.HistogramVec
}

// New creates a recorder with every collector registered
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		plans: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goabtest_plans_total",
				Help: "number of experiment plans computed, by outcome",
			},
			[]string{"outcome"},
		),
		analyses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goabtest_analyses_total",
				Help: "number of experiment analyses, by method and outcome",
			},
			[]string{"method", "outcome"},
		),
		validationFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goabtest_validation_failures_total",
				Help: "number of failed validity checks, by test type",
			},
			[]string{"test_type"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "goabtest_http_request_duration_seconds",
				Help:    "http request duration in seconds",
				Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route", "status"},
		),
	}

	r.registry.MustRegister(r.plans, r.analyses, r.validationFailures, r.requestDuration)
	return r
}

// Registry exposes the underlying registry for gathering
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the prometheus text format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// PlanCompleted counts a plan by success or failure
func (r *Recorder) PlanCompleted(err error) {
	if r == nil {
		return
	}
	r.plans.WithLabelValues(outcome(err)).Inc()
}

// AnalysisCompleted counts an analysis by method and outcome
func (r *Recorder) AnalysisCompleted(method string, err error) {
	if r == nil {
		return
	}
	r.analyses.WithLabelValues(method, outcome(err)).Inc()
}

// ValidationFailed counts a failed diagnostic
func (r *Recorder) ValidationFailed(testType string) {
	if r == nil {
		return
	}
	r.validationFailures.WithLabelValues(testType).Inc()
}

// ObserveRequest records the latency of one HTTP request
func (r *Recorder) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.requestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
