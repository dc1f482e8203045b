// Package metrics holds the Prometheus collectors of the funnel service.
package metrics

import (
	"net/http"

	"github.com/meikuraledutech/funnel"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for the service on its own registry.
type Collector struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Domain metrics
	ValidationFindings     *prometheus.CounterVec
	SessionsRecorded       prometheus.Counter
	UnexplainedTransitions prometheus.Counter
	StageMutations         *prometheus.CounterVec
}

// NewCollector creates and registers all collectors under namespace.
func NewCollector(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		ValidationFindings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_findings_total",
			Help:      "Validation findings reported, by kind and severity",
		}, []string{"kind", "severity"}),
		SessionsRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_recorded_total",
			Help:      "Session traces recorded",
		}),
		UnexplainedTransitions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unexplained_transitions_total",
			Help:      "Session transitions the resolved graph could not explain during aggregation",
		}),
		StageMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_mutations_total",
			Help:      "Stage store operations, by operation and outcome",
		}, []string{"op", "outcome"}),
	}
	c.registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.ValidationFindings,
		c.SessionsRecorded,
		c.UnexplainedTransitions,
		c.StageMutations,
	)
	return c
}

// ObserveReport counts the findings of a validation report.
func (c *Collector) ObserveReport(r funnel.ValidationReport) {
	for _, f := range r.Errors {
		c.ValidationFindings.WithLabelValues(string(f.Kind), "error").Inc()
	}
	for _, f := range r.Warnings {
		c.ValidationFindings.WithLabelValues(string(f.Kind), "warning").Inc()
	}
}

// ObserveFunnelReport records the degraded-data signal of an aggregation.
func (c *Collector) ObserveFunnelReport(r *funnel.FunnelReport) {
	c.UnexplainedTransitions.Add(float64(r.UnexplainedTransitions))
}

// Registry exposes the underlying registry, mostly for tests.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
