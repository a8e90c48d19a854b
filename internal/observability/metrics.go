package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "incident_sla"

// Metrics holds the Prometheus collectors for the service. A nil *Metrics records nothing.
type Metrics struct {
	gatherer prometheus.Gatherer

	httpRequests        *prometheus.CounterVec
	httpDuration        *prometheus.HistogramVec
	httpErrors          *prometheus.CounterVec
	incidentsSubmitted  *prometheus.CounterVec
	transitions         *prometheus.CounterVec
	classifierFallbacks prometheus.Counter
	slaBreaches         *prometheus.CounterVec
	slaViolations       prometheus.Gauge
	sweepDuration       prometheus.Histogram
}

// NewMetrics registers collectors on a private registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return NewMetricsWith(reg, reg)
}

// NewMetricsWith registers collectors on reg and serves them from gatherer.
func NewMetricsWith(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		gatherer: gatherer,
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status code",
		}, []string{"method", "route", "status_code"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"method", "route"}),
		httpErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "errors_total",
			Help:      "HTTP error responses by route and error code",
		}, []string{"method", "route", "code"}),
		incidentsSubmitted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "incidents",
			Name:      "submitted_total",
			Help:      "Incidents submitted by priority",
		}, []string{"priority"}),
		transitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "incidents",
			Name:      "transitions_total",
			Help:      "Acknowledge and resolve attempts by outcome",
		}, []string{"milestone", "outcome"}),
		classifierFallbacks: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "classifier",
			Name:      "fallbacks_total",
			Help:      "Submissions stored with the default category after classification failed",
		}),
		slaBreaches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sla",
			Name:      "breaches_total",
			Help:      "Breach transitions recorded by priority",
		}, []string{"priority"}),
		slaViolations: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sla",
			Name:      "violations",
			Help:      "Incidents near or past a deadline at the last sweep",
		}),
		sweepDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sla",
			Name:      "sweep_duration_seconds",
			Help:      "Duration of a full SLA sweep",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	m.httpErrors.WithLabelValues(method, route, code).Inc()
}

// IncidentSubmitted counts a persisted submission.
func (m *Metrics) IncidentSubmitted(priority string) {
	if m == nil {
		return
	}
	m.incidentsSubmitted.WithLabelValues(priority).Inc()
}

// Transition counts an acknowledge or resolve attempt.
func (m *Metrics) Transition(milestone, outcome string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(milestone, outcome).Inc()
}

// ClassifierFallback counts a submission that fell back to the default category.
func (m *Metrics) ClassifierFallback() {
	if m == nil {
		return
	}
	m.classifierFallbacks.Inc()
}

// SLABreached counts a breach transition.
func (m *Metrics) SLABreached(priority string) {
	if m == nil {
		return
	}
	m.slaBreaches.WithLabelValues(priority).Inc()
}

// SweepCompleted records a finished sweep.
func (m *Metrics) SweepCompleted(violations int, duration time.Duration) {
	if m == nil {
		return
	}
	m.slaViolations.Set(float64(violations))
	m.sweepDuration.Observe(duration.Seconds())
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
