package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the service's Prometheus collectors on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	requests       *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
	errors         *prometheus.CounterVec
	decisions      *prometheus.CounterVec
	transitions    *prometheus.CounterVec
	auditRetries   prometheus.Counter
	auditDegraded  prometheus.Counter
}

// NewMetrics registers all collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route, method and status",
		}, []string{"path", "method", "status"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"path", "method"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "HTTP error responses by domain error code",
		}, []string{"path", "method", "code"}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authz_decisions_total",
			Help: "Authorization decisions by action and outcome",
		}, []string{"action", "outcome"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lifecycle_transitions_total",
			Help: "Committed ticket and membership transitions",
		}, []string{"kind"}),
		auditRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "audit_append_retries_total",
			Help: "Audit append attempts that were retried",
		}),
		auditDegraded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "audit_degraded_total",
			Help: "Committed mutations whose audit entry could not be written",
		}),
	}
	reg.MustRegister(m.requests, m.requestLatency, m.errors, m.decisions, m.transitions, m.auditRetries, m.auditDegraded)
	return m
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.requestLatency.WithLabelValues(path, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(path, method, code).Inc()
}

// RecordDecision counts an authorization outcome.
func (m *Metrics) RecordDecision(action string, allowed bool) {
	if m == nil {
		return
	}
	outcome := "deny"
	if allowed {
		outcome = "allow"
	}
	m.decisions.WithLabelValues(action, outcome).Inc()
}

// RecordTransition counts a committed state change.
func (m *Metrics) RecordTransition(kind string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(kind).Inc()
}

// RecordAuditRetry counts one retried audit append.
func (m *Metrics) RecordAuditRetry() {
	if m == nil {
		return
	}
	m.auditRetries.Inc()
}

// RecordAuditDegraded counts an audit gap.
func (m *Metrics) RecordAuditDegraded() {
	if m == nil {
		return
	}
	m.auditDegraded.Inc()
}
