package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Route decision outcomes.
const (
	OutcomeRouted   = "routed"
	OutcomeNoMatch  = "no_match"
	OutcomeDangling = "dangling"
	OutcomeError    = "error"
)

// Collector bundles the Prometheus metrics of one service instance.
type Collector struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	registrationsTotal  prometheus.Counter
	heartbeatsTotal     *prometheus.CounterVec
	routeDecisionsTotal *prometheus.CounterVec
	tasksTotal          *prometheus.CounterVec
}

// NewCollector creates a Collector with its own registry, so multiple
// instances can coexist in one process.
func NewCollector(namespace string) *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		registrationsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "agent_registrations_total",
				Help:      "Total number of agent card registrations",
			},
		),
		heartbeatsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "agent_heartbeats_total",
				Help:      "Total number of agent heartbeats by status",
			},
			[]string{"status"},
		),
		routeDecisionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "route_decisions_total",
				Help:      "Total number of routing decisions by outcome",
			},
			[]string{"outcome"},
		),
		tasksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tasks_total",
				Help:      "Total number of task lifecycles by terminal state",
			},
			[]string{"state"},
		),
	}
}

// RecordHTTPRequest records one handled HTTP request.
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	c.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordRegistration records one agent card registration.
func (c *Collector) RecordRegistration() {
	c.registrationsTotal.Inc()
}

// RecordHeartbeat records one heartbeat attempt.
func (c *Collector) RecordHeartbeat(ok bool) {
	status := "ok"
	if !ok {
		status = "error"
	}
	c.heartbeatsTotal.WithLabelValues(status).Inc()
}

// RecordRouteDecision records one routing decision outcome.
func (c *Collector) RecordRouteDecision(outcome string) {
	c.routeDecisionsTotal.WithLabelValues(outcome).Inc()
}

// RecordTask records one finished task lifecycle.
func (c *Collector) RecordTask(state string) {
	c.tasksTotal.WithLabelValues(state).Inc()
}

// Handler returns the HTTP handler serving the metrics endpoint.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
