// Package metrics exposes Prometheus counters for the agent. A nil *Metrics
// is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "agent"

// Metrics holds the collectors on a private registry.
type Metrics struct {
	registry   *prometheus.Registry
	routes     *prometheus.CounterVec
	blocked    prometheus.Counter
	dispatches *prometheus.CounterVec
	dispatchT  *prometheus.HistogramVec
	memoryOps  *prometheus.CounterVec
	toolRounds prometheus.Histogram
	turns      *prometheus.HistogramVec
}

// New creates the collectors and registers them, plus the Go runtime and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		routes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "routes_total",
			Help:      "Prompts routed, by backend.",
		}, []string{"backend", "reason"}),
		blocked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prompts_blocked_total",
			Help:      "Prompts rejected by the safety gate.",
		}),
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capability_dispatches_total",
			Help:      "Capability executions, by capability and outcome.",
		}, []string{"capability", "outcome"}),
		dispatchT: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "capability_duration_seconds",
			Help:      "Capability execution time.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"capability"}),
		memoryOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "memory_operations_total",
			Help:      "Memory saves and searches, by outcome.",
		}, []string{"op", "outcome"}),
		toolRounds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tool_rounds",
			Help:      "Follow-up backend turns per response.",
			Buckets:   []float64{0, 1, 2, 3, 4, 5, 8},
		}),
		turns: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "response_duration_seconds",
			Help:      "Time to complete a streamed response, by backend.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"backend"}),
	}

	m.registry.MustRegister(
		m.routes, m.blocked, m.dispatches, m.dispatchT, m.memoryOps, m.toolRounds, m.turns,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRoute(backend, reason string) {
	if m == nil {
		return
	}
	m.routes.WithLabelValues(backend, reason).Inc()
}

func (m *Metrics) IncBlocked() {
	if m == nil {
		return
	}
	m.blocked.Inc()
}

// ObserveDispatch records one capability execution. outcome is "ok",
// "error", "declined" or "unknown".
func (m *Metrics) ObserveDispatch(capability, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.dispatches.WithLabelValues(capability, outcome).Inc()
	m.dispatchT.WithLabelValues(capability).Observe(d.Seconds())
}

func (m *Metrics) ObserveMemory(op, outcome string) {
	if m == nil {
		return
	}
	m.memoryOps.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) ObserveToolRounds(n int) {
	if m == nil {
		return
	}
	m.toolRounds.Observe(float64(n))
}

func (m *Metrics) ObserveResponse(backend string, d time.Duration) {
	if m == nil {
		return
	}
	m.turns.WithLabelValues(backend).Observe(d.Seconds())
}
