// Package metrics exposes supervisor counters in the Prometheus text format.
//
// Every method is safe on a nil *Metrics so callers need not check whether
// metrics are enabled.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/muurk/wifiprov/internal/connect"
	"github.com/muurk/wifiprov/internal/state"
)

const namespace = "wifiprov"

// Metrics holds the supervisor collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	phase          *prometheus.GaugeVec
	connectResults *prometheus.CounterVec
	retries        prometheus.Counter
	resets         *prometheus.CounterVec
	restarts       *prometheus.CounterVec
	portalSessions prometheus.Counter
	portalRequests prometheus.Counter
}

// New registers the supervisor metrics on a fresh registry. withRuntime adds
// the Go runtime and process collectors.
func New(withRuntime bool) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		phase: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "phase",
			Help:      "1 for the current supervisor phase, 0 otherwise.",
		}, []string{"phase"}),
		connectResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connect_attempts_total",
			Help:      "Finished connection attempts by result.",
		}, []string{"result"}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retries_total",
			Help:      "Retries started after a failed attempt.",
		}),
		resets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resets_total",
			Help:      "Resets performed by trigger.",
		}, []string{"trigger"}),
		restarts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "restarts_total",
			Help:      "Restarts requested, with or without a wipe.",
		}, []string{"reason"}),
		portalSessions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "portal_sessions_total",
			Help:      "Provisioning portal sessions started.",
		}),
		portalRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_serviced_total",
			Help:      "HTTP requests serviced on the supervisor tick.",
		}),
	}

	m.registry.MustRegister(
		m.phase, m.connectResults, m.retries, m.resets,
		m.restarts, m.portalSessions, m.portalRequests,
	)
	if withRuntime {
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	for _, p := range state.Phases() {
		m.phase.WithLabelValues(p.String()).Set(0)
	}
	m.phase.WithLabelValues(state.PhaseInit.String()).Set(1)
	return m
}

// Handler serves the registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the registry the collectors live in.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// SetPhase moves the phase gauge from one phase to the next.
func (m *Metrics) SetPhase(from, to state.Phase) {
	if m == nil {
		return
	}
	m.phase.WithLabelValues(from.String()).Set(0)
	m.phase.WithLabelValues(to.String()).Set(1)
}

// ConnectFinished counts a finished connection attempt by result.
func (m *Metrics) ConnectFinished(r connect.Result) {
	if m == nil {
		return
	}
	m.connectResults.WithLabelValues(r.String()).Inc()
}

// RetryStarted counts a retry after a failed attempt.
func (m *Metrics) RetryStarted() {
	if m == nil {
		return
	}
	m.retries.Inc()
}

// Reset counts a reset by trigger.
func (m *Metrics) Reset(trigger string) {
	if m == nil {
		return
	}
	m.resets.WithLabelValues(trigger).Inc()
}

// Restart counts a device restart.
func (m *Metrics) Restart(reason string) {
	if m == nil {
		return
	}
	m.restarts.WithLabelValues(reason).Inc()
}

// PortalStarted counts a portal session.
func (m *Metrics) PortalStarted() {
	if m == nil {
		return
	}
	m.portalSessions.Inc()
}

// RequestsServiced adds n requests handled on the tick goroutine.
func (m *Metrics) RequestsServiced(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.portalRequests.Add(float64(n))
}
