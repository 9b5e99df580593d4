// Package metrics exposes Prometheus instrumentation for agent turns, routing
// decisions and graph node execution.
//
// A nil *Metrics is valid and records nothing, so components can take one
// optionally.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/smallnest/agentdesk/graph"
)

const namespace = "agentdesk"

// Routing methods reported by the support supervisor.
const (
	RouteGreeting = "greeting"
	RouteSticky   = "sticky"
	RouteLLM      = "llm"
	RouteFallback = "fallback"
)

// Turn outcomes.
const (
	OutcomeSuccess  = "success"
	OutcomeBadKey   = "missing_key"
	OutcomeUpstream = "upstream_error"
	OutcomeError    = "error"
)

// Metrics holds the collectors.
type Metrics struct {
	// TurnsTotal counts user turns. Labels: system, outcome.
	TurnsTotal *prometheus.CounterVec
	// RoutingTotal counts supervisor decisions. Labels: agent, method.
	RoutingTotal *prometheus.CounterVec
	// NodeDuration observes node run time. Labels: system, node.
	NodeDuration *prometheus.HistogramVec
	// NodeErrorsTotal counts failed nodes. Labels: system, node.
	NodeErrorsTotal *prometheus.CounterVec
	// ActiveTurns tracks turns in flight. Labels: system.
	ActiveTurns *prometheus.GaugeVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		TurnsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "User turns processed by system and outcome.",
		}, []string{"system", "outcome"}),
		RoutingTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "support",
			Name:      "routing_decisions_total",
			Help:      "Supervisor routing decisions by target agent and method.",
		}, []string{"agent", "method"}),
		NodeDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "graph",
			Name:      "node_duration_seconds",
			Help:      "Time spent in graph nodes.",
			Buckets:   []float64{.005, .05, .25, 1, 2.5, 5, 10, 30, 60},
		}, []string{"system", "node"}),
		NodeErrorsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "graph",
			Name:      "node_errors_total",
			Help:      "Graph node failures.",
		}, []string{"system", "node"}),
		ActiveTurns: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_turns",
			Help:      "Turns currently being processed.",
		}, []string{"system"}),
	}
}

// RecordRouting counts one supervisor decision.
func (m *Metrics) RecordRouting(agent, method string) {
	if m == nil {
		return
	}
	m.RoutingTotal.WithLabelValues(agent, method).Inc()
}

// RecordTurn counts a finished turn.
func (m *Metrics) RecordTurn(system, outcome string) {
	if m == nil {
		return
	}
	m.TurnsTotal.WithLabelValues(system, outcome).Inc()
}

// TurnStarted marks a turn in flight; call the returned func when it ends.
func (m *Metrics) TurnStarted(system string) func() {
	if m == nil {
		return func() {}
	}
	g := m.ActiveTurns.WithLabelValues(system)
	g.Inc()
	return g.Dec
}

// Listener returns a graph listener feeding the node collectors.
func Listener[S any](m *Metrics, system string) graph.NodeListener[S] {
	return graph.NodeListenerFunc[S](func(_ context.Context, ev graph.StreamEvent[S]) {
		if m == nil {
			return
		}
		switch ev.Event {
		case graph.NodeEventComplete:
			m.NodeDuration.WithLabelValues(system, ev.NodeName).Observe(ev.Duration.Seconds())
		case graph.NodeEventError:
			m.NodeDuration.WithLabelValues(system, ev.NodeName).Observe(ev.Duration.Seconds())
			m.NodeErrorsTotal.WithLabelValues(system, ev.NodeName).Inc()
		}
	})
}
