// Package metrics collects auractl's Prometheus metrics. auractl is a
// short-lived process, so metrics are written to a node-exporter textfile
// rather than served.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "auractl"

// Registry holds the auractl collectors on a private registry.
type Registry struct {
	reg *prometheus.Registry

	invocations *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	polls       *prometheus.CounterVec
	phases      *prometheus.CounterVec
}

// New creates a registry with all collectors registered.
func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cli_invocations_total",
			Help:      "aura-cli invocations by command and outcome.",
		}, []string{"command", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cli_invocation_duration_seconds",
			Help:      "Wall time of aura-cli invocations.",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"command"}),
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_attempts_total",
			Help:      "Status polls performed while waiting, by resource kind.",
		}, []string{"kind"}),
		phases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_phases_total",
			Help:      "Workflow phases by phase name and outcome.",
		}, []string{"phase", "outcome"}),
	}
	r.reg.MustRegister(r.invocations, r.duration, r.polls, r.phases)
	return r
}

// Gatherer exposes the underlying registry.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// ObserveCommand records one aura-cli invocation.
func (r *Registry) ObserveCommand(command, outcome string, d time.Duration) {
	r.invocations.WithLabelValues(command, outcome).Inc()
	r.duration.WithLabelValues(command).Observe(d.Seconds())
}

// ObservePoll records one status poll for kind ("snapshot" or "instance").
func (r *Registry) ObservePoll(kind string) {
	r.polls.WithLabelValues(kind).Inc()
}

// ObservePhase records a finished workflow phase.
func (r *Registry) ObservePhase(phase, outcome string) {
	r.phases.WithLabelValues(phase, outcome).Inc()
}

// WriteTextfile writes the registry in text exposition format to path,
// atomically.
func (r *Registry) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.reg)
}
