package manager

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the manager's Prometheus instrumentation. Grounded on the
// alert-history service's pkg/history/cache.Manager Metrics struct
// (Namespace/Subsystem-grouped CounterVec/GaugeVec/HistogramVec built with
// promauto). Unlike that struct, metrics here register against a private
// prometheus.Registry rather than the global DefaultRegisterer, so that
// constructing more than one FilterManager (as tests do) never collides on
// duplicate metric registration.
type Metrics struct {
	registry *prometheus.Registry

	Checkpoints      *prometheus.CounterVec
	Leaves           *prometheus.CounterVec
	HeadVersion      prometheus.Gauge
	VacuumReclaimed  prometheus.Counter
	OperationLatency *prometheus.HistogramVec
}

// NewMetrics builds a fresh, independently-registered Metrics set.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		Checkpoints: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "filterd",
				Subsystem: "manager",
				Name:      "checkpoints_total",
				Help:      "Total number of checkpoint calls.",
			},
			[]string{"client_id"},
		),
		Leaves: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "filterd",
				Subsystem: "manager",
				Name:      "leaves_total",
				Help:      "Total number of leave calls.",
			},
			[]string{"client_id"},
		),
		HeadVersion: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "filterd",
				Subsystem: "manager",
				Name:      "head_version",
				Help:      "Version number of the current head name-space snapshot.",
			},
		),
		VacuumReclaimed: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "filterd",
				Subsystem: "vacuum",
				Name:      "reclaimed_snapshots_total",
				Help:      "Total number of name-space snapshots reclaimed by the vacuum.",
			},
		),
		OperationLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "filterd",
				Subsystem: "manager",
				Name:      "operation_duration_seconds",
				Help:      "Duration of FilterManager operations in seconds.",
				Buckets:   []float64{.00005, .0001, .0005, .001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"operation", "status"},
		),
	}
}

// Registry exposes the private registry for the admin HTTP surface's
// /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
