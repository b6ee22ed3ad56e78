package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Run outcomes used as the "outcome" label.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected" // invalid input or unknown policy
	OutcomeFailed   = "failed"   // routing or policy contract failure
)

// Metrics holds the server's Prometheus collectors.
type Metrics struct {
	// RunsTotal counts dispatch runs by policy and outcome.
	RunsTotal *prometheus.CounterVec
	// AssignmentsTotal counts committed operations across all runs.
	AssignmentsTotal prometheus.Counter
	// Makespan observes the makespan of successful runs by policy.
	Makespan *prometheus.HistogramVec
	// StreamClients is the number of open websocket streams.
	StreamClients prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatchsim_runs_total",
			Help: "Dispatch runs by policy and outcome",
		}, []string{"policy", "outcome"}),
		AssignmentsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "dispatchsim_assignments_total",
			Help: "Operations committed to machines",
		}),
		Makespan: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dispatchsim_makespan",
			Help:    "Makespan of successful runs",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}, []string{"policy"}),
		StreamClients: f.NewGauge(prometheus.GaugeOpts{
			Name: "dispatchsim_stream_clients",
			Help: "Open websocket streams",
		}),
	}
}
