package observability

import (
	"context"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the prometheus collectors fed by engine hooks.
// Labels use node names, which are bounded by the tree definitions.
type Metrics struct {
	Requests     *prometheus.CounterVec
	Outcomes     *prometheus.CounterVec
	Interrupts   *prometheus.CounterVec
	TaskDuration *prometheus.HistogramVec
	TasksRunning prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg skips registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arbor_node_requests_total",
				Help: "Total number of get_outcome requests per node",
			},
			[]string{"node"},
		),
		Outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arbor_node_outcomes_total",
				Help: "Total number of resolved nodes by outcome",
			},
			[]string{"node", "outcome"},
		),
		Interrupts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arbor_node_interrupts_total",
				Help: "Total number of interrupts per node",
			},
			[]string{"node"},
		),
		TaskDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "arbor_task_duration_seconds",
				Help:    "Lifetime of external task handles",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"node", "cancelled"},
		),
		TasksRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "arbor_tasks_running",
			Help: "External tasks currently holding a handle",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Requests, m.Outcomes, m.Interrupts, m.TaskDuration, m.TasksRunning)
	}
	return m
}

// Hooks returns lifecycle hooks updating m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnRequest: func(_ context.Context, ev *domain.NodeEvent) {
			m.Requests.WithLabelValues(ev.NodeName).Inc()
		},
		OnOutcome: func(_ context.Context, ev *domain.NodeEvent) {
			m.Outcomes.WithLabelValues(ev.NodeName, ev.Outcome.String()).Inc()
		},
		OnInterrupt: func(_ context.Context, ev *domain.NodeEvent) {
			m.Interrupts.WithLabelValues(ev.NodeName).Inc()
		},
		OnTaskSpawn: func(context.Context, *domain.TaskEvent) {
			m.TasksRunning.Inc()
		},
		OnTaskRelease: func(_ context.Context, ev *domain.TaskEvent) {
			m.TasksRunning.Dec()
			cancelled := "false"
			if ev.Cancelled {
				cancelled = "true"
			}
			m.TaskDuration.WithLabelValues(ev.NodeName, cancelled).Observe(ev.Duration.Seconds())
		},
	}
}
