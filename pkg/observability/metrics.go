package observability

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/zxsted/dialogmanager/pkg/domain"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "dialogmanager"

// Metrics holds the Prometheus collectors fed by the engine hooks.
type Metrics struct {
	registry *prometheus.Registry

	Turns            *prometheus.CounterVec
	TurnDuration     prometheus.Histogram
	ActionsSelected  *prometheus.CounterVec
	ActionsCompleted *prometheus.CounterVec
	Rejections       *prometheus.CounterVec
}

// NewMetrics creates the collectors on a dedicated registry, alongside the
// Go runtime and process collectors.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Turns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "turns_total",
				Help:      "Total number of processed turns by outcome",
			},
			[]string{"outcome"},
		),
		TurnDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "turn_duration_seconds",
				Help:      "Turn processing duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),
		ActionsSelected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "actions_selected_total",
				Help:      "Total number of times an action was selected",
			},
			[]string{"action"},
		),
		ActionsCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "actions_completed_total",
				Help:      "Total number of times an action was completed",
			},
			[]string{"action"},
		),
		Rejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "validation_rejections_total",
				Help:      "Total number of entities refused by a validator",
			},
			[]string{"alias"},
		),
	}

	m.registry.MustRegister(
		m.Turns,
		m.TurnDuration,
		m.ActionsSelected,
		m.ActionsCompleted,
		m.Rejections,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry backing the metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Hooks returns lifecycle hooks recording into the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnActionSelected: func(_ context.Context, e *domain.ActionEvent) {
			m.ActionsSelected.WithLabelValues(e.Action).Inc()
		},
		OnActionDone: func(_ context.Context, e *domain.ActionEvent) {
			m.ActionsCompleted.WithLabelValues(e.Action).Inc()
		},
		OnValidationRejected: func(_ context.Context, e *domain.ValidationEvent) {
			m.Rejections.WithLabelValues(e.Alias).Inc()
		},
		OnTurnEnd: func(_ context.Context, e *domain.TurnEvent) {
			m.Turns.WithLabelValues(e.Outcome).Inc()
			m.TurnDuration.Observe(e.Duration.Seconds())
		},
	}
}
