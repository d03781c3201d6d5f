package observability

import (
	"context"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values of arbor_transitions_total.
const (
	OutcomeSuccess = "success"
	OutcomeIgnored = "ignored"
	OutcomeError   = "error"
)

// Metrics holds the Prometheus collectors fed by transition lifecycle events.
type Metrics struct {
	Transitions     *prometheus.CounterVec
	HookInvocations *prometheus.CounterVec
	Duration        *prometheus.HistogramVec
	Active          prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arbor_transitions_total",
				Help: "Total number of settled transitions by outcome",
			},
			[]string{"outcome"},
		),
		HookInvocations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arbor_hook_invocations_total",
				Help: "Total number of transition hook invocations by event",
			},
			[]string{"event"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "arbor_transition_duration_seconds",
				Help:    "Duration of transitions from start to settlement",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		Active: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "arbor_transitions_active",
			Help: "Number of transitions started but not yet settled",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Transitions, m.HookInvocations, m.Duration, m.Active)
	}
	return m
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	settled := func(outcome string) func(context.Context, *domain.TransitionEvent) {
		return func(_ context.Context, e *domain.TransitionEvent) {
			m.Active.Dec()
			m.Transitions.WithLabelValues(outcome).Inc()
			m.Duration.WithLabelValues(outcome).Observe(e.Duration.Seconds())
		}
	}
	return domain.LifecycleHooks{
		OnTransitionStart: func(context.Context, *domain.TransitionEvent) {
			m.Active.Inc()
		},
		OnTransitionSuccess: settled(OutcomeSuccess),
		OnTransitionIgnored: settled(OutcomeIgnored),
		OnTransitionError:   settled(OutcomeError),
		OnHookInvoke: func(_ context.Context, e *domain.HookEvent) {
			m.HookInvocations.WithLabelValues(e.HookType).Inc()
		},
	}
}
