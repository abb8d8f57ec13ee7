package triage

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the triage subsystem.
type Metrics struct {
	DecisionsTotal   *prometheus.CounterVec
	DecisionDuration *prometheus.HistogramVec
	PriorityScore    *prometheus.HistogramVec
}

// NewMetrics registers and returns triage metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		DecisionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "opsgenix_triage_decisions_total",
			Help: "Total triage decisions by backend, producing method and backend outcome.",
		}, []string{"backend", "method", "outcome"}),
		DecisionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "opsgenix_triage_decision_duration_seconds",
			Help:    "Duration of triage decisions in seconds, including any fallback.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 9), // 1ms .. ~65s
		}, []string{"backend"}),
		PriorityScore: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "opsgenix_triage_priority_score",
			Help:    "Priority scores assigned, by producing method.",
			Buckets: prometheus.LinearBuckets(0, 10, 11), // 0 .. 100
		}, []string{"method"}),
	}

	reg.MustRegister(
		m.DecisionsTotal,
		m.DecisionDuration,
		m.PriorityScore,
	)

	return m
}

// Hooks returns EngineHooks that record decisions on m.
func (m *Metrics) Hooks() EngineHooks {
	return EngineHooks{
		OnDecision: func(e *DecisionEvent) {
			m.DecisionsTotal.WithLabelValues(e.Backend, string(e.Method), e.Outcome).Inc()
			m.DecisionDuration.WithLabelValues(e.Backend).Observe(e.Duration)
			m.PriorityScore.WithLabelValues(string(e.Method)).Observe(float64(e.PriorityScore))
		},
	}
}
