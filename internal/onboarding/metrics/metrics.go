package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for onboarding decisions.
type Metrics struct {
	// Decision outcomes by decision and origin (api, snapshot, batch, game)
	DecisionOutcome *prometheus.CounterVec

	// Consistency score distribution
	ConsistencyScore prometheus.Histogram

	// Invalid entries by rule
	InvalidEntries *prometheus.CounterVec

	// Overall evaluation latency
	EvaluateLatency prometheus.Histogram

	// Announcement failures by publisher
	PublishFailures *prometheus.CounterVec
}

// New registers the onboarding metrics with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the metrics with reg. Tests pass a fresh registry.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		DecisionOutcome: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clerk_decision_outcomes_total",
			Help: "Total onboarding decisions by outcome and origin",
		}, []string{"decision", "origin"}),

		ConsistencyScore: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "clerk_consistency_percentage",
			Help:    "Consistency percentage of evaluated client records",
			Buckets: []float64{50, 75, 85, 90, 95, 97.5, 99, 100},
		}),

		InvalidEntries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clerk_invalid_entries_total",
			Help: "Total invalid field entries by validation rule",
		}, []string{"rule"}),

		EvaluateLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "clerk_evaluate_duration_seconds",
			Help:    "Duration of a full record evaluation",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		}),

		PublishFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clerk_decision_publish_failures_total",
			Help: "Decision announcements that could not be delivered",
		}, []string{"publisher"}),
	}
}

// IncrementOutcome records a decision.
func (m *Metrics) IncrementOutcome(decision, origin string) {
	if m != nil {
		m.DecisionOutcome.WithLabelValues(decision, origin).Inc()
	}
}

func (m *Metrics) ObserveConsistency(pct float64) {
	if m != nil {
		m.ConsistencyScore.Observe(pct)
	}
}

func (m *Metrics) IncrementInvalid(rule string) {
	if m != nil {
		m.InvalidEntries.WithLabelValues(rule).Inc()
	}
}

// ObserveEvaluateLatency records the total evaluation duration.
func (m *Metrics) ObserveEvaluateLatency(d time.Duration) {
	if m != nil {
		m.EvaluateLatency.Observe(d.Seconds())
	}
}

func (m *Metrics) IncrementPublishFailure(publisher string) {
	if m != nil {
		m.PublishFailures.WithLabelValues(publisher).Inc()
	}
}
