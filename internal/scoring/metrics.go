package scoring

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds Prometheus metrics for scored cases.
type Metrics struct {
	DecisionsTotal *prometheus.CounterVec
	Scores         *prometheus.HistogramVec
	NudgesTotal    prometheus.Counter
}

// NewMetrics creates and registers scoring metrics once per process.
//
// Metrics:
//   - intaketriage_scoring_decisions_total{decision,case_type}
//   - intaketriage_scoring_score{case_type}
//   - intaketriage_scoring_nudges_total
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			DecisionsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "intaketriage_scoring_decisions_total",
					Help: "Total number of scored cases by decision",
				},
				[]string{"decision", "case_type"},
			),
			Scores: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "intaketriage_scoring_score",
					Help:    "Distribution of clamped triage scores",
					Buckets: prometheus.LinearBuckets(10, 10, 10),
				},
				[]string{"case_type"},
			),
			NudgesTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "intaketriage_scoring_nudges_total",
					Help: "Total number of borderline declines moved to review",
				},
			),
		}
	})
	return globalMetrics
}

// Record observes one result. A nil receiver is a no-op.
func (m *Metrics) Record(r Result) {
	if m == nil {
		return
	}
	ct := string(r.Trace.CaseType)
	m.DecisionsTotal.WithLabelValues(string(r.Decision), ct).Inc()
	m.Scores.WithLabelValues(ct).Observe(float64(r.Score))
	if r.Nudged {
		m.NudgesTotal.Inc()
	}
}
