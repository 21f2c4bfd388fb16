package extraction

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds Prometheus metrics for model-assisted extraction.
type Metrics struct {
	OutcomesTotal   *prometheus.CounterVec
	RequestDuration prometheus.Histogram
}

// NewMetrics creates and registers extraction metrics.
//
// Registration happens once per process; later calls return the same
// instance.
//
// Metrics:
//   - intaketriage_extraction_llm_outcomes_total{outcome} - success, cache_hit,
//     disabled, or an error class (timeout, decode, status, rate_limited,
//     transport, other)
//   - intaketriage_extraction_llm_request_duration_seconds - provider latency
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			OutcomesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "intaketriage_extraction_llm_outcomes_total",
					Help: "Total number of model extraction attempts by outcome",
				},
				[]string{"outcome"},
			),
			RequestDuration: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "intaketriage_extraction_llm_request_duration_seconds",
					Help:    "Duration of model extraction requests in seconds",
					Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
				},
			),
		}
	})

	return globalMetrics
}

func (m *Metrics) recordOutcome(outcome string) {
	if m == nil {
		return
	}
	m.OutcomesTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeLatency(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}
