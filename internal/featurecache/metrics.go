package featurecache

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds Prometheus metrics for the feature cache.
type Metrics struct {
	HitsTotal      *prometheus.CounterVec
	MissesTotal    *prometheus.CounterVec
	EvictionsTotal *prometheus.CounterVec
	ErrorsTotal    *prometheus.CounterVec
	Size           *prometheus.GaugeVec
}

// NewMetrics creates and registers cache metrics once per process.
//
// Metrics:
//   - intaketriage_featurecache_hits_total{backend}
//   - intaketriage_featurecache_misses_total{backend}
//   - intaketriage_featurecache_evictions_total{backend}
//   - intaketriage_featurecache_errors_total{backend,op}
//   - intaketriage_featurecache_size{backend}
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			HitsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "intaketriage_featurecache_hits_total",
					Help: "Total number of feature cache hits",
				},
				[]string{"backend"},
			),
			MissesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "intaketriage_featurecache_misses_total",
					Help: "Total number of feature cache misses",
				},
				[]string{"backend"},
			),
			EvictionsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "intaketriage_featurecache_evictions_total",
					Help: "Total number of entries evicted from the feature cache",
				},
				[]string{"backend"},
			),
			ErrorsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "intaketriage_featurecache_errors_total",
					Help: "Total number of feature cache backend errors",
				},
				[]string{"backend", "op"},
			),
			Size: promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "intaketriage_featurecache_size",
					Help: "Current number of entries in the feature cache",
				},
				[]string{"backend"},
			),
		}
	})

	return globalMetrics
}

func (m *Metrics) recordHit(backend string) {
	if m != nil {
		m.HitsTotal.WithLabelValues(backend).Inc()
	}
}

func (m *Metrics) recordMiss(backend string) {
	if m != nil {
		m.MissesTotal.WithLabelValues(backend).Inc()
	}
}

func (m *Metrics) recordEviction(backend string) {
	if m != nil {
		m.EvictionsTotal.WithLabelValues(backend).Inc()
	}
}

func (m *Metrics) recordError(backend, op string) {
	if m != nil {
		m.ErrorsTotal.WithLabelValues(backend, op).Inc()
	}
}

func (m *Metrics) setSize(backend string, n int) {
	if m != nil {
		m.Size.WithLabelValues(backend).Set(float64(n))
	}
}
