package blockstpl

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	LabelCompile = "compile"
	LabelReuse   = "reuse"
	LabelSuccess = "success"
	LabelError   = "error"
)

// Metrics holds the engine's prometheus collectors.
type Metrics struct {
	Decisions       *prometheus.CounterVec
	Compiles        *prometheus.CounterVec
	CompileDuration prometheus.Histogram
	Markers         prometheus.Counter
}

func NewMetrics() *Metrics {
	const (
		namespace = "blockstpl"
		subsystem = "engine"
	)

	return &Metrics{
		Decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "decisions_total",
			Help:      "Count of cache decisions by outcome",
		}, []string{"result"}),

		Compiles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "compiles_total",
			Help:      "Count of template compilations",
		}, []string{"result"}),

		CompileDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "compile_duration_seconds",
			Help:      "Histogram of times spent compiling and persisting a template",
			Buckets:   prometheus.ExponentialBuckets(1e-4, 4, 8),
		}),

		Markers: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "markers_total",
			Help:      "Count of embedded code blocks protected during compilation",
		}),
	}
}

func (m *Metrics) PrometheusCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.Decisions,
		m.Compiles,
		m.CompileDuration,
		m.Markers,
	}
}
