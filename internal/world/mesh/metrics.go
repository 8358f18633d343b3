package mesh

import "github.com/prometheus/client_golang/prometheus"

// Metrics метрики перестроения мешей
type Metrics struct {
	chunks   prometheus.Counter
	quads    prometheus.Counter
	passes   prometheus.Counter
	duration prometheus.Histogram
}

// NewMetrics создаёт метрики и регистрирует их в reg.
// При reg == nil используется глобальный регистр Prometheus.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		chunks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "blockverse",
			Subsystem: "mesh",
			Name:      "chunks_remeshed_total",
			Help:      "Количество перестроенных мешей чанков.",
		}),
		quads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "blockverse",
			Subsystem: "mesh",
			Name:      "quads_emitted_total",
			Help:      "Количество квадов во всех построенных мешах.",
		}),
		passes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "blockverse",
			Subsystem: "mesh",
			Name:      "passes_total",
			Help:      "Количество проходов перестроения, в которых были грязные чанки.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "blockverse",
			Subsystem: "mesh",
			Name:      "remesh_duration_seconds",
			Help:      "Длительность прохода перестроения мешей.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
	}

	reg.MustRegister(m.chunks, m.quads, m.passes, m.duration)
	return m
}

func (m *Metrics) observe(meshes []*Mesh, seconds float64) {
	if m == nil {
		return
	}
	m.passes.Inc()
	m.chunks.Add(float64(len(meshes)))
	for _, ms := range meshes {
		m.quads.Add(float64(ms.Quads))
	}
	m.duration.Observe(seconds)
}
