package varframe

import "github.com/prometheus/client_golang/prometheus"

const namespace = "varframe"

// Metrics exposes pipeline and pool activity as Prometheus collectors.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	ChunksTotal     prometheus.Counter
	ChunkBytesTotal prometheus.Counter
	FramesTotal     prometheus.Counter
	FrameBytes      prometheus.Histogram
	ErrorsTotal     *prometheus.CounterVec
	BuffersRented   prometheus.Counter
	BuffersReleased prometheus.Counter
	BuffersInUse    prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg when reg is non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ChunksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_total",
			Help:      "Raw chunks appended to accumulators.",
		}),
		ChunkBytesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunk_bytes_total",
			Help:      "Raw bytes appended to accumulators.",
		}),
		FramesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "Frames extracted and handed to consumers.",
		}),
		FrameBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "frame_bytes",
			Help:      "Payload size of extracted frames.",
			Buckets:   prometheus.ExponentialBuckets(16, 4, 8),
		}),
		ErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Terminal pipeline errors by kind.",
		}, []string{"kind"}),
		BuffersRented: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "buffers_rented_total",
			Help:      "Buffers leased from pools.",
		}),
		BuffersReleased: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "buffers_released_total",
			Help:      "Buffers returned to pools.",
		}),
		BuffersInUse: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "buffers_in_use",
			Help:      "Buffers currently leased.",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.ChunksTotal,
			m.ChunkBytesTotal,
			m.FramesTotal,
			m.FrameBytes,
			m.ErrorsTotal,
			m.BuffersRented,
			m.BuffersReleased,
			m.BuffersInUse,
		)
	}
	return m
}

func (m *Metrics) chunk(n int) {
	if m == nil {
		return
	}
	m.ChunksTotal.Inc()
	m.ChunkBytesTotal.Add(float64(n))
}

func (m *Metrics) frame(n int) {
	if m == nil {
		return
	}
	m.FramesTotal.Inc()
	m.FrameBytes.Observe(float64(n))
}

func (m *Metrics) failure(kind string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) rent(int) {
	if m == nil {
		return
	}
	m.BuffersRented.Inc()
	m.BuffersInUse.Inc()
}

func (m *Metrics) release() {
	if m == nil {
		return
	}
	m.BuffersReleased.Inc()
	m.BuffersInUse.Dec()
}
