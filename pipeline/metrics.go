package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	StatusOK      = "ok"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// 批处理指标，使用独立注册表，结束时可写为node-exporter textfile
type Metrics struct {
	reg          *prometheus.Registry
	tiles        *prometheus.CounterVec
	duration     prometheus.Histogram
	rockFraction *prometheus.GaugeVec
	rockPixels   prometheus.Counter
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		tiles: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rockmask_tiles_total",
			Help: "Number of tiles handled, by outcome.",
		}, []string{"status"}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "rockmask_tile_duration_seconds",
			Help:    "Duration of a single tile pipeline.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		rockFraction: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "rockmask_rock_fraction",
			Help: "Fraction of land pixels classified as rock outcrop.",
		}, []string{"tile"}),
		rockPixels: f.NewCounter(prometheus.CounterOpts{
			Name: "rockmask_rock_pixels_total",
			Help: "Number of pixels classified as rock outcrop.",
		}),
	}
}

func (m *Metrics) observe(o TileOutcome) {
	if m == nil {
		return
	}
	switch {
	case o.Skipped:
		m.tiles.WithLabelValues(StatusSkipped).Inc()
		return
	case o.Err != nil:
		m.tiles.WithLabelValues(StatusFailed).Inc()
	default:
		m.tiles.WithLabelValues(StatusOK).Inc()
		if o.Summary != nil {
			m.rockFraction.WithLabelValues(o.Tile).Set(o.Summary.RockFraction)
			m.rockPixels.Add(float64(o.Summary.Rock))
		}
	}
	m.duration.Observe(o.Duration.Seconds())
}

func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.reg)
}
