// Package prometheus exposes trajstore metrics as Prometheus collectors.
//
//	c := prometheus.NewCollector("trajstore")
//	c.MustRegister(promclient.DefaultRegisterer)
//	store, _ := trajstore.New(cfg, trajstore.WithMetricsCollector(c))
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector implements trajstore.MetricsCollector.
type Collector struct {
	opLatency *prometheus.HistogramVec
	frames    *prometheus.CounterVec
	rollovers *prometheus.CounterVec
	segment   prometheus.Gauge
	tiles     prometheus.Counter
	dropped   prometheus.Counter
}

// NewCollector creates the metric vectors under the given namespace.
func NewCollector(namespace string) *Collector {
	return &Collector{
		opLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_latency_seconds",
			Help:      "Latency of store operations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op", "status"}),
		frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "Grid frames submitted",
		}, []string{"status"}),
		rollovers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rollovers_total",
			Help:      "Segments sealed on rollover",
		}, []string{"status"}),
		segment: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_sealed_segment",
			Help:      "Ordinal of the most recently sealed segment",
		}),
		tiles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slice_tiles_total",
			Help:      "Tiles returned by episode retrievals",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slice_dropped_tiles_total",
			Help:      "Tiles that could not be decoded during retrieval",
		}),
	}
}

// Collectors returns every metric of c.
func (c *Collector) Collectors() []prometheus.Collector {
	return []prometheus.Collector{c.opLatency, c.frames, c.rollovers, c.segment, c.tiles, c.dropped}
}

// MustRegister registers all metrics with reg.
func (c *Collector) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(c.Collectors()...)
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordFrame implements trajstore.MetricsCollector.
func (c *Collector) RecordFrame(d time.Duration, err error) {
	c.opLatency.WithLabelValues("frame", status(err)).Observe(d.Seconds())
	c.frames.WithLabelValues(status(err)).Inc()
}

// RecordRollover implements trajstore.MetricsCollector.
func (c *Collector) RecordRollover(ordinal uint64, _ int, d time.Duration, err error) {
	c.opLatency.WithLabelValues("rollover", status(err)).Observe(d.Seconds())
	c.rollovers.WithLabelValues(status(err)).Inc()
	if err == nil {
		c.segment.Set(float64(ordinal))
	}
}

// RecordSlice implements trajstore.MetricsCollector.
func (c *Collector) RecordSlice(frames, dropped int, d time.Duration, err error) {
	c.opLatency.WithLabelValues("slice", status(err)).Observe(d.Seconds())
	c.tiles.Add(float64(frames))
	c.dropped.Add(float64(dropped))
}
