package sim

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	frameLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sim_frame_latency",
		Help:    "The time to simulate a frame.",
		Buckets: prometheus.ExponentialBuckets(0.00005, 2, 14),
	})

	frameCount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sim_frames",
		Help: "The number of simulated frames.",
	})

	visibleElements = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sim_visible_elements",
		Help: "The number of elements visible from the camera in the last frame.",
	})

	indexedNodes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sim_indexed_nodes",
		Help: "The number of nodes in the index.",
	})

	invalidFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sim_invalid_frames",
		Help: "The number of frames after which the index failed validation.",
	})
)

func instrumentFrame(start time.Time, stats FrameStats) {
	frameLatency.Observe(time.Since(start).Seconds())
	frameCount.Inc()
	visibleElements.Set(float64(stats.VisibleElements))
	indexedNodes.Set(float64(stats.NodeCount))
	if stats.Invalid {
		invalidFrames.Inc()
	}
}
