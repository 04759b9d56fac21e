// metrics.go: Prometheus metrics setup and manipulation for telemetry
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the detection pipeline.
type Metrics struct {
	FramesProcessed  *prometheus.CounterVec
	PosesDetected    *prometheus.CounterVec
	FallsDetected    *prometheus.CounterVec
	ClipsSaved       *prometheus.CounterVec
	ClipFailures     *prometheus.CounterVec
	PublishErrors    prometheus.Counter
	Confidence       *prometheus.GaugeVec
	FinalizeDuration prometheus.Histogram
}

const metricsPath = "/metrics"

// NewMetrics initializes and registers all Prometheus metrics used in the telemetry system.
func NewMetrics() (*Metrics, error) {
	m := &Metrics{
		FramesProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fallguard_frames_processed_total",
			Help: "Count of video frames processed, partitioned by source.",
		}, []string{"source"}),
		PosesDetected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fallguard_poses_detected_total",
			Help: "Count of frames with a usable pose, partitioned by source.",
		}, []string{"source"}),
		FallsDetected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fallguard_falls_detected_total",
			Help: "Count of fall alerts fired, partitioned by source.",
		}, []string{"source"}),
		ClipsSaved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fallguard_clips_saved_total",
			Help: "Count of event clips finalized and stored, partitioned by source.",
		}, []string{"source"}),
		ClipFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fallguard_clip_failures_total",
			Help: "Count of clip finalizations that failed, partitioned by source.",
		}, []string{"source"}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fallguard_publish_errors_total",
			Help: "Count of fall event publish failures.",
		}),
		Confidence: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "fallguard_confidence",
			Help: "Most recent fall confidence score, partitioned by source.",
		}, []string{"source"}),
		FinalizeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fallguard_clip_finalize_seconds",
			Help:    "Duration of clip finalization including encoding and storage handoff.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	collectors := []prometheus.Collector{
		m.FramesProcessed, m.PosesDetected, m.FallsDetected,
		m.ClipsSaved, m.ClipFailures, m.PublishErrors,
		m.Confidence, m.FinalizeDuration,
	}
	for _, c := range collectors {
		if err := prometheus.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// RegisterMetricsHandlers adds metrics routes to the provided mux
func RegisterMetricsHandlers(mux *http.ServeMux) {
	mux.Handle(metricsPath, promhttp.Handler())
}
