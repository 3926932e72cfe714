package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Export outcomes by status (success, empty, no_artifacts, failed).
	ExportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "artifactdl",
			Name:      "exports_total",
			Help:      "Total archive exports by outcome",
		},
		[]string{"status"},
	)

	ArtifactsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "artifactdl",
			Name:      "artifacts_total",
			Help:      "Total artifacts written into archives",
		},
	)

	// Messages skipped because their artifacts could not be named.
	MessageFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "artifactdl",
			Name:      "message_failures_total",
			Help:      "Total assistant messages skipped during extraction",
		},
	)

	BuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "artifactdl",
			Name:      "build_duration_seconds",
			Help:      "Time to walk a conversation and finalize its archive",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
	)

	ArchiveBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "artifactdl",
			Name:      "archive_bytes",
			Help:      "Size of finalized archives in bytes",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 8),
		},
	)

	DeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "artifactdl",
			Name:      "deliveries_total",
			Help:      "Total sink deliveries",
		},
		[]string{"sink", "status"},
	)

	CapturesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "artifactdl",
			Name:      "captures_total",
			Help:      "Total conversation payload fetches",
		},
		[]string{"status"},
	)

	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "artifactdl",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "artifactdl",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"method", "route"},
	)
)

// RecordExport records the outcome of one export.
func RecordExport(status string, artifacts int, failed int) {
	ExportsTotal.WithLabelValues(status).Inc()
	if artifacts > 0 {
		ArtifactsTotal.Add(float64(artifacts))
	}
	if failed > 0 {
		MessageFailuresTotal.Add(float64(failed))
	}
}

// RecordBuild records how long a build took and the archive size.
func RecordBuild(d time.Duration, size int) {
	BuildDuration.Observe(d.Seconds())
	ArchiveBytes.Observe(float64(size))
}

// RecordDelivery records a sink delivery attempt.
func RecordDelivery(sink string, err error) {
	DeliveriesTotal.WithLabelValues(sink, statusOf(err)).Inc()
}

// RecordCapture records a payload fetch.
func RecordCapture(err error) {
	CapturesTotal.WithLabelValues(statusOf(err)).Inc()
}

// RecordRequest records an HTTP request.
func RecordRequest(method, route, status string, d time.Duration) {
	RequestsTotal.WithLabelValues(method, route, status).Inc()
	RequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
