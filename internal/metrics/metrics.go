// Package metrics provides Prometheus metrics for LessonForge
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for LessonForge
type Metrics struct {
	// HTTP request metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Upload metrics
	UploadsTotal       *prometheus.CounterVec
	UploadDuration     *prometheus.HistogramVec
	UploadsInFlight    prometheus.Gauge
	UploadBytesTotal   prometheus.Counter
	BatchFailuresTotal prometheus.Counter

	// Submission metrics
	SubmissionsTotal        *prometheus.CounterVec
	ValidationFailuresTotal prometheus.Counter

	// Gateway metrics
	GatewayOperationsTotal   *prometheus.CounterVec
	GatewayOperationDuration *prometheus.HistogramVec
	DocumentsTotal           prometheus.Gauge

	// Server metrics
	ServerUptimeSeconds prometheus.Gauge
	ServerStartTime     time.Time
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	m := &Metrics{
		ServerStartTime: time.Now(),
	}

	// HTTP request metrics
	m.HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lessonforge_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	m.HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lessonforge_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	m.HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "lessonforge_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	// Upload metrics
	m.UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lessonforge_uploads_total",
			Help: "Total number of object storage uploads",
		},
		[]string{"status"},
	)

	m.UploadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lessonforge_upload_duration_seconds",
			Help:    "Duration of object storage uploads in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"status"},
	)

	m.UploadsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "lessonforge_uploads_in_flight",
			Help: "Number of uploads currently in progress",
		},
	)

	m.UploadBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lessonforge_upload_bytes_total",
			Help: "Total bytes uploaded to object storage",
		},
	)

	m.BatchFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lessonforge_batch_failures_total",
			Help: "Total number of failed batch uploads",
		},
	)

	// Submission metrics
	m.SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lessonforge_submissions_total",
			Help: "Total number of content submissions",
		},
		[]string{"flow", "status"},
	)

	m.ValidationFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lessonforge_validation_failures_total",
			Help: "Total number of submissions rejected by validation",
		},
	)

	// Gateway metrics
	m.GatewayOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lessonforge_gateway_operations_total",
			Help: "Total number of persistence gateway operations",
		},
		[]string{"operation", "status"},
	)

	m.GatewayOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lessonforge_gateway_operation_duration_seconds",
			Help:    "Duration of persistence gateway operations in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	m.DocumentsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "lessonforge_documents_total",
			Help: "Total number of persisted content documents",
		},
	)

	// Server metrics
	m.ServerUptimeSeconds = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "lessonforge_server_uptime_seconds",
			Help: "Server uptime in seconds",
		},
	)

	// Start uptime updater
	go m.updateUptime()

	return m
}

// updateUptime periodically updates the server uptime metric
func (m *Metrics) updateUptime() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		m.ServerUptimeSeconds.Set(time.Since(m.ServerStartTime).Seconds())
	}
}

// RecordHTTPRequest records an HTTP request with its status
func (m *Metrics) RecordHTTPRequest(method, route, status string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordUpload records an object storage upload
func (m *Metrics) RecordUpload(status string, size int, duration time.Duration) {
	m.UploadsTotal.WithLabelValues(status).Inc()
	m.UploadDuration.WithLabelValues(status).Observe(duration.Seconds())
	if status == "success" {
		m.UploadBytesTotal.Add(float64(size))
	}
}

// RecordSubmission records a content submission by flow and outcome
func (m *Metrics) RecordSubmission(flow, status string) {
	m.SubmissionsTotal.WithLabelValues(flow, status).Inc()
}

// RecordGatewayOperation records a persistence gateway operation
func (m *Metrics) RecordGatewayOperation(operation, status string, duration time.Duration) {
	m.GatewayOperationsTotal.WithLabelValues(operation, status).Inc()
	m.GatewayOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
