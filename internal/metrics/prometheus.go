// Package metrics provides Prometheus-based metrics collection for portsleuth.
// It tracks scan throughput, per-port probe outcomes, detection results,
// and API request statistics for operational monitoring.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// Namespace for all portsleuth metrics.
	namespace = "portsleuth"

	// Subsystems.
	subsystemScan   = "scan"
	subsystemDetect = "detect"
	subsystemAPI    = "api"
)

// Metrics holds all Prometheus metric collectors.
type Metrics struct {
	// Scan metrics
	scansTotal   *prometheus.CounterVec
	scanDuration *prometheus.HistogramVec
	scanErrors   *prometheus.CounterVec
	portsScanned *prometheus.CounterVec
	activeScans  prometheus.Gauge

	// Detection metrics
	detectionsTotal *prometheus.CounterVec

	// API metrics
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	registry *prometheus.Registry
}

// New creates a new metrics instance with all collectors registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{registry: registry}

	m.scansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemScan,
			Name:      "total",
			Help:      "Total number of scans performed by mode and status",
		},
		[]string{"mode", "status"},
	)

	m.scanDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystemScan,
			Name:      "duration_seconds",
			Help:      "Duration of scan operations in seconds",
			Buckets:   []float64{0.1, 0.5, 1.0, 5.0, 10.0, 30.0, 60.0, 300.0},
		},
		[]string{"mode"},
	)

	m.scanErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemScan,
			Name:      "errors_total",
			Help:      "Total number of scan errors by error type",
		},
		[]string{"error_type"},
	)

	m.portsScanned = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemScan,
			Name:      "ports_total",
			Help:      "Total number of ports probed by resulting status",
		},
		[]string{"port_status"},
	)

	m.activeScans = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystemScan,
			Name:      "active",
			Help:      "Number of currently active scans",
		},
	)

	m.detectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemDetect,
			Name:      "total",
			Help:      "Total number of detection attempts by detector and outcome",
		},
		[]string{"detector", "outcome"},
	)

	m.httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemAPI,
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method, path and status code",
		},
		[]string{"method", "path", "code"},
	)

	m.httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystemAPI,
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	registry.MustRegister(
		m.scansTotal,
		m.scanDuration,
		m.scanErrors,
		m.portsScanned,
		m.activeScans,
		m.detectionsTotal,
		m.httpRequests,
		m.httpDuration,
	)

	// Standard Go and process collectors for runtime visibility.
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return m
}

// IncrementScansTotal records a completed scan with its mode and status.
func (m *Metrics) IncrementScansTotal(mode, status string) {
	m.scansTotal.WithLabelValues(mode, status).Inc()
}

// RecordScanDuration records the duration of a scan operation.
func (m *Metrics) RecordScanDuration(mode string, duration time.Duration) {
	m.scanDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

// IncrementScanErrors records a scan error by type.
func (m *Metrics) IncrementScanErrors(errorType string) {
	m.scanErrors.WithLabelValues(errorType).Inc()
}

// IncrementPortsScanned records a probed port by its resulting status.
func (m *Metrics) IncrementPortsScanned(portStatus string) {
	m.portsScanned.WithLabelValues(portStatus).Inc()
}

// ScanStarted increments the active scan gauge.
func (m *Metrics) ScanStarted() {
	m.activeScans.Inc()
}

// ScanFinished decrements the active scan gauge.
func (m *Metrics) ScanFinished() {
	m.activeScans.Dec()
}

// IncrementDetections records a detection attempt by detector name and outcome.
func (m *Metrics) IncrementDetections(detector, outcome string) {
	m.detectionsTotal.WithLabelValues(detector, outcome).Inc()
}

// RecordHTTPRequest records an API request.
func (m *Metrics) RecordHTTPRequest(method, path, code string, duration time.Duration) {
	m.httpRequests.WithLabelValues(method, path, code).Inc()
	m.httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// Handler returns an HTTP handler exposing the registry in Prometheus format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

var (
	globalMetrics *Metrics
	globalOnce    sync.Once
	globalMu      sync.RWMutex
)

// GetGlobalMetrics returns the process-wide metrics instance, creating it on
// first use.
func GetGlobalMetrics() *Metrics {
	globalMu.RLock()
	if globalMetrics != nil {
		defer globalMu.RUnlock()
		return globalMetrics
	}
	globalMu.RUnlock()

	globalOnce.Do(func() {
		globalMu.Lock()
		globalMetrics = New()
		globalMu.Unlock()
	})

	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalMetrics
}

// SetGlobalMetrics replaces the global metrics instance. Intended for tests.
func SetGlobalMetrics(m *Metrics) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalMetrics = m
}
