// Package observability provides Prometheus metrics for the application.
package observability

import (
	"context"
	"log/slog"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

const systemCollectInterval = 15 * time.Second

// Metrics holds all application metrics.
type Metrics struct {
	// Download metrics
	DownloadsAccepted  prometheus.Counter
	DownloadsSkipped   *prometheus.CounterVec
	DownloadsCompleted prometheus.Counter
	DownloadsFailed    prometheus.Counter
	DownloadsActive    prometheus.Gauge
	DownloadDuration   prometheus.Histogram

	// Event bus metrics
	BusEventsPublished *prometheus.CounterVec
	BusEventsDropped   prometheus.Counter
	BusSubscribers     prometheus.Gauge

	// History metrics
	HistorySize prometheus.Gauge

	// Engine metrics
	EngineRequestsTotal *prometheus.CounterVec

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// System metrics
	GoRoutines      prometheus.Gauge
	CPUPercent      prometheus.Gauge
	MemoryUsedBytes prometheus.Gauge
}

// New creates and registers all application metrics on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		DownloadsAccepted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "youpy",
			Subsystem: "downloads",
			Name:      "accepted_total",
			Help:      "Total number of download tasks accepted",
		}),
		DownloadsSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "youpy",
			Subsystem: "downloads",
			Name:      "skipped_total",
			Help:      "Total number of download requests skipped",
		}, []string{"reason"}),
		DownloadsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "youpy",
			Subsystem: "downloads",
			Name:      "completed_total",
			Help:      "Total number of download tasks completed successfully",
		}),
		DownloadsFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "youpy",
			Subsystem: "downloads",
			Name:      "failed_total",
			Help:      "Total number of download tasks that failed",
		}),
		DownloadsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "youpy",
			Subsystem: "downloads",
			Name:      "active",
			Help:      "Number of download tasks currently in flight",
		}),
		DownloadDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "youpy",
			Subsystem: "downloads",
			Name:      "duration_seconds",
			Help:      "Histogram of download task duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
		}),

		BusEventsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "youpy",
			Subsystem: "bus",
			Name:      "events_published_total",
			Help:      "Total number of progress events published",
		}, []string{"status"}),
		BusEventsDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "youpy",
			Subsystem: "bus",
			Name:      "events_dropped_total",
			Help:      "Total number of progress events dropped on subscriber queue overflow",
		}),
		BusSubscribers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "youpy",
			Subsystem: "bus",
			Name:      "subscribers",
			Help:      "Number of currently connected progress feed subscribers",
		}),

		HistorySize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "youpy",
			Subsystem: "history",
			Name:      "size",
			Help:      "Number of video ids in the completed history",
		}),

		EngineRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "youpy",
			Subsystem: "engine",
			Name:      "requests_total",
			Help:      "Total number of engine invocations",
		}, []string{"op", "status"}),

		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "youpy",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "youpy",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Histogram of HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),

		GoRoutines: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "youpy",
			Subsystem: "system",
			Name:      "goroutines",
			Help:      "Number of goroutines",
		}),
		CPUPercent: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "youpy",
			Subsystem: "system",
			Name:      "cpu_percent",
			Help:      "Total CPU utilization percentage",
		}),
		MemoryUsedBytes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "youpy",
			Subsystem: "system",
			Name:      "memory_used_bytes",
			Help:      "Used system memory in bytes",
		}),
	}
}

// Handler returns the Prometheus HTTP handler serving the default registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}

// StartSystemCollector samples goroutine, CPU and memory gauges until ctx is done.
func (m *Metrics) StartSystemCollector(ctx context.Context, log *slog.Logger) {
	ticker := time.NewTicker(systemCollectInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.GoRoutines.Set(float64(runtime.NumGoroutine()))

			if percents, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(percents) > 0 {
				m.CPUPercent.Set(percents[0])
			} else if err != nil {
				log.DebugContext(ctx, "cpu sample", slog.Any("error", err))
			}

			if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
				m.MemoryUsedBytes.Set(float64(vm.Used))
			} else {
				log.DebugContext(ctx, "memory sample", slog.Any("error", err))
			}
		}
	}
}

// DownloadTimer returns a function to record download task duration.
func (m *Metrics) DownloadTimer() func() {
	start := time.Now()

	return func() {
		m.DownloadDuration.Observe(time.Since(start).Seconds())
	}
}

// RecordHTTPRequest records HTTP request metrics.
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordDownloadAccepted records an accepted download task. The active
// gauge is owned by the registry, which tracks the exact in-flight count.
func (m *Metrics) RecordDownloadAccepted() {
	m.DownloadsAccepted.Inc()
}

// RecordDownloadSkipped records a skipped download request.
func (m *Metrics) RecordDownloadSkipped(reason string) {
	m.DownloadsSkipped.WithLabelValues(reason).Inc()
}

// RecordDownloadCompleted records a completed download task.
func (m *Metrics) RecordDownloadCompleted() {
	m.DownloadsCompleted.Inc()
}

// RecordDownloadFailed records a failed download task.
func (m *Metrics) RecordDownloadFailed() {
	m.DownloadsFailed.Inc()
}

// RecordBusEvent records a published progress event.
func (m *Metrics) RecordBusEvent(status string) {
	m.BusEventsPublished.WithLabelValues(status).Inc()
}

// RecordBusDropped records events dropped on subscriber queue overflow.
func (m *Metrics) RecordBusDropped(count int) {
	m.BusEventsDropped.Add(float64(count))
}

// SetBusSubscribers sets the current subscriber count.
func (m *Metrics) SetBusSubscribers(count int) {
	m.BusSubscribers.Set(float64(count))
}

// SetHistorySize sets the completed history size.
func (m *Metrics) SetHistorySize(count int) {
	m.HistorySize.Set(float64(count))
}

// RecordEngineRequest records an engine invocation.
func (m *Metrics) RecordEngineRequest(op, status string) {
	m.EngineRequestsTotal.WithLabelValues(op, status).Inc()
}
