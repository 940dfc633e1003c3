package monitoring

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector manages Prometheus metrics for a service
type MetricsCollector struct {
	serviceName string

	// Standard HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	activeConnections   prometheus.Gauge
	serviceInfo         *prometheus.GaugeVec

	// Custom metrics registry
	customMetrics map[string]prometheus.Collector
}

// NewMetricsCollector creates a new metrics collector for a service
func NewMetricsCollector(serviceName, version, commit string) *MetricsCollector {
	// Sanitize service name for Prometheus (replace hyphens with underscores)
	sanitizedServiceName := strings.ReplaceAll(serviceName, "-", "_")

	mc := &MetricsCollector{
		serviceName:   sanitizedServiceName,
		customMetrics: make(map[string]prometheus.Collector),
	}

	// Standard HTTP metrics
	mc.httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: mc.serviceName + "_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	mc.httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    mc.serviceName + "_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	mc.activeConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: mc.serviceName + "_active_connections",
			Help: "Number of active connections",
		},
	)

	mc.serviceInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: mc.serviceName + "_service_info",
			Help: "Service information",
		},
		[]string{"version", "commit"},
	)

	// Register standard metrics
	prometheus.MustRegister(mc.httpRequestsTotal)
	prometheus.MustRegister(mc.httpRequestDuration)
	prometheus.MustRegister(mc.activeConnections)
	prometheus.MustRegister(mc.serviceInfo)

	// Set service info
	mc.serviceInfo.WithLabelValues(version, commit).Set(1)

	return mc
}

// RegisterCustomMetric registers a custom Prometheus metric
func (mc *MetricsCollector) RegisterCustomMetric(name string, metric prometheus.Collector) {
	mc.customMetrics[name] = metric
	prometheus.MustRegister(metric)
}

// MetricsMiddleware returns middleware that collects HTTP metrics
func (mc *MetricsCollector) MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		// Increment active connections
		mc.activeConnections.Inc()
		defer mc.activeConnections.Dec()

		// Process request
		c.Next()

		// Record metrics
		duration := time.Since(start).Seconds()
		method := c.Request.Method
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unknown"
		}
		status := strconv.Itoa(c.Writer.Status())

		mc.httpRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
		mc.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration)
	}
}

// Handler returns the Prometheus metrics HTTP handler
func (mc *MetricsCollector) Handler() gin.HandlerFunc {
	handler := promhttp.Handler()
	return func(c *gin.Context) {
		handler.ServeHTTP(c.Writer, c.Request)
	}
}

// Service-specific metric helpers

// NewCounter creates a new counter metric for the service
func (mc *MetricsCollector) NewCounter(name, help string, labels []string) *prometheus.CounterVec {
	counter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: mc.serviceName + "_" + name,
			Help: help,
		},
		labels,
	)
	mc.RegisterCustomMetric(name, counter)
	return counter
}

// NewGauge creates a new gauge metric for the service
func (mc *MetricsCollector) NewGauge(name, help string, labels []string) *prometheus.GaugeVec {
	gauge := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: mc.serviceName + "_" + name,
			Help: help,
		},
		labels,
	)
	mc.RegisterCustomMetric(name, gauge)
	return gauge
}

// NewHistogram creates a new histogram metric for the service
func (mc *MetricsCollector) NewHistogram(name, help string, labels []string, buckets []float64) *prometheus.HistogramVec {
	if buckets == nil {
		buckets = prometheus.DefBuckets
	}

	histogram := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    mc.serviceName + "_" + name,
			Help:    help,
			Buckets: buckets,
		},
		labels,
	)
	mc.RegisterCustomMetric(name, histogram)
	return histogram
}

// NewSummary creates a new summary metric for the service
func (mc *MetricsCollector) NewSummary(name, help string, labels []string, objectives map[float64]float64) *prometheus.SummaryVec {
	if objectives == nil {
		objectives = map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001}
	}

	summary := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       mc.serviceName + "_" + name,
			Help:       help,
			Objectives: objectives,
		},
		labels,
	)
	mc.RegisterCustomMetric(name, summary)
	return summary
}

// Pipeline metrics

// PipelineMetrics bundles the domain counters the publish pipeline
// increments. All observe methods tolerate a nil receiver so collectors
// stay optional in tests.
type PipelineMetrics struct {
	Batches         prometheus.Counter
	BatchDuration   prometheus.Histogram
	Publishes       *prometheus.CounterVec // platform, status
	TrendRejections *prometheus.CounterVec // reason
	Scores          prometheus.Counter
	TokenRefreshes  *prometheus.CounterVec // platform, outcome
}

// CreatePipelineMetrics creates and registers the pipeline counters.
func (mc *MetricsCollector) CreatePipelineMetrics() *PipelineMetrics {
	batches := prometheus.NewCounter(prometheus.CounterOpts{
		Name: mc.serviceName + "_pipeline_batches_total",
		Help: "Total pipeline batches run",
	})
	mc.RegisterCustomMetric("pipeline_batches_total", batches)

	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    mc.serviceName + "_pipeline_batch_duration_seconds",
		Help:    "Pipeline batch duration in seconds",
		Buckets: prometheus.DefBuckets,
	})
	mc.RegisterCustomMetric("pipeline_batch_duration_seconds", duration)

	scores := prometheus.NewCounter(prometheus.CounterOpts{
		Name: mc.serviceName + "_score_computations_total",
		Help: "Total on-demand viral score computations",
	})
	mc.RegisterCustomMetric("score_computations_total", scores)

	return &PipelineMetrics{
		Batches:         batches,
		BatchDuration:   duration,
		Publishes:       mc.NewCounter("publishes_total", "Publish outcomes by platform and status", []string{"platform", "status"}),
		TrendRejections: mc.NewCounter("trend_rejections_total", "Trend candidates rejected by the guards", []string{"reason"}),
		Scores:          scores,
		TokenRefreshes:  mc.NewCounter("token_refreshes_total", "OAuth token refreshes by platform and outcome", []string{"platform", "outcome"}),
	}
}

// ObserveBatch records one completed batch and its duration.
func (m *PipelineMetrics) ObserveBatch(duration time.Duration) {
	if m == nil {
		return
	}
	m.Batches.Inc()
	m.BatchDuration.Observe(duration.Seconds())
}

// ObservePublish records one per-account publish outcome.
func (m *PipelineMetrics) ObservePublish(platform, status string) {
	if m == nil {
		return
	}
	m.Publishes.WithLabelValues(platform, status).Inc()
}

// ObserveTrendRejection records a candidate discarded by a trend guard.
func (m *PipelineMetrics) ObserveTrendRejection(reason string) {
	if m == nil {
		return
	}
	m.TrendRejections.WithLabelValues(reason).Inc()
}

// ObserveScore records one on-demand score computation.
func (m *PipelineMetrics) ObserveScore() {
	if m == nil {
		return
	}
	m.Scores.Inc()
}

// ObserveTokenRefresh records a refresh attempt and its outcome.
func (m *PipelineMetrics) ObserveTokenRefresh(platform, outcome string) {
	if m == nil {
		return
	}
	m.TokenRefreshes.WithLabelValues(platform, outcome).Inc()
}
