package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/omnera-dev/omnera/model"
)

// Histogram bucket definitions.
var (
	httpDurationBuckets       = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
	resolutionDurationBuckets = []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1}
	bodySizeBuckets           = []float64{100, 1024, 10240, 102400, 1048576}
)

// Resolution outcomes.
const (
	OutcomeValid     = "valid"
	OutcomeInvalid   = "invalid"
	OutcomeCancelled = "cancelled"
)

// Metrics holds all Prometheus metric instruments for the server.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPRequestSizeBytes  *prometheus.HistogramVec
	HTTPResponseSizeBytes *prometheus.HistogramVec

	// Resolution metrics
	ResolutionsTotal   *prometheus.CounterVec
	ResolutionDuration prometheus.Histogram
	IssuesTotal        *prometheus.CounterVec

	// Cache metrics
	ResultCacheHitsTotal   prometheus.Counter
	ResultCacheMissesTotal prometheus.Counter

	// Document metrics
	DocumentReloadTotal *prometheus.CounterVec
	EntitiesLoaded      *prometheus.GaugeVec
}

// InitMetrics creates and registers all Prometheus metric instruments.
func InitMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		// HTTP
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "omnera_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path_pattern", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "omnera_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: httpDurationBuckets,
		}, []string{"method", "path_pattern"}),
		HTTPRequestSizeBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "omnera_http_request_size_bytes",
			Help:    "HTTP request body size in bytes.",
			Buckets: bodySizeBuckets,
		}, []string{"method", "path_pattern"}),
		HTTPResponseSizeBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "omnera_http_response_size_bytes",
			Help:    "HTTP response body size in bytes.",
			Buckets: bodySizeBuckets,
		}, []string{"method", "path_pattern"}),

		// Resolution
		ResolutionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "omnera_resolutions_total",
			Help: "Total number of document resolutions by outcome.",
		}, []string{"outcome"}),
		ResolutionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "omnera_resolution_duration_seconds",
			Help:    "Document resolution duration in seconds.",
			Buckets: resolutionDurationBuckets,
		}),
		IssuesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "omnera_issues_total",
			Help: "Total number of issues reported by resolutions.",
		}, []string{"code", "severity"}),

		// Cache
		ResultCacheHitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "omnera_result_cache_hits_total",
			Help: "Total number of result cache hits.",
		}),
		ResultCacheMissesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "omnera_result_cache_misses_total",
			Help: "Total number of result cache misses.",
		}),

		// Document
		DocumentReloadTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "omnera_document_reload_total",
			Help: "Total number of document reloads by status.",
		}, []string{"status"}),
		EntitiesLoaded: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "omnera_entities_loaded",
			Help: "Number of entities in the loaded application by kind.",
		}, []string{"kind"}),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestSizeBytes,
		m.HTTPResponseSizeBytes,
		m.ResolutionsTotal,
		m.ResolutionDuration,
		m.IssuesTotal,
		m.ResultCacheHitsTotal,
		m.ResultCacheMissesTotal,
		m.DocumentReloadTotal,
		m.EntitiesLoaded,
	)

	return m
}

// --- Recording helpers ---

// RecordHTTPRequest records metrics for a completed HTTP request.
func (m *Metrics) RecordHTTPRequest(method, pathPattern string, status int, duration time.Duration, reqSize, respSize int) {
	statusStr := strconv.Itoa(status)
	m.HTTPRequestsTotal.WithLabelValues(method, pathPattern, statusStr).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, pathPattern).Observe(duration.Seconds())
	if reqSize > 0 {
		m.HTTPRequestSizeBytes.WithLabelValues(method, pathPattern).Observe(float64(reqSize))
	}
	m.HTTPResponseSizeBytes.WithLabelValues(method, pathPattern).Observe(float64(respSize))
}

// RecordResolution records one resolution and every issue it reported.
func (m *Metrics) RecordResolution(outcome string, duration time.Duration, issues model.Issues) {
	m.ResolutionsTotal.WithLabelValues(outcome).Inc()
	m.ResolutionDuration.Observe(duration.Seconds())
	for _, is := range issues {
		m.IssuesTotal.WithLabelValues(string(is.Code), string(is.Severity)).Inc()
	}
}

// RecordCacheHit increments the result cache hit counter.
func (m *Metrics) RecordCacheHit() {
	m.ResultCacheHitsTotal.Inc()
}

// RecordCacheMiss increments the result cache miss counter.
func (m *Metrics) RecordCacheMiss() {
	m.ResultCacheMissesTotal.Inc()
}

// RecordDocumentReload records a document reload attempt.
func (m *Metrics) RecordDocumentReload(status string) {
	m.DocumentReloadTotal.WithLabelValues(status).Inc()
}

// SetEntitiesLoaded sets the per-kind entity gauges from counts.
func (m *Metrics) SetEntitiesLoaded(counts map[model.Kind]int) {
	for kind, n := range counts {
		m.EntitiesLoaded.WithLabelValues(string(kind)).Set(float64(n))
	}
}

// --- HTTP Middleware ---

// MetricsMiddleware returns HTTP middleware that records request metrics using
// chi's route pattern (not the actual URL path) to avoid label cardinality
// explosion.
func (m *Metrics) MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &metricsResponseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		duration := time.Since(start)
		pathPattern := routePattern(r)
		reqSize := 0
		if r.ContentLength > 0 {
			reqSize = int(r.ContentLength)
		}

		m.RecordHTTPRequest(r.Method, pathPattern, sw.status, duration, reqSize, sw.bytes)
	})
}

// Handler returns the Prometheus HTTP handler for the given gatherer.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// routePattern extracts chi's route pattern from the request context.
// Falls back to the raw URL path if no pattern is found.
func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return r.URL.Path
	}
	pattern := strings.Join(rctx.RoutePatterns, "")
	// chi route patterns have trailing /*, remove it.
	pattern = strings.ReplaceAll(pattern, "/*/", "/")
	pattern = strings.TrimSuffix(pattern, "/*")
	if pattern == "" {
		return r.URL.Path
	}
	return pattern
}

// metricsResponseWriter wraps http.ResponseWriter to capture status and bytes.
type metricsResponseWriter struct {
	http.ResponseWriter
	status  int
	bytes   int
	written bool
}

func (w *metricsResponseWriter) WriteHeader(code int) {
	if !w.written {
		w.status = code
		w.written = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *metricsResponseWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.written = true
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}
