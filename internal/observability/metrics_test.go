package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/omnera-dev/omnera/model"
)

func newTestMetrics(t *testing.T) (*Metrics, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := InitMetrics(reg)
	return m, reg
}

func TestInitMetrics_registersAllMetrics(t *testing.T) {
	m, reg := newTestMetrics(t)

	m.RecordHTTPRequest("GET", "/test", 200, time.Millisecond, 10, 100)
	m.RecordResolution(OutcomeInvalid, time.Millisecond, model.Issues{
		model.NewIssue(model.PathOf("name"), model.CodeRequiredButMissing, "missing"),
	})
	m.RecordCacheHit()
	m.RecordCacheMiss()
	m.RecordDocumentReload("success")
	m.SetEntitiesLoaded(map[model.Kind]int{model.KindTable: 2})

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}

	expected := []string{
		"omnera_http_requests_total",
		"omnera_http_request_duration_seconds",
		"omnera_http_request_size_bytes",
		"omnera_http_response_size_bytes",
		"omnera_resolutions_total",
		"omnera_resolution_duration_seconds",
		"omnera_issues_total",
		"omnera_result_cache_hits_total",
		"omnera_result_cache_misses_total",
		"omnera_document_reload_total",
		"omnera_entities_loaded",
	}
	for _, name := range expected {
		if !names[name] {
			t.Errorf("metric %q not registered", name)
		}
	}
}

func TestRecordResolution_countsIssuesByCode(t *testing.T) {
	m, _ := newTestMetrics(t)

	issues := model.Issues{
		model.NewIssue(model.PathOf("tables", 0, "name"), model.CodeRequiredButMissing, "missing"),
		model.NewIssue(model.PathOf("tables", 1, "name"), model.CodeRequiredButMissing, "missing"),
		model.NewWarning(model.PathOf("extra"), model.CodeUnknownProperty, "unknown"),
	}
	m.RecordResolution(OutcomeInvalid, 2*time.Millisecond, issues)
	m.RecordResolution(OutcomeValid, time.Millisecond, nil)

	if v := testutil.ToFloat64(m.ResolutionsTotal.WithLabelValues(OutcomeInvalid)); v != 1 {
		t.Errorf("invalid resolutions = %v, want 1", v)
	}
	if v := testutil.ToFloat64(m.ResolutionsTotal.WithLabelValues(OutcomeValid)); v != 1 {
		t.Errorf("valid resolutions = %v, want 1", v)
	}
	if v := testutil.ToFloat64(m.IssuesTotal.WithLabelValues("REQUIRED_BUT_MISSING", "error")); v != 2 {
		t.Errorf("missing issues = %v, want 2", v)
	}
	if v := testutil.ToFloat64(m.IssuesTotal.WithLabelValues("UNKNOWN_PROPERTY", "warning")); v != 1 {
		t.Errorf("unknown property warnings = %v, want 1", v)
	}
	if n := testutil.CollectAndCount(m.ResolutionDuration); n != 1 {
		t.Errorf("duration series = %d, want 1", n)
	}
}

func TestRecordCache(t *testing.T) {
	m, _ := newTestMetrics(t)

	m.RecordCacheHit()
	m.RecordCacheHit()
	m.RecordCacheMiss()

	if v := testutil.ToFloat64(m.ResultCacheHitsTotal); v != 2 {
		t.Errorf("hits = %v, want 2", v)
	}
	if v := testutil.ToFloat64(m.ResultCacheMissesTotal); v != 1 {
		t.Errorf("misses = %v, want 1", v)
	}
}

func TestRecordDocumentReload(t *testing.T) {
	m, _ := newTestMetrics(t)

	m.RecordDocumentReload("success")
	m.RecordDocumentReload("failure")
	m.RecordDocumentReload("failure")

	if v := testutil.ToFloat64(m.DocumentReloadTotal.WithLabelValues("success")); v != 1 {
		t.Errorf("success reloads = %v, want 1", v)
	}
	if v := testutil.ToFloat64(m.DocumentReloadTotal.WithLabelValues("failure")); v != 2 {
		t.Errorf("failure reloads = %v, want 2", v)
	}
}

func TestSetEntitiesLoaded(t *testing.T) {
	m, _ := newTestMetrics(t)

	m.SetEntitiesLoaded(map[model.Kind]int{model.KindTable: 3, model.KindPage: 1})
	m.SetEntitiesLoaded(map[model.Kind]int{model.KindTable: 4})

	if v := testutil.ToFloat64(m.EntitiesLoaded.WithLabelValues("table")); v != 4 {
		t.Errorf("tables = %v, want 4", v)
	}
	if v := testutil.ToFloat64(m.EntitiesLoaded.WithLabelValues("page")); v != 1 {
		t.Errorf("pages = %v, want 1", v)
	}
}

func TestMetricsMiddleware_recordsRoutePattern(t *testing.T) {
	m, _ := newTestMetrics(t)

	r := chi.NewRouter()
	r.Use(m.MetricsMiddleware)
	r.Get("/api/tables/{tableId}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tables/orders", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	val := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/api/tables/{tableId}", "200"))
	if val != 1 {
		t.Errorf("requests total = %v, want 1", val)
	}
	if n := testutil.CollectAndCount(m.HTTPResponseSizeBytes); n == 0 {
		t.Error("expected response size histogram to have observations")
	}
}

func TestMetricsMiddleware_nestedRouter(t *testing.T) {
	m, _ := newTestMetrics(t)

	r := chi.NewRouter()
	r.Use(m.MetricsMiddleware)
	r.Route("/api", func(r chi.Router) {
		r.Post("/validate", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
		})
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/validate", nil))

	val := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("POST", "/api/validate", "400"))
	if val != 1 {
		t.Errorf("400 requests = %v, want 1", val)
	}
}

func TestMetricsMiddleware_fallsBackToPath(t *testing.T) {
	m, _ := newTestMetrics(t)

	handler := m.MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/raw/path", nil))

	val := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/raw/path", "200"))
	if val != 1 {
		t.Errorf("raw path requests = %v, want 1", val)
	}
}

func TestHandler_servesMetrics(t *testing.T) {
	m, reg := newTestMetrics(t)
	m.RecordCacheHit()

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "omnera_result_cache_hits_total 1") {
		t.Error("metrics response should contain the cache hit counter")
	}
}

func TestHistogramBuckets_sorted(t *testing.T) {
	for name, buckets := range map[string][]float64{
		"http":       httpDurationBuckets,
		"resolution": resolutionDurationBuckets,
		"body":       bodySizeBuckets,
	} {
		for i := 1; i < len(buckets); i++ {
			if buckets[i] <= buckets[i-1] {
				t.Errorf("%s buckets not ascending at %d", name, i)
			}
		}
	}
}
