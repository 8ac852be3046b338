package observability

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHandleHealth_returnsOK(t *testing.T) {
	origVersion, origCommit := Version, Commit
	Version = "1.2.3"
	Commit = "abc1234"
	t.Cleanup(func() {
		Version = origVersion
		Commit = origCommit
	})

	rec := httptest.NewRecorder()
	HandleHealth().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ui/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("status = %q, want ok", resp.Status)
	}
	if resp.Version != "1.2.3" {
		t.Errorf("version = %q, want 1.2.3", resp.Version)
	}
	if resp.Commit != "abc1234" {
		t.Errorf("commit = %q, want abc1234", resp.Commit)
	}
}

type mockHealthChecker struct {
	err error
}

func (m *mockHealthChecker) HealthCheck(_ context.Context) error {
	return m.err
}

type fakeApplication struct {
	loaded   bool
	checksum string
	at       time.Time
}

func (f fakeApplication) Loaded() bool        { return f.loaded }
func (f fakeApplication) Checksum() string    { return f.checksum }
func (f fakeApplication) LoadedAt() time.Time { return f.at }

var (
	served   = fakeApplication{loaded: true, checksum: "abc123", at: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	unloaded = fakeApplication{}
)

func serveReady(t *testing.T, checks ReadinessChecks) (int, ReadinessResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	HandleReady(checks).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ui/ready", nil))

	var resp ReadinessResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	return rec.Code, resp
}

func TestHandleReady_applicationLoaded(t *testing.T) {
	code, resp := serveReady(t, ReadinessChecks{
		Application: served,
	})

	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if resp.Status != "ready" {
		t.Errorf("status = %q, want ready", resp.Status)
	}
	if len(resp.Checks) != 1 {
		t.Errorf("checks count = %d, want 1 (only required checks)", len(resp.Checks))
	}
	if resp.Checks["application"].Status != "ok" {
		t.Errorf("application = %q, want ok", resp.Checks["application"].Status)
	}
	if resp.Application == nil || resp.Application.Checksum != "abc123" {
		t.Errorf("application = %+v, want checksum abc123", resp.Application)
	}
	if resp.Application != nil && !resp.Application.LoadedAt.Equal(served.at) {
		t.Errorf("loaded_at = %v, want %v", resp.Application.LoadedAt, served.at)
	}
}

func TestHandleReady_applicationNotLoaded(t *testing.T) {
	code, resp := serveReady(t, ReadinessChecks{
		Application: unloaded,
	})

	if code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", code)
	}
	if resp.Status != "not_ready" {
		t.Errorf("status = %q, want not_ready", resp.Status)
	}
	if resp.Checks["application"].Error == "" {
		t.Error("application error should have a message")
	}
	if resp.Application != nil {
		t.Errorf("application = %+v, want omitted", resp.Application)
	}
}

func TestHandleReady_noApplicationSource(t *testing.T) {
	code, resp := serveReady(t, ReadinessChecks{})

	if code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", code)
	}
	if resp.Checks["application"].Status != "error" {
		t.Errorf("application = %q, want error", resp.Checks["application"].Status)
	}
}

func TestHandleReady_withOptionalChecks_allHealthy(t *testing.T) {
	code, resp := serveReady(t, ReadinessChecks{
		Application:   served,
		SnapshotStore: &mockHealthChecker{},
		ResultCache:   &mockHealthChecker{},
	})

	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if len(resp.Checks) != 3 {
		t.Errorf("checks count = %d, want 3", len(resp.Checks))
	}
	for name, check := range resp.Checks {
		if check.Status != "ok" {
			t.Errorf("%s = %q, want ok", name, check.Status)
		}
		if check.LatencyMs < 0 {
			t.Errorf("%s latency = %d, should be >= 0", name, check.LatencyMs)
		}
	}
}

func TestHandleReady_snapshotStoreDown(t *testing.T) {
	code, resp := serveReady(t, ReadinessChecks{
		Application:   served,
		SnapshotStore: &mockHealthChecker{err: errors.New("connection refused")},
		ResultCache:   &mockHealthChecker{},
	})

	if code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", code)
	}
	if resp.Checks["snapshot_store"].Error != "connection refused" {
		t.Errorf("snapshot_store error = %q, want 'connection refused'", resp.Checks["snapshot_store"].Error)
	}
	if resp.Checks["result_cache"].Status != "ok" {
		t.Errorf("result_cache = %q, want ok", resp.Checks["result_cache"].Status)
	}
}

func TestHandleReady_multipleFailures(t *testing.T) {
	_, resp := serveReady(t, ReadinessChecks{
		Application:   unloaded,
		SnapshotStore: &mockHealthChecker{err: errors.New("pg down")},
		ResultCache:   &mockHealthChecker{err: errors.New("redis down")},
	})

	failCount := 0
	for _, check := range resp.Checks {
		if check.Status == "error" {
			failCount++
		}
	}
	if failCount != 3 {
		t.Errorf("failed checks = %d, want 3", failCount)
	}
}
