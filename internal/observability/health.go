package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// Build-time variables injected via ldflags.
var (
	Version = "dev"
	Commit  = "unknown"
)

// HealthResponse is the liveness body.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
}

// ReadinessResponse is the readiness body. Application is set while a
// resolved application is being served.
type ReadinessResponse struct {
	Status      string                 `json:"status"`
	Application *ServedApplication     `json:"application,omitempty"`
	Checks      map[string]CheckResult `json:"checks"`
}

// ServedApplication identifies the document currently installed.
type ServedApplication struct {
	Checksum string    `json:"checksum"`
	LoadedAt time.Time `json:"loaded_at"`
}

// CheckResult is the outcome of one readiness check.
type CheckResult struct {
	Status    string `json:"status"`
	LatencyMs int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// HealthChecker can verify its own health.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// ApplicationState reports what the registry is serving.
type ApplicationState interface {
	Loaded() bool
	Checksum() string
	LoadedAt() time.Time
}

// ReadinessChecks holds what the readiness endpoint inspects. The instance is
// ready only while Application has something loaded and every configured
// backend answers.
type ReadinessChecks struct {
	Application ApplicationState

	SnapshotStore HealthChecker
	ResultCache   HealthChecker
}

const (
	checkTimeout = 2 * time.Second

	checkOK    = "ok"
	checkError = "error"
)

// HandleHealth returns the liveness handler.
func HandleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusOK, HealthResponse{Status: checkOK, Version: Version, Commit: Commit})
	}
}

// HandleReady returns the readiness handler. Backend checks run concurrently,
// each bounded by its own timeout.
func HandleReady(checks ReadinessChecks) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := ReadinessResponse{Status: "ready", Checks: make(map[string]CheckResult)}

		if app := checks.Application; app != nil && app.Loaded() {
			resp.Application = &ServedApplication{Checksum: app.Checksum(), LoadedAt: app.LoadedAt()}
			resp.Checks["application"] = CheckResult{Status: checkOK}
		} else {
			resp.Checks["application"] = CheckResult{Status: checkError, Error: "no valid application loaded"}
		}

		var (
			mu sync.Mutex
			wg sync.WaitGroup
		)
		backends := map[string]HealthChecker{
			"snapshot_store": checks.SnapshotStore,
			"result_cache":   checks.ResultCache,
		}
		for name, checker := range backends {
			if checker == nil {
				continue
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				result := runCheck(r.Context(), checker)
				mu.Lock()
				resp.Checks[name] = result
				mu.Unlock()
			}()
		}
		wg.Wait()

		status := http.StatusOK
		for _, result := range resp.Checks {
			if result.Status != checkOK {
				resp.Status = "not_ready"
				status = http.StatusServiceUnavailable
				break
			}
		}
		writeStatus(w, status, resp)
	}
}

func runCheck(parent context.Context, checker HealthChecker) CheckResult {
	ctx, cancel := context.WithTimeout(parent, checkTimeout)
	defer cancel()

	start := time.Now()
	err := checker.HealthCheck(ctx)
	result := CheckResult{Status: checkOK, LatencyMs: time.Since(start).Milliseconds()}
	if err != nil {
		result.Status = checkError
		result.Error = err.Error()
	}
	return result
}

func writeStatus(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
