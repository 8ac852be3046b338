package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_valid(t *testing.T) {
	cfg, err := Load("testdata/valid.yaml")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("Server.ReadTimeout = %v, want 15s", cfg.Server.ReadTimeout)
	}
	if cfg.Server.WriteTimeout != 30*time.Second {
		t.Errorf("Server.WriteTimeout = %v, want default 30s", cfg.Server.WriteTimeout)
	}
	if len(cfg.Server.CORS.AllowedOrigins) != 1 {
		t.Errorf("CORS.AllowedOrigins = %v, want 1 entry", cfg.Server.CORS.AllowedOrigins)
	}
	if cfg.Document.Path != "./apps/shop.yaml" {
		t.Errorf("Document.Path = %q", cfg.Document.Path)
	}
	if !cfg.Document.Watch {
		t.Error("Document.Watch = false, want true")
	}
	if cfg.Document.Debounce != 500*time.Millisecond {
		t.Errorf("Document.Debounce = %v, want 500ms", cfg.Document.Debounce)
	}
	if cfg.Cache.Driver != "redis" || cfg.Cache.AddrEnv != "OMNERA_REDIS_ADDR" {
		t.Errorf("Cache = %+v", cfg.Cache)
	}
	if cfg.Cache.TTL != time.Hour {
		t.Errorf("Cache.TTL = %v, want 1h", cfg.Cache.TTL)
	}
	if cfg.Store.Driver != "postgres" || cfg.Store.MaxConns != 20 {
		t.Errorf("Store = %+v", cfg.Store)
	}
	if cfg.Admin.JWTSecretEnv != "OMNERA_ADMIN_SECRET" {
		t.Errorf("Admin.JWTSecretEnv = %q", cfg.Admin.JWTSecretEnv)
	}
	if cfg.Observability.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.Observability.LogLevel)
	}
	if !cfg.Observability.Tracing.Enabled || cfg.Observability.Tracing.Exporter != "stdout" {
		t.Errorf("Tracing = %+v", cfg.Observability.Tracing)
	}
}

func TestLoad_minimal_uses_defaults(t *testing.T) {
	cfg, err := Load("testdata/minimal.yaml")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Document.Path != "app.json" {
		t.Errorf("Document.Path = %q, want app.json", cfg.Document.Path)
	}
	if cfg.Cache.Driver != "memory" {
		t.Errorf("Cache.Driver = %q, want memory", cfg.Cache.Driver)
	}
	if cfg.Store.Driver != "memory" {
		t.Errorf("Store.Driver = %q, want memory", cfg.Store.Driver)
	}
}

func TestLoad_missing_file(t *testing.T) {
	_, err := Load("testdata/nonexistent.yaml")
	if err == nil {
		t.Fatal("Load() with missing file should return error")
	}
}

func TestLoad_invalid_reports_every_violation(t *testing.T) {
	_, err := Load("testdata/invalid.yaml")
	if err == nil {
		t.Fatal("Load() with invalid config should return error")
	}

	msg := err.Error()
	for _, want := range []string{
		"server.port must be at most 65535",
		"document.path is required",
		"cache.driver must be one of [memory redis none]",
		"store.dsn_env is required",
		"store.min_conns must not exceed",
		"observability.log_level must be one of",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q does not mention %q", msg, want)
		}
	}
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	if cfg.Server.Port != 8080 {
		t.Errorf("default Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Cache.TTL != 10*time.Minute {
		t.Errorf("default Cache.TTL = %v, want 10m", cfg.Cache.TTL)
	}
	if cfg.Observability.LogLevel != "info" {
		t.Errorf("default LogLevel = %q, want info", cfg.Observability.LogLevel)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Defaults().Validate() error = %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("OMNERA_SERVER_PORT", "3000")
	t.Setenv("OMNERA_DOCUMENT_PATH", "/srv/app.json")
	t.Setenv("OMNERA_DOCUMENT_WATCH", "false")
	t.Setenv("OMNERA_CACHE_DRIVER", "none")
	t.Setenv("OMNERA_OBSERVABILITY_LOG_LEVEL", "error")

	cfg, err := Load("testdata/valid.yaml")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 3000 {
		t.Errorf("Server.Port = %d, want 3000 (env override)", cfg.Server.Port)
	}
	if cfg.Document.Path != "/srv/app.json" {
		t.Errorf("Document.Path = %q, want env override", cfg.Document.Path)
	}
	if cfg.Document.Watch {
		t.Error("Document.Watch = true, want false (env override)")
	}
	if cfg.Cache.Driver != "none" {
		t.Errorf("Cache.Driver = %q, want none", cfg.Cache.Driver)
	}
	if cfg.Observability.LogLevel != "error" {
		t.Errorf("LogLevel = %q, want error (env override)", cfg.Observability.LogLevel)
	}
}

func TestEnvOverrides_malformed(t *testing.T) {
	t.Setenv("OMNERA_SERVER_PORT", "eighty")

	_, err := Load("testdata/minimal.yaml")
	if err == nil || !strings.Contains(err.Error(), "OMNERA_SERVER_PORT") {
		t.Fatalf("Load() error = %v, want OMNERA_SERVER_PORT error", err)
	}
}

func TestValidate_invalid_port(t *testing.T) {
	cfg := Defaults()
	cfg.Server.Port = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() with port 0 should return error")
	}
	if !strings.Contains(err.Error(), "server.port must be at least 1") {
		t.Errorf("error = %v", err)
	}
}

func TestValidate_redis_requires_address(t *testing.T) {
	cfg := Defaults()
	cfg.Cache.Driver = "redis"

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "cache.addr_env is required") {
		t.Fatalf("Validate() error = %v, want addr_env error", err)
	}
}
