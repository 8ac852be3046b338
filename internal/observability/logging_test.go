package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/omnera-dev/omnera/internal/config"
	"github.com/omnera-dev/omnera/model"
)

// newTestLogger creates a logger that writes JSON to a buffer for assertion.
func newTestLogger(buf *bytes.Buffer) *zap.Logger {
	enc := zapcore.NewJSONEncoder(zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		MessageKey:     "msg",
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
	})
	core := zapcore.NewCore(enc, zapcore.AddSync(buf), zapcore.DebugLevel)
	return zap.New(core)
}

func decodeEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log entry: %v", err)
	}
	return entry
}

func TestNewLogger_levels(t *testing.T) {
	tests := []struct {
		level     string
		enabled   zapcore.Level
		disabled  zapcore.Level
		checkDown bool
	}{
		{"debug", zapcore.DebugLevel, zapcore.DebugLevel, false},
		{"info", zapcore.InfoLevel, zapcore.DebugLevel, true},
		{"warn", zapcore.WarnLevel, zapcore.InfoLevel, true},
		{"error", zapcore.ErrorLevel, zapcore.WarnLevel, true},
		{"bogus", zapcore.InfoLevel, zapcore.DebugLevel, true},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger, err := NewLogger(config.ObservabilityConfig{LogLevel: tt.level})
			if err != nil {
				t.Fatalf("NewLogger() error = %v", err)
			}
			defer logger.Sync()

			if !logger.Core().Enabled(tt.enabled) {
				t.Errorf("%s should be enabled", tt.enabled)
			}
			if tt.checkDown && logger.Core().Enabled(tt.disabled) {
				t.Errorf("%s should NOT be enabled at %s", tt.disabled, tt.level)
			}
		})
	}
}

func TestWithLogger_and_LoggerFrom(t *testing.T) {
	logger := zap.NewNop()
	ctx := WithLogger(context.Background(), logger)

	if got := LoggerFrom(ctx, nil); got != logger {
		t.Error("LoggerFrom should return the stored logger")
	}
}

func TestLoggerFrom_fallback(t *testing.T) {
	fallback := zap.NewNop()
	if got := LoggerFrom(context.Background(), fallback); got != fallback {
		t.Error("LoggerFrom should return fallback when no logger in context")
	}
}

func TestRequestLogger_addsCorrelationAndTrace(t *testing.T) {
	setupTestTracer(t)
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	ctx := WithCorrelationID(context.Background(), "corr-abc")
	ctx, span := StartSpan(ctx, "request")
	defer span.End()

	RequestLogger(ctx, logger).Info("test message")

	entry := decodeEntry(t, &buf)
	if entry["correlation_id"] != "corr-abc" {
		t.Errorf("correlation_id = %v, want corr-abc", entry["correlation_id"])
	}
	if entry["trace_id"] != span.SpanContext().TraceID().String() {
		t.Errorf("trace_id = %v, want %s", entry["trace_id"], span.SpanContext().TraceID())
	}
}

func TestRequestLogger_bareContext(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	RequestLogger(context.Background(), logger).Info("plain")

	entry := decodeEntry(t, &buf)
	if _, ok := entry["correlation_id"]; ok {
		t.Error("correlation_id should be absent without one in context")
	}
	if _, ok := entry["trace_id"]; ok {
		t.Error("trace_id should be absent without a span")
	}
}

func TestCorrelationIDFrom_empty(t *testing.T) {
	if got := CorrelationIDFrom(context.Background()); got != "" {
		t.Errorf("CorrelationIDFrom() = %q, want empty", got)
	}
}

func TestIssueFields(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	is := model.NewIssue(model.PathOf("tables", 0, "name"), model.CodeRequiredButMissing, "name is required")
	logger.Warn("issue", IssueFields(is)...)

	entry := decodeEntry(t, &buf)
	want := map[string]string{
		"path":     "tables[0].name",
		"code":     "REQUIRED_BUT_MISSING",
		"severity": "error",
		"detail":   "name is required",
	}
	for k, v := range want {
		if entry[k] != v {
			t.Errorf("%s = %v, want %q", k, entry[k], v)
		}
	}
}
