package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/omnera-dev/omnera/model"
)

func testReport() *model.Report {
	return &model.Report{
		Valid:       true,
		Checksum:    "abc",
		Application: json.RawMessage(`{"name":"Shop","tables":{}}`),
		Issues: []model.FieldError{
			{Field: "x", Code: "UNKNOWN_PROPERTY", Message: "unknown property x is ignored", Severity: "warning"},
		},
	}
}

// --- MemoryCache ---

func TestMemoryCache_GetMissing(t *testing.T) {
	c := NewMemoryCache(time.Minute, 10)

	report, found, err := c.Get(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if found || report != nil {
		t.Errorf("Get = %+v, %v; want nil, false", report, found)
	}
}

func TestMemoryCache_PutAndGet(t *testing.T) {
	c := NewMemoryCache(time.Minute, 10)
	ctx := context.Background()

	if err := c.Put(ctx, "abc", testReport()); err != nil {
		t.Fatalf("Put error: %v", err)
	}
	report, found, err := c.Get(ctx, "abc")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if !found {
		t.Fatal("found = false, want true")
	}
	if !report.Valid || len(report.Issues) != 1 {
		t.Errorf("report = %+v", report)
	}
}

func TestMemoryCache_TTL(t *testing.T) {
	c := NewMemoryCache(time.Minute, 10)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	c.Put(ctx, "abc", testReport())
	now = now.Add(2 * time.Minute)

	if _, found, _ := c.Get(ctx, "abc"); found {
		t.Error("expired entry should not be found")
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0 after expiry", c.Len())
	}
}

func TestMemoryCache_MaxEntries(t *testing.T) {
	c := NewMemoryCache(time.Minute, 3)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		c.Put(ctx, fmt.Sprintf("k%d", i), testReport())
		now = now.Add(time.Second)
	}

	if c.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", c.Len())
	}
	for _, k := range []string{"k0", "k1"} {
		if _, found, _ := c.Get(ctx, k); found {
			t.Errorf("%s should have been evicted", k)
		}
	}
	for _, k := range []string{"k2", "k3", "k4"} {
		if _, found, _ := c.Get(ctx, k); !found {
			t.Errorf("%s should still be cached", k)
		}
	}
}

func TestMemoryCache_overwrite_does_not_evict(t *testing.T) {
	c := NewMemoryCache(time.Minute, 2)
	ctx := context.Background()

	c.Put(ctx, "a", testReport())
	c.Put(ctx, "b", testReport())
	c.Put(ctx, "b", testReport())

	if _, found, _ := c.Get(ctx, "a"); !found {
		t.Error("overwriting b evicted a")
	}
}

// --- RedisCache ---

func newRedisCache(t *testing.T, ttl time.Duration) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisCache(client, ttl), mr
}

func TestRedisCache_PutAndGet(t *testing.T) {
	c, mr := newRedisCache(t, time.Minute)
	ctx := context.Background()

	if err := c.Put(ctx, "abc", testReport()); err != nil {
		t.Fatalf("Put error: %v", err)
	}
	if !mr.Exists("omnera:report:abc") {
		t.Fatal("key omnera:report:abc not written")
	}

	report, found, err := c.Get(ctx, "abc")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if !found {
		t.Fatal("found = false, want true")
	}
	if report.Checksum != "abc" {
		t.Errorf("Checksum = %q, want abc", report.Checksum)
	}
	if string(report.Application) != `{"name":"Shop","tables":{}}` {
		t.Errorf("Application = %s", report.Application)
	}
	if report.Issues[0].Severity != "warning" {
		t.Errorf("Severity = %q, want warning", report.Issues[0].Severity)
	}
}

func TestRedisCache_GetMissing(t *testing.T) {
	c, _ := newRedisCache(t, time.Minute)

	_, found, err := c.Get(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if found {
		t.Error("found = true, want false")
	}
}

func TestRedisCache_TTL(t *testing.T) {
	c, mr := newRedisCache(t, time.Minute)
	ctx := context.Background()

	c.Put(ctx, "abc", testReport())
	mr.FastForward(2 * time.Minute)

	if _, found, _ := c.Get(ctx, "abc"); found {
		t.Error("expired entry should not be found")
	}
}

func TestRedisCache_corrupt_entry(t *testing.T) {
	c, mr := newRedisCache(t, time.Minute)
	mr.Set(FormatKey("bad"), "not json")

	if _, _, err := c.Get(context.Background(), "bad"); err == nil {
		t.Error("Get on corrupt entry should fail")
	}
}

func TestRedisCache_unavailable(t *testing.T) {
	c, mr := newRedisCache(t, time.Minute)
	if err := c.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck() error = %v", err)
	}
	mr.Close()

	if err := c.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck with redis down should fail")
	}

	if err := c.Put(context.Background(), "abc", testReport()); err == nil {
		t.Error("Put with redis down should fail")
	}
}
