package artifact

import (
	"context"
	"os"
	"testing"
	"time"
)

func getRedisAddr() string {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		return addr
	}
	return "localhost:6379"
}

func setupRedisIndex(t *testing.T) *RedisIndex {
	t.Helper()

	cfg := DefaultRedisConfig()
	cfg.Addr = getRedisAddr()
	cfg.DB = 15 // Use DB 15 for tests to avoid conflicts
	cfg.HashKey = "serve:artifacts:test"

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	index, err := ConnectRedis(ctx, cfg)
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	index.Reset(ctx)
	t.Cleanup(func() {
		index.Reset(context.Background())
		index.Close()
	})

	return index
}

func TestRedisIndex_PutGet_Integration(t *testing.T) {
	index := setupRedisIndex(t)
	ctx := context.Background()

	if err := index.Put(ctx, "dashboard.html", "/dist/dashboard.html"); err != nil {
		t.Fatalf("put: %v", err)
	}

	path, ok, err := index.Get(ctx, "dashboard.html")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok || path != "/dist/dashboard.html" {
		t.Errorf("expected recorded path, got %q (ok=%v)", path, ok)
	}
}

func TestRedisIndex_GetMissing_Integration(t *testing.T) {
	index := setupRedisIndex(t)

	_, ok, err := index.Get(context.Background(), "missing.html")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok {
		t.Error("expected no record for unknown key")
	}
}

func TestRedisIndex_Reset_Integration(t *testing.T) {
	index := setupRedisIndex(t)
	ctx := context.Background()

	if err := index.Put(ctx, "a.html", "/dist/a.html"); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := index.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if _, ok, _ := index.Get(ctx, "a.html"); ok {
		t.Error("expected empty index after reset")
	}
}
