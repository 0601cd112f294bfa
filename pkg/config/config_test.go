package config

import (
	"os"
	"path/filepath"
	"testing"
)

var serveEnvVars = []string{
	"SERVE_ENV", "SERVE_VERSION", "SERVE_HTTP_PORT",
	"SERVE_DIST_DIR", "SERVE_ASSETS_DIR", "SERVE_CACHE_BACKEND",
	"SERVE_REDIS_ADDR", "SERVE_REDIS_PASSWORD", "SERVE_REDIS_DB",
	"SERVE_IMPORT_BASE", "SERVE_OBSERVE_ENDPOINT",
	"SERVE_LOG_LEVEL", "SERVE_LOG_FORMAT",
	"SERVE_TRACING_ENABLED", "SERVE_TRACING_SAMPLING",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range serveEnvVars {
		if val, ok := os.LookupEnv(key); ok {
			t.Setenv(key, val) // registers restore
			os.Unsetenv(key)
		}
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("serve")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.ServiceName != "serve" {
		t.Errorf("ServiceName = %v, want serve", cfg.ServiceName)
	}
	if cfg.Environment != "development" {
		t.Errorf("Environment = %v, want development", cfg.Environment)
	}
	if !cfg.IsDevelopment() {
		t.Error("expected IsDevelopment() with default environment")
	}
	if cfg.HTTPPort != 8080 {
		t.Errorf("HTTPPort = %v, want 8080", cfg.HTTPPort)
	}
	if cfg.CacheBackend != CacheMemory {
		t.Errorf("CacheBackend = %v, want memory", cfg.CacheBackend)
	}
	if cfg.DistDir != "dist" {
		t.Errorf("DistDir = %v, want dist", cfg.DistDir)
	}
	if cfg.ImportBase != "https://esm.sh/" {
		t.Errorf("ImportBase = %v, want https://esm.sh/", cfg.ImportBase)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat = %v, want json", cfg.LogFormat)
	}
	if cfg.TracingEnabled {
		t.Error("expected tracing disabled by default")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("SERVE_ENV", "production")
	t.Setenv("SERVE_HTTP_PORT", "3000")
	t.Setenv("SERVE_CACHE_BACKEND", "redis")
	t.Setenv("SERVE_REDIS_ADDR", "redis.internal:6379")
	t.Setenv("SERVE_TRACING_ENABLED", "true")
	t.Setenv("SERVE_TRACING_SAMPLING", "0.25")

	cfg, err := Load("serve")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if !cfg.IsProduction() {
		t.Error("expected IsProduction()")
	}
	if cfg.HTTPPort != 3000 {
		t.Errorf("HTTPPort = %v, want 3000", cfg.HTTPPort)
	}
	if !cfg.UseRedisCache() {
		t.Error("expected redis cache backend")
	}
	if cfg.RedisAddr != "redis.internal:6379" {
		t.Errorf("RedisAddr = %v", cfg.RedisAddr)
	}
	if !cfg.TracingEnabled {
		t.Error("expected tracing enabled")
	}
	if cfg.TracingSampling != 0.25 {
		t.Errorf("TracingSampling = %v, want 0.25", cfg.TracingSampling)
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("SERVE_HTTP_PORT", "not-a-number")
	t.Setenv("SERVE_TRACING_ENABLED", "not-a-bool")
	t.Setenv("SERVE_CACHE_BACKEND", "mongodb")

	cfg, err := Load("serve")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.HTTPPort != 8080 {
		t.Errorf("HTTPPort = %v, want default 8080", cfg.HTTPPort)
	}
	if cfg.TracingEnabled {
		t.Error("expected default tracing setting")
	}
	if cfg.CacheBackend != CacheMemory {
		t.Errorf("unknown backend should fall back to memory, got %v", cfg.CacheBackend)
	}
}

func TestLoadFile_Declarations(t *testing.T) {
	clearEnv(t)

	decl := `
dist_dir: build/out
assets_dir: public
import_base: https://cdn.example.com/
build:
  command: esbuild
  args: ["--bundle", "--outdir=build/out"]
routes:
  - route: /dashboard
    source: pages/dashboard.html
  - route: /settings
    source: pages/settings.html
imports:
  - name: react
    version: 18.2.0
  - name: react-dom
    version: 18.2.0
    deps: [react]
`
	path := filepath.Join(t.TempDir(), "serve.yaml")
	if err := os.WriteFile(path, []byte(decl), 0o644); err != nil {
		t.Fatalf("write declaration file: %v", err)
	}

	cfg, err := LoadFile("serve", path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if len(cfg.Routes) != 2 {
		t.Fatalf("expected 2 routes, got %d", len(cfg.Routes))
	}
	if cfg.Routes[0].Route != "/dashboard" || cfg.Routes[0].Source != "pages/dashboard.html" {
		t.Errorf("unexpected first route: %+v", cfg.Routes[0])
	}
	if len(cfg.Imports) != 2 {
		t.Fatalf("expected 2 imports, got %d", len(cfg.Imports))
	}
	if cfg.Imports[1].Deps[0] != "react" {
		t.Errorf("unexpected deps: %+v", cfg.Imports[1])
	}
	if cfg.Build.Command != "esbuild" {
		t.Errorf("Build.Command = %v", cfg.Build.Command)
	}
	if cfg.Build.OutDir != "build/out" {
		t.Errorf("Build.OutDir should default to dist dir, got %v", cfg.Build.OutDir)
	}
	if cfg.DistDir != "build/out" {
		t.Errorf("DistDir = %v", cfg.DistDir)
	}
	if cfg.AssetsDir != "public" {
		t.Errorf("AssetsDir = %v", cfg.AssetsDir)
	}
	if cfg.ImportBase != "https://cdn.example.com/" {
		t.Errorf("ImportBase = %v", cfg.ImportBase)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	clearEnv(t)
	if _, err := LoadFile("serve", filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing declaration file")
	}
}
