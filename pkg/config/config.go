// Package config provides configuration loading from environment variables
// and an optional YAML declaration file for routes, imports, and the build
// command.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/Mements/serve/pkg/importmap"
)

// CacheBackend represents the artifact-index implementation type.
type CacheBackend string

const (
	// CacheMemory keeps artifact records in process memory.
	CacheMemory CacheBackend = "memory"
	// CacheRedis shares artifact records through Redis.
	CacheRedis CacheBackend = "redis"
)

// RouteDecl declares one page route and the source the compiler builds it
// from. Handlers are bound in code by route path.
type RouteDecl struct {
	Route  string `yaml:"route"`
	Source string `yaml:"source"`
}

// BuildDecl declares the external bundler invocation.
type BuildDecl struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
	OutDir  string   `yaml:"out_dir"`
}

// Config holds the full serving configuration.
type Config struct {
	// Service identification
	ServiceName string
	Environment string // development, staging, production
	Version     string

	// Server
	HTTPPort int

	// Filesystem roots
	DistDir   string
	AssetsDir string

	// Artifact index backend
	CacheBackend CacheBackend

	// Redis (used when CacheBackend is "redis")
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Declarations (from the YAML file)
	Routes  []RouteDecl
	Imports []importmap.Descriptor
	Build   BuildDecl

	// ImportBase is the ESM delivery host for resolved imports.
	ImportBase string

	// Observability
	ObserveEndpoint string
	LogLevel        string
	LogFormat       string // json, text

	// Tracing
	TracingEnabled  bool
	TracingSampling float64
}

// declFile is the on-disk YAML shape.
type declFile struct {
	Routes     []RouteDecl            `yaml:"routes"`
	Imports    []importmap.Descriptor `yaml:"imports"`
	Build      BuildDecl              `yaml:"build"`
	ImportBase string                 `yaml:"import_base"`
	DistDir    string                 `yaml:"dist_dir"`
	AssetsDir  string                 `yaml:"assets_dir"`
}

// Load loads configuration from environment variables.
func Load(serviceName string) (*Config, error) {
	cfg := &Config{
		ServiceName: serviceName,
		Environment: getEnv("SERVE_ENV", "development"),
		Version:     getEnv("SERVE_VERSION", "dev"),

		HTTPPort: getEnvInt("SERVE_HTTP_PORT", 8080),

		DistDir:   getEnv("SERVE_DIST_DIR", "dist"),
		AssetsDir: getEnv("SERVE_ASSETS_DIR", "assets"),

		CacheBackend: parseCacheBackend(getEnv("SERVE_CACHE_BACKEND", "memory")),

		RedisAddr:     getEnv("SERVE_REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("SERVE_REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("SERVE_REDIS_DB", 0),

		ImportBase: getEnv("SERVE_IMPORT_BASE", importmap.DefaultBaseURL),

		ObserveEndpoint: getEnv("SERVE_OBSERVE_ENDPOINT", "localhost:4317"),
		LogLevel:        getEnv("SERVE_LOG_LEVEL", "info"),
		LogFormat:       getEnv("SERVE_LOG_FORMAT", "json"),

		TracingEnabled:  getEnvBool("SERVE_TRACING_ENABLED", false),
		TracingSampling: getEnvFloat("SERVE_TRACING_SAMPLING", 1.0),
	}

	return cfg, nil
}

// LoadFile loads environment configuration and merges the YAML declaration
// file at path into it.
func LoadFile(serviceName, path string) (*Config, error) {
	cfg, err := Load(serviceName)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read declaration file: %w", err)
	}

	var decl declFile
	if err := yaml.Unmarshal(data, &decl); err != nil {
		return nil, fmt.Errorf("failed to parse declaration file: %w", err)
	}

	cfg.Routes = decl.Routes
	cfg.Imports = decl.Imports
	cfg.Build = decl.Build
	if decl.ImportBase != "" {
		cfg.ImportBase = decl.ImportBase
	}
	if decl.DistDir != "" {
		cfg.DistDir = decl.DistDir
	}
	if decl.AssetsDir != "" {
		cfg.AssetsDir = decl.AssetsDir
	}
	if cfg.Build.OutDir == "" {
		cfg.Build.OutDir = cfg.DistDir
	}

	return cfg, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// UseMemoryCache returns true if artifact records stay in process memory.
func (c *Config) UseMemoryCache() bool {
	return c.CacheBackend == CacheMemory
}

// UseRedisCache returns true if artifact records are shared through Redis.
func (c *Config) UseRedisCache() bool {
	return c.CacheBackend == CacheRedis
}

// Helper functions

func parseCacheBackend(s string) CacheBackend {
	switch s {
	case "redis":
		return CacheRedis
	default:
		return CacheMemory
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
