// Package config provides configuration for the CLI.
package config

import (
	"os"
	"strconv"
)

// Config holds CLI configuration.
type Config struct {
	// DeclPath locates the serving declaration file (routes, imports,
	// build command) that commands operate on.
	DeclPath string

	// Format selects the output format: table, json, or yaml.
	Format string

	// Verbose enables extra output.
	Verbose bool
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		DeclPath: getEnv("SERVE_CONFIG", "serve.yaml"),
		Format:   getEnv("SERVE_FORMAT", "table"),
		Verbose:  getEnvBool("SERVE_VERBOSE", false),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		b, err := strconv.ParseBool(value)
		if err == nil {
			return b
		}
	}
	return defaultValue
}
