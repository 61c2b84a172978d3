/*
Copyright (C) 2026 Fieldline HQ

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Database backend selection.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment string
	DBBackend   DatabaseBackend
	DBDSN       string
	MetricsBind string

	// Scoring weights file; empty selects the built-in defaults.
	WeightsPath string

	// Routing provider for refined travel estimates. Empty means the
	// resolver runs haversine-only.
	RoutingBaseURL string
	RoutingAPIKey  string
	RoutingTimeout time.Duration

	// Travel buffer policy, overridable per deployment region.
	BufferMinMinutes   int
	BufferMultiplier   float64
	BufferMaxMinutes   int
	RegionalMultiplier float64

	// Recommendation fan-out.
	RecommendWorkers    int
	RecommendMaxResults int

	// Tracing configuration
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64

	// Multi-instance configuration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	InstanceID    string

	LegacyEnvWarnings []string
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnvAny([]string{"FIELDLINE_ENV", "FL_ENV"}, "development"),
		DBBackend:   DatabaseBackend(getEnvAny([]string{"FIELDLINE_DB_BACKEND", "FL_DB_BACKEND"}, string(DatabasePostgres))),
		DBDSN:       getEnvAny([]string{"FIELDLINE_DB_DSN", "FL_DB_DSN"}, ""),
		MetricsBind: getEnvAny([]string{"FIELDLINE_METRICS_BIND", "FL_METRICS_BIND"}, "127.0.0.1:9000"),

		WeightsPath: getEnvAny([]string{"FIELDLINE_WEIGHTS_PATH", "FL_WEIGHTS_PATH"}, ""),

		RoutingBaseURL: getEnvAny([]string{"FIELDLINE_ROUTING_BASE_URL", "FL_ROUTING_BASE_URL"}, ""),
		RoutingAPIKey:  getEnvAny([]string{"FIELDLINE_ROUTING_API_KEY", "FL_ROUTING_API_KEY"}, ""),
		RoutingTimeout: time.Duration(getEnvIntAny([]string{"FIELDLINE_ROUTING_TIMEOUT_MS", "FL_ROUTING_TIMEOUT_MS"}, 3000)) * time.Millisecond,

		BufferMinMinutes:   getEnvIntAny([]string{"FIELDLINE_BUFFER_MIN_MINUTES"}, 10),
		BufferMultiplier:   getEnvFloatAny([]string{"FIELDLINE_BUFFER_MULTIPLIER"}, 0.25),
		BufferMaxMinutes:   getEnvIntAny([]string{"FIELDLINE_BUFFER_MAX_MINUTES"}, 45),
		RegionalMultiplier: getEnvFloatAny([]string{"FIELDLINE_REGIONAL_MULTIPLIER"}, 1.0),

		RecommendWorkers:    getEnvIntAny([]string{"FIELDLINE_RECOMMEND_WORKERS"}, 8),
		RecommendMaxResults: getEnvIntAny([]string{"FIELDLINE_RECOMMEND_MAX_RESULTS"}, 10),

		// Tracing configuration
		TracingEnabled:    getEnvBoolAny([]string{"FIELDLINE_TRACING_ENABLED", "FL_TRACING_ENABLED"}, false),
		OTLPEndpoint:      getEnvAny([]string{"FIELDLINE_OTLP_ENDPOINT", "FL_OTLP_ENDPOINT"}, "localhost:4317"),
		TracingSampleRate: getEnvFloatAny([]string{"FIELDLINE_TRACING_SAMPLE_RATE", "FL_TRACING_SAMPLE_RATE"}, 1.0),

		// Multi-instance configuration
		RedisAddr:     getEnvAny([]string{"FIELDLINE_REDIS_ADDR", "FL_REDIS_ADDR"}, "localhost:6379"),
		RedisPassword: getEnvAny([]string{"FIELDLINE_REDIS_PASSWORD", "FL_REDIS_PASSWORD"}, ""),
		RedisDB:       getEnvIntAny([]string{"FIELDLINE_REDIS_DB", "FL_REDIS_DB"}, 0),
		InstanceID:    getEnvAny([]string{"FIELDLINE_INSTANCE_ID", "FL_INSTANCE_ID"}, ""),
	}

	if cfg.DBBackend != DatabasePostgres && cfg.DBBackend != DatabaseMySQL && cfg.DBBackend != DatabaseSQLite {
		return nil, fmt.Errorf("unsupported database backend %q", cfg.DBBackend)
	}

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("FIELDLINE_DB_DSN or FL_DB_DSN must be provided")
	}

	if cfg.BufferMinMinutes < 0 || cfg.BufferMaxMinutes < cfg.BufferMinMinutes {
		return nil, fmt.Errorf("buffer bounds invalid: min=%d max=%d", cfg.BufferMinMinutes, cfg.BufferMaxMinutes)
	}
	if cfg.BufferMultiplier <= 0 {
		return nil, fmt.Errorf("FIELDLINE_BUFFER_MULTIPLIER must be positive")
	}
	if cfg.RegionalMultiplier <= 0 {
		return nil, fmt.Errorf("FIELDLINE_REGIONAL_MULTIPLIER must be positive")
	}

	if strings.EqualFold(cfg.Environment, "production") && cfg.RoutingBaseURL == "" {
		cfg.LegacyEnvWarnings = append(cfg.LegacyEnvWarnings,
			"no routing provider configured; travel estimates will be haversine-only")
	}
	cfg.LegacyEnvWarnings = append(cfg.LegacyEnvWarnings, detectLegacyEnvWarnings()...)

	return cfg, nil
}

func detectLegacyEnvWarnings() []string {
	legacy := map[string]string{
		"ENVIRONMENT":         "use FIELDLINE_ENV (or FL_ENV)",
		"DB_DSN":              "use FIELDLINE_DB_DSN (or FL_DB_DSN)",
		"TRACING_ENABLED":     "use FIELDLINE_TRACING_ENABLED (or FL_TRACING_ENABLED)",
		"OTLP_ENDPOINT":       "use FIELDLINE_OTLP_ENDPOINT (or FL_OTLP_ENDPOINT)",
		"TRACING_SAMPLE_RATE": "use FIELDLINE_TRACING_SAMPLE_RATE (or FL_TRACING_SAMPLE_RATE)",
	}

	warnings := make([]string, 0, len(legacy))
	for key, recommendation := range legacy {
		if os.Getenv(key) != "" {
			warnings = append(warnings, fmt.Sprintf("legacy env key %s is set; %s", key, recommendation))
		}
	}
	return warnings
}

// getEnvAny returns the first non-empty environment variable value from keys, or def if none set.
func getEnvAny(keys []string, def string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

// getEnvIntAny returns the first set integer environment variable value from keys, or def.
func getEnvIntAny(keys []string, def int) int {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil {
				return parsed
			}
		}
	}
	return def
}

// getEnvBoolAny returns the first set boolean environment variable value from keys, or def.
func getEnvBoolAny(keys []string, def bool) bool {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			v = strings.ToLower(strings.TrimSpace(v))
			if v == "true" || v == "1" || v == "yes" {
				return true
			}
			if v == "false" || v == "0" || v == "no" {
				return false
			}
		}
	}
	return def
}

// getEnvFloatAny returns the first set float environment variable value from keys, or def.
func getEnvFloatAny(keys []string, def float64) float64 {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.ParseFloat(v, 64); err == nil {
				return parsed
			}
		}
	}
	return def
}
