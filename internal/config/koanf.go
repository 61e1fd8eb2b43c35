// Wayfinder - Navigation Transition Engine for Branching Narratives
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/tomtom215/wayfinder/internal/logging"
	"github.com/tomtom215/wayfinder/internal/navigation"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/wayfinder/config.yaml",
	"/etc/wayfinder/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	logCfg := logging.DefaultConfig()
	logCfg.Output = nil

	return &Config{
		Server: ServerConfig{
			Port:            8484,
			Host:            "0.0.0.0",
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    10 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			Environment:     "development",
		},
		Security: SecurityConfig{
			RateLimitReqs:   600,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
			MaxBodyBytes:    64 << 10,
		},
		Logging:    logCfg,
		Navigation: *navigation.DefaultConfig(),
		Policies: PoliciesConfig{
			IncludeDefaults: true,
			ReloadInterval:  0,
			MinReloadGap:    5 * time.Second,
		},
		Flags: FlagsConfig{
			Enabled: []string{navigation.DefaultFallbackFlag},
		},
		Store: StoreConfig{
			Backend: "memory",
			Breaker: BreakerConfig{
				Enabled:      true,
				MaxRequests:  3,
				Interval:     time.Minute,
				Timeout:      30 * time.Second,
				MinRequests:  10,
				FailureRatio: 0.5,
			},
		},
		Cache: CacheConfig{
			Capacity: 10000,
		},
		Telemetry: TelemetryConfig{
			Events:          false,
			Topic:           "navigation.decision",
			QueueSize:       1024,
			BreakerFailures: 5,
			BreakerTimeout:  30 * time.Second,
			Embedded: EmbeddedNATSConfig{
				Host:      "127.0.0.1",
				Port:      4222,
				StoreDir:  "/data/nats/jetstream",
				MaxMemory: 256 << 20,
				MaxStore:  1 << 30,
			},
		},
	}
}

// Load reads configuration from layered sources:
//  1. Defaults: Built-in defaults
//  2. Config File: Optional YAML config file (CONFIG_PATH or DefaultConfigPaths)
//  3. Environment Variables: Override any mapped setting
//
// The result is validated before it is returned.
func Load() (*Config, error) {
	return LoadFile(findConfigFile())
}

// LoadFile is Load with an explicit config file path. An empty path skips
// the file layer.
func LoadFile(configPath string) (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: config file
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: environment variables
	// HTTP_PORT -> server.port, POLICIES_PATH -> policies.path
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"security.cors_origins",
	"flags.enabled",
	"flags.disabled",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// Env vars arrive as strings while the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		strVal, ok := val.(string)
		if !ok {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to koanf paths.
var envMappings = map[string]string{
	// Server
	"http_port":             "server.port",
	"http_host":             "server.host",
	"http_read_timeout":     "server.read_timeout",
	"http_write_timeout":    "server.write_timeout",
	"http_idle_timeout":     "server.idle_timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"environment":           "server.environment",

	// Security
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
	"cors_origins":        "security.cors_origins",
	"max_body_bytes":      "security.max_body_bytes",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	// Navigation engine
	"nav_max_pool_size":    "navigation.limits.max_pool_size",
	"nav_max_k":            "navigation.limits.max_k",
	"nav_max_route_window": "navigation.limits.max_route_window",
	"nav_max_ui_slots":     "navigation.limits.max_ui_slots",
	"nav_budget_max_time":  "navigation.budget.max_time",
	"nav_budget_queries":   "navigation.budget.max_queries",
	"nav_budget_filters":   "navigation.budget.max_filters",
	"nav_cache_enabled":    "navigation.cache.enabled",
	"nav_cache_ttl":        "navigation.cache.ttl",
	"nav_history_enabled":  "navigation.history.enabled",
	"nav_history_size":     "navigation.history.size",
	"nav_fallback_flag":    "navigation.fallback.flag_name",
	"nav_fallback_node":    "navigation.fallback.default_node_id",

	// Policies
	"policies_path":             "policies.path",
	"policies_include_defaults": "policies.include_defaults",
	"policies_reload_interval":  "policies.reload_interval",
	"policies_watch":            "policies.watch",
	"policies_min_reload_gap":   "policies.min_reload_gap",

	// Feature flags
	"flags_enabled":  "flags.enabled",
	"flags_disabled": "flags.disabled",

	// Graph store
	"store_backend":               "store.backend",
	"badger_path":                 "store.path",
	"store_seed_file":             "store.seed_file",
	"store_breaker_enabled":       "store.breaker.enabled",
	"store_breaker_timeout":       "store.breaker.timeout",
	"store_breaker_failure_ratio": "store.breaker.failure_ratio",

	// Decision cache
	"cache_capacity": "cache.capacity",

	// Telemetry
	"events_enabled":          "telemetry.events",
	"events_topic":            "telemetry.topic",
	"events_queue_size":       "telemetry.queue_size",
	"events_publish_previews": "telemetry.publish_previews",
	"nats_url":                "telemetry.nats_url",
	"nats_jetstream":          "telemetry.jetstream",
	"nats_embedded":           "telemetry.embedded.enabled",
	"nats_embedded_port":      "telemetry.embedded.port",
	"nats_store_dir":          "telemetry.embedded.store_dir",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - HTTP_PORT -> server.port
//   - LOG_LEVEL -> logging.level
//   - NAV_CACHE_TTL -> navigation.cache.ttl
//   - NATS_URL -> telemetry.nats_url
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	// Unmapped keys are dropped so unrelated environment variables never
	// leak into the configuration.
	return ""
}

// WatchConfigFile calls callback whenever the file at path changes.
// The caller is responsible for synchronizing any state the callback touches.
func WatchConfigFile(path string, callback func()) (stop func() error, err error) {
	provider := file.Provider(path)

	err = provider.Watch(func(event interface{}, err error) {
		if err != nil {
			return
		}
		callback()
	})
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}
	return provider.Unwatch, nil
}
