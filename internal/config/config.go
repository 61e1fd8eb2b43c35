// Wayfinder - Navigation Transition Engine for Branching Narratives
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package config

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/tomtom215/wayfinder/internal/logging"
	"github.com/tomtom215/wayfinder/internal/navigation"
)

// Config holds all application configuration loaded from defaults, an
// optional YAML file and environment variables.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in defaults for every setting
//  2. Config File: Optional YAML file (CONFIG_PATH or config.yaml)
//  3. Environment Variables: Override any mapped setting
//
// Config is immutable after Load() and safe for concurrent reads.
type Config struct {
	Server     ServerConfig      `koanf:"server"`
	Security   SecurityConfig    `koanf:"security"`
	Logging    logging.Config    `koanf:"logging"`
	Navigation navigation.Config `koanf:"navigation"`
	Policies   PoliciesConfig    `koanf:"policies"`
	Flags      FlagsConfig       `koanf:"flags"`
	Store      StoreConfig       `koanf:"store"`
	Cache      CacheConfig       `koanf:"cache"`
	Telemetry  TelemetryConfig   `koanf:"telemetry"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	Host            string        `koanf:"host"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gt=0"`
	IdleTimeout     time.Duration `koanf:"idle_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`

	// Environment is development, staging or production.
	Environment string `koanf:"environment" validate:"oneof=development staging production"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// SecurityConfig holds request admission settings.
type SecurityConfig struct {
	RateLimitReqs     int           `koanf:"rate_limit_reqs" validate:"min=1"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window" validate:"gt=0"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`

	// MaxBodyBytes caps JSON request bodies.
	MaxBodyBytes int64 `koanf:"max_body_bytes" validate:"min=1024"`
}

// PoliciesConfig locates the mode registry file and controls reloads.
type PoliciesConfig struct {
	// Path is the YAML mode file. Empty uses the built-in modes.
	Path string `koanf:"path"`

	// IncludeDefaults merges the built-in modes under the file's modes.
	IncludeDefaults bool `koanf:"include_defaults"`

	// ReloadInterval re-reads the file periodically. Zero disables polling.
	ReloadInterval time.Duration `koanf:"reload_interval" validate:"gte=0"`

	// Watch reloads when the file changes on disk.
	Watch bool `koanf:"watch"`

	// MinReloadGap throttles triggered reloads.
	MinReloadGap time.Duration `koanf:"min_reload_gap" validate:"gt=0"`
}

// FlagsConfig seeds the static feature flag service.
// Names may contain dots, so they are listed rather than keyed.
type FlagsConfig struct {
	Enabled  []string `koanf:"enabled"`
	Disabled []string `koanf:"disabled"`
}

// Map returns the flags as a name to state map. Disabled wins when a name
// appears in both lists.
func (f FlagsConfig) Map() map[string]bool {
	out := make(map[string]bool, len(f.Enabled)+len(f.Disabled))
	for _, name := range f.Enabled {
		out[name] = true
	}
	for _, name := range f.Disabled {
		out[name] = false
	}
	return out
}

// StoreConfig selects and tunes the graph store.
type StoreConfig struct {
	// Backend is memory or badger.
	Backend string `koanf:"backend" validate:"oneof=memory badger"`

	// Path is the badger directory. Empty runs badger in memory.
	Path string `koanf:"path"`

	// SeedFile is an optional YAML graph loaded at startup.
	SeedFile string `koanf:"seed_file"`

	Breaker BreakerConfig `koanf:"breaker"`
}

// BreakerConfig tunes the circuit breaker around the graph store.
type BreakerConfig struct {
	Enabled      bool          `koanf:"enabled"`
	MaxRequests  uint32        `koanf:"max_requests" validate:"min=1"`
	Interval     time.Duration `koanf:"interval" validate:"gte=0"`
	Timeout      time.Duration `koanf:"timeout" validate:"gt=0"`
	MinRequests  uint32        `koanf:"min_requests" validate:"min=1"`
	FailureRatio float64       `koanf:"failure_ratio" validate:"gt=0,lte=1"`
}

// CacheConfig sizes the decision cache. TTL and the on/off switch live in
// navigation.cache.
type CacheConfig struct {
	Capacity int `koanf:"capacity" validate:"gte=0"`
}

// TelemetryConfig controls decision event publishing.
type TelemetryConfig struct {
	// Events enables the decision event stream.
	Events bool `koanf:"events"`

	Topic           string        `koanf:"topic" validate:"required_if=Events true"`
	QueueSize       int           `koanf:"queue_size" validate:"min=1"`
	PublishPreviews bool          `koanf:"publish_previews"`
	BreakerFailures uint32        `koanf:"breaker_failures" validate:"min=1"`
	BreakerTimeout  time.Duration `koanf:"breaker_timeout" validate:"gt=0"`

	// NATSURL points at an external NATS server. Empty keeps events in
	// process unless the embedded server is enabled.
	NATSURL string `koanf:"nats_url"`

	JetStream bool `koanf:"jetstream"`

	Embedded EmbeddedNATSConfig `koanf:"embedded"`
}

// EmbeddedNATSConfig runs a NATS server inside the process.
type EmbeddedNATSConfig struct {
	Enabled   bool   `koanf:"enabled"`
	Host      string `koanf:"host"`
	Port      int    `koanf:"port" validate:"min=-1,max=65535"`
	StoreDir  string `koanf:"store_dir"`
	MaxMemory int64  `koanf:"max_memory" validate:"gte=0"`
	MaxStore  int64  `koanf:"max_store" validate:"gte=0"`
}

// String renders the parts of the configuration worth logging at startup.
func (c *Config) String() string {
	return fmt.Sprintf("server=%s store=%s policies=%q events=%t nats=%q",
		c.Server.Addr(), c.Store.Backend, c.Policies.Path, c.Telemetry.Events, c.Telemetry.NATSURL)
}
