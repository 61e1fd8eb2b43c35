// Wayfinder - Navigation Transition Engine for Branching Narratives
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package config

import (
	"fmt"
	"slices"
	"time"

	"github.com/tomtom215/wayfinder/internal/validation"
)

// Rate limit bounds
const (
	maxRateLimitRequests = 100000
	minRateLimitWindow   = time.Second
	maxRateLimitWindow   = time.Hour
)

// Validate checks that the configuration is complete and consistent.
// Field-level rules come from validate tags; cross-field rules follow.
func (c *Config) Validate() error {
	if verr := validation.ValidateStruct(c); verr != nil {
		return verr
	}

	if err := c.Navigation.Validate(); err != nil {
		return fmt.Errorf("navigation: %w", err)
	}

	validators := []func() error{
		c.validateRateLimits,
		c.validateCORS,
		c.validateStore,
		c.validateTelemetry,
	}
	for _, validate := range validators {
		if err := validate(); err != nil {
			return err
		}
	}
	return nil
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

func (c *Config) validateRateLimits() error {
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs > maxRateLimitRequests {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be at most %d, got %d", maxRateLimitRequests, c.Security.RateLimitReqs)
	}
	if c.Security.RateLimitWindow < minRateLimitWindow || c.Security.RateLimitWindow > maxRateLimitWindow {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be between 1s and 1h, got %v", c.Security.RateLimitWindow)
	}
	return nil
}

// validateCORS rejects a wildcard origin in production.
func (c *Config) validateCORS() error {
	if c.IsProduction() && c.hasWildcardCORS() {
		return fmt.Errorf("CORS_ORIGINS=* (wildcard) is not allowed in production; " +
			"set specific origins, e.g. CORS_ORIGINS=https://play.example.com")
	}
	return nil
}

func (c *Config) hasWildcardCORS() bool {
	return slices.Contains(c.Security.CORSOrigins, "*")
}

// ShouldWarnAboutCORS returns true if the CORS configuration should be
// flagged at startup.
func (c *Config) ShouldWarnAboutCORS() bool {
	return c.hasWildcardCORS()
}

func (c *Config) validateStore() error {
	if c.Store.Backend == "memory" && c.Store.Path != "" {
		return fmt.Errorf("BADGER_PATH is set but STORE_BACKEND=memory; use STORE_BACKEND=badger")
	}
	if c.IsProduction() && c.Store.Backend == "memory" && c.Store.SeedFile == "" {
		return fmt.Errorf("STORE_BACKEND=memory without STORE_SEED_FILE serves an empty graph in production")
	}
	return nil
}

func (c *Config) validateTelemetry() error {
	t := c.Telemetry
	if !t.Events {
		return nil
	}
	if t.NATSURL != "" {
		if err := validateNATSURL(t.NATSURL); err != nil {
			return fmt.Errorf("NATS_URL is invalid: %w", err)
		}
		if t.Embedded.Enabled {
			return fmt.Errorf("NATS_URL and NATS_EMBEDDED are mutually exclusive")
		}
	}
	if t.Embedded.Enabled && t.JetStream && t.Embedded.StoreDir == "" {
		return fmt.Errorf("NATS_STORE_DIR is required for embedded JetStream")
	}
	return nil
}
