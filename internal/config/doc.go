// Wayfinder - Navigation Transition Engine for Branching Narratives
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

/*
Package config provides centralized configuration management for Wayfinder.

# Configuration Sources

Configuration is layered with Koanf v2, later layers overriding earlier ones:

 1. Built-in defaults (defaultConfig)
 2. A YAML file: CONFIG_PATH, else config.yaml / config.yml in the working
    directory, else /etc/wayfinder/config.yaml
 3. Environment variables listed in envMappings; anything else is ignored

# Configuration Structure

  - server: listen address, timeouts, environment
  - security: rate limiting, CORS origins, request body cap
  - logging: zerolog level, format, caller
  - navigation: engine weights, limits, budget defaults, cache, history, fallback
  - policies: mode registry file, reload interval, file watching
  - flags: feature flags enabled or disabled at startup
  - store: memory or badger graph store, seed file, circuit breaker
  - cache: decision cache capacity
  - telemetry: decision event stream, NATS connection or embedded server

# Environment Variables

	HTTP_PORT=8484
	LOG_LEVEL=debug
	POLICIES_PATH=/etc/wayfinder/modes.yaml
	STORE_BACKEND=badger
	BADGER_PATH=/data/graph
	FLAGS_ENABLED=navigation.fallback_policy,navigation.fallback_policy.discover
	EVENTS_ENABLED=true
	NATS_URL=nats://nats:4222

List values (CORS_ORIGINS, FLAGS_ENABLED, FLAGS_DISABLED) are comma-separated.

# Mode Policies

The mode registry lives in its own file so it can be reloaded without a
restart. See PolicySource for the layout.

	src := config.NewPolicySource(cfg.Policies)
	reg, err := src.Load()
*/
package config
