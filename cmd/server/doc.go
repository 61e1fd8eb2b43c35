// Wayfinder - Navigation Transition Engine for Branching Narratives
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

/*
Command server runs the Wayfinder navigation engine behind its HTTP API.

# Startup

Components are initialized in this order:

 1. Configuration: defaults, then config.yaml (or CONFIG_PATH), then
    environment variables (Koanf v2)
 2. Logging: zerolog with the configured level and format
 3. Graph store: memory or Badger, optionally seeded from a YAML file,
    with reads wrapped in a gobreaker circuit breaker
 4. Feature flags and the decision cache
 5. Telemetry: Prometheus always; decision events over an embedded NATS
    server, an external NATS server, or an in-process Watermill channel
 6. Mode registry from the policies file
 7. Navigation router and the chi HTTP router
 8. Supervisor tree: policy reloads, event publishing, HTTP server

# Signals

SIGINT and SIGTERM cancel the root context. The HTTP server drains for
server.shutdown_timeout, the event sink flushes its queue, and the embedded
NATS server stops last in its layer.

# Examples

Development with a seeded in-memory graph:

	export STORE_SEED_FILE=./seed.yaml
	export LOG_FORMAT=console
	./wayfinder

Badger storage, custom modes with file watching, events on NATS:

	export STORE_BACKEND=badger
	export BADGER_PATH=/data/graph
	export POLICIES_PATH=/etc/wayfinder/modes.yaml
	export POLICIES_WATCH=true
	export EVENTS_ENABLED=true
	export NATS_URL=nats://nats:4222
	./wayfinder

The API listens on port 8484 by default.
*/
package main
