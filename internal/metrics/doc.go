// Wayfinder - Navigation Transition Engine for Branching Narratives
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

/*
Package metrics provides Prometheus metrics collection and export for observability.

All collectors are registered with the default registry through promauto and
exposed at /metrics in Prometheus text format:

	curl http://localhost:8087/metrics

# Available Metrics

API Metrics:
  - api_requests_total: Total API requests (counter)
    Labels: method, endpoint, status_code
  - api_request_duration_seconds: Request latency (histogram)
  - api_active_requests: In-flight requests (gauge)
  - api_rate_limit_hits_total: Rate limit rejections (counter)

Navigation Metrics:
  - navigation_decisions_total: Decisions by mode and result (counter)
  - navigation_decision_duration_seconds: Decision latency (histogram)
  - navigation_pool_size: Ranked pool size (histogram)
  - navigation_provider_outcomes_total: Provider outcomes (counter)
  - navigation_provider_latency_seconds: Provider latency (histogram)
  - navigation_budget_exceeded_total: Budget overruns by mode (counter)
  - navigation_empty_pools_total: Empty pools by reason (counter)
  - navigation_policy_mismatch_total: Stale policies hash requests (counter)

Policy Metrics:
  - navigation_policy_reloads_total: Reload attempts by result (counter)
  - navigation_policy_modes: Modes in the active registry (gauge)
  - navigation_policy_last_reload_timestamp: Last swap time (gauge)

Graph Store Metrics:
  - graphstore_operation_duration_seconds (histogram)
  - graphstore_operation_errors_total (counter)

Circuit Breaker Metrics:
  - circuit_breaker_state: 0=closed, 1=half-open, 2=open (gauge)
  - circuit_breaker_requests_total: Requests by result (counter)
  - circuit_breaker_consecutive_failures (gauge)
  - circuit_breaker_state_transitions_total (counter)

# Thread Safety

All metric operations are thread-safe. Prometheus collectors handle
concurrent access internally.
*/
package metrics
