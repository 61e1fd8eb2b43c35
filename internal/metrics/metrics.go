// Wayfinder - Navigation Transition Engine for Branching Narratives
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Navigation Decision Metrics
	NavigationDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "navigation_decisions_total",
			Help: "Total navigation decisions by mode and result",
		},
		[]string{"mode", "result"}, // result: selected, fallback, empty, cached
	)

	NavigationDecisionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "navigation_decision_duration_seconds",
			Help:    "Wall-clock time to produce a navigation decision",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.15, 0.25, 0.5},
		},
		[]string{"mode"},
	)

	NavigationPoolSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "navigation_pool_size",
			Help:    "Number of ranked candidates per decision",
			Buckets: []float64{0, 1, 2, 4, 8, 16, 32, 64},
		},
		[]string{"mode"},
	)

	NavigationProviderOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "navigation_provider_outcomes_total",
			Help: "Provider call outcomes (hit, miss, error, timeout, withheld, skipped_budget, disabled, unavailable)",
		},
		[]string{"provider", "outcome"},
	)

	NavigationProviderLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "navigation_provider_latency_seconds",
			Help:    "Latency of dispatched provider calls",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.15},
		},
		[]string{"provider"},
	)

	NavigationBudgetExceeded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "navigation_budget_exceeded_total",
			Help: "Decisions where a provider timed out or was skipped for budget",
		},
		[]string{"mode"},
	)

	NavigationEmptyPools = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "navigation_empty_pools_total",
			Help: "Decisions that ended with an empty candidate pool, by reason",
		},
		[]string{"reason"},
	)

	NavigationPolicyMismatch = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "navigation_policy_mismatch_total",
			Help: "Requests that carried a stale policies hash",
		},
	)

	// Policy Registry Metrics
	PolicyReloads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "navigation_policy_reloads_total",
			Help: "Policy reload attempts by result (swapped, unchanged, failed, throttled)",
		},
		[]string{"result"},
	)

	PolicyModes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "navigation_policy_modes",
			Help: "Number of modes in the active registry",
		},
	)

	PolicyLastReload = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "navigation_policy_last_reload_timestamp",
			Help: "Unix timestamp of the last registry swap",
		},
	)

	// Graph Store Metrics
	GraphStoreDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "graphstore_operation_duration_seconds",
			Help:    "Duration of graph store operations",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		},
		[]string{"operation"},
	)

	GraphStoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphstore_operation_errors_total",
			Help: "Graph store operation failures",
		},
		[]string{"operation"},
	)

	// Decision Cache Metrics
	DecisionCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "decision_cache_hits_total",
			Help: "Total number of decision cache hits",
		},
	)

	DecisionCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "decision_cache_misses_total",
			Help: "Total number of decision cache misses",
		},
	)

	// Telemetry Event Metrics
	TelemetryEventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telemetry_events_published_total",
			Help: "Decision events handed to the message publisher",
		},
		[]string{"result"}, // success, error, dropped
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)
)

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordDecision records one navigation decision.
func RecordDecision(mode, result string, poolSize int, duration time.Duration) {
	NavigationDecisions.WithLabelValues(mode, result).Inc()
	NavigationDecisionDuration.WithLabelValues(mode).Observe(duration.Seconds())
	NavigationPoolSize.WithLabelValues(mode).Observe(float64(poolSize))
}

// RecordProviderOutcome records one provider slot of a decision. Latency is
// only observed for dispatched calls.
func RecordProviderOutcome(provider, outcome string, latency time.Duration, dispatched bool) {
	NavigationProviderOutcomes.WithLabelValues(provider, outcome).Inc()
	if dispatched {
		NavigationProviderLatency.WithLabelValues(provider).Observe(latency.Seconds())
	}
}

// RecordPolicyReload records a reload attempt and, on swap, the new registry size.
func RecordPolicyReload(result string, modes int) {
	PolicyReloads.WithLabelValues(result).Inc()
	if result == "swapped" {
		PolicyModes.Set(float64(modes))
		PolicyLastReload.Set(float64(time.Now().Unix()))
	}
}

// RecordStoreOperation records a graph store call.
func RecordStoreOperation(operation string, duration time.Duration, err error) {
	GraphStoreDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		GraphStoreErrors.WithLabelValues(operation).Inc()
	}
}

// RecordEventPublish records a telemetry event publish.
func RecordEventPublish(err error) {
	if err != nil {
		TelemetryEventsPublished.WithLabelValues("error").Inc()
		return
	}
	TelemetryEventsPublished.WithLabelValues("success").Inc()
}
