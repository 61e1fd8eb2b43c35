// Wayfinder - Navigation Transition Engine for Branching Narratives
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package telemetry

import (
	"context"

	"github.com/tomtom215/wayfinder/internal/metrics"
	"github.com/tomtom215/wayfinder/internal/navigation"
)

// Decision result labels for navigation_decisions_total.
const (
	ResultSelected = "selected"
	ResultFallback = "fallback"
	ResultEmpty    = "empty"
	ResultCached   = "cached"
	ResultPreview  = "preview"
)

// PrometheusSink records decision telemetry as Prometheus metrics.
type PrometheusSink struct{}

// NewPrometheusSink creates a metrics sink.
func NewPrometheusSink() *PrometheusSink {
	return &PrometheusSink{}
}

// RecordDecision implements navigation.TelemetrySink.
func (PrometheusSink) RecordDecision(_ context.Context, t *navigation.DecisionTelemetry) {
	if t == nil {
		return
	}

	metrics.RecordDecision(t.Mode, Result(t), t.PoolSize, t.Duration)

	// A cache hit replays a stored decision; its providers were not called.
	if !t.CacheHit {
		for _, p := range t.Providers {
			metrics.RecordProviderOutcome(p.Provider, string(p.Outcome), p.Latency, p.Outcome.Dispatched())
		}
	}
	if t.BudgetExceeded {
		metrics.NavigationBudgetExceeded.WithLabelValues(t.Mode).Inc()
	}
	if t.EmptyPool && t.EmptyPoolReason != "" {
		metrics.NavigationEmptyPools.WithLabelValues(t.EmptyPoolReason).Inc()
	}
	if t.PolicyMismatch {
		metrics.NavigationPolicyMismatch.Inc()
	}
}

// Result classifies a decision for the result label.
func Result(t *navigation.DecisionTelemetry) string {
	switch {
	case t.Preview:
		return ResultPreview
	case t.CacheHit:
		return ResultCached
	case t.FallbackUsed:
		return ResultFallback
	case t.SelectedNodeID == "":
		return ResultEmpty
	default:
		return ResultSelected
	}
}
