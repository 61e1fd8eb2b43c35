// Wayfinder - Navigation Transition Engine for Branching Narratives
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package navigation

import "time"

// ProviderOutcome classifies what happened to one provider call.
type ProviderOutcome string

const (
	OutcomeHit         ProviderOutcome = "hit"
	OutcomeMiss        ProviderOutcome = "miss"
	OutcomeError       ProviderOutcome = "error"
	OutcomeTimeout     ProviderOutcome = "timeout"
	OutcomeWithheld    ProviderOutcome = "withheld"
	OutcomeSkipped     ProviderOutcome = "skipped_budget"
	OutcomeDisabled    ProviderOutcome = "disabled"
	OutcomeUnavailable ProviderOutcome = "unavailable"
)

// Dispatched reports whether the outcome consumed a query.
func (o ProviderOutcome) Dispatched() bool {
	switch o {
	case OutcomeHit, OutcomeMiss, OutcomeError, OutcomeTimeout, OutcomeWithheld:
		return true
	default:
		return false
	}
}

// failed reports whether the provider produced nothing because of a fault.
func (o ProviderOutcome) failed() bool {
	return o == OutcomeError || o == OutcomeTimeout
}

// ProviderTelemetry describes one provider within a decision.
type ProviderTelemetry struct {
	Provider   string          `json:"provider"`
	Outcome    ProviderOutcome `json:"outcome"`
	Candidates int             `json:"candidates"`
	Latency    time.Duration   `json:"latency"`
	Chain      bool            `json:"chain,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// DecisionTelemetry is emitted once per decision to the TelemetrySink.
type DecisionTelemetry struct {
	DecisionID   string `json:"decision_id"`
	TenantID     string `json:"tenant_id"`
	Mode         string `json:"mode"`
	PoliciesHash string `json:"policies_hash"`
	Preview      bool   `json:"preview"`

	PoolSize       int    `json:"pool_size"`
	SelectedNodeID string `json:"selected_node_id,omitempty"`

	Providers []ProviderTelemetry `json:"providers"`

	FallbackUsed     bool   `json:"fallback_used"`
	CacheHit         bool   `json:"cache_hit"`
	BudgetExceeded   bool   `json:"budget_exceeded"`
	FiltersTruncated bool   `json:"filters_truncated"`
	PolicyMismatch   bool   `json:"policy_mismatch"`
	EmptyPool        bool   `json:"empty_pool"`
	EmptyPoolReason  string `json:"empty_pool_reason,omitempty"`

	QueriesUsed    int `json:"queries_used"`
	FiltersApplied int `json:"filters_applied"`

	Duration   time.Duration `json:"duration"`
	RecordedAt time.Time     `json:"recorded_at"`
}

// Provider returns the telemetry entry for name.
func (t *DecisionTelemetry) Provider(name string) (ProviderTelemetry, bool) {
	for _, p := range t.Providers {
		if p.Provider == name {
			return p, true
		}
	}
	return ProviderTelemetry{}, false
}

// Metrics flattens the telemetry into the numeric map carried on the decision.
// Wall-clock latencies are omitted when includeLatency is false.
func (t *DecisionTelemetry) Metrics(includeLatency bool) map[string]float64 {
	m := map[string]float64{
		"pool_size":         float64(t.PoolSize),
		"fallback_used":     boolMetric(t.FallbackUsed),
		"cache_hit":         boolMetric(t.CacheHit),
		"budget_exceeded":   boolMetric(t.BudgetExceeded),
		"filters_truncated": boolMetric(t.FiltersTruncated),
		"policy_mismatch":   boolMetric(t.PolicyMismatch),
		"empty_pool":        boolMetric(t.EmptyPool),
		"queries_used":      float64(t.QueriesUsed),
		"filters_applied":   float64(t.FiltersApplied),
	}
	for _, p := range t.Providers {
		prefix := "provider." + p.Provider + "."
		m[prefix+"hit"] = boolMetric(p.Outcome == OutcomeHit)
		m[prefix+"candidates"] = float64(p.Candidates)
		if includeLatency && p.Outcome.Dispatched() {
			m[prefix+"latency_ms"] = float64(p.Latency.Microseconds()) / 1000
		}
	}
	if includeLatency {
		m["duration_ms"] = float64(t.Duration.Microseconds()) / 1000
	}
	return m
}

func boolMetric(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
