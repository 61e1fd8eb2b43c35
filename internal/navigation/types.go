// Wayfinder - Navigation Transition Engine for Branching Narratives
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package navigation

import (
	"fmt"
	"slices"
	"time"
)

// LimitState is the quota state reported by the caller's quota collaborator.
type LimitState string

const (
	LimitOK        LimitState = "ok"
	LimitNearLimit LimitState = "near_limit"
	LimitLimited   LimitState = "limited"
)

// Valid reports whether s is a known limit state. The empty value is treated as ok.
func (s LimitState) Valid() bool {
	switch s {
	case "", LimitOK, LimitNearLimit, LimitLimited:
		return true
	default:
		return false
	}
}

// TransitionContext describes a single "where next" request.
// It is treated as immutable once handed to the Router.
type TransitionContext struct {
	SessionID string `json:"session_id"`
	TenantID  string `json:"tenant_id"`

	// UserID is empty for anonymous travellers.
	UserID string `json:"user_id,omitempty"`

	// OriginNodeID is empty on cold start.
	OriginNodeID string `json:"origin_node_id,omitempty"`

	// RouteWindow lists recently visited node IDs, most recent last.
	RouteWindow []string `json:"route_window,omitempty"`

	LimitState       LimitState `json:"limit_state"`
	PremiumLevel     int        `json:"premium_level"`
	Mode             string     `json:"mode"`
	RequestedUISlots int        `json:"requested_ui_slots"`

	// PoliciesHash is the registry fingerprint the caller believes is active.
	PoliciesHash string `json:"policies_hash,omitempty"`

	// CacheSeed makes preview selection reproducible and keys the decision cache.
	CacheSeed string `json:"cache_seed,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// IsAnonymous reports whether the request has no user attached.
func (tc *TransitionContext) IsAnonymous() bool {
	return tc.UserID == ""
}

// IsColdStart reports whether the request has no origin node.
func (tc *TransitionContext) IsColdStart() bool {
	return tc.OriginNodeID == ""
}

// InRouteWindow reports whether nodeID was recently visited.
func (tc *TransitionContext) InRouteWindow(nodeID string) bool {
	return slices.Contains(tc.RouteWindow, nodeID)
}

// Validate checks the fields the engine depends on.
// Failures wrap ErrInvalidContext.
func (tc *TransitionContext) Validate() error {
	if tc.SessionID == "" {
		return fmt.Errorf("%w: session_id is required", ErrInvalidContext)
	}
	if tc.TenantID == "" {
		return fmt.Errorf("%w: tenant_id is required", ErrInvalidContext)
	}
	if tc.Mode == "" {
		return fmt.Errorf("%w: mode is required", ErrInvalidContext)
	}
	if !tc.LimitState.Valid() {
		return fmt.Errorf("%w: unknown limit_state %q", ErrInvalidContext, tc.LimitState)
	}
	if tc.PremiumLevel < 0 {
		return fmt.Errorf("%w: premium_level must be non-negative, got %d", ErrInvalidContext, tc.PremiumLevel)
	}
	if tc.RequestedUISlots < 0 {
		return fmt.Errorf("%w: requested_ui_slots must be non-negative, got %d", ErrInvalidContext, tc.RequestedUISlots)
	}
	for i, id := range tc.RouteWindow {
		if id == "" {
			return fmt.Errorf("%w: route_window[%d] is empty", ErrInvalidContext, i)
		}
	}
	return nil
}

// Candidate factor names.
const (
	FactorManual         = "manual"
	FactorCurated        = "curated"
	FactorTagSimilarity  = "tag_similarity"
	FactorEchoWeight     = "echo_weight"
	FactorFreshness      = "freshness"
	FactorDiversityBonus = "diversity_bonus"
)

// TransitionCandidate is one possible destination produced by a provider.
type TransitionCandidate struct {
	NodeID   string `json:"node_id"`
	Provider string `json:"provider"`

	// Score is the raw weighted score before normalization.
	Score float64 `json:"score"`

	// Probability is the selection weight after softmax and epsilon mixing.
	Probability float64 `json:"probability"`

	// Rank is the 1-based position in the ranked pool.
	Rank int `json:"rank"`

	Factors map[string]float64 `json:"factors,omitempty"`
	Badge   string             `json:"badge,omitempty"`
	Explain string             `json:"explain,omitempty"`

	// Condition carries a manual edge's traversal condition for the edge filter.
	Condition string `json:"condition,omitempty"`
}

func (c *TransitionCandidate) setFactor(name string, value float64) {
	if c.Factors == nil {
		c.Factors = make(map[string]float64, 6)
	}
	c.Factors[name] = value
}

// State is a step of the decision state machine.
type State string

const (
	StateStart         State = "start"
	StateFanOut        State = "fan_out"
	StateBlend         State = "blend"
	StateSelect        State = "select"
	StateDecision      State = "decision"
	StateFallbackCheck State = "fallback_check"
	StateTerminal      State = "terminal"
)

// TraceStep records one state transition.
type TraceStep struct {
	State  State  `json:"state"`
	Detail string `json:"detail,omitempty"`
}

// SamplingTrace records how the winner was drawn.
type SamplingTrace struct {
	Deterministic bool `json:"deterministic"`

	// SeedHash is the hex SHA-256 prefix of the cache seed (preview only).
	SeedHash   string  `json:"seed_hash,omitempty"`
	Draw       float64 `json:"draw"`
	WinnerRank int     `json:"winner_rank"`
}

// Empty pool reason codes.
const (
	ReasonNoProviders         = "no_providers"
	ReasonAllProvidersFailed  = "all_providers_failed"
	ReasonNoCandidates        = "no_candidates"
	ReasonAllFiltered         = "all_filtered"
	ReasonBudgetExhausted     = "budget_exhausted"
	ReasonFallbackUnavailable = "fallback_unavailable"
)

// Curated withholding reasons.
const (
	BlockedBelowAuthorThreshold = "below_author_threshold"
	BlockedBelowTagThreshold    = "below_tag_threshold"
)

// TransitionDecision is the complete output of one routing decision.
type TransitionDecision struct {
	ID      string            `json:"id"`
	Context TransitionContext `json:"context"`

	// Candidates is the entire ranked pool, not only the winner.
	Candidates []TransitionCandidate `json:"candidates"`

	// SelectedNodeID is empty only when the pool is empty and no fallback was used.
	SelectedNodeID string `json:"selected_node_id,omitempty"`

	UISlotsGranted int        `json:"ui_slots_granted"`
	LimitState     LimitState `json:"limit_state"`
	Mode           string     `json:"mode"`
	PoliciesHash   string     `json:"policies_hash"`
	PoolSize       int        `json:"pool_size"`
	Temperature    float64    `json:"temperature"`
	Epsilon        float64    `json:"epsilon"`

	EmptyPool            bool   `json:"empty_pool"`
	EmptyPoolReason      string `json:"empty_pool_reason,omitempty"`
	CuratedBlockedReason string `json:"curated_blocked_reason,omitempty"`
	ServedFromCache      bool   `json:"served_from_cache"`
	EmergencyUsed        bool   `json:"emergency_used"`
	Preview              bool   `json:"preview"`

	Telemetry map[string]float64 `json:"telemetry"`
	Trace     []TraceStep        `json:"trace"`
	Sampling  *SamplingTrace     `json:"sampling,omitempty"`
}

// HasSelection reports whether the decision names a destination.
func (d *TransitionDecision) HasSelection() bool {
	return d.SelectedNodeID != ""
}

// EmptyPoolError returns a non-nil error when the decision carries no
// destination because the pool was empty and fallback was not engaged.
func (d *TransitionDecision) EmptyPoolError() error {
	if !d.EmptyPool || d.EmergencyUsed {
		return nil
	}
	return &EmptyPoolError{Reason: d.EmptyPoolReason, Mode: d.Mode}
}

// Selected returns the winning candidate, if it is part of the pool.
func (d *TransitionDecision) Selected() (TransitionCandidate, bool) {
	for _, c := range d.Candidates {
		if c.NodeID == d.SelectedNodeID {
			return c, true
		}
	}
	return TransitionCandidate{}, false
}

func (d *TransitionDecision) step(state State, detail string) {
	d.Trace = append(d.Trace, TraceStep{State: state, Detail: detail})
}

// Clone returns a deep copy of the decision.
func (d *TransitionDecision) Clone() *TransitionDecision {
	if d == nil {
		return nil
	}
	out := *d
	out.Context.RouteWindow = slices.Clone(d.Context.RouteWindow)
	if d.Candidates != nil {
		out.Candidates = make([]TransitionCandidate, len(d.Candidates))
		for i, c := range d.Candidates {
			out.Candidates[i] = c
			if c.Factors != nil {
				out.Candidates[i].Factors = make(map[string]float64, len(c.Factors))
				for k, v := range c.Factors {
					out.Candidates[i].Factors[k] = v
				}
			}
		}
	}
	if d.Telemetry != nil {
		out.Telemetry = make(map[string]float64, len(d.Telemetry))
		for k, v := range d.Telemetry {
			out.Telemetry[k] = v
		}
	}
	out.Trace = slices.Clone(d.Trace)
	if d.Sampling != nil {
		s := *d.Sampling
		out.Sampling = &s
	}
	return &out
}

// RoutingBudget bounds the work a single decision may perform.
// Zero fields take the router's configured defaults.
type RoutingBudget struct {
	MaxTimeMS  int `json:"max_time_ms"`
	MaxQueries int `json:"max_queries"`

	// MaxFilters caps optional filters. A negative value disables them.
	MaxFilters int `json:"max_filters"`

	// FallbackChain lists providers consulted in order when the primary
	// fan-out leaves the pool empty.
	FallbackChain []string `json:"fallback_chain,omitempty"`
}

// MaxTime returns the time budget as a duration.
func (b RoutingBudget) MaxTime() time.Duration {
	return time.Duration(b.MaxTimeMS) * time.Millisecond
}

func (b RoutingBudget) withDefaults(def BudgetConfig) RoutingBudget {
	if b.MaxTimeMS <= 0 {
		b.MaxTimeMS = int(def.MaxTime / time.Millisecond)
	}
	if b.MaxQueries <= 0 {
		b.MaxQueries = def.MaxQueries
	}
	switch {
	case b.MaxFilters == 0:
		b.MaxFilters = def.MaxFilters
	case b.MaxFilters < 0:
		b.MaxFilters = 0
	}
	b.FallbackChain = slices.Clone(b.FallbackChain)
	return b
}

// Node is the content metadata the engine reads from the graph store.
type Node struct {
	ID           string    `json:"id"`
	TenantID     string    `json:"tenant_id"`
	QuestID      string    `json:"quest_id,omitempty"`
	Title        string    `json:"title,omitempty"`
	Tags         []string  `json:"tags,omitempty"`
	Author       string    `json:"author,omitempty"`
	PremiumLevel int       `json:"premium_level,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
	IsStart      bool      `json:"is_start,omitempty"`
}

// Edge is an authored link between two nodes.
type Edge struct {
	ToNodeID  string `json:"to_node_id"`
	Condition string `json:"condition,omitempty"`
	Label     string `json:"label,omitempty"`
}
