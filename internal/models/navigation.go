// Wayfinder - Navigation Transition Engine for Branching Narratives
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package models

import (
	"time"

	"github.com/tomtom215/wayfinder/internal/navigation"
)

// TransitionContextRequest is the wire form of a transition context.
// Field rules mirror what the engine accepts so bad input is rejected with
// field-level detail before it reaches the router.
type TransitionContextRequest struct {
	SessionID        string   `json:"session_id" validate:"required,nodeid"`
	TenantID         string   `json:"tenant_id" validate:"required,nodeid"`
	UserID           string   `json:"user_id,omitempty" validate:"omitempty,nodeid"`
	OriginNodeID     string   `json:"origin_node_id,omitempty" validate:"omitempty,nodeid"`
	RouteWindow      []string `json:"route_window,omitempty" validate:"max=256,dive,nodeid"`
	LimitState       string   `json:"limit_state,omitempty" validate:"omitempty,oneof=ok near_limit limited"`
	PremiumLevel     int      `json:"premium_level" validate:"min=0"`
	Mode             string   `json:"mode" validate:"required,modename"`
	RequestedUISlots int      `json:"requested_ui_slots" validate:"min=0,max=32"`
	PoliciesHash     string   `json:"policies_hash,omitempty" validate:"omitempty,hexadecimal,len=64"`
	CacheSeed        string   `json:"cache_seed,omitempty" validate:"max=256"`

	// CreatedAt pins the freshness reference time. When absent, next
	// requests use the server clock and previews leave it unset.
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// ToContext converts the request into an engine context. A caller-supplied
// created_at wins over now; a zero now leaves CreatedAt unset.
func (r *TransitionContextRequest) ToContext(now time.Time) navigation.TransitionContext {
	tc := navigation.TransitionContext{
		SessionID:        r.SessionID,
		TenantID:         r.TenantID,
		UserID:           r.UserID,
		OriginNodeID:     r.OriginNodeID,
		RouteWindow:      append([]string(nil), r.RouteWindow...),
		LimitState:       navigation.LimitState(r.LimitState),
		PremiumLevel:     r.PremiumLevel,
		Mode:             r.Mode,
		RequestedUISlots: r.RequestedUISlots,
		PoliciesHash:     r.PoliciesHash,
		CacheSeed:        r.CacheSeed,
		CreatedAt:        now,
	}
	if r.CreatedAt != nil {
		tc.CreatedAt = r.CreatedAt.UTC()
	}
	return tc
}

// BudgetRequest is the wire form of a routing budget. Zero fields take the
// engine defaults.
type BudgetRequest struct {
	MaxTimeMS     int      `json:"max_time_ms" validate:"min=0,max=10000"`
	MaxQueries    int      `json:"max_queries" validate:"min=0,max=64"`
	MaxFilters    int      `json:"max_filters" validate:"min=-1,max=64"`
	FallbackChain []string `json:"fallback_chain,omitempty" validate:"max=5,dive,oneof=manual curated compass echo random"`
}

// ToBudget converts the request into an engine budget.
func (r *BudgetRequest) ToBudget() navigation.RoutingBudget {
	return navigation.RoutingBudget{
		MaxTimeMS:     r.MaxTimeMS,
		MaxQueries:    r.MaxQueries,
		MaxFilters:    r.MaxFilters,
		FallbackChain: append([]string(nil), r.FallbackChain...),
	}
}

// DecisionRequest is the body of POST /navigation/next and /navigation/preview.
type DecisionRequest struct {
	Context TransitionContextRequest `json:"context" validate:"required"`
	Budget  BudgetRequest            `json:"budget"`
}

// TraversalRequest records that a traveller followed an edge.
type TraversalRequest struct {
	TenantID string `json:"tenant_id" validate:"required,nodeid"`
	From     string `json:"from,omitempty" validate:"omitempty,nodeid"`
	To       string `json:"to" validate:"required,nodeid,nefield=From"`
}

// ModesResponse lists the active registry.
type ModesResponse struct {
	PoliciesHash string                  `json:"policies_hash"`
	LoadedAt     time.Time               `json:"loaded_at"`
	Modes        []navigation.ModeConfig `json:"modes"`
}

// NewModesResponse snapshots reg.
func NewModesResponse(reg *navigation.Registry) ModesResponse {
	return ModesResponse{
		PoliciesHash: reg.PoliciesHash(),
		LoadedAt:     reg.LoadedAt(),
		Modes:        reg.Modes(),
	}
}

// ReloadResult reports the outcome of a policy reload.
type ReloadResult struct {
	// Changed is true when the new registry replaced the old one.
	Changed bool `json:"changed"`

	// Throttled is true when the request arrived inside the minimum gap
	// and no load was attempted.
	Throttled bool `json:"throttled"`

	PoliciesHash string    `json:"policies_hash"`
	Modes        int       `json:"modes"`
	ReloadedAt   time.Time `json:"reloaded_at"`
}

// HistoryResponse lists recent decisions, newest last.
type HistoryResponse struct {
	Capacity  int                              `json:"capacity"`
	Decisions []*navigation.TransitionDecision `json:"decisions"`
}

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status        string            `json:"status"`
	Version       string            `json:"version"`
	Uptime        float64           `json:"uptime_seconds"`
	PoliciesHash  string            `json:"policies_hash"`
	Modes         int               `json:"modes"`
	Router        navigation.Stats  `json:"router"`
	Checks        map[string]string `json:"checks,omitempty"`
	LastReloadErr string            `json:"last_reload_error,omitempty"`
}
