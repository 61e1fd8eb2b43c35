// Wayfinder - Navigation Transition Engine for Branching Narratives
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package navigation

import (
	"context"
	"time"
)

// Note: This package depends on no other internal package. Collaborators are
// consumed through the interfaces below and wired in cmd/server.

// GraphStore is the node graph the providers and the router read from.
type GraphStore interface {
	// OutgoingEdges returns the authored edges leaving nodeID.
	OutgoingEdges(ctx context.Context, nodeID string) ([]Edge, error)

	// QuerySimilar returns up to k node IDs similar to nodeID, most similar first.
	QuerySimilar(ctx context.Context, nodeID string, k int) ([]string, error)

	// QueryPopular returns up to k node IDs most traversed from nodeID, or
	// most visited within the tenant when nodeID is empty.
	QueryPopular(ctx context.Context, tenantID, nodeID string, k int) ([]string, error)

	// CuratedPicks returns editorially selected destinations for nodeID, or
	// the tenant-level picks when nodeID is empty.
	CuratedPicks(ctx context.Context, tenantID, nodeID string, k int) ([]string, error)

	// EligibleNodes returns up to limit node IDs of the tenant in a stable order.
	EligibleNodes(ctx context.Context, tenantID string, limit int) ([]string, error)

	// Nodes hydrates node metadata. Missing IDs are omitted from the result.
	Nodes(ctx context.Context, ids []string) (map[string]Node, error)

	// FallbackNode returns the designated emergency destination, or "" when none exists.
	FallbackNode(ctx context.Context, tenantID, originNodeID string) (string, error)
}

// FlagService answers feature flag queries.
type FlagService interface {
	IsEnabled(ctx context.Context, name string) bool
}

// FlagLookup is implemented by flag services that can tell an unset flag
// from a disabled one. It enables per-mode overrides.
type FlagLookup interface {
	Lookup(ctx context.Context, name string) (enabled, ok bool)
}

// TelemetrySink receives one record per decision.
type TelemetrySink interface {
	RecordDecision(ctx context.Context, t *DecisionTelemetry)
}

// DecisionCache memoizes production decisions for a short time.
// Concurrent writers may overwrite each other.
type DecisionCache interface {
	Get(ctx context.Context, key string) (*TransitionDecision, bool)
	Set(ctx context.Context, key string, d *TransitionDecision, ttl time.Duration)
}

type nopSink struct{}

func (nopSink) RecordDecision(context.Context, *DecisionTelemetry) {}

type staticFlags bool

func (f staticFlags) IsEnabled(context.Context, string) bool { return bool(f) }
