// Wayfinder - Navigation Transition Engine for Branching Narratives
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package providers

import (
	"context"
	"fmt"

	"github.com/tomtom215/wayfinder/internal/navigation"
)

// Manual returns the authored edges leaving the origin node. It is capped by
// the number of edges, not by K, and its candidates bypass scoring.
type Manual struct {
	BaseProvider
}

// NewManual creates a manual edge provider.
func NewManual(store navigation.GraphStore) *Manual {
	return &Manual{BaseProvider: NewBaseProvider(navigation.ProviderManual, store)}
}

// Fetch implements navigation.Provider.
func (m *Manual) Fetch(ctx context.Context, req navigation.FetchRequest) ([]navigation.TransitionCandidate, error) {
	if req.Context.IsColdStart() {
		return nil, nil
	}

	edges, err := m.store.OutgoingEdges(ctx, req.Context.OriginNodeID)
	if err != nil {
		return nil, fmt.Errorf("outgoing edges: %w", err)
	}

	seen := make(map[string]struct{}, len(edges))
	out := make([]navigation.TransitionCandidate, 0, len(edges))
	for _, e := range edges {
		if e.ToNodeID == "" {
			continue
		}
		if _, dup := seen[e.ToNodeID]; dup {
			continue
		}
		seen[e.ToNodeID] = struct{}{}

		c := m.candidate(e.ToNodeID)
		c.Factors[navigation.FactorManual] = 1
		c.Condition = e.Condition
		c.Explain = e.Label
		out = append(out, c)
	}
	return out, nil
}
