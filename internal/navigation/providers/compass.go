// Wayfinder - Navigation Transition Engine for Branching Narratives
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package providers

import (
	"context"
	"fmt"
	"slices"

	"github.com/tomtom215/wayfinder/internal/navigation"
)

// Compass returns nodes whose tags overlap the origin's, scored by Jaccard
// similarity. It has nothing to compare against on cold start.
type Compass struct {
	BaseProvider
}

// NewCompass creates a content-similarity provider.
func NewCompass(store navigation.GraphStore) *Compass {
	return &Compass{BaseProvider: NewBaseProvider(navigation.ProviderCompass, store)}
}

// Fetch implements navigation.Provider.
func (p *Compass) Fetch(ctx context.Context, req navigation.FetchRequest) ([]navigation.TransitionCandidate, error) {
	if req.Context.IsColdStart() {
		return nil, nil
	}

	ids, err := p.store.QuerySimilar(ctx, req.Context.OriginNodeID, req.K)
	if err != nil {
		return nil, fmt.Errorf("query similar: %w", err)
	}
	ids = dedupe(ids, req.Context.OriginNodeID)
	if len(ids) == 0 {
		return nil, nil
	}

	if err := p.withhold(len(ids), req.Mode.TagThreshold, navigation.BlockedBelowTagThreshold); err != nil {
		return nil, err
	}
	if err := ContextCancelled(ctx); err != nil {
		return nil, err
	}

	var originTags []string
	lookup := ids
	if req.Origin != nil {
		originTags = req.Origin.Tags
		if len(originTags) == 0 {
			lookup = append(slices.Clip(ids), req.Origin.ID)
		}
	}

	nodes, err := p.store.Nodes(ctx, lookup)
	if err != nil {
		return nil, fmt.Errorf("hydrate similar nodes: %w", err)
	}
	if len(originTags) == 0 && req.Origin != nil {
		originTags = nodes[req.Origin.ID].Tags
	}

	out := make([]navigation.TransitionCandidate, 0, len(ids))
	for _, id := range ids {
		c := p.candidate(id)
		c.Factors[navigation.FactorTagSimilarity] = navigation.Jaccard(originTags, nodes[id].Tags)
		out = append(out, c)
	}
	return out, nil
}
