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

// Curated returns editorial picks. The contribution is withheld when fewer
// picks exist than the mode's author or tag threshold.
type Curated struct {
	BaseProvider
}

// NewCurated creates a curated picks provider.
func NewCurated(store navigation.GraphStore) *Curated {
	return &Curated{BaseProvider: NewBaseProvider(navigation.ProviderCurated, store)}
}

// Fetch implements navigation.Provider.
func (p *Curated) Fetch(ctx context.Context, req navigation.FetchRequest) ([]navigation.TransitionCandidate, error) {
	ids, err := p.store.CuratedPicks(ctx, req.Context.TenantID, req.Context.OriginNodeID, req.K)
	if err != nil {
		return nil, fmt.Errorf("curated picks: %w", err)
	}
	ids = dedupe(ids, req.Context.OriginNodeID)

	if err := p.withhold(len(ids), req.Mode.AuthorThreshold, navigation.BlockedBelowAuthorThreshold); err != nil {
		return nil, err
	}
	if err := p.withhold(len(ids), req.Mode.TagThreshold, navigation.BlockedBelowTagThreshold); err != nil {
		return nil, err
	}

	out := make([]navigation.TransitionCandidate, 0, len(ids))
	for _, id := range ids {
		c := p.candidate(id)
		c.Factors[navigation.FactorCurated] = 1
		out = append(out, c)
	}
	return out, nil
}
