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

// Echo returns the destinations other travellers took most often from the
// origin, or the tenant's most visited nodes on cold start. The echo weight
// decays linearly with popularity rank.
type Echo struct {
	BaseProvider
}

// NewEcho creates a popularity provider.
func NewEcho(store navigation.GraphStore) *Echo {
	return &Echo{BaseProvider: NewBaseProvider(navigation.ProviderEcho, store)}
}

// Fetch implements navigation.Provider.
func (p *Echo) Fetch(ctx context.Context, req navigation.FetchRequest) ([]navigation.TransitionCandidate, error) {
	ids, err := p.store.QueryPopular(ctx, req.Context.TenantID, req.Context.OriginNodeID, req.K)
	if err != nil {
		return nil, fmt.Errorf("query popular: %w", err)
	}
	ids = dedupe(ids, req.Context.OriginNodeID)

	n := len(ids)
	out := make([]navigation.TransitionCandidate, 0, n)
	for rank, id := range ids {
		c := p.candidate(id)
		c.Factors[navigation.FactorEchoWeight] = float64(n-rank) / float64(n)
		out = append(out, c)
	}
	return out, nil
}
