// Wayfinder - Navigation Transition Engine for Branching Narratives
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package providers

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/tomtom215/wayfinder/internal/navigation"
)

// Random samples K nodes uniformly from the tenant corpus using the
// per-decision seed, so preview decisions stay reproducible.
type Random struct {
	BaseProvider
	eligibleLimit int
}

// NewRandom creates an exploration provider reading at most eligibleLimit nodes.
func NewRandom(store navigation.GraphStore, eligibleLimit int) *Random {
	if eligibleLimit < 1 {
		eligibleLimit = 500
	}
	return &Random{
		BaseProvider:  NewBaseProvider(navigation.ProviderRandom, store),
		eligibleLimit: eligibleLimit,
	}
}

// Fetch implements navigation.Provider.
func (p *Random) Fetch(ctx context.Context, req navigation.FetchRequest) ([]navigation.TransitionCandidate, error) {
	if !req.Mode.AllowRandom {
		return nil, nil
	}

	ids, err := p.store.EligibleNodes(ctx, req.Context.TenantID, p.eligibleLimit)
	if err != nil {
		return nil, fmt.Errorf("eligible nodes: %w", err)
	}
	ids = dedupe(ids, req.Context.OriginNodeID)

	k := min(req.K, len(ids))
	if k <= 0 {
		return nil, nil
	}

	// Partial Fisher-Yates over a copy; the store's slice stays untouched.
	pool := append([]string(nil), ids...)
	rng := rand.New(rand.NewPCG(req.Seed, req.Seed^0x9e3779b97f4a7c15)) //nolint:gosec // exploration, not security
	for i := 0; i < k; i++ {
		j := i + rng.IntN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}

	out := make([]navigation.TransitionCandidate, 0, k)
	for _, id := range pool[:k] {
		out = append(out, p.candidate(id))
	}
	return out, nil
}
