// Wayfinder - Navigation Transition Engine for Branching Narratives
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

// Package providers implements the candidate providers consulted by the
// navigation router.
//
// Each provider implements navigation.Provider and reads from a
// navigation.GraphStore. Providers are stateless; all per-request state
// arrives in the navigation.FetchRequest.
//
// # Providers
//
//   - Manual: authored outgoing edges, fixed top score
//   - Curated: editorial picks, boosted by the mode's curated_boost
//   - Compass: tag-similar nodes scored by Jaccard overlap
//   - Echo: most traversed destinations, weighted by popularity rank
//   - Random: uniform sample of the tenant corpus, seeded per decision
//
// # Thread Safety
//
// All providers are safe for concurrent use.
package providers

import (
	"context"
	"fmt"

	"github.com/tomtom215/wayfinder/internal/navigation"
)

// Compile-time interface checks.
var (
	_ navigation.Provider = (*Manual)(nil)
	_ navigation.Provider = (*Curated)(nil)
	_ navigation.Provider = (*Compass)(nil)
	_ navigation.Provider = (*Echo)(nil)
	_ navigation.Provider = (*Random)(nil)
)

// BaseProvider holds what every provider shares.
type BaseProvider struct {
	name  string
	store navigation.GraphStore
}

// NewBaseProvider creates a base provider.
func NewBaseProvider(name string, store navigation.GraphStore) BaseProvider {
	return BaseProvider{name: name, store: store}
}

// Name returns the provider identifier.
func (b *BaseProvider) Name() string {
	return b.name
}

// candidate builds a candidate owned by this provider.
func (b *BaseProvider) candidate(nodeID string) navigation.TransitionCandidate {
	return navigation.TransitionCandidate{
		NodeID:   nodeID,
		Provider: b.name,
		Factors:  make(map[string]float64, 2),
	}
}

// withhold returns a WithheldError when count is below threshold.
// A zero threshold never withholds.
func (b *BaseProvider) withhold(count, threshold int, reason string) error {
	if threshold > 0 && count < threshold {
		return &navigation.WithheldError{Provider: b.name, Reason: reason, Count: count}
	}
	return nil
}

// ContextCancelled returns the context error if ctx is done.
func ContextCancelled(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// dedupe drops repeated and excluded IDs while keeping order.
func dedupe(ids []string, exclude string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if id == "" || id == exclude {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// NewDefaultRegistry registers every provider against store.
func NewDefaultRegistry(store navigation.GraphStore, eligibleLimit int) (*navigation.ProviderRegistry, error) {
	reg, err := navigation.NewProviderRegistry(
		NewManual(store),
		NewCurated(store),
		NewCompass(store),
		NewEcho(store),
		NewRandom(store, eligibleLimit),
	)
	if err != nil {
		return nil, fmt.Errorf("register providers: %w", err)
	}
	return reg, nil
}
