// Wayfinder - Navigation Transition Engine for Branching Narratives
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package navigation

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// Provider names. The set is closed.
const (
	ProviderManual  = "manual"
	ProviderCurated = "curated"
	ProviderCompass = "compass"
	ProviderEcho    = "echo"
	ProviderRandom  = "random"
)

var knownProviders = []string{ProviderManual, ProviderCurated, ProviderCompass, ProviderEcho, ProviderRandom}

// KnownProviders returns the closed provider set.
func KnownProviders() []string {
	return slices.Clone(knownProviders)
}

// IsKnownProvider reports whether name is part of the closed provider set.
func IsKnownProvider(name string) bool {
	return slices.Contains(knownProviders, name)
}

// FetchRequest is everything a provider may look at.
type FetchRequest struct {
	Context TransitionContext

	// Origin is the origin node; nil on cold start. Primary providers run
	// while the origin is still being hydrated and see its id only. Fallback
	// chain providers see the hydrated node when hydration finished in time.
	Origin *Node

	Mode ModeConfig

	// K is the number of candidates requested.
	K int

	// Seed is a per-provider seed derived from the decision PRNG seed.
	Seed uint64
}

// Provider generates candidate destinations.
//
// Implementations return a best-effort list. A failure is demoted to zero
// candidates by the router and recorded in telemetry; returning a
// *WithheldError marks a deliberate, non-failing abstention. Providers must
// return promptly once ctx is done.
type Provider interface {
	// Name returns one of the known provider names.
	Name() string

	// Fetch returns candidates for the request.
	Fetch(ctx context.Context, req FetchRequest) ([]TransitionCandidate, error)
}

// ProviderRegistry maps provider names to implementations.
type ProviderRegistry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewProviderRegistry creates a registry holding ps.
func NewProviderRegistry(ps ...Provider) (*ProviderRegistry, error) {
	r := &ProviderRegistry{providers: make(map[string]Provider, len(ps))}
	for _, p := range ps {
		if err := r.Register(p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds or replaces a provider. Names outside the closed set are rejected.
func (r *ProviderRegistry) Register(p Provider) error {
	if !IsKnownProvider(p.Name()) {
		return fmt.Errorf("%w %q", ErrUnknownProvider, p.Name())
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
	return nil
}

// Get returns the provider registered under name.
func (r *ProviderRegistry) Get(name string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	return p, ok
}

// Names returns registered provider names in canonical order.
func (r *ProviderRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for _, name := range knownProviders {
		if _, ok := r.providers[name]; ok {
			names = append(names, name)
		}
	}
	return names
}
