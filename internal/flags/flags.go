// Wayfinder - Navigation Transition Engine for Branching Narratives
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

// Package flags provides the feature flag service consulted by the
// navigation router.
//
// Flags are loaded from configuration at startup and may be toggled at
// runtime. Unset flags report disabled from IsEnabled, while Lookup lets
// callers tell an unset flag from one that is explicitly off, which is what
// per-mode overrides such as "navigation.fallback_policy.lite" rely on.
package flags

import (
	"context"
	"sort"
	"sync"

	"github.com/tomtom215/wayfinder/internal/logging"
	"github.com/tomtom215/wayfinder/internal/navigation"
)

var (
	_ navigation.FlagService = (*Static)(nil)
	_ navigation.FlagLookup  = (*Static)(nil)
)

// Static is a map-backed flag service.
type Static struct {
	mu    sync.RWMutex
	flags map[string]bool
}

// NewStatic creates a flag service seeded with initial values.
// The map is copied.
func NewStatic(initial map[string]bool) *Static {
	s := &Static{flags: make(map[string]bool, len(initial))}
	for name, enabled := range initial {
		s.flags[name] = enabled
	}
	return s
}

// IsEnabled implements navigation.FlagService.
func (s *Static) IsEnabled(ctx context.Context, name string) bool {
	enabled, _ := s.Lookup(ctx, name)
	return enabled
}

// Lookup implements navigation.FlagLookup.
func (s *Static) Lookup(_ context.Context, name string) (enabled, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	enabled, ok = s.flags[name]
	return enabled, ok
}

// Set toggles a flag at runtime.
func (s *Static) Set(name string, enabled bool) {
	s.mu.Lock()
	prev, existed := s.flags[name]
	s.flags[name] = enabled
	s.mu.Unlock()

	if !existed || prev != enabled {
		logging.Info().Str("flag", name).Bool("enabled", enabled).Msg("Feature flag updated")
	}
}

// Unset removes a flag so that lookups fall through to defaults.
func (s *Static) Unset(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.flags, name)
}

// Snapshot returns a copy of all flags.
func (s *Static) Snapshot() map[string]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]bool, len(s.flags))
	for k, v := range s.flags {
		out[k] = v
	}
	return out
}

// Names returns the configured flag names in sorted order.
func (s *Static) Names() []string {
	s.mu.RLock()
	names := make([]string, 0, len(s.flags))
	for k := range s.flags {
		names = append(names, k)
	}
	s.mu.RUnlock()
	sort.Strings(names)
	return names
}
