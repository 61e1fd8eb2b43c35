// Wayfinder - Navigation Transition Engine for Branching Narratives
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package navigation

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"sort"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
)

// Built-in mode names.
const (
	ModeNormal    = "normal"
	ModeEchoBoost = "echo_boost"
	ModeDiscover  = "discover"
	ModeEditorial = "editorial"
	ModeNearLimit = "near_limit"
	ModeLite      = "lite"
)

// DiversityKind selects how route-window similarity decays with recency.
type DiversityKind string

const (
	// DiversityLinear weights the most recent visit fully and older visits
	// proportionally less.
	DiversityLinear DiversityKind = "linear"

	// DiversityStep weights every visit in the window equally.
	DiversityStep DiversityKind = "step"
)

// DiversityPolicy tunes the diversity bonus for a mode.
type DiversityPolicy struct {
	Kind DiversityKind `json:"kind" koanf:"kind"`

	// Weight scales the penalty, in [0, 1]. Zero disables the penalty.
	Weight float64 `json:"weight" koanf:"weight"`
}

// ModeConfig is one named bundle of provider selection and exploration
// parameters. Values are immutable once part of a Registry.
type ModeConfig struct {
	Name string `json:"name" koanf:"name"`

	// Providers is ordered; the order canonicalizes results and breaks ties.
	Providers []string `json:"providers" koanf:"providers"`

	KBase           int     `json:"k_base" koanf:"k_base"`
	Temperature     float64 `json:"temperature" koanf:"temperature"`
	Epsilon         float64 `json:"epsilon" koanf:"epsilon"`
	AuthorThreshold int     `json:"author_threshold" koanf:"author_threshold"`
	TagThreshold    int     `json:"tag_threshold" koanf:"tag_threshold"`
	AllowRandom     bool    `json:"allow_random" koanf:"allow_random"`
	CuratedBoost    float64 `json:"curated_boost" koanf:"curated_boost"`

	Diversity DiversityPolicy `json:"diversity" koanf:"diversity"`

	// Weights overrides the process-wide factor weights when set.
	Weights *FactorWeights `json:"weights,omitempty" koanf:"weights"`
}

// HasProvider reports whether the mode names the provider.
func (m *ModeConfig) HasProvider(name string) bool {
	return slices.Contains(m.Providers, name)
}

// Validate checks a single mode definition.
func (m *ModeConfig) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidMode)
	}
	seen := make(map[string]struct{}, len(m.Providers))
	for _, p := range m.Providers {
		if !IsKnownProvider(p) {
			return fmt.Errorf("%w: %s: %w %q", ErrInvalidMode, m.Name, ErrUnknownProvider, p)
		}
		if _, dup := seen[p]; dup {
			return fmt.Errorf("%w: %s: provider %q listed twice", ErrInvalidMode, m.Name, p)
		}
		seen[p] = struct{}{}
	}
	if m.KBase < 1 {
		return fmt.Errorf("%w: %s: k_base must be positive, got %d", ErrInvalidMode, m.Name, m.KBase)
	}
	if m.Temperature < 0 {
		return fmt.Errorf("%w: %s: temperature must be non-negative, got %f", ErrInvalidMode, m.Name, m.Temperature)
	}
	if m.Epsilon < 0 || m.Epsilon > 1 {
		return fmt.Errorf("%w: %s: epsilon must be in [0, 1], got %f", ErrInvalidMode, m.Name, m.Epsilon)
	}
	if m.AuthorThreshold < 0 || m.TagThreshold < 0 {
		return fmt.Errorf("%w: %s: thresholds must be non-negative", ErrInvalidMode, m.Name)
	}
	if m.CuratedBoost < 0 {
		return fmt.Errorf("%w: %s: curated_boost must be non-negative, got %f", ErrInvalidMode, m.Name, m.CuratedBoost)
	}
	switch m.Diversity.Kind {
	case DiversityLinear, DiversityStep:
	default:
		return fmt.Errorf("%w: %s: unknown diversity kind %q", ErrInvalidMode, m.Name, m.Diversity.Kind)
	}
	if m.Diversity.Weight < 0 || m.Diversity.Weight > 1 {
		return fmt.Errorf("%w: %s: diversity.weight must be in [0, 1], got %f", ErrInvalidMode, m.Name, m.Diversity.Weight)
	}
	if m.Weights != nil {
		if err := m.Weights.Validate(); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidMode, m.Name, err)
		}
	}
	return nil
}

// Clone returns a deep copy.
func (m *ModeConfig) Clone() ModeConfig {
	out := *m
	out.Providers = slices.Clone(m.Providers)
	if m.Weights != nil {
		w := *m.Weights
		out.Weights = &w
	}
	return out
}

// DefaultModes returns the built-in mode table.
func DefaultModes() []ModeConfig {
	return []ModeConfig{
		{
			Name:            ModeNormal,
			Providers:       []string{ProviderManual, ProviderCurated, ProviderCompass, ProviderEcho, ProviderRandom},
			KBase:           8,
			Temperature:     1.0,
			Epsilon:         0.05,
			AuthorThreshold: 2,
			TagThreshold:    2,
			AllowRandom:     true,
			CuratedBoost:    1.2,
			Diversity:       DiversityPolicy{Kind: DiversityLinear, Weight: 1.0},
		},
		{
			Name:            ModeEchoBoost,
			Providers:       []string{ProviderManual, ProviderEcho, ProviderCurated, ProviderCompass},
			KBase:           10,
			Temperature:     0.8,
			Epsilon:         0.05,
			AuthorThreshold: 2,
			TagThreshold:    2,
			CuratedBoost:    1.0,
			Diversity:       DiversityPolicy{Kind: DiversityLinear, Weight: 0.8},
			Weights: &FactorWeights{
				Curated:       0.25,
				TagSimilarity: 0.15,
				Echo:          0.40,
				Freshness:     0.10,
				Diversity:     0.10,
			},
		},
		{
			Name:            ModeDiscover,
			Providers:       []string{ProviderCompass, ProviderEcho, ProviderRandom, ProviderCurated},
			KBase:           12,
			Temperature:     1.6,
			Epsilon:         0.15,
			AuthorThreshold: 1,
			TagThreshold:    1,
			AllowRandom:     true,
			CuratedBoost:    1.0,
			Diversity:       DiversityPolicy{Kind: DiversityStep, Weight: 1.0},
		},
		{
			Name:            ModeEditorial,
			Providers:       []string{ProviderManual, ProviderCurated},
			KBase:           6,
			Temperature:     0.5,
			Epsilon:         0.02,
			AuthorThreshold: 1,
			TagThreshold:    0,
			CuratedBoost:    1.5,
			Diversity:       DiversityPolicy{Kind: DiversityLinear, Weight: 0.5},
		},
		{
			Name:            ModeNearLimit,
			Providers:       []string{ProviderManual, ProviderCurated, ProviderCompass},
			KBase:           4,
			Temperature:     0.7,
			Epsilon:         0,
			AuthorThreshold: 1,
			TagThreshold:    1,
			CuratedBoost:    1.2,
			Diversity:       DiversityPolicy{Kind: DiversityStep, Weight: 0.5},
		},
		{
			Name:            ModeLite,
			Providers:       []string{ProviderCurated, ProviderCompass},
			KBase:           3,
			Temperature:     0.7,
			Epsilon:         0,
			AuthorThreshold: 1,
			TagThreshold:    1,
			CuratedBoost:    1.0,
			Diversity:       DiversityPolicy{Kind: DiversityStep, Weight: 0.5},
		},
	}
}

// Registry is an immutable, versioned table of modes.
// Hot reload replaces the whole Registry through a RegistryHolder.
type Registry struct {
	modes    map[string]ModeConfig
	order    []string
	hash     string
	loadedAt time.Time
}

// NewRegistry validates the modes and computes the policies hash.
func NewRegistry(modes []ModeConfig) (*Registry, error) {
	if len(modes) == 0 {
		return nil, &ConfigError{Err: fmt.Errorf("%w: registry needs at least one mode", ErrInvalidMode)}
	}

	r := &Registry{
		modes:    make(map[string]ModeConfig, len(modes)),
		order:    make([]string, 0, len(modes)),
		loadedAt: time.Now(),
	}
	for i := range modes {
		m := modes[i].Clone()
		if err := m.Validate(); err != nil {
			return nil, &ConfigError{Mode: m.Name, Err: err}
		}
		if _, dup := r.modes[m.Name]; dup {
			return nil, &ConfigError{Mode: m.Name, Err: fmt.Errorf("%w: duplicate mode", ErrInvalidMode)}
		}
		r.modes[m.Name] = m
		r.order = append(r.order, m.Name)
	}

	hash, err := policiesHash(r.modes)
	if err != nil {
		return nil, &ConfigError{Err: fmt.Errorf("hash policies: %w", err)}
	}
	r.hash = hash
	return r, nil
}

// DefaultRegistry returns a registry holding the built-in modes.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(DefaultModes())
	if err != nil {
		panic(fmt.Sprintf("navigation: built-in modes are invalid: %v", err))
	}
	return r
}

// Resolve returns the mode named name. Unknown modes yield a *ConfigError
// wrapping ErrUnknownMode.
func (r *Registry) Resolve(name string) (ModeConfig, error) {
	m, ok := r.modes[name]
	if !ok {
		return ModeConfig{}, &ConfigError{Mode: name, Err: ErrUnknownMode}
	}
	return m.Clone(), nil
}

// PoliciesHash returns the hex SHA-256 fingerprint of the mode table.
func (r *Registry) PoliciesHash() string {
	return r.hash
}

// LoadedAt returns when the registry was built.
func (r *Registry) LoadedAt() time.Time {
	return r.loadedAt
}

// Names returns mode names in definition order.
func (r *Registry) Names() []string {
	return slices.Clone(r.order)
}

// Modes returns copies of all modes in definition order.
func (r *Registry) Modes() []ModeConfig {
	out := make([]ModeConfig, 0, len(r.order))
	for _, name := range r.order {
		m := r.modes[name]
		out = append(out, m.Clone())
	}
	return out
}

// Len returns the number of modes.
func (r *Registry) Len() int {
	return len(r.modes)
}

// policiesHash fingerprints the modes sorted by name so definition order
// does not change the version.
func policiesHash(modes map[string]ModeConfig) (string, error) {
	names := make([]string, 0, len(modes))
	for name := range modes {
		names = append(names, name)
	}
	sort.Strings(names)

	ordered := make([]ModeConfig, 0, len(names))
	for _, name := range names {
		ordered = append(ordered, modes[name])
	}
	data, err := json.Marshal(ordered)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// RegistrySource yields the registry to use for the next decision.
type RegistrySource interface {
	Current() *Registry
}

// RegistryHolder publishes the active Registry. Swaps are atomic and readers
// never observe a partially built registry.
type RegistryHolder struct {
	current atomic.Pointer[Registry]
}

// NewRegistryHolder returns a holder publishing r.
func NewRegistryHolder(r *Registry) *RegistryHolder {
	h := &RegistryHolder{}
	h.current.Store(r)
	return h
}

// Current returns the active registry.
func (h *RegistryHolder) Current() *Registry {
	return h.current.Load()
}

// Swap publishes next and reports whether the policies hash changed.
// A registry with the same hash is not swapped.
func (h *RegistryHolder) Swap(next *Registry) (previous *Registry, changed bool) {
	for {
		prev := h.current.Load()
		if prev != nil && prev.hash == next.hash {
			return prev, false
		}
		if h.current.CompareAndSwap(prev, next) {
			return prev, true
		}
	}
}
