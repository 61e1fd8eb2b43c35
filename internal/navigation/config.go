// Wayfinder - Navigation Transition Engine for Branching Narratives
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package navigation

import (
	"fmt"
	"time"
)

// DefaultFallbackFlag is the feature flag gating emergency fallback selection.
const DefaultFallbackFlag = "navigation.fallback_policy"

// Config contains the process-wide engine configuration.
// Per-mode tuning lives in ModeConfig.
type Config struct {
	// Weights are the base factor weights used by every mode without an override.
	Weights FactorWeights `json:"weights" koanf:"weights"`

	// Scoring holds fixed scoring constants.
	Scoring ScoringConfig `json:"scoring" koanf:"scoring"`

	// Limits contains operational limits.
	Limits LimitsConfig `json:"limits" koanf:"limits"`

	// Budget supplies defaults for zero RoutingBudget fields.
	Budget BudgetConfig `json:"budget" koanf:"budget"`

	// Cache controls decision memoization.
	Cache CacheConfig `json:"cache" koanf:"cache"`

	// History controls the debug decision ring buffer.
	History HistoryConfig `json:"history" koanf:"history"`

	// Fallback controls emergency selection.
	Fallback FallbackConfig `json:"fallback" koanf:"fallback"`
}

// FactorWeights are the linear weights of the scoring factors.
type FactorWeights struct {
	Curated       float64 `json:"curated" koanf:"curated"`
	TagSimilarity float64 `json:"tag_similarity" koanf:"tag_similarity"`
	Echo          float64 `json:"echo" koanf:"echo"`
	Freshness     float64 `json:"freshness" koanf:"freshness"`
	Diversity     float64 `json:"diversity" koanf:"diversity"`
}

// Validate rejects negative weights and an all-zero weight vector.
func (w FactorWeights) Validate() error {
	vals := []struct {
		name string
		v    float64
	}{
		{"curated", w.Curated},
		{"tag_similarity", w.TagSimilarity},
		{"echo", w.Echo},
		{"freshness", w.Freshness},
		{"diversity", w.Diversity},
	}
	total := 0.0
	for _, f := range vals {
		if f.v < 0 {
			return fmt.Errorf("weights.%s must be non-negative, got %f", f.name, f.v)
		}
		total += f.v
	}
	if total == 0 {
		return fmt.Errorf("weights must not all be zero")
	}
	return nil
}

// ScoringConfig holds fixed scoring constants.
type ScoringConfig struct {
	// ManualScore is the fixed score given to authored edges.
	ManualScore float64 `json:"manual_score" koanf:"manual_score"`

	// FreshnessHalfLife is the age at which the freshness factor halves.
	FreshnessHalfLife time.Duration `json:"freshness_half_life" koanf:"freshness_half_life"`
}

// LimitsConfig contains operational limits.
type LimitsConfig struct {
	// MaxPoolSize caps the ranked pool after sorting.
	MaxPoolSize int `json:"max_pool_size" koanf:"max_pool_size"`

	// MaxK caps the per-provider request size.
	MaxK int `json:"max_k" koanf:"max_k"`

	// MaxRouteWindow bounds how many recent nodes are considered.
	MaxRouteWindow int `json:"max_route_window" koanf:"max_route_window"`

	// MaxUISlots caps ui_slots_granted.
	MaxUISlots int `json:"max_ui_slots" koanf:"max_ui_slots"`

	// PrimaryBudgetShare is the fraction of max_time reserved for the primary
	// fan-out when a fallback chain is present.
	PrimaryBudgetShare float64 `json:"primary_budget_share" koanf:"primary_budget_share"`

	// FallbackTimeout bounds the emergency fallback lookup.
	FallbackTimeout time.Duration `json:"fallback_timeout" koanf:"fallback_timeout"`

	// EligibleLimit caps the corpus read by the random provider.
	EligibleLimit int `json:"eligible_limit" koanf:"eligible_limit"`
}

// BudgetConfig supplies defaults for RoutingBudget.
type BudgetConfig struct {
	MaxTime    time.Duration `json:"max_time" koanf:"max_time"`
	MaxQueries int           `json:"max_queries" koanf:"max_queries"`
	MaxFilters int           `json:"max_filters" koanf:"max_filters"`
}

// CacheConfig controls decision memoization.
type CacheConfig struct {
	Enabled bool          `json:"enabled" koanf:"enabled"`
	TTL     time.Duration `json:"ttl" koanf:"ttl"`
}

// HistoryConfig controls the debug decision ring buffer.
type HistoryConfig struct {
	Enabled bool `json:"enabled" koanf:"enabled"`
	Size    int  `json:"size" koanf:"size"`
}

// FallbackConfig controls emergency selection.
type FallbackConfig struct {
	// FlagName is the feature flag consulted before engaging fallback.
	// A mode override is looked up as FlagName + "." + mode.
	FlagName string `json:"flag_name" koanf:"flag_name"`

	// DefaultNodeID is used when the graph store designates no fallback node.
	DefaultNodeID string `json:"default_node_id" koanf:"default_node_id"`
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() *Config {
	return &Config{
		Weights: FactorWeights{
			Curated:       0.35,
			TagSimilarity: 0.25,
			Echo:          0.20,
			Freshness:     0.10,
			Diversity:     0.10,
		},
		Scoring: ScoringConfig{
			ManualScore:       2.0,
			FreshnessHalfLife: 30 * 24 * time.Hour,
		},
		Limits: LimitsConfig{
			MaxPoolSize:        64,
			MaxK:               50,
			MaxRouteWindow:     16,
			MaxUISlots:         3,
			PrimaryBudgetShare: 0.8,
			FallbackTimeout:    100 * time.Millisecond,
			EligibleLimit:      500,
		},
		Budget: BudgetConfig{
			MaxTime:    150 * time.Millisecond,
			MaxQueries: 8,
			MaxFilters: 2,
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     5 * time.Second,
		},
		History: HistoryConfig{
			Enabled: false,
			Size:    128,
		},
		Fallback: FallbackConfig{
			FlagName: DefaultFallbackFlag,
		},
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if err := c.Weights.Validate(); err != nil {
		return err
	}

	if c.Scoring.ManualScore <= 0 {
		return fmt.Errorf("scoring.manual_score must be positive, got %f", c.Scoring.ManualScore)
	}
	if c.Scoring.FreshnessHalfLife <= 0 {
		return fmt.Errorf("scoring.freshness_half_life must be positive, got %v", c.Scoring.FreshnessHalfLife)
	}

	if c.Limits.MaxPoolSize < 1 {
		return fmt.Errorf("limits.max_pool_size must be positive, got %d", c.Limits.MaxPoolSize)
	}
	if c.Limits.MaxK < 1 {
		return fmt.Errorf("limits.max_k must be positive, got %d", c.Limits.MaxK)
	}
	if c.Limits.MaxRouteWindow < 1 {
		return fmt.Errorf("limits.max_route_window must be positive, got %d", c.Limits.MaxRouteWindow)
	}
	if c.Limits.MaxUISlots < 1 {
		return fmt.Errorf("limits.max_ui_slots must be positive, got %d", c.Limits.MaxUISlots)
	}
	if c.Limits.PrimaryBudgetShare <= 0 || c.Limits.PrimaryBudgetShare > 1 {
		return fmt.Errorf("limits.primary_budget_share must be in (0, 1], got %f", c.Limits.PrimaryBudgetShare)
	}
	if c.Limits.FallbackTimeout <= 0 {
		return fmt.Errorf("limits.fallback_timeout must be positive, got %v", c.Limits.FallbackTimeout)
	}
	if c.Limits.EligibleLimit < 1 {
		return fmt.Errorf("limits.eligible_limit must be positive, got %d", c.Limits.EligibleLimit)
	}

	if c.Budget.MaxTime <= 0 {
		return fmt.Errorf("budget.max_time must be positive, got %v", c.Budget.MaxTime)
	}
	if c.Budget.MaxQueries < 1 {
		return fmt.Errorf("budget.max_queries must be positive, got %d", c.Budget.MaxQueries)
	}
	if c.Budget.MaxFilters < 0 {
		return fmt.Errorf("budget.max_filters must be non-negative, got %d", c.Budget.MaxFilters)
	}

	if c.Cache.Enabled && c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive when cache is enabled, got %v", c.Cache.TTL)
	}
	if c.History.Enabled && c.History.Size < 1 {
		return fmt.Errorf("history.size must be positive when history is enabled, got %d", c.History.Size)
	}
	if c.Fallback.FlagName == "" {
		return fmt.Errorf("fallback.flag_name must not be empty")
	}

	return nil
}

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}
