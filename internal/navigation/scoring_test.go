// Wayfinder - Navigation Transition Engine for Branching Narratives
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package navigation

import (
	"math"
	"testing"
	"time"
)

func TestJaccard(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b []string
		want float64
	}{
		{"both empty", nil, nil, 0},
		{"one empty", []string{"a"}, nil, 0},
		{"identical", []string{"a", "b"}, []string{"b", "a"}, 1},
		{"disjoint", []string{"a"}, []string{"b"}, 0},
		{"half", []string{"a", "b"}, []string{"b", "c", "a", "d"}, 0.5},
		{"duplicates ignored", []string{"a", "a"}, []string{"a", "a", "b"}, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Jaccard(tt.a, tt.b); math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("Jaccard(%v, %v) = %f, want %f", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestFreshness(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	half := 30 * 24 * time.Hour

	tests := []struct {
		name    string
		updated time.Time
		now     time.Time
		want    float64
	}{
		{"unknown update time", time.Time{}, now, neutralFactor},
		{"unknown request time", now, time.Time{}, neutralFactor},
		{"future update", now.Add(time.Hour), now, 1},
		{"one half-life", now.Add(-half), now, 0.5},
		{"two half-lives", now.Add(-2 * half), now, 0.25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := freshness(tt.updated, tt.now, half); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("freshness = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestDiversityBonus(t *testing.T) {
	t.Parallel()

	window := []Node{
		{ID: "old", Tags: []string{"forest"}},
		{ID: "recent", Tags: []string{"castle"}},
	}

	tests := []struct {
		name   string
		tags   []string
		policy DiversityPolicy
		want   float64
	}{
		{"no overlap", []string{"sea"}, DiversityPolicy{Kind: DiversityLinear, Weight: 1}, 1},
		{"matches recent linear", []string{"castle"}, DiversityPolicy{Kind: DiversityLinear, Weight: 1}, 0},
		{"matches old linear decays", []string{"forest"}, DiversityPolicy{Kind: DiversityLinear, Weight: 1}, 0.5},
		{"matches old step", []string{"forest"}, DiversityPolicy{Kind: DiversityStep, Weight: 1}, 0},
		{"weight scales penalty", []string{"castle"}, DiversityPolicy{Kind: DiversityStep, Weight: 0.5}, 0.5},
		{"zero weight", []string{"castle"}, DiversityPolicy{Kind: DiversityLinear}, 1},
		{"untagged candidate", nil, DiversityPolicy{Kind: DiversityLinear, Weight: 1}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := diversityBonus(tt.tags, window, tt.policy); math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("diversityBonus = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestWeightedScore(t *testing.T) {
	t.Parallel()

	w := FactorWeights{Curated: 0.4, TagSimilarity: 0.2, Echo: 0.2, Freshness: 0.1, Diversity: 0.1}
	f := map[string]float64{
		FactorCurated:        1,
		FactorTagSimilarity:  0.5,
		FactorEchoWeight:     0,
		FactorFreshness:      1,
		FactorDiversityBonus: 1,
	}
	want := 0.4*1*1.5 + 0.2*0.5 + 0.1 + 0.1
	if got := weightedScore(f, w, 1.5); math.Abs(got-want) > 1e-12 {
		t.Errorf("weightedScore = %f, want %f", got, want)
	}
}

func TestEvalCondition(t *testing.T) {
	t.Parallel()

	tc := &TransitionContext{
		PremiumLevel: 2,
		LimitState:   LimitNearLimit,
		RouteWindow:  []string{"gate"},
	}

	tests := []struct {
		cond string
		want bool
	}{
		{"", true},
		{"premium>=2", true},
		{"premium>=3", false},
		{"premium>=x", false},
		{"limit=ok|near_limit", true},
		{"limit=ok", false},
		{"visited:gate", true},
		{"!visited:gate", false},
		{"!visited:tower", true},
		{"premium>=1 && visited:gate", true},
		{"premium>=1 && visited:tower", false},
		{"moon=full", false},
	}
	for _, tt := range tests {
		t.Run(tt.cond, func(t *testing.T) {
			if got := EvalCondition(tt.cond, tc); got != tt.want {
				t.Errorf("EvalCondition(%q) = %v, want %v", tt.cond, got, tt.want)
			}
		})
	}
}
