// Wayfinder - Navigation Transition Engine for Branching Narratives
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package navigation

import (
	"fmt"
	"math"
	"testing"
	"time"
)

func blendFixture(results ...providerResult) blendInput {
	mode, _ := DefaultRegistry().Resolve(ModeNormal)
	tc := baseContext(ModeNormal)
	cfg := DefaultConfig()
	return blendInput{
		results:     results,
		tc:          &tc,
		mode:        &mode,
		weights:     cfg.Weights,
		maxFilters:  cfg.Budget.MaxFilters,
		manualScore: cfg.Scoring.ManualScore,
		halfLife:    cfg.Scoring.FreshnessHalfLife,
		maxPool:     cfg.Limits.MaxPoolSize,
	}
}

func hit(name string, cands ...TransitionCandidate) providerResult {
	return providerResult{name: name, outcome: OutcomeHit, candidates: cands}
}

func cand(id string, factors map[string]float64) TransitionCandidate {
	return TransitionCandidate{NodeID: id, Factors: factors}
}

func TestMergeResults_FirstProviderOwns(t *testing.T) {
	t.Parallel()

	merged := mergeResults([]providerResult{
		hit(ProviderCurated, cand("x", map[string]float64{FactorCurated: 1})),
		hit(ProviderCompass, cand("x", map[string]float64{FactorTagSimilarity: 0.8}), cand("y", nil)),
		hit(ProviderEcho, cand("x", map[string]float64{FactorEchoWeight: 0.3, FactorCurated: 0.2})),
	})

	if len(merged) != 2 {
		t.Fatalf("expected 2 merged candidates, got %d", len(merged))
	}
	x := merged[0]
	if x.NodeID != "x" || x.Provider != ProviderCurated {
		t.Fatalf("expected x owned by curated, got %+v", x)
	}
	if x.Factors[FactorCurated] != 1 || x.Factors[FactorTagSimilarity] != 0.8 || x.Factors[FactorEchoWeight] != 0.3 {
		t.Errorf("factors not merged by max: %v", x.Factors)
	}
	if merged[1].Provider != ProviderCompass {
		t.Errorf("y provider = %s", merged[1].Provider)
	}
}

func TestBlend_ExcludesOriginAndWindow(t *testing.T) {
	t.Parallel()

	in := blendFixture(hit(ProviderEcho, cand("origin", nil), cand("seen", nil), cand("fresh", nil)))
	in.tc.RouteWindow = []string{"seen"}

	pool, stats := blend(in)
	if len(pool) != 1 || pool[0].NodeID != "fresh" {
		t.Fatalf("pool = %+v", pool)
	}
	if stats.excluded != 2 || stats.collected != 3 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestBlend_IndependentOfCompletionOrder(t *testing.T) {
	t.Parallel()

	a := hit(ProviderCurated, cand("c1", map[string]float64{FactorCurated: 1}), cand("shared", map[string]float64{FactorCurated: 1}))
	b := hit(ProviderEcho, cand("shared", map[string]float64{FactorEchoWeight: 1}), cand("e1", map[string]float64{FactorEchoWeight: 0.5}))

	p1, _ := blend(blendFixture(a, b))
	p2, _ := blend(blendFixture(a, b))
	if fmt.Sprint(p1) != fmt.Sprint(p2) {
		t.Fatalf("blend not pure:\n%v\n%v", p1, p2)
	}
	if p1[0].NodeID != "shared" {
		t.Errorf("expected shared candidate first with combined factors, got %s", p1[0].NodeID)
	}
}

func TestBlend_FiltersAndTruncation(t *testing.T) {
	t.Parallel()

	newIn := func() blendInput {
		in := blendFixture(
			hit(ProviderManual,
				TransitionCandidate{NodeID: "gated", Condition: "premium>=1"},
				TransitionCandidate{NodeID: "open"},
			),
			hit(ProviderCurated, cand("premium", map[string]float64{FactorCurated: 1})),
		)
		in.nodes = map[string]Node{"premium": {ID: "premium", PremiumLevel: 3}}
		return in
	}

	tests := []struct {
		name       string
		maxFilters int
		wantPool   int
		truncated  bool
	}{
		{"both filters", 2, 1, false},
		{"edge condition only", 1, 2, true},
		{"no filters", 0, 3, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := newIn()
			in.maxFilters = tt.maxFilters
			pool, stats := blend(in)
			if len(pool) != tt.wantPool {
				t.Errorf("pool size = %d, want %d", len(pool), tt.wantPool)
			}
			if stats.filtersTruncated != tt.truncated {
				t.Errorf("filtersTruncated = %v, want %v", stats.filtersTruncated, tt.truncated)
			}
			if stats.filtersApplied != min(tt.maxFilters, 2) {
				t.Errorf("filtersApplied = %d", stats.filtersApplied)
			}
		})
	}
}

func TestBlend_ScoringAndRanking(t *testing.T) {
	t.Parallel()

	in := blendFixture(
		hit(ProviderManual, cand("m", nil)),
		hit(ProviderCurated, cand("c", map[string]float64{FactorCurated: 1})),
		hit(ProviderCompass, cand("s", nil)),
	)
	in.origin = &Node{ID: "origin", Tags: []string{"forest", "night"}}
	in.nodes = map[string]Node{
		"c": {ID: "c", UpdatedAt: in.tc.CreatedAt},
		"s": {ID: "s", Tags: []string{"forest", "night"}, UpdatedAt: in.tc.CreatedAt.Add(-30 * 24 * time.Hour)},
	}

	pool, _ := blend(in)
	if len(pool) != 3 {
		t.Fatalf("pool size = %d", len(pool))
	}
	if pool[0].NodeID != "m" || pool[0].Score != in.manualScore {
		t.Errorf("manual must rank first with fixed score, got %+v", pool[0])
	}
	for i, c := range pool {
		if c.Rank != i+1 {
			t.Errorf("%s rank %d", c.NodeID, c.Rank)
		}
		if c.Badge == "" || c.Explain == "" {
			t.Errorf("%s missing badge or explain", c.NodeID)
		}
	}

	s := pool[2]
	if s.NodeID != "s" {
		t.Fatalf("expected compass last, got %s", s.NodeID)
	}
	if s.Factors[FactorTagSimilarity] != 1 {
		t.Errorf("tag similarity = %f", s.Factors[FactorTagSimilarity])
	}
	if math.Abs(s.Factors[FactorFreshness]-0.5) > 1e-9 {
		t.Errorf("freshness = %f", s.Factors[FactorFreshness])
	}

	c := pool[1]
	wantC := in.weights.Curated*in.mode.CuratedBoost + in.weights.Freshness + in.weights.Diversity
	if math.Abs(c.Score-wantC) > 1e-9 {
		t.Errorf("curated score = %f, want %f", c.Score, wantC)
	}
}

func TestBlend_ModeWeightOverride(t *testing.T) {
	t.Parallel()

	in := blendFixture(hit(ProviderEcho, cand("e", map[string]float64{FactorEchoWeight: 1})))
	base, _ := blend(in)

	mode, _ := DefaultRegistry().Resolve(ModeEchoBoost)
	in.mode = &mode
	boosted, _ := blend(in)

	if boosted[0].Score <= base[0].Score {
		t.Errorf("echo_boost weights should raise echo score: %f <= %f", boosted[0].Score, base[0].Score)
	}
}

func TestBlend_TiesBreakByNodeID(t *testing.T) {
	t.Parallel()

	in := blendFixture(hit(ProviderCompass, cand("b", nil), cand("c", nil), cand("a", nil)))
	pool, _ := blend(in)
	for i, want := range []string{"a", "b", "c"} {
		if pool[i].NodeID != want {
			t.Fatalf("position %d = %s, want %s", i, pool[i].NodeID, want)
		}
	}
}

func TestBlend_PoolCap(t *testing.T) {
	t.Parallel()

	cands := make([]TransitionCandidate, 0, 10)
	for i := 0; i < 10; i++ {
		cands = append(cands, cand(fmt.Sprintf("n%d", i), nil))
	}
	in := blendFixture(hit(ProviderEcho, cands...))
	in.maxPool = 4

	pool, _ := blend(in)
	if len(pool) != 4 {
		t.Errorf("pool size = %d, want 4", len(pool))
	}
}
