// Wayfinder - Navigation Transition Engine for Branching Narratives
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/wayfinder/internal/metrics"
	"github.com/tomtom215/wayfinder/internal/navigation"
)

func TestDecisionCache_DeepCopies(t *testing.T) {
	dc := NewDecisionCache(time.Minute, 10)
	defer dc.Close()
	ctx := context.Background()

	d := &navigation.TransitionDecision{
		ID:     "d-1",
		SelectedNodeID: "a",
		Candidates: []navigation.TransitionCandidate{
			{NodeID: "a", Factors: map[string]float64{"manual": 1}},
		},
	}
	dc.Set(ctx, "k", d, 0)

	// Mutating the original after Set must not leak into the cache.
	d.SelectedNodeID = "mutated"
	d.Candidates[0].Factors["manual"] = 0

	got, ok := dc.Get(ctx, "k")
	if !ok {
		t.Fatal("expected hit")
	}
	if got.SelectedNodeID != "a" || got.Candidates[0].Factors["manual"] != 1 {
		t.Fatalf("cached decision was aliased: %+v", got)
	}

	got.Candidates[0].NodeID = "changed"
	again, _ := dc.Get(ctx, "k")
	if again.Candidates[0].NodeID != "a" {
		t.Error("returned decision was aliased")
	}
}

func TestDecisionCache_MetricsAndInvalidate(t *testing.T) {
	dc := NewDecisionCache(time.Minute, 10)
	defer dc.Close()
	ctx := context.Background()

	hits := testutil.ToFloat64(metrics.DecisionCacheHits)
	misses := testutil.ToFloat64(metrics.DecisionCacheMisses)

	dc.Set(ctx, "k", &navigation.TransitionDecision{ID: "d"}, time.Minute)
	dc.Set(ctx, "nil", nil, time.Minute)

	if _, ok := dc.Get(ctx, "k"); !ok {
		t.Fatal("expected hit")
	}
	if _, ok := dc.Get(ctx, "nil"); ok {
		t.Fatal("nil decision must not be stored")
	}

	dc.Invalidate()
	if _, ok := dc.Get(ctx, "k"); ok {
		t.Fatal("expected miss after Invalidate")
	}

	if got := testutil.ToFloat64(metrics.DecisionCacheHits) - hits; got != 1 {
		t.Errorf("hits delta = %f, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.DecisionCacheMisses) - misses; got != 2 {
		t.Errorf("misses delta = %f, want 2", got)
	}
	if s := dc.Stats(); s.Hits != 1 || s.Misses != 2 {
		t.Errorf("stats = %+v", s)
	}
}

func TestDecisionCache_CancelledContext(t *testing.T) {
	dc := NewDecisionCache(time.Minute, 0)
	defer dc.Close()

	dc.Set(context.Background(), "k", &navigation.TransitionDecision{ID: "d"}, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, ok := dc.Get(ctx, "k"); ok {
		t.Error("cancelled lookups should miss")
	}
}
