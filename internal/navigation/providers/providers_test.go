// Wayfinder - Navigation Transition Engine for Branching Narratives
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package providers_test

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/rs/zerolog"

	"github.com/tomtom215/wayfinder/internal/graphstore"
	"github.com/tomtom215/wayfinder/internal/navigation"
	"github.com/tomtom215/wayfinder/internal/navigation/providers"
)

func newGraph(t *testing.T) *graphstore.MemoryStore {
	t.Helper()
	ctx := context.Background()
	s := graphstore.NewMemoryStore()

	nodes := []navigation.Node{
		{ID: "hall", TenantID: "t", QuestID: "q", Tags: []string{"castle", "hub"}, IsStart: true},
		{ID: "armory", TenantID: "t", QuestID: "q", Tags: []string{"castle", "steel"}},
		{ID: "keep", TenantID: "t", QuestID: "q", Tags: []string{"castle", "hub"}},
		{ID: "moat", TenantID: "t", QuestID: "q", Tags: []string{"water"}},
		{ID: "dock", TenantID: "t", QuestID: "q", Tags: []string{"water", "hub"}},
	}
	for _, n := range nodes {
		if err := s.PutNode(ctx, n); err != nil {
			t.Fatal(err)
		}
	}
	for _, e := range []navigation.Edge{
		{ToNodeID: "armory", Label: "To the armory"},
		{ToNodeID: "keep", Condition: "premium>=1"},
		{ToNodeID: "armory"},
	} {
		if err := s.PutEdge(ctx, "hall", e); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.SetCurated(ctx, "t", "hall", []string{"keep", "hall", "moat"}); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		_ = s.RecordTraversal(ctx, "t", "hall", "dock")
	}
	_ = s.RecordTraversal(ctx, "t", "hall", "moat")
	return s
}

func request(mode string, origin string, k int) navigation.FetchRequest {
	m, err := navigation.DefaultRegistry().Resolve(mode)
	if err != nil {
		panic(err)
	}
	return navigation.FetchRequest{
		Context: navigation.TransitionContext{
			SessionID:    "s",
			TenantID:     "t",
			OriginNodeID: origin,
			Mode:         mode,
		},
		Origin: &navigation.Node{ID: origin, TenantID: "t", Tags: []string{"castle", "hub"}},
		Mode:   m,
		K:      k,
		Seed:   42,
	}
}

func ids(cands []navigation.TransitionCandidate) []string {
	out := make([]string, 0, len(cands))
	for _, c := range cands {
		out = append(out, c.NodeID)
	}
	return out
}

func TestManual(t *testing.T) {
	p := providers.NewManual(newGraph(t))

	got, err := p.Fetch(context.Background(), request(navigation.ModeNormal, "hall", 1))
	if err != nil {
		t.Fatal(err)
	}
	// Manual is not capped by K.
	if !slices.Equal(ids(got), []string{"armory", "keep"}) {
		t.Fatalf("manual = %v", ids(got))
	}
	if got[0].Factors[navigation.FactorManual] != 1 || got[0].Provider != navigation.ProviderManual {
		t.Errorf("manual factor missing: %+v", got[0])
	}
	if got[1].Condition != "premium>=1" {
		t.Errorf("condition not carried: %+v", got[1])
	}

	cold, err := p.Fetch(context.Background(), request(navigation.ModeNormal, "", 5))
	if err != nil || len(cold) != 0 {
		t.Errorf("cold start = %v, %v", cold, err)
	}
}

func TestCurated(t *testing.T) {
	store := newGraph(t)
	p := providers.NewCurated(store)

	got, err := p.Fetch(context.Background(), request(navigation.ModeEditorial, "hall", 5))
	if err != nil {
		t.Fatal(err)
	}
	// The origin itself is never proposed.
	if !slices.Equal(ids(got), []string{"keep", "moat"}) {
		t.Fatalf("curated = %v", ids(got))
	}
	for _, c := range got {
		if c.Factors[navigation.FactorCurated] != 1 || c.Provider != navigation.ProviderCurated {
			t.Errorf("bad curated candidate %+v", c)
		}
	}

	tests := []struct {
		name      string
		author    int
		tag       int
		wantBlock string
	}{
		{"below author threshold", 3, 0, navigation.BlockedBelowAuthorThreshold},
		{"below tag threshold", 1, 5, navigation.BlockedBelowTagThreshold},
		{"thresholds met", 2, 2, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := request(navigation.ModeEditorial, "hall", 5)
			req.Mode.AuthorThreshold = tt.author
			req.Mode.TagThreshold = tt.tag

			_, err := p.Fetch(context.Background(), req)
			var withheld *navigation.WithheldError
			if tt.wantBlock == "" {
				if err != nil {
					t.Fatalf("unexpected error %v", err)
				}
				return
			}
			if !errors.As(err, &withheld) || withheld.Reason != tt.wantBlock {
				t.Fatalf("expected withheld %s, got %v", tt.wantBlock, err)
			}
		})
	}
}

func TestCompass(t *testing.T) {
	p := providers.NewCompass(newGraph(t))

	got, err := p.Fetch(context.Background(), request(navigation.ModeDiscover, "hall", 5))
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(ids(got), []string{"keep", "armory", "dock"}) {
		t.Fatalf("compass = %v", ids(got))
	}
	if sim := got[0].Factors[navigation.FactorTagSimilarity]; sim != 1 {
		t.Errorf("keep similarity = %f", sim)
	}

	// The router hands primary providers an origin without metadata.
	bare := request(navigation.ModeDiscover, "hall", 5)
	bare.Origin = &navigation.Node{ID: "hall", TenantID: "t"}
	got, err = p.Fetch(context.Background(), bare)
	if err != nil {
		t.Fatal(err)
	}
	if sim := got[0].Factors[navigation.FactorTagSimilarity]; got[0].NodeID != "keep" || sim != 1 {
		t.Errorf("bare origin: %s similarity = %f", got[0].NodeID, sim)
	}

	req := request(navigation.ModeDiscover, "hall", 5)
	req.Mode.TagThreshold = 4
	var withheld *navigation.WithheldError
	if _, err := p.Fetch(context.Background(), req); !errors.As(err, &withheld) {
		t.Errorf("expected withheld below tag threshold, got %v", err)
	}

	cold, err := p.Fetch(context.Background(), request(navigation.ModeDiscover, "", 5))
	if err != nil || len(cold) != 0 {
		t.Errorf("cold start = %v, %v", cold, err)
	}
}

func TestEcho(t *testing.T) {
	p := providers.NewEcho(newGraph(t))

	got, err := p.Fetch(context.Background(), request(navigation.ModeEchoBoost, "hall", 5))
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(ids(got), []string{"dock", "moat"}) {
		t.Fatalf("echo = %v", ids(got))
	}
	if got[0].Factors[navigation.FactorEchoWeight] != 1 || got[1].Factors[navigation.FactorEchoWeight] != 0.5 {
		t.Errorf("echo weights = %v, %v", got[0].Factors, got[1].Factors)
	}

	cold, err := p.Fetch(context.Background(), request(navigation.ModeEchoBoost, "", 5))
	if err != nil || len(cold) != 2 {
		t.Errorf("cold start should use tenant-wide counts: %v, %v", ids(cold), err)
	}
}

func TestRandom(t *testing.T) {
	p := providers.NewRandom(newGraph(t), 100)

	a, err := p.Fetch(context.Background(), request(navigation.ModeDiscover, "hall", 3))
	if err != nil {
		t.Fatal(err)
	}
	b, _ := p.Fetch(context.Background(), request(navigation.ModeDiscover, "hall", 3))
	if len(a) != 3 || !slices.Equal(ids(a), ids(b)) {
		t.Fatalf("equal seeds must sample equally: %v vs %v", ids(a), ids(b))
	}
	if slices.Contains(ids(a), "hall") {
		t.Error("random proposed the origin")
	}

	disabled, err := p.Fetch(context.Background(), request(navigation.ModeLite, "hall", 3))
	if err != nil || len(disabled) != 0 {
		t.Errorf("lite must not sample: %v, %v", disabled, err)
	}
}

func TestNewDefaultRegistry(t *testing.T) {
	reg, err := providers.NewDefaultRegistry(newGraph(t), 50)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(reg.Names(), navigation.KnownProviders()) {
		t.Errorf("names = %v, want %v", reg.Names(), navigation.KnownProviders())
	}
}

func TestProvidersThroughRouter(t *testing.T) {
	store := newGraph(t)
	reg, err := providers.NewDefaultRegistry(store, 50)
	if err != nil {
		t.Fatal(err)
	}
	r, err := navigation.NewRouter(nil, zerolog.Nop(), navigation.NewRegistryHolder(navigation.DefaultRegistry()), reg, store)
	if err != nil {
		t.Fatal(err)
	}

	tc := navigation.TransitionContext{
		SessionID:    "s",
		TenantID:     "t",
		OriginNodeID: "hall",
		Mode:         navigation.ModeNormal,
		CacheSeed:    "repeatable",
	}
	d, err := r.Preview(context.Background(), tc, navigation.RoutingBudget{})
	if err != nil {
		t.Fatal(err)
	}
	if !d.HasSelection() || len(d.Candidates) == 0 {
		t.Fatalf("expected a selection, got %+v", d)
	}
	for _, c := range d.Candidates {
		if c.NodeID == "hall" {
			t.Error("origin must never be a candidate")
		}
	}

	again, err := r.Preview(context.Background(), tc, navigation.RoutingBudget{})
	if err != nil {
		t.Fatal(err)
	}
	if again.SelectedNodeID != d.SelectedNodeID {
		t.Errorf("preview not reproducible: %s vs %s", again.SelectedNodeID, d.SelectedNodeID)
	}
}
