// Wayfinder - Navigation Transition Engine for Branching Narratives
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/wayfinder/internal/graphstore"
	"github.com/tomtom215/wayfinder/internal/navigation"
	"github.com/tomtom215/wayfinder/internal/navigation/providers"
)

const integrationSeed = `
tenants:
  - id: acme
    fallback: lobby
    nodes:
      - id: lobby
        quest: intro
        tags: [hub]
        start: true
      - id: vault
        quest: intro
        tags: [hub, treasure]
      - id: garden
        quest: intro
        tags: [hub, nature]
    edges:
      - from: lobby
        to: vault
      - from: lobby
        to: garden
    curated:
      - origin: lobby
        nodes: [vault]
`

func newEngineServer(t *testing.T) (http.Handler, *graphstore.MemoryStore) {
	t.Helper()
	ctx := context.Background()

	store := graphstore.NewMemoryStore()
	if _, err := graphstore.LoadSeed(ctx, strings.NewReader(integrationSeed), store); err != nil {
		t.Fatalf("LoadSeed() error = %v", err)
	}

	navCfg := navigation.DefaultConfig()
	navCfg.History.Enabled = true
	navCfg.History.Size = 8

	provs, err := providers.NewDefaultRegistry(store, navCfg.Limits.EligibleLimit)
	if err != nil {
		t.Fatal(err)
	}
	holder := navigation.NewRegistryHolder(navigation.DefaultRegistry())
	router, err := navigation.NewRouter(navCfg, zerolog.Nop(), holder, provs, store)
	if err != nil {
		t.Fatalf("NewRouter() error = %v", err)
	}

	h := NewHandler(testConfig(), Deps{
		Navigator:  router,
		Registry:   holder,
		Traversals: store,
	})
	return NewRouter(h, nil).SetupChi(), store
}

func postJSON(t *testing.T, srv http.Handler, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader([]byte(body)))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v (%s)", err, rec.Body.String())
	}
	return rec, env
}

func TestEngine_NextFromSeededGraph(t *testing.T) {
	srv, _ := newEngineServer(t)

	rec, env := postJSON(t, srv, "/api/v1/navigation/next", `{
		"context": {"session_id": "s-1", "tenant_id": "acme", "origin_node_id": "lobby", "mode": "normal", "requested_ui_slots": 2}
	}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}

	var d navigation.TransitionDecision
	if err := json.Unmarshal(env.Data, &d); err != nil {
		t.Fatal(err)
	}
	if d.SelectedNodeID != "vault" && d.SelectedNodeID != "garden" {
		t.Errorf("selected %q is not an outgoing edge of lobby", d.SelectedNodeID)
	}
	if d.PoliciesHash != navigation.DefaultRegistry().PoliciesHash() {
		t.Errorf("policies hash = %q", d.PoliciesHash)
	}

	// The decision lands in the debug history.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/navigation/history", nil)
	hrec := httptest.NewRecorder()
	srv.ServeHTTP(hrec, req)
	if hrec.Code != http.StatusOK || !strings.Contains(hrec.Body.String(), d.ID) {
		t.Errorf("history status = %d, missing decision %s", hrec.Code, d.ID)
	}
}

func TestEngine_PreviewIsDeterministic(t *testing.T) {
	srv, _ := newEngineServer(t)
	body := `{"context": {"session_id": "s-1", "tenant_id": "acme", "origin_node_id": "lobby", "mode": "discover", "cache_seed": "fixed"}}`

	var first []byte
	for i := 0; i < 3; i++ {
		rec, env := postJSON(t, srv, "/api/v1/navigation/preview", body)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
		}
		var d navigation.TransitionDecision
		if err := json.Unmarshal(env.Data, &d); err != nil {
			t.Fatal(err)
		}
		if !d.Preview || !d.Context.CreatedAt.IsZero() {
			t.Errorf("preview = %v, created_at = %v", d.Preview, d.Context.CreatedAt)
		}
		if i == 0 {
			first = env.Data
			time.Sleep(5 * time.Millisecond)
			continue
		}
		if !bytes.Equal(env.Data, first) {
			t.Errorf("preview %d differs:\n got  %s\n want %s", i, env.Data, first)
		}
	}
}

func TestEngine_PreviewHonorsCreatedAt(t *testing.T) {
	srv, _ := newEngineServer(t)
	body := `{"context": {"session_id": "s-1", "tenant_id": "acme", "origin_node_id": "lobby", "mode": "discover",
		"cache_seed": "fixed", "created_at": "2026-05-01T10:00:00Z"}}`

	rec, env := postJSON(t, srv, "/api/v1/navigation/preview", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}
	var d navigation.TransitionDecision
	if err := json.Unmarshal(env.Data, &d); err != nil {
		t.Fatal(err)
	}
	want := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	if !d.Context.CreatedAt.Equal(want) {
		t.Errorf("created_at = %v, want %v", d.Context.CreatedAt, want)
	}
}

func TestEngine_UnknownMode(t *testing.T) {
	srv, _ := newEngineServer(t)

	rec, env := postJSON(t, srv, "/api/v1/navigation/next", `{
		"context": {"session_id": "s-1", "tenant_id": "acme", "mode": "teleport"}
	}`)
	if rec.Code != http.StatusUnprocessableEntity || env.Error == nil || env.Error.Code != CodeConfig {
		t.Errorf("status = %d, error = %+v", rec.Code, env.Error)
	}
}

func TestEngine_TraversalFeedsStore(t *testing.T) {
	srv, store := newEngineServer(t)

	for i := 0; i < 3; i++ {
		rec, _ := postJSON(t, srv, "/api/v1/navigation/traversals", `{"tenant_id": "acme", "from": "lobby", "to": "garden"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
		}
	}

	popular, err := store.QueryPopular(context.Background(), "acme", "lobby", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(popular) != 1 || popular[0] != "garden" {
		t.Errorf("QueryPopular() = %v, want [garden]", popular)
	}
}
