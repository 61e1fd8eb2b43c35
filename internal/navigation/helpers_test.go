// Wayfinder - Navigation Transition Engine for Branching Narratives
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package navigation

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// stubProvider returns fixed candidates after an optional delay.
type stubProvider struct {
	name  string
	ids   []string
	err   error
	delay time.Duration
	calls atomic.Int32
	// fn, when set, replaces ids/err.
	fn func(ctx context.Context, req FetchRequest) ([]TransitionCandidate, error)
}

func newStub(name string, ids ...string) *stubProvider {
	return &stubProvider{name: name, ids: ids}
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Fetch(ctx context.Context, req FetchRequest) ([]TransitionCandidate, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.fn != nil {
		return s.fn(ctx, req)
	}
	if s.err != nil {
		return nil, s.err
	}
	out := make([]TransitionCandidate, 0, len(s.ids))
	for _, id := range s.ids {
		c := TransitionCandidate{NodeID: id, Provider: s.name, Factors: map[string]float64{}}
		switch s.name {
		case ProviderManual:
			c.Factors[FactorManual] = 1
		case ProviderCurated:
			c.Factors[FactorCurated] = 1
		}
		out = append(out, c)
	}
	return out, nil
}

// stubStore is an in-memory GraphStore for router tests.
type stubStore struct {
	mu         sync.Mutex
	nodes      map[string]Node
	fallback   string
	fallErr    error
	nodesErr   error
	nodesCalls int
	// nodesDelay stalls Nodes without honoring cancellation.
	nodesDelay time.Duration
}

func newStubStore(nodes ...Node) *stubStore {
	s := &stubStore{nodes: make(map[string]Node)}
	for _, n := range nodes {
		s.nodes[n.ID] = n
	}
	return s
}

func (s *stubStore) OutgoingEdges(context.Context, string) ([]Edge, error) { return nil, nil }
func (s *stubStore) QuerySimilar(context.Context, string, int) ([]string, error) {
	return nil, nil
}
func (s *stubStore) QueryPopular(context.Context, string, string, int) ([]string, error) {
	return nil, nil
}
func (s *stubStore) CuratedPicks(context.Context, string, string, int) ([]string, error) {
	return nil, nil
}
func (s *stubStore) EligibleNodes(context.Context, string, int) ([]string, error) {
	return nil, nil
}

func (s *stubStore) Nodes(_ context.Context, ids []string) (map[string]Node, error) {
	time.Sleep(s.nodesDelay)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodesCalls++
	if s.nodesErr != nil {
		return nil, s.nodesErr
	}
	out := make(map[string]Node, len(ids))
	for _, id := range ids {
		if n, ok := s.nodes[id]; ok {
			out[id] = n
		}
	}
	return out, nil
}

func (s *stubStore) FallbackNode(context.Context, string, string) (string, error) {
	return s.fallback, s.fallErr
}

// mapFlags is a FlagService with override lookup.
type mapFlags map[string]bool

func (m mapFlags) IsEnabled(_ context.Context, name string) bool { return m[name] }

func (m mapFlags) Lookup(_ context.Context, name string) (bool, bool) {
	v, ok := m[name]
	return v, ok
}

// captureSink records telemetry.
type captureSink struct {
	mu      sync.Mutex
	records []*DecisionTelemetry
}

func (c *captureSink) RecordDecision(_ context.Context, t *DecisionTelemetry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, t)
}

func (c *captureSink) last() *DecisionTelemetry {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.records) == 0 {
		return nil
	}
	return c.records[len(c.records)-1]
}

// mapCache is a DecisionCache without expiry.
type mapCache struct {
	mu   sync.Mutex
	m    map[string]*TransitionDecision
	sets int
}

func newMapCache() *mapCache {
	return &mapCache{m: make(map[string]*TransitionDecision)}
}

func (c *mapCache) Get(_ context.Context, key string) (*TransitionDecision, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.m[key]
	return d.Clone(), ok
}

func (c *mapCache) Set(_ context.Context, key string, d *TransitionDecision, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.m[key] = d.Clone()
}

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

// newTestRouter builds a router over the given providers with the built-in modes.
func newTestRouter(t *testing.T, store GraphStore, ps ...Provider) *Router {
	t.Helper()
	return newTestRouterWithConfig(t, DefaultConfig(), store, ps...)
}

func newTestRouterWithConfig(t *testing.T, cfg *Config, store GraphStore, ps ...Provider) *Router {
	t.Helper()
	reg, err := NewProviderRegistry(ps...)
	if err != nil {
		t.Fatalf("NewProviderRegistry: %v", err)
	}
	if store == nil {
		store = newStubStore()
	}
	r, err := NewRouter(cfg, testLogger(), NewRegistryHolder(DefaultRegistry()), reg, store)
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	return r
}

func baseContext(mode string) TransitionContext {
	return TransitionContext{
		SessionID:    "sess-1",
		TenantID:     "tenant-a",
		UserID:       "user-1",
		OriginNodeID: "origin",
		Mode:         mode,
		CacheSeed:    "seed-1",
		CreatedAt:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func probabilitySum(d *TransitionDecision) float64 {
	sum := 0.0
	for _, c := range d.Candidates {
		sum += c.Probability
	}
	return sum
}
