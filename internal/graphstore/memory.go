// Wayfinder - Navigation Transition Engine for Branching Narratives
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package graphstore

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/tomtom215/wayfinder/internal/navigation"
)

// MemoryStore is an in-memory graph. It is safe for concurrent use.
type MemoryStore struct {
	mu sync.RWMutex

	nodes    map[string]navigation.Node
	edges    map[string][]navigation.Edge
	curated  map[string]map[string][]string // tenant -> origin -> picks
	fallback map[string]string
	trav     map[string]map[string]map[string]uint64 // tenant -> from -> to -> count
}

// NewMemoryStore creates an empty in-memory graph.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nodes:    make(map[string]navigation.Node),
		edges:    make(map[string][]navigation.Edge),
		curated:  make(map[string]map[string][]string),
		fallback: make(map[string]string),
		trav:     make(map[string]map[string]map[string]uint64),
	}
}

// PutNode inserts or replaces a node.
func (s *MemoryStore) PutNode(ctx context.Context, n navigation.Node) error {
	if err := validateNode(&n); err != nil {
		return err
	}
	n.Tags = slices.Clone(n.Tags)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes[n.ID] = n
	return nil
}

// PutEdge inserts or replaces the edge fromID -> e.ToNodeID.
func (s *MemoryStore) PutEdge(ctx context.Context, fromID string, e navigation.Edge) error {
	if err := validateID("from node id", fromID); err != nil {
		return err
	}
	if err := validateID("to node id", e.ToNodeID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	edges := s.edges[fromID]
	for i := range edges {
		if edges[i].ToNodeID == e.ToNodeID {
			edges[i] = e
			return nil
		}
	}
	s.edges[fromID] = append(edges, e)
	return nil
}

// SetCurated replaces the editorial picks for an origin.
func (s *MemoryStore) SetCurated(ctx context.Context, tenantID, originID string, nodeIDs []string) error {
	if err := validateID("tenant id", tenantID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	byOrigin := s.curated[tenantID]
	if byOrigin == nil {
		byOrigin = make(map[string][]string)
		s.curated[tenantID] = byOrigin
	}
	byOrigin[originID] = slices.Clone(nodeIDs)
	return nil
}

// SetFallback designates the tenant's emergency node.
func (s *MemoryStore) SetFallback(ctx context.Context, tenantID, nodeID string) error {
	if err := validateID("tenant id", tenantID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if nodeID == "" {
		delete(s.fallback, tenantID)
		return nil
	}
	s.fallback[tenantID] = nodeID
	return nil
}

// RecordTraversal counts one observed move. An empty fromID records a cold start entry.
func (s *MemoryStore) RecordTraversal(ctx context.Context, tenantID, fromID, toID string) error {
	if err := validateID("tenant id", tenantID); err != nil {
		return err
	}
	if err := validateID("to node id", toID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	byFrom := s.trav[tenantID]
	if byFrom == nil {
		byFrom = make(map[string]map[string]uint64)
		s.trav[tenantID] = byFrom
	}
	counts := byFrom[fromID]
	if counts == nil {
		counts = make(map[string]uint64)
		byFrom[fromID] = counts
	}
	counts[toID]++
	return nil
}

// OutgoingEdges implements navigation.GraphStore.
func (s *MemoryStore) OutgoingEdges(ctx context.Context, nodeID string) ([]navigation.Edge, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.edges[nodeID]), nil
}

// QuerySimilar implements navigation.GraphStore.
func (s *MemoryStore) QuerySimilar(ctx context.Context, nodeID string, k int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	origin, ok := s.nodes[nodeID]
	if !ok || len(origin.Tags) == 0 {
		return nil, nil
	}
	return rankSimilar(&origin, s.tenantNodesLocked(origin.TenantID), k), nil
}

// QueryPopular implements navigation.GraphStore.
func (s *MemoryStore) QueryPopular(ctx context.Context, tenantID, nodeID string, k int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	byFrom := s.trav[tenantID]
	if nodeID != "" {
		return rankCounts(byFrom[nodeID], nodeID, k), nil
	}

	global := make(map[string]uint64)
	for _, counts := range byFrom {
		for to, c := range counts {
			global[to] += c
		}
	}
	return rankCounts(global, "", k), nil
}

// CuratedPicks implements navigation.GraphStore.
func (s *MemoryStore) CuratedPicks(ctx context.Context, tenantID, nodeID string, k int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	byOrigin := s.curated[tenantID]
	picks, ok := byOrigin[nodeID]
	if !ok {
		picks = byOrigin[""]
	}
	return limitIDs(slices.Clone(picks), k), nil
}

// EligibleNodes implements navigation.GraphStore.
func (s *MemoryStore) EligibleNodes(ctx context.Context, tenantID string, limit int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0)
	for id, n := range s.nodes {
		if n.TenantID == tenantID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return limitIDs(ids, limit), nil
}

// Nodes implements navigation.GraphStore.
func (s *MemoryStore) Nodes(ctx context.Context, ids []string) (map[string]navigation.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]navigation.Node, len(ids))
	for _, id := range ids {
		if n, ok := s.nodes[id]; ok {
			n.Tags = slices.Clone(n.Tags)
			out[id] = n
		}
	}
	return out, nil
}

// FallbackNode implements navigation.GraphStore.
func (s *MemoryStore) FallbackNode(ctx context.Context, tenantID, originID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if id, ok := s.fallback[tenantID]; ok {
		return id, nil
	}
	var origin *navigation.Node
	if n, ok := s.nodes[originID]; ok {
		origin = &n
	}
	return pickStart(origin, s.tenantNodesLocked(tenantID)), nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) tenantNodesLocked(tenantID string) []navigation.Node {
	out := make([]navigation.Node, 0)
	for _, n := range s.nodes {
		if n.TenantID == tenantID {
			out = append(out, n)
		}
	}
	return out
}
