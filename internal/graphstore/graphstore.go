// Wayfinder - Navigation Transition Engine for Branching Narratives
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

// Package graphstore provides the node graph backends read by the navigation
// providers.
//
// Two implementations of navigation.GraphStore are provided:
//
//   - MemoryStore: mutex-guarded maps for development and tests
//   - BadgerStore: durable storage in BadgerDB
//
// Both also implement Writer so a YAML seed (see LoadSeed) or the traversal
// endpoint can populate them. Breaker wraps any GraphStore with a circuit
// breaker so a failing backend degrades decisions instead of stalling them.
//
// Node, tenant and quest identifiers must not contain ':' because the
// Badger key layout uses it as a separator.
package graphstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/tomtom215/wayfinder/internal/navigation"
)

// ErrInvalidID is returned for empty identifiers or identifiers containing ':'.
var ErrInvalidID = errors.New("graphstore: invalid identifier")

// Writer populates a graph store.
type Writer interface {
	PutNode(ctx context.Context, n navigation.Node) error
	PutEdge(ctx context.Context, fromID string, e navigation.Edge) error

	// SetCurated replaces the editorial picks for originID. An empty
	// originID sets the tenant-wide list used when no origin list exists.
	SetCurated(ctx context.Context, tenantID, originID string, nodeIDs []string) error

	SetFallback(ctx context.Context, tenantID, nodeID string) error
	RecordTraversal(ctx context.Context, tenantID, fromID, toID string) error
}

// Store is a readable and writable graph backend.
type Store interface {
	navigation.GraphStore
	Writer
	Close() error
}

// Compile-time interface checks.
var (
	_ Store                 = (*MemoryStore)(nil)
	_ Store                 = (*BadgerStore)(nil)
	_ navigation.GraphStore = (*Breaker)(nil)
)

func validateID(kind, id string) error {
	if id == "" || strings.Contains(id, ":") {
		return fmt.Errorf("%w: %s %q", ErrInvalidID, kind, id)
	}
	return nil
}

func validateNode(n *navigation.Node) error {
	if err := validateID("node id", n.ID); err != nil {
		return err
	}
	if err := validateID("tenant id", n.TenantID); err != nil {
		return err
	}
	if n.QuestID != "" {
		return validateID("quest id", n.QuestID)
	}
	return nil
}

// rankSimilar orders tenant nodes by tag overlap with origin, highest first,
// ties by node id. Nodes without overlap are dropped.
func rankSimilar(origin *navigation.Node, nodes []navigation.Node, k int) []string {
	type scored struct {
		id  string
		sim float64
	}
	var out []scored
	for i := range nodes {
		n := &nodes[i]
		if n.ID == origin.ID || n.TenantID != origin.TenantID {
			continue
		}
		if sim := navigation.Jaccard(origin.Tags, n.Tags); sim > 0 {
			out = append(out, scored{id: n.ID, sim: sim})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].sim != out[j].sim {
			return out[i].sim > out[j].sim
		}
		return out[i].id < out[j].id
	})

	ids := make([]string, 0, min(k, len(out)))
	for i := 0; i < len(out) && i < k; i++ {
		ids = append(ids, out[i].id)
	}
	return ids
}

// rankCounts orders ids by count descending, ties by id.
func rankCounts(counts map[string]uint64, exclude string, k int) []string {
	ids := make([]string, 0, len(counts))
	for id, c := range counts {
		if id != exclude && c > 0 {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		if counts[ids[i]] != counts[ids[j]] {
			return counts[ids[i]] > counts[ids[j]]
		}
		return ids[i] < ids[j]
	})
	if len(ids) > k {
		ids = ids[:k]
	}
	return ids
}

// pickStart returns the start node of the origin's quest, or the
// lowest-id start node of the tenant.
func pickStart(origin *navigation.Node, nodes []navigation.Node) string {
	var questStart, anyStart string
	for i := range nodes {
		n := &nodes[i]
		if !n.IsStart {
			continue
		}
		if origin != nil && origin.QuestID != "" && n.QuestID == origin.QuestID {
			if questStart == "" || n.ID < questStart {
				questStart = n.ID
			}
		}
		if anyStart == "" || n.ID < anyStart {
			anyStart = n.ID
		}
	}
	if questStart != "" {
		return questStart
	}
	return anyStart
}

func limitIDs(ids []string, k int) []string {
	if k >= 0 && len(ids) > k {
		return ids[:k]
	}
	return ids
}
