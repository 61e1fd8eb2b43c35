// Wayfinder - Navigation Transition Engine for Branching Narratives
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package graphstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tomtom215/wayfinder/internal/navigation"
)

// Seed is the YAML layout accepted by LoadSeed.
//
//	tenants:
//	  - id: acme
//	    fallback: lobby
//	    nodes:
//	      - id: lobby
//	        quest: intro
//	        tags: [hub]
//	        start: true
//	    edges:
//	      - from: lobby
//	        to: vault
//	        condition: premium>=1
//	    curated:
//	      - origin: lobby
//	        nodes: [vault]
//	    traversals:
//	      - from: lobby
//	        to: vault
//	        count: 12
type Seed struct {
	Tenants []SeedTenant `yaml:"tenants"`
}

// SeedTenant holds one tenant's graph.
type SeedTenant struct {
	ID         string          `yaml:"id"`
	Fallback   string          `yaml:"fallback"`
	Nodes      []SeedNode      `yaml:"nodes"`
	Edges      []SeedEdge      `yaml:"edges"`
	Curated    []SeedCurated   `yaml:"curated"`
	Traversals []SeedTraversal `yaml:"traversals"`
}

// SeedNode is a node without its tenant.
type SeedNode struct {
	ID        string    `yaml:"id"`
	Quest     string    `yaml:"quest"`
	Title     string    `yaml:"title"`
	Tags      []string  `yaml:"tags"`
	Author    string    `yaml:"author"`
	Premium   int       `yaml:"premium"`
	UpdatedAt time.Time `yaml:"updated_at"`
	Start     bool      `yaml:"start"`
}

// SeedEdge is an authored link.
type SeedEdge struct {
	From      string `yaml:"from"`
	To        string `yaml:"to"`
	Condition string `yaml:"condition"`
	Label     string `yaml:"label"`
}

// SeedCurated is an editorial pick list. An empty origin is tenant-wide.
type SeedCurated struct {
	Origin string   `yaml:"origin"`
	Nodes  []string `yaml:"nodes"`
}

// SeedTraversal pre-populates popularity counters.
type SeedTraversal struct {
	From  string `yaml:"from"`
	To    string `yaml:"to"`
	Count int    `yaml:"count"`
}

// SeedStats summarizes what LoadSeed wrote.
type SeedStats struct {
	Tenants    int
	Nodes      int
	Edges      int
	Curated    int
	Traversals int
}

// LoadSeedFile reads a YAML seed file into w.
func LoadSeedFile(ctx context.Context, path string, w Writer) (SeedStats, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from operator configuration
	if err != nil {
		return SeedStats{}, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()
	return LoadSeed(ctx, f, w)
}

// LoadSeed decodes a YAML seed from r and writes it to w.
func LoadSeed(ctx context.Context, r io.Reader, w Writer) (SeedStats, error) {
	var seed Seed
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&seed); err != nil && err != io.EOF {
		return SeedStats{}, fmt.Errorf("decode seed: %w", err)
	}

	var stats SeedStats
	for _, t := range seed.Tenants {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if err := loadTenant(ctx, &t, w, &stats); err != nil {
			return stats, fmt.Errorf("tenant %q: %w", t.ID, err)
		}
		stats.Tenants++
	}
	return stats, nil
}

func loadTenant(ctx context.Context, t *SeedTenant, w Writer, stats *SeedStats) error {
	for _, n := range t.Nodes {
		node := navigation.Node{
			ID:           n.ID,
			TenantID:     t.ID,
			QuestID:      n.Quest,
			Title:        n.Title,
			Tags:         n.Tags,
			Author:       n.Author,
			PremiumLevel: n.Premium,
			UpdatedAt:    n.UpdatedAt,
			IsStart:      n.Start,
		}
		if err := w.PutNode(ctx, node); err != nil {
			return fmt.Errorf("node %q: %w", n.ID, err)
		}
		stats.Nodes++
	}

	for _, e := range t.Edges {
		edge := navigation.Edge{ToNodeID: e.To, Condition: e.Condition, Label: e.Label}
		if err := w.PutEdge(ctx, e.From, edge); err != nil {
			return fmt.Errorf("edge %s->%s: %w", e.From, e.To, err)
		}
		stats.Edges++
	}

	for _, c := range t.Curated {
		if err := w.SetCurated(ctx, t.ID, c.Origin, c.Nodes); err != nil {
			return fmt.Errorf("curated %q: %w", c.Origin, err)
		}
		stats.Curated++
	}

	for _, tr := range t.Traversals {
		for i := 0; i < tr.Count; i++ {
			if err := w.RecordTraversal(ctx, t.ID, tr.From, tr.To); err != nil {
				return fmt.Errorf("traversal %s->%s: %w", tr.From, tr.To, err)
			}
		}
		stats.Traversals += tr.Count
	}

	if t.Fallback != "" {
		if err := w.SetFallback(ctx, t.ID, t.Fallback); err != nil {
			return fmt.Errorf("fallback: %w", err)
		}
	}
	return nil
}
