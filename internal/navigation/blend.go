// Wayfinder - Navigation Transition Engine for Branching Narratives
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package navigation

import (
	"sort"
	"time"
)

// Optional filters in the order they are applied under max_filters.
const (
	FilterEdgeCondition = "edge_condition"
	FilterPremiumGate   = "premium_gate"
)

var optionalFilters = []string{FilterEdgeCondition, FilterPremiumGate}

// providerResult holds the output of a single provider call.
type providerResult struct {
	name       string
	candidates []TransitionCandidate
	err        error
	latency    time.Duration
	outcome    ProviderOutcome
	chain      bool
}

// blendInput is everything the blend stage reads. Results must already be
// in canonical order: mode providers first, then the fallback chain.
type blendInput struct {
	results []providerResult
	tc      *TransitionContext
	mode    *ModeConfig
	weights FactorWeights

	// nodes is the hydrated metadata; nil when hydration failed.
	nodes  map[string]Node
	origin *Node
	window []Node

	maxFilters  int
	manualScore float64
	halfLife    time.Duration
	maxPool     int
}

// blendStats summarizes what the blend stage removed.
type blendStats struct {
	collected        int
	excluded         int
	filtered         int
	filtersApplied   int
	filtersTruncated bool

	// hydrationTimeout is set when a node lookup ran past the deadline.
	hydrationTimeout bool
}

// blend merges, filters, scores and ranks provider output. It is a pure
// function of its input so completion order cannot influence the result.
func blend(in blendInput) ([]TransitionCandidate, blendStats) {
	var stats blendStats

	merged := mergeResults(in.results)
	stats.collected = len(merged)

	pool := make([]TransitionCandidate, 0, len(merged))
	for i := range merged {
		c := merged[i]
		if c.NodeID == in.tc.OriginNodeID || in.tc.InRouteWindow(c.NodeID) {
			stats.excluded++
			continue
		}
		pool = append(pool, c)
	}

	active := optionalFilters
	if in.maxFilters < len(active) {
		active = active[:in.maxFilters]
		stats.filtersTruncated = true
	}
	stats.filtersApplied = len(active)
	for _, f := range active {
		before := len(pool)
		pool = applyFilter(f, pool, in)
		stats.filtered += before - len(pool)
	}

	weights := in.weights
	if in.mode.Weights != nil {
		weights = *in.mode.Weights
	}

	for i := range pool {
		scoreCandidate(&pool[i], in, weights)
	}

	sort.SliceStable(pool, func(i, j int) bool {
		if pool[i].Score != pool[j].Score {
			return pool[i].Score > pool[j].Score
		}
		return pool[i].NodeID < pool[j].NodeID
	})

	if in.maxPool > 0 && len(pool) > in.maxPool {
		pool = pool[:in.maxPool]
	}
	for i := range pool {
		pool[i].Rank = i + 1
	}
	return pool, stats
}

// mergeResults deduplicates node IDs. The first provider in canonical order
// owns the candidate; factors take the per-factor maximum.
func mergeResults(results []providerResult) []TransitionCandidate {
	index := make(map[string]int)
	var out []TransitionCandidate

	for _, r := range results {
		for _, c := range r.candidates {
			if c.NodeID == "" {
				continue
			}
			if i, ok := index[c.NodeID]; ok {
				for name, v := range c.Factors {
					if v > out[i].Factors[name] {
						out[i].setFactor(name, v)
					}
				}
				continue
			}
			cp := c
			cp.Provider = r.name
			cp.Factors = make(map[string]float64, len(c.Factors)+4)
			for name, v := range c.Factors {
				cp.Factors[name] = v
			}
			index[c.NodeID] = len(out)
			out = append(out, cp)
		}
	}
	return out
}

func applyFilter(name string, pool []TransitionCandidate, in blendInput) []TransitionCandidate {
	out := pool[:0]
	for _, c := range pool {
		keep := true
		switch name {
		case FilterEdgeCondition:
			keep = EvalCondition(c.Condition, in.tc)
		case FilterPremiumGate:
			if n, ok := in.nodes[c.NodeID]; ok {
				keep = n.PremiumLevel <= in.tc.PremiumLevel
			}
		}
		if keep {
			out = append(out, c)
		}
	}
	return out
}

func scoreCandidate(c *TransitionCandidate, in blendInput, weights FactorWeights) {
	node, known := in.nodes[c.NodeID]

	if in.origin != nil && known {
		if sim := Jaccard(in.origin.Tags, node.Tags); sim > c.Factors[FactorTagSimilarity] {
			c.setFactor(FactorTagSimilarity, sim)
		}
	}
	if known {
		c.setFactor(FactorFreshness, freshness(node.UpdatedAt, in.tc.CreatedAt, in.halfLife))
		c.setFactor(FactorDiversityBonus, diversityBonus(node.Tags, in.window, in.mode.Diversity))
	} else {
		c.setFactor(FactorFreshness, neutralFactor)
		c.setFactor(FactorDiversityBonus, neutralFactor)
	}

	if c.Provider == ProviderManual {
		c.setFactor(FactorManual, 1)
		c.Score = in.manualScore
	} else {
		c.Score = weightedScore(c.Factors, weights, in.mode.CuratedBoost)
	}

	c.Badge = BadgeFor(c.Provider)
	c.Explain = explain(c)
}
