// Wayfinder - Navigation Transition Engine for Branching Narratives
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package navigation

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// neutralFactor is used when metadata needed for a factor is unavailable.
const neutralFactor = 0.5

// Jaccard returns |a ∩ b| / |a ∪ b| over two tag lists. Empty inputs yield 0.
func Jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(a))
	for _, t := range a {
		set[t] = struct{}{}
	}
	union := len(set)
	inter := 0
	seen := make(map[string]struct{}, len(b))
	for _, t := range b {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := set[t]; ok {
			inter++
		} else {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// freshness decays exponentially with age: 1 when updated at `now`, 0.5 after one half-life.
func freshness(updatedAt, now time.Time, halfLife time.Duration) float64 {
	if updatedAt.IsZero() || now.IsZero() {
		return neutralFactor
	}
	age := now.Sub(updatedAt)
	if age <= 0 {
		return 1
	}
	return math.Exp2(-float64(age) / float64(halfLife))
}

// windowDecay returns the recency weight of window position i (0 = oldest).
func windowDecay(kind DiversityKind, i, n int) float64 {
	if kind == DiversityStep || n <= 1 {
		return 1
	}
	return float64(i+1) / float64(n)
}

// diversityBonus is 1 minus the strongest recency-weighted similarity between
// the candidate and a node in the route window.
func diversityBonus(tags []string, window []Node, policy DiversityPolicy) float64 {
	if policy.Weight == 0 || len(window) == 0 || len(tags) == 0 {
		return 1
	}
	worst := 0.0
	for i := range window {
		sim := Jaccard(tags, window[i].Tags) * windowDecay(policy.Kind, i, len(window))
		if sim > worst {
			worst = sim
		}
	}
	return 1 - policy.Weight*worst
}

// weightedScore combines factors into a raw score.
func weightedScore(f map[string]float64, w FactorWeights, curatedBoost float64) float64 {
	return w.Curated*f[FactorCurated]*curatedBoost +
		w.TagSimilarity*f[FactorTagSimilarity] +
		w.Echo*f[FactorEchoWeight] +
		w.Freshness*f[FactorFreshness] +
		w.Diversity*f[FactorDiversityBonus]
}

// EvalCondition reports whether an authored edge condition holds for tc.
//
// Supported forms, joined with "&&":
//
//	premium>=N         traveller premium level is at least N
//	limit=ok|near_limit  limit state is one of the listed values
//	visited:NODE       NODE is in the route window
//	!visited:NODE      NODE is not in the route window
//
// An empty condition always holds. Unknown clauses never hold.
func EvalCondition(cond string, tc *TransitionContext) bool {
	cond = strings.TrimSpace(cond)
	if cond == "" {
		return true
	}
	for _, clause := range strings.Split(cond, "&&") {
		if !evalClause(strings.TrimSpace(clause), tc) {
			return false
		}
	}
	return true
}

func evalClause(clause string, tc *TransitionContext) bool {
	switch {
	case strings.HasPrefix(clause, "premium>="):
		n, err := strconv.Atoi(strings.TrimPrefix(clause, "premium>="))
		return err == nil && tc.PremiumLevel >= n
	case strings.HasPrefix(clause, "limit="):
		state := tc.LimitState
		if state == "" {
			state = LimitOK
		}
		for _, v := range strings.Split(strings.TrimPrefix(clause, "limit="), "|") {
			if LimitState(v) == state {
				return true
			}
		}
		return false
	case strings.HasPrefix(clause, "!visited:"):
		return !tc.InRouteWindow(strings.TrimPrefix(clause, "!visited:"))
	case strings.HasPrefix(clause, "visited:"):
		return tc.InRouteWindow(strings.TrimPrefix(clause, "visited:"))
	default:
		return false
	}
}
