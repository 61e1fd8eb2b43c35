// Wayfinder - Navigation Transition Engine for Branching Narratives
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package navigation

import (
	"context"

	"github.com/rs/zerolog"
)

// fallbackEnabled consults the fallback flag, preferring a per-mode override.
func (r *Router) fallbackEnabled(ctx context.Context, mode string) bool {
	name := r.cfg.Fallback.FlagName
	if lookup, ok := r.flags.(FlagLookup); ok {
		if enabled, set := lookup.Lookup(ctx, name+"."+mode); set {
			return enabled
		}
	}
	return r.flags.IsEnabled(ctx, name)
}

// applyFallback runs the FallbackCheck state for an empty pool.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func (r *Router) applyFallback(ctx context.Context, d *TransitionDecision, reason string, logger zerolog.Logger) {
	d.PoolSize = 0
	d.EmptyPool = true
	d.EmptyPoolReason = reason

	if !r.fallbackEnabled(ctx, d.Mode) {
		logger.Debug().Str("reason", reason).Msg("empty pool, fallback disabled")
		return
	}

	nodeID, source := r.resolveFallback(ctx, &d.Context, logger)
	if nodeID == "" {
		d.EmptyPoolReason = ReasonFallbackUnavailable
		logger.Warn().Str("reason", reason).Msg("empty pool and no fallback node available")
		return
	}

	d.SelectedNodeID = nodeID
	d.EmergencyUsed = true
	r.fallbackCount.Add(1)
	logger.Info().
		Str("reason", reason).
		Str("fallback_node", nodeID).
		Str("source", source).
		Msg("fallback engaged")
}

// resolveFallback asks the graph store for the designated node and falls
// back to the configured default.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func (r *Router) resolveFallback(ctx context.Context, tc *TransitionContext, logger zerolog.Logger) (nodeID, source string) {
	fctx, cancel := context.WithTimeout(ctx, r.cfg.Limits.FallbackTimeout)
	defer cancel()

	id, err := r.store.FallbackNode(fctx, tc.TenantID, tc.OriginNodeID)
	if err != nil {
		logger.Warn().Err(err).Msg("fallback lookup failed")
	}
	if id != "" {
		return id, "graph"
	}
	if r.cfg.Fallback.DefaultNodeID != "" {
		return r.cfg.Fallback.DefaultNodeID, "default"
	}
	return "", ""
}

// emptyPoolReason classifies why no candidate survived.
func emptyPoolReason(results []providerResult, stats blendStats) string {
	dispatched, failed, timeouts := 0, 0, 0
	skipped := false
	for _, res := range results {
		if res.outcome == OutcomeSkipped {
			skipped = true
		}
		if !res.outcome.Dispatched() {
			continue
		}
		dispatched++
		if res.outcome.failed() {
			failed++
		}
		if res.outcome == OutcomeTimeout {
			timeouts++
		}
	}

	switch {
	case dispatched == 0 && skipped:
		return ReasonBudgetExhausted
	case dispatched == 0:
		return ReasonNoProviders
	case stats.collected > 0:
		return ReasonAllFiltered
	case failed == dispatched && timeouts == failed:
		return ReasonBudgetExhausted
	case failed == dispatched:
		return ReasonAllProvidersFailed
	case skipped || timeouts > 0:
		return ReasonBudgetExhausted
	default:
		return ReasonNoCandidates
	}
}
