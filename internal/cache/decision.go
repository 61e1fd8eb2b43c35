// Wayfinder - Navigation Transition Engine for Branching Narratives
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package cache

import (
	"context"
	"time"

	"github.com/tomtom215/wayfinder/internal/metrics"
	"github.com/tomtom215/wayfinder/internal/navigation"
)

var _ navigation.DecisionCache = (*DecisionCache)(nil)

// DecisionCache memoizes production navigation decisions.
//
// Stored and returned decisions are deep copies, so a caller mutating the
// decision it was handed never affects another request.
type DecisionCache struct {
	store *Cache[*navigation.TransitionDecision]
}

// NewDecisionCache creates a decision cache holding at most capacity entries.
func NewDecisionCache(ttl time.Duration, capacity int) *DecisionCache {
	return &DecisionCache{
		store: New[*navigation.TransitionDecision](Options{TTL: ttl, Capacity: capacity}),
	}
}

// Get implements navigation.DecisionCache.
func (c *DecisionCache) Get(ctx context.Context, key string) (*navigation.TransitionDecision, bool) {
	if ctx.Err() != nil {
		return nil, false
	}
	d, ok := c.store.Get(key)
	if !ok {
		metrics.DecisionCacheMisses.Inc()
		return nil, false
	}
	metrics.DecisionCacheHits.Inc()
	return d.Clone(), true
}

// Set implements navigation.DecisionCache. A nil decision is ignored.
func (c *DecisionCache) Set(_ context.Context, key string, d *navigation.TransitionDecision, ttl time.Duration) {
	if d == nil {
		return
	}
	c.store.SetWithTTL(key, d.Clone(), ttl)
}

// Invalidate drops every memoized decision, e.g. after a policy reload or
// a graph write.
func (c *DecisionCache) Invalidate() {
	c.store.Clear()
}

// Stats returns the underlying cache counters.
func (c *DecisionCache) Stats() Stats {
	return c.store.GetStats()
}

// Close stops the background cleanup.
func (c *DecisionCache) Close() {
	c.store.Close()
}
