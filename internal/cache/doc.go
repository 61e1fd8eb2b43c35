// Wayfinder - Navigation Transition Engine for Branching Narratives
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

/*
Package cache provides thread-safe in-memory caching with TTL support.

# Overview

Cache is a generic TTL map guarded by sync.RWMutex:
  - per-entry expiry, checked lazily on Get and swept periodically
  - optional capacity bound; the entry closest to expiry is evicted first
  - hit, miss and eviction counters via GetStats
  - Close stops the background sweep

DecisionCache adapts Cache to navigation.DecisionCache. It deep-copies
decisions on the way in and out and reports hits and misses to the
decision_cache_* Prometheus counters.

# Usage Example

	dc := cache.NewDecisionCache(30*time.Second, 10000)
	defer dc.Close()
	router.SetCache(dc)

# Cache Keys

Keys are built by navigation.CacheKey:

	nav:{tenant}:{user|anon}:{cache_seed}:{mode}:{policies_hash}

Because the policies hash is part of the key, a policy reload never serves
a decision computed under the previous registry. Invalidate is still
called after reloads to release memory early.
*/
package cache
