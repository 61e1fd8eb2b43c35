// Wayfinder - Navigation Transition Engine for Branching Narratives
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package navigation

import "strings"

// CacheKey builds the decision cache key for a context under a policies version.
// Format: nav:{tenant}:{user|anon}:{cache_seed}:{mode}:{policies_hash}
func CacheKey(tc *TransitionContext, policiesHash string) string {
	user := tc.UserID
	if user == "" {
		user = "anon"
	}
	var b strings.Builder
	b.Grow(16 + len(tc.TenantID) + len(user) + len(tc.CacheSeed) + len(tc.Mode) + len(policiesHash))
	b.WriteString("nav:")
	b.WriteString(tc.TenantID)
	b.WriteByte(':')
	b.WriteString(user)
	b.WriteByte(':')
	b.WriteString(tc.CacheSeed)
	b.WriteByte(':')
	b.WriteString(tc.Mode)
	b.WriteByte(':')
	b.WriteString(policiesHash)
	return b.String()
}

// cacheable reports whether a decision for tc may be served from or stored in the cache.
func (r *Router) cacheable(tc *TransitionContext, preview bool) bool {
	return !preview && r.cache != nil && r.cfg.Cache.Enabled && tc.CacheSeed != ""
}
