// Wayfinder - Navigation Transition Engine for Branching Narratives
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package navigation

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Router turns a TransitionContext into a TransitionDecision.
// It is safe for concurrent use once configured.
type Router struct {
	cfg    *Config
	logger zerolog.Logger

	registry  RegistrySource
	providers *ProviderRegistry
	store     GraphStore

	flags   FlagService
	sink    TelemetrySink
	cache   DecisionCache
	history *History

	now func() time.Time

	requestCount  atomic.Int64
	cacheHits     atomic.Int64
	cacheMisses   atomic.Int64
	fallbackCount atomic.Int64
	emptyCount    atomic.Int64
	errorCount    atomic.Int64
}

// Stats is a point-in-time snapshot of router counters.
type Stats struct {
	Requests    int64 `json:"requests"`
	CacheHits   int64 `json:"cache_hits"`
	CacheMisses int64 `json:"cache_misses"`
	Fallbacks   int64 `json:"fallbacks"`
	EmptyPools  int64 `json:"empty_pools"`
	Errors      int64 `json:"errors"`
}

// NewRouter creates a router. Fallback is disabled and telemetry discarded
// until SetFlags and SetTelemetrySink are called.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewRouter(cfg *Config, logger zerolog.Logger, registry RegistrySource, providers *ProviderRegistry, store GraphStore) (*Router, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if registry == nil || registry.Current() == nil {
		return nil, fmt.Errorf("mode registry is required")
	}
	if providers == nil {
		return nil, fmt.Errorf("provider registry is required")
	}
	if store == nil {
		return nil, fmt.Errorf("graph store is required")
	}

	r := &Router{
		cfg:       cfg,
		logger:    logger.With().Str("component", "navigation").Logger(),
		registry:  registry,
		providers: providers,
		store:     store,
		flags:     staticFlags(false),
		sink:      nopSink{},
		now:       time.Now,
	}
	if cfg.History.Enabled {
		r.history = NewHistory(cfg.History.Size)
	}
	return r, nil
}

// SetFlags sets the feature flag service.
func (r *Router) SetFlags(f FlagService) {
	if f == nil {
		f = staticFlags(false)
	}
	r.flags = f
}

// SetTelemetrySink sets the per-decision telemetry sink.
func (r *Router) SetTelemetrySink(s TelemetrySink) {
	if s == nil {
		s = nopSink{}
	}
	r.sink = s
}

// SetCache sets the production decision cache.
func (r *Router) SetCache(c DecisionCache) {
	r.cache = c
}

// SetClock overrides the clock used to stamp contexts that carry no created_at.
func (r *Router) SetClock(now func() time.Time) {
	r.now = now
}

// History returns the debug ring buffer, or nil when disabled.
func (r *Router) History() *History {
	return r.history
}

// Registry returns the active mode registry.
func (r *Router) Registry() *Registry {
	return r.registry.Current()
}

// Stats returns a snapshot of router counters.
func (r *Router) Stats() Stats {
	return Stats{
		Requests:    r.requestCount.Load(),
		CacheHits:   r.cacheHits.Load(),
		CacheMisses: r.cacheMisses.Load(),
		Fallbacks:   r.fallbackCount.Load(),
		EmptyPools:  r.emptyCount.Load(),
		Errors:      r.errorCount.Load(),
	}
}

// Next produces a production decision: unseeded sampling, cache enabled.
//
// The returned error is non-nil only for a malformed context
// (ErrInvalidContext) or a *ConfigError such as an unknown mode. Provider
// failures, budget exhaustion and empty pools are reported on the decision.
//
//nolint:gocritic // hugeParam: tc passed by value for immutability
func (r *Router) Next(ctx context.Context, tc TransitionContext, budget RoutingBudget) (*TransitionDecision, error) {
	return r.decide(ctx, tc, budget, false)
}

// Preview produces a dry-run decision with sampling seeded from the cache
// seed. It bypasses the cache and omits wall-clock telemetry so equal
// inputs yield identical decisions.
//
//nolint:gocritic // hugeParam: tc passed by value for immutability
func (r *Router) Preview(ctx context.Context, tc TransitionContext, budget RoutingBudget) (*TransitionDecision, error) {
	return r.decide(ctx, tc, budget, true)
}

//nolint:gocritic // hugeParam: tc passed by value for immutability
func (r *Router) decide(ctx context.Context, tc TransitionContext, budget RoutingBudget, preview bool) (*TransitionDecision, error) {
	start := time.Now()
	r.requestCount.Add(1)

	if err := tc.Validate(); err != nil {
		r.errorCount.Add(1)
		return nil, err
	}

	reg := r.registry.Current()
	mode, err := reg.Resolve(tc.Mode)
	if err != nil {
		r.errorCount.Add(1)
		return nil, err
	}
	hash := reg.PoliciesHash()

	tc = r.prepareContext(tc, preview)
	budget = budget.withDefaults(r.cfg.Budget)

	ctx, span := tracer.Start(ctx, "navigation.decide",
		trace.WithAttributes(
			attribute.String("mode", mode.Name),
			attribute.String("tenant_id", tc.TenantID),
			attribute.Bool("preview", preview),
		),
	)
	defer span.End()

	logger := r.requestLogger(&tc, preview)
	logger.Debug().Msg("processing navigation request")

	tel := &DecisionTelemetry{
		TenantID:     tc.TenantID,
		Mode:         mode.Name,
		PoliciesHash: hash,
		Preview:      preview,
	}
	if tc.PoliciesHash != "" && tc.PoliciesHash != hash {
		tel.PolicyMismatch = true
		logger.Warn().
			Str("requested_hash", tc.PoliciesHash).
			Str("active_hash", hash).
			Msg("policies hash mismatch, serving active registry")
	}

	var cacheKey string
	if r.cacheable(&tc, preview) {
		cacheKey = CacheKey(&tc, hash)
		if d := r.tryCached(ctx, cacheKey, &tc, tel, start, logger); d != nil {
			return d, nil
		}
	}

	d := &TransitionDecision{
		ID:           r.decisionID(&tc, hash, preview),
		Context:      tc,
		Candidates:   []TransitionCandidate{},
		LimitState:   tc.LimitState,
		Mode:         mode.Name,
		PoliciesHash: hash,
		Temperature:  mode.Temperature,
		Epsilon:      mode.Epsilon,
		Preview:      preview,
	}
	d.step(StateStart, "mode="+mode.Name)

	s := newSampler(preview, tc.CacheSeed)

	deadline := start.Add(budget.MaxTime())
	primaryDeadline := deadline
	if len(budget.FallbackChain) > 0 {
		share := time.Duration(float64(budget.MaxTime()) * r.cfg.Limits.PrimaryBudgetShare)
		primaryDeadline = start.Add(share)
	}

	// Context hydration overlaps the fan-out. Providers see the origin by id
	// only; its metadata is applied at blend time.
	hydrated := make(chan contextNodes, 1)
	go func() {
		hydrated <- r.hydrateContext(ctx, deadline, &tc, logger)
	}()

	queries := &queryBudget{remaining: budget.MaxQueries}
	req := FetchRequest{
		Context: tc,
		Origin:  bareOrigin(&tc),
		Mode:    mode,
		K:       min(mode.KBase, r.cfg.Limits.MaxK),
	}

	d.step(StateFanOut, fmt.Sprintf("providers=%d max_queries=%d max_time_ms=%d", len(mode.Providers), budget.MaxQueries, budget.MaxTimeMS))
	results := r.fanOut(ctx, primaryDeadline, req, mode.Providers, s, queries)
	hc := <-hydrated
	if hc.origin != nil {
		req.Origin = hc.origin
	}

	bin := blendInput{
		tc:          &tc,
		mode:        &mode,
		weights:     r.cfg.Weights,
		origin:      hc.origin,
		window:      hc.window,
		maxFilters:  budget.MaxFilters,
		manualScore: r.cfg.Scoring.ManualScore,
		halfLife:    r.cfg.Scoring.FreshnessHalfLife,
		maxPool:     r.cfg.Limits.MaxPoolSize,
	}
	pool, stats := r.blendResults(ctx, deadline, bin, results, logger)
	d.step(StateBlend, fmt.Sprintf("collected=%d excluded=%d filtered=%d", stats.collected, stats.excluded, stats.filtered))

	if len(pool) == 0 && len(budget.FallbackChain) > 0 {
		results, pool, stats = r.runFallbackChain(ctx, deadline, req, budget.FallbackChain, results, s, queries, bin, logger)
		d.step(StateBlend, fmt.Sprintf("fallback_chain pool=%d", len(pool)))
	}

	stats.hydrationTimeout = stats.hydrationTimeout || hc.timedOut

	for _, res := range results {
		var withheld *WithheldError
		if res.name == ProviderCurated && errors.As(res.err, &withheld) {
			d.CuratedBlockedReason = withheld.Reason
		}
	}

	if len(pool) > 0 {
		d.step(StateSelect, fmt.Sprintf("pool=%d temperature=%g epsilon=%g", len(pool), mode.Temperature, mode.Epsilon))
		probs := assignProbabilities(pool, mode.Temperature, mode.Epsilon)
		idx, draw := s.pick(probs)
		d.Candidates = pool
		d.PoolSize = len(pool)
		d.SelectedNodeID = pool[idx].NodeID
		d.Sampling = &SamplingTrace{
			Deterministic: s.deterministic,
			SeedHash:      s.seedHash,
			Draw:          draw,
			WinnerRank:    pool[idx].Rank,
		}
		d.step(StateDecision, "selected="+d.SelectedNodeID)
	} else {
		reason := emptyPoolReason(results, stats)
		d.step(StateFallbackCheck, "reason="+reason)
		r.applyFallback(ctx, d, reason, logger)
		r.emptyCount.Add(1)
	}
	d.step(StateTerminal, "")
	d.UISlotsGranted = r.grantSlots(d)

	r.fillTelemetry(tel, d, results, stats, queries)
	tel.Duration = time.Since(start)
	tel.RecordedAt = r.now()
	d.Telemetry = tel.Metrics(!preview)

	r.sink.RecordDecision(ctx, tel)
	if r.history != nil {
		r.history.Record(d)
	}
	if cacheKey != "" {
		r.cacheMisses.Add(1)
		r.cache.Set(ctx, cacheKey, d, r.cfg.Cache.TTL)
	}

	span.SetAttributes(
		attribute.Int("pool_size", d.PoolSize),
		attribute.Bool("emergency_used", d.EmergencyUsed),
		attribute.Bool("empty_pool", d.EmptyPool),
	)
	if err := d.EmptyPoolError(); err != nil {
		span.SetStatus(codes.Error, err.Error())
	}

	logger.Debug().
		Str("decision_id", d.ID).
		Str("selected", d.SelectedNodeID).
		Int("pool_size", d.PoolSize).
		Int("queries_used", queries.used).
		Dur("latency", tel.Duration).
		Msg("navigation decision complete")

	return d, nil
}

// prepareContext normalizes defaults and bounds the route window.
//
//nolint:gocritic // hugeParam: tc passed by value for immutability
func (r *Router) prepareContext(tc TransitionContext, preview bool) TransitionContext {
	if tc.LimitState == "" {
		tc.LimitState = LimitOK
	}
	if n := r.cfg.Limits.MaxRouteWindow; len(tc.RouteWindow) > n {
		tc.RouteWindow = tc.RouteWindow[len(tc.RouteWindow)-n:]
	}
	tc.RouteWindow = append([]string(nil), tc.RouteWindow...)
	if tc.CreatedAt.IsZero() && !preview {
		tc.CreatedAt = r.now()
	}
	return tc
}

// requestLogger creates a logger with request context.
func (r *Router) requestLogger(tc *TransitionContext, preview bool) zerolog.Logger {
	return r.logger.With().
		Str("session_id", tc.SessionID).
		Str("tenant_id", tc.TenantID).
		Str("mode", tc.Mode).
		Str("origin", tc.OriginNodeID).
		Bool("preview", preview).
		Logger()
}

// decisionID is random in production and derived from the seed in preview.
func (r *Router) decisionID(tc *TransitionContext, hash string, preview bool) string {
	if !preview {
		return uuid.NewString()
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(tc.CacheSeed+"|"+tc.Mode+"|"+hash)).String()
}

// contextNodes is the hydrated origin and route window.
type contextNodes struct {
	origin   *Node
	window   []Node
	timedOut bool
}

// bareOrigin is the origin without metadata, nil on cold start.
func bareOrigin(tc *TransitionContext) *Node {
	if tc.OriginNodeID == "" {
		return nil
	}
	return &Node{ID: tc.OriginNodeID, TenantID: tc.TenantID}
}

// hydrateContext loads the origin and route window nodes in one store call
// bounded by the decision deadline. Failures and timeouts degrade to an
// origin without metadata and an empty window.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func (r *Router) hydrateContext(ctx context.Context, deadline time.Time, tc *TransitionContext, logger zerolog.Logger) contextNodes {
	ids := make([]string, 0, len(tc.RouteWindow)+1)
	if tc.OriginNodeID != "" {
		ids = append(ids, tc.OriginNodeID)
	}
	ids = append(ids, tc.RouteWindow...)
	if len(ids) == 0 {
		return contextNodes{}
	}

	nodes, err := r.nodesBefore(ctx, deadline, ids)
	if err != nil {
		logger.Warn().Err(err).Msg("context hydration failed")
	}

	hc := contextNodes{origin: bareOrigin(tc), timedOut: errors.Is(err, context.DeadlineExceeded)}
	if n, ok := nodes[tc.OriginNodeID]; ok && hc.origin != nil {
		hc.origin = &n
	}
	hc.window = make([]Node, 0, len(tc.RouteWindow))
	for _, id := range tc.RouteWindow {
		if n, ok := nodes[id]; ok {
			hc.window = append(hc.window, n)
		}
	}
	return hc
}

// nodesBefore looks up nodes but gives up at deadline, even when the store
// ignores context cancellation. An abandoned lookup finishes in the background.
func (r *Router) nodesBefore(ctx context.Context, deadline time.Time, ids []string) (map[string]Node, error) {
	cctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	type lookup struct {
		nodes map[string]Node
		err   error
	}
	done := make(chan lookup, 1)
	go func() {
		nodes, err := r.store.Nodes(cctx, ids)
		done <- lookup{nodes: nodes, err: err}
	}()

	select {
	case got := <-done:
		return got.nodes, got.err
	case <-cctx.Done():
		return nil, fmt.Errorf("hydrate %d nodes: %w", len(ids), cctx.Err())
	}
}

// blendResults hydrates candidate metadata with one bounded store call and
// blends.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func (r *Router) blendResults(ctx context.Context, deadline time.Time, in blendInput, results []providerResult, logger zerolog.Logger) ([]TransitionCandidate, blendStats) {
	in.results = results

	seen := make(map[string]struct{})
	ids := make([]string, 0)
	for _, res := range results {
		for _, c := range res.candidates {
			if _, dup := seen[c.NodeID]; dup || c.NodeID == "" {
				continue
			}
			seen[c.NodeID] = struct{}{}
			ids = append(ids, c.NodeID)
		}
	}
	var timedOut bool
	if len(ids) > 0 {
		nodes, err := r.nodesBefore(ctx, deadline, ids)
		if err != nil {
			logger.Warn().Err(err).Int("ids", len(ids)).Msg("candidate hydration failed, using neutral factors")
			timedOut = errors.Is(err, context.DeadlineExceeded)
		}
		in.nodes = nodes
	}
	pool, stats := blend(in)
	stats.hydrationTimeout = timedOut
	return pool, stats
}

// runFallbackChain consults chain providers one at a time, inside the
// remaining time and query budget, until the pool is non-empty.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func (r *Router) runFallbackChain(ctx context.Context, deadline time.Time, req FetchRequest, chain []string, results []providerResult, s *sampler, queries *queryBudget, bin blendInput, logger zerolog.Logger) ([]providerResult, []TransitionCandidate, blendStats) {
	tried := make(map[string]struct{}, len(results))
	for _, res := range results {
		if res.outcome.Dispatched() {
			tried[res.name] = struct{}{}
		}
	}

	var (
		pool  []TransitionCandidate
		stats blendStats
	)
	for _, name := range chain {
		if _, done := tried[name]; done {
			continue
		}
		tried[name] = struct{}{}

		res := providerResult{name: name, chain: true}
		p, outcome := r.dispatchable(name, &req.Mode)
		switch {
		case outcome != "":
			res.outcome = outcome
		case !time.Now().Before(deadline) || ctx.Err() != nil:
			res.outcome = OutcomeSkipped
		case !queries.take():
			res.outcome = OutcomeSkipped
		default:
			preq := req
			preq.Seed = s.providerSeed(name)
			cctx, cancel := context.WithDeadline(ctx, deadline)
			res = r.callProvider(cctx, p, preq)
			cancel()
			res.chain = true
		}
		results = append(results, res)

		if res.outcome != OutcomeHit {
			continue
		}
		pool, stats = r.blendResults(ctx, deadline, bin, results, logger)
		if len(pool) > 0 {
			logger.Debug().Str("provider", name).Int("pool", len(pool)).Msg("fallback chain filled pool")
			return results, pool, stats
		}
	}
	if pool == nil {
		pool, stats = r.blendResults(ctx, deadline, bin, results, logger)
	}
	return results, pool, stats
}

// grantSlots decides how many UI slots the caller may render.
func (r *Router) grantSlots(d *TransitionDecision) int {
	if !d.HasSelection() {
		return 0
	}
	if d.EmergencyUsed || d.LimitState == LimitLimited {
		return 1
	}
	want := d.Context.RequestedUISlots
	if want < 1 {
		want = 1
	}
	return min(want, r.cfg.Limits.MaxUISlots, d.PoolSize)
}

func (r *Router) fillTelemetry(tel *DecisionTelemetry, d *TransitionDecision, results []providerResult, stats blendStats, queries *queryBudget) {
	tel.DecisionID = d.ID
	tel.PoolSize = d.PoolSize
	tel.SelectedNodeID = d.SelectedNodeID
	tel.FallbackUsed = d.EmergencyUsed
	tel.EmptyPool = d.EmptyPool
	tel.EmptyPoolReason = d.EmptyPoolReason
	tel.QueriesUsed = queries.used
	tel.FiltersApplied = stats.filtersApplied
	tel.FiltersTruncated = stats.filtersTruncated
	tel.BudgetExceeded = stats.hydrationTimeout

	tel.Providers = make([]ProviderTelemetry, 0, len(results))
	for _, res := range results {
		pt := ProviderTelemetry{
			Provider:   res.name,
			Outcome:    res.outcome,
			Candidates: len(res.candidates),
			Latency:    res.latency,
			Chain:      res.chain,
		}
		if res.err != nil {
			pt.Error = res.err.Error()
		}
		if res.outcome == OutcomeTimeout || res.outcome == OutcomeSkipped {
			tel.BudgetExceeded = true
		}
		tel.Providers = append(tel.Providers, pt)
	}
}

// tryCached serves a memoized production decision. The key does not cover
// the traveller's position, so a hit whose selection is now the origin or
// inside the route window is treated as a miss.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func (r *Router) tryCached(ctx context.Context, key string, tc *TransitionContext, tel *DecisionTelemetry, start time.Time, logger zerolog.Logger) *TransitionDecision {
	cached, ok := r.cache.Get(ctx, key)
	if !ok || cached == nil {
		return nil
	}
	if sel := cached.SelectedNodeID; sel != "" && (sel == tc.OriginNodeID || tc.InRouteWindow(sel)) {
		logger.Debug().Str("selected", sel).Msg("cached decision already visited, recomputing")
		return nil
	}
	r.cacheHits.Add(1)

	d := cached.Clone()
	d.ServedFromCache = true
	d.Context = *tc
	d.Context.RouteWindow = slices.Clone(tc.RouteWindow)

	tel.DecisionID = d.ID
	tel.CacheHit = true
	tel.PoolSize = d.PoolSize
	tel.SelectedNodeID = d.SelectedNodeID
	tel.FallbackUsed = d.EmergencyUsed
	tel.EmptyPool = d.EmptyPool
	tel.EmptyPoolReason = d.EmptyPoolReason
	tel.Duration = time.Since(start)
	tel.RecordedAt = r.now()

	if d.Telemetry == nil {
		d.Telemetry = make(map[string]float64)
	}
	d.Telemetry["cache_hit"] = 1
	d.Telemetry["policy_mismatch"] = boolMetric(tel.PolicyMismatch)

	r.sink.RecordDecision(ctx, tel)
	if r.history != nil {
		r.history.Record(d)
	}
	logger.Debug().Str("decision_id", d.ID).Msg("cache hit")
	return d
}
