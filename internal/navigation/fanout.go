// Wayfinder - Navigation Transition Engine for Branching Narratives
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package navigation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("wayfinder.navigation")

// queryBudget counts provider calls still allowed for a decision.
type queryBudget struct {
	remaining int
	used      int
}

func (q *queryBudget) take() bool {
	if q.remaining <= 0 {
		return false
	}
	q.remaining--
	q.used++
	return true
}

// fanOut dispatches the named providers concurrently and gathers their
// results until all return, the deadline passes, or ctx is cancelled.
// Results are indexed by position in names, never by completion order.
func (r *Router) fanOut(ctx context.Context, deadline time.Time, req FetchRequest, names []string, s *sampler, queries *queryBudget) []providerResult {
	results := make([]providerResult, len(names))

	type indexed struct {
		idx int
		res providerResult
	}
	// Buffered so late providers never block after the gather loop returns.
	done := make(chan indexed, len(names))

	fanCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	start := time.Now()
	pending := 0
	for i, name := range names {
		results[i] = providerResult{name: name}

		p, outcome := r.dispatchable(name, &req.Mode)
		if outcome != "" {
			results[i].outcome = outcome
			continue
		}
		if !queries.take() {
			results[i].outcome = OutcomeSkipped
			continue
		}

		preq := req
		preq.Seed = s.providerSeed(name)
		pending++
		go func(idx int, p Provider, preq FetchRequest) {
			done <- indexed{idx: idx, res: r.callProvider(fanCtx, p, preq)}
		}(i, p, preq)
	}

	for pending > 0 {
		select {
		case got := <-done:
			results[got.idx] = got.res
			pending--
		case <-fanCtx.Done():
			elapsed := time.Since(start)
			for i := range results {
				if results[i].outcome != "" {
					continue
				}
				results[i].outcome = OutcomeTimeout
				results[i].latency = elapsed
				results[i].err = &ProviderError{Provider: results[i].name, Err: fanCtx.Err()}
			}
			pending = 0
		}
	}
	return results
}

// dispatchable resolves a provider for dispatch. A non-empty outcome means
// the provider is not called.
func (r *Router) dispatchable(name string, mode *ModeConfig) (Provider, ProviderOutcome) {
	if name == ProviderRandom && !mode.AllowRandom {
		return nil, OutcomeDisabled
	}
	p, ok := r.providers.Get(name)
	if !ok {
		return nil, OutcomeUnavailable
	}
	return p, ""
}

// callProvider runs one provider and classifies the outcome. Panics are
// demoted to provider errors.
func (r *Router) callProvider(ctx context.Context, p Provider, req FetchRequest) (res providerResult) {
	name := p.Name()
	ctx, span := tracer.Start(ctx, "navigation.provider",
		trace.WithAttributes(
			attribute.String("provider", name),
			attribute.String("mode", req.Mode.Name),
			attribute.Int("k", req.K),
		),
	)
	defer span.End()

	start := time.Now()
	res.name = name

	defer func() {
		if rec := recover(); rec != nil {
			err := fmt.Errorf("panic: %v", rec)
			res = providerResult{
				name:    name,
				outcome: OutcomeError,
				latency: time.Since(start),
				err:     &ProviderError{Provider: name, Err: err},
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, "provider panic")
		}
	}()

	candidates, err := p.Fetch(ctx, req)
	res.latency = time.Since(start)

	var withheld *WithheldError
	switch {
	case errors.As(err, &withheld):
		res.outcome = OutcomeWithheld
		res.err = withheld
	case err != nil:
		perr := &ProviderError{Provider: name, Err: err}
		res.err = perr
		res.outcome = OutcomeError
		if perr.Timeout() || ctx.Err() != nil {
			res.outcome = OutcomeTimeout
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	case len(candidates) == 0:
		res.outcome = OutcomeMiss
	default:
		if name != ProviderManual && req.K > 0 && len(candidates) > req.K {
			candidates = candidates[:req.K]
		}
		res.outcome = OutcomeHit
		res.candidates = candidates
	}

	span.SetAttributes(
		attribute.String("outcome", string(res.outcome)),
		attribute.Int("candidates", len(res.candidates)),
	)
	return res
}
