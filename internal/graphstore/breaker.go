// Wayfinder - Navigation Transition Engine for Branching Narratives
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package graphstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/wayfinder/internal/logging"
	"github.com/tomtom215/wayfinder/internal/metrics"
	"github.com/tomtom215/wayfinder/internal/navigation"
)

// BreakerConfig tunes the graph store circuit breaker.
type BreakerConfig struct {
	Name         string
	MaxRequests  uint32        // concurrent probes in half-open state
	Interval     time.Duration // closed-state count reset period
	Timeout      time.Duration // open-state wait before half-open
	MinRequests  uint32        // requests before the failure ratio is considered
	FailureRatio float64
}

// DefaultBreakerConfig returns the production breaker settings.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:         "graphstore",
		MaxRequests:  3,
		Interval:     time.Minute,
		Timeout:      30 * time.Second,
		MinRequests:  20,
		FailureRatio: 0.5,
	}
}

// Breaker wraps a GraphStore with circuit breaker protection. While open,
// calls fail fast with gobreaker.ErrOpenState and providers report errors
// instead of waiting on a dead backend.
//
// Caller cancellation and deadline expiry count as successes: they reflect
// the routing budget, not backend health.
type Breaker struct {
	store navigation.GraphStore
	cb    *gobreaker.CircuitBreaker[any]
	name  string
}

// NewBreaker wraps store.
func NewBreaker(store navigation.GraphStore, cfg BreakerConfig) *Breaker {
	def := DefaultBreakerConfig()
	if cfg.Name == "" {
		cfg.Name = def.Name
	}
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = def.MaxRequests
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MinRequests == 0 {
		cfg.MinRequests = def.MinRequests
	}
	if cfg.FailureRatio <= 0 || cfg.FailureRatio > 1 {
		cfg.FailureRatio = def.FailureRatio
	}

	metrics.CircuitBreakerState.WithLabelValues(cfg.Name).Set(0)
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(cfg.Name).Set(0)

	logger := logging.WithComponent("graphstore")

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			if ratio >= cfg.FailureRatio {
				logger.Warn().
					Str("breaker", cfg.Name).
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", ratio*100).
					Msg("graph store circuit opening")
				return true
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info().
				Str("breaker", name).
				Str("from", stateToString(from)).
				Str("to", stateToString(to)).
				Msg("graph store circuit state transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, stateToString(from), stateToString(to)).Inc()
			if to == gobreaker.StateClosed {
				metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
			}
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
	})

	return &Breaker{store: store, cb: cb, name: cfg.Name}
}

// State returns the current breaker state.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

// run executes fn through the breaker and records store metrics.
func run[T any](b *Breaker, op string, fn func() (T, error)) (T, error) {
	var zero T
	start := time.Now()
	result, err := b.cb.Execute(func() (any, error) {
		return fn()
	})
	metrics.RecordStoreOperation(op, time.Since(start), err)

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
			return zero, fmt.Errorf("%s: %w", op, err)
		}
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
		metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(b.name).Set(float64(b.cb.Counts().ConsecutiveFailures))
		return zero, err
	}

	metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(b.name).Set(0)

	typed, ok := result.(T)
	if !ok && result != nil {
		return zero, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

// OutgoingEdges implements navigation.GraphStore.
func (b *Breaker) OutgoingEdges(ctx context.Context, nodeID string) ([]navigation.Edge, error) {
	return run(b, "outgoing_edges", func() ([]navigation.Edge, error) {
		return b.store.OutgoingEdges(ctx, nodeID)
	})
}

// QuerySimilar implements navigation.GraphStore.
func (b *Breaker) QuerySimilar(ctx context.Context, nodeID string, k int) ([]string, error) {
	return run(b, "query_similar", func() ([]string, error) {
		return b.store.QuerySimilar(ctx, nodeID, k)
	})
}

// QueryPopular implements navigation.GraphStore.
func (b *Breaker) QueryPopular(ctx context.Context, tenantID, nodeID string, k int) ([]string, error) {
	return run(b, "query_popular", func() ([]string, error) {
		return b.store.QueryPopular(ctx, tenantID, nodeID, k)
	})
}

// CuratedPicks implements navigation.GraphStore.
func (b *Breaker) CuratedPicks(ctx context.Context, tenantID, nodeID string, k int) ([]string, error) {
	return run(b, "curated_picks", func() ([]string, error) {
		return b.store.CuratedPicks(ctx, tenantID, nodeID, k)
	})
}

// EligibleNodes implements navigation.GraphStore.
func (b *Breaker) EligibleNodes(ctx context.Context, tenantID string, limit int) ([]string, error) {
	return run(b, "eligible_nodes", func() ([]string, error) {
		return b.store.EligibleNodes(ctx, tenantID, limit)
	})
}

// Nodes implements navigation.GraphStore.
func (b *Breaker) Nodes(ctx context.Context, ids []string) (map[string]navigation.Node, error) {
	return run(b, "nodes", func() (map[string]navigation.Node, error) {
		return b.store.Nodes(ctx, ids)
	})
}

// FallbackNode implements navigation.GraphStore.
func (b *Breaker) FallbackNode(ctx context.Context, tenantID, originID string) (string, error) {
	return run(b, "fallback_node", func() (string, error) {
		return b.store.FallbackNode(ctx, tenantID, originID)
	})
}

// stateToFloat converts circuit breaker state to numeric value for metrics
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// stateToString converts circuit breaker state to string for logging
func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
