// Wayfinder - Navigation Transition Engine for Branching Narratives
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package main

import (
	"context"
	"fmt"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/wayfinder/internal/config"
	"github.com/tomtom215/wayfinder/internal/graphstore"
	"github.com/tomtom215/wayfinder/internal/logging"
	"github.com/tomtom215/wayfinder/internal/navigation"
)

// storeComponents holds the graph store as written to and as read by the
// engine. reader is the breaker-wrapped view when the breaker is enabled.
type storeComponents struct {
	store   graphstore.Store
	reader  navigation.GraphStore
	breaker *graphstore.Breaker
}

// initStore opens the configured backend, loads the seed file and wraps
// reads in the circuit breaker.
func initStore(ctx context.Context, cfg config.StoreConfig) (*storeComponents, error) {
	var store graphstore.Store
	switch cfg.Backend {
	case "badger":
		bs, err := graphstore.OpenBadgerStore(cfg.Path)
		if err != nil {
			return nil, err
		}
		store = bs
		logging.Info().Str("path", cfg.Path).Bool("in_memory", cfg.Path == "").Msg("Badger graph store opened")
	default:
		store = graphstore.NewMemoryStore()
		logging.Info().Msg("In-memory graph store created")
	}

	if cfg.SeedFile != "" {
		stats, err := graphstore.LoadSeedFile(ctx, cfg.SeedFile, store)
		if err != nil {
			if closeErr := store.Close(); closeErr != nil {
				logging.Error().Err(closeErr).Msg("Error closing graph store")
			}
			return nil, fmt.Errorf("seed graph store: %w", err)
		}
		logging.Info().
			Str("file", cfg.SeedFile).
			Int("tenants", stats.Tenants).
			Int("nodes", stats.Nodes).
			Int("edges", stats.Edges).
			Msg("Graph store seeded")
	}

	sc := &storeComponents{store: store, reader: store}
	if cfg.Breaker.Enabled {
		sc.breaker = graphstore.NewBreaker(store, graphstore.BreakerConfig{
			MaxRequests:  cfg.Breaker.MaxRequests,
			Interval:     cfg.Breaker.Interval,
			Timeout:      cfg.Breaker.Timeout,
			MinRequests:  cfg.Breaker.MinRequests,
			FailureRatio: cfg.Breaker.FailureRatio,
		})
		sc.reader = sc.breaker
	}
	return sc, nil
}

// healthCheck fails while the breaker is open.
func (sc *storeComponents) healthCheck(context.Context) error {
	if sc.breaker == nil {
		return nil
	}
	if state := sc.breaker.State(); state == gobreaker.StateOpen {
		return fmt.Errorf("graph store circuit %s", state)
	}
	return nil
}

func (sc *storeComponents) close() {
	if err := sc.store.Close(); err != nil {
		logging.Error().Err(err).Msg("Error closing graph store")
	}
}
