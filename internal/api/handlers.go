// Wayfinder - Navigation Transition Engine for Branching Narratives
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package api

import (
	"context"
	"time"

	"github.com/tomtom215/wayfinder/internal/config"
	"github.com/tomtom215/wayfinder/internal/models"
	"github.com/tomtom215/wayfinder/internal/navigation"
)

// Navigator produces transition decisions. Satisfied by *navigation.Router.
type Navigator interface {
	Next(ctx context.Context, tc navigation.TransitionContext, budget navigation.RoutingBudget) (*navigation.TransitionDecision, error)
	Preview(ctx context.Context, tc navigation.TransitionContext, budget navigation.RoutingBudget) (*navigation.TransitionDecision, error)

	// History returns nil when decision history is disabled.
	History() *navigation.History
	Stats() navigation.Stats
}

// PolicyReloader re-reads the mode registry on demand.
type PolicyReloader interface {
	Reload(ctx context.Context) (models.ReloadResult, error)

	// LastError is the most recent failed load, cleared by a successful one.
	LastError() error
}

// TraversalRecorder stores observed moves for the popularity providers.
type TraversalRecorder interface {
	RecordTraversal(ctx context.Context, tenantID, fromID, toID string) error
}

// HealthCheck reports a dependency's readiness. A nil error means ready.
type HealthCheck func(ctx context.Context) error

// Deps are the collaborators a Handler serves. Navigator and Registry are
// required; the rest switch their endpoints off when nil.
type Deps struct {
	Navigator  Navigator
	Registry   navigation.RegistrySource
	Reloader   PolicyReloader
	Traversals TraversalRecorder

	// Checks are run by the readiness probe, keyed by dependency name.
	Checks map[string]HealthCheck

	Version string
}

// Handler serves the navigation HTTP API.
type Handler struct {
	nav        Navigator
	registry   navigation.RegistrySource
	reloader   PolicyReloader
	traversals TraversalRecorder
	checks     map[string]HealthCheck
	config     *config.Config
	version    string
	startTime  time.Time
	now        func() time.Time
}

// NewHandler creates a handler over deps.
func NewHandler(cfg *config.Config, deps Deps) *Handler {
	version := deps.Version
	if version == "" {
		version = "dev"
	}
	return &Handler{
		nav:        deps.Navigator,
		registry:   deps.Registry,
		reloader:   deps.Reloader,
		traversals: deps.Traversals,
		checks:     deps.Checks,
		config:     cfg,
		version:    version,
		startTime:  time.Now(),
		now:        time.Now,
	}
}
