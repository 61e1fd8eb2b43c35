// Wayfinder - Navigation Transition Engine for Branching Narratives
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/wayfinder/internal/api"
	"github.com/tomtom215/wayfinder/internal/cache"
	"github.com/tomtom215/wayfinder/internal/config"
	"github.com/tomtom215/wayfinder/internal/flags"
	"github.com/tomtom215/wayfinder/internal/logging"
	"github.com/tomtom215/wayfinder/internal/navigation"
	"github.com/tomtom215/wayfinder/internal/navigation/providers"
	"github.com/tomtom215/wayfinder/internal/supervisor"
	"github.com/tomtom215/wayfinder/internal/supervisor/services"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(); err != nil {
		logging.Fatal().Err(err).Msg("Wayfinder exited with error")
	}
}

//nolint:gocyclo // sequential startup wiring
func run() error {
	cfg, err := config.Load()
	if err != nil {
		// Logging is not configured yet; the default logger still writes JSON.
		return err
	}

	logging.Init(cfg.Logging)
	logging.Info().Str("version", version).Str("config", cfg.String()).Msg("Starting Wayfinder")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// === GRAPH STORE ===
	stores, err := initStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer stores.close()

	// === FLAGS AND CACHE ===
	flagSvc := flags.NewStatic(cfg.Flags.Map())
	if names := flagSvc.Names(); len(names) > 0 {
		logging.Info().Strs("flags", names).Msg("Feature flags loaded")
	}

	var decisionCache *cache.DecisionCache
	var invalidator services.Invalidator
	if cfg.Navigation.Cache.Enabled {
		decisionCache = cache.NewDecisionCache(cfg.Navigation.Cache.TTL, cfg.Cache.Capacity)
		invalidator = decisionCache
		defer decisionCache.Close()
		logging.Info().
			Dur("ttl", cfg.Navigation.Cache.TTL).
			Int("capacity", cfg.Cache.Capacity).
			Msg("Decision cache enabled")
	}

	// === TELEMETRY ===
	tel, err := initTelemetry(cfg.Telemetry)
	if err != nil {
		return err
	}
	defer tel.close()

	// === MODE REGISTRY ===
	policySource := config.NewPolicySource(cfg.Policies)
	registry, err := policySource.Load()
	if err != nil {
		return err
	}
	holder := navigation.NewRegistryHolder(registry)
	logging.Info().
		Str("policies_hash", registry.PoliciesHash()).
		Strs("modes", registry.Names()).
		Str("path", cfg.Policies.Path).
		Msg("Mode registry loaded")

	// === ROUTER ===
	provs, err := providers.NewDefaultRegistry(stores.reader, cfg.Navigation.Limits.EligibleLimit)
	if err != nil {
		return err
	}
	router, err := navigation.NewRouter(&cfg.Navigation, logging.WithComponent("navigation"), holder, provs, stores.reader)
	if err != nil {
		return err
	}
	router.SetFlags(flagSvc)
	router.SetTelemetrySink(tel.sink)
	if decisionCache != nil {
		router.SetCache(decisionCache)
	}

	reloader := services.NewPolicyReloadService(policySource, holder, invalidator, services.PolicyReloadConfigFrom(cfg.Policies))

	// === HTTP ===
	handler := api.NewHandler(cfg, api.Deps{
		Navigator:  router,
		Registry:   holder,
		Reloader:   reloader,
		Traversals: stores.store,
		Checks: map[string]api.HealthCheck{
			"graph_store": stores.healthCheck,
			"nats":        tel.natsHealthCheck,
		},
		Version: version,
	})
	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      api.NewRouter(handler, nil).SetupChi(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	if cfg.Security.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED (security.rate_limit_disabled)")
	}
	if cfg.ShouldWarnAboutCORS() {
		logging.Warn().Msg("CORS allows any origin (security.cors_origins=*)")
	}

	// === SUPERVISOR TREE ===
	treeCfg := supervisor.DefaultTreeConfig()
	treeCfg.ShutdownTimeout = cfg.Server.ShutdownTimeout
	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), treeCfg)
	if err != nil {
		return err
	}

	tree.AddPolicyService(reloader)
	if tel.events != nil {
		tree.AddEventService(tel.events)
	}
	if tel.local != nil {
		tree.AddEventService(&eventLogService{sub: tel.local, topic: tel.topic})
	}
	if tel.embedded != nil {
		tree.AddEventService(services.NewNATSServerService(tel.embedded, cfg.Server.ShutdownTimeout))
	}
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	logging.Info().Str("addr", server.Addr).Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	// errCh receives exactly one value and is never closed.
	var treeErr error
	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutdown signal received, waiting for services to stop")
		treeErr = <-errCh
	case treeErr = <-errCh:
	}
	stop()
	if treeErr != nil && !errors.Is(treeErr, context.Canceled) {
		logging.Error().Err(treeErr).Msg("Supervisor tree error")
	}

	logUnstopped(tree.UnstoppedServiceReport)

	stats := router.Stats()
	logging.Info().
		Int64("requests", stats.Requests).
		Int64("fallbacks", stats.Fallbacks).
		Int64("errors", stats.Errors).
		Msg("Wayfinder stopped")
	return nil
}

// logUnstopped warns about services still running after shutdown.
func logUnstopped(report func() ([]suture.UnstoppedService, error)) {
	unstopped, err := report()
	if err != nil {
		logging.Warn().Err(err).Msg("Could not report unstopped services")
	}
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}
}
