// Wayfinder - Navigation Transition Engine for Branching Narratives
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

/*
Package api serves the navigation engine over HTTP.

Routes (chi):

	POST /api/v1/navigation/next          production decision
	POST /api/v1/navigation/preview       deterministic dry-run
	GET  /api/v1/navigation/modes         active registry and policies hash
	POST /api/v1/navigation/modes/reload  throttled policy reload
	POST /api/v1/navigation/traversals    record an observed move
	GET  /api/v1/navigation/history       recent decisions (404 when disabled)
	GET  /health, /health/live, /health/ready
	GET  /metrics                          Prometheus exposition

Every JSON body is a models.APIResponse. Status mapping for decisions:

  - malformed body or field: 400 VALIDATION_ERROR with per-field details
  - context rejected by the engine: 400 INVALID_CONTEXT
  - unknown or misconfigured mode: 422 CONFIG_ERROR
  - empty pool: 200 with the decision and an EMPTY_POOL error in the envelope

Global middleware runs in this order: request ID, real IP, panic recovery,
CORS, Prometheus metrics. The navigation group adds per-IP rate limiting
(httprate), security headers and gzip.

Usage:

	h := api.NewHandler(cfg, api.Deps{
	    Navigator:  router,
	    Registry:   holder,
	    Reloader:   reloadService,
	    Traversals: store,
	})
	srv := &http.Server{Addr: cfg.Server.Addr(), Handler: api.NewRouter(h, nil).SetupChi()}
*/
package api
