// Wayfinder - Navigation Transition Engine for Branching Narratives
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package api

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/tomtom215/wayfinder/internal/models"
)

// healthCheckTimeout bounds each readiness check.
const healthCheckTimeout = 2 * time.Second

// Health status values.
const (
	healthHealthy  = "healthy"
	healthDegraded = "degraded"
)

// Health handles GET /health.
//
// Always answers 200 so load balancers can tell a degraded process from a
// dead one; the body says which dependency is unhealthy.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	checks, healthy := h.runChecks(r.Context())

	reg := h.registry.Current()
	status := models.HealthStatus{
		Status:       healthHealthy,
		Version:      h.version,
		Uptime:       time.Since(h.startTime).Seconds(),
		PoliciesHash: reg.PoliciesHash(),
		Modes:        reg.Len(),
		Router:       h.nav.Stats(),
		Checks:       checks,
	}
	if !healthy {
		status.Status = healthDegraded
	}
	if h.reloader != nil {
		if err := h.reloader.LastError(); err != nil {
			status.LastReloadErr = err.Error()
		}
	}

	respondSuccess(w, start, status)
}

// HealthLive handles GET /health/live. The process answering is enough.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, time.Now(), map[string]string{"status": "alive"})
}

// HealthReady handles GET /health/ready. It answers 503 while any
// dependency check fails or the registry holds no modes.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	checks, healthy := h.runChecks(r.Context())
	if h.registry.Current().Len() == 0 {
		checks["registry"] = "no modes loaded"
		healthy = false
	}

	if !healthy {
		respondJSON(w, http.StatusServiceUnavailable, &models.APIResponse{
			Status:   models.StatusError,
			Data:     checks,
			Metadata: models.Metadata{Timestamp: time.Now()},
			Error: &models.APIError{
				Code:    CodeUnavailable,
				Message: "Service not ready",
			},
		})
		return
	}
	respondSuccess(w, start, map[string]interface{}{"status": "ready", "checks": checks})
}

// runChecks runs every registered check in name order.
func (h *Handler) runChecks(ctx context.Context) (map[string]string, bool) {
	results := make(map[string]string, len(h.checks)+1)
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	healthy := true
	for _, name := range names {
		cctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
		err := h.checks[name](cctx)
		cancel()
		if err != nil {
			results[name] = err.Error()
			healthy = false
			continue
		}
		results[name] = "ok"
	}
	return results, healthy
}
