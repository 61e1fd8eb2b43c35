// Wayfinder - Navigation Transition Engine for Branching Narratives
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/tomtom215/wayfinder/internal/logging"
	"github.com/tomtom215/wayfinder/internal/models"
	"github.com/tomtom215/wayfinder/internal/navigation"
)

type decideFunc func(ctx context.Context, tc navigation.TransitionContext, budget navigation.RoutingBudget) (*navigation.TransitionDecision, error)

// NavigationNext handles POST /api/v1/navigation/next.
//
// The body is a models.DecisionRequest. The response data is the
// navigation.TransitionDecision. A decision with an empty pool is still a
// 200; its envelope carries an EMPTY_POOL error so clients can branch on it.
func (h *Handler) NavigationNext(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.nav.Next, h.now())
}

// NavigationPreview handles POST /api/v1/navigation/preview.
//
// Same contract as NavigationNext, but sampling is seeded from
// context.cache_seed, the decision cache is bypassed and, unless the
// events config says otherwise, no decision event is published.
func (h *Handler) NavigationPreview(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.nav.Preview, time.Time{})
}

// decide runs fn on the decoded request. Previews pass a zero now so
// identical requests produce identical decisions.
func (h *Handler) decide(w http.ResponseWriter, r *http.Request, fn decideFunc, now time.Time) {
	start := time.Now()

	var req models.DecisionRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	d, err := fn(r.Context(), req.Context.ToContext(now), req.Budget.ToBudget())
	if err != nil {
		status, code := decisionErrorStatus(err)
		message := err.Error()
		if status >= http.StatusInternalServerError {
			message = "Navigation decision failed"
		}
		respondError(w, r, status, code, message, err)
		return
	}

	resp := &models.APIResponse{
		Status: models.StatusSuccess,
		Data:   d,
		Metadata: models.Metadata{
			Timestamp:   time.Now(),
			QueryTimeMS: time.Since(start).Milliseconds(),
			Cached:      d.ServedFromCache,
		},
	}
	if emptyErr := d.EmptyPoolError(); emptyErr != nil {
		resp.Error = &models.APIError{
			Code:    CodeEmptyPool,
			Message: emptyErr.Error(),
			Details: map[string]interface{}{
				"reason": d.EmptyPoolReason,
				"mode":   d.Mode,
			},
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

// Modes handles GET /api/v1/navigation/modes.
func (h *Handler) Modes(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	respondSuccess(w, start, models.NewModesResponse(h.registry.Current()))
}

// ReloadModes handles POST /api/v1/navigation/modes/reload.
//
// A successful reload that produced the same registry reports changed=false.
// A request inside the minimum reload gap is answered with 429 and no load
// is attempted. A policies file that fails to load leaves the active
// registry in place and answers 422.
func (h *Handler) ReloadModes(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if h.reloader == nil {
		respondError(w, r, http.StatusNotFound, CodeNotFound, "Policy reload is not configured", nil)
		return
	}

	result, err := h.reloader.Reload(r.Context())
	if err != nil {
		respondError(w, r, http.StatusUnprocessableEntity, CodeReloadFailed, err.Error(), err)
		return
	}
	if result.Throttled {
		respondJSON(w, http.StatusTooManyRequests, &models.APIResponse{
			Status:   models.StatusError,
			Data:     result,
			Metadata: models.Metadata{Timestamp: time.Now()},
			Error: &models.APIError{
				Code:    CodeReloadThrottled,
				Message: "Policy reload requested too soon after the previous one",
			},
		})
		return
	}

	logging.Ctx(r.Context()).Info().
		Bool("changed", result.Changed).
		Str("policies_hash", result.PoliciesHash).
		Int("modes", result.Modes).
		Msg("Policy reload requested via API")
	respondSuccess(w, start, result)
}

// RecordTraversal handles POST /api/v1/navigation/traversals.
func (h *Handler) RecordTraversal(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if h.traversals == nil {
		respondError(w, r, http.StatusNotFound, CodeNotFound, "Traversal recording is not configured", nil)
		return
	}

	var req models.TraversalRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	if err := h.traversals.RecordTraversal(r.Context(), req.TenantID, req.From, req.To); err != nil {
		status, code := storeErrorStatus(err)
		message := "Failed to record traversal"
		if status < http.StatusInternalServerError {
			message = err.Error()
		}
		respondError(w, r, status, code, message, err)
		return
	}
	respondSuccess(w, start, req)
}

// History handles GET /api/v1/navigation/history.
//
// Query parameters:
//   - limit: return only the newest N decisions (1 to the history capacity)
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	hist := h.nav.History()
	if hist == nil {
		respondError(w, r, http.StatusNotFound, CodeNotFound, "Decision history is disabled", nil)
		return
	}

	decisions := hist.Snapshot()
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > hist.Cap() {
			respondError(w, r, http.StatusBadRequest, CodeValidation,
				"limit must be between 1 and "+strconv.Itoa(hist.Cap()), nil)
			return
		}
		if limit < len(decisions) {
			decisions = decisions[len(decisions)-limit:]
		}
	}

	respondSuccess(w, start, models.HistoryResponse{
		Capacity:  hist.Cap(),
		Decisions: decisions,
	})
}
