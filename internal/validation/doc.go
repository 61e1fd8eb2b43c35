// Wayfinder - Navigation Transition Engine for Branching Narratives
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

// Package validation provides struct validation using go-playground/validator v10.
//
// A single validator instance is shared by the HTTP handlers and the
// configuration loader. Field names in errors use the json (or koanf) tag,
// so a failing request reports "tenant_id" and a failing config reports
// "server.port".
//
// # Custom tags
//
//   - nodeid: non-empty graph identifier without colons or whitespace
//   - modename: lowercase mode name ([a-z][a-z0-9_]*)
//
// # Usage
//
//	type TraversalRequest struct {
//	    TenantID string `json:"tenant_id" validate:"required,nodeid"`
//	    From     string `json:"from" validate:"omitempty,nodeid"`
//	    To       string `json:"to" validate:"required,nodeid"`
//	}
//
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    apiErr := verr.ToAPIError()
//	    respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
//	    return
//	}
package validation
