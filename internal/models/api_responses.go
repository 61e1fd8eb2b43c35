// Wayfinder - Navigation Transition Engine for Branching Narratives
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package models

import (
	"time"
)

// Response status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// APIResponse is the envelope returned by every HTTP endpoint.
//
// Status is "success" with Data populated, or "error" with Error populated.
// A decision that ended with an empty pool is still a success; its Error
// carries the EMPTY_POOL code so clients can branch without parsing Data.
//
// Example:
//
//	{
//	  "status": "success",
//	  "data": {"id": "…", "selected_node_id": "n-42", ...},
//	  "metadata": {
//	    "timestamp": "2026-03-01T12:00:00Z",
//	    "query_time_ms": 4,
//	    "cached": false
//	  }
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata describes how a response was produced.
//
// QueryTimeMS is the handler's wall-clock time. Cached is set when a
// decision was replayed from the decision cache.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
	Cached      bool      `json:"cached,omitempty"`
}

// APIError is a machine-readable error.
//
// Codes in use:
//   - VALIDATION_ERROR: malformed or out-of-range request fields
//   - INVALID_CONTEXT: the transition context failed engine validation
//   - CONFIG_ERROR: the requested mode is unknown or misconfigured
//   - EMPTY_POOL: no candidate survived; the decision is still returned
//   - NOT_FOUND: the resource is disabled or does not exist
//   - RELOAD_THROTTLED: a policy reload was requested too soon
//   - RELOAD_FAILED: the policies file could not be loaded
//   - STORE_ERROR: the graph store rejected a write
//   - RATE_LIMIT_EXCEEDED: too many requests
//   - INTERNAL_ERROR: anything else
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
