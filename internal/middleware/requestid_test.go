// Wayfinder - Navigation Transition Engine for Branching Narratives
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/tomtom215/wayfinder/internal/logging"
)

func TestRequestID_GeneratesNewID(t *testing.T) {
	var capturedID, capturedCorrelation string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedID = GetRequestID(r.Context())
		capturedCorrelation = logging.CorrelationIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	responseID := rec.Header().Get(RequestIDHeader)
	if _, err := uuid.Parse(responseID); err != nil {
		t.Errorf("Response X-Request-ID is not a valid UUID: %v", err)
	}
	if capturedID != responseID {
		t.Errorf("Context ID (%s) doesn't match response header ID (%s)", capturedID, responseID)
	}
	if capturedCorrelation == "" || capturedCorrelation != rec.Header().Get(CorrelationIDHeader) {
		t.Errorf("correlation ID %q not propagated", capturedCorrelation)
	}
}

func TestRequestID_PreservesExistingID(t *testing.T) {
	var capturedID, capturedCorrelation string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedID = GetRequestID(r.Context())
		capturedCorrelation = logging.CorrelationIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(RequestIDHeader, "upstream-123")
	req.Header.Set(CorrelationIDHeader, "trace-abc")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if capturedID != "upstream-123" || rec.Header().Get(RequestIDHeader) != "upstream-123" {
		t.Errorf("upstream request ID not preserved: ctx=%q header=%q", capturedID, rec.Header().Get(RequestIDHeader))
	}
	if capturedCorrelation != "trace-abc" {
		t.Errorf("upstream correlation ID not preserved: %q", capturedCorrelation)
	}
}

func TestRequestID_ReplacesUnsafeID(t *testing.T) {
	tests := []string{
		"has space",
		"line\nbreak",
		strings.Repeat("x", 300),
	}
	for _, upstream := range tests {
		var capturedID string
		handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			capturedID = GetRequestID(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(RequestIDHeader, upstream)
		handler.ServeHTTP(httptest.NewRecorder(), req)

		if capturedID == upstream {
			t.Errorf("unsafe upstream ID %q was kept", upstream)
		}
		if _, err := uuid.Parse(capturedID); err != nil {
			t.Errorf("replacement %q is not a UUID", capturedID)
		}
	}
}
