// Wayfinder - Navigation Transition Engine for Branching Narratives
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/tomtom215/wayfinder/internal/graphstore"
	"github.com/tomtom215/wayfinder/internal/navigation"
)

// Error codes returned in models.APIError.
const (
	CodeValidation      = "VALIDATION_ERROR"
	CodeInvalidContext  = "INVALID_CONTEXT"
	CodeConfig          = "CONFIG_ERROR"
	CodeEmptyPool       = "EMPTY_POOL"
	CodeNotFound        = "NOT_FOUND"
	CodeReloadThrottled = "RELOAD_THROTTLED"
	CodeReloadFailed    = "RELOAD_FAILED"
	CodeStore           = "STORE_ERROR"
	CodeRateLimited     = "RATE_LIMIT_EXCEEDED"
	CodeBodyTooLarge    = "BODY_TOO_LARGE"
	CodeTimeout         = "TIMEOUT"
	CodeUnavailable     = "SERVICE_UNAVAILABLE"
	CodeInternal        = "INTERNAL_ERROR"
)

// ErrMalformedBody is returned when a request body is not the expected JSON.
var ErrMalformedBody = errors.New("malformed request body")

// decisionErrorStatus maps a Router.Next or Preview error onto an HTTP status
// and error code.
func decisionErrorStatus(err error) (status int, code string) {
	var cfgErr *navigation.ConfigError
	switch {
	case errors.Is(err, navigation.ErrInvalidContext):
		return http.StatusBadRequest, CodeInvalidContext
	case errors.As(err, &cfgErr), errors.Is(err, navigation.ErrUnknownMode):
		return http.StatusUnprocessableEntity, CodeConfig
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, CodeTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, CodeUnavailable
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

// storeErrorStatus maps a graph store write error.
func storeErrorStatus(err error) (status int, code string) {
	switch {
	case errors.Is(err, graphstore.ErrInvalidID):
		return http.StatusBadRequest, CodeValidation
	case errors.Is(err, navigation.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	default:
		return http.StatusBadGateway, CodeStore
	}
}
