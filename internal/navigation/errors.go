// Wayfinder - Navigation Transition Engine for Branching Narratives
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package navigation

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrUnknownMode is returned when a context names a mode the registry does not hold.
	ErrUnknownMode = errors.New("unknown navigation mode")

	// ErrInvalidMode is returned when a mode definition fails validation.
	ErrInvalidMode = errors.New("invalid mode configuration")

	// ErrInvalidContext is returned when a TransitionContext is malformed.
	ErrInvalidContext = errors.New("invalid transition context")

	// ErrUnknownProvider is returned when registering or resolving a provider
	// outside the closed provider set.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrEmptyPool is the sentinel behind EmptyPoolError.
	ErrEmptyPool = errors.New("empty candidate pool")

	// ErrNotFound is returned by graph stores for missing nodes.
	ErrNotFound = errors.New("not found")
)

// ConfigError reports a caller or configuration bug. It is the only error
// Router.Next returns for a well-formed context.
type ConfigError struct {
	Mode string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Mode == "" {
		return fmt.Sprintf("navigation config: %v", e.Err)
	}
	return fmt.Sprintf("navigation config: mode %q: %v", e.Mode, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// ProviderError wraps a provider failure. The router absorbs it and records
// it in telemetry; it never reaches the caller.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Timeout reports whether the provider ran out of time.
func (e *ProviderError) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// WithheldError is returned by a provider that produced candidates but
// declined to contribute them, for example below a mode threshold.
type WithheldError struct {
	Provider string
	Reason   string
	Count    int
}

func (e *WithheldError) Error() string {
	return fmt.Sprintf("provider %s withheld %d candidates: %s", e.Provider, e.Count, e.Reason)
}

// EmptyPoolError is reported through TransitionDecision.EmptyPoolError when no
// destination could be chosen and fallback was disabled or unavailable.
type EmptyPoolError struct {
	Reason string
	Mode   string
}

func (e *EmptyPoolError) Error() string {
	return fmt.Sprintf("empty candidate pool for mode %q: %s", e.Mode, e.Reason)
}

func (e *EmptyPoolError) Unwrap() error { return ErrEmptyPool }
