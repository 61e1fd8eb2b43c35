// Wayfinder - Navigation Transition Engine for Branching Narratives
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package telemetry

import (
	"context"

	"github.com/tomtom215/wayfinder/internal/logging"
	"github.com/tomtom215/wayfinder/internal/navigation"
)

// MultiSink delivers each decision to every sink in order. A panicking
// sink is logged and skipped; the others still run.
type MultiSink []navigation.TelemetrySink

// NewMultiSink drops nil sinks.
func NewMultiSink(sinks ...navigation.TelemetrySink) MultiSink {
	out := make(MultiSink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

// RecordDecision implements navigation.TelemetrySink.
func (m MultiSink) RecordDecision(ctx context.Context, t *navigation.DecisionTelemetry) {
	for _, s := range m {
		deliver(ctx, s, t)
	}
}

func deliver(ctx context.Context, s navigation.TelemetrySink, t *navigation.DecisionTelemetry) {
	defer func() {
		if r := recover(); r != nil {
			logging.Ctx(ctx).Error().
				Interface("panic", r).
				Str("decision_id", t.DecisionID).
				Msg("Telemetry sink panicked")
		}
	}()
	s.RecordDecision(ctx, t)
}
