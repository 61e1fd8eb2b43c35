// Wayfinder - Navigation Transition Engine for Branching Narratives
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

// Package telemetry implements navigation.TelemetrySink.
//
// # Sinks
//
//   - PrometheusSink: folds each decision into the navigation_* metrics.
//   - EventSink: queues a DecisionEvent per decision and publishes it on a
//     Watermill topic from a background worker. The request path never
//     waits on the broker; a full queue drops the event and counts it.
//   - MultiSink: fans one decision out to several sinks, isolating panics.
//
// # Transport
//
// EventSink accepts any message.Publisher. NewNATSPublisher builds the
// watermill-nats publisher used in production, and EmbeddedServer runs an
// in-process nats-server for single-node deployments. Tests use the
// Watermill gochannel pub/sub.
package telemetry
