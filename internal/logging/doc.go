// Wayfinder - Navigation Transition Engine for Branching Narratives
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

// Package logging provides the global zerolog logger and its adapters.
//
// # Quick Start
//
//	logging.Init(logging.Config{Level: "info", Format: "json", Timestamp: true})
//	logging.Info().Str("addr", addr).Msg("HTTP server listening")
//	logging.Ctx(ctx).Warn().Err(err).Msg("Policy reload failed")
//
// Always terminate a chain with Msg or Send, otherwise nothing is written.
//
// # Context
//
// The HTTP middleware stores a request id and a correlation id on the
// request context. Ctx copies both onto every entry; decision events carry
// the correlation id. WithComponent tags long-lived component loggers.
//
// # Adapters
//
//   - SlogHandler bridges log/slog to zerolog for sutureslog.
//   - WatermillAdapter implements watermill.LoggerAdapter for the
//     decision event publisher and its NATS connection.
//
// # Configuration
//
// Level and format come from the logging section of the server config
// (LOG_LEVEL, LOG_FORMAT and LOG_CALLER in the environment).
package logging
