// Wayfinder - Navigation Transition Engine for Branching Narratives
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

/*
Package models defines the HTTP request and response bodies.

Every endpoint answers with an APIResponse envelope. Request types carry
validate tags checked by internal/validation before conversion into the
navigation package's types:

  - DecisionRequest: context and budget for next and preview
  - TraversalRequest: an edge a traveller followed
  - ModesResponse, HistoryResponse, ReloadResult, HealthStatus: read models

The engine types themselves (TransitionDecision, ModeConfig) are serialized
as-is; this package only adds the wire-side shapes around them.
*/
package models
