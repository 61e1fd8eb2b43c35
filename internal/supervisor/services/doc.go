// Wayfinder - Navigation Transition Engine for Branching Narratives
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

/*
Package services adapts Wayfinder components to suture.Service.

  - HTTPServerService: ListenAndServe under supervision with graceful drain.
  - PolicyReloadService: polls, watches and reloads the policies file,
    swapping the mode registry only when the policies hash changes.
    Triggered reloads are throttled with golang.org/x/time/rate; it also
    serves as the API's reload backend.
  - NATSServerService: owns shutdown of the embedded NATS server.

Every service returns ctx.Err() on cancellation and names itself through
fmt.Stringer for supervisor logs.
*/
package services
