// Wayfinder - Navigation Transition Engine for Branching Narratives
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

/*
Package supervisor runs Wayfinder's long-lived services under suture v4.

The tree has three layers, each restarting its children independently:

	RootSupervisor ("wayfinder")
	├── PolicySupervisor ("policy-layer")
	│   └── PolicyReloadService
	├── EventsSupervisor ("events-layer")
	│   ├── EventSink (if telemetry events are enabled)
	│   └── NATSServerService (if the embedded NATS server is enabled)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

A publisher outage restarts only the event sink, and a bad policy file
only fails reloads; decisions keep being served from the last good
registry.

Supervisor events (start, failure, backoff, stop) are logged through
sutureslog, fed by logging.NewSlogLogger so they share the zerolog output.

Usage:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddPolicyService(reloader)
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	errCh := tree.ServeBackground(ctx)
	<-errCh

TreeConfig defaults match suture's: 5 failures before backoff, 30s decay,
15s backoff, 10s shutdown timeout per service.
*/
package supervisor
