// Wayfinder - Navigation Transition Engine for Branching Narratives
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

/*
Package navigation implements the transition engine that decides where a
traveller goes next inside a branching content graph.

Given a TransitionContext (who is asking, where they are, what they have
recently seen) and a RoutingBudget, the Router resolves the requested mode,
fans out to the candidate providers that mode names, blends their output into
a single ranked pool, and samples a winner. When nothing survives, the
fallback state machine either picks a designated emergency node or reports an
empty pool with a reason code. The caller always receives a decision; only an
unknown mode or a malformed context is returned as an error.

# Architecture

	TransitionContext ──► Registry.Resolve ──► ModeConfig
	                                              │
	                       ┌──────────────────────┴─────────────────────┐
	                       ▼              ▼            ▼        ▼       ▼
	                    manual        curated      compass    echo   random
	                       └──────────────┬───────────────────────────────┘
	                                      ▼
	                        canonicalize (mode order) + merge
	                                      ▼
	                     exclude route window ► optional filters
	                                      ▼
	                  weighted factors ► softmax(T) ► epsilon mix
	                                      ▼
	                      sample (seeded in preview) │ fallback
	                                      ▼
	                            TransitionDecision

The decision state machine is Start → FanOut → Blend → Select →
(Decision | FallbackCheck) → Terminal, and every visited state is appended to
TransitionDecision.Trace.

# Providers

Providers implement the Provider interface and are registered by name in a
ProviderRegistry. The set is closed: manual, curated, compass, echo and
random. Concrete implementations live in the providers subpackage.

# Determinism

Preview decisions seed a PCG generator from the SHA-256 of the context's
cache seed, carry no wall-clock measurements, and derive their ID from the
seed, so two previews with equal inputs encode to identical JSON. Production
decisions seed a ChaCha8 generator from crypto/rand.

# Thread Safety

Router is safe for concurrent use. Each decision owns its PRNG and its
provider results; the only shared mutable state is the RegistryHolder
(swapped atomically, never mutated) and the optional History ring buffer.

# Usage

	provs, err := providers.NewDefaultRegistry(store, cfg.Limits.EligibleLimit)
	holder := navigation.NewRegistryHolder(navigation.DefaultRegistry())
	router, err := navigation.NewRouter(cfg, logger, holder, provs, store)
	router.SetFlags(flagSvc)
	router.SetTelemetrySink(sink)

	decision, err := router.Next(ctx, tc, navigation.RoutingBudget{MaxTimeMS: 150})
*/
package navigation
