// Wayfinder - Navigation Transition Engine for Branching Narratives
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package navigation

import "fmt"

// UI badges keyed by provider.
var providerBadges = map[string]string{
	ProviderManual:  "path",
	ProviderCurated: "editors_pick",
	ProviderCompass: "similar",
	ProviderEcho:    "trending",
	ProviderRandom:  "wildcard",
}

// BadgeFor returns the UI badge for a provider.
func BadgeFor(provider string) string {
	return providerBadges[provider]
}

// explain renders the human-readable rationale for a scored candidate.
func explain(c *TransitionCandidate) string {
	switch c.Provider {
	case ProviderManual:
		if c.Explain != "" {
			return c.Explain
		}
		return "Continues the authored path"
	case ProviderCurated:
		return "Picked by the editors"
	case ProviderCompass:
		return fmt.Sprintf("Similar themes (%.0f%% tag overlap)", c.Factors[FactorTagSimilarity]*100)
	case ProviderEcho:
		return fmt.Sprintf("Popular with other travellers (echo %.2f)", c.Factors[FactorEchoWeight])
	case ProviderRandom:
		return "A detour off the beaten track"
	default:
		return ""
	}
}
