// Wayfinder - Navigation Transition Engine for Branching Narratives
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package config

import (
	"errors"
	"fmt"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/tomtom215/wayfinder/internal/navigation"
)

// ErrNoModes is returned when a policies file defines no modes and built-in
// modes are not included.
var ErrNoModes = errors.New("policies file defines no modes")

// PolicySource loads the mode registry from a YAML file.
//
// File layout:
//
//	modes:
//	  - name: normal
//	    k_base: 10          # other fields keep their built-in values
//	  - name: night_walk
//	    providers: [manual, curated]
//	    k_base: 4
//	    temperature: 0.6
//	    diversity: {kind: step, weight: 0.5}
//
// When IncludeDefaults is set, a file mode sharing a built-in name starts from
// the built-in values and only the listed keys change; built-in modes the
// file does not mention are kept after the file's modes.
type PolicySource struct {
	Path            string
	IncludeDefaults bool
}

// NewPolicySource returns the source described by cfg.
func NewPolicySource(cfg PoliciesConfig) PolicySource {
	return PolicySource{Path: cfg.Path, IncludeDefaults: cfg.IncludeDefaults}
}

// Load builds a fresh registry. An empty Path yields the built-in modes.
func (s PolicySource) Load() (*navigation.Registry, error) {
	if s.Path == "" {
		return navigation.NewRegistry(navigation.DefaultModes())
	}
	return LoadPolicies(s.Path, s.IncludeDefaults)
}

// LoadPolicies parses the policies file at path into a registry.
func LoadPolicies(path string, includeDefaults bool) (*navigation.Registry, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load policies file %s: %w", path, err)
	}

	modes, err := decodeModes(k, includeDefaults)
	if err != nil {
		return nil, fmt.Errorf("policies file %s: %w", path, err)
	}

	reg, err := navigation.NewRegistry(modes)
	if err != nil {
		return nil, fmt.Errorf("policies file %s: %w", path, err)
	}
	return reg, nil
}

func decodeModes(k *koanf.Koanf, includeDefaults bool) ([]navigation.ModeConfig, error) {
	builtin := make(map[string]navigation.ModeConfig)
	var builtinOrder []string
	if includeDefaults {
		for _, m := range navigation.DefaultModes() {
			builtin[m.Name] = m
			builtinOrder = append(builtinOrder, m.Name)
		}
	}

	if raw := k.Get("modes"); raw != nil {
		if _, ok := raw.([]interface{}); !ok {
			return nil, fmt.Errorf("modes must be a list of mode definitions")
		}
	}
	entries := k.Slices("modes")

	modes := make([]navigation.ModeConfig, 0, len(entries)+len(builtinOrder))
	seen := make(map[string]struct{}, len(entries))
	for i, entry := range entries {
		name := entry.String("name")
		if name == "" {
			return nil, fmt.Errorf("modes[%d]: name is required", i)
		}

		m, ok := builtin[name]
		if ok {
			m = m.Clone()
		} else {
			m = navigation.ModeConfig{Diversity: navigation.DiversityPolicy{Kind: navigation.DiversityLinear}}
		}
		// A listed provider set replaces the inherited one outright.
		if entry.Exists("providers") {
			m.Providers = nil
		}

		if err := entry.UnmarshalWithConf("", &m, koanf.UnmarshalConf{DecoderConfig: strictDecoderConfig()}); err != nil {
			return nil, fmt.Errorf("modes[%d] (%s): %w", i, name, err)
		}
		modes = append(modes, m)
		seen[name] = struct{}{}
	}

	for _, name := range builtinOrder {
		if _, overridden := seen[name]; !overridden {
			modes = append(modes, builtin[name])
		}
	}

	if len(modes) == 0 {
		return nil, ErrNoModes
	}
	return modes, nil
}

// strictDecoderConfig rejects unknown keys so a misspelt field fails the
// load instead of silently keeping its default.
func strictDecoderConfig() *mapstructure.DecoderConfig {
	return &mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	}
}
