// Wayfinder - Navigation Transition Engine for Branching Narratives
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package flags

import (
	"context"
	"slices"
	"sync"
	"testing"

	"github.com/tomtom215/wayfinder/internal/navigation"
)

func TestStatic_Lookup(t *testing.T) {
	initial := map[string]bool{
		navigation.DefaultFallbackFlag:           true,
		navigation.DefaultFallbackFlag + ".lite": false,
	}
	s := NewStatic(initial)
	initial["mutated"] = true
	ctx := context.Background()

	tests := []struct {
		name        string
		wantEnabled bool
		wantOK      bool
	}{
		{navigation.DefaultFallbackFlag, true, true},
		{navigation.DefaultFallbackFlag + ".lite", false, true},
		{"unknown", false, false},
		{"mutated", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enabled, ok := s.Lookup(ctx, tt.name)
			if enabled != tt.wantEnabled || ok != tt.wantOK {
				t.Errorf("Lookup(%q) = %v, %v; want %v, %v", tt.name, enabled, ok, tt.wantEnabled, tt.wantOK)
			}
			if s.IsEnabled(ctx, tt.name) != tt.wantEnabled {
				t.Errorf("IsEnabled(%q) disagrees with Lookup", tt.name)
			}
		})
	}
}

func TestStatic_SetAndUnset(t *testing.T) {
	s := NewStatic(nil)
	ctx := context.Background()

	s.Set("a", true)
	s.Set("b", false)
	if !s.IsEnabled(ctx, "a") || s.IsEnabled(ctx, "b") {
		t.Fatalf("unexpected snapshot %v", s.Snapshot())
	}
	if !slices.Equal(s.Names(), []string{"a", "b"}) {
		t.Errorf("names = %v", s.Names())
	}

	s.Unset("a")
	if _, ok := s.Lookup(ctx, "a"); ok {
		t.Error("flag still present after Unset")
	}

	snap := s.Snapshot()
	snap["b"] = true
	if s.IsEnabled(ctx, "b") {
		t.Error("snapshot must be a copy")
	}
}

func TestStatic_Concurrent(t *testing.T) {
	s := NewStatic(map[string]bool{"x": false})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(on bool) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.Set("x", on)
			}
		}(i%2 == 0)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = s.IsEnabled(ctx, "x")
			}
		}()
	}
	wg.Wait()
}
