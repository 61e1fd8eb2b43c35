// Wayfinder - Navigation Transition Engine for Branching Narratives
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package graphstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadSeed_Errors(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		yaml string
		want error
	}{
		{
			name: "unknown field",
			yaml: "tenants:\n  - id: t\n    colour: blue\n",
		},
		{
			name: "invalid node id",
			yaml: "tenants:\n  - id: t\n    nodes:\n      - id: \"a:b\"\n",
			want: ErrInvalidID,
		},
		{
			name: "edge without target",
			yaml: "tenants:\n  - id: t\n    edges:\n      - from: a\n",
			want: ErrInvalidID,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadSeed(ctx, strings.NewReader(tt.yaml), NewMemoryStore())
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadSeed_Empty(t *testing.T) {
	stats, err := LoadSeed(context.Background(), strings.NewReader(""), NewMemoryStore())
	if err != nil {
		t.Fatalf("empty seed: %v", err)
	}
	if stats.Tenants != 0 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestLoadSeedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	if err := os.WriteFile(path, []byte(testSeed), 0o600); err != nil {
		t.Fatal(err)
	}

	s := NewMemoryStore()
	stats, err := LoadSeedFile(context.Background(), path, s)
	if err != nil {
		t.Fatalf("LoadSeedFile: %v", err)
	}
	if stats.Curated != 2 {
		t.Errorf("curated lists = %d, want 2", stats.Curated)
	}
	if id, _ := s.FallbackNode(context.Background(), "other", ""); id != "gate" {
		t.Errorf("fallback = %q", id)
	}

	if _, err := LoadSeedFile(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"), s); err == nil {
		t.Error("expected error for missing file")
	}
}
