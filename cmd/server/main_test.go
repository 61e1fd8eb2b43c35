// Wayfinder - Navigation Transition Engine for Branching Narratives
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/wayfinder/internal/config"
	"github.com/tomtom215/wayfinder/internal/logging"
	"github.com/tomtom215/wayfinder/internal/navigation"
)

const testSeed = `
tenants:
  - id: acme
    fallback: lobby
    nodes:
      - id: lobby
        start: true
      - id: vault
    edges:
      - from: lobby
        to: vault
`

func writeSeed(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.yaml")
	if err := os.WriteFile(path, []byte(testSeed), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestInitStore(t *testing.T) {
	tests := []struct {
		name    string
		backend string
		breaker bool
	}{
		{"memory", "memory", false},
		{"memory with breaker", "memory", true},
		{"badger in memory", "badger", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.StoreConfig{
				Backend:  tt.backend,
				SeedFile: writeSeed(t),
				Breaker: config.BreakerConfig{
					Enabled:      tt.breaker,
					MaxRequests:  1,
					Timeout:      time.Second,
					MinRequests:  5,
					FailureRatio: 0.5,
				},
			}
			sc, err := initStore(context.Background(), cfg)
			if err != nil {
				t.Fatalf("initStore() error = %v", err)
			}
			defer sc.close()

			if (sc.breaker != nil) != tt.breaker {
				t.Errorf("breaker present = %v, want %v", sc.breaker != nil, tt.breaker)
			}
			edges, err := sc.reader.OutgoingEdges(context.Background(), "lobby")
			if err != nil || len(edges) != 1 || edges[0].ToNodeID != "vault" {
				t.Errorf("OutgoingEdges(lobby) = %v, %v", edges, err)
			}
			if err := sc.healthCheck(context.Background()); err != nil {
				t.Errorf("healthCheck() = %v", err)
			}
		})
	}
}

func TestInitStore_BadSeed(t *testing.T) {
	_, err := initStore(context.Background(), config.StoreConfig{
		Backend:  "memory",
		SeedFile: filepath.Join(t.TempDir(), "missing.yaml"),
	})
	if err == nil {
		t.Fatal("expected error for a missing seed file")
	}
}

func TestInitTelemetry_PrometheusOnly(t *testing.T) {
	tc, err := initTelemetry(config.TelemetryConfig{})
	if err != nil {
		t.Fatal(err)
	}
	defer tc.close()

	if tc.events != nil || tc.local != nil || tc.embedded != nil {
		t.Errorf("events disabled but transport built: %+v", tc)
	}
	if err := tc.natsHealthCheck(context.Background()); err != nil {
		t.Errorf("natsHealthCheck() = %v", err)
	}
}

func TestInitTelemetry_InProcessEvents(t *testing.T) {
	tc, err := initTelemetry(config.TelemetryConfig{
		Events:          true,
		Topic:           "decisions",
		QueueSize:       8,
		BreakerFailures: 3,
		BreakerTimeout:  time.Second,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer tc.close()

	if tc.local == nil || tc.events == nil {
		t.Fatal("in-process transport not built")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgs, err := tc.local.Subscribe(ctx, "decisions")
	if err != nil {
		t.Fatal(err)
	}
	go func() { _ = tc.events.Serve(ctx) }()

	tc.sink.RecordDecision(ctx, &navigation.DecisionTelemetry{
		DecisionID: "d-1",
		TenantID:   "acme",
		Mode:       navigation.ModeNormal,
	})

	select {
	case msg := <-msgs:
		msg.Ack()
		if len(msg.Payload) == 0 {
			t.Error("empty event payload")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("decision event not delivered")
	}
}

func TestEventLogService_StopsOnCancel(t *testing.T) {
	tc, err := initTelemetry(config.TelemetryConfig{Events: true, Topic: "decisions", QueueSize: 4, BreakerFailures: 1, BreakerTimeout: time.Second})
	if err != nil {
		t.Fatal(err)
	}
	defer tc.close()

	svc := &eventLogService{sub: tc.local, topic: tc.topic}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("eventLogService did not stop")
	}
	if svc.String() != "decision-event-log" {
		t.Errorf("String() = %q", svc.String())
	}
}

func TestLogUnstopped(t *testing.T) {
	prev := logging.Logger()
	defer logging.SetLogger(prev)

	tests := []struct {
		name     string
		services []suture.UnstoppedService
		err      error
		want     []string
	}{
		{"clean shutdown", nil, nil, nil},
		{"stuck service", []suture.UnstoppedService{{Name: "http-server"}}, nil, []string{"http-server"}},
		{"report error", nil, errors.New("supervisor not terminated"), []string{"supervisor not terminated", "Could not report unstopped services"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logging.SetLogger(zerolog.New(&buf))

			logUnstopped(func() ([]suture.UnstoppedService, error) { return tt.services, tt.err })

			out := buf.String()
			if len(tt.want) == 0 && out != "" {
				t.Errorf("unexpected output %q", out)
			}
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("output %q missing %q", out, w)
				}
			}
		})
	}
}
