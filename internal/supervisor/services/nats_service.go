// Wayfinder - Navigation Transition Engine for Branching Narratives
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package services

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/wayfinder/internal/logging"
)

// ErrNATSStopped is returned when the embedded server exits on its own.
var ErrNATSStopped = errors.New("embedded NATS server stopped")

// NATSServer is the lifecycle subset of telemetry.EmbeddedServer.
type NATSServer interface {
	Running() bool
	Shutdown(ctx context.Context) error
}

// NATSServerService owns the shutdown of an embedded NATS server started
// during boot. The server is started eagerly so the event publisher can
// connect before the tree runs; this service only watches and stops it.
type NATSServerService struct {
	server          NATSServer
	shutdownTimeout time.Duration
	checkInterval   time.Duration
	name            string
}

// NewNATSServerService wraps server. A non-positive shutdownTimeout uses 10s.
func NewNATSServerService(server NATSServer, shutdownTimeout time.Duration) *NATSServerService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &NATSServerService{
		server:          server,
		shutdownTimeout: shutdownTimeout,
		checkInterval:   5 * time.Second,
		name:            "nats-server",
	}
}

// Serve implements suture.Service. It returns ErrNATSStopped if the server
// exits while the context is live.
func (s *NATSServerService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
			defer cancel()
			if err := s.server.Shutdown(shutdownCtx); err != nil {
				logging.Warn().Err(err).Msg("Embedded NATS server did not stop cleanly")
			}
			return ctx.Err()

		case <-ticker.C:
			if !s.server.Running() {
				return ErrNATSStopped
			}
		}
	}
}

// String names the service in supervisor logs.
func (s *NATSServerService) String() string {
	return s.name
}
