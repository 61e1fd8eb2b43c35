// Wayfinder - Navigation Transition Engine for Branching Narratives
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/tomtom215/wayfinder/internal/config"
	"github.com/tomtom215/wayfinder/internal/logging"
	"github.com/tomtom215/wayfinder/internal/navigation"
	"github.com/tomtom215/wayfinder/internal/telemetry"
)

// telemetryComponents holds the decision sinks and the event transport.
type telemetryComponents struct {
	sink     navigation.TelemetrySink
	events   *telemetry.EventSink
	embedded *telemetry.EmbeddedServer

	// local is set when events stay in process.
	local *gochannel.GoChannel
	topic string
}

// initTelemetry always records decisions into Prometheus. With events
// enabled it adds an EventSink publishing to, in order of preference, the
// embedded NATS server, an external NATS server, or an in-process channel.
func initTelemetry(cfg config.TelemetryConfig) (*telemetryComponents, error) {
	tc := &telemetryComponents{topic: cfg.Topic}
	prom := telemetry.NewPrometheusSink()
	if !cfg.Events {
		tc.sink = prom
		logging.Info().Msg("Decision events disabled, Prometheus telemetry only")
		return tc, nil
	}

	wmLogger := logging.NewWatermillAdapter()
	url := cfg.NATSURL

	if cfg.Embedded.Enabled {
		srv, err := telemetry.NewEmbeddedServer(telemetry.ServerConfig{
			Host:      cfg.Embedded.Host,
			Port:      cfg.Embedded.Port,
			JetStream: cfg.JetStream,
			StoreDir:  cfg.Embedded.StoreDir,
			MaxMemory: cfg.Embedded.MaxMemory,
			MaxStore:  cfg.Embedded.MaxStore,
		})
		if err != nil {
			return nil, fmt.Errorf("start embedded NATS: %w", err)
		}
		tc.embedded = srv
		url = srv.ClientURL()
		logging.Info().Str("url", url).Bool("jetstream", cfg.JetStream).Msg("Embedded NATS server started")
	}

	var pub message.Publisher
	if url != "" {
		natsCfg := telemetry.DefaultNATSConfig(url)
		natsCfg.JetStream = cfg.JetStream
		p, err := telemetry.NewNATSPublisher(natsCfg, wmLogger)
		if err != nil {
			tc.shutdownEmbedded()
			return nil, err
		}
		pub = p
		logging.Info().Str("url", url).Str("topic", cfg.Topic).Msg("Decision events publish to NATS")
	} else {
		tc.local = gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: int64(cfg.QueueSize)}, wmLogger)
		pub = tc.local
		logging.Info().Str("topic", cfg.Topic).Msg("Decision events stay in process")
	}

	events, err := telemetry.NewEventSink(pub, telemetry.EventSinkConfig{
		Topic:           cfg.Topic,
		QueueSize:       cfg.QueueSize,
		PublishPreviews: cfg.PublishPreviews,
		BreakerFailures: cfg.BreakerFailures,
		BreakerTimeout:  cfg.BreakerTimeout,
	})
	if err != nil {
		tc.shutdownEmbedded()
		return nil, err
	}
	tc.events = events
	tc.sink = telemetry.NewMultiSink(prom, events)
	return tc, nil
}

// natsHealthCheck fails when the embedded server has stopped.
func (tc *telemetryComponents) natsHealthCheck(context.Context) error {
	if tc.embedded != nil && !tc.embedded.Running() {
		return errors.New("embedded NATS server not running")
	}
	return nil
}

func (tc *telemetryComponents) shutdownEmbedded() {
	if tc.embedded == nil {
		return
	}
	if err := tc.embedded.Shutdown(context.Background()); err != nil {
		logging.Warn().Err(err).Msg("Embedded NATS server did not stop cleanly")
	}
}

func (tc *telemetryComponents) close() {
	if tc.events == nil {
		return
	}
	if err := tc.events.Close(); err != nil {
		logging.Error().Err(err).Msg("Error closing decision event publisher")
	}
}

// eventLogService consumes in-process decision events and logs them at
// debug level.
type eventLogService struct {
	sub   message.Subscriber
	topic string
}

func (s *eventLogService) Serve(ctx context.Context) error {
	msgs, err := s.sub.Subscribe(ctx, s.topic)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", s.topic, err)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return ctx.Err()
			}
			logging.Debug().
				Str("message_id", msg.UUID).
				RawJSON("event", msg.Payload).
				Msg("Decision event")
			msg.Ack()
		}
	}
}

func (s *eventLogService) String() string {
	return "decision-event-log"
}
