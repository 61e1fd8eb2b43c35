// Wayfinder - Navigation Transition Engine for Branching Narratives
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	natsgo "github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/wayfinder/internal/logging"
	"github.com/tomtom215/wayfinder/internal/metrics"
	"github.com/tomtom215/wayfinder/internal/navigation"
)

// DefaultTopic is the topic decision events are published on.
const DefaultTopic = "navigation.decision"

// EventSchemaVersion is bumped on incompatible DecisionEvent changes.
const EventSchemaVersion = 1

// DecisionEvent is the wire form of one decision.
type DecisionEvent struct {
	SchemaVersion int       `json:"schema_version"`
	EventID       string    `json:"event_id"`
	DecisionID    string    `json:"decision_id"`
	TenantID      string    `json:"tenant_id"`
	Mode          string    `json:"mode"`
	PoliciesHash  string    `json:"policies_hash"`
	Result        string    `json:"result"`
	Preview       bool      `json:"preview"`
	RecordedAt    time.Time `json:"recorded_at"`
	CorrelationID string    `json:"correlation_id,omitempty"`

	SelectedNodeID   string `json:"selected_node_id,omitempty"`
	PoolSize         int    `json:"pool_size"`
	QueriesUsed      int    `json:"queries_used"`
	FiltersApplied   int    `json:"filters_applied"`
	FallbackUsed     bool   `json:"fallback_used"`
	CacheHit         bool   `json:"cache_hit"`
	BudgetExceeded   bool   `json:"budget_exceeded"`
	FiltersTruncated bool   `json:"filters_truncated"`
	PolicyMismatch   bool   `json:"policy_mismatch"`
	EmptyPoolReason  string `json:"empty_pool_reason,omitempty"`

	DurationMS float64         `json:"duration_ms"`
	Providers  []ProviderEvent `json:"providers"`
}

// ProviderEvent summarizes one provider slot.
type ProviderEvent struct {
	Provider   string  `json:"provider"`
	Outcome    string  `json:"outcome"`
	Candidates int     `json:"candidates"`
	LatencyMS  float64 `json:"latency_ms"`
	Chain      bool    `json:"chain,omitempty"`
}

// NewDecisionEvent converts telemetry into an event with a fresh id.
func NewDecisionEvent(t *navigation.DecisionTelemetry) *DecisionEvent {
	ev := &DecisionEvent{
		SchemaVersion:    EventSchemaVersion,
		EventID:          uuid.NewString(),
		DecisionID:       t.DecisionID,
		TenantID:         t.TenantID,
		Mode:             t.Mode,
		PoliciesHash:     t.PoliciesHash,
		Result:           Result(t),
		Preview:          t.Preview,
		RecordedAt:       t.RecordedAt,
		SelectedNodeID:   t.SelectedNodeID,
		PoolSize:         t.PoolSize,
		QueriesUsed:      t.QueriesUsed,
		FiltersApplied:   t.FiltersApplied,
		FallbackUsed:     t.FallbackUsed,
		CacheHit:         t.CacheHit,
		BudgetExceeded:   t.BudgetExceeded,
		FiltersTruncated: t.FiltersTruncated,
		PolicyMismatch:   t.PolicyMismatch,
		EmptyPoolReason:  t.EmptyPoolReason,
		DurationMS:       millis(t.Duration),
		Providers:        make([]ProviderEvent, 0, len(t.Providers)),
	}
	if ev.RecordedAt.IsZero() {
		ev.RecordedAt = time.Now().UTC()
	}
	for _, p := range t.Providers {
		ev.Providers = append(ev.Providers, ProviderEvent{
			Provider:   p.Provider,
			Outcome:    string(p.Outcome),
			Candidates: p.Candidates,
			LatencyMS:  millis(p.Latency),
			Chain:      p.Chain,
		})
	}
	return ev
}

// Message encodes the event as a Watermill message. The event id doubles as
// the message UUID and the NATS deduplication id.
func (e *DecisionEvent) Message() (*message.Message, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal decision event: %w", err)
	}
	msg := message.NewMessage(e.EventID, payload)
	msg.Metadata.Set(natsgo.MsgIdHdr, e.EventID)
	msg.Metadata.Set("tenant_id", e.TenantID)
	msg.Metadata.Set("mode", e.Mode)
	msg.Metadata.Set("result", e.Result)
	if e.CorrelationID != "" {
		msg.Metadata.Set("correlation_id", e.CorrelationID)
	}
	return msg, nil
}

func millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

// EventSinkConfig configures an EventSink.
type EventSinkConfig struct {
	Topic     string
	QueueSize int

	// PublishPreviews also emits events for preview decisions.
	PublishPreviews bool

	// BreakerFailures consecutive publish failures open the breaker for
	// BreakerTimeout, during which events are dropped without a broker call.
	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

// DefaultEventSinkConfig returns production defaults.
func DefaultEventSinkConfig() EventSinkConfig {
	return EventSinkConfig{
		Topic:           DefaultTopic,
		QueueSize:       1024,
		BreakerFailures: 5,
		BreakerTimeout:  30 * time.Second,
	}
}

// EventSink publishes decision events asynchronously.
//
// RecordDecision only enqueues. Serve drains the queue and publishes, and
// is meant to run under the supervisor.
type EventSink struct {
	publisher message.Publisher
	cfg       EventSinkConfig
	queue     chan *DecisionEvent
	breaker   *gobreaker.CircuitBreaker[any]
	logger    zerolog.Logger

	closed  atomic.Bool
	dropped atomic.Int64
}

var _ navigation.TelemetrySink = (*EventSink)(nil)

// NewEventSink creates a sink publishing through pub.
func NewEventSink(pub message.Publisher, cfg EventSinkConfig) (*EventSink, error) {
	if pub == nil {
		return nil, errors.New("publisher is required")
	}
	def := DefaultEventSinkConfig()
	if cfg.Topic == "" {
		cfg.Topic = def.Topic
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = def.BreakerFailures
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = def.BreakerTimeout
	}

	name := "telemetry-" + cfg.Topic
	failures := cfg.BreakerFailures
	logger := logging.WithComponent("telemetry")
	breaker := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:    name,
		Timeout: cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Telemetry publisher circuit breaker state changed")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})

	return &EventSink{
		publisher: pub,
		cfg:       cfg,
		queue:     make(chan *DecisionEvent, cfg.QueueSize),
		breaker:   breaker,
		logger:    logger,
	}, nil
}

// RecordDecision implements navigation.TelemetrySink. It never blocks.
func (s *EventSink) RecordDecision(ctx context.Context, t *navigation.DecisionTelemetry) {
	if t == nil || s.closed.Load() || (t.Preview && !s.cfg.PublishPreviews) {
		return
	}
	ev := NewDecisionEvent(t)
	ev.CorrelationID = logging.CorrelationIDFromContext(ctx)
	select {
	case s.queue <- ev:
	default:
		s.dropped.Add(1)
		metrics.TelemetryEventsPublished.WithLabelValues("dropped").Inc()
	}
}

// Dropped returns the number of events lost to a full queue.
func (s *EventSink) Dropped() int64 {
	return s.dropped.Load()
}

// Serve publishes queued events until ctx is done. Events still queued at
// shutdown are flushed best-effort.
func (s *EventSink) Serve(ctx context.Context) error {
	for {
		select {
		case ev := <-s.queue:
			s.publish(ev)
		case <-ctx.Done():
			s.drain()
			return ctx.Err()
		}
	}
}

func (s *EventSink) drain() {
	for {
		select {
		case ev := <-s.queue:
			s.publish(ev)
		default:
			return
		}
	}
}

func (s *EventSink) publish(ev *DecisionEvent) {
	msg, err := ev.Message()
	if err == nil {
		_, err = s.breaker.Execute(func() (any, error) {
			return nil, s.publisher.Publish(s.cfg.Topic, msg)
		})
	}
	metrics.RecordEventPublish(err)
	if err != nil {
		s.logger.Warn().Err(err).
			Str("topic", s.cfg.Topic).
			Str("decision_id", ev.DecisionID).
			Msg("Failed to publish decision event")
	}
}

// Close stops accepting events and closes the publisher.
func (s *EventSink) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := s.publisher.Close(); err != nil {
		return fmt.Errorf("close publisher: %w", err)
	}
	return nil
}

// String names the service for the supervisor.
func (s *EventSink) String() string {
	return "telemetry-events"
}
