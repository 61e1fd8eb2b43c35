// Wayfinder - Navigation Transition Engine for Branching Narratives
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	natsgo "github.com/nats-io/nats.go"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/wayfinder/internal/logging"
	"github.com/tomtom215/wayfinder/internal/navigation"
)

func newPubSub(t *testing.T) *gochannel.GoChannel {
	t.Helper()
	ps := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 16}, watermill.NopLogger{})
	t.Cleanup(func() { _ = ps.Close() })
	return ps
}

func receive(t *testing.T, ch <-chan *message.Message) *message.Message {
	t.Helper()
	select {
	case msg := <-ch:
		msg.Ack()
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for decision event")
		return nil
	}
}

func TestEventSink_Publishes(t *testing.T) {
	ps := newPubSub(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	messages, err := ps.Subscribe(ctx, DefaultTopic)
	if err != nil {
		t.Fatal(err)
	}

	sink, err := NewEventSink(ps, EventSinkConfig{})
	if err != nil {
		t.Fatal(err)
	}
	done := make(chan error, 1)
	go func() { done <- sink.Serve(ctx) }()

	preview := sampleTelemetry("discover")
	preview.Preview = true
	sink.RecordDecision(ctx, preview)
	sink.RecordDecision(logging.ContextWithCorrelationID(ctx, "corr1234"), sampleTelemetry("discover"))

	msg := receive(t, messages)
	var ev DecisionEvent
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		t.Fatalf("decode event: %v", err)
	}

	if ev.Preview {
		t.Error("previews are not published by default")
	}
	if ev.DecisionID != "dec-1" || ev.TenantID != "acme" || ev.Result != ResultSelected {
		t.Errorf("unexpected event %+v", ev)
	}
	if ev.SchemaVersion != EventSchemaVersion || ev.DurationMS != 60 {
		t.Errorf("schema/duration = %d/%f", ev.SchemaVersion, ev.DurationMS)
	}
	if len(ev.Providers) != 3 || ev.Providers[1].Outcome != string(navigation.OutcomeTimeout) {
		t.Errorf("providers = %+v", ev.Providers)
	}
	if msg.UUID != ev.EventID || msg.Metadata.Get(natsgo.MsgIdHdr) != ev.EventID {
		t.Errorf("message id %s / header %s, event id %s", msg.UUID, msg.Metadata.Get(natsgo.MsgIdHdr), ev.EventID)
	}
	if msg.Metadata.Get("mode") != "discover" {
		t.Errorf("metadata = %v", msg.Metadata)
	}
	if ev.CorrelationID != "corr1234" || msg.Metadata.Get("correlation_id") != "corr1234" {
		t.Errorf("correlation id %q / header %q", ev.CorrelationID, msg.Metadata.Get("correlation_id"))
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve returned %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	// Closed sinks ignore new decisions.
	sink.RecordDecision(context.Background(), sampleTelemetry("discover"))
	if len(sink.queue) != 0 {
		t.Error("closed sink accepted an event")
	}
}

func TestEventSink_PublishPreviews(t *testing.T) {
	ps := newPubSub(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	messages, err := ps.Subscribe(ctx, "custom.topic")
	if err != nil {
		t.Fatal(err)
	}
	sink, err := NewEventSink(ps, EventSinkConfig{Topic: "custom.topic", PublishPreviews: true})
	if err != nil {
		t.Fatal(err)
	}
	go func() { _ = sink.Serve(ctx) }()

	preview := sampleTelemetry("normal")
	preview.Preview = true
	sink.RecordDecision(ctx, preview)

	var ev DecisionEvent
	if err := json.Unmarshal(receive(t, messages).Payload, &ev); err != nil {
		t.Fatal(err)
	}
	if !ev.Preview || ev.Result != ResultPreview {
		t.Errorf("expected preview event, got %+v", ev)
	}
}

func TestEventSink_DropsWhenFull(t *testing.T) {
	sink, err := NewEventSink(newPubSub(t), EventSinkConfig{QueueSize: 1})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		sink.RecordDecision(context.Background(), sampleTelemetry("normal"))
	}
	if sink.Dropped() != 2 {
		t.Errorf("dropped = %d, want 2", sink.Dropped())
	}
}

type failingPublisher struct {
	calls int
}

func (f *failingPublisher) Publish(string, ...*message.Message) error {
	f.calls++
	return errors.New("broker down")
}

func (f *failingPublisher) Close() error { return nil }

func TestEventSink_BreakerOpens(t *testing.T) {
	pub := &failingPublisher{}
	sink, err := NewEventSink(pub, EventSinkConfig{Topic: "breaker.test", BreakerFailures: 2, BreakerTimeout: time.Hour})
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 5; i++ {
		sink.publish(NewDecisionEvent(sampleTelemetry("normal")))
	}
	if pub.calls != 2 {
		t.Errorf("broker called %d times, want 2 before the breaker opened", pub.calls)
	}
	if sink.breaker.State() != gobreaker.StateOpen {
		t.Errorf("breaker state = %s", sink.breaker.State())
	}
}

func TestNewEventSink_RequiresPublisher(t *testing.T) {
	if _, err := NewEventSink(nil, EventSinkConfig{}); err == nil {
		t.Error("expected error for nil publisher")
	}
}
