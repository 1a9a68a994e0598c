package mq

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

type recordingWriter struct {
	msgs []kafka.Message
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func withPropagator(t *testing.T) trace.Tracer {
	t.Helper()
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })
	return sdktrace.NewTracerProvider().Tracer("mq-test")
}

func TestKafkaHeaderCarrier(t *testing.T) {
	var c KafkaHeaderCarrier
	c.Set("a", "1")
	c.Set("b", "2")
	c.Set("a", "3")

	assert.Equal(t, "3", c.Get("a"))
	assert.Equal(t, "2", c.Get("b"))
	assert.Equal(t, "", c.Get("missing"))
	assert.ElementsMatch(t, []string{"a", "b"}, c.Keys())
}

func TestTraceContextRoundTrip(t *testing.T) {
	tracer := withPropagator(t)
	ctx, span := tracer.Start(context.Background(), "produce")
	defer span.End()

	var headers []kafka.Header
	InjectTraceContext(ctx, &headers)
	require.NotEmpty(t, headers)

	got := trace.SpanContextFromContext(ExtractTraceContext(context.Background(), headers))
	assert.Equal(t, span.SpanContext().TraceID(), got.TraceID())
	assert.Equal(t, span.SpanContext().SpanID(), got.SpanID())
}

func TestKafkaPublisher_Publish(t *testing.T) {
	tracer := withPropagator(t)
	ctx, span := tracer.Start(context.Background(), "publish")
	defer span.End()

	w := &recordingWriter{}
	p := NewKafkaPublisher(w)

	err := p.Publish(ctx, "account.erased", "user-1", map[string]string{"user_id": "user-1"})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "user-1", string(msg.Key))

	carrier := KafkaHeaderCarrier(msg.Headers)
	assert.Equal(t, "account.erased", carrier.Get(HeaderEventType))
	assert.NotEmpty(t, carrier.Get("traceparent"))

	var evt Event
	require.NoError(t, json.Unmarshal(msg.Value, &evt))
	assert.Equal(t, "account.erased", evt.Type)
	assert.NotEmpty(t, evt.ID)
	assert.False(t, evt.OccurredAt.IsZero())
	assert.JSONEq(t, `{"user_id":"user-1"}`, string(evt.Payload))
}

func TestNoopPublisher(t *testing.T) {
	assert.NoError(t, NoopPublisher{}.Publish(context.Background(), "x", "k", nil))
}
