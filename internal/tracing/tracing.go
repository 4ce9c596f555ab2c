// Package tracing wraps connect and reconnect attempts in OpenTelemetry
// spans. It is optional observability, not part of the state machine:
// when the supervisor is not given a tracer, every function here operates
// against the SDK's no-op tracer and costs nothing beyond a few empty
// interface calls.
//
// Both BaSui01-agentflow and arkeep-io-arkeep depend on the OpenTelemetry
// Go SDK; neither, however, traces a reconnect loop specifically, so this
// package's shape (one span per attempt, attempt number + outcome
// recorded as attributes) is modeled on the same "wrap the retried
// operation" idea as arkeep-io-arkeep's connection/manager.go logging
// (zap.Int("attempt", n), zap.Error(err)) translated to span attributes.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Tracer is an alias of trace.Tracer, so any OpenTelemetry tracer
// (including a recording fake in tests) can be supplied.
type Tracer = trace.Tracer

// NoOp returns a tracer that produces no spans, used as the supervisor's
// default when the caller supplies none.
func NoOp() Tracer {
	return noop.NewTracerProvider().Tracer("okws")
}

// ConnectAttempt starts a span around one connect (or reconnect) attempt.
// Callers must call End with the resulting error (nil on success).
func ConnectAttempt(ctx context.Context, tracer Tracer, attempt int) (context.Context, func(err error)) {
	ctx, span := tracer.Start(ctx, "okws.connect",
		trace.WithAttributes(attribute.Int("okws.attempt", attempt)))
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}
}

// ReconnectScheduled records a span-less event marking that a reconnect was
// scheduled with the given delay, attached to the current span if any.
func ReconnectScheduled(ctx context.Context, attempt int, delayMillis int64) {
	span := trace.SpanFromContext(ctx)
	span.AddEvent("okws.reconnect_scheduled", trace.WithAttributes(
		attribute.Int("okws.attempt", attempt),
		attribute.Int64("okws.delay_ms", delayMillis),
	))
}
