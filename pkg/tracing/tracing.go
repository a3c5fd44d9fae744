package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName = "github.com/Goden-Gun/channel-bridge"
	// PayloadKey is the push payload key carrying propagated trace context.
	PayloadKey = "_trace"
)

var propagator = propagation.TraceContext{}

// Tracer returns named tracer for bridge components.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// StartPush opens a span covering one push from initiation to outcome.
func StartPush(ctx context.Context, topic, kind string) (context.Context, trace.Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	return Tracer(tracerName).Start(ctx, "bridge.push",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("channel.topic", topic),
			attribute.String("push.kind", kind),
		),
	)
}

// EndPush records the push outcome and ends span.
func EndPush(span trace.Span, status string) {
	if span == nil {
		return
	}
	span.SetAttributes(attribute.String("push.status", status))
	if status != "ok" {
		span.SetStatus(codes.Error, status)
	}
	span.End()
}

// InjectPayload returns a copy of payload carrying the trace context of ctx
// under PayloadKey. payload is returned unchanged when ctx has no span.
func InjectPayload(ctx context.Context, payload map[string]any) map[string]any {
	carrier := propagation.MapCarrier{}
	propagator.Inject(ctx, carrier)
	if len(carrier) == 0 {
		return payload
	}
	out := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		out[k] = v
	}
	meta := make(map[string]any, len(carrier))
	for k, v := range carrier {
		meta[k] = v
	}
	out[PayloadKey] = meta
	return out
}

// ExtractPayload restores trace context previously injected into payload.
// The intake uses it for commands from sources without headers. Services on
// the far side of the socket can use it on payloads the bridge pushed.
func ExtractPayload(ctx context.Context, payload map[string]any) context.Context {
	raw, ok := payload[PayloadKey].(map[string]any)
	if !ok {
		return ctx
	}
	carrier := propagation.MapCarrier{}
	for k, v := range raw {
		if s, ok := v.(string); ok {
			carrier[k] = s
		}
	}
	return propagator.Extract(ctx, carrier)
}
