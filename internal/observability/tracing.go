package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/next-trace/scg-mediator"

// Tracer starts spans for dispatches and event handling.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer returns a Tracer backed by tp, or by the global OTel provider when tp is nil.
func NewTracer(tp trace.TracerProvider) *Tracer {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	return &Tracer{tracer: tp.Tracer(instrumentationName)}
}

// StartDispatch starts a span covering one request through its pipeline.
func (t *Tracer) StartDispatch(ctx context.Context, requestType, shape string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "mediator.send "+requestType,
		trace.WithAttributes(
			attribute.String("mediator.request_type", requestType),
			attribute.String("mediator.shape", shape),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartEvent starts a span covering the fan-out of one event.
// The span links to the publisher's span when link is valid.
func (t *Tracer) StartEvent(
	ctx context.Context,
	eventType, eventID string,
	handlers int,
	link trace.SpanContext,
) (context.Context, trace.Span) {
	opts := []trace.SpanStartOption{
		trace.WithAttributes(
			attribute.String("mediator.event_type", eventType),
			attribute.String("mediator.event_id", eventID),
			attribute.Int("mediator.handlers", handlers),
		),
		trace.WithSpanKind(trace.SpanKindConsumer),
	}

	if link.IsValid() {
		opts = append(opts, trace.WithLinks(trace.Link{SpanContext: link}))
	}

	return t.tracer.Start(ctx, "mediator.event "+eventType, opts...)
}

// EndSpan completes a span, recording err when non-nil.
func EndSpan(span trace.Span, err error) {
	if span == nil {
		return
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}

	span.End()
}
