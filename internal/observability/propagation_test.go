package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/propagation"
)

func TestHeaderPropagator_InjectsTraceparent(t *testing.T) {
	_, _, tp := newRecordingTracer()

	ctx, span := tp.Tracer("test").Start(t.Context(), "publish")
	defer span.End()

	hp := NewHeaderPropagator(propagation.TraceContext{})
	headers := map[string]string{"existing": "v"}

	hp.Inject(ctx, headers)

	assert.Equal(t, "v", headers["existing"])
	assert.Contains(t, headers["traceparent"], span.SpanContext().TraceID().String())

	assert.NotPanics(t, func() {
		hp.Inject(ctx, nil)
		HeaderPropagator{}.Inject(ctx, map[string]string{})
		NewHeaderPropagator(nil).Inject(t.Context(), map[string]string{})
	})
}

func TestHeaderPropagator_NoSpanWritesNothing(t *testing.T) {
	headers := map[string]string{}

	NewHeaderPropagator(propagation.TraceContext{}).Inject(t.Context(), headers)

	assert.Empty(t, headers)
}
