package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/next-trace/scg-mediator/contract/bus"
)

// HeaderPropagator writes the active trace context into outbound broker headers.
type HeaderPropagator struct {
	propagator propagation.TextMapPropagator
}

var _ bus.HeaderPropagator = HeaderPropagator{}

// NewHeaderPropagator wraps p, or the global OTel propagator when p is nil.
func NewHeaderPropagator(p propagation.TextMapPropagator) HeaderPropagator {
	if p == nil {
		p = otel.GetTextMapPropagator()
	}

	return HeaderPropagator{propagator: p}
}

// Inject writes trace headers for ctx. A nil headers map is ignored.
func (h HeaderPropagator) Inject(ctx context.Context, headers map[string]string) {
	if headers == nil || h.propagator == nil {
		return
	}

	h.propagator.Inject(ctx, propagation.MapCarrier(headers))
}
