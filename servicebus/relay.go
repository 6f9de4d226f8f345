package servicebus

import (
	"context"
	"fmt"
	"maps"
	"reflect"

	"github.com/next-trace/scg-mediator/contract/bus"
	berr "github.com/next-trace/scg-mediator/contract/errors"
	"github.com/next-trace/scg-mediator/internal/outbound"
	"github.com/next-trace/scg-mediator/registry"
)

const (
	// HeaderEventID carries the id the event bus assigned to a relayed event.
	HeaderEventID = outbound.HeaderEventID
	// HeaderEventType carries the Go type name of a relayed event.
	HeaderEventType = outbound.HeaderEventType
)

// BindRelay binds an event handler for E that forwards every event to pub.
// Relays run on the event workers like any other handler, so a broker failure is
// logged and never reaches the publisher of the in-process event.
func BindRelay[E bus.IntegrationEvent](r *registry.Registry, pub bus.IntegrationPublisher, opts bus.PublishOptions) error {
	if pub == nil {
		return fmt.Errorf("bind relay %s: nil publisher: %w", reflect.TypeFor[E](), berr.ErrInvalidConfig)
	}

	name := "relay " + reflect.TypeOf(pub).String()

	h := bus.EventHandlerFunc[E](func(ctx context.Context, e E) error {
		po := opts
		po.Headers = make(map[string]string, len(opts.Headers)+2)
		maps.Copy(po.Headers, opts.Headers)
		po.Headers[HeaderEventType] = fmt.Sprintf("%T", e)

		if id, ok := bus.EventIDFromContext(ctx); ok {
			po.Headers[HeaderEventID] = id
		}

		return pub.PublishIntegration(ctx, e, po)
	})

	return registry.BindEventHandler[E](r, h, registry.WithName(name))
}
