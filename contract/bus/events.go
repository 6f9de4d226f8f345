package bus

import "context"

// Event represents an in-process notification fanned out to every handler
// bound to its exact runtime type. Events carry no result.
type Event interface{}

// EventHandler handles events of type E. Any number of handlers may be bound
// for one event type; they run concurrently with each other.
type EventHandler[E Event] interface {
	Handle(ctx context.Context, e E) error
}

// EventHandlerFunc adapts a function to EventHandler.
type EventHandlerFunc[E Event] func(ctx context.Context, e E) error

func (f EventHandlerFunc[E]) Handle(ctx context.Context, e E) error { return f(ctx, e) }

// IntegrationEvent is an event that may be relayed to an external broker. Topic() guides routing.
type IntegrationEvent interface{ Topic() string }
