// Package memory wires a registry, a mediator and a recording integration publisher
// into a ready-to-use in-process setup for tests, examples and small services.
package memory

import (
	"github.com/next-trace/scg-mediator/adapters/inmemory"
	"github.com/next-trace/scg-mediator/registry"
	"github.com/next-trace/scg-mediator/servicebus"
)

// Bus is a Mediator with its registry and an in-memory integration outbox.
type Bus struct {
	*servicebus.Mediator

	Registry *registry.Registry
	Outbox   *inmemory.Publisher
}

// New constructs a mediator over a fresh registry and returns it along with a
// cleanup function that drains and stops the event bus.
func New(opts ...servicebus.Option) (*Bus, func()) {
	r := registry.New()
	m := servicebus.NewMediator(r, opts...)

	b := &Bus{Mediator: m, Registry: r, Outbox: inmemory.New()}
	cleanup := func() { _ = m.Close() }

	return b, cleanup
}
