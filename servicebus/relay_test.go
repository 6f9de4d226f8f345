package servicebus_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	cbus "github.com/next-trace/scg-mediator/contract/bus"
	berr "github.com/next-trace/scg-mediator/contract/errors"
	"github.com/next-trace/scg-mediator/registry"
	"github.com/next-trace/scg-mediator/servicebus"
)

type orderShipped struct{ ID string }

func (orderShipped) Topic() string { return "orders.shipped" }

type fakePub struct {
	mu     sync.Mutex
	events []cbus.IntegrationEvent
	opts   []cbus.PublishOptions
	err    error
}

func (f *fakePub) PublishIntegration(_ context.Context, e cbus.IntegrationEvent, opts cbus.PublishOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.events = append(f.events, e)
	f.opts = append(f.opts, opts)

	return f.err
}

func TestBindRelay_ForwardsWithHeaders(t *testing.T) {
	reg := registry.New()
	pub := &fakePub{}
	base := map[string]string{"tenant": "t1"}

	if err := servicebus.BindRelay[orderShipped](reg, pub, cbus.PublishOptions{Key: "k1", Headers: base}); err != nil {
		t.Fatalf("bind relay: %v", err)
	}

	bus := servicebus.NewEventBus(reg)
	if err := bus.Publish(t.Context(), orderShipped{ID: "o1"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	shutdown(t, bus)

	pub.mu.Lock()
	defer pub.mu.Unlock()

	if len(pub.events) != 1 || pub.events[0].(orderShipped).ID != "o1" {
		t.Fatalf("events=%v", pub.events)
	}

	opts := pub.opts[0]
	if opts.Key != "k1" || opts.Headers["tenant"] != "t1" {
		t.Fatalf("opts=%+v", opts)
	}

	if opts.Headers[servicebus.HeaderEventID] == "" {
		t.Fatalf("missing event id header: %v", opts.Headers)
	}

	if opts.Headers[servicebus.HeaderEventType] != "servicebus_test.orderShipped" {
		t.Fatalf("event type header=%q", opts.Headers[servicebus.HeaderEventType])
	}

	if len(base) != 1 {
		t.Fatalf("relay mutated caller headers: %v", base)
	}
}

func TestBindRelay_BrokerFailureStaysInside(t *testing.T) {
	reg := registry.New()
	pub := &fakePub{err: errors.New("broker down")}

	_ = servicebus.BindRelay[orderShipped](reg, pub, cbus.PublishOptions{})

	bus := servicebus.NewEventBus(reg)
	if err := bus.Publish(t.Context(), orderShipped{ID: "o2"}); err != nil {
		t.Fatalf("publish must not report relay failure: %v", err)
	}

	shutdown(t, bus)
}

func TestBindRelay_NilPublisher(t *testing.T) {
	err := servicebus.BindRelay[orderShipped](registry.New(), nil, cbus.PublishOptions{})
	if !errors.Is(err, berr.ErrInvalidConfig) {
		t.Fatalf("want ErrInvalidConfig, got %v", err)
	}
}
