package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/next-trace/scg-mediator/contract/bus"
	berr "github.com/next-trace/scg-mediator/contract/errors"
	"github.com/next-trace/scg-mediator/registry"
	"github.com/next-trace/scg-mediator/servicebus"
)

type testCmd struct{}

type testQry struct{}

type testEvt struct{ ID string }

func (testEvt) Topic() string { return "test.events" }

func TestNewMemoryBus_BasicFlow(t *testing.T) {
	b, cleanup := New()
	defer cleanup()

	ctx := t.Context()

	cmdCount := 0
	if err := registry.BindCommand[testCmd](b.Registry, bus.CommandHandlerFunc[testCmd](func(context.Context, testCmd) error {
		cmdCount++
		return nil
	})); err != nil {
		t.Fatalf("bind command: %v", err)
	}

	if err := b.Exec(ctx, testCmd{}); err != nil {
		t.Fatalf("exec: %v", err)
	}

	if cmdCount != 1 {
		t.Fatalf("expected cmdCount=1 got %d", cmdCount)
	}

	if err := registry.BindRequest[testQry, string](b.Registry, bus.RequestHandlerFunc[testQry, string](func(context.Context, testQry) (string, error) {
		return "ok", nil
	})); err != nil {
		t.Fatalf("bind query: %v", err)
	}

	res, err := servicebus.Send[string](ctx, b, testQry{})
	if err != nil || res != "ok" {
		t.Fatalf("send: res=%q err=%v", res, err)
	}

	handled := make(chan string, 1)
	if err := registry.BindEventHandler[testEvt](b.Registry, bus.EventHandlerFunc[testEvt](func(_ context.Context, e testEvt) error {
		handled <- e.ID
		return nil
	})); err != nil {
		t.Fatalf("bind event: %v", err)
	}

	if err := servicebus.BindRelay[testEvt](b.Registry, b.Outbox, bus.PublishOptions{}); err != nil {
		t.Fatalf("bind relay: %v", err)
	}

	if err := b.Publish(ctx, testEvt{ID: "e1"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case id := <-handled:
		if id != "e1" {
			t.Fatalf("handled %q", id)
		}
	case <-time.After(time.Second):
		t.Fatal("event not handled")
	}

	if err := b.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	msgs := b.Outbox.Messages()
	if len(msgs) != 1 || msgs[0].Topic != "test.events" || msgs[0].Headers[servicebus.HeaderEventID] == "" {
		t.Fatalf("outbox: %+v", msgs)
	}
}

func TestNewMemoryBus_EventsDisabled(t *testing.T) {
	b, cleanup := New(servicebus.WithEvents(false))
	defer cleanup()

	if err := b.Publish(t.Context(), testEvt{}); !errors.Is(err, berr.ErrEventsDisabled) {
		t.Fatalf("want ErrEventsDisabled, got %v", err)
	}
}
