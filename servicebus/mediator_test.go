package servicebus_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	cbus "github.com/next-trace/scg-mediator/contract/bus"
	berr "github.com/next-trace/scg-mediator/contract/errors"
	"github.com/next-trace/scg-mediator/registry"
	"github.com/next-trace/scg-mediator/servicebus"
)

type gCmd struct{ ID string }

type gQry struct{ K string }

type gRes struct{ V string }

type gQryHandler struct{}

func (gQryHandler) Handle(_ context.Context, q gQry) (gRes, error) { return gRes{V: q.K}, nil }

func newGenericMediator(t *testing.T, cmd func(context.Context, gCmd) error, opts ...servicebus.Option) *servicebus.Mediator {
	t.Helper()

	reg := registry.New()
	if err := registry.BindCommand[gCmd](reg, cbus.CommandHandlerFunc[gCmd](cmd)); err != nil {
		t.Fatalf("bind cmd: %v", err)
	}

	if err := registry.BindRequest[gQry, gRes](reg, gQryHandler{}); err != nil {
		t.Fatalf("bind query: %v", err)
	}

	m := servicebus.NewMediator(reg, opts...)
	t.Cleanup(func() { _ = m.Close() })

	return m
}

func Test_CommandBus_QueryBus_And_Ask(t *testing.T) {
	var seen []string

	m := newGenericMediator(t, func(_ context.Context, c gCmd) error {
		seen = append(seen, c.ID)
		return nil
	})

	cb := servicebus.NewCommandBus(m)
	if err := cb.Dispatch(t.Context(), gCmd{ID: "1"}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	if len(seen) != 1 || seen[0] != "1" {
		t.Fatalf("seen=%v", seen)
	}

	qb := servicebus.NewQueryBus(m)

	raw, err := qb.Ask(t.Context(), gQry{K: "k"})
	if err != nil || raw.(gRes).V != "k" {
		t.Fatalf("ask: %v raw=%+v", err, raw)
	}

	r, err := servicebus.Ask[gRes](t.Context(), qb, gQry{K: "typed"})
	if err != nil || r.V != "typed" {
		t.Fatalf("typed ask: %v r=%+v", err, r)
	}

	if _, err := servicebus.Ask[int](t.Context(), qb, gQry{K: "x"}); !errors.Is(err, berr.ErrHandlerTypeMismatch) {
		t.Fatalf("want ErrHandlerTypeMismatch, got %v", err)
	}
}

func Test_Chain_StopsOnFirstError(t *testing.T) {
	var i int

	m := newGenericMediator(t, func(context.Context, gCmd) error {
		i++
		if i == 2 {
			return errors.New("boom")
		}

		return nil
	})

	err := servicebus.NewCommandBus(m).Chain(t.Context(), gCmd{ID: "1"}, gCmd{ID: "2"}, gCmd{ID: "3"})
	if err == nil {
		t.Fatalf("expected error")
	}

	if i != 2 { // third should not run
		t.Fatalf("ran %d handlers, want 2", i)
	}
}

func Test_Batch_Progress_Error_AndCancel(t *testing.T) {
	m := newGenericMediator(t, func(_ context.Context, c gCmd) error {
		if c.ID == "bad" {
			return errors.New("bad")
		}

		return nil
	})

	var (
		prog []int
		errs []string
	)

	opts := []servicebus.BatchOpt{
		servicebus.WithBatchProgress(func(done, _ int) { prog = append(prog, done) }),
		servicebus.WithBatchOnError(func(_ int, cmd cbus.Command, _ error) {
			errs = append(errs, cmd.(gCmd).ID)
		}),
	}

	cb := servicebus.NewCommandBus(m)

	cmds := []cbus.Command{gCmd{ID: "a"}, gCmd{ID: "bad"}, gCmd{ID: "b"}}
	if err := cb.Batch(t.Context(), cmds, opts...); err == nil {
		t.Fatalf("expected aggregated error")
	}

	if len(prog) != 3 || prog[0] != 1 || prog[2] != 3 {
		t.Fatalf("progress=%v", prog)
	}

	if len(errs) != 1 || errs[0] != "bad" {
		t.Fatalf("errs=%v", errs)
	}

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	err := cb.Batch(ctx, []cbus.Command{gCmd{ID: "x"}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled joined, got %v", err)
	}
}

func TestMediator_PublishesAndCloses(t *testing.T) {
	reg := registry.New()

	var handled atomic.Int32

	_ = registry.BindEventHandler[orderPlaced](reg, handlerFunc(func(context.Context, orderPlaced) error {
		handled.Add(1)
		return nil
	}))
	_ = registry.BindRequest[gQry, gRes](reg, gQryHandler{})

	m := servicebus.NewMediator(reg)

	var _ cbus.Mediator = m

	if err := m.Publish(t.Context(), orderPlaced{}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if err := m.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if handled.Load() != 1 {
		t.Fatalf("handled=%d", handled.Load())
	}

	if err := m.Publish(t.Context(), orderPlaced{}); !errors.Is(err, berr.ErrBusClosed) {
		t.Fatalf("want ErrBusClosed, got %v", err)
	}

	if _, err := m.Send(t.Context(), gQry{K: "still"}); err != nil {
		t.Fatalf("send after close: %v", err)
	}
}

func TestMediator_EventsDisabled(t *testing.T) {
	m := newGenericMediator(t, func(context.Context, gCmd) error { return nil }, servicebus.WithEvents(false))

	if m.Events() != nil {
		t.Fatalf("event bus started while disabled")
	}

	if err := m.Publish(t.Context(), orderPlaced{}); !errors.Is(err, berr.ErrEventsDisabled) {
		t.Fatalf("want ErrEventsDisabled, got %v", err)
	}

	if err := m.Exec(t.Context(), gCmd{ID: "ok"}); err != nil {
		t.Fatalf("exec: %v", err)
	}
}
