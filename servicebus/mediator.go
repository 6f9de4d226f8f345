package servicebus

import (
	"context"
	"errors"
	"fmt"

	"github.com/next-trace/scg-mediator/contract/bus"
	berr "github.com/next-trace/scg-mediator/contract/errors"
)

// Resolver is everything a Mediator resolves. *registry.Registry implements it.
type Resolver interface {
	RequestResolver
	EventResolver
}

// Mediator combines a Dispatcher and an EventBus behind one surface.
// It is concurrency-safe and contains no global state.
type Mediator struct {
	*Dispatcher

	events *EventBus
}

var _ bus.Mediator = (*Mediator)(nil)

// NewMediator returns a Mediator over r. The event bus starts immediately unless
// WithEvents(false) is given.
func NewMediator(r Resolver, opts ...Option) *Mediator {
	m := &Mediator{Dispatcher: NewDispatcher(r, opts...)}

	if o := newOptions(opts); !o.noEvents {
		m.events = NewEventBus(r, opts...)
	}

	return m
}

// Publish queues evt for its handlers.
func (m *Mediator) Publish(ctx context.Context, evt bus.Event) error {
	if m.events == nil {
		return fmt.Errorf("publish %T: %w", evt, berr.ErrEventsDisabled)
	}

	return m.events.Publish(ctx, evt)
}

// Events returns the underlying event bus, or nil when events are disabled.
func (m *Mediator) Events() *EventBus { return m.events }

// Shutdown drains the event bus. Requests can still be sent afterwards.
func (m *Mediator) Shutdown(ctx context.Context) error {
	if m.events == nil {
		return nil
	}

	return m.events.Shutdown(ctx)
}

// Close shuts the event bus down with the configured grace period.
func (m *Mediator) Close() error {
	return m.Shutdown(context.Background())
}

// CommandBus is a thin facade over a Sender for commands.
type CommandBus struct{ s bus.Sender }

// NewCommandBus constructs a CommandBus over s.
func NewCommandBus(s bus.Sender) *CommandBus { return &CommandBus{s: s} }

// Dispatch executes a void command.
func (c *CommandBus) Dispatch(ctx context.Context, cmd bus.Command) error {
	return c.s.Exec(ctx, cmd)
}

// Chain executes commands in order and stops on the first error.
func (c *CommandBus) Chain(ctx context.Context, cmds ...bus.Command) error {
	for _, cmd := range cmds {
		if err := c.s.Exec(ctx, cmd); err != nil {
			return err
		}
	}

	return nil
}

// revive:disable:max-public-structs
// BatchOptions controls Batch execution behavior.
// OnProgress is called after each command completes (success or failure) with done and total.
// OnError is called when a command returns an error with its index, the command value, and the error.
type BatchOptions struct {
	OnProgress func(done, total int)
	OnError    func(index int, cmd bus.Command, err error)
}

// revive:enable:max-public-structs

// BatchOpt configures BatchOptions.
type BatchOpt func(*BatchOptions)

// WithBatchProgress sets the progress callback.
func WithBatchProgress(fn func(done, total int)) BatchOpt {
	return func(o *BatchOptions) { o.OnProgress = fn }
}

// WithBatchOnError sets the error callback.
func WithBatchOnError(fn func(index int, cmd bus.Command, err error)) BatchOpt {
	return func(o *BatchOptions) { o.OnError = fn }
}

// Batch executes every command even when some fail, and joins the errors.
// It stops early only when ctx ends.
func (c *CommandBus) Batch(ctx context.Context, cmds []bus.Command, opts ...BatchOpt) error {
	var o BatchOptions
	for _, f := range opts {
		f(&o)
	}

	var errs []error

	for i, cmd := range cmds {
		if err := ctx.Err(); err != nil {
			return errors.Join(append(errs, err)...)
		}

		if err := c.s.Exec(ctx, cmd); err != nil {
			if o.OnError != nil {
				o.OnError(i, cmd, err)
			}

			errs = append(errs, err)
		}

		if o.OnProgress != nil {
			o.OnProgress(i+1, len(cmds))
		}
	}

	return errors.Join(errs...)
}

// QueryBus is a thin facade over a Sender for queries.
type QueryBus struct{ s bus.Sender }

// NewQueryBus constructs a QueryBus over s.
func NewQueryBus(s bus.Sender) *QueryBus { return &QueryBus{s: s} }

// Ask executes an untyped query.
func (q *QueryBus) Ask(ctx context.Context, query bus.Query) (any, error) {
	return q.s.Send(ctx, query)
}

// Ask is a typed helper to execute queries via a QueryBus.
func Ask[R any](ctx context.Context, qb *QueryBus, query bus.Query) (R, error) {
	return Send[R](ctx, qb.s, query)
}
