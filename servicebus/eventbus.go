package servicebus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
	"go.opentelemetry.io/otel/trace"

	"github.com/next-trace/scg-mediator/contract/bus"
	berr "github.com/next-trace/scg-mediator/contract/errors"
	"github.com/next-trace/scg-mediator/internal/observability"
	"github.com/next-trace/scg-mediator/registry"
)

// EventResolver locates every handler bound to an event type.
// *registry.Registry implements it.
type EventResolver interface {
	NewScope() *registry.Scope
	ResolveEventHandlers(evtType reflect.Type) []registry.EventHandlerBinding
}

// EventBus queues published events and fans each one out to its handlers on a
// fixed pool of workers. Handler failures are logged and never reach the publisher.
type EventBus struct {
	resolver EventResolver
	queue    *eventQueue
	grace    time.Duration

	ctx     context.Context
	cancel  context.CancelFunc
	workers sync.WaitGroup
	stopped chan struct{}

	logger  *slog.Logger
	metrics *observability.Metrics
	tracer  *observability.Tracer

	stopOnce sync.Once
	stopErr  error
}

var _ bus.EventPublisher = (*EventBus)(nil)

// NewEventBus starts an EventBus with its workers running.
func NewEventBus(r EventResolver, opts ...Option) *EventBus {
	o := newOptions(opts)
	logger, metrics, tracer := o.instruments()
	ctx, cancel := context.WithCancel(context.Background())

	b := &EventBus{
		resolver: r,
		queue:    newEventQueue(o.queueCapacity),
		grace:    o.shutdownGrace,
		ctx:      ctx,
		cancel:   cancel,
		stopped:  make(chan struct{}),
		logger:   logger,
		metrics:  metrics,
		tracer:   tracer,
	}

	for range o.workers {
		b.workers.Add(1)
		go b.work()
	}

	go func() {
		b.workers.Wait()
		close(b.stopped)
	}()

	b.logger.Debug("event bus started",
		slog.Int("workers", o.workers),
		slog.Int("capacity", b.queue.capacity()),
	)

	return b
}

// Publish enqueues evt and returns once it is accepted. It blocks while the queue is full.
// Handler outcomes are never reported here.
func (b *EventBus) Publish(ctx context.Context, evt bus.Event) error {
	if evt == nil {
		return fmt.Errorf("publish <nil>: %w", berr.ErrHandlerTypeMismatch)
	}

	t := reflect.TypeOf(evt)
	env := envelope{
		id:         uuid.NewString(),
		event:      evt,
		eventType:  t,
		link:       trace.SpanContextFromContext(ctx),
		enqueuedAt: time.Now(),
	}

	if err := b.queue.enqueue(ctx, env); err != nil {
		if errors.Is(err, berr.ErrBusClosed) {
			return fmt.Errorf("publish %s: %w", t, err)
		}

		return err
	}

	b.metrics.EventPublished(t.String())
	b.metrics.QueueDepth(b.queue.len())

	return nil
}

// Pending reports the number of events waiting for a worker.
func (b *EventBus) Pending() int { return b.queue.len() }

// Done is closed once every worker has exited.
func (b *EventBus) Done() <-chan struct{} { return b.stopped }

// Shutdown stops accepting events and waits for workers to drain the queue,
// bounded by the grace period and ctx. Workers observe cancellation only after
// draining finishes or the wait gives up. Shutdown is idempotent.
func (b *EventBus) Shutdown(ctx context.Context) error {
	b.stopOnce.Do(func() { b.stopErr = b.shutdown(ctx) })
	return b.stopErr
}

// Close shuts the bus down with the configured grace period.
func (b *EventBus) Close() error {
	return b.Shutdown(context.Background())
}

func (b *EventBus) shutdown(ctx context.Context) error {
	b.queue.close()

	timer := time.NewTimer(b.grace)
	defer timer.Stop()

	var err error

	select {
	case <-b.stopped:
		b.cancel()
		b.logger.Debug("event bus stopped")

		return nil
	case <-timer.C:
		err = fmt.Errorf("shutdown after %s: %w", b.grace, berr.ErrShutdownTimeout)
	case <-ctx.Done():
		err = fmt.Errorf("shutdown: %w", errors.Join(berr.ErrShutdownTimeout, ctx.Err()))
	}

	b.cancel()

	dropped := b.queue.drain()
	b.metrics.EventsDropped(dropped)
	b.logger.Warn("event bus shutdown timed out",
		slog.Int("dropped", dropped),
		slog.Duration("grace", b.grace),
	)

	return err
}

func (b *EventBus) work() {
	defer b.workers.Done()

	for {
		env, ok := b.queue.dequeue(b.ctx)
		if !ok {
			return
		}

		// The select in dequeue may pick an item over a cancellation that raced it.
		if b.ctx.Err() != nil {
			b.metrics.EventsDropped(1)
			return
		}

		b.metrics.QueueDepth(b.queue.len())
		b.handle(env)
	}
}

// handle runs every handler of env concurrently and waits for all of them.
func (b *EventBus) handle(env envelope) {
	name := env.eventType.String()

	scope := b.resolver.NewScope()
	defer func() {
		if err := scope.Close(); err != nil {
			b.logger.Warn("release scope",
				slog.String("event_type", name),
				slog.String("event_id", env.id),
				slog.String("error", err.Error()),
			)
		}
	}()

	handlers := b.resolver.ResolveEventHandlers(env.eventType)
	ctx := bus.WithEventID(b.ctx, env.id)
	ctx, span := b.tracer.StartEvent(ctx, name, env.id, len(handlers), env.link)

	b.logger.Debug("dispatching event",
		slog.String("event_type", name),
		slog.String("event_id", env.id),
		slog.Int("handlers", len(handlers)),
		slog.Duration("queued", time.Since(env.enqueuedAt)),
	)

	var (
		failed atomic.Int32
		wg     conc.WaitGroup
	)

	for _, h := range handlers {
		wg.Go(func() {
			if err := b.invoke(ctx, scope, h, env); err != nil {
				failed.Add(1)
			}
		})
	}

	wg.Wait()

	var err error
	if n := failed.Load(); n > 0 {
		err = fmt.Errorf("%d of %d handlers failed", n, len(handlers))
	}

	observability.EndSpan(span, err)
}

// invoke calls one handler, converting a panic into an error. The outcome is logged, not returned
// to any publisher.
func (b *EventBus) invoke(ctx context.Context, scope *registry.Scope, h registry.EventHandlerBinding, env envelope) error {
	name := env.eventType.String()

	var (
		err error
		pc  panics.Catcher
	)

	pc.Try(func() { err = h.Invoke(ctx, scope, env.event) })

	result := observability.OutcomeSuccess

	switch r := pc.Recovered(); {
	case r != nil:
		err = r.AsError()
		result = observability.OutcomePanic
	case err != nil:
		result = observability.OutcomeError
	}

	b.metrics.EventHandled(name, result)

	if err != nil {
		observability.LogHandlerFailure(b.logger, name, env.id, h.Name(), err)
	}

	return err
}
