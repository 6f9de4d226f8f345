package servicebus

import (
	"context"
	"reflect"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	berr "github.com/next-trace/scg-mediator/contract/errors"
)

// envelope is one queued event.
type envelope struct {
	id         string
	event      any
	eventType  reflect.Type
	link       trace.SpanContext
	enqueuedAt time.Time
}

// eventQueue is a bounded FIFO shared by many publishers and workers.
// After close, enqueue fails and dequeue drains the remaining items before reporting closed.
type eventQueue struct {
	items chan envelope

	mu       sync.Mutex
	closed   bool
	closing  chan struct{}
	inflight sync.WaitGroup
	once     sync.Once
}

func newEventQueue(capacity int) *eventQueue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}

	return &eventQueue{
		items:   make(chan envelope, capacity),
		closing: make(chan struct{}),
	}
}

// enqueue blocks while the queue is full until space frees, ctx ends or the queue closes.
func (q *eventQueue) enqueue(ctx context.Context, env envelope) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return berr.ErrBusClosed
	}
	q.inflight.Add(1)
	q.mu.Unlock()

	defer q.inflight.Done()

	select {
	case q.items <- env:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.closing:
		return berr.ErrBusClosed
	}
}

// dequeue blocks until an item arrives or ctx ends. ok is false once the queue
// is closed and drained, or when ctx has ended, even if items remain.
func (q *eventQueue) dequeue(ctx context.Context) (env envelope, ok bool) {
	if ctx.Err() != nil {
		return envelope{}, false
	}

	select {
	case env, ok = <-q.items:
		return env, ok
	case <-ctx.Done():
		return envelope{}, false
	}
}

// close rejects new items and wakes blocked publishers. Buffered items stay
// available to dequeue.
func (q *eventQueue) close() {
	q.once.Do(func() {
		q.mu.Lock()
		q.closed = true
		close(q.closing)
		q.mu.Unlock()

		q.inflight.Wait()
		close(q.items)
	})
}

// drain discards the buffered items without blocking and reports how many it removed.
func (q *eventQueue) drain() int {
	n := 0

	for {
		select {
		case _, ok := <-q.items:
			if !ok {
				return n
			}
			n++
		default:
			return n
		}
	}
}

func (q *eventQueue) len() int { return len(q.items) }

func (q *eventQueue) capacity() int { return cap(q.items) }
