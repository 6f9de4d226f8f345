package bus

import "context"

// Sender dispatches requests to their single handler through the pipeline.
type Sender interface {
	// Send dispatches a result-bearing request and returns the handler's result.
	Send(ctx context.Context, req Request) (any, error)
	// Exec dispatches a void request.
	Exec(ctx context.Context, cmd Command) error
}

// EventPublisher queues events for asynchronous fan-out.
type EventPublisher interface {
	Publish(ctx context.Context, evt Event) error
}

// Mediator is the combined request and event surface.
// This interface is intended for consumers that want to depend only on contracts.
type Mediator interface {
	Sender
	EventPublisher

	// Close stops event processing. It is idempotent.
	Close() error
}
