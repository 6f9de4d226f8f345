// Package outbound turns integration events into broker-neutral messages.
// Every broker adapter builds its wire message from Build so topics, keys and
// headers mean the same thing on NATS, Kafka, RabbitMQ and Watermill.
package outbound

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"github.com/next-trace/scg-mediator/contract/bus"
	berr "github.com/next-trace/scg-mediator/contract/errors"
	"github.com/next-trace/scg-mediator/internal/codec"
)

const (
	// HeaderContentType carries the payload media type.
	HeaderContentType = "content-type"
	// HeaderKey carries the partition or routing key when one is set.
	HeaderKey = "key"
	// HeaderEventID carries the id the event bus assigned to a relayed event.
	HeaderEventID = "x-event-id"
	// HeaderEventType carries the Go type name of a relayed event.
	HeaderEventType = "x-event-type"
)

// Message is a serialized integration event with its resolved routing.
type Message struct {
	Topic   string
	Key     string
	Body    []byte
	Headers map[string]string
}

// Build serializes e and resolves its topic and headers from opts.
// opts.Headers is copied, never modified.
func Build(e bus.IntegrationEvent, opts bus.PublishOptions) (Message, error) {
	body, err := codec.Marshal(e)
	if err != nil {
		return Message{}, errors.Join(berr.ErrSerializationFailed, err)
	}

	return Message{
		Topic:   Topic(e, opts),
		Key:     opts.Key,
		Body:    body,
		Headers: Headers(opts),
	}, nil
}

// Topic returns opts.TopicOverride when set, otherwise e.Topic().
func Topic(e bus.IntegrationEvent, opts bus.PublishOptions) string {
	if opts.TopicOverride != "" {
		return opts.TopicOverride
	}

	return e.Topic()
}

// Headers returns a copy of opts.Headers with the content type and key added.
func Headers(opts bus.PublishOptions) map[string]string {
	h := make(map[string]string, len(opts.Headers)+2)
	maps.Copy(h, opts.Headers)
	h[HeaderContentType] = codec.ContentType

	if opts.Key != "" {
		h[HeaderKey] = opts.Key
	}

	return h
}

// Failed wraps a broker error in ErrPublishFailed. Context errors are returned as-is.
func Failed(broker string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	return fmt.Errorf("%s publish: %w", broker, errors.Join(berr.ErrPublishFailed, err))
}

// Ready reports ctx errors and a missing client before any work is done.
func Ready(ctx context.Context, broker string, hasClient bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if !hasClient {
		return fmt.Errorf("%s publish: no client: %w", broker, berr.ErrPublishFailed)
	}

	return nil
}
