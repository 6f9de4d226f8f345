package bus

import "context"

// IntegrationPublisher abstracts publishing integration events to a broker.
// Relay handlers forward in-process events through it; the adapters package
// maps it onto NATS, Kafka, RabbitMQ, Watermill or memory.
type IntegrationPublisher interface {
	PublishIntegration(ctx context.Context, evt IntegrationEvent, opts PublishOptions) error
}
