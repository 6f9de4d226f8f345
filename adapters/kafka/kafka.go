package kafka

import (
	"context"
	"fmt"

	cbus "github.com/next-trace/scg-mediator/contract/bus"
	"github.com/next-trace/scg-mediator/internal/outbound"
)

// Writer is a minimal Kafka-like writer interface.
// Users can adapt franz-go or any other client to this.
type Writer interface {
	Write(ctx context.Context, topic string, key, value []byte, headers map[string]string) error
}

// Adapter relays integration events to Kafka topics, keyed by PublishOptions.Key.
type Adapter struct {
	Writer Writer
}

var _ cbus.IntegrationPublisher = (*Adapter)(nil)

// New creates a new Kafka adapter instance with the provided writer.
func New(w Writer) *Adapter { return &Adapter{Writer: w} }

// PublishIntegration serializes e and writes one record to its topic.
func (a *Adapter) PublishIntegration(ctx context.Context, e cbus.IntegrationEvent, opts cbus.PublishOptions) error {
	if err := outbound.Ready(ctx, "kafka", a.Writer != nil); err != nil {
		return err
	}

	msg, err := outbound.Build(e, opts)
	if err != nil {
		return fmt.Errorf("kafka publish %s: %w", outbound.Topic(e, opts), err)
	}

	var key []byte
	if msg.Key != "" {
		key = []byte(msg.Key)
	}

	if err := a.Writer.Write(ctx, msg.Topic, key, msg.Body, msg.Headers); err != nil {
		return outbound.Failed("kafka", err)
	}

	return nil
}
