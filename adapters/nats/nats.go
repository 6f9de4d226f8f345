package nats

import (
	"context"
	"fmt"

	cbus "github.com/next-trace/scg-mediator/contract/bus"
	"github.com/next-trace/scg-mediator/internal/outbound"
)

// Client is a minimal NATS-like publisher interface decoupled from any concrete library.
// Users can provide a wrapper around their NATS connection to satisfy this.
type Client interface {
	// Publish publishes a message to a subject with optional headers.
	Publish(ctx context.Context, subject string, data []byte, headers map[string]string) error
}

// Adapter relays integration events to NATS subjects named after their topic.
type Adapter struct {
	Client Client
}

var _ cbus.IntegrationPublisher = (*Adapter)(nil)

// New creates a new NATS adapter instance with the provided client.
func New(c Client) *Adapter { return &Adapter{Client: c} }

// PublishIntegration serializes e and publishes it on its topic subject.
func (a *Adapter) PublishIntegration(ctx context.Context, e cbus.IntegrationEvent, opts cbus.PublishOptions) error {
	if err := outbound.Ready(ctx, "nats", a.Client != nil); err != nil {
		return err
	}

	msg, err := outbound.Build(e, opts)
	if err != nil {
		return fmt.Errorf("nats publish %s: %w", outbound.Topic(e, opts), err)
	}

	if err := a.Client.Publish(ctx, msg.Topic, msg.Body, msg.Headers); err != nil {
		return outbound.Failed("nats", err)
	}

	return nil
}
