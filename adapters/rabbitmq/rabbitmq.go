package rabbitmq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	cbus "github.com/next-trace/scg-mediator/contract/bus"
	"github.com/next-trace/scg-mediator/internal/codec"
	"github.com/next-trace/scg-mediator/internal/outbound"
)

// PubMsg is one AMQP publishing.
type PubMsg struct {
	Exchange   string
	RoutingKey string
	Body       []byte
	Headers    map[string]string
}

// Publisher sends a PubMsg to the broker.
type Publisher interface {
	Publish(ctx context.Context, m PubMsg) error
}

// Adapter relays integration events to an exchange, routed by topic.
type Adapter struct {
	Publisher  Publisher
	Exchange   string
	Propagator cbus.HeaderPropagator // optional, for context propagation into headers
}

var _ cbus.IntegrationPublisher = (*Adapter)(nil)

// New returns an Adapter publishing to the default exchange.
func New(p Publisher) *Adapter { return &Adapter{Publisher: p} }

// NewWithPropagator allows configuring a HeaderPropagator for context propagation.
func NewWithPropagator(p Publisher, hp cbus.HeaderPropagator) *Adapter {
	return &Adapter{Publisher: p, Propagator: hp}
}

// PublishIntegration serializes e and publishes it with its topic as routing key.
func (a *Adapter) PublishIntegration(ctx context.Context, e cbus.IntegrationEvent, opts cbus.PublishOptions) error {
	if err := outbound.Ready(ctx, "rabbitmq", a.Publisher != nil); err != nil {
		return err
	}

	msg, err := outbound.Build(e, opts)
	if err != nil {
		return fmt.Errorf("rabbitmq publish %s: %w", outbound.Topic(e, opts), err)
	}

	if a.Propagator != nil {
		a.Propagator.Inject(ctx, msg.Headers)
	}

	pm := PubMsg{
		Exchange:   a.Exchange,
		RoutingKey: msg.Topic,
		Body:       msg.Body,
		Headers:    msg.Headers,
	}

	if err := a.Publisher.Publish(ctx, pm); err != nil {
		return outbound.Failed("rabbitmq", err)
	}

	return nil
}

// publishing converts m into an amqp.Publishing.
func publishing(m PubMsg, mode uint8) amqp.Publishing {
	var h amqp.Table
	if len(m.Headers) > 0 {
		h = make(amqp.Table, len(m.Headers))
		for k, v := range m.Headers {
			h[k] = v
		}
	}

	return amqp.Publishing{
		DeliveryMode: mode,
		Headers:      h,
		ContentType:  codec.ContentType,
		Body:         m.Body,
	}
}

type amqpChannelPublisher struct{ ch *amqp.Channel }

func (p amqpChannelPublisher) Publish(ctx context.Context, m PubMsg) error {
	return p.ch.PublishWithContext(ctx, m.Exchange, m.RoutingKey, false, false, publishing(m, amqp.Transient))
}

// NewWithAMQPChannel wraps an existing channel. The caller owns the channel.
func NewWithAMQPChannel(ch *amqp.Channel, exchange string) *Adapter {
	return &Adapter{Publisher: amqpChannelPublisher{ch: ch}, Exchange: exchange}
}
