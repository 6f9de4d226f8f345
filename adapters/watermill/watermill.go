// Package watermill relays integration events through any Watermill message.Publisher.
package watermill

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	cbus "github.com/next-trace/scg-mediator/contract/bus"
	"github.com/next-trace/scg-mediator/internal/outbound"
)

// HeaderEventID is the metadata key whose value, when present, becomes the message UUID.
const HeaderEventID = outbound.HeaderEventID

// Adapter publishes each integration event as one Watermill message on its topic.
type Adapter struct {
	Publisher  message.Publisher
	Propagator cbus.HeaderPropagator // optional
}

var _ cbus.IntegrationPublisher = (*Adapter)(nil)

// New returns an Adapter over p.
func New(p message.Publisher) *Adapter { return &Adapter{Publisher: p} }

// NewGoChannel returns an Adapter backed by an in-process gochannel pub/sub,
// the subscriber side of it, and a cleanup that closes both.
func NewGoChannel(cfg gochannel.Config, logger *slog.Logger) (*Adapter, message.Subscriber, func()) {
	var wl watermill.LoggerAdapter = watermill.NopLogger{}
	if logger != nil {
		wl = watermill.NewSlogLogger(logger)
	}

	ps := gochannel.NewGoChannel(cfg, wl)

	return New(ps), ps, func() { _ = ps.Close() }
}

// PublishIntegration serializes e and publishes it to its topic.
func (a *Adapter) PublishIntegration(ctx context.Context, e cbus.IntegrationEvent, opts cbus.PublishOptions) error {
	if err := outbound.Ready(ctx, "watermill", a.Publisher != nil); err != nil {
		return err
	}

	out, err := outbound.Build(e, opts)
	if err != nil {
		return fmt.Errorf("watermill publish %s: %w", outbound.Topic(e, opts), err)
	}

	if a.Propagator != nil {
		a.Propagator.Inject(ctx, out.Headers)
	}

	id := out.Headers[HeaderEventID]
	if id == "" {
		id = watermill.NewUUID()
	}

	msg := message.NewMessage(id, out.Body)
	msg.SetContext(ctx)

	for k, v := range out.Headers {
		msg.Metadata.Set(k, v)
	}

	if err := a.Publisher.Publish(out.Topic, msg); err != nil {
		return outbound.Failed("watermill", err)
	}

	return nil
}
