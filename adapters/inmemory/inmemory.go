package inmemory

import (
	"context"
	"fmt"
	"sync"

	cbus "github.com/next-trace/scg-mediator/contract/bus"
	"github.com/next-trace/scg-mediator/internal/outbound"
)

// Published is one recorded integration event with the message a broker would have received.
type Published struct {
	Event   cbus.IntegrationEvent
	Topic   string
	Key     string
	Body    []byte
	Headers map[string]string
}

// Publisher is a thread-safe in-memory cbus.IntegrationPublisher.
// It records every publish for tests and examples.
type Publisher struct {
	mu   sync.Mutex
	msgs []Published
	fail error
}

var _ cbus.IntegrationPublisher = (*Publisher)(nil)

// New creates a new in-memory publisher.
func New() *Publisher { return &Publisher{} }

// PublishIntegration serializes e like a broker adapter would and records it.
func (p *Publisher) PublishIntegration(ctx context.Context, e cbus.IntegrationEvent, opts cbus.PublishOptions) error {
	if err := outbound.Ready(ctx, "inmemory", true); err != nil {
		return err
	}

	msg, err := outbound.Build(e, opts)
	if err != nil {
		return fmt.Errorf("inmemory publish %s: %w", outbound.Topic(e, opts), err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.fail != nil {
		return outbound.Failed("inmemory", p.fail)
	}

	p.msgs = append(p.msgs, Published{
		Event:   e,
		Topic:   msg.Topic,
		Key:     msg.Key,
		Body:    msg.Body,
		Headers: msg.Headers,
	})

	return nil
}

// Messages returns a copy of everything published so far, in publish order.
func (p *Publisher) Messages() []Published {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]Published(nil), p.msgs...)
}

// FailWith makes subsequent publishes fail with err. A nil err restores success.
func (p *Publisher) FailWith(err error) {
	p.mu.Lock()
	p.fail = err
	p.mu.Unlock()
}

// Reset drops the recorded messages and any configured failure.
func (p *Publisher) Reset() {
	p.mu.Lock()
	p.msgs, p.fail = nil, nil
	p.mu.Unlock()
}
