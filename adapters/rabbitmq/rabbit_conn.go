package rabbitmq

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	berr "github.com/next-trace/scg-mediator/contract/errors"
)

// Concrete AMQP connection-backed constructor and publisher wrapper with auto-reconnect.

const (
	// IntegrationExchange is the durable topic exchange NewWithAMQPConn publishes to.
	IntegrationExchange = "integration"

	exchangeKind = "topic"
	minBackoff   = time.Second
	maxBackoff   = 30 * time.Second
)

// Config describes the RabbitMQ connection behind NewWithAMQPConn.
type Config struct {
	URL         string
	ConnTimeout time.Duration
	// Exchange defaults to IntegrationExchange.
	Exchange string
}

type reconnectingPublisher struct {
	cfg Config

	mu     sync.RWMutex
	conn   *amqp.Connection
	ch     *amqp.Channel
	ready  chan struct{} // closed while a channel is available
	closed chan struct{}
	once   sync.Once
}

func newReconnectingPublisher(cfg Config) *reconnectingPublisher {
	rp := &reconnectingPublisher{
		cfg:    cfg,
		ready:  make(chan struct{}),
		closed: make(chan struct{}),
	}

	go rp.run()

	return rp
}

func (rp *reconnectingPublisher) Publish(ctx context.Context, m PubMsg) error {
	rp.mu.RLock()
	ch, ready := rp.ch, rp.ready
	rp.mu.RUnlock()

	if ch == nil {
		select {
		case <-ready:
		case <-ctx.Done():
			return ctx.Err()
		case <-rp.closed:
			return fmt.Errorf("rabbitmq: publisher closed: %w", berr.ErrPublishFailed)
		}

		rp.mu.RLock()
		ch = rp.ch
		rp.mu.RUnlock()

		if ch == nil {
			return fmt.Errorf("rabbitmq: not connected: %w", berr.ErrPublishFailed)
		}
	}

	return ch.PublishWithContext(ctx, m.Exchange, m.RoutingKey, false, false, publishing(m, amqp.Persistent))
}

func (rp *reconnectingPublisher) dial() (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.DialConfig(rp.cfg.URL, amqp.Config{
		Locale:     "en_US",
		Properties: amqp.Table{"product": "scg-mediator"},
		Dial:       amqp.DefaultDial(rp.cfg.ConnTimeout),
	})
	if err != nil {
		return nil, nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}

	if err := ch.ExchangeDeclare(rp.cfg.Exchange, exchangeKind, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()

		return nil, nil, err
	}

	return conn, ch, nil
}

func (rp *reconnectingPublisher) run() {
	backoff := minBackoff

	for {
		conn, ch, err := rp.dial()
		if err != nil {
			if !rp.sleep(backoff) {
				return
			}

			backoff = min(backoff*2, maxBackoff)

			continue
		}

		backoff = minBackoff

		rp.mu.Lock()
		rp.conn, rp.ch = conn, ch
		close(rp.ready)
		rp.mu.Unlock()

		notify := conn.NotifyClose(make(chan *amqp.Error, 1))

		select {
		case <-rp.closed:
			// close may have run before this connection was stored
			_ = ch.Close()
			_ = conn.Close()

			return
		case <-notify:
		}

		rp.mu.Lock()
		rp.conn, rp.ch = nil, nil
		rp.ready = make(chan struct{})
		rp.mu.Unlock()

		_ = ch.Close()
		_ = conn.Close()
	}
}

// sleep waits for d plus jitter. It returns false once the publisher is closed.
func (rp *reconnectingPublisher) sleep(d time.Duration) bool {
	d += rand.N(d / 2) //nolint:gosec // jitter does not need a secure source

	t := time.NewTimer(min(d, maxBackoff))
	defer t.Stop()

	select {
	case <-rp.closed:
		return false
	case <-t.C:
		return true
	}
}

func (rp *reconnectingPublisher) close() {
	rp.once.Do(func() {
		close(rp.closed)

		rp.mu.Lock()
		defer rp.mu.Unlock()

		if rp.ch != nil {
			_ = rp.ch.Close()
			rp.ch = nil
		}

		if rp.conn != nil {
			_ = rp.conn.Close()
			rp.conn = nil
		}
	})
}

// NewWithAMQPConn dials RabbitMQ with auto-reconnect, declares the exchange, and returns Adapter and cleanup.
// Publishing blocks until the first connection is up or the publish context ends.
func NewWithAMQPConn(cfg Config) (*Adapter, func(), error) {
	if cfg.URL == "" {
		return nil, nil, fmt.Errorf("rabbitmq connect: url required: %w", berr.ErrInvalidConfig)
	}

	if cfg.Exchange == "" {
		cfg.Exchange = IntegrationExchange
	}

	pub := newReconnectingPublisher(cfg)

	return &Adapter{Publisher: pub, Exchange: cfg.Exchange}, pub.close, nil
}
