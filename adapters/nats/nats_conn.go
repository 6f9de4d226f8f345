package nats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	berr "github.com/next-trace/scg-mediator/contract/errors"
	"github.com/next-trace/scg-mediator/internal/observability"
)

// Config describes the NATS connection behind NewWithNATS.
type Config struct {
	URL           string
	Name          string
	ConnTimeout   time.Duration
	ReconnectWait time.Duration
	// MaxReconnects of -1 retries forever; 0 keeps the nats.go default.
	MaxReconnects int
	// Logger receives disconnect, reconnect and async errors.
	Logger *slog.Logger
}

type connClient struct{ nc *nats.Conn }

// Publish sends one message and waits for the server to acknowledge the flush
// until ctx ends.
func (c connClient) Publish(ctx context.Context, subject string, data []byte, headers map[string]string) error {
	msg := &nats.Msg{Subject: subject, Data: data, Header: nats.Header{}}
	for k, v := range headers {
		msg.Header.Set(k, v)
	}

	if err := c.nc.PublishMsg(msg); err != nil {
		return err
	}

	return c.nc.FlushWithContext(ctx)
}

func connOptions(cfg Config) []nats.Option {
	logger := observability.Logger(cfg.Logger).With(slog.String("broker", "nats"))

	opts := []nats.Option{
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("disconnected", slog.String("error", err.Error()))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("reconnected", slog.String("url", nc.ConnectedUrl()))
		}),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			logger.Error("async error", slog.String("error", err.Error()))
		}),
	}

	if cfg.Name != "" {
		opts = append(opts, nats.Name(cfg.Name))
	}

	if cfg.ConnTimeout > 0 {
		opts = append(opts, nats.Timeout(cfg.ConnTimeout))
	}

	if cfg.ReconnectWait > 0 {
		opts = append(opts, nats.ReconnectWait(cfg.ReconnectWait))
	}

	if cfg.MaxReconnects != 0 {
		opts = append(opts, nats.MaxReconnects(cfg.MaxReconnects))
	}

	return opts
}

// NewWithNATS connects to NATS and returns an Adapter and a cleanup that drains the connection.
func NewWithNATS(cfg Config) (*Adapter, func(), error) {
	if cfg.URL == "" {
		return nil, nil, fmt.Errorf("nats connect: url required: %w", berr.ErrInvalidConfig)
	}

	nc, err := nats.Connect(cfg.URL, connOptions(cfg)...)
	if err != nil {
		return nil, nil, fmt.Errorf("nats connect %s: %w", cfg.URL, errors.Join(berr.ErrPublishFailed, err))
	}

	cleanup := func() {
		if !nc.IsClosed() {
			// Drain closes the connection once pending publishes flush.
			_ = nc.Drain()
		}
	}

	return New(connClient{nc: nc}), cleanup, nil
}
