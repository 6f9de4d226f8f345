package cli

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/next-trace/scg-mediator/adapters/inmemory"
	"github.com/next-trace/scg-mediator/adapters/kafka"
	"github.com/next-trace/scg-mediator/adapters/nats"
	"github.com/next-trace/scg-mediator/adapters/rabbitmq"
	"github.com/next-trace/scg-mediator/adapters/watermill"
	"github.com/next-trace/scg-mediator/config"
	"github.com/next-trace/scg-mediator/contract/bus"
	berr "github.com/next-trace/scg-mediator/contract/errors"
	"github.com/next-trace/scg-mediator/internal/observability"
)

func nop() {}

// newPublisher builds the integration publisher selected by cfg.
// It returns a nil publisher for the "none" driver.
func newPublisher(cfg config.RelayConfig, logger *slog.Logger) (bus.IntegrationPublisher, func(), error) {
	switch cfg.Driver {
	case config.RelayNone, "":
		return nil, nop, nil
	case config.RelayMemory:
		return inmemory.New(), nop, nil
	case config.RelayNATS:
		ad, cleanup, err := nats.NewWithNATS(nats.Config{URL: cfg.URL, Name: "scg-mediator", Logger: logger})
		if err != nil {
			return nil, nil, err
		}

		return ad, cleanup, nil
	case config.RelayKafka:
		ad, cleanup, err := kafka.NewWithKgo(kafka.Config{Brokers: cfg.Brokers, ClientID: "scg-mediator"})
		if err != nil {
			return nil, nil, err
		}

		return ad, cleanup, nil
	case config.RelayRabbitMQ:
		ad, cleanup, err := rabbitmq.NewWithAMQPConn(rabbitmq.Config{URL: cfg.URL})
		if err != nil {
			return nil, nil, err
		}

		ad.Propagator = observability.NewHeaderPropagator(nil)

		return ad, cleanup, nil
	case config.RelayWatermill:
		ad, _, cleanup := watermill.NewGoChannel(gochannel.Config{}, logger)
		ad.Propagator = observability.NewHeaderPropagator(nil)

		return ad, cleanup, nil
	default:
		return nil, nil, fmt.Errorf("relay driver %q: %w", cfg.Driver, berr.ErrInvalidConfig)
	}
}
