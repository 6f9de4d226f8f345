package config

import (
	"time"

	"github.com/next-trace/scg-mediator/servicebus"
)

// EventBusConfig sizes the event queue and worker pool.
type EventBusConfig struct {
	// Enabled false builds a mediator without an event bus.
	Enabled bool `mapstructure:"enabled"`

	// QueueCapacity is the bounded queue size Q.
	QueueCapacity int `mapstructure:"queue_capacity" validate:"min=1"`

	// Workers is the worker count C. 1 gives global FIFO handling.
	Workers int `mapstructure:"workers" validate:"min=1,max=1024"`

	// ShutdownGrace bounds the drain on shutdown.
	ShutdownGrace time.Duration `mapstructure:"shutdown_grace" validate:"min=1ms"`
}

// Options converts the config into servicebus options.
func (c EventBusConfig) Options() []servicebus.Option {
	return []servicebus.Option{
		servicebus.WithEvents(c.Enabled),
		servicebus.WithQueueCapacity(c.QueueCapacity),
		servicebus.WithWorkers(c.Workers),
		servicebus.WithShutdownGrace(c.ShutdownGrace),
	}
}
