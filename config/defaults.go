package config

import (
	"github.com/spf13/viper"

	"github.com/next-trace/scg-mediator/servicebus"
)

// registerDefaults makes every key known to viper so env overrides apply
// even when no config file sets them.
func registerDefaults(v *viper.Viper) {
	v.SetDefault("event_bus.enabled", true)
	v.SetDefault("event_bus.queue_capacity", servicebus.DefaultQueueCapacity)
	v.SetDefault("event_bus.workers", servicebus.DefaultWorkers)
	v.SetDefault("event_bus.shutdown_grace", servicebus.DefaultShutdownGrace)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("relay.driver", RelayNone)
	v.SetDefault("relay.url", "")
	v.SetDefault("relay.brokers", []string{})
	v.SetDefault("relay.topic", "")
}

// SetDefaults fills zero values. Enabled has no zero-value default; Load sets it through viper.
func SetDefaults(cfg *Config) {
	if cfg.EventBus.QueueCapacity == 0 {
		cfg.EventBus.QueueCapacity = servicebus.DefaultQueueCapacity
	}
	if cfg.EventBus.Workers == 0 {
		cfg.EventBus.Workers = servicebus.DefaultWorkers
	}
	if cfg.EventBus.ShutdownGrace == 0 {
		cfg.EventBus.ShutdownGrace = servicebus.DefaultShutdownGrace
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Relay.Driver == "" {
		cfg.Relay.Driver = RelayNone
	}
}
