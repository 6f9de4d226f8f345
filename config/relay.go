package config

// Relay drivers.
const (
	RelayNone      = "none"
	RelayMemory    = "memory"
	RelayNATS      = "nats"
	RelayKafka     = "kafka"
	RelayRabbitMQ  = "rabbitmq"
	RelayWatermill = "watermill"
)

// RelayConfig selects the broker integration events are relayed to.
type RelayConfig struct {
	Driver string `mapstructure:"driver" validate:"required,oneof=none memory nats kafka rabbitmq watermill"`

	// URL is the NATS or AMQP url.
	URL string `mapstructure:"url"`

	// Brokers are the Kafka seed brokers.
	Brokers []string `mapstructure:"brokers"`

	// Topic overrides the event's own topic when set.
	Topic string `mapstructure:"topic"`
}
