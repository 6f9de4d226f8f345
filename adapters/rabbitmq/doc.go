/*
Package rabbitmq relays integration events to RabbitMQ.
It maps each event to one AMQP publishing routed by topic, includes an auto-reconnect
publisher, and supports optional header propagation via a bus.HeaderPropagator.
*/
package rabbitmq
