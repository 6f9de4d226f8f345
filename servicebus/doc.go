/*
Package servicebus dispatches requests and events registered in a registry.Registry.

A Dispatcher routes every request to exactly one handler through a pipeline composed
once per request type: middleware outermost in registration order, then the processors
the handler declared, then the handler. An EventBus queues events in a bounded buffer
and fans each one out to all of its handlers on a fixed pool of workers. Mediator
combines both behind bus.Mediator.

Routing always uses the exact runtime type of the request or event; a type embedding
another is never routed to the embedded type's handlers.
*/
package servicebus
