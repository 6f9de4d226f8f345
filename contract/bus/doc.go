/*
Package bus holds the contracts shared by the mediator, its registry and the
relay adapters: request and event markers, handler shapes, middleware and
processor shapes, and the publisher interfaces.
*/
package bus
