package registry

import (
	"context"
	"reflect"

	"github.com/next-trace/scg-mediator/contract/bus"
)

// Lifetime controls how handler instances are obtained per resolution.
type Lifetime uint8

const (
	// Singleton handlers are shared by every dispatch.
	Singleton Lifetime = iota + 1
	// Transient handlers are built by a factory for every resolution scope.
	Transient
)

func (l Lifetime) String() string {
	if l == Transient {
		return "transient"
	}

	return "singleton"
}

// HandlerBinding describes the single handler bound to one request type.
type HandlerBinding struct {
	requestType reflect.Type
	resultType  reflect.Type
	handlerType reflect.Type
	shape       bus.Shape
	lifetime    Lifetime
	processors  []reflect.Type
	invoke      func(ctx context.Context, s *Scope, req any) (any, error)
}

// RequestType is the concrete request type the handler is bound to.
func (b HandlerBinding) RequestType() reflect.Type { return b.requestType }

// ResultType is the handler result type, nil for void handlers.
func (b HandlerBinding) ResultType() reflect.Type { return b.resultType }

// HandlerType is the handler's concrete type, or its interface type for factories.
func (b HandlerBinding) HandlerType() reflect.Type { return b.handlerType }

// Shape reports whether the handler returns a result.
func (b HandlerBinding) Shape() bus.Shape { return b.shape }

// Lifetime reports how handler instances are obtained.
func (b HandlerBinding) Lifetime() Lifetime { return b.lifetime }

// Processors returns the declared processor types, outermost first.
func (b HandlerBinding) Processors() []reflect.Type {
	return append([]reflect.Type(nil), b.processors...)
}

// Invoke resolves the handler within s and calls it. Void handlers return a nil result.
func (b HandlerBinding) Invoke(ctx context.Context, s *Scope, req any) (any, error) {
	return b.invoke(ctx, s, req)
}

// MiddlewareBinding is one registered middleware, shape-wide or request specific.
type MiddlewareBinding struct {
	name        string
	shape       bus.Shape
	requestType reflect.Type
	resolve     func() (bus.Middleware, error)
}

// Name identifies the middleware in logs.
func (b MiddlewareBinding) Name() string { return b.name }

// Shape is the request shape the middleware was registered for.
func (b MiddlewareBinding) Shape() bus.Shape { return b.shape }

// ProcessorBinding is one registered processor instance.
type ProcessorBinding struct {
	processorType reflect.Type
	requestType   reflect.Type
	resultType    reflect.Type
	shape         bus.Shape
	pre           func(ctx context.Context, req any) error
	post          func(ctx context.Context, res any) error
}

// ProcessorType is the processor's concrete type.
func (b ProcessorBinding) ProcessorType() reflect.Type { return b.processorType }

// Accepts reports whether the processor can wrap a handler of the given request type and shape.
func (b ProcessorBinding) Accepts(handler HandlerBinding) bool {
	if b.shape != handler.shape || b.requestType != handler.requestType {
		return false
	}

	return b.shape == bus.ShapeVoid || b.resultType == handler.resultType
}

// PreProcess runs the processor's pre step.
func (b ProcessorBinding) PreProcess(ctx context.Context, req any) error { return b.pre(ctx, req) }

// PostProcess runs the processor's post step. res is ignored for void processors.
func (b ProcessorBinding) PostProcess(ctx context.Context, res any) error { return b.post(ctx, res) }

// EventHandlerBinding is one handler bound to an event type.
type EventHandlerBinding struct {
	name      string
	eventType reflect.Type
	lifetime  Lifetime
	invoke    func(ctx context.Context, s *Scope, evt any) error
}

// Name identifies the handler in logs.
func (b EventHandlerBinding) Name() string { return b.name }

// EventType is the exact event type the handler receives.
func (b EventHandlerBinding) EventType() reflect.Type { return b.eventType }

// Invoke resolves the handler within s and calls it.
func (b EventHandlerBinding) Invoke(ctx context.Context, s *Scope, evt any) error {
	return b.invoke(ctx, s, evt)
}
