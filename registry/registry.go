package registry

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/next-trace/scg-mediator/contract/bus"
	berr "github.com/next-trace/scg-mediator/contract/errors"
)

// Registry maps request, processor and event types to their bindings.
// Duplicate handler bindings are accepted and reported as ambiguous on resolution.
//
// Registry is concurrency-safe and contains no global state.
type Registry struct {
	mu sync.RWMutex

	handlers   map[reflect.Type][]HandlerBinding
	middleware map[bus.Shape][]MiddlewareBinding
	typedMW    map[reflect.Type][]MiddlewareBinding
	processors map[reflect.Type][]ProcessorBinding
	events     map[reflect.Type][]EventHandlerBinding
}

// New constructs an empty Registry.
func New() *Registry {
	return &Registry{
		handlers:   make(map[reflect.Type][]HandlerBinding),
		middleware: make(map[bus.Shape][]MiddlewareBinding),
		typedMW:    make(map[reflect.Type][]MiddlewareBinding),
		processors: make(map[reflect.Type][]ProcessorBinding),
		events:     make(map[reflect.Type][]EventHandlerBinding),
	}
}

// NewScope opens a resolution scope for one dispatch or one event.
func (r *Registry) NewScope() *Scope { return NewScope() }

// ResolveHandler returns the single handler bound to reqType.
// Zero bindings yield ErrHandlerNotFound, more than one ErrHandlerAmbiguous.
func (r *Registry) ResolveHandler(reqType reflect.Type) (HandlerBinding, error) {
	r.mu.RLock()
	bindings := r.handlers[reqType]
	r.mu.RUnlock()

	switch len(bindings) {
	case 0:
		return HandlerBinding{}, fmt.Errorf("resolve handler %s: %w", typeString(reqType), berr.ErrHandlerNotFound)
	case 1:
		return bindings[0], nil
	default:
		return HandlerBinding{}, fmt.Errorf(
			"resolve handler %s: %d bindings: %w", typeString(reqType), len(bindings), berr.ErrHandlerAmbiguous,
		)
	}
}

// ResolveMiddleware returns the middleware chain for reqType in registration order:
// shape-wide registrations first, then registrations for reqType itself.
func (r *Registry) ResolveMiddleware(reqType reflect.Type, shape bus.Shape) ([]bus.Middleware, error) {
	r.mu.RLock()
	bindings := make([]MiddlewareBinding, 0, len(r.middleware[shape])+len(r.typedMW[reqType]))
	bindings = append(bindings, r.middleware[shape]...)
	bindings = append(bindings, r.typedMW[reqType]...)
	r.mu.RUnlock()

	chain := make([]bus.Middleware, 0, len(bindings))

	for _, b := range bindings {
		if b.shape != shape {
			return nil, fmt.Errorf(
				"resolve middleware %s for %s: registered for %s requests, handler is %s: %w",
				b.name, typeString(reqType), b.shape, shape, berr.ErrMiddlewareResolution,
			)
		}

		mw, err := b.resolve()
		if err != nil {
			return nil, fmt.Errorf(
				"resolve middleware %s for %s: %w", b.name, typeString(reqType), errors.Join(berr.ErrMiddlewareResolution, err),
			)
		}

		if mw == nil {
			return nil, fmt.Errorf(
				"resolve middleware %s for %s: nil instance: %w", b.name, typeString(reqType), berr.ErrMiddlewareResolution,
			)
		}

		chain = append(chain, mw)
	}

	return chain, nil
}

// ResolveProcessor returns the single processor instance of exactly procType.
func (r *Registry) ResolveProcessor(procType reflect.Type) (ProcessorBinding, error) {
	r.mu.RLock()
	bindings := r.processors[procType]
	r.mu.RUnlock()

	switch len(bindings) {
	case 0:
		return ProcessorBinding{}, fmt.Errorf("resolve processor %s: %w", typeString(procType), berr.ErrProcessorNotFound)
	case 1:
		return bindings[0], nil
	default:
		return ProcessorBinding{}, fmt.Errorf(
			"resolve processor %s: %d bindings: %w", typeString(procType), len(bindings), berr.ErrProcessorAmbiguous,
		)
	}
}

// ResolveEventHandlers returns every handler bound to exactly evtType, in registration order.
func (r *Registry) ResolveEventHandlers(evtType reflect.Type) []EventHandlerBinding {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]EventHandlerBinding(nil), r.events[evtType]...)
}

// DeclaredProcessors returns the processors declared by the handler of type handlerType,
// outermost first. It returns nil when no such handler is bound.
//
// Factory bindings are keyed by the concrete type the factory returns. When WithProcessors
// was given or the factory returned nil at bind time, they are keyed by the handler
// interface type instead, e.g. bus.CommandHandler[C].
func (r *Registry) DeclaredProcessors(handlerType reflect.Type) []reflect.Type {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, bindings := range r.handlers {
		for _, b := range bindings {
			if b.handlerType == handlerType {
				return b.Processors()
			}
		}
	}

	return nil
}

func (r *Registry) addHandler(b HandlerBinding) {
	r.mu.Lock()
	r.handlers[b.requestType] = append(r.handlers[b.requestType], b)
	r.mu.Unlock()
}

func (r *Registry) addMiddleware(b MiddlewareBinding) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b.requestType == nil {
		r.middleware[b.shape] = append(r.middleware[b.shape], b)
		return
	}

	r.typedMW[b.requestType] = append(r.typedMW[b.requestType], b)
}

func (r *Registry) addProcessor(b ProcessorBinding) {
	r.mu.Lock()
	r.processors[b.processorType] = append(r.processors[b.processorType], b)
	r.mu.Unlock()
}

func (r *Registry) addEventHandler(b EventHandlerBinding) {
	r.mu.Lock()
	r.events[b.eventType] = append(r.events[b.eventType], b)
	r.mu.Unlock()
}

func typeString(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}

	return t.String()
}
