package bus

import (
	"context"
	"reflect"
)

// Next continues a result-bearing pipeline.
// The context is mandatory; a nil context is replaced with the context the
// dispatch was started with.
type Next func(ctx context.Context) (any, error)

// VoidNext continues a void pipeline. The nil context rule of Next applies.
type VoidNext func(ctx context.Context) error

// Middleware intercepts every result-bearing request it is registered for.
// It may run logic around next, call next more than once, or skip it entirely
// and return its own result.
type Middleware interface {
	Execute(ctx context.Context, req any, next Next) (any, error)
}

// VoidMiddleware intercepts void requests.
type VoidMiddleware interface {
	Execute(ctx context.Context, req any, next VoidNext) error
}

// MiddlewareFunc adapts a function to Middleware.
type MiddlewareFunc func(ctx context.Context, req any, next Next) (any, error)

func (f MiddlewareFunc) Execute(ctx context.Context, req any, next Next) (any, error) {
	return f(ctx, req, next)
}

// VoidMiddlewareFunc adapts a function to VoidMiddleware.
type VoidMiddlewareFunc func(ctx context.Context, req any, next VoidNext) error

func (f VoidMiddlewareFunc) Execute(ctx context.Context, req any, next VoidNext) error {
	return f(ctx, req, next)
}

// AsVoid lets a result-bearing middleware serve void requests.
// The inner chain reports a nil result.
func AsVoid(mw Middleware) VoidMiddleware {
	return VoidMiddlewareFunc(func(ctx context.Context, req any, next VoidNext) error {
		_, err := mw.Execute(ctx, req, func(ctx context.Context) (any, error) {
			return nil, next(ctx)
		})

		return err
	})
}

// Processor runs around a single handler that declared it.
// PreProcess runs before the inner chain, PostProcess after it with the result.
type Processor[Req Request, Res any] interface {
	PreProcess(ctx context.Context, req Req) error
	PostProcess(ctx context.Context, res Res) error
}

// VoidProcessor is the processor shape for void requests. PostProcess has no payload.
type VoidProcessor[Req Request] interface {
	PreProcess(ctx context.Context, req Req) error
	PostProcess(ctx context.Context) error
}

// ProcessorRef identifies a processor by its concrete type.
type ProcessorRef struct{ t reflect.Type }

// UseProcessor references processor type P. Pointer and value types differ.
func UseProcessor[P any]() ProcessorRef { return ProcessorRef{t: reflect.TypeFor[P]()} }

// Type returns the referenced processor type.
func (r ProcessorRef) Type() reflect.Type { return r.t }

func (r ProcessorRef) String() string {
	if r.t == nil {
		return "<nil>"
	}

	return r.t.String()
}

// ProcessorDeclarer is implemented by handlers that declare processors.
// The first processor in the list is the outermost one.
type ProcessorDeclarer interface {
	Processors() []ProcessorRef
}
