package registry

import (
	"context"
	"fmt"
	"io"
	"reflect"

	"github.com/next-trace/scg-mediator/contract/bus"
	berr "github.com/next-trace/scg-mediator/contract/errors"
)

// BindOption configures a handler binding.
type BindOption func(*bindOptions)

type bindOptions struct {
	processors []bus.ProcessorRef
	name       string
}

// WithProcessors declares the processors wrapping the handler, outermost first.
// It takes precedence over a handler implementing bus.ProcessorDeclarer.
func WithProcessors(refs ...bus.ProcessorRef) BindOption {
	return func(o *bindOptions) { o.processors = append(o.processors, refs...) }
}

// WithName overrides the name used for the handler in logs.
func WithName(name string) BindOption {
	return func(o *bindOptions) { o.name = name }
}

func applyOptions(opts []BindOption) bindOptions {
	var o bindOptions
	for _, f := range opts {
		f(&o)
	}

	return o
}

// BindRequest binds a singleton handler for result-bearing request type Req.
func BindRequest[Req bus.Request, Res any](r *Registry, h bus.RequestHandler[Req, Res], opts ...BindOption) error {
	reqType := reflect.TypeFor[Req]()
	if err := checkHandler("bind request", reqType, h); err != nil {
		return err
	}

	procs, err := declared("bind request", reqType, h, applyOptions(opts))
	if err != nil {
		return err
	}

	r.addHandler(HandlerBinding{
		requestType: reqType,
		resultType:  reflect.TypeFor[Res](),
		handlerType: reflect.TypeOf(h),
		shape:       bus.ShapeResult,
		lifetime:    Singleton,
		processors:  procs,
		invoke: func(ctx context.Context, _ *Scope, req any) (any, error) {
			return handleRequest(ctx, h, req)
		},
	})

	return nil
}

// BindRequestFactory binds a transient handler for Req. The factory runs once per
// resolution scope; instances implementing io.Closer are closed with the scope.
//
// Unless WithProcessors is given, the factory is also called once at bind time to read
// the processors a bus.ProcessorDeclarer instance declares. That instance is closed
// immediately and the binding is keyed by its concrete type.
func BindRequestFactory[Req bus.Request, Res any](
	r *Registry,
	f func() bus.RequestHandler[Req, Res],
	opts ...BindOption,
) error {
	reqType := reflect.TypeFor[Req]()
	if err := checkHandler("bind request", reqType, f); err != nil {
		return err
	}

	procs, handlerType, err := inspectFactory(
		"bind request", reqType, f, applyOptions(opts), reflect.TypeFor[bus.RequestHandler[Req, Res]](),
	)
	if err != nil {
		return err
	}

	r.addHandler(HandlerBinding{
		requestType: reqType,
		resultType:  reflect.TypeFor[Res](),
		handlerType: handlerType,
		shape:       bus.ShapeResult,
		lifetime:    Transient,
		processors:  procs,
		invoke: func(ctx context.Context, s *Scope, req any) (any, error) {
			h := f()
			if isNil(h) {
				return nil, fmt.Errorf("resolve handler %s: factory returned nil: %w", reqType, berr.ErrHandlerNotFound)
			}

			if err := s.Track(h); err != nil {
				return nil, err
			}

			return handleRequest(ctx, h, req)
		},
	})

	return nil
}

// BindCommand binds a singleton handler for void request type C.
func BindCommand[C bus.Command](r *Registry, h bus.CommandHandler[C], opts ...BindOption) error {
	reqType := reflect.TypeFor[C]()
	if err := checkHandler("bind command", reqType, h); err != nil {
		return err
	}

	procs, err := declared("bind command", reqType, h, applyOptions(opts))
	if err != nil {
		return err
	}

	r.addHandler(HandlerBinding{
		requestType: reqType,
		handlerType: reflect.TypeOf(h),
		shape:       bus.ShapeVoid,
		lifetime:    Singleton,
		processors:  procs,
		invoke: func(ctx context.Context, _ *Scope, req any) (any, error) {
			return nil, handleCommand(ctx, h, req)
		},
	})

	return nil
}

// BindCommandFactory binds a transient handler for void request type C.
// Declared processors are read the same way as in BindRequestFactory.
func BindCommandFactory[C bus.Command](r *Registry, f func() bus.CommandHandler[C], opts ...BindOption) error {
	reqType := reflect.TypeFor[C]()
	if err := checkHandler("bind command", reqType, f); err != nil {
		return err
	}

	procs, handlerType, err := inspectFactory(
		"bind command", reqType, f, applyOptions(opts), reflect.TypeFor[bus.CommandHandler[C]](),
	)
	if err != nil {
		return err
	}

	r.addHandler(HandlerBinding{
		requestType: reqType,
		handlerType: handlerType,
		shape:       bus.ShapeVoid,
		lifetime:    Transient,
		processors:  procs,
		invoke: func(ctx context.Context, s *Scope, req any) (any, error) {
			h := f()
			if isNil(h) {
				return nil, fmt.Errorf("resolve handler %s: factory returned nil: %w", reqType, berr.ErrHandlerNotFound)
			}

			if err := s.Track(h); err != nil {
				return nil, err
			}

			return nil, handleCommand(ctx, h, req)
		},
	})

	return nil
}

// BindProcessor registers a processor instance for result-bearing requests of type Req.
// Handlers reference it through bus.UseProcessor with the processor's concrete type.
func BindProcessor[Req bus.Request, Res any](r *Registry, p bus.Processor[Req, Res]) error {
	if isNil(p) {
		return fmt.Errorf("bind processor %s: nil processor: %w", reflect.TypeFor[Req](), berr.ErrInvalidConfig)
	}

	r.addProcessor(ProcessorBinding{
		processorType: reflect.TypeOf(p),
		requestType:   reflect.TypeFor[Req](),
		resultType:    reflect.TypeFor[Res](),
		shape:         bus.ShapeResult,
		pre: func(ctx context.Context, req any) error {
			typed, ok := req.(Req)
			if !ok {
				return fmt.Errorf("pre-process %T: %w", req, berr.ErrHandlerTypeMismatch)
			}

			return p.PreProcess(ctx, typed)
		},
		post: func(ctx context.Context, res any) error {
			typed, ok := res.(Res)
			if !ok && res != nil {
				return fmt.Errorf("post-process %T: %w", res, berr.ErrHandlerTypeMismatch)
			}

			return p.PostProcess(ctx, typed)
		},
	})

	return nil
}

// BindVoidProcessor registers a processor instance for void requests of type Req.
func BindVoidProcessor[Req bus.Request](r *Registry, p bus.VoidProcessor[Req]) error {
	if isNil(p) {
		return fmt.Errorf("bind processor %s: nil processor: %w", reflect.TypeFor[Req](), berr.ErrInvalidConfig)
	}

	r.addProcessor(ProcessorBinding{
		processorType: reflect.TypeOf(p),
		requestType:   reflect.TypeFor[Req](),
		shape:         bus.ShapeVoid,
		pre: func(ctx context.Context, req any) error {
			typed, ok := req.(Req)
			if !ok {
				return fmt.Errorf("pre-process %T: %w", req, berr.ErrHandlerTypeMismatch)
			}

			return p.PreProcess(ctx, typed)
		},
		post: func(ctx context.Context, _ any) error { return p.PostProcess(ctx) },
	})

	return nil
}

// BindMiddleware registers middleware for every result-bearing request.
// Middleware executes in registration order: the first registered is outermost.
func BindMiddleware(r *Registry, mw bus.Middleware) error {
	if isNil(mw) {
		return fmt.Errorf("bind middleware: nil middleware: %w", berr.ErrInvalidConfig)
	}

	r.addMiddleware(MiddlewareBinding{
		name:    typeName(mw),
		shape:   bus.ShapeResult,
		resolve: func() (bus.Middleware, error) { return mw, nil },
	})

	return nil
}

// BindVoidMiddleware registers middleware for every void request.
func BindVoidMiddleware(r *Registry, mw bus.VoidMiddleware) error {
	if isNil(mw) {
		return fmt.Errorf("bind middleware: nil middleware: %w", berr.ErrInvalidConfig)
	}

	wrapped := voidAsResult(mw)

	r.addMiddleware(MiddlewareBinding{
		name:    typeName(mw),
		shape:   bus.ShapeVoid,
		resolve: func() (bus.Middleware, error) { return wrapped, nil },
	})

	return nil
}

// BindMiddlewareFor registers middleware for result-bearing request type Req only.
// It runs inside every shape-wide middleware.
func BindMiddlewareFor[Req bus.Request](r *Registry, mw bus.Middleware) error {
	if isNil(mw) {
		return fmt.Errorf("bind middleware %s: nil middleware: %w", reflect.TypeFor[Req](), berr.ErrInvalidConfig)
	}

	r.addMiddleware(MiddlewareBinding{
		name:        typeName(mw),
		shape:       bus.ShapeResult,
		requestType: reflect.TypeFor[Req](),
		resolve:     func() (bus.Middleware, error) { return mw, nil },
	})

	return nil
}

// BindVoidMiddlewareFor registers middleware for void request type C only.
func BindVoidMiddlewareFor[C bus.Command](r *Registry, mw bus.VoidMiddleware) error {
	if isNil(mw) {
		return fmt.Errorf("bind middleware %s: nil middleware: %w", reflect.TypeFor[C](), berr.ErrInvalidConfig)
	}

	wrapped := voidAsResult(mw)

	r.addMiddleware(MiddlewareBinding{
		name:        typeName(mw),
		shape:       bus.ShapeVoid,
		requestType: reflect.TypeFor[C](),
		resolve:     func() (bus.Middleware, error) { return wrapped, nil },
	})

	return nil
}

// BindMiddlewareFactory registers result-bearing middleware built on first use of each request type.
// A factory error surfaces as ErrMiddlewareResolution to the dispatching caller.
func BindMiddlewareFactory(r *Registry, name string, f func() (bus.Middleware, error)) error {
	if f == nil {
		return fmt.Errorf("bind middleware %s: nil factory: %w", name, berr.ErrInvalidConfig)
	}

	r.addMiddleware(MiddlewareBinding{name: name, shape: bus.ShapeResult, resolve: f})

	return nil
}

// BindVoidMiddlewareFactory registers void middleware built on first use of each request type.
func BindVoidMiddlewareFactory(r *Registry, name string, f func() (bus.VoidMiddleware, error)) error {
	if f == nil {
		return fmt.Errorf("bind middleware %s: nil factory: %w", name, berr.ErrInvalidConfig)
	}

	r.addMiddleware(MiddlewareBinding{
		name:  name,
		shape: bus.ShapeVoid,
		resolve: func() (bus.Middleware, error) {
			mw, err := f()
			if err != nil || isNil(mw) {
				return nil, err
			}

			return voidAsResult(mw), nil
		},
	})

	return nil
}

// BindEventHandler registers a singleton handler for event type E. Multiple handlers are allowed.
func BindEventHandler[E bus.Event](r *Registry, h bus.EventHandler[E], opts ...BindOption) error {
	evtType := reflect.TypeFor[E]()
	if isNil(h) {
		return fmt.Errorf("bind event handler %s: nil handler: %w", evtType, berr.ErrInvalidConfig)
	}

	o := applyOptions(opts)
	name := o.name
	if name == "" {
		name = typeName(h)
	}

	r.addEventHandler(EventHandlerBinding{
		name:      name,
		eventType: evtType,
		lifetime:  Singleton,
		invoke: func(ctx context.Context, _ *Scope, evt any) error {
			return handleEvent(ctx, h, evt)
		},
	})

	return nil
}

// BindEventHandlerFactory registers a transient handler for event type E,
// built fresh within each event's resolution scope.
func BindEventHandlerFactory[E bus.Event](r *Registry, f func() bus.EventHandler[E], opts ...BindOption) error {
	evtType := reflect.TypeFor[E]()
	if f == nil {
		return fmt.Errorf("bind event handler %s: nil factory: %w", evtType, berr.ErrInvalidConfig)
	}

	o := applyOptions(opts)
	name := o.name
	if name == "" {
		name = reflect.TypeFor[bus.EventHandler[E]]().String()
	}

	r.addEventHandler(EventHandlerBinding{
		name:      name,
		eventType: evtType,
		lifetime:  Transient,
		invoke: func(ctx context.Context, s *Scope, evt any) error {
			h := f()
			if isNil(h) {
				return fmt.Errorf("resolve event handler %s: factory returned nil: %w", name, berr.ErrHandlerNotFound)
			}

			if err := s.Track(h); err != nil {
				return err
			}

			return handleEvent(ctx, h, evt)
		},
	})

	return nil
}

func handleRequest[Req bus.Request, Res any](ctx context.Context, h bus.RequestHandler[Req, Res], req any) (any, error) {
	typed, ok := req.(Req)
	if !ok {
		return nil, fmt.Errorf("send %T: %w", req, berr.ErrHandlerTypeMismatch)
	}

	res, err := h.Handle(ctx, typed)

	return res, err
}

func handleCommand[C bus.Command](ctx context.Context, h bus.CommandHandler[C], req any) error {
	typed, ok := req.(C)
	if !ok {
		return fmt.Errorf("exec %T: %w", req, berr.ErrHandlerTypeMismatch)
	}

	return h.Handle(ctx, typed)
}

func handleEvent[E bus.Event](ctx context.Context, h bus.EventHandler[E], evt any) error {
	typed, ok := evt.(E)
	if !ok {
		return fmt.Errorf("publish %T: %w", evt, berr.ErrHandlerTypeMismatch)
	}

	return h.Handle(ctx, typed)
}

func voidAsResult(mw bus.VoidMiddleware) bus.Middleware {
	return bus.MiddlewareFunc(func(ctx context.Context, req any, next bus.Next) (any, error) {
		return nil, mw.Execute(ctx, req, func(ctx context.Context) error {
			_, err := next(ctx)
			return err
		})
	})
}

func checkHandler(op string, reqType reflect.Type, h any) error {
	if reqType.Kind() == reflect.Interface {
		return fmt.Errorf("%s %s: request type must be concrete: %w", op, reqType, berr.ErrHandlerTypeMismatch)
	}

	if isNil(h) {
		return fmt.Errorf("%s %s: nil handler: %w", op, reqType, berr.ErrInvalidConfig)
	}

	return nil
}

// declared resolves the processor list: options win over a ProcessorDeclarer handler.
func declared(op string, reqType reflect.Type, h any, o bindOptions) ([]reflect.Type, error) {
	refs := o.processors
	if len(refs) == 0 {
		if d, ok := h.(bus.ProcessorDeclarer); ok {
			refs = d.Processors()
		}
	}

	types := make([]reflect.Type, 0, len(refs))

	for i, ref := range refs {
		if ref.Type() == nil {
			return nil, fmt.Errorf("%s %s: processor %d: empty reference: %w", op, reqType, i, berr.ErrProcessorNotFound)
		}

		types = append(types, ref.Type())
	}

	return types, nil
}

// inspectFactory builds one instance to read its declared processors and concrete type.
// Explicit options skip the call; a nil instance keeps the fallback type.
func inspectFactory[H any](
	op string, reqType reflect.Type, f func() H, o bindOptions, fallback reflect.Type,
) ([]reflect.Type, reflect.Type, error) {
	if len(o.processors) > 0 {
		procs, err := declared(op, reqType, nil, o)
		return procs, fallback, err
	}

	h := f()
	if isNil(h) {
		procs, err := declared(op, reqType, nil, o)
		return procs, fallback, err
	}

	if c, ok := any(h).(io.Closer); ok {
		defer func() { _ = c.Close() }()
	}

	procs, err := declared(op, reqType, h, o)

	return procs, reflect.TypeOf(h), err
}

func isNil(v any) bool {
	if v == nil {
		return true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Func, reflect.Chan, reflect.Interface, reflect.Slice:
		return rv.IsNil()
	default:
		return false
	}
}

func typeName(v any) string {
	return reflect.TypeOf(v).String()
}
