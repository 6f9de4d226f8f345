package servicebus

import (
	"context"
	"fmt"
	"reflect"

	"github.com/next-trace/scg-mediator/contract/bus"
	berr "github.com/next-trace/scg-mediator/contract/errors"
	"github.com/next-trace/scg-mediator/registry"
)

// RequestResolver locates the handler, processors and middleware for a request type.
// *registry.Registry implements it.
type RequestResolver interface {
	NewScope() *registry.Scope
	ResolveHandler(reqType reflect.Type) (registry.HandlerBinding, error)
	ResolveMiddleware(reqType reflect.Type, shape bus.Shape) ([]bus.Middleware, error)
	ResolveProcessor(procType reflect.Type) (registry.ProcessorBinding, error)
}

// dispatch is the per-call state threaded through a pipeline.
type dispatch struct {
	root  context.Context
	scope *registry.Scope
	req   any
}

// effective returns ctx, or the caller's context when a stage passed nil.
func (d *dispatch) effective(ctx context.Context) context.Context {
	if ctx == nil {
		return d.root
	}

	return ctx
}

// stage is one composed step of a pipeline.
type stage func(ctx context.Context, d *dispatch) (any, error)

// pipeline is the composed invocation for one request type. It is immutable once built.
type pipeline struct {
	requestType reflect.Type
	handler     registry.HandlerBinding
	middleware  int
	processors  int
	run         stage
}

// invoke runs the composed chain once for req.
func (p *pipeline) invoke(ctx context.Context, scope *registry.Scope, req any) (any, error) {
	return p.run(ctx, &dispatch{root: ctx, scope: scope, req: req})
}

// buildPipeline composes middleware around processors around the handler of reqType.
// Every resolution failure is reported here, at first build.
func buildPipeline(r RequestResolver, reqType reflect.Type) (*pipeline, error) {
	h, err := r.ResolveHandler(reqType)
	if err != nil {
		return nil, err
	}

	declared := h.Processors()
	procs := make([]registry.ProcessorBinding, 0, len(declared))

	for _, pt := range declared {
		p, err := r.ResolveProcessor(pt)
		if err != nil {
			return nil, fmt.Errorf("build pipeline %s: %w", reqType, err)
		}

		if !p.Accepts(h) {
			return nil, fmt.Errorf(
				"build pipeline %s: processor %s does not accept %s handler: %w",
				reqType, pt, h.Shape(), berr.ErrHandlerTypeMismatch,
			)
		}

		procs = append(procs, p)
	}

	mws, err := r.ResolveMiddleware(reqType, h.Shape())
	if err != nil {
		return nil, fmt.Errorf("build pipeline %s: %w", reqType, err)
	}

	return &pipeline{
		requestType: reqType,
		handler:     h,
		middleware:  len(mws),
		processors:  len(procs),
		run:         buildMiddlewareChain(buildProcessorChain(handlerStage(h), procs), mws),
	}, nil
}

// handlerStage is the terminal call. It does not start the handler once ctx is done.
func handlerStage(h registry.HandlerBinding) stage {
	return func(ctx context.Context, d *dispatch) (any, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		return h.Invoke(ctx, d.scope, d.req)
	}
}

// buildProcessorChain nests processors around inner; procs[0] is outermost,
// so its pre step runs first and its post step last.
func buildProcessorChain(inner stage, procs []registry.ProcessorBinding) stage {
	next := inner
	for i := len(procs) - 1; i >= 0; i-- {
		next = processorStage(procs[i], next)
	}

	return next
}

func processorStage(p registry.ProcessorBinding, inner stage) stage {
	return func(ctx context.Context, d *dispatch) (any, error) {
		if err := p.PreProcess(ctx, d.req); err != nil {
			return nil, err
		}

		res, err := inner(ctx, d)
		if err != nil {
			return res, err
		}

		if err := p.PostProcess(ctx, res); err != nil {
			return nil, err
		}

		return res, nil
	}
}

// buildMiddlewareChain nests middleware around inner; chain[0] is outermost.
// Build the chain so the first registered middleware runs first.
func buildMiddlewareChain(inner stage, chain []bus.Middleware) stage {
	next := inner
	for i := len(chain) - 1; i >= 0; i-- {
		next = middlewareStage(chain[i], next)
	}

	return next
}

func middlewareStage(mw bus.Middleware, inner stage) stage {
	return func(ctx context.Context, d *dispatch) (any, error) {
		return mw.Execute(ctx, d.req, func(next context.Context) (any, error) {
			return inner(d.effective(next), d)
		})
	}
}
