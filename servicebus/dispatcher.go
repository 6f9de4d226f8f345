package servicebus

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"github.com/next-trace/scg-mediator/contract/bus"
	berr "github.com/next-trace/scg-mediator/contract/errors"
	"github.com/next-trace/scg-mediator/internal/observability"
)

// Dispatcher routes each request to its single handler through a composed pipeline.
// Pipelines are built lazily on first dispatch and cached per request type.
type Dispatcher struct {
	resolver RequestResolver
	cache    pipelineCache
	logger   *slog.Logger
	metrics  *observability.Metrics
	tracer   *observability.Tracer
	onBuilt  func(reflect.Type)
}

var _ bus.Sender = (*Dispatcher)(nil)

// NewDispatcher returns a Dispatcher resolving bindings from r.
func NewDispatcher(r RequestResolver, opts ...Option) *Dispatcher {
	o := newOptions(opts)
	logger, metrics, tracer := o.instruments()

	return &Dispatcher{
		resolver: r,
		logger:   logger,
		metrics:  metrics,
		tracer:   tracer,
		onBuilt:  o.onBuilt,
	}
}

// Send dispatches a result-producing request and returns its handler's result.
func (d *Dispatcher) Send(ctx context.Context, req bus.Request) (any, error) {
	return d.dispatch(ctx, req, bus.ShapeResult)
}

// Exec dispatches a void command.
func (d *Dispatcher) Exec(ctx context.Context, cmd bus.Command) error {
	_, err := d.dispatch(ctx, cmd, bus.ShapeVoid)
	return err
}

// Prepare builds the pipelines for the given sample requests ahead of the first dispatch,
// so configuration errors surface at startup.
func (d *Dispatcher) Prepare(ctx context.Context, samples ...bus.Request) error {
	for _, s := range samples {
		if s == nil {
			continue
		}

		if _, err := d.pipelineFor(ctx, reflect.TypeOf(s)); err != nil {
			return err
		}
	}

	return nil
}

func (d *Dispatcher) dispatch(ctx context.Context, req any, shape bus.Shape) (res any, err error) {
	if req == nil {
		err = fmt.Errorf("%s <nil>: %w", verb(shape), berr.ErrHandlerNotFound)
		observability.LogDispatchFailure(d.logger, "<nil>", err)

		return nil, err
	}

	reqType := reflect.TypeOf(req)
	name := reqType.String()
	start := time.Now()

	ctx, span := d.tracer.StartDispatch(ctx, name, shape.String())

	defer func() {
		observability.EndSpan(span, err)
		d.metrics.RequestHandled(name, outcome(err), time.Since(start).Seconds())

		if err != nil {
			observability.LogDispatchFailure(d.logger, name, err)
		}
	}()

	if err = ctx.Err(); err != nil {
		return nil, err
	}

	p, err := d.pipelineFor(ctx, reqType)
	if err != nil {
		return nil, err
	}

	if got := p.handler.Shape(); got != shape {
		return nil, fmt.Errorf("%s %s: handler is %s: %w", verb(shape), name, got, berr.ErrHandlerTypeMismatch)
	}

	scope := d.resolver.NewScope()
	defer func() {
		if cerr := scope.Close(); cerr != nil {
			d.logger.Warn("release scope",
				slog.String("request_type", name),
				slog.String("error", cerr.Error()),
			)
		}
	}()

	return p.invoke(ctx, scope, req)
}

func (d *Dispatcher) pipelineFor(ctx context.Context, t reflect.Type) (*pipeline, error) {
	return d.cache.getOrBuild(ctx, t, func() (*pipeline, error) {
		p, err := buildPipeline(d.resolver, t)
		if err != nil {
			return nil, err
		}

		d.metrics.PipelineBuilt(t.String())
		observability.LogPipelineBuilt(d.logger, t.String(), p.middleware, p.processors)

		if d.onBuilt != nil {
			d.onBuilt(t)
		}

		return p, nil
	})
}

// Send dispatches req through s and asserts the result to Res.
// A nil result yields the zero Res.
func Send[Res any](ctx context.Context, s bus.Sender, req bus.Request) (Res, error) {
	var zero Res

	raw, err := s.Send(ctx, req)
	if err != nil {
		return zero, err
	}

	if raw == nil {
		return zero, nil
	}

	res, ok := raw.(Res)
	if !ok {
		return zero, fmt.Errorf("send %T: result %T is not %s: %w",
			req, raw, reflect.TypeFor[Res](), berr.ErrHandlerTypeMismatch)
	}

	return res, nil
}

func verb(shape bus.Shape) string {
	if shape == bus.ShapeVoid {
		return "exec"
	}

	return "send"
}

func outcome(err error) string {
	if err != nil {
		return observability.OutcomeError
	}

	return observability.OutcomeSuccess
}
