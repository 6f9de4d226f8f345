package servicebus

import (
	"log/slog"
	"reflect"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"github.com/next-trace/scg-mediator/internal/observability"
)

const (
	// DefaultQueueCapacity is the event queue capacity Q used when none is configured.
	DefaultQueueCapacity = 500
	// DefaultWorkers is the event worker count C used when none is configured.
	DefaultWorkers = 5
	// DefaultShutdownGrace bounds how long Shutdown waits for workers to drain.
	DefaultShutdownGrace = 5 * time.Second
)

// Option configures a Dispatcher, an EventBus or a Mediator.
// Options that do not apply to a component are ignored by it.
type Option func(*options)

type options struct {
	logger        *slog.Logger
	queueCapacity int
	workers       int
	shutdownGrace time.Duration
	registerer    prometheus.Registerer
	tracer        trace.TracerProvider
	onBuilt       func(reflect.Type)
	noEvents      bool
}

func newOptions(opts []Option) options {
	o := options{
		queueCapacity: DefaultQueueCapacity,
		workers:       DefaultWorkers,
		shutdownGrace: DefaultShutdownGrace,
	}

	for _, f := range opts {
		f(&o)
	}

	return o
}

// WithLogger sets the logger used for failures and lifecycle messages.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithQueueCapacity sets the bounded event queue capacity. Non-positive values keep the default.
func WithQueueCapacity(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.queueCapacity = n
		}
	}
}

// WithWorkers sets the number of event workers. One worker gives global FIFO handling.
// Non-positive values keep the default.
func WithWorkers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithShutdownGrace bounds how long Shutdown waits for buffered events to drain.
// Non-positive values keep the default.
func WithShutdownGrace(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.shutdownGrace = d
		}
	}
}

// WithMetrics registers Prometheus collectors with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// WithTracerProvider sets the OpenTelemetry provider. The global provider is used otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracer = tp }
}

// WithPipelineBuiltHook registers fn to run once for every pipeline composed.
func WithPipelineBuiltHook(fn func(reflect.Type)) Option {
	return func(o *options) { o.onBuilt = fn }
}

// WithEvents enables or disables the event bus of a Mediator. Events are enabled by default.
func WithEvents(enabled bool) Option {
	return func(o *options) { o.noEvents = !enabled }
}

// instruments builds the logger, metrics and tracer shared by a component.
// Metrics registration failures are logged and leave metrics disabled.
func (o options) instruments() (*slog.Logger, *observability.Metrics, *observability.Tracer) {
	logger := observability.Logger(o.logger)

	var metrics *observability.Metrics
	if o.registerer != nil {
		m, err := observability.NewMetrics(o.registerer)
		if err != nil {
			logger.Warn("metrics disabled", slog.String("error", err.Error()))
		} else {
			metrics = m
		}
	}

	return logger, metrics, observability.NewTracer(o.tracer)
}
