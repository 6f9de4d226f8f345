package observability

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "scg_mediator"

	// OutcomeSuccess labels a handled request or event handler that returned nil.
	OutcomeSuccess = "success"
	// OutcomeError labels a handler or stage that returned an error.
	OutcomeError = "error"
	// OutcomePanic labels an event handler that panicked.
	OutcomePanic = "panic"
)

// Metrics holds the Prometheus collectors for the dispatcher and the event bus.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	pipelinesBuilt  *prometheus.CounterVec
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	eventsPublished *prometheus.CounterVec
	eventsHandled   *prometheus.CounterVec
	eventsDropped   prometheus.Counter
	queueDepth      prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg when reg is non-nil.
// Collectors already registered by another Metrics on the same registry are shared.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		pipelinesBuilt: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "pipelines_built_total",
			Help:      "Pipelines composed, one per request type.",
		}, []string{"request_type"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "requests_total",
			Help:      "Dispatched requests by outcome.",
		}, []string{"request_type", "outcome"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "request_duration_seconds",
			Help:      "Time spent in the composed pipeline.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"request_type"}),
		eventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Events accepted by the queue.",
		}, []string{"event_type"}),
		eventsHandled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "handled_total",
			Help:      "Event handler invocations by outcome.",
		}, []string{"event_type", "outcome"}),
		eventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "dropped_total",
			Help:      "Buffered events left unprocessed after the shutdown grace period.",
		}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "queue_depth",
			Help:      "Events currently buffered.",
		}),
	}

	if reg == nil {
		return m, nil
	}

	var err error

	m.pipelinesBuilt = register(reg, m.pipelinesBuilt, &err)
	m.requests = register(reg, m.requests, &err)
	m.requestDuration = register(reg, m.requestDuration, &err)
	m.eventsPublished = register(reg, m.eventsPublished, &err)
	m.eventsHandled = register(reg, m.eventsHandled, &err)
	m.eventsDropped = register(reg, m.eventsDropped, &err)
	m.queueDepth = register(reg, m.queueDepth, &err)

	if err != nil {
		return nil, err
	}

	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C, errp *error) C {
	if *errp != nil {
		return c
	}

	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}

		*errp = err
	}

	return c
}

// PipelineBuilt counts a pipeline composition.
func (m *Metrics) PipelineBuilt(requestType string) {
	if m == nil {
		return
	}

	m.pipelinesBuilt.WithLabelValues(requestType).Inc()
}

// RequestHandled records a dispatch outcome and its duration in seconds.
func (m *Metrics) RequestHandled(requestType, outcome string, seconds float64) {
	if m == nil {
		return
	}

	m.requests.WithLabelValues(requestType, outcome).Inc()
	m.requestDuration.WithLabelValues(requestType).Observe(seconds)
}

// EventPublished counts an event accepted by the queue.
func (m *Metrics) EventPublished(eventType string) {
	if m == nil {
		return
	}

	m.eventsPublished.WithLabelValues(eventType).Inc()
}

// EventHandled counts one handler invocation for an event.
func (m *Metrics) EventHandled(eventType, outcome string) {
	if m == nil {
		return
	}

	m.eventsHandled.WithLabelValues(eventType, outcome).Inc()
}

// EventsDropped counts buffered events abandoned at shutdown.
func (m *Metrics) EventsDropped(n int) {
	if m == nil || n <= 0 {
		return
	}

	m.eventsDropped.Add(float64(n))
}

// QueueDepth reports the number of buffered events.
func (m *Metrics) QueueDepth(n int) {
	if m == nil {
		return
	}

	m.queueDepth.Set(float64(n))
}
