// Package observability provides the logging, metrics and tracing used by the
// dispatcher and the event bus.
//
// Features:
//   - Structured logging via slog
//   - Metrics via Prometheus
//   - Tracing via OpenTelemetry
//
// All features are opt-in; a nil logger discards, nil metrics record nothing.
package observability

import (
	"log/slog"
)

// Logger returns l, or a logger that discards everything when l is nil.
func Logger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.New(slog.DiscardHandler)
	}

	return l
}

// LogDispatchFailure logs a failed dispatch at the dispatcher boundary.
func LogDispatchFailure(logger *slog.Logger, requestType string, err error) {
	logger.Error("dispatch failed",
		slog.String("request_type", requestType),
		slog.String("error", err.Error()),
	)
}

// LogPipelineBuilt logs the composition of a new pipeline.
func LogPipelineBuilt(logger *slog.Logger, requestType string, middleware, processors int) {
	logger.Debug("pipeline built",
		slog.String("request_type", requestType),
		slog.Int("middleware", middleware),
		slog.Int("processors", processors),
	)
}

// LogHandlerFailure logs an event handler that returned an error or panicked.
func LogHandlerFailure(logger *slog.Logger, eventType, eventID, handler string, err error) {
	logger.Error("event handler failed",
		slog.String("event_type", eventType),
		slog.String("event_id", eventID),
		slog.String("handler", handler),
		slog.String("error", err.Error()),
	)
}
