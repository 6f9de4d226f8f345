package errors

import stderrors "errors"

// Error codes for the mediator contracts. Keep stable; used across adapters and the bus.
const (
	ErrCodeHandlerNotFound      = "mediator.handler_not_found"
	ErrCodeHandlerAmbiguous     = "mediator.handler_ambiguous"
	ErrCodeHandlerTypeMismatch  = "mediator.handler_type_mismatch"
	ErrCodeProcessorNotFound    = "mediator.processor_not_found"
	ErrCodeProcessorAmbiguous   = "mediator.processor_ambiguous"
	ErrCodeMiddlewareResolution = "mediator.middleware_resolution"
	ErrCodeBusClosed            = "mediator.bus_closed"
	ErrCodeEventsDisabled       = "mediator.events_disabled"
	ErrCodeShutdownTimeout      = "mediator.shutdown_timeout"
	ErrCodePublishFailed        = "mediator.publish_failed"
	ErrCodeSerializationFailed  = "mediator.serialization_failed"
	ErrCodeInvalidConfig        = "mediator.invalid_config"
)

// Code returns an error value that carries only a code string.
// It implements error by returning the code string in Error().
func Code(code string) error { return codedError(code) }

type codedError string

func (e codedError) Error() string { return string(e) }

var (
	ErrHandlerNotFound      = Code(ErrCodeHandlerNotFound)
	ErrHandlerAmbiguous     = Code(ErrCodeHandlerAmbiguous)
	ErrHandlerTypeMismatch  = Code(ErrCodeHandlerTypeMismatch)
	ErrProcessorNotFound    = Code(ErrCodeProcessorNotFound)
	ErrProcessorAmbiguous   = Code(ErrCodeProcessorAmbiguous)
	ErrMiddlewareResolution = Code(ErrCodeMiddlewareResolution)
	ErrBusClosed            = Code(ErrCodeBusClosed)
	ErrEventsDisabled       = Code(ErrCodeEventsDisabled)
	ErrShutdownTimeout      = Code(ErrCodeShutdownTimeout)
	ErrPublishFailed        = Code(ErrCodePublishFailed)
	ErrSerializationFailed  = Code(ErrCodeSerializationFailed)
	ErrInvalidConfig        = Code(ErrCodeInvalidConfig)
)

var configurationErrors = []error{
	ErrHandlerNotFound,
	ErrHandlerAmbiguous,
	ErrHandlerTypeMismatch,
	ErrProcessorNotFound,
	ErrProcessorAmbiguous,
	ErrMiddlewareResolution,
}

// IsConfiguration reports whether err is a configuration error: a handler,
// processor or middleware that cannot be resolved for a request type.
// Configuration errors are fatal to the triggering call and never retried.
func IsConfiguration(err error) bool {
	for _, target := range configurationErrors {
		if stderrors.Is(err, target) {
			return true
		}
	}

	return false
}
