package servicebus

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/next-trace/scg-mediator/contract/bus"
)

// Logging returns middleware that logs every request passing through the pipeline.
// Failures are logged at Warn, everything else at Debug.
func Logging(logger *slog.Logger) bus.Middleware {
	if logger == nil {
		logger = slog.Default()
	}

	return bus.MiddlewareFunc(func(ctx context.Context, req any, next bus.Next) (any, error) {
		start := time.Now()
		res, err := next(ctx)

		attrs := []any{
			slog.String("request_type", fmt.Sprintf("%T", req)),
			slog.Duration("elapsed", time.Since(start)),
		}

		if err != nil {
			logger.WarnContext(ctx, "request failed", append(attrs, slog.String("error", err.Error()))...)
		} else {
			logger.DebugContext(ctx, "request handled", attrs...)
		}

		return res, err
	})
}

// RateLimit returns middleware that waits for a token from l before continuing.
// The request fails with the limiter's error when ctx ends first.
func RateLimit(l *rate.Limiter) bus.Middleware {
	return bus.MiddlewareFunc(func(ctx context.Context, _ any, next bus.Next) (any, error) {
		if err := l.Wait(ctx); err != nil {
			return nil, err
		}

		return next(ctx)
	})
}

// PreProcess returns middleware that runs fn for requests of type Req before the
// rest of the pipeline. Requests of other types pass through untouched.
func PreProcess[Req bus.Request](fn func(ctx context.Context, req Req) error) bus.Middleware {
	return bus.MiddlewareFunc(func(ctx context.Context, req any, next bus.Next) (any, error) {
		if r, ok := req.(Req); ok {
			if err := fn(ctx, r); err != nil {
				return nil, err
			}
		}

		return next(ctx)
	})
}
