package servicebus_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/time/rate"

	cbus "github.com/next-trace/scg-mediator/contract/bus"
	"github.com/next-trace/scg-mediator/registry"
	"github.com/next-trace/scg-mediator/servicebus"
)

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer

	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	reg := registry.New()
	boom := errors.New("boom")

	_ = registry.BindRequest[ping, pong](reg, cbus.RequestHandlerFunc[ping, pong](func(_ context.Context, p ping) (pong, error) {
		if p.N < 0 {
			return pong{}, boom
		}

		return pong{N: p.N}, nil
	}))
	_ = registry.BindMiddleware(reg, servicebus.Logging(logger))

	d := servicebus.NewDispatcher(reg)

	if _, err := d.Send(t.Context(), ping{N: 1}); err != nil {
		t.Fatalf("send: %v", err)
	}

	if _, err := d.Send(t.Context(), ping{N: -1}); !errors.Is(err, boom) {
		t.Fatalf("want boom, got %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, `"msg":"request handled"`) || !strings.Contains(out, `"msg":"request failed"`) {
		t.Fatalf("log output: %s", out)
	}

	if !strings.Contains(out, `"request_type":"servicebus_test.ping"`) {
		t.Fatalf("missing request_type: %s", out)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	reg := registry.New()

	var calls atomic.Int32

	_ = registry.BindRequest[ping, pong](reg, pingHandler{calls: &calls})
	_ = registry.BindMiddleware(reg, servicebus.RateLimit(rate.NewLimiter(rate.Inf, 1)))

	d := servicebus.NewDispatcher(reg)
	for range 5 {
		if _, err := d.Send(t.Context(), ping{}); err != nil {
			t.Fatalf("send: %v", err)
		}
	}

	if calls.Load() != 5 {
		t.Fatalf("calls=%d", calls.Load())
	}

	reg2 := registry.New()
	_ = registry.BindRequest[ping, pong](reg2, pingHandler{calls: &calls})

	_ = registry.BindMiddleware(reg2, cbus.MiddlewareFunc(func(ctx context.Context, _ any, next cbus.Next) (any, error) {
		inner, cancel := context.WithCancel(ctx)
		cancel()

		return next(inner)
	}))
	_ = registry.BindMiddleware(reg2, servicebus.RateLimit(rate.NewLimiter(rate.Every(time.Hour), 1)))

	if _, err := servicebus.NewDispatcher(reg2).Send(t.Context(), ping{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}

	if calls.Load() != 5 {
		t.Fatalf("handler ran while limited: %d", calls.Load())
	}
}

func TestPreProcessMiddleware(t *testing.T) {
	reg := registry.New()
	invalid := errors.New("negative")

	_ = registry.BindRequest[ping, pong](reg, pingHandler{})
	_ = registry.BindRequest[gQry, gRes](reg, gQryHandler{})
	_ = registry.BindMiddleware(reg, servicebus.PreProcess(func(_ context.Context, p ping) error {
		if p.N < 0 {
			return invalid
		}

		return nil
	}))

	d := servicebus.NewDispatcher(reg)

	if _, err := d.Send(t.Context(), ping{N: -1}); !errors.Is(err, invalid) {
		t.Fatalf("want validation error, got %v", err)
	}

	if _, err := d.Send(t.Context(), ping{N: 1}); err != nil {
		t.Fatalf("valid ping: %v", err)
	}

	if _, err := d.Send(t.Context(), gQry{K: "other"}); err != nil {
		t.Fatalf("other request type should pass through: %v", err)
	}
}
