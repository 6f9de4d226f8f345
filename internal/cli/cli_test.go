package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/next-trace/scg-mediator/config"
	"github.com/next-trace/scg-mediator/contract/bus"
	berr "github.com/next-trace/scg-mediator/contract/errors"
)

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestRunDemo_MemoryRelay(t *testing.T) {
	cfg := config.Default()
	cfg.EventBus.Workers = 1
	cfg.Relay.Driver = config.RelayMemory

	rep, err := runDemo(t.Context(), cfg, quiet(), demoOptions{orders: 3})
	if err != nil {
		t.Fatalf("demo: %v", err)
	}

	if rep.Placed != 3 || rep.Rejected != 1 {
		t.Fatalf("placed=%d rejected=%d", rep.Placed, rep.Rejected)
	}

	if rep.Handled != 3 || rep.Total != 60 {
		t.Fatalf("ledger: handled=%d total=%d", rep.Handled, rep.Total)
	}

	if rep.Relayed != 3 {
		t.Fatalf("relayed=%d", rep.Relayed)
	}

	if rep.Pipelines != 2 {
		t.Fatalf("pipelines=%d want one per request type", rep.Pipelines)
	}

	// 4 commands + 1 query
	if rep.Requests != 5 {
		t.Fatalf("requests=%v", rep.Requests)
	}

	if rep.Last.ID != "order-3" || rep.Last.Amount != 30 {
		t.Fatalf("last=%+v", rep.Last)
	}

	var out bytes.Buffer
	if err := printReport(&out, rep); err != nil || !strings.Contains(out.String(), "events relayed:    3") {
		t.Fatalf("report=%q err=%v", out.String(), err)
	}
}

func TestRunDemo_EventsDisabledAndRateLimited(t *testing.T) {
	cfg := config.Default()
	cfg.EventBus.Enabled = false

	rep, err := runDemo(t.Context(), cfg, quiet(), demoOptions{orders: 2, rps: 1000})
	if err != nil {
		t.Fatalf("demo: %v", err)
	}

	if rep.Placed != 2 || rep.Handled != 0 || rep.Relayed != 0 {
		t.Fatalf("report=%+v", rep)
	}
}

func TestRunDemo_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := runDemo(ctx, config.Default(), quiet(), demoOptions{orders: 1})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}

func TestNewPublisher(t *testing.T) {
	pub, cleanup, err := newPublisher(config.RelayConfig{Driver: config.RelayNone}, quiet())
	if err != nil || pub != nil {
		t.Fatalf("none: pub=%v err=%v", pub, err)
	}

	cleanup()

	pub, cleanup, err = newPublisher(config.RelayConfig{Driver: config.RelayWatermill}, quiet())
	if err != nil || pub == nil {
		t.Fatalf("watermill: err=%v", err)
	}

	// no subscribers: gochannel accepts and drops
	if err := pub.PublishIntegration(t.Context(), orderPlaced{OrderID: "x"}, bus.PublishOptions{}); err != nil {
		t.Fatalf("watermill publish: %v", err)
	}

	cleanup()

	if _, _, err := newPublisher(config.RelayConfig{Driver: "smoke-signal"}, quiet()); !errors.Is(err, berr.ErrInvalidConfig) {
		t.Fatalf("unknown driver: %v", err)
	}

	if _, _, err := newPublisher(config.RelayConfig{Driver: config.RelayNATS}, quiet()); !errors.Is(err, berr.ErrInvalidConfig) {
		t.Fatalf("nats without url: %v", err)
	}

	pub, cleanup, err = newPublisher(config.RelayConfig{Driver: config.RelayRabbitMQ, URL: "amqp://127.0.0.1:1/"}, quiet())
	if err != nil || pub == nil {
		t.Fatalf("rabbitmq: err=%v", err)
	}

	cleanup()
}

func TestCommands(t *testing.T) {
	t.Chdir(t.TempDir())

	root := NewRootCommand()

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"config", "show"})

	if err := root.Execute(); err != nil {
		t.Fatalf("config show: %v", err)
	}

	if !strings.Contains(out.String(), `"QueueCapacity": 500`) {
		t.Fatalf("config output: %s", out.String())
	}

	out.Reset()
	root = NewRootCommand()
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"demo", "--orders", "2", "--workers", "1", "--relay", "memory"})

	if err := root.Execute(); err != nil {
		t.Fatalf("demo: %v", err)
	}

	if !strings.Contains(out.String(), "orders placed:     2") {
		t.Fatalf("demo output: %s", out.String())
	}
}
