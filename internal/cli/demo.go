package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"reflect"
	"strconv"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/next-trace/scg-mediator/adapters/inmemory"
	"github.com/next-trace/scg-mediator/config"
	"github.com/next-trace/scg-mediator/contract/bus"
	"github.com/next-trace/scg-mediator/registry"
	"github.com/next-trace/scg-mediator/servicebus"
)

type demoOptions struct {
	orders  int
	workers int
	rps     float64
	relay   string
}

type demoReport struct {
	Placed    int
	Rejected  int
	Handled   int64
	Total     int64
	Relayed   int
	Pipelines int
	Requests  float64
	Last      order
}

func newDemoCommand(g *globalFlags) *cobra.Command {
	var o demoOptions

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Place orders through the mediator and report what happened",
		Long: `Place a batch of orders through a validated command pipeline, read the last one
back with a query, and let the event bus fan OrderPlaced out to a ledger and,
when a relay driver is configured, to a message broker.

One order with a zero amount is always included to show a processor rejecting it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := g.load()
			if err != nil {
				return err
			}

			if o.workers > 0 {
				cfg.EventBus.Workers = o.workers
			}

			if o.relay != "" {
				cfg.Relay.Driver = o.relay
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			rep, err := runDemo(ctx, cfg, logger, o)
			if err != nil {
				return err
			}

			return printReport(cmd.OutOrStdout(), rep)
		},
	}

	cmd.Flags().IntVarP(&o.orders, "orders", "n", 10, "Number of valid orders to place")
	cmd.Flags().IntVar(&o.workers, "workers", 0, "Event workers (overrides config)")
	cmd.Flags().Float64Var(&o.rps, "rate", 0, "Limit order placement to this many per second (0 = unlimited)")
	cmd.Flags().StringVar(&o.relay, "relay", "", "Relay driver (overrides config): none, memory, nats, kafka, rabbitmq, watermill")

	return cmd
}

func runDemo(ctx context.Context, cfg *config.Config, logger *slog.Logger, o demoOptions) (demoReport, error) {
	var rep demoReport

	pub, closeRelay, err := newPublisher(cfg.Relay, logger)
	if err != nil {
		return rep, err
	}
	defer closeRelay()

	metrics := prometheus.NewRegistry()
	r := registry.New()

	opts := append(cfg.EventBus.Options(),
		servicebus.WithLogger(logger),
		servicebus.WithMetrics(metrics),
		servicebus.WithPipelineBuiltHook(func(reflect.Type) { rep.Pipelines++ }),
	)
	m := servicebus.NewMediator(r, opts...)

	store := newOrderStore()
	ldg := &ledger{}

	if err := bindOrders(r, m, store, ldg, logger, o.rps); err != nil {
		_ = m.Close()
		return rep, err
	}

	if pub != nil {
		relayOpts := bus.PublishOptions{TopicOverride: cfg.Relay.Topic}
		if err := servicebus.BindRelay[orderPlaced](r, pub, relayOpts); err != nil {
			_ = m.Close()
			return rep, err
		}
	}

	if err := m.Prepare(ctx, placeOrder{}, getOrder{}); err != nil {
		_ = m.Close()
		return rep, err
	}

	cmds := make([]bus.Command, 0, o.orders+1)
	for i := range o.orders {
		cmds = append(cmds, placeOrder{ID: "order-" + strconv.Itoa(i+1), Amount: (i + 1) * 10})
	}

	cmds = append(cmds, placeOrder{ID: "order-empty"})

	batchErr := servicebus.NewCommandBus(m).Batch(ctx, cmds,
		servicebus.WithBatchOnError(func(i int, _ bus.Command, err error) {
			rep.Rejected++
			logger.Info("order rejected", slog.Int("index", i), slog.String("error", err.Error()))
		}),
	)
	rep.Placed = len(cmds) - rep.Rejected

	if batchErr != nil && !errors.Is(batchErr, errInvalidOrder) {
		_ = m.Close()
		return rep, batchErr
	}

	if o.orders > 0 {
		last, err := servicebus.Ask[order](ctx, servicebus.NewQueryBus(m), getOrder{ID: "order-" + strconv.Itoa(o.orders)})
		if err != nil {
			_ = m.Close()
			return rep, err
		}

		rep.Last = last
	}

	if err := m.Shutdown(ctx); err != nil {
		return rep, fmt.Errorf("shutdown: %w", err)
	}

	rep.Handled, rep.Total = ldg.events.Load(), ldg.total.Load()

	if mem, ok := pub.(*inmemory.Publisher); ok {
		rep.Relayed = len(mem.Messages())
	}

	rep.Requests = counterTotal(metrics, "scg_mediator_dispatch_requests_total")

	return rep, nil
}

func bindOrders(r *registry.Registry, events bus.EventPublisher, store *orderStore, ldg *ledger, logger *slog.Logger, rps float64) error {
	logging := servicebus.Logging(logger)

	binds := []func() error{
		func() error { return registry.BindMiddleware(r, logging) },
		func() error { return registry.BindVoidMiddleware(r, bus.AsVoid(logging)) },
		func() error { return registry.BindVoidProcessor[placeOrder](r, orderValidator{}) },
		func() error {
			return registry.BindCommand[placeOrder](r, placeOrderHandler{store: store, events: events})
		},
		func() error { return registry.BindRequest[getOrder, order](r, getOrderHandler{store: store}) },
		func() error { return registry.BindEventHandler[orderPlaced](r, ldg, registry.WithName("ledger")) },
	}

	if rps > 0 {
		limiter := rate.NewLimiter(rate.Limit(rps), 1)
		binds = append(binds, func() error {
			return registry.BindVoidMiddlewareFor[placeOrder](r, bus.AsVoid(servicebus.RateLimit(limiter)))
		})
	}

	for _, bind := range binds {
		if err := bind(); err != nil {
			return err
		}
	}

	return nil
}

func counterTotal(g prometheus.Gatherer, name string) float64 {
	families, err := g.Gather()
	if err != nil {
		return 0
	}

	var total float64

	for _, f := range families {
		if f.GetName() != name {
			continue
		}

		for _, m := range f.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}

	return total
}

func printReport(w io.Writer, rep demoReport) error {
	_, err := fmt.Fprintf(w, `orders placed:     %d
orders rejected:   %d
events handled:    %d (ledger total %d)
events relayed:    %d
pipelines built:   %d
requests recorded: %.0f
last order:        %s (%d)
`, rep.Placed, rep.Rejected, rep.Handled, rep.Total, rep.Relayed, rep.Pipelines, rep.Requests, rep.Last.ID, rep.Last.Amount)

	return err
}
