package cli

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/next-trace/scg-mediator/contract/bus"
	berr "github.com/next-trace/scg-mediator/contract/errors"
)

// Demo domain: orders placed by command, read by query, announced by event.

var (
	errInvalidOrder  = errors.New("order amount must be positive")
	errOrderNotFound = errors.New("order not found")
)

type placeOrder struct {
	ID     string
	Amount int
}

type getOrder struct{ ID string }

type order struct {
	ID     string `json:"id"`
	Amount int    `json:"amount"`
}

type orderPlaced struct {
	OrderID string `json:"order_id"`
	Amount  int    `json:"amount"`
}

func (orderPlaced) Topic() string { return "orders.placed" }

type orderStore struct {
	mu     sync.RWMutex
	orders map[string]order
}

func newOrderStore() *orderStore { return &orderStore{orders: map[string]order{}} }

func (s *orderStore) put(o order) {
	s.mu.Lock()
	s.orders[o.ID] = o
	s.mu.Unlock()
}

func (s *orderStore) get(id string) (order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]

	return o, ok
}

type orderValidator struct{}

func (orderValidator) PreProcess(_ context.Context, c placeOrder) error {
	if c.Amount <= 0 {
		return fmt.Errorf("place order %s: %w", c.ID, errInvalidOrder)
	}

	return nil
}

func (orderValidator) PostProcess(context.Context) error { return nil }

type placeOrderHandler struct {
	store  *orderStore
	events bus.EventPublisher
}

func (h placeOrderHandler) Handle(ctx context.Context, c placeOrder) error {
	h.store.put(order{ID: c.ID, Amount: c.Amount})

	err := h.events.Publish(ctx, orderPlaced{OrderID: c.ID, Amount: c.Amount})
	if errors.Is(err, berr.ErrEventsDisabled) {
		return nil
	}

	return err
}

func (placeOrderHandler) Processors() []bus.ProcessorRef {
	return []bus.ProcessorRef{bus.UseProcessor[orderValidator]()}
}

type getOrderHandler struct{ store *orderStore }

func (h getOrderHandler) Handle(_ context.Context, q getOrder) (order, error) {
	o, ok := h.store.get(q.ID)
	if !ok {
		return order{}, fmt.Errorf("get order %s: %w", q.ID, errOrderNotFound)
	}

	return o, nil
}

// ledger totals placed amounts from events.
type ledger struct {
	events atomic.Int64
	total  atomic.Int64
}

func (l *ledger) Handle(_ context.Context, e orderPlaced) error {
	l.events.Add(1)
	l.total.Add(int64(e.Amount))

	return nil
}
