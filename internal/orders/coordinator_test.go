package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu         sync.Mutex
	created    []*Order
	failCreate error
}

func (s *fakeStore) CreateOrder(_ context.Context, total decimal.Decimal, items []ItemInput) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCreate != nil {
		return nil, s.failCreate
	}
	o := &Order{
		ID:          fmt.Sprintf("order-%d", len(s.created)+1),
		TotalAmount: total,
		Status:      StatusPending,
		CreatedAt:   time.Now().UTC(),
	}
	for i, it := range items {
		o.Items = append(o.Items, OrderItem{
			ID:        int64(i + 1),
			OrderID:   o.ID,
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     it.Price,
		})
	}
	s.created = append(s.created, o)
	return o, nil
}

func (s *fakeStore) GetOrder(_ context.Context, id string) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.created {
		if o.ID == id {
			return o, nil
		}
	}
	return nil, ErrNotFound
}

func (s *fakeStore) ListOrders(_ context.Context) ([]Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Order, 0, len(s.created))
	for i := len(s.created) - 1; i >= 0; i-- { // newest first
		o := *s.created[i]
		o.Items = nil
		out = append(out, o)
	}
	return out, nil
}

func (s *fakeStore) UpdateStatus(_ context.Context, id string, status Status) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.created {
		if o.ID == id {
			o.Status = status
			return o, nil
		}
	}
	return nil, ErrNotFound
}

type adjustCall struct {
	productID string
	quantity  int
}

type fakeAdjuster struct {
	mu    sync.Mutex
	calls []adjustCall
	fail  map[string]error
}

func (a *fakeAdjuster) AdjustStock(_ context.Context, productID string, quantity int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, adjustCall{productID, quantity})
	if err, ok := a.fail[productID]; ok {
		return err
	}
	return nil
}

type publishedEvent struct {
	topic string
	key   []byte
	value []byte
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *fakePublisher) Publish(topic string, key, value []byte, _ ...kafkago.Header) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{topic, key, value})
}

func newTestCoordinator() (*Coordinator, *fakeStore, *fakeAdjuster, *fakePublisher) {
	store := &fakeStore{}
	adjuster := &fakeAdjuster{fail: map[string]error{}}
	pub := &fakePublisher{}
	c := &Coordinator{
		Store:         store,
		Adjuster:      adjuster,
		Events:        pub,
		Service:       "orders-test",
		AdjustTimeout: time.Second,
		Log:           zerolog.Nop(),
	}
	return c, store, adjuster, pub
}

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func TestCreateOrderComputesExactTotal(t *testing.T) {
	c, _, adj, _ := newTestCoordinator()

	o, err := c.CreateOrder(context.Background(), []ItemInput{
		{ProductID: "p1", Quantity: 2, Price: mustDecimal(t, "1299.99")},
	})
	require.NoError(t, err)

	want := mustDecimal(t, "2599.98")
	assert.True(t, o.TotalAmount.Equal(want), "total = %s, want %s", o.TotalAmount, want)
	assert.Equal(t, StatusPending, o.Status)
	require.Len(t, adj.calls, 1)
	assert.Equal(t, adjustCall{"p1", 2}, adj.calls[0])
}

func TestCreateOrderEmptyItemsRejected(t *testing.T) {
	c, store, adj, pub := newTestCoordinator()

	before, err := c.ListOrders(context.Background())
	require.NoError(t, err)

	_, err = c.CreateOrder(context.Background(), nil)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	after, err := c.ListOrders(context.Background())
	require.NoError(t, err)
	assert.Len(t, after, len(before), "no order row may appear")
	assert.Empty(t, store.created)
	assert.Empty(t, adj.calls)
	assert.Empty(t, pub.events)
}

func TestCreateOrderRejectsInvalidItems(t *testing.T) {
	tests := []struct {
		name  string
		items []ItemInput
	}{
		{"zero quantity", []ItemInput{{ProductID: "p1", Quantity: 0, Price: decimal.NewFromInt(5)}}},
		{"negative quantity", []ItemInput{{ProductID: "p1", Quantity: -3, Price: decimal.NewFromInt(5)}}},
		{"negative price", []ItemInput{{ProductID: "p1", Quantity: 1, Price: decimal.NewFromInt(-1)}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, store, _, _ := newTestCoordinator()
			_, err := c.CreateOrder(context.Background(), tt.items)
			assert.ErrorIs(t, err, ErrInvalidRequest)
			assert.Empty(t, store.created)
		})
	}
}

func TestCreateOrderStoreFailureSkipsAdjustment(t *testing.T) {
	c, store, adj, pub := newTestCoordinator()
	store.failCreate = errors.New("insert order item: connection reset")

	_, err := c.CreateOrder(context.Background(), []ItemInput{
		{ProductID: "p1", Quantity: 1, Price: decimal.NewFromInt(10)},
	})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidRequest)
	assert.Empty(t, adj.calls, "no adjustment may run for an uncommitted order")
	assert.Empty(t, pub.events)
}

func TestCreateOrderToleratesAdjustmentFailures(t *testing.T) {
	c, _, adj, pub := newTestCoordinator()
	adj.fail["p2"] = errors.New("product p2: status 404")

	items := []ItemInput{
		{ProductID: "p1", Quantity: 1, Price: mustDecimal(t, "10.00")},
		{ProductID: "p2", Quantity: 2, Price: mustDecimal(t, "20.00")},
		{ProductID: "p3", Quantity: 3, Price: mustDecimal(t, "30.00")},
	}
	o, err := c.CreateOrder(context.Background(), items)
	require.NoError(t, err, "a failed adjustment must not fail the order")
	require.NotNil(t, o)

	// every item attempted, in input order
	require.Len(t, adj.calls, 3)
	assert.Equal(t, []adjustCall{{"p1", 1}, {"p2", 2}, {"p3", 3}}, adj.calls)

	// one created event plus one failure event for p2
	var created, failed int
	for _, ev := range pub.events {
		switch ev.topic {
		case TopicOrderCreated:
			created++
		case TopicStockAdjustFailed:
			failed++
			var env Envelope
			require.NoError(t, json.Unmarshal(ev.value, &env))
			var p StockAdjustFailedPayload
			require.NoError(t, json.Unmarshal(env.Payload, &p))
			assert.Equal(t, "p2", p.ProductID)
			assert.Equal(t, 2, p.Quantity)
			assert.Equal(t, o.ID, p.OrderID)
		}
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, 1, failed)
}

func TestCreateOrderPublishesOrderCreated(t *testing.T) {
	c, _, _, pub := newTestCoordinator()

	o, err := c.CreateOrder(context.Background(), []ItemInput{
		{ProductID: "p1", Quantity: 2, Price: mustDecimal(t, "1299.99")},
	})
	require.NoError(t, err)
	require.Len(t, pub.events, 1)

	ev := pub.events[0]
	assert.Equal(t, TopicOrderCreated, ev.topic)
	assert.Equal(t, PartitionKey(o.ID), ev.key)

	var env Envelope
	require.NoError(t, json.Unmarshal(ev.value, &env))
	assert.Equal(t, EventOrderCreated, env.EventType)
	assert.Equal(t, 1, env.EventVersion)
	assert.Equal(t, "orders-test", env.Producer)
	assert.Equal(t, o.ID, env.CorrelationID)

	var p OrderCreatedPayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	assert.Equal(t, o.ID, p.OrderID)
	assert.True(t, p.TotalAmount.Equal(o.TotalAmount))
	require.Len(t, p.Items, 1)
	assert.Equal(t, "p1", p.Items[0].ProductID)
}

func TestGetOrderPreservesItemOrder(t *testing.T) {
	c, _, _, _ := newTestCoordinator()

	items := []ItemInput{
		{ProductID: "p3", Quantity: 1, Price: decimal.NewFromInt(3)},
		{ProductID: "p1", Quantity: 1, Price: decimal.NewFromInt(1)},
		{ProductID: "p2", Quantity: 1, Price: decimal.NewFromInt(2)},
	}
	created, err := c.CreateOrder(context.Background(), items)
	require.NoError(t, err)

	got, err := c.GetOrder(context.Background(), created.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 3)
	for i, it := range got.Items {
		assert.Equal(t, items[i].ProductID, it.ProductID)
	}
}

func TestGetOrderNotFound(t *testing.T) {
	c, _, _, _ := newTestCoordinator()
	_, err := c.GetOrder(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateStatusLenient(t *testing.T) {
	c, _, _, _ := newTestCoordinator()

	_, err := c.UpdateStatus(context.Background(), "missing", "shipped")
	assert.ErrorIs(t, err, ErrNotFound)

	o, err := c.CreateOrder(context.Background(), []ItemInput{
		{ProductID: "p1", Quantity: 1, Price: decimal.NewFromInt(1)},
	})
	require.NoError(t, err)

	// any string is accepted and persisted verbatim
	got, err := c.UpdateStatus(context.Background(), o.ID, Status("whatever the caller sent"))
	require.NoError(t, err)
	assert.Equal(t, Status("whatever the caller sent"), got.Status)
}
