package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	kafkax "github.com/danastri/go-shop-services/internal/kafka"
)

var (
	ErrInvalidRequest = errors.New("invalid order request")
	ErrNotFound       = errors.New("order not found")
)

// OrderStore is the durable order record. CreateOrder must persist the
// header and all items as one atomic unit.
type OrderStore interface {
	CreateOrder(ctx context.Context, total decimal.Decimal, items []ItemInput) (*Order, error)
	GetOrder(ctx context.Context, id string) (*Order, error)
	ListOrders(ctx context.Context) ([]Order, error)
	UpdateStatus(ctx context.Context, id string, status Status) (*Order, error)
}

// StockAdjuster decrements stock for one product on the inventory
// service. The coordinator never lets its errors fail an order; the
// interface exists so tests and a future reconciling implementation
// can be swapped in.
type StockAdjuster interface {
	AdjustStock(ctx context.Context, productID string, quantity int) error
}

// EventPublisher is satisfied by kafka.Producer. Optional; a nil
// publisher disables events.
type EventPublisher interface {
	Publish(topic string, key, value []byte, headers ...kafkago.Header)
}

// Coordinator commits an order and then adjusts inventory best-effort.
// The order is the source of truth for what was promised; stock is
// eventually and approximately adjusted. There is no compensation when
// an adjustment fails after commit.
type Coordinator struct {
	Store         OrderStore
	Adjuster      StockAdjuster
	Events        EventPublisher
	Service       string
	AdjustTimeout time.Duration
	Log           zerolog.Logger
}

// CreateOrder validates input, computes the total with decimal
// arithmetic, commits header+items atomically, then issues one
// adjustment call per item in input order. Adjustment failures are
// logged and published, never surfaced: the caller always gets the
// committed order back.
func (c *Coordinator) CreateOrder(ctx context.Context, items []ItemInput) (*Order, error) {
	if len(items) == 0 {
		return nil, errors.Wrap(ErrInvalidRequest, "no items")
	}
	total := decimal.Zero
	for _, it := range items {
		if it.Quantity <= 0 {
			return nil, errors.Wrapf(ErrInvalidRequest, "quantity %d for product %s", it.Quantity, it.ProductID)
		}
		if it.Price.IsNegative() {
			return nil, errors.Wrapf(ErrInvalidRequest, "negative price for product %s", it.ProductID)
		}
		total = total.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}

	o, err := c.Store.CreateOrder(ctx, total, items)
	if err != nil {
		return nil, err
	}

	c.publishCreated(o, items)

	// Past this point the order is committed. Each adjustment call is
	// independently time-bounded; a failure is swallowed per item so
	// one bad product cannot block the rest or the response.
	for _, it := range items {
		if err := c.adjust(ctx, it.ProductID, it.Quantity); err != nil {
			c.Log.Error().Err(err).
				Str("order_id", o.ID).
				Str("product_id", it.ProductID).
				Int("quantity", it.Quantity).
				Msg("stock adjustment failed, order kept")
			c.publishAdjustFailed(o.ID, it, err)
		}
	}
	return o, nil
}

func (c *Coordinator) adjust(ctx context.Context, productID string, quantity int) error {
	timeout := c.AdjustTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.Adjuster.AdjustStock(ctx, productID, quantity)
}

func (c *Coordinator) GetOrder(ctx context.Context, id string) (*Order, error) {
	return c.Store.GetOrder(ctx, id)
}

func (c *Coordinator) ListOrders(ctx context.Context) ([]Order, error) {
	return c.Store.ListOrders(ctx)
}

// UpdateStatus persists any status string verbatim; there is no
// transition graph.
func (c *Coordinator) UpdateStatus(ctx context.Context, id string, status Status) (*Order, error) {
	return c.Store.UpdateStatus(ctx, id, status)
}

func (c *Coordinator) publishCreated(o *Order, items []ItemInput) {
	if c.Events == nil {
		return
	}
	ev := Envelope{
		EventID:       uuid.NewString(),
		EventType:     EventOrderCreated,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      c.Service,
		CorrelationID: o.ID,
		Payload: kafkax.MustMarshal(OrderCreatedPayload{
			OrderID:     o.ID,
			TotalAmount: o.TotalAmount,
			Items:       items,
		}),
	}
	c.Events.Publish(TopicOrderCreated, PartitionKey(o.ID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(EventOrderCreated)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func (c *Coordinator) publishAdjustFailed(orderID string, it ItemInput, cause error) {
	if c.Events == nil {
		return
	}
	ev := Envelope{
		EventID:       uuid.NewString(),
		EventType:     EventStockAdjustFailed,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      c.Service,
		CorrelationID: orderID,
		Payload: kafkax.MustMarshal(StockAdjustFailedPayload{
			OrderID:   orderID,
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Reason:    cause.Error(),
		}),
	}
	c.Events.Publish(TopicStockAdjustFailed, PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(EventStockAdjustFailed)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
