package orders

import (
	"context"
	stderrors "errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

type Repo struct{ DB *pgxpool.Pool }

// CreateOrder inserts the order header and all item rows in one
// transaction. Readers never see a header without its items.
func (r *Repo) CreateOrder(ctx context.Context, total decimal.Decimal, items []ItemInput) (*Order, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	o := &Order{
		ID:          uuid.NewString(),
		TotalAmount: total,
		Status:      StatusPending,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO orders(id, total_amount, status)
		VALUES ($1, $2, $3)
		RETURNING created_at`,
		o.ID, total, string(StatusPending),
	).Scan(&o.CreatedAt)
	if err != nil {
		return nil, errors.Wrap(err, "insert order")
	}

	for _, it := range items {
		item := OrderItem{
			OrderID:   o.ID,
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     it.Price,
		}
		err = tx.QueryRow(ctx, `
			INSERT INTO order_items(order_id, product_id, quantity, price)
			VALUES ($1, $2, $3, $4)
			RETURNING id`,
			o.ID, it.ProductID, it.Quantity, it.Price,
		).Scan(&item.ID)
		if err != nil {
			return nil, errors.Wrapf(err, "insert item for product %s", it.ProductID)
		}
		o.Items = append(o.Items, item)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit order")
	}
	return o, nil
}

// GetOrder returns the order with its items in insertion order.
func (r *Repo) GetOrder(ctx context.Context, id string) (*Order, error) {
	var (
		o      Order
		status string
	)
	err := r.DB.QueryRow(ctx, `
		SELECT id, total_amount, status, created_at FROM orders WHERE id = $1`, id,
	).Scan(&o.ID, &o.TotalAmount, &status, &o.CreatedAt)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "select order")
	}
	o.Status = Status(status)

	rows, err := r.DB.Query(ctx, `
		SELECT id, order_id, product_id, quantity, price
		FROM order_items WHERE order_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, errors.Wrap(err, "select order items")
	}
	defer rows.Close()

	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.Price); err != nil {
			return nil, errors.Wrap(err, "scan order item")
		}
		o.Items = append(o.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate order items")
	}
	return &o, nil
}

// ListOrders returns headers only, newest first. No pagination.
func (r *Repo) ListOrders(ctx context.Context) ([]Order, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, total_amount, status, created_at
		FROM orders ORDER BY created_at DESC`)
	if err != nil {
		return nil, errors.Wrap(err, "select orders")
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var (
			o      Order
			status string
		)
		if err := rows.Scan(&o.ID, &o.TotalAmount, &status, &o.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan order")
		}
		o.Status = Status(status)
		out = append(out, o)
	}
	return out, errors.Wrap(rows.Err(), "iterate orders")
}

// UpdateStatus overwrites the status unconditionally.
func (r *Repo) UpdateStatus(ctx context.Context, id string, status Status) (*Order, error) {
	var (
		o Order
		s string
	)
	err := r.DB.QueryRow(ctx, `
		UPDATE orders SET status = $2 WHERE id = $1
		RETURNING id, total_amount, status, created_at`,
		id, string(status),
	).Scan(&o.ID, &o.TotalAmount, &s, &o.CreatedAt)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "update order status")
	}
	o.Status = Status(s)
	return &o, nil
}
