package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

const ordersSchema = `
CREATE TABLE IF NOT EXISTS orders (
	id           TEXT PRIMARY KEY,
	total_amount NUMERIC(12,2) NOT NULL,
	status       TEXT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS order_items (
	id         BIGSERIAL PRIMARY KEY,
	order_id   TEXT NOT NULL REFERENCES orders(id),
	product_id TEXT NOT NULL,
	quantity   INTEGER NOT NULL,
	price      NUMERIC(12,2) NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_order_items_order_id ON order_items(order_id);
CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at DESC);
`

const inventorySchema = `
CREATE TABLE IF NOT EXISTS products (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	price       NUMERIC(12,2) NOT NULL,
	stock       INTEGER NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// MigrateOrders creates the order service schema. Safe to run on every start.
func MigrateOrders(ctx context.Context, db *pgxpool.Pool) error {
	_, err := db.Exec(ctx, ordersSchema)
	return errors.Wrap(err, "migrate orders schema")
}

// MigrateInventory creates the inventory service schema. Safe to run on every start.
func MigrateInventory(ctx context.Context, db *pgxpool.Pool) error {
	_, err := db.Exec(ctx, inventorySchema)
	return errors.Wrap(err, "migrate inventory schema")
}

// SeedProducts inserts a fixed starter catalog when the table is empty.
func SeedProducts(ctx context.Context, db *pgxpool.Pool) error {
	var n int
	if err := db.QueryRow(ctx, `SELECT COUNT(*) FROM products`).Scan(&n); err != nil {
		return errors.Wrap(err, "count products")
	}
	if n > 0 {
		return nil
	}

	seed := []struct {
		name, desc, price string
		stock             int
	}{
		{"Laptop Pro 14", "14-inch laptop, 16GB RAM, 512GB SSD", "1299.99", 25},
		{"Mechanical Keyboard", "Hot-swappable 75% board, brown switches", "89.50", 120},
		{"USB-C Dock", "Dual 4K output, 100W passthrough", "149.00", 60},
		{"Wireless Mouse", "Low-latency 2.4GHz, 8 buttons", "39.99", 200},
		{"27in Monitor", "QHD IPS, 165Hz", "329.00", 45},
	}
	for _, p := range seed {
		_, err := db.Exec(ctx, `
			INSERT INTO products(id, name, description, price, stock)
			VALUES ($1, $2, $3, $4, $5)`,
			uuid.NewString(), p.name, p.desc, p.price, p.stock,
		)
		if err != nil {
			return errors.Wrapf(err, "seed product %s", p.name)
		}
	}
	return nil
}
