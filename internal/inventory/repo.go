package inventory

import (
	"context"
	stderrors "errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, name, description, price, stock, created_at
		FROM products ORDER BY name`)
	if err != nil {
		return nil, errors.Wrap(err, "select products")
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan product")
		}
		out = append(out, p)
	}
	return out, errors.Wrap(rows.Err(), "iterate products")
}

func (r *Repo) GetProduct(ctx context.Context, id string) (*Product, error) {
	var p Product
	err := r.DB.QueryRow(ctx, `
		SELECT id, name, description, price, stock, created_at
		FROM products WHERE id = $1`, id,
	).Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.CreatedAt)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "select product")
	}
	return &p, nil
}

func (r *Repo) CreateProduct(ctx context.Context, np NewProduct) (*Product, error) {
	p := Product{
		ID:          uuid.NewString(),
		Name:        np.Name,
		Description: np.Description,
		Price:       np.Price,
		Stock:       np.Stock,
	}
	err := r.DB.QueryRow(ctx, `
		INSERT INTO products(id, name, description, price, stock)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		p.ID, p.Name, p.Description, p.Price, p.Stock,
	).Scan(&p.CreatedAt)
	if err != nil {
		return nil, errors.Wrap(err, "insert product")
	}
	return &p, nil
}

// AdjustStock decrements stock by quantity in a single statement so the
// read-modify-write happens inside the store; concurrent decrements
// never lose updates. There is no floor: stock may go negative.
func (r *Repo) AdjustStock(ctx context.Context, id string, quantity int) (*Product, error) {
	var p Product
	err := r.DB.QueryRow(ctx, `
		UPDATE products SET stock = stock - $2 WHERE id = $1
		RETURNING id, name, description, price, stock, created_at`,
		id, quantity,
	).Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.CreatedAt)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "adjust stock")
	}
	return &p, nil
}
