package inventory

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Store is the durable product record. AdjustStock must be an atomic
// read-modify-write inside the store itself.
type Store interface {
	ListProducts(ctx context.Context) ([]Product, error)
	GetProduct(ctx context.Context, id string) (*Product, error)
	CreateProduct(ctx context.Context, np NewProduct) (*Product, error)
	AdjustStock(ctx context.Context, id string, quantity int) (*Product, error)
}

// Service owns the catalog. It knows nothing about orders.
type Service struct {
	Store Store
	Log   zerolog.Logger
}

func (s *Service) ListProducts(ctx context.Context) ([]Product, error) {
	return s.Store.ListProducts(ctx)
}

func (s *Service) GetProduct(ctx context.Context, id string) (*Product, error) {
	return s.Store.GetProduct(ctx, id)
}

func (s *Service) CreateProduct(ctx context.Context, np NewProduct) (*Product, error) {
	if np.Name == "" {
		return nil, errors.Wrap(ErrInvalidRequest, "name required")
	}
	if np.Price.IsNegative() {
		return nil, errors.Wrap(ErrInvalidRequest, "negative price")
	}
	return s.Store.CreateProduct(ctx, np)
}

// AdjustStock decrements unconditionally; the result may be negative.
func (s *Service) AdjustStock(ctx context.Context, id string, quantity int) (*Product, error) {
	p, err := s.Store.AdjustStock(ctx, id, quantity)
	if err != nil {
		return nil, err
	}
	s.Log.Info().
		Str("product_id", p.ID).
		Int("quantity", quantity).
		Int("stock", p.Stock).
		Msg("stock adjusted")
	return p, nil
}
