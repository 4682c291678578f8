package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danastri/go-shop-services/internal/inventory"
)

type stubProductStore struct {
	mu       sync.Mutex
	products map[string]*inventory.Product
}

func newStubProductStore() *stubProductStore {
	return &stubProductStore{products: map[string]*inventory.Product{}}
}

func (s *stubProductStore) ListProducts(_ context.Context) ([]inventory.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]inventory.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, *p)
	}
	return out, nil
}

func (s *stubProductStore) GetProduct(_ context.Context, id string) (*inventory.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil, inventory.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *stubProductStore) CreateProduct(_ context.Context, np inventory.NewProduct) (*inventory.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := &inventory.Product{
		ID:          uuid.NewString(),
		Name:        np.Name,
		Description: np.Description,
		Price:       np.Price,
		Stock:       np.Stock,
		CreatedAt:   time.Now().UTC(),
	}
	s.products[p.ID] = p
	cp := *p
	return &cp, nil
}

func (s *stubProductStore) AdjustStock(_ context.Context, id string, quantity int) (*inventory.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil, inventory.ErrNotFound
	}
	p.Stock -= quantity
	cp := *p
	return &cp, nil
}

func newProductsRouter() *chi.Mux {
	svc := &inventory.Service{Store: newStubProductStore(), Log: zerolog.Nop()}
	r := NewRouter("inventory-test")
	(&ProductsHandler{Service: svc}).Register(r)
	return r
}

func createProduct(t *testing.T, r http.Handler, body string) inventory.Product {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/products", body)
	require.Equal(t, http.StatusCreated, w.Code)
	var p inventory.Product
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	return p
}

func TestListProductsEndpoint(t *testing.T) {
	r := newProductsRouter()

	w := doJSON(t, r, http.MethodGet, "/products", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	createProduct(t, r, `{"name":"widget","description":"a widget","price":9.99,"stock":10}`)

	w = doJSON(t, r, http.MethodGet, "/products", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list []inventory.Product
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "widget", list[0].Name)
}

func TestCreateProductEndpoint(t *testing.T) {
	r := newProductsRouter()

	p := createProduct(t, r, `{"name":"widget","description":"a widget","price":9.99,"stock":10}`)
	assert.NotEmpty(t, p.ID)
	assert.True(t, p.Price.Equal(decimal.RequireFromString("9.99")))
	assert.Equal(t, 10, p.Stock)

	w := doJSON(t, r, http.MethodPost, "/products", `{"description":"no name","price":1,"stock":1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/products", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetProductEndpoint(t *testing.T) {
	r := newProductsRouter()

	w := doJSON(t, r, http.MethodGet, "/products/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	p := createProduct(t, r, `{"name":"widget","price":9.99,"stock":10}`)
	w = doJSON(t, r, http.MethodGet, "/products/"+p.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	var got inventory.Product
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, p.ID, got.ID)
}

func TestAdjustStockEndpoint(t *testing.T) {
	r := newProductsRouter()

	w := doJSON(t, r, http.MethodPatch, "/products/missing/stock", `{"quantity":1}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	p := createProduct(t, r, `{"name":"widget","price":9.99,"stock":3}`)

	w = doJSON(t, r, http.MethodPatch, "/products/"+p.ID+"/stock", `{"quantity":2}`)
	require.Equal(t, http.StatusOK, w.Code)
	var got inventory.Product
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, 1, got.Stock)

	// no floor: a second over-sized decrement drives stock negative
	w = doJSON(t, r, http.MethodPatch, "/products/"+p.ID+"/stock", `{"quantity":5}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, -4, got.Stock)
}
