package product

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/shopfront/shopfront/internal/api"
)

// Product is a catalog item. The catalog is owned by the remote API; the
// client holds read-only copies refreshed on demand.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	// Quantity is the stock on hand; the cart stepper clamps to it.
	Quantity int `json:"quantity"`
}

// InStock reports whether any units are left to order.
func (p Product) InStock() bool {
	return p.Quantity > 0
}

// Request is the create/update payload for management operations.
type Request struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
}

// Service maps catalog operations onto API calls. It holds no state and
// performs no validation beyond what the server enforces.
type Service struct {
	client *api.Client
}

// NewService creates a catalog Service over the given API client.
func NewService(client *api.Client) *Service {
	return &Service{client: client}
}

// List fetches the full product catalog.
func (s *Service) List(ctx context.Context) ([]Product, error) {
	var products []Product
	if err := s.client.Get(ctx, "/api/products", &products); err != nil {
		return nil, err
	}
	return products, nil
}

// Get fetches a single product by ID.
func (s *Service) Get(ctx context.Context, id string) (*Product, error) {
	var p Product
	if err := s.client.Get(ctx, "/api/products/"+id, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Create adds a product to the catalog. Admin only.
func (s *Service) Create(ctx context.Context, req Request) (*Product, error) {
	var p Product
	if err := s.client.Post(ctx, "/api/products", req, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Update replaces a product's attributes. Admin only.
func (s *Service) Update(ctx context.Context, id string, req Request) (*Product, error) {
	var p Product
	if err := s.client.Put(ctx, "/api/products/"+id, req, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Delete removes a product from the catalog. Admin only.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.client.Delete(ctx, "/api/products/"+id)
}
