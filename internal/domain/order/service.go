package order

import (
	"context"

	"github.com/shopfront/shopfront/internal/api"
)

// Service maps order operations onto API calls. No retries and no business
// logic live here; failures propagate as normalized API errors.
type Service struct {
	client *api.Client
}

// NewService creates an order Service over the given API client.
func NewService(client *api.Client) *Service {
	return &Service{client: client}
}

// Create places an order from cart line items and returns the created order.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Order, error) {
	var o Order
	if err := s.client.Post(ctx, "/api/orders", req, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// MyOrders fetches the current user's order history.
func (s *Service) MyOrders(ctx context.Context) ([]Order, error) {
	var orders []Order
	if err := s.client.Get(ctx, "/api/orders/my-orders", &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// All fetches every order in the system. Admin only.
func (s *Service) All(ctx context.Context) ([]Order, error) {
	var orders []Order
	if err := s.client.Get(ctx, "/api/orders", &orders); err != nil {
		return nil, err
	}
	return orders, nil
}
