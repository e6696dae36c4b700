package stubserver

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shopfront/shopfront/internal/domain/order"
	"github.com/shopfront/shopfront/internal/domain/product"
)

// ProductStore is an in-memory product catalog. Everything is lost on
// restart; the stub exists for development and end-to-end tests only.
type ProductStore struct {
	mu       sync.RWMutex
	products map[string]product.Product
}

// NewProductStore returns an empty catalog.
func NewProductStore() *ProductStore {
	return &ProductStore{products: make(map[string]product.Product)}
}

// List returns all products sorted by name for stable output.
func (s *ProductStore) List() []product.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]product.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Get returns the product with the given ID.
func (s *ProductStore) Get(id string) (product.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	return p, ok
}

// Create stores a new product and returns it with a generated ID.
func (s *ProductStore) Create(req product.Request) product.Product {
	p := product.Product{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Quantity:    req.Quantity,
	}
	s.mu.Lock()
	s.products[p.ID] = p
	s.mu.Unlock()
	return p
}

// Update replaces the attributes of an existing product.
func (s *ProductStore) Update(id string, req product.Request) (product.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return product.Product{}, false
	}
	p.Name = req.Name
	p.Description = req.Description
	p.Price = req.Price
	p.Quantity = req.Quantity
	s.products[id] = p
	return p, true
}

// Delete removes a product. It reports whether the product existed.
func (s *ProductStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[id]; !ok {
		return false
	}
	delete(s.products, id)
	return true
}

// NotFoundError reports a reference to a product that does not exist.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return "Product not found with id: " + e.ID
}

// InsufficientStockError reports a requested quantity exceeding the stock on
// hand. Requested is the total across all lines referencing the product.
type InsufficientStockError struct {
	Name      string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Insufficient stock for product '%s'. Available: %d, Requested: %d",
		e.Name, e.Available, e.Requested)
}

// Reserve atomically checks and decrements stock for every requested line.
// Quantities are aggregated per product first, so duplicate lines cannot slip
// past the check. On any failure nothing is decremented. The returned lines
// carry product snapshots taken before the decrement, preserving unit prices.
func (s *ProductStore) Reserve(items []order.ItemRequest) ([]orderLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	requested := make(map[string]int, len(items))
	for _, item := range items {
		if _, ok := s.products[item.ProductID]; !ok {
			return nil, &NotFoundError{ID: item.ProductID}
		}
		requested[item.ProductID] += item.Quantity
	}
	for id, qty := range requested {
		if p := s.products[id]; p.Quantity < qty {
			return nil, &InsufficientStockError{
				Name:      p.Name,
				Available: p.Quantity,
				Requested: qty,
			}
		}
	}

	lines := make([]orderLine, len(items))
	for i, item := range items {
		lines[i] = orderLine{product: s.products[item.ProductID], quantity: item.Quantity}
	}
	for id, qty := range requested {
		p := s.products[id]
		p.Quantity -= qty
		s.products[id] = p
	}
	return lines, nil
}

// OrderStore is an in-memory order book.
type OrderStore struct {
	mu     sync.RWMutex
	orders []order.Order
}

// NewOrderStore returns an empty order book.
func NewOrderStore() *OrderStore {
	return &OrderStore{}
}

// Create persists an order built from resolved lines, capturing unit prices
// at order time. Orders validate synchronously; there is no pending queue.
func (s *OrderStore) Create(userID string, items []orderLine) order.Order {
	o := order.Order{
		ID:        uuid.New().String(),
		UserID:    userID,
		OrderDate: time.Now().UTC(),
		Status:    order.StatusValidated,
	}
	total := decimal.Zero
	for _, line := range items {
		item := order.Item{
			ID:        uuid.New().String(),
			ProductID: line.product.ID,
			Quantity:  line.quantity,
			Price:     line.product.Price,
		}
		o.Items = append(o.Items, item)
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	o.TotalAmount = total

	s.mu.Lock()
	s.orders = append(s.orders, o)
	s.mu.Unlock()
	return o
}

// orderLine pairs a resolved product with the requested quantity.
type orderLine struct {
	product  product.Product
	quantity int
}

// All returns every order, newest first.
func (s *OrderStore) All() []order.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]order.Order, len(s.orders))
	copy(out, s.orders)
	sort.Slice(out, func(i, j int) bool { return out[i].OrderDate.After(out[j].OrderDate) })
	return out
}

// ByUser returns the orders belonging to userID, newest first.
func (s *OrderStore) ByUser(userID string) []order.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []order.Order
	for _, o := range s.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderDate.After(out[j].OrderDate) })
	return out
}
