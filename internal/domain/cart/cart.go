// Package cart holds the ephemeral, client-local shopping cart. It lives in
// session memory only: created by user interaction, discarded on checkout
// success or explicit clear, never persisted.
package cart

import (
	"github.com/shopspring/decimal"

	"github.com/shopfront/shopfront/internal/domain/order"
	"github.com/shopfront/shopfront/internal/domain/product"
)

// Item is one cart line: a product plus the desired quantity.
type Item struct {
	Product  product.Product
	Quantity int
}

// Subtotal is the line total, unit price × quantity.
func (it Item) Subtotal() decimal.Decimal {
	return it.Product.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

// Cart is an ordered sequence of line items keyed by product identifier.
// Mutations are pure functions of the previous state; totals are computed
// fresh on each read and never cached, so they cannot drift.
type Cart struct {
	items []Item
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{}
}

// Add puts one unit of p in the cart. An existing line for p increments by
// one; otherwise a quantity-1 line is appended. Stock limits are enforced by
// the quantity stepper and ultimately by the server, not here.
func (c *Cart) Add(p product.Product) {
	for i := range c.items {
		if c.items[i].Product.ID == p.ID {
			c.items[i].Quantity++
			return
		}
	}
	c.items = append(c.items, Item{Product: p, Quantity: 1})
}

// SetQuantity sets the line quantity for the given product identifier,
// clamped to [1, stock]. A missing identifier is an idempotent no-op.
func (c *Cart) SetQuantity(productID string, quantity int) {
	for i := range c.items {
		if c.items[i].Product.ID != productID {
			continue
		}
		if quantity < 1 {
			quantity = 1
		}
		if stock := c.items[i].Product.Quantity; quantity > stock {
			quantity = stock
		}
		c.items[i].Quantity = quantity
		return
	}
}

// Remove drops the line for the given product identifier. A missing
// identifier is an idempotent no-op.
func (c *Cart) Remove(productID string) {
	for i := range c.items {
		if c.items[i].Product.ID == productID {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return
		}
	}
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.items = nil
}

// Items returns the cart lines in insertion order. The returned slice is a
// copy; mutating it does not affect the cart.
func (c *Cart) Items() []Item {
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

// Len returns the number of distinct lines.
func (c *Cart) Len() int {
	return len(c.items)
}

// Empty reports whether the cart has no lines.
func (c *Cart) Empty() bool {
	return len(c.items) == 0
}

// Total is the sum over lines of unit price × quantity.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range c.items {
		total = total.Add(it.Subtotal())
	}
	return total
}

// CheckoutRequest shapes the cart into the order creation payload.
func (c *Cart) CheckoutRequest() order.CreateRequest {
	req := order.CreateRequest{Items: make([]order.ItemRequest, len(c.items))}
	for i, it := range c.items {
		req.Items[i] = order.ItemRequest{
			ProductID: it.Product.ID,
			Quantity:  it.Quantity,
		}
	}
	return req
}
