package cart

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopfront/shopfront/internal/domain/product"
)

func newTestProduct(id, name string, price string, stock int) product.Product {
	return product.Product{
		ID:       id,
		Name:     name,
		Price:    decimal.RequireFromString(price),
		Quantity: stock,
	}
}

func TestAdd_NewLine(t *testing.T) {
	c := New()
	c.Add(newTestProduct("p1", "Widget", "10.00", 5))

	require.Equal(t, 1, c.Len())
	assert.Equal(t, 1, c.Items()[0].Quantity)
}

func TestAdd_IncrementsExistingLine(t *testing.T) {
	c := New()
	p := newTestProduct("p1", "Widget", "10.00", 5)
	c.Add(p)
	c.Add(p)

	require.Equal(t, 1, c.Len())
	assert.Equal(t, 2, c.Items()[0].Quantity)
}

func TestAdd_NAddsYieldQuantityN(t *testing.T) {
	c := New()
	p := newTestProduct("p1", "Widget", "10.00", 2)
	c.Add(p)
	c.Add(p)
	c.Add(p)

	// Add never consults stock; only the stepper and the server do.
	require.Equal(t, 1, c.Len())
	assert.Equal(t, 3, c.Items()[0].Quantity)
	assert.True(t, decimal.RequireFromString("30.00").Equal(c.Total()))
}

func TestSetQuantity_Clamps(t *testing.T) {
	c := New()
	c.Add(newTestProduct("p1", "Widget", "10.00", 4))

	c.SetQuantity("p1", 10)
	assert.Equal(t, 4, c.Items()[0].Quantity)

	c.SetQuantity("p1", 0)
	assert.Equal(t, 1, c.Items()[0].Quantity)

	c.SetQuantity("p1", 3)
	assert.Equal(t, 3, c.Items()[0].Quantity)
}

func TestSetQuantity_MissingProductIsNoOp(t *testing.T) {
	c := New()
	c.Add(newTestProduct("p1", "Widget", "10.00", 4))

	c.SetQuantity("missing", 3)

	require.Equal(t, 1, c.Len())
	assert.Equal(t, 1, c.Items()[0].Quantity)
}

func TestRemove(t *testing.T) {
	c := New()
	c.Add(newTestProduct("p1", "Widget", "10.00", 4))
	c.Add(newTestProduct("p2", "Gadget", "20.00", 4))

	c.Remove("p1")

	require.Equal(t, 1, c.Len())
	assert.Equal(t, "p2", c.Items()[0].Product.ID)

	c.Remove("p1")
	assert.Equal(t, 1, c.Len())
}

func TestClear(t *testing.T) {
	c := New()
	c.Add(newTestProduct("p1", "Widget", "10.00", 4))
	c.Clear()

	assert.True(t, c.Empty())
	assert.True(t, decimal.Zero.Equal(c.Total()))
}

func TestTotal_SumOfLineSubtotals(t *testing.T) {
	c := New()
	p1 := newTestProduct("p1", "Widget", "10.50", 9)
	p2 := newTestProduct("p2", "Gadget", "20.00", 9)
	c.Add(p1)
	c.Add(p1)
	c.Add(p2)
	c.SetQuantity("p2", 3)

	assert.True(t, decimal.RequireFromString("81.00").Equal(c.Total()))
}

func TestTotal_RecomputedAfterMutation(t *testing.T) {
	c := New()
	c.Add(newTestProduct("p1", "Widget", "10.00", 9))
	c.Add(newTestProduct("p2", "Gadget", "20.00", 9))
	require.True(t, decimal.RequireFromString("30.00").Equal(c.Total()))

	c.Remove("p2")
	assert.True(t, decimal.RequireFromString("10.00").Equal(c.Total()))
}

func TestItems_ReturnsCopy(t *testing.T) {
	c := New()
	c.Add(newTestProduct("p1", "Widget", "10.00", 9))

	items := c.Items()
	items[0].Quantity = 99

	assert.Equal(t, 1, c.Items()[0].Quantity)
}

func TestCheckoutRequest(t *testing.T) {
	c := New()
	c.Add(newTestProduct("p1", "Widget", "10.00", 9))
	c.Add(newTestProduct("p2", "Gadget", "20.00", 9))
	c.SetQuantity("p1", 2)

	req := c.CheckoutRequest()

	require.Len(t, req.Items, 2)
	assert.Equal(t, "p1", req.Items[0].ProductID)
	assert.Equal(t, 2, req.Items[0].Quantity)
	assert.Equal(t, "p2", req.Items[1].ProductID)
	assert.Equal(t, 1, req.Items[1].Quantity)
}
