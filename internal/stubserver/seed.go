package stubserver

import (
	"github.com/shopspring/decimal"

	"github.com/shopfront/shopfront/internal/domain/product"
)

// Seed fills the catalog with a small demo inventory.
func Seed(products *ProductStore) {
	demo := []product.Request{
		{Name: "Mechanical Keyboard", Description: "Tenkeyless, hot-swappable switches", Price: decimal.NewFromFloat(89.90), Quantity: 12},
		{Name: "USB-C Dock", Description: "Dual 4K display, 85W passthrough", Price: decimal.NewFromFloat(129.00), Quantity: 7},
		{Name: "Noise-Cancelling Headphones", Description: "Over-ear, 30h battery", Price: decimal.NewFromFloat(199.50), Quantity: 5},
		{Name: "Ergonomic Mouse", Description: "Vertical grip, 6 buttons", Price: decimal.NewFromFloat(49.99), Quantity: 20},
		{Name: "4K Webcam", Description: "Autofocus, dual microphones", Price: decimal.NewFromFloat(119.00), Quantity: 9},
		{Name: "Laptop Stand", Description: "Aluminium, adjustable height", Price: decimal.NewFromFloat(34.90), Quantity: 0},
		{Name: "Desk Mat", Description: "900x400mm, stitched edges", Price: decimal.NewFromFloat(19.90), Quantity: 31},
	}
	for _, req := range demo {
		products.Create(req)
	}
}
