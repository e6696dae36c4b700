package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the backend-decided order state. Orders are immutable from the
// client's perspective once created.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusValidated Status = "VALIDATED"
)

// Order is a placed order as returned by the API.
type Order struct {
	ID          string          `json:"id"`
	UserID      string          `json:"userId"`
	OrderDate   time.Time       `json:"orderDate"`
	Status      Status          `json:"status"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Items       []Item          `json:"items"`
}

// Item is a single line item with the unit price captured at order time.
type Item struct {
	ID        string          `json:"id"`
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// CreateRequest is the checkout payload.
type CreateRequest struct {
	Items []ItemRequest `json:"items"`
}

// ItemRequest references a product and a desired quantity.
type ItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}
