package stubserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopfront/shopfront/internal/domain/order"
	"github.com/shopfront/shopfront/internal/domain/product"
)

type handlerFixture struct {
	t        *testing.T
	identity *Identity
	products *ProductStore
	orders   *OrderStore
	routes   http.Handler

	adminToken  string
	clientToken string
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	identity := newTestIdentity()
	products := NewProductStore()
	orders := NewOrderStore()

	adminToken, err := identity.sign(defaultUsers[0], "Bearer", time.Now(), identity.tokenTTL)
	require.NoError(t, err)
	clientToken, err := identity.sign(defaultUsers[1], "Bearer", time.Now(), identity.tokenTTL)
	require.NoError(t, err)

	return &handlerFixture{
		t:           t,
		identity:    identity,
		products:    products,
		orders:      orders,
		routes:      NewHandler(identity, products, orders).Routes(),
		adminToken:  adminToken,
		clientToken: clientToken,
	}
}

func (f *handlerFixture) do(method, path, token string, body any) *httptest.ResponseRecorder {
	f.t.Helper()
	var rd *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(f.t, err)
		rd = bytes.NewReader(data)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.routes.ServeHTTP(rec, req)
	return rec
}

func (f *handlerFixture) seedProduct(name string, price string, stock int) product.Product {
	return f.products.Create(product.Request{
		Name:     name,
		Price:    decimal.RequireFromString(price),
		Quantity: stock,
	})
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestHandler_RequiresToken(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(http.MethodGet, "/api/products", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(http.MethodGet, "/api/products", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandler_ListProducts(t *testing.T) {
	f := newHandlerFixture(t)
	f.seedProduct("Widget", "10.00", 5)
	f.seedProduct("Gadget", "20.00", 3)

	rec := f.do(http.MethodGet, "/api/products", f.clientToken, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	products := decodeBody[[]product.Product](t, rec)
	require.Len(t, products, 2)
	assert.Equal(t, "Gadget", products[0].Name)
	assert.Equal(t, "Widget", products[1].Name)
}

func TestHandler_GetProduct_NotFound(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(http.MethodGet, "/api/products/nope", f.clientToken, nil)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Product not found with id: nope")
}

func TestHandler_CreateProduct_AdminOnly(t *testing.T) {
	f := newHandlerFixture(t)
	payload := product.Request{Name: "Widget", Price: decimal.RequireFromString("10.00"), Quantity: 5}

	rec := f.do(http.MethodPost, "/api/products", f.clientToken, payload)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(http.MethodPost, "/api/products", f.adminToken, payload)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody[product.Product](t, rec)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Widget", created.Name)
}

func TestHandler_CreateProduct_Validation(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(http.MethodPost, "/api/products", f.adminToken, product.Request{
		Name:     "  ",
		Price:    decimal.RequireFromString("-1"),
		Quantity: -2,
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body struct {
		Message string            `json:"message"`
		Errors  map[string]string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Validation failed", body.Message)
	assert.Contains(t, body.Errors, "name")
	assert.Contains(t, body.Errors, "price")
	assert.Contains(t, body.Errors, "quantity")
}

func TestHandler_UpdateAndDeleteProduct(t *testing.T) {
	f := newHandlerFixture(t)
	p := f.seedProduct("Widget", "10.00", 5)

	rec := f.do(http.MethodPut, "/api/products/"+p.ID, f.adminToken, product.Request{
		Name:     "Widget v2",
		Price:    decimal.RequireFromString("12.00"),
		Quantity: 8,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decodeBody[product.Product](t, rec)
	assert.Equal(t, "Widget v2", updated.Name)
	assert.Equal(t, 8, updated.Quantity)

	rec = f.do(http.MethodDelete, "/api/products/"+p.ID, f.adminToken, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(http.MethodGet, "/api/products/"+p.ID, f.clientToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_CreateOrder(t *testing.T) {
	f := newHandlerFixture(t)
	p1 := f.seedProduct("Widget", "10.00", 5)
	p2 := f.seedProduct("Gadget", "20.00", 5)

	rec := f.do(http.MethodPost, "/api/orders", f.clientToken, order.CreateRequest{
		Items: []order.ItemRequest{
			{ProductID: p1.ID, Quantity: 2},
			{ProductID: p2.ID, Quantity: 1},
		},
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	o := decodeBody[order.Order](t, rec)
	assert.Equal(t, defaultUsers[1].ID, o.UserID)
	assert.Equal(t, order.StatusValidated, o.Status)
	assert.True(t, decimal.RequireFromString("40.00").Equal(o.TotalAmount))
	require.Len(t, o.Items, 2)
	assert.True(t, decimal.RequireFromString("10.00").Equal(o.Items[0].Price))

	// Stock is reduced by the ordered quantities.
	got, ok := f.products.Get(p1.ID)
	require.True(t, ok)
	assert.Equal(t, 3, got.Quantity)
}

func TestHandler_CreateOrder_InsufficientStock(t *testing.T) {
	f := newHandlerFixture(t)
	p := f.seedProduct("Widget", "10.00", 2)

	rec := f.do(http.MethodPost, "/api/orders", f.clientToken, order.CreateRequest{
		Items: []order.ItemRequest{{ProductID: p.ID, Quantity: 3}},
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(),
		"Insufficient stock for product 'Widget'. Available: 2, Requested: 3")
}

func TestHandler_CreateOrder_DuplicateLinesCheckedInAggregate(t *testing.T) {
	f := newHandlerFixture(t)
	p := f.seedProduct("Widget", "10.00", 3)

	// Two lines for the same product must be checked as one total, and a
	// rejected order must not touch the stock.
	rec := f.do(http.MethodPost, "/api/orders", f.clientToken, order.CreateRequest{
		Items: []order.ItemRequest{
			{ProductID: p.ID, Quantity: 2},
			{ProductID: p.ID, Quantity: 2},
		},
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(),
		"Insufficient stock for product 'Widget'. Available: 3, Requested: 4")

	got, ok := f.products.Get(p.ID)
	require.True(t, ok)
	assert.Equal(t, 3, got.Quantity)
}

func TestHandler_CreateOrder_DuplicateLinesWithinStock(t *testing.T) {
	f := newHandlerFixture(t)
	p := f.seedProduct("Widget", "10.00", 3)

	rec := f.do(http.MethodPost, "/api/orders", f.clientToken, order.CreateRequest{
		Items: []order.ItemRequest{
			{ProductID: p.ID, Quantity: 1},
			{ProductID: p.ID, Quantity: 2},
		},
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	o := decodeBody[order.Order](t, rec)
	require.Len(t, o.Items, 2)
	assert.True(t, decimal.RequireFromString("30.00").Equal(o.TotalAmount))

	got, ok := f.products.Get(p.ID)
	require.True(t, ok)
	assert.Equal(t, 0, got.Quantity)
}

func TestHandler_CreateOrder_UnknownProduct(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(http.MethodPost, "/api/orders", f.clientToken, order.CreateRequest{
		Items: []order.ItemRequest{{ProductID: "missing", Quantity: 1}},
	})

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Product not found with id: missing")
}

func TestHandler_CreateOrder_EmptyItems(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(http.MethodPost, "/api/orders", f.clientToken, order.CreateRequest{})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "at least one item")
}

func TestHandler_MyOrders_ScopedToCaller(t *testing.T) {
	f := newHandlerFixture(t)
	p := f.seedProduct("Widget", "10.00", 10)

	req := order.CreateRequest{Items: []order.ItemRequest{{ProductID: p.ID, Quantity: 1}}}
	require.Equal(t, http.StatusCreated, f.do(http.MethodPost, "/api/orders", f.clientToken, req).Code)
	require.Equal(t, http.StatusCreated, f.do(http.MethodPost, "/api/orders", f.adminToken, req).Code)

	rec := f.do(http.MethodGet, "/api/orders/my-orders", f.clientToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	mine := decodeBody[[]order.Order](t, rec)
	require.Len(t, mine, 1)
	assert.Equal(t, defaultUsers[1].ID, mine[0].UserID)
}

func TestHandler_AllOrders_AdminOnly(t *testing.T) {
	f := newHandlerFixture(t)
	p := f.seedProduct("Widget", "10.00", 10)
	req := order.CreateRequest{Items: []order.ItemRequest{{ProductID: p.ID, Quantity: 1}}}
	require.Equal(t, http.StatusCreated, f.do(http.MethodPost, "/api/orders", f.clientToken, req).Code)
	require.Equal(t, http.StatusCreated, f.do(http.MethodPost, "/api/orders", f.adminToken, req).Code)

	rec := f.do(http.MethodGet, "/api/orders", f.clientToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(http.MethodGet, "/api/orders", f.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	all := decodeBody[[]order.Order](t, rec)
	assert.Len(t, all, 2)
}
