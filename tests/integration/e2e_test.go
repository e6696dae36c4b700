package integration

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopfront/shopfront/internal/api"
	"github.com/shopfront/shopfront/internal/auth"
	"github.com/shopfront/shopfront/internal/domain/cart"
	"github.com/shopfront/shopfront/internal/domain/order"
	"github.com/shopfront/shopfront/internal/domain/product"
	"github.com/shopfront/shopfront/internal/stubserver"
)

// env runs the whole stack in-process: identity stub, API stub, and the
// client-side session and services wired against them.
type env struct {
	session  *auth.Session
	products *product.Service
	orders   *order.Service
}

func newEnv(t *testing.T) *env {
	t.Helper()

	cfg := &stubserver.Config{
		Realm:      "eshop-realm",
		SigningKey: "e2e-secret",
		TokenTTL:   5 * time.Minute,
		RefreshTTL: 30 * time.Minute,
	}

	identity := stubserver.NewIdentity(cfg)
	identitySrv := httptest.NewServer(identity.Handler())
	t.Cleanup(identitySrv.Close)

	products := stubserver.NewProductStore()
	orders := stubserver.NewOrderStore()
	stubserver.Seed(products)
	apiSrv := httptest.NewServer(stubserver.NewHandler(identity, products, orders).Routes())
	t.Cleanup(apiSrv.Close)

	session := auth.NewSession(auth.Config{
		IssuerURL: identitySrv.URL,
		Realm:     cfg.Realm,
		ClientID:  "shopfront-terminal",
	})

	client, err := api.NewClient(apiSrv.URL, session)
	require.NoError(t, err)

	return &env{
		session:  session,
		products: product.NewService(client),
		orders:   order.NewService(client),
	}
}

func (e *env) login(t *testing.T, username, password string) {
	t.Helper()
	require.NoError(t, e.session.Initialize(context.Background()))
	require.NoError(t, e.session.Login(context.Background(), username, password))
}

func TestShoppingFlow(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.login(t, "client", "client")
	assert.True(t, e.session.HasRealmRole(auth.RoleClient))
	assert.False(t, e.session.HasRealmRole(auth.RoleAdmin))

	// Browse the seeded catalog.
	catalog, err := e.products.List(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, catalog)

	// Fill a cart from products that are actually in stock.
	c := cart.New()
	for _, p := range catalog {
		if p.InStock() {
			c.Add(p)
		}
		if c.Len() == 2 {
			break
		}
	}
	require.Equal(t, 2, c.Len())
	wantTotal := c.Total()

	// Checkout.
	placed, err := e.orders.Create(ctx, c.CheckoutRequest())
	require.NoError(t, err)
	assert.Equal(t, order.StatusValidated, placed.Status)
	assert.True(t, wantTotal.Equal(placed.TotalAmount))

	// The order shows up in the history.
	history, err := e.orders.MyOrders(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, placed.ID, history[0].ID)
}

func TestCheckout_InsufficientStock(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.login(t, "client", "client")

	catalog, err := e.products.List(ctx)
	require.NoError(t, err)

	var target product.Product
	for _, p := range catalog {
		if p.InStock() {
			target = p
			break
		}
	}
	require.NotEmpty(t, target.ID)

	_, err = e.orders.Create(ctx, order.CreateRequest{
		Items: []order.ItemRequest{{ProductID: target.ID, Quantity: target.Quantity + 1}},
	})

	var apiErr *api.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 400, apiErr.Status)
	assert.Contains(t, apiErr.Message, "Insufficient stock")
}

func TestAdminManagesCatalog(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.login(t, "admin", "admin")
	require.True(t, e.session.HasRealmRole(auth.RoleAdmin))

	created, err := e.products.Create(ctx, product.Request{
		Name:        "Standing Desk",
		Description: "Electric, dual motor",
		Price:       decimal.RequireFromString("449.00"),
		Quantity:    3,
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	updated, err := e.products.Update(ctx, created.ID, product.Request{
		Name:        "Standing Desk",
		Description: "Electric, dual motor",
		Price:       decimal.RequireFromString("399.00"),
		Quantity:    5,
	})
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("399.00").Equal(updated.Price))
	assert.Equal(t, 5, updated.Quantity)

	require.NoError(t, e.products.Delete(ctx, created.ID))

	_, err = e.products.Get(ctx, created.ID)
	assert.Equal(t, 404, api.StatusOf(err))
}

func TestClientCannotManageCatalog(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.login(t, "client", "client")

	_, err := e.products.Create(ctx, product.Request{
		Name:     "Sneaky",
		Price:    decimal.RequireFromString("1.00"),
		Quantity: 1,
	})
	assert.Equal(t, 403, api.StatusOf(err))

	_, err = e.orders.All(ctx)
	assert.Equal(t, 403, api.StatusOf(err))
}

func TestExpiredTokenIsRefreshedTransparently(t *testing.T) {
	ctx := context.Background()

	cfg := &stubserver.Config{
		Realm:      "eshop-realm",
		SigningKey: "e2e-secret",
		TokenTTL:   5 * time.Minute,
		RefreshTTL: 30 * time.Minute,
	}

	// Both clocks are test-controlled. The identity stub starts in the past
	// so the access token it issues at login is already expired, while the
	// refresh token is still good.
	base := time.Now()
	identNow := base.Add(-6 * time.Minute)
	sessNow := base

	identity := stubserver.NewIdentity(cfg)
	identity.SetClock(func() time.Time { return identNow })
	identitySrv := httptest.NewServer(identity.Handler())
	t.Cleanup(identitySrv.Close)

	products := stubserver.NewProductStore()
	stubserver.Seed(products)
	apiSrv := httptest.NewServer(stubserver.NewHandler(identity, products, stubserver.NewOrderStore()).Routes())
	t.Cleanup(apiSrv.Close)

	session := auth.NewSession(auth.Config{
		IssuerURL: identitySrv.URL,
		Realm:     cfg.Realm,
		ClientID:  "shopfront-terminal",
	}, auth.WithClock(func() time.Time { return sessNow }))

	client, err := api.NewClient(apiSrv.URL, session)
	require.NoError(t, err)
	catalogSvc := product.NewService(client)

	require.NoError(t, session.Initialize(ctx))
	require.NoError(t, session.Login(ctx, "client", "client"))

	// From here on the provider issues fresh tokens, and the session sees
	// its cached token as expired.
	identNow = base
	sessNow = base.Add(6 * time.Minute)

	// The stale bearer token draws a 401; the client refreshes once and
	// replays the request without surfacing an error.
	catalog, err := catalogSvc.List(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, catalog)
	assert.True(t, session.Authenticated())
}
