// Package tui is the terminal storefront UI. It follows the bubbletea
// model/update/view cycle: user input becomes messages, messages update the
// model, and the model renders to the screen. All state here is transient
// view state; persistent state lives behind the API.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/shopfront/shopfront/internal/auth"
	"github.com/shopfront/shopfront/internal/domain/cart"
	"github.com/shopfront/shopfront/internal/domain/order"
	"github.com/shopfront/shopfront/internal/domain/product"
)

// requestTimeout bounds every API call issued from the UI.
const requestTimeout = 15 * time.Second

// noticeTTL is how long transient success notices stay on screen.
const noticeTTL = 3 * time.Second

// appState identifies which screen is active.
type appState int

const (
	stateInitializing appState = iota // provider handshake in flight
	stateLogin                        // credential form
	stateCatalog                      // product list + add to cart
	stateCart                         // cart review + checkout
	stateOrders                       // order history
	stateProfile                      // identity details
	stateAdmin                        // product management (ADMIN)
	stateForbidden                    // terminal access-denied view
)

// SessionController is the session surface the UI drives.
type SessionController interface {
	auth.SessionState

	Initialize(ctx context.Context) error
	Login(ctx context.Context, username, password string) error
	Logout(ctx context.Context)
	Identity() *auth.Identity
}

// CatalogService loads and manages the product catalog.
type CatalogService interface {
	List(ctx context.Context) ([]product.Product, error)
	Create(ctx context.Context, req product.Request) (*product.Product, error)
	Update(ctx context.Context, id string, req product.Request) (*product.Product, error)
	Delete(ctx context.Context, id string) error
}

// OrderService places orders and loads order history.
type OrderService interface {
	Create(ctx context.Context, req order.CreateRequest) (*order.Order, error)
	MyOrders(ctx context.Context) ([]order.Order, error)
	All(ctx context.Context) ([]order.Order, error)
}

// Deps are the collaborators the UI is wired with.
type Deps struct {
	Session  SessionController
	Products CatalogService
	Orders   OrderService
	Logger   *zap.Logger
}

// --- Messages ---

// LoginRequiredMsg routes the user back to the login form. The API client
// emits it (via the session login handler) when a token refresh fails.
type LoginRequiredMsg struct{}

type initDoneMsg struct{ err error }

type loginResultMsg struct{ err error }

type productsLoadedMsg struct {
	products []product.Product
	err      error
}

type ordersLoadedMsg struct {
	orders []order.Order
	all    bool
	err    error
}

type orderPlacedMsg struct {
	order *order.Order
	err   error
}

type productSavedMsg struct {
	product *product.Product
	err     error
}

type productDeletedMsg struct {
	id  string
	err error
}

type clearNoticeMsg struct{}

// App is the root bubbletea model.
type App struct {
	deps Deps
	lg   *zap.Logger

	state appState
	cart  *cart.Cart

	login   loginView
	catalog catalogView
	cartV   cartView
	orders  ordersView
	admin   adminView

	loading  spinner.Model
	initErr  error
	notice   string
	errMsg   string
	lastLoad tea.Cmd // manual retry replays the last failed load

	width  int
	height int
}

// NewApp wires the root model. The UI starts in the initializing state and
// moves on once the identity provider handshake finishes.
func NewApp(deps Deps) *App {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return &App{
		deps:    deps,
		lg:      deps.Logger,
		state:   stateInitializing,
		cart:    cart.New(),
		login:   newLoginView(),
		catalog: newCatalogView(),
		cartV:   newCartView(),
		orders:  newOrdersView(),
		admin:   newAdminView(),
		loading: sp,
	}
}

// Init starts the provider handshake alongside the loading spinner.
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.loading.Tick, a.initSession())
}

func (a *App) initSession() tea.Cmd {
	sess := a.deps.Session
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return initDoneMsg{err: sess.Initialize(ctx)}
	}
}

// navigate applies the route guard and switches screens. Guards are
// evaluated fresh on every navigation and never flow back to initializing.
func (a *App) navigate(target appState, roles ...string) (tea.Model, tea.Cmd) {
	switch auth.Evaluate(a.deps.Session, roles...) {
	case auth.GuardInitializing:
		a.state = stateInitializing
		return a, a.loading.Tick
	case auth.GuardUnauthenticated:
		// Terminal analog of the login redirect side effect.
		a.state = stateLogin
		return a, a.login.focus()
	case auth.GuardForbidden:
		a.state = stateForbidden
		return a, nil
	}

	a.state = target
	a.errMsg = ""
	switch target {
	case stateCatalog:
		return a, a.loadProducts()
	case stateOrders:
		return a, a.loadOrders(a.orders.showAll)
	case stateAdmin:
		return a, a.loadProducts()
	}
	return a, nil
}

// Update is the central message loop.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.catalog.setSize(msg.Width, msg.Height)
		a.orders.setSize(msg.Width, msg.Height)
		a.admin.setSize(msg.Width, msg.Height)
		return a, nil

	case spinner.TickMsg:
		if a.state == stateInitializing || a.busy() {
			var cmd tea.Cmd
			a.loading, cmd = a.loading.Update(msg)
			return a, cmd
		}
		return a, nil

	case initDoneMsg:
		if msg.err != nil {
			// Stay uninitialized: the guard keeps rendering the loading
			// view with the error and a manual retry affordance.
			a.initErr = msg.err
			a.lg.Error("Provider handshake failed", zap.Error(msg.err))
			return a, nil
		}
		a.initErr = nil
		return a.navigate(stateCatalog)

	case LoginRequiredMsg:
		a.lg.Warn("Session no longer refreshable, returning to login")
		a.state = stateLogin
		a.errMsg = "Session expired. Please log in again."
		return a, a.login.focus()

	case loginResultMsg:
		a.login.submitting = false
		if msg.err != nil {
			a.login.errMsg = loginErrorText(msg.err)
			return a, nil
		}
		a.login.reset()
		return a.navigate(stateCatalog)

	case productsLoadedMsg:
		a.catalog.loading = false
		a.admin.loading = false
		if msg.err != nil {
			a.errMsg = errorText(msg.err, "Failed to load products")
			return a, nil
		}
		a.errMsg = ""
		a.catalog.setProducts(msg.products)
		a.admin.setProducts(msg.products)
		return a, nil

	case ordersLoadedMsg:
		a.orders.loading = false
		if msg.err != nil {
			a.errMsg = errorText(msg.err, "Failed to load orders")
			return a, nil
		}
		a.errMsg = ""
		a.orders.setOrders(msg.orders, msg.all)
		return a, nil

	case orderPlacedMsg:
		a.cartV.submitting = false
		if msg.err != nil {
			a.cartV.errMsg = errorText(msg.err, "Failed to create order")
			return a, nil
		}
		// The cart is discarded only after the server confirmed the order.
		a.cart.Clear()
		a.cartV.errMsg = ""
		a.notice = "Order created successfully!"
		a.lg.Info("Order placed", zap.String("order_id", msg.order.ID))
		return a, tea.Tick(noticeTTL, func(time.Time) tea.Msg { return clearNoticeMsg{} })

	case productSavedMsg:
		a.admin.submitting = false
		if msg.err != nil {
			a.admin.applyError(msg.err)
			return a, nil
		}
		a.admin.closeForm()
		a.notice = "Product saved"
		return a, tea.Batch(
			a.loadProducts(),
			tea.Tick(noticeTTL, func(time.Time) tea.Msg { return clearNoticeMsg{} }),
		)

	case productDeletedMsg:
		if msg.err != nil {
			a.errMsg = errorText(msg.err, "Failed to delete product")
			return a, nil
		}
		a.notice = "Product deleted"
		return a, tea.Batch(
			a.loadProducts(),
			tea.Tick(noticeTTL, func(time.Time) tea.Msg { return clearNoticeMsg{} }),
		)

	case clearNoticeMsg:
		a.notice = ""
		return a, nil

	case tea.KeyMsg:
		if model, cmd, handled := a.handleKey(msg); handled {
			return model, cmd
		}
	}

	return a.updateActiveView(msg)
}

// handleKey processes global and navigation keys. View-local keys fall
// through to the active view.
func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	key := msg.String()

	if key == "ctrl+c" {
		return a, tea.Quit, true
	}

	// Text inputs swallow printable keys; only ctrl+c is global there.
	if a.typing() {
		return nil, nil, false
	}

	switch key {
	case "q":
		return a, tea.Quit, true
	case "r":
		if a.state == stateInitializing {
			a.initErr = nil
			return a, tea.Batch(a.loading.Tick, a.initSession()), true
		}
		if a.errMsg != "" && a.lastLoad != nil {
			a.errMsg = ""
			return a, a.lastLoad, true
		}
	case "1":
		m, cmd := a.navigate(stateCatalog)
		return m, cmd, true
	case "2":
		m, cmd := a.navigate(stateCart)
		return m, cmd, true
	case "3":
		m, cmd := a.navigate(stateOrders)
		return m, cmd, true
	case "4":
		m, cmd := a.navigate(stateProfile)
		return m, cmd, true
	case "5":
		m, cmd := a.navigate(stateAdmin, auth.RoleAdmin)
		return m, cmd, true
	case "esc":
		if a.state == stateForbidden {
			m, cmd := a.navigate(stateCatalog)
			return m, cmd, true
		}
	case "ctrl+l":
		if a.deps.Session.Authenticated() {
			return a, a.logout(), true
		}
	}

	return nil, nil, false
}

// typing reports whether the active view owns the keyboard for text entry.
func (a *App) typing() bool {
	switch a.state {
	case stateLogin:
		return true
	case stateAdmin:
		return a.admin.editing()
	}
	return false
}

func (a *App) busy() bool {
	return a.catalog.loading || a.orders.loading || a.admin.loading ||
		a.login.submitting || a.cartV.submitting || a.admin.submitting
}

func (a *App) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch a.state {
	case stateLogin:
		return a.updateLogin(msg)
	case stateCatalog:
		return a.updateCatalog(msg)
	case stateCart:
		return a.updateCart(msg)
	case stateOrders:
		return a.updateOrders(msg)
	case stateAdmin:
		return a.updateAdmin(msg)
	}
	return a, nil
}

// --- Commands ---

func (a *App) loadProducts() tea.Cmd {
	a.catalog.loading = true
	a.admin.loading = true
	svc := a.deps.Products
	cmd := func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		products, err := svc.List(ctx)
		return productsLoadedMsg{products: products, err: err}
	}
	a.lastLoad = cmd
	return cmd
}

func (a *App) loadOrders(all bool) tea.Cmd {
	a.orders.loading = true
	svc := a.deps.Orders
	cmd := func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		var (
			orders []order.Order
			err    error
		)
		if all {
			orders, err = svc.All(ctx)
		} else {
			orders, err = svc.MyOrders(ctx)
		}
		return ordersLoadedMsg{orders: orders, all: all, err: err}
	}
	a.lastLoad = cmd
	return cmd
}

func (a *App) checkout() tea.Cmd {
	a.cartV.submitting = true
	req := a.cart.CheckoutRequest()
	svc := a.deps.Orders
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		o, err := svc.Create(ctx, req)
		return orderPlacedMsg{order: o, err: err}
	}
}

func (a *App) logout() tea.Cmd {
	sess := a.deps.Session
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		sess.Logout(ctx)
		return LoginRequiredMsg{}
	}
}

// View renders the active screen inside the chrome.
func (a *App) View() string {
	var body string
	switch a.state {
	case stateInitializing:
		body = a.viewInitializing()
	case stateLogin:
		body = a.login.view()
	case stateCatalog:
		body = a.viewCatalog()
	case stateCart:
		body = a.viewCart()
	case stateOrders:
		body = a.viewOrders()
	case stateProfile:
		body = a.viewProfile()
	case stateAdmin:
		body = a.viewAdmin()
	case stateForbidden:
		body = a.viewForbidden()
	}
	return a.chrome(body)
}

func (a *App) viewInitializing() string {
	if a.initErr != nil {
		return errorStyle.Render("Could not reach the identity provider: "+a.initErr.Error()) +
			"\n\n" + hintStyle.Render("r retry · q quit")
	}
	return a.loading.View() + " Loading..."
}

func (a *App) viewForbidden() string {
	return forbiddenTitleStyle.Render("Access Denied") + "\n\n" +
		"You don't have permission to access this page.\n\n" +
		hintStyle.Render("esc back to catalog · q quit")
}
