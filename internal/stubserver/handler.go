package stubserver

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/shopfront/shopfront/internal/auth"
	"github.com/shopfront/shopfront/internal/domain/order"
	"github.com/shopfront/shopfront/internal/domain/product"
)

// Handler implements the storefront REST API against the in-memory stores.
type Handler struct {
	identity *Identity
	products *ProductStore
	orders   *OrderStore
}

// NewHandler wires the API handler.
func NewHandler(identity *Identity, products *ProductStore, orders *OrderStore) *Handler {
	return &Handler{
		identity: identity,
		products: products,
		orders:   orders,
	}
}

// Routes builds the API route table. Every route requires a valid token;
// management routes additionally require the ADMIN role.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/products", h.authed(h.listProducts))
	mux.HandleFunc("GET /api/products/{id}", h.authed(h.getProduct))
	mux.HandleFunc("POST /api/products", h.admin(h.createProduct))
	mux.HandleFunc("PUT /api/products/{id}", h.admin(h.updateProduct))
	mux.HandleFunc("DELETE /api/products/{id}", h.admin(h.deleteProduct))

	mux.HandleFunc("POST /api/orders", h.authed(h.createOrder))
	mux.HandleFunc("GET /api/orders/my-orders", h.authed(h.myOrders))
	mux.HandleFunc("GET /api/orders", h.admin(h.allOrders))

	return mux
}

type claimsKey struct{}

func claimsFrom(ctx context.Context) *accessClaims {
	claims, _ := ctx.Value(claimsKey{}).(*accessClaims)
	return claims
}

// authed verifies the bearer token before invoking next.
func (h *Handler) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok {
			writeErr(w, http.StatusUnauthorized, "Unauthorized", "missing bearer token", nil)
			return
		}
		claims, err := h.identity.parseToken(raw, "Bearer")
		if err != nil {
			writeErr(w, http.StatusUnauthorized, "Unauthorized", "invalid or expired token", nil)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
	}
}

// admin verifies the bearer token and the ADMIN realm role.
func (h *Handler) admin(next http.HandlerFunc) http.HandlerFunc {
	return h.authed(func(w http.ResponseWriter, r *http.Request) {
		claims := claimsFrom(r.Context())
		for _, role := range claims.RealmAccess.Roles {
			if role == auth.RoleAdmin {
				next(w, r)
				return
			}
		}
		writeErr(w, http.StatusForbidden, "Forbidden", "ADMIN role required", nil)
	})
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.products.List())
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	p, ok := h.products.Get(id)
	if !ok {
		writeErr(w, http.StatusNotFound, "Not Found", "Product not found with id: "+id, nil)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeProductRequest(w, r)
	if !ok {
		return
	}
	p := h.products.Create(req)
	zctx.From(r.Context()).Info("Product created", zap.String("id", p.ID), zap.String("name", p.Name))
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	req, ok := decodeProductRequest(w, r)
	if !ok {
		return
	}
	p, found := h.products.Update(id, req)
	if !found {
		writeErr(w, http.StatusNotFound, "Not Found", "Product not found with id: "+id, nil)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !h.products.Delete(id) {
		writeErr(w, http.StatusNotFound, "Not Found", "Product not found with id: "+id, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req order.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "Bad Request", "malformed order payload", nil)
		return
	}
	if len(req.Items) == 0 {
		writeErr(w, http.StatusBadRequest, "Bad Request", "Order must contain at least one item",
			map[string]string{"items": "must not be empty"})
		return
	}

	for _, item := range req.Items {
		if item.Quantity <= 0 {
			writeErr(w, http.StatusBadRequest, "Bad Request", "Quantity must be positive",
				map[string]string{"items": "quantity must be greater than 0"})
			return
		}
	}

	// Stock check and decrement happen atomically; a rejected order leaves
	// the catalog untouched. Unit prices are captured at order time.
	lines, err := h.products.Reserve(req.Items)
	if err != nil {
		var nf *NotFoundError
		if errors.As(err, &nf) {
			writeErr(w, http.StatusNotFound, "Not Found", err.Error(), nil)
			return
		}
		writeErr(w, http.StatusBadRequest, "Bad Request", err.Error(), nil)
		return
	}

	claims := claimsFrom(r.Context())
	o := h.orders.Create(claims.Subject, lines)
	zctx.From(r.Context()).Info("Order created",
		zap.String("order_id", o.ID),
		zap.String("user_id", o.UserID),
		zap.String("total", o.TotalAmount.StringFixed(2)),
	)
	writeJSON(w, http.StatusCreated, o)
}

func (h *Handler) myOrders(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	writeJSON(w, http.StatusOK, h.orders.ByUser(claims.Subject))
}

func (h *Handler) allOrders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.orders.All())
}

func decodeProductRequest(w http.ResponseWriter, r *http.Request) (product.Request, bool) {
	var req product.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "Bad Request", "malformed product payload", nil)
		return req, false
	}

	fieldErrs := map[string]string{}
	if strings.TrimSpace(req.Name) == "" {
		fieldErrs["name"] = "must not be blank"
	}
	if req.Price.IsNegative() {
		fieldErrs["price"] = "must not be negative"
	}
	if req.Quantity < 0 {
		fieldErrs["quantity"] = "must not be negative"
	}
	if len(fieldErrs) > 0 {
		writeErr(w, http.StatusBadRequest, "Bad Request", "Validation failed", fieldErrs)
		return req, false
	}
	return req, true
}

// errorBody is the wire shape every API failure uses.
type errorBody struct {
	Timestamp time.Time         `json:"timestamp"`
	Status    int               `json:"status"`
	Error     string            `json:"error"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}

func writeErr(w http.ResponseWriter, status int, kind, message string, fieldErrs map[string]string) {
	writeJSON(w, status, errorBody{
		Timestamp: time.Now().UTC(),
		Status:    status,
		Error:     kind,
		Message:   message,
		Errors:    fieldErrs,
	})
}
