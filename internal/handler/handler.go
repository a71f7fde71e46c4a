// Package handler is the thin HTTP boundary over the order engine. It
// decodes requests, resolves the acting identity from gateway-set headers,
// delegates to the order service, and maps domain errors to HTTP statuses.
// No business rule lives here.
package handler

import (
	"net/http"

	"github.com/pratodigital/delivery-api/internal/domain/account"
	"github.com/pratodigital/delivery-api/internal/domain/order"
)

// Handler exposes the order engine over HTTP.
type Handler struct {
	orders *order.Service
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(orders *order.Service) *Handler {
	return &Handler{orders: orders}
}

// Register attaches all routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/orders", h.CreateOrder)
	mux.HandleFunc("POST /api/orders/quote", h.QuoteOrder)
	mux.HandleFunc("GET /api/orders/{id}", h.GetOrder)
	mux.HandleFunc("PATCH /api/orders/{id}/status", h.UpdateStatus)
	mux.HandleFunc("POST /api/orders/{id}/cancel", h.CancelOrder)
	mux.HandleFunc("GET /api/customers/{id}/orders", h.ListCustomerOrders)
	mux.HandleFunc("GET /api/restaurants/{id}/orders", h.ListRestaurantOrders)
}

// actorFrom resolves the acting identity from headers set by the upstream
// authentication gateway. The engine never sees credentials, only the
// resolved account id and role.
func actorFrom(r *http.Request) (account.Actor, bool) {
	id := r.Header.Get("X-Actor-Id")
	role := account.Role(r.Header.Get("X-Actor-Role"))
	if id == "" {
		return account.Actor{}, false
	}
	switch role {
	case account.RoleCustomer, account.RoleRestaurant, account.RoleCourier, account.RoleAdmin:
	default:
		return account.Actor{}, false
	}
	return account.Actor{
		AccountID:    id,
		Role:         role,
		RestaurantID: r.Header.Get("X-Actor-Restaurant"),
	}, true
}
