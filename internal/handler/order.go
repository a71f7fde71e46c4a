package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/pratodigital/delivery-api/internal/domain/account"
	"github.com/pratodigital/delivery-api/internal/domain/order"
	"github.com/pratodigital/delivery-api/internal/domain/payment"
)

// createOrderRequest is the wire shape of an order creation request. Note
// the absence of any price field: pricing is computed server-side.
type createOrderRequest struct {
	RestaurantID  string           `json:"restaurantId"`
	AddressID     string           `json:"addressId"`
	PaymentMethod string           `json:"paymentMethod"`
	ChangeFor     *decimal.Decimal `json:"changeFor,omitempty"`
	Notes         string           `json:"notes,omitempty"`
	Lines         []lineRequest    `json:"lines"`
}

type lineRequest struct {
	ProductID     string   `json:"productId"`
	Quantity      int      `json:"quantity"`
	OptionItemIDs []string `json:"optionItemIds,omitempty"`
	Notes         string   `json:"notes,omitempty"`
}

type quoteRequest struct {
	RestaurantID string        `json:"restaurantId"`
	Lines        []lineRequest `json:"lines"`
}

type updateStatusRequest struct {
	Status    string `json:"status"`
	CourierID string `json:"courierId,omitempty"`
}

// CreateOrder handles POST /api/orders.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, http.StatusForbidden, "actor identity not resolved")
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	method := payment.Method(req.PaymentMethod)
	if !method.Valid() {
		writeError(w, http.StatusUnprocessableEntity, "unknown payment method")
		return
	}

	o, err := h.orders.CreateOrder(r.Context(), order.CreateOrderRequest{
		Actor:         actor,
		RestaurantID:  req.RestaurantID,
		AddressID:     req.AddressID,
		PaymentMethod: method,
		ChangeFor:     req.ChangeFor,
		Notes:         req.Notes,
		Lines:         toLineRequests(req.Lines),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeOrder(e, o) })
}

// QuoteOrder handles POST /api/orders/quote. Pure read: no stock, payment,
// or persistence side effects.
func (h *Handler) QuoteOrder(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	q, err := h.orders.QuoteOrder(r.Context(), req.RestaurantID, toLineRequests(req.Lines))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("subtotal")
		e.Str(q.Subtotal.StringFixed(2))
		e.FieldStart("deliveryFee")
		e.Str(q.DeliveryFee.StringFixed(2))
		e.FieldStart("total")
		e.Str(q.Total.StringFixed(2))
		e.ObjEnd()
	})
}

// GetOrder handles GET /api/orders/{id}.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, http.StatusForbidden, "actor identity not resolved")
		return
	}
	id := r.PathValue("id")

	if !h.allowed(r, actor, id) {
		writeError(w, http.StatusForbidden, "access denied")
		return
	}

	o, err := h.orders.GetOrder(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeOrder(e, o) })
}

// UpdateStatus handles PATCH /api/orders/{id}/status.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, http.StatusForbidden, "actor identity not resolved")
		return
	}
	id := r.PathValue("id")

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	next, err := order.ParseStatus(req.Status)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if !h.allowed(r, actor, id) {
		writeError(w, http.StatusForbidden, "access denied")
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), id, next, req.CourierID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeOrder(e, o) })
}

// CancelOrder handles POST /api/orders/{id}/cancel.
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, http.StatusForbidden, "actor identity not resolved")
		return
	}
	id := r.PathValue("id")

	if !h.allowed(r, actor, id) {
		writeError(w, http.StatusForbidden, "access denied")
		return
	}

	if err := h.orders.CancelOrder(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListCustomerOrders handles GET /api/customers/{id}/orders.
func (h *Handler) ListCustomerOrders(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, http.StatusForbidden, "actor identity not resolved")
		return
	}
	customerID := r.PathValue("id")

	if actor.Role != account.RoleAdmin && !h.orders.OwnsCustomer(r.Context(), actor, customerID) {
		writeError(w, http.StatusForbidden, "access denied")
		return
	}

	list, err := h.orders.ListOrdersByCustomer(r.Context(), customerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeOrderList(e, list) })
}

// ListRestaurantOrders handles GET /api/restaurants/{id}/orders with an
// optional ?status= filter.
func (h *Handler) ListRestaurantOrders(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, http.StatusForbidden, "actor identity not resolved")
		return
	}
	restaurantID := r.PathValue("id")

	if actor.Role != account.RoleAdmin && actor.RestaurantID != restaurantID {
		writeError(w, http.StatusForbidden, "access denied")
		return
	}

	var status *order.Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		st, err := order.ParseStatus(raw)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		status = &st
	}

	list, err := h.orders.ListOrdersByRestaurant(r.Context(), restaurantID, status)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeOrderList(e, list) })
}

// allowed applies the access guard with the boundary-layer admin bypass.
func (h *Handler) allowed(r *http.Request, actor account.Actor, orderID string) bool {
	if actor.Role == account.RoleAdmin {
		return true
	}
	return h.orders.CanAccess(r.Context(), actor, orderID)
}

func toLineRequests(in []lineRequest) []order.LineRequest {
	out := make([]order.LineRequest, len(in))
	for i, l := range in {
		out[i] = order.LineRequest{
			ProductID:     l.ProductID,
			Quantity:      l.Quantity,
			OptionItemIDs: l.OptionItemIDs,
			Notes:         l.Notes,
		}
	}
	return out
}
