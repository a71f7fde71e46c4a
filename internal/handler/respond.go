package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/pratodigital/delivery-api/internal/domain/account"
	"github.com/pratodigital/delivery-api/internal/domain/catalog"
	"github.com/pratodigital/delivery-api/internal/domain/order"
)

// writeJSON encodes a response body with jx and writes it with the given
// status.
func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	var e jx.Encoder
	encode(&e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// writeError writes a {code, message} error body.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("code")
		e.Int(status)
		e.FieldStart("message")
		e.Str(message)
		e.ObjEnd()
	})
}

// writeDomainError maps a domain error to its HTTP status. Not-found errors
// become 404, concurrency conflicts 409, business rule violations 422, and
// anything unrecognized 500 without leaking internals.
func writeDomainError(w http.ResponseWriter, err error) {
	var (
		restNF  *catalog.RestaurantNotFoundError
		prodNF  *catalog.ProductNotFoundError
		acctNF  *account.AccountNotFoundError
		custNF  *account.CustomerNotFoundError
		addrNF  *account.AddressNotFoundError
		stock   *order.InsufficientStockError
		qty     *order.InvalidQuantityError
		opt     *order.InvalidOptionError
		optSel  *order.OptionSelectionError
		restUn  *order.RestaurantUnavailableError
		addrOwn *order.AddressOwnershipError
		prodUn  *order.ProductUnavailableError
		prodMis *order.ProductRestaurantMismatchError
		payDec  *order.PaymentDeclinedError
		badTr   *order.InvalidTransitionError
		noCnl   *order.CancelNotAllowedError
		courier *order.NotACourierError
	)

	switch {
	case errors.Is(err, order.ErrNotFound),
		errors.As(err, &restNF),
		errors.As(err, &prodNF),
		errors.As(err, &acctNF),
		errors.As(err, &custNF),
		errors.As(err, &addrNF):
		writeError(w, http.StatusNotFound, err.Error())

	case errors.Is(err, order.ErrAccessDenied):
		writeError(w, http.StatusForbidden, err.Error())

	case errors.Is(err, order.ErrStatusConflict):
		writeError(w, http.StatusConflict, err.Error())

	case errors.Is(err, order.ErrEmptyLines):
		writeError(w, http.StatusBadRequest, err.Error())

	case errors.Is(err, order.ErrCustomerDisabled),
		errors.Is(err, order.ErrCourierRequired),
		errors.As(err, &stock),
		errors.As(err, &qty),
		errors.As(err, &opt),
		errors.As(err, &optSel),
		errors.As(err, &restUn),
		errors.As(err, &addrOwn),
		errors.As(err, &prodUn),
		errors.As(err, &prodMis),
		errors.As(err, &payDec),
		errors.As(err, &badTr),
		errors.As(err, &noCnl),
		errors.As(err, &courier):
		writeError(w, http.StatusUnprocessableEntity, err.Error())

	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// encodeOrder writes the full order view: header, lines, and option
// snapshots.
func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(o.ID)
	e.FieldStart("number")
	e.Str(o.Number)
	e.FieldStart("customerId")
	e.Str(o.CustomerID)
	e.FieldStart("restaurantId")
	e.Str(o.RestaurantID)
	e.FieldStart("deliveryAddress")
	e.Str(o.AddressSnapshot)
	e.FieldStart("paymentMethod")
	e.Str(string(o.PaymentMethod))
	if o.ChangeFor != nil {
		e.FieldStart("changeFor")
		e.Str(o.ChangeFor.StringFixed(2))
	}
	if o.CourierID != nil {
		e.FieldStart("courierId")
		e.Str(*o.CourierID)
	}
	e.FieldStart("status")
	e.Str(string(o.Status))
	if o.Notes != "" {
		e.FieldStart("notes")
		e.Str(o.Notes)
	}
	e.FieldStart("lines")
	e.ArrStart()
	for i := range o.Lines {
		encodeLine(e, &o.Lines[i])
	}
	e.ArrEnd()
	e.FieldStart("subtotal")
	e.Str(o.Subtotal.StringFixed(2))
	e.FieldStart("deliveryFee")
	e.Str(o.DeliveryFee.StringFixed(2))
	e.FieldStart("total")
	e.Str(o.Total.StringFixed(2))
	e.FieldStart("createdAt")
	e.Str(o.CreatedAt.Format("2006-01-02T15:04:05Z07:00"))
	e.ObjEnd()
}

func encodeLine(e *jx.Encoder, l *order.Line) {
	e.ObjStart()
	e.FieldStart("productId")
	e.Str(l.ProductID)
	e.FieldStart("name")
	e.Str(l.Name)
	e.FieldStart("quantity")
	e.Int(l.Quantity)
	e.FieldStart("unitPrice")
	e.Str(l.UnitPrice.StringFixed(2))
	e.FieldStart("subtotal")
	e.Str(l.Subtotal.StringFixed(2))
	if l.Notes != "" {
		e.FieldStart("notes")
		e.Str(l.Notes)
	}
	if len(l.Options) > 0 {
		e.FieldStart("options")
		e.ArrStart()
		for _, opt := range l.Options {
			e.ObjStart()
			e.FieldStart("optionItemId")
			e.Str(opt.OptionItemID)
			e.FieldStart("name")
			e.Str(opt.Name)
			e.FieldStart("price")
			e.Str(opt.Price.StringFixed(2))
			e.ObjEnd()
		}
		e.ArrEnd()
	}
	e.ObjEnd()
}

// encodeOrderList writes order headers only; line detail is available via
// the single-order endpoint.
func encodeOrderList(e *jx.Encoder, list []order.Order) {
	e.ArrStart()
	for i := range list {
		o := &list[i]
		e.ObjStart()
		e.FieldStart("id")
		e.Str(o.ID)
		e.FieldStart("number")
		e.Str(o.Number)
		e.FieldStart("restaurantId")
		e.Str(o.RestaurantID)
		e.FieldStart("status")
		e.Str(string(o.Status))
		e.FieldStart("total")
		e.Str(o.Total.StringFixed(2))
		e.FieldStart("createdAt")
		e.Str(o.CreatedAt.Format("2006-01-02T15:04:05Z07:00"))
		e.ObjEnd()
	}
	e.ArrEnd()
}
