package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pratodigital/delivery-api/internal/domain/account"
	"github.com/pratodigital/delivery-api/internal/domain/catalog"
	"github.com/pratodigital/delivery-api/internal/domain/payment"
)

// Sentinel errors for order operations.
var (
	ErrEmptyLines       = errors.New("order must have at least one line")
	ErrCustomerDisabled = errors.New("inactive customer cannot order")
	ErrCourierRequired  = errors.New("courier id required for delivery transition")
	ErrAccessDenied     = errors.New("access denied")
)

// RestaurantUnavailableError indicates the restaurant exists but is closed
// for new orders.
type RestaurantUnavailableError struct {
	RestaurantID string
}

func (e *RestaurantUnavailableError) Error() string {
	return fmt.Sprintf("restaurant %s is not accepting orders", e.RestaurantID)
}

// AddressOwnershipError indicates the delivery address belongs to another
// account.
type AddressOwnershipError struct {
	AddressID string
}

func (e *AddressOwnershipError) Error() string {
	return fmt.Sprintf("address %s belongs to another account", e.AddressID)
}

// ProductUnavailableError indicates a product exists but is not orderable.
type ProductUnavailableError struct {
	ProductID string
}

func (e *ProductUnavailableError) Error() string {
	return fmt.Sprintf("product %s is not available", e.ProductID)
}

// ProductRestaurantMismatchError indicates a product from another restaurant
// was injected into the order.
type ProductRestaurantMismatchError struct {
	ProductID    string
	RestaurantID string
}

func (e *ProductRestaurantMismatchError) Error() string {
	return fmt.Sprintf("product %s does not belong to restaurant %s", e.ProductID, e.RestaurantID)
}

// PaymentDeclinedError indicates the payment gateway refused the charge.
type PaymentDeclinedError struct {
	Method payment.Method
	Amount decimal.Decimal
}

func (e *PaymentDeclinedError) Error() string {
	return fmt.Sprintf("payment of %s via %s was not authorized", e.Amount.StringFixed(2), e.Method)
}

// NotACourierError indicates the account named in a delivery transition does
// not hold the courier role.
type NotACourierError struct {
	AccountID string
}

func (e *NotACourierError) Error() string {
	return fmt.Sprintf("account %s is not a courier", e.AccountID)
}

// LineRequest is one requested order line. Prices are never part of the
// request; the engine computes them from catalog state.
type LineRequest struct {
	ProductID     string
	Quantity      int
	OptionItemIDs []string
	Notes         string
}

// CreateOrderRequest holds the input for creating an order.
type CreateOrderRequest struct {
	Actor         account.Actor
	RestaurantID  string
	AddressID     string
	PaymentMethod payment.Method
	ChangeFor     *decimal.Decimal
	Notes         string
	Lines         []LineRequest
}

// Quote is the result of pricing an order without creating it.
type Quote struct {
	Subtotal    decimal.Decimal
	DeliveryFee decimal.Decimal
	Total       decimal.Decimal
}

// Service encapsulates order creation, quoting, lifecycle transitions, and
// access decisions.
type Service struct {
	catalog  catalog.Repository
	accounts account.Repository
	orders   Repository
	gateway  payment.Gateway
	events   Publisher

	now   func() time.Time
	newID func() string
}

// NewService creates an order Service with the required collaborators.
// A nil events publisher disables event emission.
func NewService(
	cat catalog.Repository,
	accounts account.Repository,
	orders Repository,
	gateway payment.Gateway,
	events Publisher,
) *Service {
	if events == nil {
		events = NopPublisher{}
	}
	return &Service{
		catalog:  cat,
		accounts: accounts,
		orders:   orders,
		gateway:  gateway,
		events:   events,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// CreateOrder validates the request against live catalog and account state,
// computes authoritative pricing with an advisory stock check, authorizes
// payment (exactly once, and only after stock is known sufficient), and
// persists the aggregate atomically with stock reservation. Any validation
// failure aborts the whole operation with no partial writes.
func (s *Service) CreateOrder(ctx context.Context, req CreateOrderRequest) (o *Order, err error) {
	defer func() {
		if err != nil {
			s.events.Publish(ctx, Event{
				Type:         EventOrderFailed,
				RestaurantID: req.RestaurantID,
				Reason:       err.Error(),
				At:           s.now().UTC(),
			})
		}
	}()

	if len(req.Lines) == 0 {
		return nil, ErrEmptyLines
	}

	acct, err := s.accounts.GetAccount(ctx, req.Actor.AccountID)
	if err != nil {
		return nil, err
	}
	if !acct.Enabled {
		return nil, ErrCustomerDisabled
	}
	cust, err := s.accounts.GetCustomerByAccount(ctx, acct.ID)
	if err != nil {
		return nil, err
	}

	rest, err := s.catalog.GetRestaurant(ctx, req.RestaurantID)
	if err != nil {
		return nil, err
	}
	if !rest.Active {
		return nil, &RestaurantUnavailableError{RestaurantID: rest.ID}
	}

	addr, err := s.accounts.GetAddress(ctx, req.AddressID)
	if err != nil {
		return nil, err
	}
	if addr.AccountID != acct.ID {
		return nil, &AddressOwnershipError{AddressID: addr.ID}
	}

	lines, subtotal, err := s.buildLines(ctx, rest, req.Lines, true)
	if err != nil {
		return nil, err
	}

	total := subtotal.Add(rest.DeliveryFee)

	// Single payment attempt per order; the gateway is not assumed idempotent.
	authorized, err := s.gateway.Authorize(ctx, req.PaymentMethod, total)
	if err != nil {
		return nil, errors.Wrap(err, "authorize payment")
	}
	if !authorized {
		return nil, &PaymentDeclinedError{Method: req.PaymentMethod, Amount: total}
	}

	o = &Order{
		ID:              s.newID(),
		Number:          s.orderNumber(),
		CustomerID:      cust.ID,
		RestaurantID:    rest.ID,
		AddressSnapshot: addr.Format(),
		PaymentMethod:   req.PaymentMethod,
		ChangeFor:       req.ChangeFor,
		Status:          StatusPending,
		Notes:           req.Notes,
		Lines:           lines,
		Subtotal:        subtotal,
		DeliveryFee:     rest.DeliveryFee,
		Total:           total,
		CreatedAt:       s.now().UTC(),
	}
	if err := s.orders.Create(ctx, o); err != nil {
		var stockErr *InsufficientStockError
		if errors.As(err, &stockErr) {
			return nil, stockErr
		}
		return nil, errors.Wrap(err, "create order")
	}

	s.events.Publish(ctx, Event{
		Type:         EventOrderCreated,
		OrderID:      o.ID,
		OrderNumber:  o.Number,
		RestaurantID: o.RestaurantID,
		Status:       o.Status,
		Total:        o.Total,
		At:           o.CreatedAt,
	})

	return o, nil
}

// QuoteOrder prices an order without touching stock, payment, or storage.
// It runs the exact same pricing algorithm as CreateOrder.
func (s *Service) QuoteOrder(ctx context.Context, restaurantID string, lines []LineRequest) (*Quote, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyLines
	}

	rest, err := s.catalog.GetRestaurant(ctx, restaurantID)
	if err != nil {
		return nil, err
	}

	_, subtotal, err := s.buildLines(ctx, rest, lines, false)
	if err != nil {
		return nil, err
	}

	return &Quote{
		Subtotal:    subtotal,
		DeliveryFee: rest.DeliveryFee,
		Total:       subtotal.Add(rest.DeliveryFee),
	}, nil
}

// buildLines resolves and prices every requested line. Shared by CreateOrder
// and QuoteOrder so the two call sites cannot diverge. With checkStock set it
// also rejects any line whose quantity exceeds the product's current stock, so
// unfulfillable orders fail before the payment gate runs; the conditional
// reservation UPDATE at persist time remains the authoritative guard under
// concurrency.
func (s *Service) buildLines(ctx context.Context, rest *catalog.Restaurant, reqs []LineRequest, checkStock bool) ([]Line, decimal.Decimal, error) {
	lines := make([]Line, 0, len(reqs))
	subtotal := decimal.Zero

	for _, lr := range reqs {
		p, err := s.catalog.GetProduct(ctx, lr.ProductID)
		if err != nil {
			return nil, decimal.Zero, err
		}
		if p.RestaurantID != rest.ID {
			return nil, decimal.Zero, &ProductRestaurantMismatchError{ProductID: p.ID, RestaurantID: rest.ID}
		}
		if !p.Available {
			return nil, decimal.Zero, &ProductUnavailableError{ProductID: p.ID}
		}
		if checkStock && p.Stock < lr.Quantity {
			return nil, decimal.Zero, &InsufficientStockError{ProductID: p.ID, Requested: lr.Quantity}
		}

		priced, err := PriceLine(p, lr.Quantity, lr.OptionItemIDs)
		if err != nil {
			return nil, decimal.Zero, err
		}

		opts := make([]LineOption, len(priced.Options))
		for i, po := range priced.Options {
			opts[i] = LineOption{OptionItemID: po.ItemID, Name: po.Name, Price: po.Price}
		}

		lines = append(lines, Line{
			ID:        s.newID(),
			ProductID: p.ID,
			Name:      p.Name,
			Quantity:  lr.Quantity,
			UnitPrice: priced.UnitPrice,
			Subtotal:  priced.Subtotal,
			Notes:     lr.Notes,
			Options:   opts,
		})
		subtotal = subtotal.Add(priced.Subtotal)
	}

	return lines, subtotal, nil
}

// GetOrder returns an order by id.
func (s *Service) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	return s.orders.GetByID(ctx, orderID)
}

// ListOrdersByCustomer returns all orders placed by a customer, newest first.
func (s *Service) ListOrdersByCustomer(ctx context.Context, customerID string) ([]Order, error) {
	return s.orders.ListByCustomer(ctx, customerID)
}

// ListOrdersByRestaurant returns orders placed against a restaurant,
// optionally filtered by status.
func (s *Service) ListOrdersByRestaurant(ctx context.Context, restaurantID string, status *Status) ([]Order, error) {
	return s.orders.ListByRestaurant(ctx, restaurantID, status)
}

// UpdateStatus transitions an order to next, enforcing the transition
// whitelist. Transitioning into StatusOutForDelivery additionally requires a
// courier-role account, which is attached to the order as part of the same
// atomic update. Concurrent transitions on the same order are serialized by a
// compare-and-swap on the current status.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, next Status, courierID string) (*Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(o.Status, next) {
		return nil, &InvalidTransitionError{From: o.Status, To: next}
	}

	var courier *string
	if next == StatusOutForDelivery {
		if courierID == "" {
			return nil, ErrCourierRequired
		}
		acct, err := s.accounts.GetAccount(ctx, courierID)
		if err != nil {
			return nil, err
		}
		if acct.Role != account.RoleCourier {
			return nil, &NotACourierError{AccountID: courierID}
		}
		courier = &courierID
	}

	if err := s.orders.UpdateStatus(ctx, orderID, o.Status, next, courier); err != nil {
		return nil, err
	}

	o.Status = next
	if courier != nil {
		o.CourierID = courier
	}

	s.events.Publish(ctx, Event{
		Type:         EventStatusChanged,
		OrderID:      o.ID,
		OrderNumber:  o.Number,
		RestaurantID: o.RestaurantID,
		Status:       next,
		Total:        o.Total,
		At:           s.now().UTC(),
	})

	return o, nil
}

// CancelOrder cancels an order. The cancel window is narrower than the
// transition table: only StatusPending and StatusConfirmed orders qualify.
func (s *Service) CancelOrder(ctx context.Context, orderID string) error {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	if !CanCancel(o.Status) {
		return &CancelNotAllowedError{Status: o.Status}
	}

	if err := s.orders.UpdateStatus(ctx, orderID, o.Status, StatusCancelled, nil); err != nil {
		return err
	}

	s.events.Publish(ctx, Event{
		Type:         EventStatusChanged,
		OrderID:      o.ID,
		OrderNumber:  o.Number,
		RestaurantID: o.RestaurantID,
		Status:       StatusCancelled,
		Total:        o.Total,
		At:           s.now().UTC(),
	})

	return nil
}

// CanAccess reports whether the actor may read or mutate the given order.
// Any failure to resolve the order or the actor's profile yields false;
// the predicate never surfaces an error. Admin bypass belongs to the
// boundary layer.
func (s *Service) CanAccess(ctx context.Context, actor account.Actor, orderID string) bool {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return false
	}

	customerID := ""
	if actor.Role == account.RoleCustomer {
		cust, err := s.accounts.GetCustomerByAccount(ctx, actor.AccountID)
		if err != nil {
			return false
		}
		customerID = cust.ID
	}

	return canAccess(actor, customerID, o)
}

// OwnsCustomer reports whether the actor's account owns the given customer
// profile. Fail-closed like CanAccess.
func (s *Service) OwnsCustomer(ctx context.Context, actor account.Actor, customerID string) bool {
	cust, err := s.accounts.GetCustomer(ctx, customerID)
	if err != nil {
		return false
	}
	return cust.AccountID == actor.AccountID
}

// orderNumber generates a human-readable unique order number.
func (s *Service) orderNumber() string {
	return fmt.Sprintf("PD-%s-%s",
		s.now().UTC().Format("20060102"),
		strings.ToUpper(s.newID()[:8]))
}
