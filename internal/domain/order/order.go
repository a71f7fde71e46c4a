// Package order implements the order engine: authoritative pricing, stock
// reservation, the order aggregate and its status lifecycle, and role-based
// access decisions. Clients never supply prices; every monetary value on an
// order is computed here from catalog state and frozen at creation time.
package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/pratodigital/delivery-api/internal/domain/payment"
)

// ErrNotFound is returned when a requested order does not exist.
var ErrNotFound = errors.New("order not found")

// ErrStatusConflict is returned when a status update loses the race against a
// concurrent transition on the same order.
var ErrStatusConflict = errors.New("order status changed concurrently")

// InsufficientStockError indicates a product had less stock than the
// requested quantity at reservation time.
type InsufficientStockError struct {
	ProductID string
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s (requested %d)", e.ProductID, e.Requested)
}

// Order is the aggregate root. It owns its lines and their option snapshots;
// restaurant, product, and option rows are referenced by id only. Orders are
// never deleted, only transitioned to StatusCancelled.
type Order struct {
	ID           string
	Number       string
	CustomerID   string
	RestaurantID string
	// AddressSnapshot is the formatted delivery address frozen at creation.
	AddressSnapshot string
	PaymentMethod   payment.Method
	// ChangeFor is the cash amount the courier should bring change for.
	// Nil unless the payment method is cash and the customer asked.
	ChangeFor *decimal.Decimal
	CourierID *string
	Status    Status
	Notes     string
	Lines     []Line
	Subtotal  decimal.Decimal
	// DeliveryFee is the restaurant's configured fee at creation time.
	DeliveryFee decimal.Decimal
	// Total is always Subtotal + DeliveryFee, recomputed server-side.
	Total     decimal.Decimal
	CreatedAt time.Time
}

// Line is one product entry within an order. UnitPrice and Subtotal are
// snapshots taken at order time; later catalog price changes never alter them.
type Line struct {
	ID        string
	ProductID string
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
	Subtotal  decimal.Decimal
	Notes     string
	Options   []LineOption
}

// LineOption freezes one selected option item, including its price at order
// time.
type LineOption struct {
	OptionItemID string
	Name         string
	Price        decimal.Decimal
}

// Repository defines persistence for order aggregates.
//
// Create must be atomic: it reserves stock for every line (failing with
// *InsufficientStockError when any product falls short) and persists the
// aggregate in one transaction, so a failure on any line leaves no stock
// decrement behind.
//
// UpdateStatus is a compare-and-swap on the order's current status: it
// applies the new status (and courier, when given) only if the stored status
// still equals expected, returning ErrStatusConflict otherwise.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	ListByCustomer(ctx context.Context, customerID string) ([]Order, error)
	ListByRestaurant(ctx context.Context, restaurantID string, status *Status) ([]Order, error)
	UpdateStatus(ctx context.Context, orderID string, expected, next Status, courierID *string) error
}
