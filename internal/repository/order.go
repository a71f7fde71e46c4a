package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pratodigital/delivery-api/internal/domain/order"
	"github.com/pratodigital/delivery-api/internal/domain/payment"
)

const (
	reserveStockSQL = `UPDATE products SET stock = stock - $2
		WHERE id = $1 AND stock >= $2`

	insertOrderSQL = `INSERT INTO orders (id, number, customer_id, restaurant_id, address_snapshot,
			payment_method, change_for, status, notes, subtotal, delivery_fee, total, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	insertLineSQL = `INSERT INTO order_lines (id, order_id, position, product_id, name, quantity, unit_price, subtotal, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	insertLineOptionSQL = `INSERT INTO order_line_options (line_id, option_item_id, name, price)
		VALUES ($1, $2, $3, $4)`

	getOrderSQL = `SELECT id, number, customer_id, restaurant_id, address_snapshot,
			payment_method, change_for, courier_id, status, notes, subtotal, delivery_fee, total, created_at
		FROM orders WHERE id = $1`

	listByCustomerSQL = `SELECT id, number, customer_id, restaurant_id, address_snapshot,
			payment_method, change_for, courier_id, status, notes, subtotal, delivery_fee, total, created_at
		FROM orders WHERE customer_id = $1 ORDER BY created_at DESC`

	listByRestaurantSQL = `SELECT id, number, customer_id, restaurant_id, address_snapshot,
			payment_method, change_for, courier_id, status, notes, subtotal, delivery_fee, total, created_at
		FROM orders WHERE restaurant_id = $1 AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at DESC`

	getLinesSQL = `SELECT id, product_id, name, quantity, unit_price, subtotal, notes
		FROM order_lines WHERE order_id = $1 ORDER BY position`

	getLineOptionsSQL = `SELECT o.line_id, o.option_item_id, o.name, o.price
		FROM order_line_options o
		JOIN order_lines l ON l.id = o.line_id
		WHERE l.order_id = $1 ORDER BY o.line_id`

	updateStatusSQL = `UPDATE orders SET status = $3, courier_id = COALESCE($4, courier_id)
		WHERE id = $1 AND status = $2`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create reserves stock for every line and persists the aggregate in one
// transaction. The stock decrement is a conditional UPDATE guarded by
// stock >= quantity, so concurrent creations against the same product cannot
// jointly oversell; zero rows affected surfaces *InsufficientStockError and
// rolls back every prior decrement of this order.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("beginning order transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, line := range o.Lines {
		tag, err := tx.Exec(ctx, reserveStockSQL, line.ProductID, line.Quantity)
		if err != nil {
			return fmt.Errorf("reserving stock for product %q: %w", line.ProductID, err)
		}
		if tag.RowsAffected() == 0 {
			return &order.InsufficientStockError{ProductID: line.ProductID, Requested: line.Quantity}
		}
	}

	_, err = tx.Exec(ctx, insertOrderSQL,
		o.ID, o.Number, o.CustomerID, o.RestaurantID, o.AddressSnapshot,
		string(o.PaymentMethod), o.ChangeFor, string(o.Status), o.Notes,
		o.Subtotal, o.DeliveryFee, o.Total, o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting order %q: %w", o.ID, err)
	}

	for i, line := range o.Lines {
		_, err = tx.Exec(ctx, insertLineSQL,
			line.ID, o.ID, i, line.ProductID, line.Name, line.Quantity,
			line.UnitPrice, line.Subtotal, line.Notes,
		)
		if err != nil {
			return fmt.Errorf("inserting line for product %q: %w", line.ProductID, err)
		}
		for _, opt := range line.Options {
			_, err = tx.Exec(ctx, insertLineOptionSQL,
				line.ID, opt.OptionItemID, opt.Name, opt.Price,
			)
			if err != nil {
				return fmt.Errorf("inserting option %q: %w", opt.OptionItemID, err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing order %q: %w", o.ID, err)
	}
	return nil
}

// GetByID returns an order with its lines and option snapshots loaded.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	if err := r.loadLines(ctx, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// ListByCustomer returns a customer's orders newest first, headers only.
func (r *OrderRepository) ListByCustomer(ctx context.Context, customerID string) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listByCustomerSQL, customerID)
	if err != nil {
		return nil, fmt.Errorf("listing orders for customer %q: %w", customerID, err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// ListByRestaurant returns a restaurant's orders, optionally filtered by
// status, headers only.
func (r *OrderRepository) ListByRestaurant(ctx context.Context, restaurantID string, status *order.Status) ([]order.Order, error) {
	var st *string
	if status != nil {
		s := string(*status)
		st = &s
	}
	rows, err := r.pool.Query(ctx, listByRestaurantSQL, restaurantID, st)
	if err != nil {
		return nil, fmt.Errorf("listing orders for restaurant %q: %w", restaurantID, err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// UpdateStatus applies next only when the stored status still equals
// expected. A lost race returns order.ErrStatusConflict.
func (r *OrderRepository) UpdateStatus(ctx context.Context, orderID string, expected, next order.Status, courierID *string) error {
	tag, err := r.pool.Exec(ctx, updateStatusSQL, orderID, string(expected), string(next), courierID)
	if err != nil {
		return fmt.Errorf("updating status of order %q: %w", orderID, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrStatusConflict
	}
	return nil
}

// loadLines populates o.Lines and each line's option snapshots.
func (r *OrderRepository) loadLines(ctx context.Context, o *order.Order) error {
	rows, err := r.pool.Query(ctx, getLinesSQL, o.ID)
	if err != nil {
		return fmt.Errorf("getting lines of order %q: %w", o.ID, err)
	}
	lines, err := pgx.CollectRows(rows, scanLine)
	if err != nil {
		return fmt.Errorf("getting lines of order %q: %w", o.ID, err)
	}

	rows, err = r.pool.Query(ctx, getLineOptionsSQL, o.ID)
	if err != nil {
		return fmt.Errorf("getting line options of order %q: %w", o.ID, err)
	}

	type lineOptionRow struct {
		lineID string
		opt    order.LineOption
	}
	opts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (lineOptionRow, error) {
		var lo lineOptionRow
		err := row.Scan(&lo.lineID, &lo.opt.OptionItemID, &lo.opt.Name, &lo.opt.Price)
		return lo, err
	})
	if err != nil {
		return fmt.Errorf("getting line options of order %q: %w", o.ID, err)
	}

	byLine := make(map[string]int, len(lines))
	for i := range lines {
		byLine[lines[i].ID] = i
	}
	for _, lo := range opts {
		if li, ok := byLine[lo.lineID]; ok {
			lines[li].Options = append(lines[li].Options, lo.opt)
		}
	}

	o.Lines = lines
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o      order.Order
		method string
		status string
	)
	err := row.Scan(
		&o.ID, &o.Number, &o.CustomerID, &o.RestaurantID, &o.AddressSnapshot,
		&method, &o.ChangeFor, &o.CourierID, &status, &o.Notes,
		&o.Subtotal, &o.DeliveryFee, &o.Total, &o.CreatedAt,
	)
	o.PaymentMethod = payment.Method(method)
	o.Status = order.Status(status)
	return o, err
}

func scanLine(row pgx.CollectableRow) (order.Line, error) {
	var l order.Line
	err := row.Scan(&l.ID, &l.ProductID, &l.Name, &l.Quantity, &l.UnitPrice, &l.Subtotal, &l.Notes)
	return l, err
}
