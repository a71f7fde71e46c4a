package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pratodigital/delivery-api/internal/domain/account"
)

const (
	getAccountSQL = `SELECT id, role, enabled, COALESCE(restaurant_id, '')
		FROM accounts WHERE id = $1`

	getCustomerByAccountSQL = `SELECT id, account_id, name, phone
		FROM customers WHERE account_id = $1`

	getCustomerSQL = `SELECT id, account_id, name, phone
		FROM customers WHERE id = $1`

	getAddressSQL = `SELECT id, account_id, street, number, district, city, state, postal_code
		FROM addresses WHERE id = $1 AND deleted_at IS NULL`
)

var _ account.Repository = (*AccountRepository)(nil)

// AccountRepository implements account.Repository backed by PostgreSQL.
type AccountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository returns an AccountRepository that uses the given pool.
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

// GetAccount returns an account by id.
func (r *AccountRepository) GetAccount(ctx context.Context, id string) (*account.Account, error) {
	rows, err := r.pool.Query(ctx, getAccountSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting account %q: %w", id, err)
	}

	acct, err := pgx.CollectExactlyOneRow(rows, scanAccount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &account.AccountNotFoundError{AccountID: id}
		}
		return nil, fmt.Errorf("getting account %q: %w", id, err)
	}
	return &acct, nil
}

// GetCustomerByAccount returns the customer profile owned by an account.
func (r *AccountRepository) GetCustomerByAccount(ctx context.Context, accountID string) (*account.Customer, error) {
	rows, err := r.pool.Query(ctx, getCustomerByAccountSQL, accountID)
	if err != nil {
		return nil, fmt.Errorf("getting customer for account %q: %w", accountID, err)
	}

	cust, err := pgx.CollectExactlyOneRow(rows, scanCustomer)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &account.CustomerNotFoundError{AccountID: accountID}
		}
		return nil, fmt.Errorf("getting customer for account %q: %w", accountID, err)
	}
	return &cust, nil
}

// GetCustomer returns a customer profile by id.
func (r *AccountRepository) GetCustomer(ctx context.Context, id string) (*account.Customer, error) {
	rows, err := r.pool.Query(ctx, getCustomerSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting customer %q: %w", id, err)
	}

	cust, err := pgx.CollectExactlyOneRow(rows, scanCustomer)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &account.CustomerNotFoundError{AccountID: id}
		}
		return nil, fmt.Errorf("getting customer %q: %w", id, err)
	}
	return &cust, nil
}

// GetAddress returns a non-deleted address by id.
func (r *AccountRepository) GetAddress(ctx context.Context, id string) (*account.Address, error) {
	rows, err := r.pool.Query(ctx, getAddressSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting address %q: %w", id, err)
	}

	addr, err := pgx.CollectExactlyOneRow(rows, scanAddress)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &account.AddressNotFoundError{AddressID: id}
		}
		return nil, fmt.Errorf("getting address %q: %w", id, err)
	}
	return &addr, nil
}

func scanAccount(row pgx.CollectableRow) (account.Account, error) {
	var (
		acct account.Account
		role string
	)
	err := row.Scan(&acct.ID, &role, &acct.Enabled, &acct.RestaurantID)
	acct.Role = account.Role(role)
	return acct, err
}

func scanCustomer(row pgx.CollectableRow) (account.Customer, error) {
	var cust account.Customer
	err := row.Scan(&cust.ID, &cust.AccountID, &cust.Name, &cust.Phone)
	return cust, err
}

func scanAddress(row pgx.CollectableRow) (account.Address, error) {
	var addr account.Address
	err := row.Scan(&addr.ID, &addr.AccountID, &addr.Street, &addr.Number,
		&addr.District, &addr.City, &addr.State, &addr.PostalCode)
	return addr, err
}
