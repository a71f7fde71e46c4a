package order

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pratodigital/delivery-api/internal/domain/account"
	"github.com/pratodigital/delivery-api/internal/domain/catalog"
	"github.com/pratodigital/delivery-api/internal/domain/payment"
)

type mockCatalogRepo struct {
	restaurants map[string]*catalog.Restaurant
	products    map[string]*catalog.Product
}

func (m *mockCatalogRepo) GetRestaurant(_ context.Context, id string) (*catalog.Restaurant, error) {
	if r, ok := m.restaurants[id]; ok {
		return r, nil
	}
	return nil, &catalog.RestaurantNotFoundError{RestaurantID: id}
}

func (m *mockCatalogRepo) GetProduct(_ context.Context, id string) (*catalog.Product, error) {
	if p, ok := m.products[id]; ok {
		return p, nil
	}
	return nil, &catalog.ProductNotFoundError{ProductID: id}
}

type mockAccountRepo struct {
	accounts  map[string]*account.Account
	customers map[string]*account.Customer // keyed by account id
	addresses map[string]*account.Address
}

func (m *mockAccountRepo) GetAccount(_ context.Context, id string) (*account.Account, error) {
	if a, ok := m.accounts[id]; ok {
		return a, nil
	}
	return nil, &account.AccountNotFoundError{AccountID: id}
}

func (m *mockAccountRepo) GetCustomerByAccount(_ context.Context, accountID string) (*account.Customer, error) {
	if c, ok := m.customers[accountID]; ok {
		return c, nil
	}
	return nil, &account.CustomerNotFoundError{AccountID: accountID}
}

func (m *mockAccountRepo) GetCustomer(_ context.Context, id string) (*account.Customer, error) {
	for _, c := range m.customers {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, &account.CustomerNotFoundError{AccountID: id}
}

func (m *mockAccountRepo) GetAddress(_ context.Context, id string) (*account.Address, error) {
	if a, ok := m.addresses[id]; ok {
		return a, nil
	}
	return nil, &account.AddressNotFoundError{AddressID: id}
}

type statusUpdate struct {
	orderID   string
	expected  Status
	next      Status
	courierID *string
}

type mockOrderRepo struct {
	created   *Order
	createErr error
	orders    map[string]*Order
	updateErr error
	updates   []statusUpdate
}

func (m *mockOrderRepo) Create(_ context.Context, o *Order) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = o
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id string) (*Order, error) {
	if o, ok := m.orders[id]; ok {
		cp := *o
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (m *mockOrderRepo) ListByCustomer(_ context.Context, _ string) ([]Order, error) {
	return nil, nil
}

func (m *mockOrderRepo) ListByRestaurant(_ context.Context, _ string, _ *Status) ([]Order, error) {
	return nil, nil
}

func (m *mockOrderRepo) UpdateStatus(_ context.Context, orderID string, expected, next Status, courierID *string) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.updates = append(m.updates, statusUpdate{orderID, expected, next, courierID})
	return nil
}

type mockGateway struct {
	approve    bool
	err        error
	calls      int
	lastMethod payment.Method
	lastAmount decimal.Decimal
}

func (m *mockGateway) Authorize(_ context.Context, method payment.Method, amount decimal.Decimal) (bool, error) {
	m.calls++
	m.lastMethod = method
	m.lastAmount = amount
	return m.approve, m.err
}

type capturePublisher struct {
	events []Event
}

func (p *capturePublisher) Publish(_ context.Context, e Event) {
	p.events = append(p.events, e)
}

// fixture bundles the service with its mocks, pre-seeded with a restaurant,
// a configurable product, and a customer account with an address.
type fixture struct {
	svc      *Service
	catalog  *mockCatalogRepo
	accounts *mockAccountRepo
	orders   *mockOrderRepo
	gateway  *mockGateway
	events   *capturePublisher
}

func newFixture() *fixture {
	cat := &mockCatalogRepo{
		restaurants: map[string]*catalog.Restaurant{
			"rest-1": {
				ID:          "rest-1",
				Name:        "Cantina",
				DeliveryFee: decimal.RequireFromString("5.00"),
				Active:      true,
			},
		},
		products: map[string]*catalog.Product{
			"prod-burger": burgerProduct(),
			"prod-juice":  plainProduct(),
		},
	}
	accounts := &mockAccountRepo{
		accounts: map[string]*account.Account{
			"acct-1":       {ID: "acct-1", Role: account.RoleCustomer, Enabled: true},
			"acct-courier": {ID: "acct-courier", Role: account.RoleCourier, Enabled: true},
		},
		customers: map[string]*account.Customer{
			"acct-1": {ID: "cust-1", AccountID: "acct-1", Name: "Ana"},
		},
		addresses: map[string]*account.Address{
			"addr-1": {
				ID: "addr-1", AccountID: "acct-1",
				Street: "Rua das Flores", Number: "100",
				City: "São Paulo", State: "SP",
			},
		},
	}
	orders := &mockOrderRepo{orders: map[string]*Order{}}
	gateway := &mockGateway{approve: true}
	events := &capturePublisher{}

	svc := NewService(cat, accounts, orders, gateway, events)
	svc.now = func() time.Time { return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC) }
	var n int
	svc.newID = func() string {
		n++
		return fmt.Sprintf("fixedid%04d", n)
	}

	return &fixture{svc: svc, catalog: cat, accounts: accounts, orders: orders, gateway: gateway, events: events}
}

func customerActor() account.Actor {
	return account.Actor{AccountID: "acct-1", Role: account.RoleCustomer}
}

func validRequest() CreateOrderRequest {
	return CreateOrderRequest{
		Actor:         customerActor(),
		RestaurantID:  "rest-1",
		AddressID:     "addr-1",
		PaymentMethod: payment.MethodCard,
		Lines: []LineRequest{
			{ProductID: "prod-burger", Quantity: 2, OptionItemIDs: []string{"opt-cheddar", "opt-bacon"}},
		},
	}
}

func TestServiceCreateOrder(t *testing.T) {
	t.Run("happy path prices and persists", func(t *testing.T) {
		f := newFixture()

		o, err := f.svc.CreateOrder(context.Background(), validRequest())
		require.NoError(t, err)

		// base 10.00 + bacon 3.00, qty 2, delivery fee 5.00
		assert.Equal(t, "26.00", o.Subtotal.StringFixed(2))
		assert.Equal(t, "5.00", o.DeliveryFee.StringFixed(2))
		assert.Equal(t, "31.00", o.Total.StringFixed(2))
		assert.Equal(t, StatusPending, o.Status)
		assert.Equal(t, "cust-1", o.CustomerID)
		assert.Contains(t, o.AddressSnapshot, "Rua das Flores")
		assert.Regexp(t, `^PD-20260310-[A-Z0-9]{8}$`, o.Number)

		require.NotNil(t, f.orders.created)
		assert.Equal(t, o.ID, f.orders.created.ID)
		require.Len(t, o.Lines, 1)
		assert.Equal(t, "13.00", o.Lines[0].UnitPrice.StringFixed(2))
		require.Len(t, o.Lines[0].Options, 2)

		assert.Equal(t, 1, f.gateway.calls)
		assert.Equal(t, "31.00", f.gateway.lastAmount.StringFixed(2))

		require.Len(t, f.events.events, 1)
		assert.Equal(t, EventOrderCreated, f.events.events[0].Type)
		assert.Equal(t, o.ID, f.events.events[0].OrderID)
	})

	t.Run("empty lines rejected", func(t *testing.T) {
		f := newFixture()
		req := validRequest()
		req.Lines = nil

		_, err := f.svc.CreateOrder(context.Background(), req)
		assert.ErrorIs(t, err, ErrEmptyLines)
		assert.Zero(t, f.gateway.calls)
	})

	t.Run("disabled account rejected", func(t *testing.T) {
		f := newFixture()
		f.accounts.accounts["acct-1"].Enabled = false

		_, err := f.svc.CreateOrder(context.Background(), validRequest())
		assert.ErrorIs(t, err, ErrCustomerDisabled)
		assert.Nil(t, f.orders.created)
	})

	t.Run("unknown restaurant rejected", func(t *testing.T) {
		f := newFixture()
		req := validRequest()
		req.RestaurantID = "rest-ghost"

		_, err := f.svc.CreateOrder(context.Background(), req)
		var nf *catalog.RestaurantNotFoundError
		assert.ErrorAs(t, err, &nf)
	})

	t.Run("inactive restaurant rejected", func(t *testing.T) {
		f := newFixture()
		f.catalog.restaurants["rest-1"].Active = false

		_, err := f.svc.CreateOrder(context.Background(), validRequest())
		var unavail *RestaurantUnavailableError
		assert.ErrorAs(t, err, &unavail)
	})

	t.Run("address of another account rejected", func(t *testing.T) {
		f := newFixture()
		f.accounts.addresses["addr-1"].AccountID = "acct-other"

		_, err := f.svc.CreateOrder(context.Background(), validRequest())
		var own *AddressOwnershipError
		assert.ErrorAs(t, err, &own)
		assert.Nil(t, f.orders.created)
	})

	t.Run("product from another restaurant rejected", func(t *testing.T) {
		f := newFixture()
		f.catalog.products["prod-burger"].RestaurantID = "rest-2"

		_, err := f.svc.CreateOrder(context.Background(), validRequest())
		var mismatch *ProductRestaurantMismatchError
		assert.ErrorAs(t, err, &mismatch)
	})

	t.Run("unavailable product rejected", func(t *testing.T) {
		f := newFixture()
		f.catalog.products["prod-burger"].Available = false

		_, err := f.svc.CreateOrder(context.Background(), validRequest())
		var unavail *ProductUnavailableError
		assert.ErrorAs(t, err, &unavail)
	})

	t.Run("stock shortfall rejected before the payment gate", func(t *testing.T) {
		f := newFixture()
		f.catalog.products["prod-burger"].Stock = 1

		_, err := f.svc.CreateOrder(context.Background(), validRequest())
		var stock *InsufficientStockError
		require.ErrorAs(t, err, &stock)
		assert.Equal(t, "prod-burger", stock.ProductID)
		assert.Equal(t, 2, stock.Requested)

		assert.Zero(t, f.gateway.calls, "payment must not be authorized for an unfulfillable order")
		assert.Nil(t, f.orders.created)
	})

	t.Run("insufficient stock surfaces from repository", func(t *testing.T) {
		f := newFixture()
		f.orders.createErr = &InsufficientStockError{ProductID: "prod-burger", Requested: 2}

		_, err := f.svc.CreateOrder(context.Background(), validRequest())
		var stock *InsufficientStockError
		require.ErrorAs(t, err, &stock)
		assert.Equal(t, "prod-burger", stock.ProductID)
	})

	t.Run("declined payment aborts before persist", func(t *testing.T) {
		f := newFixture()
		f.gateway.approve = false

		_, err := f.svc.CreateOrder(context.Background(), validRequest())
		var declined *PaymentDeclinedError
		require.ErrorAs(t, err, &declined)
		assert.Equal(t, 1, f.gateway.calls)
		assert.Nil(t, f.orders.created)
	})

	t.Run("failure publishes order.failed event", func(t *testing.T) {
		f := newFixture()
		f.gateway.approve = false

		_, err := f.svc.CreateOrder(context.Background(), validRequest())
		require.Error(t, err)

		require.Len(t, f.events.events, 1)
		assert.Equal(t, EventOrderFailed, f.events.events[0].Type)
		assert.Equal(t, "rest-1", f.events.events[0].RestaurantID)
		assert.NotEmpty(t, f.events.events[0].Reason)
	})
}

func TestServiceQuoteOrder(t *testing.T) {
	t.Run("quote matches create pricing", func(t *testing.T) {
		f := newFixture()
		req := validRequest()

		q, err := f.svc.QuoteOrder(context.Background(), req.RestaurantID, req.Lines)
		require.NoError(t, err)

		o, err := f.svc.CreateOrder(context.Background(), req)
		require.NoError(t, err)

		assert.True(t, q.Subtotal.Equal(o.Subtotal))
		assert.True(t, q.DeliveryFee.Equal(o.DeliveryFee))
		assert.True(t, q.Total.Equal(o.Total))
	})

	t.Run("quote has no side effects", func(t *testing.T) {
		f := newFixture()
		req := validRequest()

		_, err := f.svc.QuoteOrder(context.Background(), req.RestaurantID, req.Lines)
		require.NoError(t, err)

		assert.Zero(t, f.gateway.calls)
		assert.Nil(t, f.orders.created)
		assert.Empty(t, f.events.events)
	})

	t.Run("quote works for an inactive restaurant", func(t *testing.T) {
		f := newFixture()
		f.catalog.restaurants["rest-1"].Active = false
		req := validRequest()

		q, err := f.svc.QuoteOrder(context.Background(), req.RestaurantID, req.Lines)
		require.NoError(t, err)
		assert.Equal(t, "31.00", q.Total.StringFixed(2))
	})

	t.Run("quote ignores stock levels", func(t *testing.T) {
		f := newFixture()
		f.catalog.products["prod-burger"].Stock = 0
		req := validRequest()

		q, err := f.svc.QuoteOrder(context.Background(), req.RestaurantID, req.Lines)
		require.NoError(t, err)
		assert.Equal(t, "31.00", q.Total.StringFixed(2))
	})

	t.Run("quote validates lines", func(t *testing.T) {
		f := newFixture()

		_, err := f.svc.QuoteOrder(context.Background(), "rest-1", nil)
		assert.ErrorIs(t, err, ErrEmptyLines)

		_, err = f.svc.QuoteOrder(context.Background(), "rest-1", []LineRequest{
			{ProductID: "prod-burger", Quantity: 1},
		})
		var sel *OptionSelectionError
		assert.ErrorAs(t, err, &sel)
	})
}

func TestServiceUpdateStatus(t *testing.T) {
	seed := func(f *fixture, status Status) *Order {
		o := &Order{
			ID:           "ord-1",
			Number:       "PD-20260310-AAAA0001",
			CustomerID:   "cust-1",
			RestaurantID: "rest-1",
			Status:       status,
			Total:        decimal.RequireFromString("31.00"),
		}
		f.orders.orders[o.ID] = o
		return o
	}

	t.Run("valid transition persists via CAS", func(t *testing.T) {
		f := newFixture()
		seed(f, StatusPending)

		o, err := f.svc.UpdateStatus(context.Background(), "ord-1", StatusConfirmed, "")
		require.NoError(t, err)
		assert.Equal(t, StatusConfirmed, o.Status)

		require.Len(t, f.orders.updates, 1)
		assert.Equal(t, StatusPending, f.orders.updates[0].expected)
		assert.Equal(t, StatusConfirmed, f.orders.updates[0].next)
		assert.Nil(t, f.orders.updates[0].courierID)

		require.Len(t, f.events.events, 1)
		assert.Equal(t, EventStatusChanged, f.events.events[0].Type)
	})

	t.Run("invalid transition rejected", func(t *testing.T) {
		f := newFixture()
		seed(f, StatusDelivered)

		_, err := f.svc.UpdateStatus(context.Background(), "ord-1", StatusPreparing, "")
		var bad *InvalidTransitionError
		require.ErrorAs(t, err, &bad)
		assert.Empty(t, f.orders.updates)
	})

	t.Run("out-for-delivery requires a courier", func(t *testing.T) {
		f := newFixture()
		seed(f, StatusPreparing)

		_, err := f.svc.UpdateStatus(context.Background(), "ord-1", StatusOutForDelivery, "")
		assert.ErrorIs(t, err, ErrCourierRequired)
	})

	t.Run("out-for-delivery rejects non-courier accounts", func(t *testing.T) {
		f := newFixture()
		seed(f, StatusPreparing)

		_, err := f.svc.UpdateStatus(context.Background(), "ord-1", StatusOutForDelivery, "acct-1")
		var notCourier *NotACourierError
		require.ErrorAs(t, err, &notCourier)
	})

	t.Run("out-for-delivery attaches the courier", func(t *testing.T) {
		f := newFixture()
		seed(f, StatusPreparing)

		o, err := f.svc.UpdateStatus(context.Background(), "ord-1", StatusOutForDelivery, "acct-courier")
		require.NoError(t, err)
		require.NotNil(t, o.CourierID)
		assert.Equal(t, "acct-courier", *o.CourierID)

		require.Len(t, f.orders.updates, 1)
		require.NotNil(t, f.orders.updates[0].courierID)
		assert.Equal(t, "acct-courier", *f.orders.updates[0].courierID)
	})

	t.Run("concurrent conflict surfaces", func(t *testing.T) {
		f := newFixture()
		seed(f, StatusPending)
		f.orders.updateErr = ErrStatusConflict

		_, err := f.svc.UpdateStatus(context.Background(), "ord-1", StatusConfirmed, "")
		assert.ErrorIs(t, err, ErrStatusConflict)
		assert.Empty(t, f.events.events)
	})

	t.Run("unknown order", func(t *testing.T) {
		f := newFixture()

		_, err := f.svc.UpdateStatus(context.Background(), "ord-ghost", StatusConfirmed, "")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestServiceCancelOrder(t *testing.T) {
	seed := func(f *fixture, status Status) {
		f.orders.orders["ord-1"] = &Order{
			ID: "ord-1", CustomerID: "cust-1", RestaurantID: "rest-1", Status: status,
		}
	}

	t.Run("pending order cancels", func(t *testing.T) {
		f := newFixture()
		seed(f, StatusPending)

		require.NoError(t, f.svc.CancelOrder(context.Background(), "ord-1"))
		require.Len(t, f.orders.updates, 1)
		assert.Equal(t, StatusCancelled, f.orders.updates[0].next)
	})

	t.Run("confirmed order cancels", func(t *testing.T) {
		f := newFixture()
		seed(f, StatusConfirmed)

		require.NoError(t, f.svc.CancelOrder(context.Background(), "ord-1"))
	})

	t.Run("preparing order cannot cancel", func(t *testing.T) {
		f := newFixture()
		seed(f, StatusPreparing)

		err := f.svc.CancelOrder(context.Background(), "ord-1")
		var notAllowed *CancelNotAllowedError
		require.ErrorAs(t, err, &notAllowed)
		assert.Empty(t, f.orders.updates)
	})
}

func TestServiceCanAccess(t *testing.T) {
	courierID := "acct-courier"
	seed := func(f *fixture) {
		f.orders.orders["ord-1"] = &Order{
			ID:           "ord-1",
			CustomerID:   "cust-1",
			RestaurantID: "rest-1",
			CourierID:    &courierID,
			Status:       StatusOutForDelivery,
		}
	}

	tests := []struct {
		name  string
		actor account.Actor
		want  bool
	}{
		{"owning customer", account.Actor{AccountID: "acct-1", Role: account.RoleCustomer}, true},
		{"other customer", account.Actor{AccountID: "acct-other", Role: account.RoleCustomer}, false},
		{"matching restaurant", account.Actor{AccountID: "acct-r", Role: account.RoleRestaurant, RestaurantID: "rest-1"}, true},
		{"other restaurant", account.Actor{AccountID: "acct-r", Role: account.RoleRestaurant, RestaurantID: "rest-2"}, false},
		{"assigned courier", account.Actor{AccountID: "acct-courier", Role: account.RoleCourier}, true},
		{"other courier", account.Actor{AccountID: "acct-courier-2", Role: account.RoleCourier}, false},
		{"admin not granted by the predicate", account.Actor{AccountID: "acct-admin", Role: account.RoleAdmin}, false},
		{"unknown role", account.Actor{AccountID: "acct-1", Role: "auditor"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			seed(f)
			assert.Equal(t, tt.want, f.svc.CanAccess(context.Background(), tt.actor, "ord-1"))
		})
	}

	t.Run("unknown order is denied", func(t *testing.T) {
		f := newFixture()
		assert.False(t, f.svc.CanAccess(context.Background(), customerActor(), "ord-ghost"))
	})
}

func TestServiceOwnsCustomer(t *testing.T) {
	f := newFixture()

	assert.True(t, f.svc.OwnsCustomer(context.Background(), customerActor(), "cust-1"))
	assert.False(t, f.svc.OwnsCustomer(context.Background(),
		account.Actor{AccountID: "acct-other", Role: account.RoleCustomer}, "cust-1"))
	assert.False(t, f.svc.OwnsCustomer(context.Background(), customerActor(), "cust-ghost"))
}
