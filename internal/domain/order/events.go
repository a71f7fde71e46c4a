package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// EventType enumerates the domain events emitted by the order engine.
type EventType string

const (
	EventOrderCreated  EventType = "order.created"
	EventOrderFailed   EventType = "order.failed"
	EventStatusChanged EventType = "order.status_changed"
)

// Event is an observational record of an order lifecycle moment. Events are
// emitted after the transactional work commits and are strictly best-effort:
// a failing subscriber never fails the operation that produced the event.
type Event struct {
	Type         EventType
	OrderID      string
	OrderNumber  string
	RestaurantID string
	Status       Status
	Total        decimal.Decimal
	// Reason carries the rejection cause on EventOrderFailed.
	Reason string
	At     time.Time
}

// Publisher receives domain events. Implementations must not block the
// calling request for long; errors are logged by the caller and dropped.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// NopPublisher discards all events.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) {}

// MultiPublisher fans one event out to several publishers.
type MultiPublisher []Publisher

func (m MultiPublisher) Publish(ctx context.Context, e Event) {
	for _, p := range m {
		p.Publish(ctx, e)
	}
}
