package order

import "fmt"

// Status enumerates the order lifecycle states.
type Status string

const (
	StatusPending        Status = "PENDING"
	StatusConfirmed      Status = "CONFIRMED"
	StatusPreparing      Status = "PREPARING"
	StatusOutForDelivery Status = "OUT_FOR_DELIVERY"
	StatusDelivered      Status = "DELIVERED"
	StatusCancelled      Status = "CANCELLED"
)

// transitions is the strict whitelist of allowed status changes. Anything
// absent here is an invalid transition. StatusDelivered and StatusCancelled
// are terminal.
var transitions = map[Status][]Status{
	StatusPending:        {StatusConfirmed, StatusCancelled},
	StatusConfirmed:      {StatusPreparing, StatusCancelled},
	StatusPreparing:      {StatusOutForDelivery},
	StatusOutForDelivery: {StatusDelivered},
}

// ParseStatus converts a raw string to a Status, rejecting anything outside
// the closed set.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPending, StatusConfirmed, StatusPreparing,
		StatusOutForDelivery, StatusDelivered, StatusCancelled:
		return st, nil
	}
	return "", fmt.Errorf("unknown order status %q", s)
}

// CanTransition reports whether from -> to is in the transition whitelist.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a status has no outgoing transitions.
func IsTerminal(s Status) bool {
	return len(transitions[s]) == 0
}

// CanCancel reports whether the dedicated cancel operation is allowed. The
// window is narrower than the transition table: once preparation starts the
// order can no longer be cancelled.
func CanCancel(s Status) bool {
	return s == StatusPending || s == StatusConfirmed
}

// InvalidTransitionError indicates a status change outside the whitelist.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition %s -> %s", e.From, e.To)
}

// CancelNotAllowedError indicates a cancel attempt outside the allowed window.
type CancelNotAllowedError struct {
	Status Status
}

func (e *CancelNotAllowedError) Error() string {
	return fmt.Sprintf("cannot cancel order in status %s", e.Status)
}
