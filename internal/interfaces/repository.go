package interfaces

import (
	"context"

	"github.com/google/uuid"

	"pizza-status/internal/domain"
)

// OrderRepository is the persistence contract for orders and their
// append-only status history (Adapter/Postgres).
type OrderRepository interface {
	// LatestStatus resolves the current status event for one order.
	// Returns domain.ErrNoStatusFound when the order has no history.
	LatestStatus(ctx context.Context, orderID uuid.UUID) (domain.StatusEvent, error)

	// LatestStatuses resolves the current status event for each of the
	// given orders. Orders without history are absent from the result.
	LatestStatuses(ctx context.Context, orderIDs []uuid.UUID) (map[uuid.UUID]domain.StatusEvent, error)

	// AppendStatus appends a new status event for the order, but only if
	// the order's current status still equals expectCurrent at the time
	// of the insert. Returns domain.ErrStatusChanged when the guard
	// fails.
	AppendStatus(ctx context.Context, orderID uuid.UUID, status, expectCurrent domain.Status) (domain.StatusEvent, error)

	// StatusHistory returns the full history of an order, ascending by
	// creation time (sequence-ordered within equal timestamps).
	StatusHistory(ctx context.Context, orderID uuid.UUID) ([]domain.StatusEvent, error)

	// EligibleOrders returns the IDs of every order whose current status
	// is not terminal, optionally scoped to one user. An empty result is
	// not an error.
	EligibleOrders(ctx context.Context, userID *uuid.UUID) ([]uuid.UUID, error)

	// MostRecentEligibleOrder returns the most recently created order
	// whose current status is not terminal, optionally scoped to one
	// user. Returns domain.ErrNoEligibleOrders when nothing matches.
	MostRecentEligibleOrder(ctx context.Context, userID *uuid.UUID) (uuid.UUID, error)
}

// UserDirectory resolves user identifiers from email addresses
// (administrative lookup, exact match).
type UserDirectory interface {
	LookupUserByEmail(ctx context.Context, email string) (uuid.UUID, error)
}
