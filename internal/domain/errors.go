package domain

import "errors"

var (
	// ErrUnknownStatus marks a status value outside the fixed lifecycle.
	ErrUnknownStatus = errors.New("unknown order status")

	// ErrNoStatusFound marks an order with an empty status history.
	ErrNoStatusFound = errors.New("no status found for order")

	// ErrNoEligibleOrders is returned by single-mode selection when no
	// incomplete order exists.
	ErrNoEligibleOrders = errors.New("no eligible orders found")

	// ErrUserNotFound is returned when no user matches the given email.
	ErrUserNotFound = errors.New("no user found with the provided email")

	// ErrUserLookupFailed is returned when the user directory itself
	// cannot be queried.
	ErrUserLookupFailed = errors.New("failed to fetch user by email")

	// ErrStatusChanged is returned by a guarded append whose expected
	// current status no longer matches; a concurrent caller advanced the
	// order between resolve and append.
	ErrStatusChanged = errors.New("order status changed concurrently")
)
