package domain

import (
	"time"

	"github.com/google/uuid"
)

// Order represents a customer purchase. Orders are created once at checkout
// and never mutated afterwards; their lifecycle state lives entirely in the
// append-only status history.
type Order struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	Address      *string
	SpecialNotes *string
	CreatedAt    time.Time
}

// StatusEvent is one immutable record of an order's status history. Events
// are only ever appended. Seq is assigned by the store in insertion order
// and breaks ties between events sharing a creation timestamp.
type StatusEvent struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	Seq         int64
	Status      Status
	StatusNotes *string
	CreatedAt   time.Time
}

// After reports whether e is a later history entry than other, comparing
// creation time first and store sequence second.
func (e StatusEvent) After(other StatusEvent) bool {
	if !e.CreatedAt.Equal(other.CreatedAt) {
		return e.CreatedAt.After(other.CreatedAt)
	}
	return e.Seq > other.Seq
}

// LatestEvent resolves an order's current status from its full history:
// the event with the greatest (created_at, seq). Returns ErrNoStatusFound
// for an empty history.
func LatestEvent(events []StatusEvent) (StatusEvent, error) {
	if len(events) == 0 {
		return StatusEvent{}, ErrNoStatusFound
	}
	latest := events[0]
	for _, e := range events[1:] {
		if e.After(latest) {
			latest = e
		}
	}
	return latest, nil
}
