package interfaces

import (
	"context"
	"time"

	"github.com/google/uuid"

	"pizza-status/internal/domain"
)

// OutcomeKind classifies the result of one advancement attempt.
type OutcomeKind string

const (
	OutcomeAdvanced        OutcomeKind = "advanced"
	OutcomeAlreadyComplete OutcomeKind = "already_complete"
	OutcomeFailed          OutcomeKind = "failed"
)

// AdvanceOutcome reports what happened to one order in an advancement
// batch. NewStatus is set only for OutcomeAdvanced.
type AdvanceOutcome struct {
	OrderID   uuid.UUID     `json:"order_id"`
	Kind      OutcomeKind   `json:"outcome"`
	NewStatus domain.Status `json:"new_status,omitempty"`
	Message   string        `json:"message"`
}

// Selection describes which orders an advancement caller targets.
// Precedence: an explicit OrderID wins outright; otherwise UserID (set by
// the HTTP layer from the session) or UserEmail (set by admin tooling)
// scopes the eligibility query; AllPossible switches between
// every-incomplete-order and single-most-recent selection.
type Selection struct {
	OrderID     *uuid.UUID
	UserID      *uuid.UUID
	UserEmail   string
	AllPossible bool
}

// AdvanceService is the order-status advancement core.
type AdvanceService interface {
	// SelectOrders resolves a Selection to concrete order IDs. Selection
	// errors abort the whole request.
	SelectOrders(ctx context.Context, sel Selection) ([]uuid.UUID, error)

	// Advance appends the next status for each order, one step only,
	// reporting one outcome per input ID in input order. A failure on
	// one order never aborts the rest of the batch.
	Advance(ctx context.Context, orderIDs []uuid.UUID) []AdvanceOutcome
}

// StatusEventView is a history entry annotated for display.
type StatusEventView struct {
	ID             uuid.UUID     `json:"id"`
	OrderID        uuid.UUID     `json:"order_id"`
	Status         domain.Status `json:"status"`
	StatusNotes    *string       `json:"status_notes"`
	CreatedAt      time.Time     `json:"created_at"`
	ReadableStatus string        `json:"readable_status"`
}

// TrackingService serves read-only status reporting.
type TrackingService interface {
	OrderStatusHistory(ctx context.Context, orderID uuid.UUID) ([]StatusEventView, error)
}
