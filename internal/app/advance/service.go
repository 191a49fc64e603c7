package advance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"pizza-status/internal/adapter/logger"
	"pizza-status/internal/domain"
	"pizza-status/internal/interfaces"
)

// Service is the order-status advancement core: it selects eligible orders
// and appends their next status one step at a time.
type Service struct {
	orders    interfaces.OrderRepository
	users     interfaces.UserDirectory
	publisher interfaces.StatusPublisher
	logger    logger.Logger
	changedBy string
}

// NewService builds the advancement service. publisher may be nil when the
// caller runs without a message broker (CLI, tests); notifications are then
// skipped.
func NewService(orders interfaces.OrderRepository, users interfaces.UserDirectory, publisher interfaces.StatusPublisher, lgr logger.Logger, changedBy string) *Service {
	return &Service{
		orders:    orders,
		users:     users,
		publisher: publisher,
		logger:    lgr,
		changedBy: changedBy,
	}
}

// SelectOrders resolves a Selection to concrete order IDs. An explicit
// order ID short-circuits eligibility entirely, matching the behavior of
// the HTTP endpoint and the CLI: the caller asked for that order, the
// executor will report whatever happens to it.
func (s *Service) SelectOrders(ctx context.Context, sel interfaces.Selection) ([]uuid.UUID, error) {
	if sel.OrderID != nil {
		return []uuid.UUID{*sel.OrderID}, nil
	}

	userID := sel.UserID
	if userID == nil && sel.UserEmail != "" {
		id, err := s.users.LookupUserByEmail(ctx, sel.UserEmail)
		if err != nil {
			return nil, err
		}
		userID = &id
	}

	if sel.AllPossible {
		ids, err := s.orders.EligibleOrders(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch orders: %w", err)
		}
		return ids, nil
	}

	id, err := s.orders.MostRecentEligibleOrder(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNoEligibleOrders) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to fetch most recent order: %w", err)
	}
	return []uuid.UUID{id}, nil
}

// Advance moves each order one step forward in the lifecycle, reporting a
// per-order outcome. Input order is preserved; duplicates are processed
// independently, each re-resolving the order's current status fresh.
func (s *Service) Advance(ctx context.Context, orderIDs []uuid.UUID) []interfaces.AdvanceOutcome {
	outcomes := make([]interfaces.AdvanceOutcome, 0, len(orderIDs))
	for _, orderID := range orderIDs {
		outcomes = append(outcomes, s.advanceOne(ctx, orderID))
	}
	return outcomes
}

func (s *Service) advanceOne(ctx context.Context, orderID uuid.UUID) interfaces.AdvanceOutcome {
	current, err := s.orders.LatestStatus(ctx, orderID)
	if err != nil {
		if errors.Is(err, domain.ErrNoStatusFound) {
			return failed(orderID, "no status found")
		}
		return failed(orderID, fmt.Sprintf("failed to fetch latest order status: %v", err))
	}

	next, ok, err := domain.NextStatus(current.Status)
	if err != nil {
		return failed(orderID, fmt.Sprintf("unknown order status %q", current.Status))
	}
	if !ok {
		return interfaces.AdvanceOutcome{
			OrderID: orderID,
			Kind:    interfaces.OutcomeAlreadyComplete,
			Message: "Order is already complete.",
		}
	}

	event, err := s.orders.AppendStatus(ctx, orderID, next, current.Status)
	if err != nil {
		return failed(orderID, fmt.Sprintf("failed to advance order: %v", err))
	}

	s.logger.Debug("order_advanced", fmt.Sprintf("Order %s advanced to %s", orderID, next), "", map[string]interface{}{
		"order_id":   orderID.String(),
		"old_status": string(current.Status),
		"new_status": string(next),
	})
	s.notify(ctx, orderID, current.Status, event.Status)

	return interfaces.AdvanceOutcome{
		OrderID:   orderID,
		Kind:      interfaces.OutcomeAdvanced,
		NewStatus: next,
		Message:   fmt.Sprintf("Order advanced to %s", next),
	}
}

// notify broadcasts the status change. Best-effort: the advancement has
// already been committed, so a broker failure is only logged.
func (s *Service) notify(ctx context.Context, orderID uuid.UUID, oldStatus, newStatus domain.Status) {
	if s.publisher == nil {
		return
	}
	msg := interfaces.StatusUpdateMessage{
		OrderID:   orderID,
		OldStatus: oldStatus,
		NewStatus: newStatus,
		ChangedBy: s.changedBy,
		Timestamp: time.Now().UTC(),
	}
	if err := s.publisher.PublishStatusUpdate(ctx, msg); err != nil {
		s.logger.Error("rabbitmq_publish_failed", "Failed to publish status update", "", map[string]interface{}{
			"order_id": orderID.String(),
		}, err)
	}
}

func failed(orderID uuid.UUID, message string) interfaces.AdvanceOutcome {
	return interfaces.AdvanceOutcome{
		OrderID: orderID,
		Kind:    interfaces.OutcomeFailed,
		Message: message,
	}
}
