package tracking

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"pizza-status/internal/adapter/logger"
	"pizza-status/internal/interfaces"
)

// Service projects the append-only status history for read-only reporting.
type Service struct {
	orders interfaces.OrderRepository
	logger logger.Logger
}

func NewService(orders interfaces.OrderRepository, lgr logger.Logger) *Service {
	return &Service{orders: orders, logger: lgr}
}

// OrderStatusHistory returns the order's events ascending by creation
// time, each annotated with its human-readable description.
func (s *Service) OrderStatusHistory(ctx context.Context, orderID uuid.UUID) ([]interfaces.StatusEventView, error) {
	events, err := s.orders.StatusHistory(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch order status history: %w", err)
	}

	views := make([]interfaces.StatusEventView, len(events))
	for i, e := range events {
		views[i] = interfaces.StatusEventView{
			ID:             e.ID,
			OrderID:        e.OrderID,
			Status:         e.Status,
			StatusNotes:    e.StatusNotes,
			CreatedAt:      e.CreatedAt,
			ReadableStatus: e.Status.Describe(),
		}
	}
	return views, nil
}
