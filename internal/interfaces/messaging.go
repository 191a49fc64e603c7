package interfaces

import (
	"context"
	"time"

	"github.com/google/uuid"

	"pizza-status/internal/domain"
)

// StatusUpdateMessage is broadcast after every successful advancement.
type StatusUpdateMessage struct {
	OrderID   uuid.UUID     `json:"order_id"`
	OldStatus domain.Status `json:"old_status"`
	NewStatus domain.Status `json:"new_status"`
	ChangedBy string        `json:"changed_by"`
	Timestamp time.Time     `json:"timestamp"`
}

// StatusPublisher broadcasts status updates (Adapter/RabbitMQ). Publishing
// is best-effort: a publish failure never fails the advancement itself.
type StatusPublisher interface {
	PublishStatusUpdate(ctx context.Context, msg StatusUpdateMessage) error
}

type NotificationHandler func(ctx context.Context, body []byte) error

// MessageConsumer subscribes to status update broadcasts.
type MessageConsumer interface {
	ConsumeNotifications(ctx context.Context, handler NotificationHandler) error
}
