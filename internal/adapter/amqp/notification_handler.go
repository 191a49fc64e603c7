package amqp

import (
	"context"
	"encoding/json"
	"fmt"

	"pizza-status/internal/adapter/logger"
	"pizza-status/internal/interfaces"
)

type NotificationHandler struct {
	logger logger.Logger
}

func NewNotificationHandler(lgr logger.Logger) *NotificationHandler {
	return &NotificationHandler{logger: lgr}
}

func (h *NotificationHandler) HandleNotification(ctx context.Context, body []byte) error {
	var msg interfaces.StatusUpdateMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		h.logger.Error("message_parse_failed", "Failed to parse notification", "", nil, err)
		return err
	}

	h.logger.Debug("notification_received", fmt.Sprintf("Received status update for order %s", msg.OrderID),
		msg.OrderID.String(), map[string]interface{}{
			"order_id":   msg.OrderID.String(),
			"new_status": string(msg.NewStatus),
		})

	fmt.Printf("Notification for order %s: status changed from '%s' to '%s' by %s\n",
		msg.OrderID, msg.OldStatus, msg.NewStatus, msg.ChangedBy)

	return nil
}
