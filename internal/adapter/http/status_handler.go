package http

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"pizza-status/internal/adapter/logger"
	"pizza-status/internal/interfaces"
)

type StatusHandler struct {
	service interfaces.TrackingService
	logger  logger.Logger
}

func NewStatusHandler(service interfaces.TrackingService, lgr logger.Logger) *StatusHandler {
	return &StatusHandler{service: service, logger: lgr}
}

type StatusRequest struct {
	OrderID string `json:"orderId"`
}

// OrderStatus handles POST /api/order-status: the order's status events
// ascending by time, each annotated with a readable description.
func (h *StatusHandler) OrderStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.respondError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req StatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		h.respondError(w, "Invalid orderId", http.StatusBadRequest)
		return
	}

	views, err := h.service.OrderStatusHistory(r.Context(), orderID)
	if err != nil {
		h.logger.Error("status_fetch_failed", "Failed to fetch order status", "", map[string]interface{}{
			"order_id": orderID.String(),
		}, err)
		h.respondError(w, "Error fetching order status", http.StatusInternalServerError)
		return
	}

	if views == nil {
		views = []interfaces.StatusEventView{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(views)
}

func (h *StatusHandler) respondError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
