package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"pizza-status/internal/adapter/logger"
	"pizza-status/internal/interfaces"
)

type AdvanceHandler struct {
	service interfaces.AdvanceService
	logger  logger.Logger
}

func NewAdvanceHandler(service interfaces.AdvanceService, lgr logger.Logger) *AdvanceHandler {
	return &AdvanceHandler{service: service, logger: lgr}
}

type AdvanceRequest struct {
	OrderID     string `json:"order_id,omitempty"`
	AllPossible bool   `json:"all_possible,omitempty"`
}

type AdvanceResponse struct {
	Success bool                        `json:"success"`
	Result  []interfaces.AdvanceOutcome `json:"result"`
}

// AdvanceOrders handles POST /api/order-advance. An explicit order_id
// advances that one order; all_possible advances every eligible order of
// the caller; otherwise the caller's single most recent eligible order.
func (h *AdvanceHandler) AdvanceOrders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.respondError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	user, ok := UserFromContext(r.Context())
	if !ok {
		respondUnauthorized(w)
		return
	}

	var req AdvanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	sel := interfaces.Selection{
		UserID:      &user.ID,
		AllPossible: req.AllPossible,
	}
	if req.OrderID != "" {
		orderID, err := uuid.Parse(req.OrderID)
		if err != nil {
			h.respondError(w, "Invalid order_id", http.StatusBadRequest)
			return
		}
		sel.OrderID = &orderID
	}

	orderIDs, err := h.service.SelectOrders(r.Context(), sel)
	if err != nil {
		h.logger.Error("order_selection_failed", "Failed to select orders", "", map[string]interface{}{
			"user_id": user.ID.String(),
		}, err)
		h.respondError(w, fmt.Sprintf("Failed to advance orders: %v", err), http.StatusInternalServerError)
		return
	}

	result := h.service.Advance(r.Context(), orderIDs)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(AdvanceResponse{Success: true, Result: result})
}

func (h *AdvanceHandler) respondError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
