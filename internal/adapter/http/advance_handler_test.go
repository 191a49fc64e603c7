package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pizza-status/internal/adapter/logger"
	"pizza-status/internal/auth"
	"pizza-status/internal/domain"
	"pizza-status/internal/interfaces"
)

const testSecret = "test-secret"

type fakeAdvanceService struct {
	lastSelection interfaces.Selection
	selected      []uuid.UUID
	selErr        error
	outcomes      []interfaces.AdvanceOutcome
}

func (f *fakeAdvanceService) SelectOrders(_ context.Context, sel interfaces.Selection) ([]uuid.UUID, error) {
	f.lastSelection = sel
	return f.selected, f.selErr
}

func (f *fakeAdvanceService) Advance(context.Context, []uuid.UUID) []interfaces.AdvanceOutcome {
	return f.outcomes
}

func testLogger() logger.Logger {
	return logger.NewWithWriter("test", io.Discard)
}

func authedHandler(svc interfaces.AdvanceService) http.Handler {
	handler := NewAdvanceHandler(svc, testLogger())
	return AuthMiddleware(testSecret, testLogger())(http.HandlerFunc(handler.AdvanceOrders))
}

func bearerToken(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	token, err := auth.GenerateToken(testSecret, userID, "user@example.com", time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestAdvanceRequiresAuthentication(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/order-advance", strings.NewReader(`{}`))

	authedHandler(&fakeAdvanceService{}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Unauthorized")
}

func TestAdvanceRejectsInvalidToken(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/order-advance", strings.NewReader(`{}`))
	req.Header.Set("Authorization", "Bearer not-a-token")

	authedHandler(&fakeAdvanceService{}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdvanceScopesToAuthenticatedUser(t *testing.T) {
	userID := uuid.New()
	orderID := uuid.New()
	svc := &fakeAdvanceService{
		selected: []uuid.UUID{orderID},
		outcomes: []interfaces.AdvanceOutcome{{
			OrderID:   orderID,
			Kind:      interfaces.OutcomeAdvanced,
			NewStatus: domain.StatusAccepted,
			Message:   "Order advanced to Order Accepted",
		}},
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/order-advance", strings.NewReader(`{"all_possible": true}`))
	req.Header.Set("Authorization", bearerToken(t, userID))

	authedHandler(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.lastSelection.UserID)
	assert.Equal(t, userID, *svc.lastSelection.UserID)
	assert.True(t, svc.lastSelection.AllPossible)

	var resp AdvanceResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.Len(t, resp.Result, 1)
	assert.Equal(t, interfaces.OutcomeAdvanced, resp.Result[0].Kind)
}

func TestAdvanceExplicitOrderID(t *testing.T) {
	orderID := uuid.New()
	svc := &fakeAdvanceService{selected: []uuid.UUID{orderID}, outcomes: []interfaces.AdvanceOutcome{}}

	rec := httptest.NewRecorder()
	body := `{"order_id": "` + orderID.String() + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/order-advance", strings.NewReader(body))
	req.Header.Set("Authorization", bearerToken(t, uuid.New()))

	authedHandler(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.lastSelection.OrderID)
	assert.Equal(t, orderID, *svc.lastSelection.OrderID)
}

func TestAdvanceSelectionFailureIs500(t *testing.T) {
	svc := &fakeAdvanceService{selErr: errors.New("store unreachable")}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/order-advance", strings.NewReader(`{}`))
	req.Header.Set("Authorization", bearerToken(t, uuid.New()))

	authedHandler(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Failed to advance orders")
}

func TestAdvanceBadOrderIDIs400(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/order-advance", strings.NewReader(`{"order_id": "nope"}`))
	req.Header.Set("Authorization", bearerToken(t, uuid.New()))

	authedHandler(&fakeAdvanceService{}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
