package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pizza-status/internal/domain"
	"pizza-status/internal/interfaces"
)

type fakeTrackingService struct {
	views []interfaces.StatusEventView
	err   error
}

func (f *fakeTrackingService) OrderStatusHistory(context.Context, uuid.UUID) ([]interfaces.StatusEventView, error) {
	return f.views, f.err
}

func TestOrderStatusReturnsAnnotatedHistory(t *testing.T) {
	orderID := uuid.New()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := &fakeTrackingService{views: []interfaces.StatusEventView{
		{ID: uuid.New(), OrderID: orderID, Status: domain.StatusReceived, CreatedAt: base, ReadableStatus: "Your order has been received."},
		{ID: uuid.New(), OrderID: orderID, Status: domain.StatusAccepted, CreatedAt: base.Add(time.Minute), ReadableStatus: "Your order has been accepted."},
	}}

	handler := NewStatusHandler(svc, testLogger())
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/order-status", strings.NewReader(`{"orderId": "`+orderID.String()+`"}`))

	handler.OrderStatus(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var views []interfaces.StatusEventView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &views))
	require.Len(t, views, 2)
	assert.Equal(t, "Your order has been received.", views[0].ReadableStatus)
	assert.True(t, views[0].CreatedAt.Before(views[1].CreatedAt))
}

func TestOrderStatusStoreFailureIs500(t *testing.T) {
	svc := &fakeTrackingService{err: errors.New("connection refused")}

	handler := NewStatusHandler(svc, testLogger())
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/order-status", strings.NewReader(`{"orderId": "`+uuid.NewString()+`"}`))

	handler.OrderStatus(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Error fetching order status")
}

func TestOrderStatusRejectsWrongMethod(t *testing.T) {
	handler := NewStatusHandler(&fakeTrackingService{}, testLogger())
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/order-status", nil)

	handler.OrderStatus(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestOrderStatusRejectsBadID(t *testing.T) {
	handler := NewStatusHandler(&fakeTrackingService{}, testLogger())
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/order-status", strings.NewReader(`{"orderId": "42"}`))

	handler.OrderStatus(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
