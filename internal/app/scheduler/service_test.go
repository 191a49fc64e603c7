package scheduler

import (
	"context"
	"io"
	"math/rand"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pizza-status/internal/adapter/cronfile"
	"pizza-status/internal/adapter/logger"
	"pizza-status/internal/domain"
	"pizza-status/internal/interfaces"
)

type fakeAdvancer struct {
	selected []uuid.UUID
	advanced [][]uuid.UUID
	selErr   error
}

func (f *fakeAdvancer) SelectOrders(context.Context, interfaces.Selection) ([]uuid.UUID, error) {
	return f.selected, f.selErr
}

func (f *fakeAdvancer) Advance(_ context.Context, orderIDs []uuid.UUID) []interfaces.AdvanceOutcome {
	f.advanced = append(f.advanced, orderIDs)
	outcomes := make([]interfaces.AdvanceOutcome, len(orderIDs))
	for i, id := range orderIDs {
		outcomes[i] = interfaces.AdvanceOutcome{OrderID: id, Kind: interfaces.OutcomeAdvanced, Message: "advanced"}
	}
	return outcomes
}

type fakeTimesRepo struct {
	latest map[uuid.UUID]domain.StatusEvent
}

func (f *fakeTimesRepo) LatestStatuses(context.Context, []uuid.UUID) (map[uuid.UUID]domain.StatusEvent, error) {
	return f.latest, nil
}

func (f *fakeTimesRepo) LatestStatus(context.Context, uuid.UUID) (domain.StatusEvent, error) {
	return domain.StatusEvent{}, domain.ErrNoStatusFound
}

func (f *fakeTimesRepo) AppendStatus(context.Context, uuid.UUID, domain.Status, domain.Status) (domain.StatusEvent, error) {
	return domain.StatusEvent{}, domain.ErrStatusChanged
}

func (f *fakeTimesRepo) StatusHistory(context.Context, uuid.UUID) ([]domain.StatusEvent, error) {
	return nil, nil
}

func (f *fakeTimesRepo) EligibleOrders(context.Context, *uuid.UUID) ([]uuid.UUID, error) {
	return nil, nil
}

func (f *fakeTimesRepo) MostRecentEligibleOrder(context.Context, *uuid.UUID) (uuid.UUID, error) {
	return uuid.Nil, domain.ErrNoEligibleOrders
}

func newTestScheduler(t *testing.T, advancer interfaces.AdvanceService, repo interfaces.OrderRepository, params Params) (*Service, *cronfile.Registry) {
	t.Helper()
	registry := cronfile.New(filepath.Join(t.TempDir(), "cronJobs.json"))
	svc := NewService(advancer, repo, registry, logger.NewWithWriter("test", io.Discard), params)
	svc.rand = rand.New(rand.NewSource(1))
	return svc, registry
}

func TestCronKey(t *testing.T) {
	assert.Equal(t, "advanceOrders_anyOrder_anyUser_latest", Params{}.CronKey())

	orderID := uuid.MustParse("f2a4dbcb-5f50-4b55-87c3-ae9c29a7b784")
	key := Params{OrderID: &orderID, UserEmail: "a@b.c", AllPossible: true}.CronKey()
	assert.Equal(t, "advanceOrders_f2a4dbcb-5f50-4b55-87c3-ae9c29a7b784_a@b.c_all", key)
}

func TestTickStopsWhenMarked(t *testing.T) {
	params := Params{MinuteFrequency: 1, MaxDelayMinutes: 10}
	svc, registry := newTestScheduler(t, &fakeAdvancer{}, &fakeTimesRepo{}, params)

	key := params.CronKey()
	require.NoError(t, registry.Put(key, cronfile.Record{
		MinuteFrequency: 1,
		MaxDelayMinutes: 10,
		Action:          cronfile.ActionStop,
	}))

	err := svc.Tick(context.Background())
	assert.ErrorIs(t, err, errStopRequested)

	_, ok, err := registry.Get(key)
	require.NoError(t, err)
	assert.False(t, ok, "stop removes the registry record")
}

func TestTickAdvancesOverdueOrder(t *testing.T) {
	orderID := uuid.New()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	advancer := &fakeAdvancer{selected: []uuid.UUID{orderID}}
	repo := &fakeTimesRepo{latest: map[uuid.UUID]domain.StatusEvent{
		// Last update 30 minutes ago: beyond any draw in [0, 10).
		orderID: {OrderID: orderID, Status: domain.StatusCooking, CreatedAt: now.Add(-30 * time.Minute)},
	}}

	svc, _ := newTestScheduler(t, advancer, repo, Params{MinuteFrequency: 1, MaxDelayMinutes: 10, AllPossible: true})
	svc.now = func() time.Time { return now }

	require.NoError(t, svc.Tick(context.Background()))
	require.Len(t, advancer.advanced, 1)
	assert.Equal(t, []uuid.UUID{orderID}, advancer.advanced[0])
}

func TestTickSkipsFreshlyUpdatedOrder(t *testing.T) {
	orderID := uuid.New()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	advancer := &fakeAdvancer{selected: []uuid.UUID{orderID}}
	repo := &fakeTimesRepo{latest: map[uuid.UUID]domain.StatusEvent{
		orderID: {OrderID: orderID, Status: domain.StatusCooking, CreatedAt: now},
	}}

	svc, _ := newTestScheduler(t, advancer, repo, Params{MinuteFrequency: 1, MaxDelayMinutes: 10, AllPossible: true})
	svc.now = func() time.Time { return now }

	// Seed 1 draws well above zero, so a zero-minute idle order is skipped.
	require.NoError(t, svc.Tick(context.Background()))
	assert.Empty(t, advancer.advanced)
}

func TestTickSurvivesEmptySelection(t *testing.T) {
	advancer := &fakeAdvancer{selErr: domain.ErrNoEligibleOrders}
	svc, _ := newTestScheduler(t, advancer, &fakeTimesRepo{}, Params{MinuteFrequency: 1, MaxDelayMinutes: 10})

	assert.NoError(t, svc.Tick(context.Background()))
}

func TestRunDeclinesDuplicateJob(t *testing.T) {
	params := Params{MinuteFrequency: 1, MaxDelayMinutes: 10}
	svc, registry := newTestScheduler(t, &fakeAdvancer{}, &fakeTimesRepo{}, params)

	require.NoError(t, registry.Put(params.CronKey(), cronfile.Record{
		MinuteFrequency: 1,
		MaxDelayMinutes: 10,
		Action:          cronfile.ActionRunning,
	}))

	// Returns immediately instead of starting a second driver.
	assert.NoError(t, svc.Run(context.Background()))
}

func TestShouldAdvanceBounds(t *testing.T) {
	svc, _ := newTestScheduler(t, &fakeAdvancer{}, &fakeTimesRepo{}, Params{MinuteFrequency: 1, MaxDelayMinutes: 10})

	// The draw lives in [0, 10) minutes, so 10+ idle minutes always advance.
	for i := 0; i < 100; i++ {
		assert.True(t, svc.shouldAdvance(10*time.Minute))
	}
}
