package scheduler

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"pizza-status/internal/adapter/cronfile"
	"pizza-status/internal/adapter/logger"
	"pizza-status/internal/domain"
	"pizza-status/internal/interfaces"
)

// Params configures one scheduled advancement job.
type Params struct {
	MinuteFrequency int
	MaxDelayMinutes int
	OrderID         *uuid.UUID
	UserEmail       string
	AllPossible     bool
}

// CronKey derives the registry key for these params. Two jobs with the
// same targeting share a key and cannot run twice.
func (p Params) CronKey() string {
	orderPart := "anyOrder"
	if p.OrderID != nil {
		orderPart = p.OrderID.String()
	}
	userPart := "anyUser"
	if p.UserEmail != "" {
		userPart = p.UserEmail
	}
	modePart := "latest"
	if p.AllPossible {
		modePart = "all"
	}
	return fmt.Sprintf("advanceOrders_%s_%s_%s", orderPart, userPart, modePart)
}

var errStopRequested = errors.New("stop requested")

// Service is the scheduling driver: every MinuteFrequency minutes it
// selects eligible orders and advances each one with randomized jitter,
// surviving per-tick failures. Cooperative shutdown happens through the
// registry, checked once per tick.
type Service struct {
	advance  interfaces.AdvanceService
	orders   interfaces.OrderRepository
	registry *cronfile.Registry
	logger   logger.Logger
	params   Params

	rand *rand.Rand
	now  func() time.Time
}

func NewService(advance interfaces.AdvanceService, orders interfaces.OrderRepository, registry *cronfile.Registry, lgr logger.Logger, params Params) *Service {
	return &Service{
		advance:  advance,
		orders:   orders,
		registry: registry,
		logger:   lgr,
		params:   params,
		rand:     rand.New(rand.NewSource(time.Now().UnixNano())),
		now:      time.Now,
	}
}

// Run registers the job and ticks until the registry says stop or ctx is
// cancelled. Returns nil on a registry-requested stop.
func (s *Service) Run(ctx context.Context) error {
	key := s.params.CronKey()

	if _, exists, err := s.registry.Get(key); err != nil {
		return err
	} else if exists {
		s.logger.Info("cron_already_running", fmt.Sprintf("Cron job '%s' is already running", key), "", nil)
		return nil
	}

	rec := cronfile.Record{
		MinuteFrequency: s.params.MinuteFrequency,
		MaxDelayMinutes: s.params.MaxDelayMinutes,
		UserEmail:       s.params.UserEmail,
		AllPossible:     s.params.AllPossible,
		StartedAt:       s.now().UTC(),
		Action:          cronfile.ActionRunning,
	}
	if s.params.OrderID != nil {
		rec.OrderID = s.params.OrderID.String()
	}
	if err := s.registry.Put(key, rec); err != nil {
		return err
	}

	s.logger.Info("cron_started", fmt.Sprintf("Cron job starting with key '%s'", key), "", map[string]interface{}{
		"minute_frequency":  s.params.MinuteFrequency,
		"max_delay_minutes": s.params.MaxDelayMinutes,
	})

	ticker := time.NewTicker(time.Duration(s.params.MinuteFrequency) * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.Tick(ctx); err != nil {
				if errors.Is(err, errStopRequested) {
					return nil
				}
				// A failed tick never kills the driver.
				s.logger.Error("cron_tick_failed", fmt.Sprintf("Error in cron job for '%s'", key), "", nil, err)
			}
		}
	}
}

// Tick runs one scheduling round: stop check, selection, jitter decision,
// advancement.
func (s *Service) Tick(ctx context.Context) error {
	key := s.params.CronKey()
	s.logger.Debug("cron_tick", fmt.Sprintf("Cron job triggered for '%s'", key), "", nil)

	rec, ok, err := s.registry.Get(key)
	if err != nil {
		return err
	}
	if ok && rec.Action == cronfile.ActionStop {
		s.logger.Info("cron_stopped", fmt.Sprintf("Cron job '%s' has been marked to stop", key), "", nil)
		if err := s.registry.Delete(key); err != nil {
			return err
		}
		return errStopRequested
	}

	orderIDs, err := s.advance.SelectOrders(ctx, interfaces.Selection{
		OrderID:     s.params.OrderID,
		UserEmail:   s.params.UserEmail,
		AllPossible: s.params.AllPossible,
	})
	if err != nil {
		if errors.Is(err, domain.ErrNoEligibleOrders) {
			s.logger.Debug("cron_no_orders", "No orders to advance", "", nil)
			return nil
		}
		return err
	}
	if len(orderIDs) == 0 {
		s.logger.Debug("cron_no_orders", "No orders to advance", "", nil)
		return nil
	}

	lastUpdates, err := s.orders.LatestStatuses(ctx, orderIDs)
	if err != nil {
		return err
	}

	for orderID, event := range lastUpdates {
		sinceLast := s.now().Sub(event.CreatedAt)
		if !s.shouldAdvance(sinceLast) {
			s.logger.Debug("cron_skipped", fmt.Sprintf("Skipped advancing order %s on this cron run", orderID), "", nil)
			continue
		}

		s.logger.Info("cron_advancing", fmt.Sprintf("Advancing order %s after %.1f minutes", orderID, sinceLast.Minutes()), "", nil)
		for _, outcome := range s.advance.Advance(ctx, []uuid.UUID{orderID}) {
			s.logger.Info("cron_outcome", outcome.Message, "", map[string]interface{}{
				"order_id": outcome.OrderID.String(),
				"outcome":  string(outcome.Kind),
			})
		}
	}

	return nil
}

// shouldAdvance draws a uniform random delay in [0, MaxDelayMinutes)
// minutes and advances only when the order has been idle at least that
// long.
func (s *Service) shouldAdvance(sinceLast time.Duration) bool {
	draw := s.rand.Float64() * float64(s.params.MaxDelayMinutes)
	return sinceLast.Minutes() >= draw
}
