package hold

import (
	"context"
	"time"

	"ostello/internal/database"
	"ostello/internal/domain"
	"ostello/internal/events"
	"ostello/internal/metrics"
	"ostello/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Manager владеет жизненным циклом холдов. Вся конкуренция за даты решается
// в store; менеджер добавляет валидацию, события и метрики.
type Manager struct {
	store          domain.Store
	eventBus       domain.EventPublisher
	ttl            time.Duration
	maxAdvanceDays int
	logger         *zerolog.Logger
	now            func() time.Time
}

func NewManager(store domain.Store, eventBus domain.EventPublisher, ttl time.Duration, maxAdvanceDays int, logger *zerolog.Logger) *Manager {
	if ttl <= 0 {
		ttl = time.Duration(models.DefaultHoldTTL) * time.Second
	}
	if maxAdvanceDays <= 0 {
		maxAdvanceDays = models.DefaultMaxAdvanceDays
	}
	return &Manager{
		store:          store,
		eventBus:       eventBus,
		ttl:            ttl,
		maxAdvanceDays: maxAdvanceDays,
		logger:         logger,
		now:            time.Now,
	}
}

// SetNowFunc overrides the clock in tests.
func (m *Manager) SetNowFunc(now func() time.Time) {
	m.now = now
}

// ValidateRange rejects ranges the store should never see: zero or negative
// nights, check-in in the past, check-out beyond the booking horizon.
func (m *Manager) ValidateRange(checkIn, checkOut time.Time) error {
	if models.NightsBetween(checkIn, checkOut) < 1 {
		return database.ErrInvalidRange
	}

	today := models.DayOf(m.now())
	if models.DayOf(checkIn).Before(today) {
		return database.ErrPastDate
	}

	maxDate := today.AddDate(0, 0, m.maxAdvanceDays)
	if models.DayOf(checkOut).After(maxDate) {
		return database.ErrDateTooFar
	}

	return nil
}

// Acquire claims the date range exclusively. Exactly one concurrent caller
// for an overlapping range wins; the rest get ErrHoldConflict.
func (m *Manager) Acquire(ctx context.Context, checkIn, checkOut time.Time) (*models.Hold, error) {
	if err := m.ValidateRange(checkIn, checkOut); err != nil {
		metrics.IncHoldAcquire("invalid")
		return nil, err
	}

	now := m.now()
	hold := &models.Hold{
		ID:            uuid.NewString(),
		CheckIn:       models.DayOf(checkIn),
		CheckOut:      models.DayOf(checkOut),
		Status:        models.HoldStatusActive,
		CreatedAt:     now,
		LastHeartbeat: now,
		Deadline:      now.Add(m.ttl),
		UpdatedAt:     now,
	}

	if err := m.store.AcquireHold(ctx, hold); err != nil {
		if err == database.ErrHoldConflict {
			metrics.IncHoldAcquire("conflict")
		} else {
			metrics.IncHoldAcquire("error")
		}
		return nil, err
	}

	metrics.IncHoldAcquire("ok")
	m.publishEvent(events.EventHoldAcquired, hold)

	m.logger.Info().
		Str("hold_id", hold.ID).
		Str("check_in", models.DayKey(hold.CheckIn)).
		Str("check_out", models.DayKey(hold.CheckOut)).
		Time("deadline", hold.Deadline).
		Msg("hold acquired")

	return hold, nil
}

// Heartbeat pushes the deadline of an active hold forward by the full TTL.
func (m *Manager) Heartbeat(ctx context.Context, holdID string) error {
	if err := m.store.HeartbeatHold(ctx, holdID, m.ttl); err != nil {
		return err
	}

	metrics.IncHeartbeat()
	return nil
}

// Transition applies an explicit lifecycle action to the hold.
func (m *Manager) Transition(ctx context.Context, holdID, action string) error {
	if err := m.store.TransitionHold(ctx, holdID, action); err != nil {
		return err
	}

	hold, err := m.store.GetHold(ctx, holdID)
	if err == nil {
		switch hold.Status {
		case models.HoldStatusEnteredPayment:
			m.publishEvent(events.EventHoldEnteredPayment, hold)
		case models.HoldStatusCancelled:
			m.publishEvent(events.EventHoldCancelled, hold)
		}
	}

	m.logger.Info().Str("hold_id", holdID).Str("action", action).Msg("hold transition")
	return nil
}

// Get returns the hold, lazily expiring it when the deadline has passed.
func (m *Manager) Get(ctx context.Context, holdID string) (*models.Hold, error) {
	return m.store.GetHold(ctx, holdID)
}

// Sweep expires overdue active holds and cancels stale payment holds. The
// background worker calls this on a schedule; it is also safe to call
// manually.
func (m *Manager) Sweep(ctx context.Context, paymentTimeout time.Duration) (int, error) {
	expired, err := m.store.ExpireOverdueHolds(ctx)
	if err != nil {
		return 0, err
	}
	for _, id := range expired {
		m.publishEvent(events.EventHoldExpired, &models.Hold{ID: id, Status: models.HoldStatusExpired})
	}

	stale, err := m.store.CancelStalePaymentHolds(ctx, paymentTimeout)
	if err != nil {
		return len(expired), err
	}
	for _, id := range stale {
		m.publishEvent(events.EventHoldCancelled, &models.Hold{ID: id, Status: models.HoldStatusCancelled})
	}

	total := len(expired) + len(stale)
	if total > 0 {
		metrics.AddHoldsExpired(total)
		m.logger.Info().Int("expired", len(expired)).Int("stale_payment", len(stale)).Msg("hold sweep")
	}

	return total, nil
}

func (m *Manager) publishEvent(eventType string, hold *models.Hold) {
	if m.eventBus == nil {
		return
	}

	payload := events.HoldEventPayload{
		HoldID:   hold.ID,
		CheckIn:  hold.CheckIn,
		CheckOut: hold.CheckOut,
		Status:   hold.Status,
		Deadline: hold.Deadline,
	}

	if err := m.eventBus.PublishJSON(eventType, payload); err != nil {
		m.logger.Error().Err(err).Str("event_type", eventType).Str("hold_id", hold.ID).Msg("publish event error")
	}
}
