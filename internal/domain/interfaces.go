package domain

import (
	"context"
	"time"

	"ostello/internal/models"
)

// Store is the shared reservation and hold store. It is the single source of
// truth for overbooking prevention; nothing outside these methods may write
// hold state.
type Store interface {
	Snapshot(ctx context.Context, checkIn, checkOut time.Time) (*models.Snapshot, error)
	Rooms() []models.Room
	RoomByID(id int64) (models.Room, bool)
	Rules() []models.GuestTypeRule

	AcquireHold(ctx context.Context, hold *models.Hold) error
	GetHold(ctx context.Context, id string) (*models.Hold, error)
	HeartbeatHold(ctx context.Context, id string, ttl time.Duration) error
	TransitionHold(ctx context.Context, id, action string) error
	ExpireOverdueHolds(ctx context.Context) ([]string, error)
	CancelStalePaymentHolds(ctx context.Context, olderThan time.Duration) ([]string, error)

	FinalizeReservation(ctx context.Context, res *models.Reservation, beds []models.ReservationBed, blocks []models.PrivacyBlock) error
	GetReservation(ctx context.Context, id int64) (*models.Reservation, error)
	CancelReservation(ctx context.Context, id int64) error
	GetOccupancy(ctx context.Context, startDate time.Time, days int) ([]models.OccupancyDay, error)

	CreateBlockedDay(ctx context.Context, day *models.BlockedDay) error
	DeleteBlockedDay(ctx context.Context, day time.Time) error
	ListBlockedDays(ctx context.Context, start, end time.Time) ([]models.BlockedDay, error)
}

// CartRepository keeps transient shopping state keyed by hold id.
type CartRepository interface {
	GetCart(ctx context.Context, holdID string) (*models.CartState, error)
	SetCart(ctx context.Context, cart *models.CartState) error
	ClearCart(ctx context.Context, holdID string) error
}

// HoldManager is the exclusive-claim lifecycle exposed to the orchestrator.
type HoldManager interface {
	Acquire(ctx context.Context, checkIn, checkOut time.Time) (*models.Hold, error)
	Heartbeat(ctx context.Context, holdID string) error
	Transition(ctx context.Context, holdID, action string) error
	Get(ctx context.Context, holdID string) (*models.Hold, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}
