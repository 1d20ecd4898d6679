package database

import (
	"context"
	"testing"
	"time"

	"ostello/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func finalizeTestReservation(t *testing.T, db *DB, holdID string, in, out int, bedNights []models.ReservationBed, blocks []models.PrivacyBlock) *models.Reservation {
	t.Helper()
	ctx := context.Background()

	hold := newHold(holdID, in, out, 15*time.Minute)
	require.NoError(t, db.AcquireHold(ctx, hold))
	require.NoError(t, db.TransitionHold(ctx, holdID, models.HoldActionEnterPayment))

	res := &models.Reservation{
		HoldID:    holdID,
		GuestName: "Mario Rossi",
		Email:     "mario@example.com",
		CheckIn:   testDay(in),
		CheckOut:  testDay(out),
		Pension:   models.PensionBB,
		Total:     150,
		CityTax:   6,
	}
	require.NoError(t, db.FinalizeReservation(ctx, res, bedNights, blocks))
	return res
}

func TestFinalizeReservation(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	beds := []models.ReservationBed{
		{RoomID: 1, BedID: 1, Night: testDay(1)},
		{RoomID: 1, BedID: 1, Night: testDay(2)},
	}
	res := finalizeTestReservation(t, db, "h1", 1, 3, beds, nil)
	assert.NotZero(t, res.ID)
	assert.Equal(t, models.ReservationStatusActive, res.Status)

	got, err := db.GetReservation(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, "Mario Rossi", got.GuestName)
	assert.Equal(t, testDay(1), got.CheckIn)

	hold, err := db.GetHold(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, models.HoldStatusFinalized, hold.Status)
}

func TestFinalizeRequiresEnteredPayment(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	hold := newHold("h1", 1, 3, 15*time.Minute)
	require.NoError(t, db.AcquireHold(ctx, hold))

	res := &models.Reservation{HoldID: "h1", GuestName: "Mario", CheckIn: testDay(1), CheckOut: testDay(3), Pension: models.PensionBB}
	err := db.FinalizeReservation(ctx, res, nil, nil)
	assert.ErrorIs(t, err, ErrHoldTerminal)

	// Ничего не записано
	_, err = db.GetReservation(ctx, 1)
	assert.ErrorIs(t, err, ErrReservationNotFound)
}

func TestSnapshotOccupancy(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	beds := []models.ReservationBed{
		{RoomID: 1, BedID: 1, Night: testDay(1)},
		{RoomID: 1, BedID: 1, Night: testDay(2)},
	}
	blocks := []models.PrivacyBlock{
		{RoomID: 1, BedID: 2, Night: testDay(1)},
	}
	finalizeTestReservation(t, db, "h1", 1, 3, beds, blocks)

	snap, err := db.Snapshot(ctx, testDay(1), testDay(3))
	require.NoError(t, err)
	require.Len(t, snap.Rooms, 2)

	// Койка занята бронью, вторая — приватной блокировкой
	assert.True(t, snap.Occupied[models.DayKey(testDay(1))][1])
	assert.True(t, snap.Occupied[models.DayKey(testDay(1))][2])
	assert.True(t, snap.Occupied[models.DayKey(testDay(2))][1])
	assert.False(t, snap.Occupied[models.DayKey(testDay(2))][2])
	assert.False(t, snap.Occupied[models.DayKey(testDay(1))][3])
}

func TestSnapshotIgnoresCancelledReservations(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	beds := []models.ReservationBed{{RoomID: 1, BedID: 1, Night: testDay(1)}}
	res := finalizeTestReservation(t, db, "h1", 1, 2, beds, nil)

	require.NoError(t, db.CancelReservation(ctx, res.ID))

	snap, err := db.Snapshot(ctx, testDay(1), testDay(2))
	require.NoError(t, err)
	assert.False(t, snap.Occupied[models.DayKey(testDay(1))][1])

	// Повторная отмена — уже не активна
	assert.ErrorIs(t, db.CancelReservation(ctx, res.ID), ErrReservationNotFound)
}

func TestSnapshotRangeBoundaries(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	beds := []models.ReservationBed{
		{RoomID: 1, BedID: 1, Night: testDay(1)},
		{RoomID: 1, BedID: 1, Night: testDay(5)},
	}
	finalizeTestReservation(t, db, "h1", 1, 6, beds, nil)

	// Диапазон [2, 5) не видит ночи 1 и 5
	snap, err := db.Snapshot(ctx, testDay(2), testDay(5))
	require.NoError(t, err)
	assert.Empty(t, snap.Occupied)
}

func TestSnapshotBlockedDays(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.CreateBlockedDay(ctx, &models.BlockedDay{Day: testDay(2), Reason: "manutenzione"}))

	snap, err := db.Snapshot(ctx, testDay(1), testDay(4))
	require.NoError(t, err)
	assert.True(t, snap.BlockedDays[models.DayKey(testDay(2))])
	assert.False(t, snap.BlockedDays[models.DayKey(testDay(1))])
}

func TestBlockedDayCRUD(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	day := &models.BlockedDay{Day: testDay(2), Reason: "chiusura"}
	require.NoError(t, db.CreateBlockedDay(ctx, day))
	assert.NotZero(t, day.ID)

	assert.ErrorIs(t, db.CreateBlockedDay(ctx, &models.BlockedDay{Day: testDay(2)}), ErrDuplicateBlockedDay)

	days, err := db.ListBlockedDays(ctx, testDay(1), testDay(10))
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.Equal(t, "chiusura", days[0].Reason)

	require.NoError(t, db.DeleteBlockedDay(ctx, testDay(2)))
	days, err = db.ListBlockedDays(ctx, testDay(1), testDay(10))
	require.NoError(t, err)
	assert.Empty(t, days)
}

func TestGetOccupancy(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	beds := []models.ReservationBed{
		{RoomID: 1, BedID: 1, Night: testDay(1)},
		{RoomID: 1, BedID: 2, Night: testDay(1)},
		{RoomID: 1, BedID: 1, Night: testDay(2)},
	}
	finalizeTestReservation(t, db, "h1", 1, 3, beds, nil)
	require.NoError(t, db.CreateBlockedDay(ctx, &models.BlockedDay{Day: testDay(3)}))

	occupancy, err := db.GetOccupancy(ctx, testDay(1), 3)
	require.NoError(t, err)
	// 3 дня × 2 комнаты
	require.Len(t, occupancy, 6)

	byKey := make(map[string]models.OccupancyDay)
	for _, o := range occupancy {
		byKey[models.DayKey(o.Day)+"/"+string(rune('0'+o.RoomID))] = o
	}

	day1room1 := byKey[models.DayKey(testDay(1))+"/1"]
	assert.Equal(t, int64(2), day1room1.Booked)
	assert.Equal(t, int64(0), day1room1.Available)

	day2room1 := byKey[models.DayKey(testDay(2))+"/1"]
	assert.Equal(t, int64(1), day2room1.Booked)
	assert.Equal(t, int64(1), day2room1.Available)

	day3room1 := byKey[models.DayKey(testDay(3))+"/1"]
	assert.True(t, day3room1.Blocked)
}
