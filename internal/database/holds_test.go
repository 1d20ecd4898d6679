package database

import (
	"context"
	"os"
	"testing"
	"time"

	"ostello/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	logger := zerolog.New(os.Stdout)
	db, err := NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	db.SetInventory(testRooms(), testRules())
	return db
}

func testRooms() []models.Room {
	return []models.Room{
		{ID: 1, Name: "Camera 1", SortOrder: 1, Beds: []models.Bed{
			{ID: 1, Name: "1A", PriceBB: 50, PriceHB: 70},
			{ID: 2, Name: "1B", PriceBB: 60, PriceHB: 80},
		}},
		{ID: 2, Name: "Camera 2", SortOrder: 2, Beds: []models.Bed{
			{ID: 3, Name: "2A", PriceBB: 40, PriceHB: 55},
		}},
	}
}

func testRules() []models.GuestTypeRule {
	return []models.GuestTypeRule{
		{ID: 1, Label: "Adulti", CityTax: true, CityTaxAmount: 2},
		{ID: 2, Label: "Bambini", DiscountPercent: 30},
	}
}

func testDay(d int) time.Time {
	return time.Date(2026, 8, d, 0, 0, 0, 0, time.UTC)
}

func newHold(id string, in, out int, ttl time.Duration) *models.Hold {
	return &models.Hold{
		ID:       id,
		CheckIn:  testDay(in),
		CheckOut: testDay(out),
		Deadline: time.Now().Add(ttl),
	}
}

func TestAcquireHold(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	hold := newHold("h1", 1, 4, 15*time.Minute)
	require.NoError(t, db.AcquireHold(ctx, hold))
	assert.Equal(t, models.HoldStatusActive, hold.Status)

	got, err := db.GetHold(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, models.HoldStatusActive, got.Status)
	assert.Equal(t, testDay(1), got.CheckIn)
	assert.Equal(t, testDay(4), got.CheckOut)
}

func TestAcquireHoldConflictOnOverlap(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.AcquireHold(ctx, newHold("h1", 3, 6, 15*time.Minute)))

	// Любое пересечение хотя бы на одну ночь конфликтует
	assert.ErrorIs(t, db.AcquireHold(ctx, newHold("h2", 3, 6, 15*time.Minute)), ErrHoldConflict)
	assert.ErrorIs(t, db.AcquireHold(ctx, newHold("h3", 1, 4, 15*time.Minute)), ErrHoldConflict)
	assert.ErrorIs(t, db.AcquireHold(ctx, newHold("h4", 5, 9, 15*time.Minute)), ErrHoldConflict)

	// Смежные диапазоны не пересекаются: check-out не ночёвка
	assert.NoError(t, db.AcquireHold(ctx, newHold("h5", 6, 8, 15*time.Minute)))
	assert.NoError(t, db.AcquireHold(ctx, newHold("h6", 1, 3, 15*time.Minute)))
}

func TestAcquireHoldIgnoresDeadHolds(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.AcquireHold(ctx, newHold("h1", 1, 3, 15*time.Minute)))
	require.NoError(t, db.TransitionHold(ctx, "h1", models.HoldActionCancel))

	assert.NoError(t, db.AcquireHold(ctx, newHold("h2", 1, 3, 15*time.Minute)))
}

func TestAcquireHoldIgnoresOverdueUnsweptHold(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	// Холд с истекшим дедлайном, который sweep еще не переписал
	require.NoError(t, db.AcquireHold(ctx, newHold("h1", 1, 3, -time.Minute)))

	assert.NoError(t, db.AcquireHold(ctx, newHold("h2", 1, 3, 15*time.Minute)))
}

func TestEnteredPaymentBlocksDespiteDeadline(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	hold := newHold("h1", 1, 3, time.Minute)
	require.NoError(t, db.AcquireHold(ctx, hold))
	require.NoError(t, db.TransitionHold(ctx, "h1", models.HoldActionEnterPayment))

	// Переводим часы за дедлайн: entered_payment всё равно блокирует
	db.SetNowFunc(func() time.Time { return time.Now().Add(2 * time.Minute) })
	assert.ErrorIs(t, db.AcquireHold(ctx, newHold("h2", 1, 3, 15*time.Minute)), ErrHoldConflict)

	got, err := db.GetHold(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, models.HoldStatusEnteredPayment, got.Status)
}

func TestGetHoldLazyExpiry(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.AcquireHold(ctx, newHold("h1", 1, 3, -time.Second)))

	got, err := db.GetHold(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, models.HoldStatusExpired, got.Status)
}

func TestHeartbeatExtendsDeadline(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	hold := newHold("h1", 1, 3, time.Minute)
	require.NoError(t, db.AcquireHold(ctx, hold))

	before, err := db.GetHold(ctx, "h1")
	require.NoError(t, err)

	require.NoError(t, db.HeartbeatHold(ctx, "h1", 15*time.Minute))

	after, err := db.GetHold(ctx, "h1")
	require.NoError(t, err)
	assert.True(t, after.Deadline.After(before.Deadline))
	assert.True(t, after.LastHeartbeat.After(before.LastHeartbeat) || after.LastHeartbeat.Equal(before.LastHeartbeat))
}

func TestHeartbeatOnDeadHold(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	assert.ErrorIs(t, db.HeartbeatHold(ctx, "missing", 15*time.Minute), ErrHoldNotFound)

	require.NoError(t, db.AcquireHold(ctx, newHold("h1", 1, 3, 15*time.Minute)))
	require.NoError(t, db.TransitionHold(ctx, "h1", models.HoldActionCancel))
	assert.ErrorIs(t, db.HeartbeatHold(ctx, "h1", 15*time.Minute), ErrHoldTerminal)

	require.NoError(t, db.AcquireHold(ctx, newHold("h2", 4, 6, -time.Second)))
	assert.ErrorIs(t, db.HeartbeatHold(ctx, "h2", 15*time.Minute), ErrHoldTerminal)
}

func TestTransitionStateMachine(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.AcquireHold(ctx, newHold("h1", 1, 3, 15*time.Minute)))

	// finalize требует entered_payment
	assert.ErrorIs(t, db.TransitionHold(ctx, "h1", models.HoldActionFinalize), ErrHoldTerminal)

	require.NoError(t, db.TransitionHold(ctx, "h1", models.HoldActionEnterPayment))
	// повторный enter_payment невозможен
	assert.ErrorIs(t, db.TransitionHold(ctx, "h1", models.HoldActionEnterPayment), ErrHoldTerminal)

	require.NoError(t, db.TransitionHold(ctx, "h1", models.HoldActionCancel))
	assert.ErrorIs(t, db.TransitionHold(ctx, "h1", models.HoldActionCancel), ErrHoldTerminal)
}

func TestExpireOverdueHolds(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.AcquireHold(ctx, newHold("h1", 1, 3, -time.Second)))
	require.NoError(t, db.AcquireHold(ctx, newHold("h2", 5, 7, 15*time.Minute)))

	ids, err := db.ExpireOverdueHolds(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"h1"}, ids)

	got, err := db.GetHold(ctx, "h2")
	require.NoError(t, err)
	assert.Equal(t, models.HoldStatusActive, got.Status)

	// повторный sweep ничего не находит
	ids, err = db.ExpireOverdueHolds(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestCancelStalePaymentHolds(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.AcquireHold(ctx, newHold("h1", 1, 3, 15*time.Minute)))
	require.NoError(t, db.TransitionHold(ctx, "h1", models.HoldActionEnterPayment))

	// Свежая оплата не трогается
	ids, err := db.CancelStalePaymentHolds(ctx, 2*time.Hour)
	require.NoError(t, err)
	assert.Empty(t, ids)

	// Сдвигаем часы на 3 часа вперед
	db.SetNowFunc(func() time.Time { return time.Now().Add(3 * time.Hour) })
	ids, err = db.CancelStalePaymentHolds(ctx, 2*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{"h1"}, ids)

	got, err := db.GetHold(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, models.HoldStatusCancelled, got.Status)
}
