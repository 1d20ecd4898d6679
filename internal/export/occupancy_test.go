package export

import (
	"context"
	"io"
	"testing"
	"time"

	"ostello/internal/database"
	"ostello/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func setupStore(t *testing.T) *database.DB {
	logger := zerolog.New(io.Discard)
	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	db.SetInventory([]models.Room{
		{ID: 1, Name: "Camera 1", SortOrder: 1, Beds: []models.Bed{
			{ID: 1, Name: "1A", PriceBB: 50},
			{ID: 2, Name: "1B", PriceBB: 50},
		}},
	}, nil)
	return db
}

func TestOccupancyReport(t *testing.T) {
	db := setupStore(t)
	ctx := context.Background()

	checkIn := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)
	checkOut := time.Date(2026, 11, 3, 0, 0, 0, 0, time.UTC)

	// Одна завершенная бронь на койку 1A
	hold := &models.Hold{
		ID:       "h-export",
		CheckIn:  checkIn,
		CheckOut: checkOut,
		Deadline: time.Now().Add(15 * time.Minute),
	}
	require.NoError(t, db.AcquireHold(ctx, hold))
	require.NoError(t, db.TransitionHold(ctx, hold.ID, models.HoldActionEnterPayment))

	res := &models.Reservation{HoldID: hold.ID, GuestName: "Mario", CheckIn: checkIn, CheckOut: checkOut, Pension: models.PensionBB}
	beds := []models.ReservationBed{
		{RoomID: 1, BedID: 1, Night: checkIn},
		{RoomID: 1, BedID: 1, Night: checkIn.AddDate(0, 0, 1)},
	}
	require.NoError(t, db.FinalizeReservation(ctx, res, beds, nil))

	logger := zerolog.New(io.Discard)
	exporter := NewExporter(db, t.TempDir(), &logger)

	path, err := exporter.OccupancyReport(ctx, checkIn, 3)
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	// Строка комнаты
	roomCell, err := f.GetCellValue("Occupazione", "A3")
	require.NoError(t, err)
	assert.Equal(t, "Camera 1 (2)", roomCell)

	// Первые две ночи заняты на 1/2, третья свободна
	b3, _ := f.GetCellValue("Occupazione", "B3")
	c3, _ := f.GetCellValue("Occupazione", "C3")
	d3, _ := f.GetCellValue("Occupazione", "D3")
	assert.Equal(t, "1/2", b3)
	assert.Equal(t, "1/2", c3)
	assert.Equal(t, "0/2", d3)
}

func TestOccupancyReportMarksBlockedDays(t *testing.T) {
	db := setupStore(t)
	ctx := context.Background()

	day := time.Date(2026, 11, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, db.CreateBlockedDay(ctx, &models.BlockedDay{Day: day, Reason: "manutenzione"}))

	logger := zerolog.New(io.Discard)
	exporter := NewExporter(db, t.TempDir(), &logger)

	path, err := exporter.OccupancyReport(ctx, day, 1)
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	b3, _ := f.GetCellValue("Occupazione", "B3")
	assert.Equal(t, "CHIUSO", b3)
}
