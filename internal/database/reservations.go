package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ostello/internal/models"
)

// Snapshot loads the inventory picture for [checkIn, checkOut): the cached
// room graph plus per-night occupied beds (reservation beds and privacy
// blocks of active reservations) and admin-blocked days.
func (db *DB) Snapshot(ctx context.Context, checkIn, checkOut time.Time) (*models.Snapshot, error) {
	snap := &models.Snapshot{
		CheckIn:     checkIn,
		CheckOut:    checkOut,
		Rooms:       db.Rooms(),
		Occupied:    make(map[string]map[int64]bool),
		BlockedDays: make(map[string]bool),
	}

	in := models.DayKey(checkIn)
	out := models.DayKey(checkOut)

	for _, table := range []string{"reservation_beds", "privacy_blocks"} {
		query := `SELECT o.night, o.bed_id FROM ` + table + ` o
		          JOIN reservations r ON r.id = o.reservation_id
		          WHERE r.status = ? AND o.night >= ? AND o.night < ?`
		rows, err := db.QueryContext(ctx, query, models.ReservationStatusActive, in, out)
		if err != nil {
			return nil, fmt.Errorf("failed to query %s: %w", table, err)
		}

		for rows.Next() {
			var night string
			var bedID int64
			if err := rows.Scan(&night, &bedID); err != nil {
				rows.Close()
				return nil, err
			}
			if snap.Occupied[night] == nil {
				snap.Occupied[night] = make(map[int64]bool)
			}
			snap.Occupied[night][bedID] = true
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}

	blocked, err := db.ListBlockedDays(ctx, checkIn, checkOut)
	if err != nil {
		return nil, err
	}
	for _, day := range blocked {
		snap.BlockedDays[models.DayKey(day.Day)] = true
	}

	return snap, nil
}

// FinalizeReservation persists the reservation with its per-night bed and
// privacy rows and finalizes the backing hold, all in one transaction. The
// hold must still be in entered_payment; otherwise nothing is written.
func (db *DB) FinalizeReservation(ctx context.Context, res *models.Reservation, beds []models.ReservationBed, blocks []models.PrivacyBlock) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := db.now()

	// 1. Холд должен быть в entered_payment
	result, err := tx.ExecContext(ctx,
		`UPDATE holds SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		models.HoldStatusFinalized, now, res.HoldID, models.HoldStatusEnteredPayment)
	if err != nil {
		return fmt.Errorf("failed to finalize hold in tx: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return db.holdMissOrTerminal(ctx, res.HoldID)
	}

	// 2. Создаем бронирование
	queryInsert := `INSERT INTO reservations (
				hold_id, guest_name, email, phone, check_in, check_out,
				pension, status, total, city_tax, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	insertResult, err := tx.ExecContext(ctx, queryInsert,
		res.HoldID,
		res.GuestName,
		res.Email,
		res.Phone,
		models.DayKey(res.CheckIn),
		models.DayKey(res.CheckOut),
		res.Pension,
		models.ReservationStatusActive,
		res.Total,
		res.CityTax,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert reservation in tx: %w", err)
	}

	id, err := insertResult.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id in tx: %w", err)
	}

	// 3. Койки и приватные блокировки по ночам
	for _, bed := range beds {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO reservation_beds (reservation_id, room_id, bed_id, night) VALUES (?, ?, ?, ?)`,
			id, bed.RoomID, bed.BedID, models.DayKey(bed.Night))
		if err != nil {
			return fmt.Errorf("failed to insert reservation bed in tx: %w", err)
		}
	}
	for _, block := range blocks {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO privacy_blocks (reservation_id, room_id, bed_id, night) VALUES (?, ?, ?, ?)`,
			id, block.RoomID, block.BedID, models.DayKey(block.Night))
		if err != nil {
			return fmt.Errorf("failed to insert privacy block in tx: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reservation: %w", err)
	}

	res.ID = id
	res.Status = models.ReservationStatusActive
	res.CreatedAt = now
	res.UpdatedAt = now
	return nil
}

func (db *DB) GetReservation(ctx context.Context, id int64) (*models.Reservation, error) {
	query := `SELECT id, hold_id, guest_name, email, phone, check_in, check_out,
	                 pension, status, total, city_tax, created_at, updated_at
	          FROM reservations WHERE id = ?`

	var res models.Reservation
	var checkIn, checkOut string
	err := db.QueryRowContext(ctx, query, id).Scan(
		&res.ID,
		&res.HoldID,
		&res.GuestName,
		&res.Email,
		&res.Phone,
		&checkIn,
		&checkOut,
		&res.Pension,
		&res.Status,
		&res.Total,
		&res.CityTax,
		&res.CreatedAt,
		&res.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReservationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}

	if res.CheckIn, err = time.Parse("2006-01-02", checkIn); err != nil {
		return nil, fmt.Errorf("failed to parse reservation check_in: %w", err)
	}
	if res.CheckOut, err = time.Parse("2006-01-02", checkOut); err != nil {
		return nil, fmt.Errorf("failed to parse reservation check_out: %w", err)
	}

	return &res, nil
}

// CancelReservation releases every bed and privacy block of the reservation
// by flipping its status; the snapshot query ignores non-active rows.
func (db *DB) CancelReservation(ctx context.Context, id int64) error {
	query := `UPDATE reservations SET status = ?, updated_at = ? WHERE id = ? AND status = ?`
	result, err := db.ExecContext(ctx, query,
		models.ReservationStatusCancelled, db.now(), id, models.ReservationStatusActive)
	if err != nil {
		return fmt.Errorf("failed to cancel reservation: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrReservationNotFound
	}
	return nil
}

// GetOccupancy returns the admin calendar view: per room per day booked bed
// counts over [startDate, startDate+days).
func (db *DB) GetOccupancy(ctx context.Context, startDate time.Time, days int) ([]models.OccupancyDay, error) {
	endDate := models.DayOf(startDate).AddDate(0, 0, days)

	counts := make(map[string]map[int64]int64)
	query := `SELECT o.night, o.room_id, COUNT(*) FROM reservation_beds o
	          JOIN reservations r ON r.id = o.reservation_id
	          WHERE r.status = ? AND o.night >= ? AND o.night < ?
	          GROUP BY o.night, o.room_id`
	rows, err := db.QueryContext(ctx, query,
		models.ReservationStatusActive, models.DayKey(startDate), models.DayKey(endDate))
	if err != nil {
		return nil, fmt.Errorf("failed to query occupancy: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var night string
		var roomID, booked int64
		if err := rows.Scan(&night, &roomID, &booked); err != nil {
			return nil, err
		}
		if counts[night] == nil {
			counts[night] = make(map[int64]int64)
		}
		counts[night][roomID] = booked
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	blocked, err := db.ListBlockedDays(ctx, startDate, endDate)
	if err != nil {
		return nil, err
	}
	blockedSet := make(map[string]bool, len(blocked))
	for _, day := range blocked {
		blockedSet[models.DayKey(day.Day)] = true
	}

	var occupancy []models.OccupancyDay
	for i := 0; i < days; i++ {
		day := models.DayOf(startDate).AddDate(0, 0, i)
		key := models.DayKey(day)
		for _, room := range db.Rooms() {
			booked := counts[key][room.ID]
			occupancy = append(occupancy, models.OccupancyDay{
				Day:       day,
				RoomID:    room.ID,
				Booked:    booked,
				Available: int64(len(room.Beds)) - booked,
				Blocked:   blockedSet[key],
			})
		}
	}

	return occupancy, nil
}
