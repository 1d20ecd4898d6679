package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ostello/internal/models"
)

// CreateBlockedDay closes one day for all rooms.
func (db *DB) CreateBlockedDay(ctx context.Context, day *models.BlockedDay) error {
	now := db.now()
	query := `INSERT INTO blocked_days (day, reason, created_at) VALUES (?, ?, ?)`
	result, err := db.ExecContext(ctx, query, models.DayKey(day.Day), day.Reason, now)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrDuplicateBlockedDay
		}
		return fmt.Errorf("failed to create blocked day: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	day.ID = id
	day.CreatedAt = now
	return nil
}

// DeleteBlockedDay reopens a day.
func (db *DB) DeleteBlockedDay(ctx context.Context, day time.Time) error {
	_, err := db.ExecContext(ctx, `DELETE FROM blocked_days WHERE day = ?`, models.DayKey(day))
	if err != nil {
		return fmt.Errorf("failed to delete blocked day: %w", err)
	}
	return nil
}

// ListBlockedDays returns blocked days inside [start, end).
func (db *DB) ListBlockedDays(ctx context.Context, start, end time.Time) ([]models.BlockedDay, error) {
	query := `SELECT id, day, reason, created_at FROM blocked_days
	          WHERE day >= ? AND day < ? ORDER BY day`
	rows, err := db.QueryContext(ctx, query, models.DayKey(start), models.DayKey(end))
	if err != nil {
		return nil, fmt.Errorf("failed to list blocked days: %w", err)
	}
	defer rows.Close()

	var days []models.BlockedDay
	for rows.Next() {
		var day models.BlockedDay
		var dayStr string
		if err := rows.Scan(&day.ID, &dayStr, &day.Reason, &day.CreatedAt); err != nil {
			return nil, err
		}
		if day.Day, err = time.Parse("2006-01-02", dayStr); err != nil {
			return nil, fmt.Errorf("failed to parse blocked day: %w", err)
		}
		days = append(days, day)
	}

	return days, rows.Err()
}
