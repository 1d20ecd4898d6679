package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ostello/internal/models"
)

const holdColumns = `id, check_in, check_out, status, created_at, last_heartbeat, deadline, updated_at`

// AcquireHold creates an active hold for the range, failing with
// ErrHoldConflict when any blocking hold overlaps it. The overlap check and
// the insert run in one transaction; with two concurrent calls for the same
// dates exactly one wins.
//
// An active hold past its deadline does not block even before the sweep has
// rewritten its row: the overlap predicate checks the deadline itself.
func (db *DB) AcquireHold(ctx context.Context, hold *models.Hold) error {
	now := db.now()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// 1. Проверяем пересечения внутри транзакции
	var blocking int
	queryCount := `SELECT COUNT(*) FROM holds
	               WHERE check_in < ? AND check_out > ?
	                 AND (status = ? OR (status = ? AND deadline > ?))`
	err = tx.QueryRowContext(ctx, queryCount,
		models.DayKey(hold.CheckOut),
		models.DayKey(hold.CheckIn),
		models.HoldStatusEnteredPayment,
		models.HoldStatusActive,
		now,
	).Scan(&blocking)
	if err != nil {
		return fmt.Errorf("failed to check hold overlap in tx: %w", err)
	}

	if blocking > 0 {
		return ErrHoldConflict
	}

	// 2. Создаем холд
	queryInsert := `INSERT INTO holds (
				id, check_in, check_out, status, created_at, last_heartbeat, deadline, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = tx.ExecContext(ctx, queryInsert,
		hold.ID,
		models.DayKey(hold.CheckIn),
		models.DayKey(hold.CheckOut),
		models.HoldStatusActive,
		now,
		now,
		hold.Deadline,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert hold in tx: %w", err)
	}

	hold.Status = models.HoldStatusActive
	hold.CreatedAt = now
	hold.LastHeartbeat = now
	hold.UpdatedAt = now

	return tx.Commit()
}

// GetHold returns the hold, lazily expiring an overdue active one first so
// that no reader ever observes a technically-dead hold as active.
func (db *DB) GetHold(ctx context.Context, id string) (*models.Hold, error) {
	if err := db.expireIfOverdue(ctx, id); err != nil {
		return nil, err
	}

	query := `SELECT ` + holdColumns + ` FROM holds WHERE id = ?`

	var hold models.Hold
	var checkIn, checkOut string
	err := db.QueryRowContext(ctx, query, id).Scan(
		&hold.ID,
		&checkIn,
		&checkOut,
		&hold.Status,
		&hold.CreatedAt,
		&hold.LastHeartbeat,
		&hold.Deadline,
		&hold.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrHoldNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get hold: %w", err)
	}

	if hold.CheckIn, err = time.Parse("2006-01-02", checkIn); err != nil {
		return nil, fmt.Errorf("failed to parse hold check_in: %w", err)
	}
	if hold.CheckOut, err = time.Parse("2006-01-02", checkOut); err != nil {
		return nil, fmt.Errorf("failed to parse hold check_out: %w", err)
	}

	return &hold, nil
}

// HeartbeatHold extends the deadline of an active hold to now + ttl.
// Returns ErrHoldTerminal when the hold is already dead.
func (db *DB) HeartbeatHold(ctx context.Context, id string, ttl time.Duration) error {
	if err := db.expireIfOverdue(ctx, id); err != nil {
		return err
	}

	now := db.now()
	query := `UPDATE holds SET last_heartbeat = ?, deadline = ?, updated_at = ?
	          WHERE id = ? AND status = ?`
	result, err := db.ExecContext(ctx, query, now, now.Add(ttl), now, id, models.HoldStatusActive)
	if err != nil {
		return fmt.Errorf("failed to heartbeat hold: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return db.holdMissOrTerminal(ctx, id)
	}
	return nil
}

// TransitionHold applies a lifecycle action as a conditional update.
func (db *DB) TransitionHold(ctx context.Context, id, action string) error {
	if err := db.expireIfOverdue(ctx, id); err != nil {
		return err
	}

	var toStatus string
	var fromStatuses []string
	switch action {
	case models.HoldActionEnterPayment:
		toStatus = models.HoldStatusEnteredPayment
		fromStatuses = []string{models.HoldStatusActive}
	case models.HoldActionCancel:
		toStatus = models.HoldStatusCancelled
		fromStatuses = []string{models.HoldStatusActive, models.HoldStatusEnteredPayment}
	case models.HoldActionFinalize:
		toStatus = models.HoldStatusFinalized
		fromStatuses = []string{models.HoldStatusEnteredPayment}
	default:
		return fmt.Errorf("unknown hold action: %s", action)
	}

	query := `UPDATE holds SET status = ?, updated_at = ? WHERE id = ? AND status IN (?` +
		repeatPlaceholder(len(fromStatuses)-1) + `)`
	args := []any{toStatus, db.now(), id}
	for _, s := range fromStatuses {
		args = append(args, s)
	}

	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to transition hold: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return db.holdMissOrTerminal(ctx, id)
	}
	return nil
}

// ExpireOverdueHolds sweeps active holds past their deadline and returns the
// ids it expired. ENTERED_PAYMENT holds are never touched here; they have
// their own reconciliation via CancelStalePaymentHolds.
func (db *DB) ExpireOverdueHolds(ctx context.Context) ([]string, error) {
	now := db.now()

	ids, err := db.selectHoldIDs(ctx,
		`SELECT id FROM holds WHERE status = ? AND deadline <= ?`,
		models.HoldStatusActive, now)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	query := `UPDATE holds SET status = ?, updated_at = ? WHERE status = ? AND deadline <= ?`
	if _, err := db.ExecContext(ctx, query, models.HoldStatusExpired, now, models.HoldStatusActive, now); err != nil {
		return nil, fmt.Errorf("failed to expire holds: %w", err)
	}
	return ids, nil
}

// CancelStalePaymentHolds cancels ENTERED_PAYMENT holds whose last update is
// older than the cutoff. This is the secondary timeout for shoppers who
// never came back from the payment gateway.
func (db *DB) CancelStalePaymentHolds(ctx context.Context, olderThan time.Duration) ([]string, error) {
	cutoff := db.now().Add(-olderThan)

	ids, err := db.selectHoldIDs(ctx,
		`SELECT id FROM holds WHERE status = ? AND updated_at <= ?`,
		models.HoldStatusEnteredPayment, cutoff)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	query := `UPDATE holds SET status = ?, updated_at = ? WHERE status = ? AND updated_at <= ?`
	if _, err := db.ExecContext(ctx, query, models.HoldStatusCancelled, db.now(), models.HoldStatusEnteredPayment, cutoff); err != nil {
		return nil, fmt.Errorf("failed to cancel stale payment holds: %w", err)
	}
	return ids, nil
}

// expireIfOverdue physically expires one overdue active hold before a read
// or conditional update looks at it.
func (db *DB) expireIfOverdue(ctx context.Context, id string) error {
	now := db.now()
	query := `UPDATE holds SET status = ?, updated_at = ? WHERE id = ? AND status = ? AND deadline <= ?`
	_, err := db.ExecContext(ctx, query, models.HoldStatusExpired, now, id, models.HoldStatusActive, now)
	if err != nil {
		return fmt.Errorf("failed to lazily expire hold: %w", err)
	}
	return nil
}

func (db *DB) holdMissOrTerminal(ctx context.Context, id string) error {
	var status string
	err := db.QueryRowContext(ctx, `SELECT status FROM holds WHERE id = ?`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrHoldNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to inspect hold: %w", err)
	}
	return ErrHoldTerminal
}

func (db *DB) selectHoldIDs(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select hold ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func repeatPlaceholder(n int) string {
	s := ""
	for i := 0; i < n; i++ {
		s += ", ?"
	}
	return s
}
