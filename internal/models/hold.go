package models

import "time"

// Hold is a time-boxed exclusive claim on a date range. For any overlapping
// range at most one hold may be active or entered_payment at a time.
type Hold struct {
	ID            string    `json:"id"`
	CheckIn       time.Time `json:"check_in"`
	CheckOut      time.Time `json:"check_out"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	LastHeartbeat time.Time `json:"last_heartbeat"`
	Deadline      time.Time `json:"deadline"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Nights returns the number of nights in [CheckIn, CheckOut).
func (h Hold) Nights() int {
	return NightsBetween(h.CheckIn, h.CheckOut)
}

// Terminal reports whether the hold can no longer change state.
func (h Hold) Terminal() bool {
	switch h.Status {
	case HoldStatusCancelled, HoldStatusExpired, HoldStatusFinalized:
		return true
	}
	return false
}

// Blocking reports whether the hold excludes new acquires for its range at
// the given instant. An active hold past its deadline no longer blocks even
// before a sweep has updated the row; entered_payment holds block until an
// explicit terminal transition.
func (h Hold) Blocking(now time.Time) bool {
	switch h.Status {
	case HoldStatusActive:
		return h.Deadline.After(now)
	case HoldStatusEnteredPayment:
		return true
	}
	return false
}

// Overlaps reports whether two [in, out) ranges share at least one night.
func (h Hold) Overlaps(checkIn, checkOut time.Time) bool {
	return h.CheckIn.Before(checkOut) && h.CheckOut.After(checkIn)
}

// NightsBetween counts nights in [checkIn, checkOut) on whole days.
func NightsBetween(checkIn, checkOut time.Time) int {
	in := DayOf(checkIn)
	out := DayOf(checkOut)
	return int(out.Sub(in).Hours() / 24)
}

// DayOf truncates a timestamp to its calendar day in UTC.
func DayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DayKey formats a day the way the store keys nights.
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}
