package database

import "errors"

var (
	// ErrHoldConflict: another hold is active or mid-payment for an
	// overlapping range. Legitimate contention, not a failure.
	ErrHoldConflict = errors.New("booking in progress for overlapping dates")

	ErrHoldNotFound = errors.New("hold not found")

	// ErrHoldTerminal: the hold is cancelled, expired or finalized and can
	// no longer change state. Callers treat heartbeats against it as no-ops.
	ErrHoldTerminal = errors.New("hold is in a terminal state")

	ErrInvalidRange = errors.New("check-out must be after check-in")

	ErrRangeBlocked = errors.New("an admin-blocked day falls inside the range")

	ErrRoomNotFound = errors.New("room not found")

	ErrBedNotFound = errors.New("bed not found")

	ErrReservationNotFound = errors.New("reservation not found")

	ErrDateTooFar = errors.New("date is too far in the future")

	ErrPastDate = errors.New("date is in the past")

	ErrDuplicateBlockedDay = errors.New("day is already blocked")
)
