package api

import (
	"errors"
	"net/http"

	"ostello/internal/database"
	"ostello/internal/service"
)

// writeServiceError maps domain errors onto HTTP status codes. Everything
// unmapped is a 500 with a generic message so internals never leak.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, database.ErrHoldConflict):
		writeError(w, http.StatusConflict, "date range is already held by another shopper")
	case errors.Is(err, database.ErrHoldNotFound),
		errors.Is(err, database.ErrReservationNotFound),
		errors.Is(err, database.ErrRoomNotFound),
		errors.Is(err, database.ErrBedNotFound),
		errors.Is(err, service.ErrCartNotFound),
		errors.Is(err, service.ErrGuestNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, database.ErrHoldTerminal),
		errors.Is(err, service.ErrHoldNotLive):
		writeError(w, http.StatusGone, err.Error())
	case errors.Is(err, database.ErrInvalidRange),
		errors.Is(err, database.ErrPastDate),
		errors.Is(err, database.ErrDateTooFar),
		errors.Is(err, database.ErrRangeBlocked),
		errors.Is(err, service.ErrUnknownGuestType),
		errors.Is(err, service.ErrUnknownPension),
		errors.Is(err, service.ErrPartyIncomplete),
		errors.Is(err, service.ErrNegativeCost),
		errors.Is(err, service.ErrNightOutOfRange):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrBedUnavailable),
		errors.Is(err, service.ErrBedTaken),
		errors.Is(err, database.ErrDuplicateBlockedDay):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}
