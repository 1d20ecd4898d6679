// Package availability derives sellable beds from an inventory snapshot.
// The calculator is pure: it never touches the store and can be re-run on
// the same snapshot with different guest counts.
package availability

import (
	"time"

	"ostello/internal/models"
)

// Calculate produces the per-room bed/night breakdown for the snapshot range
// and classifies the search for the requested guest count.
//
// A bed counts as free for the stay only when it is free on every night in
// [check-in, check-out); a bed with a mid-stay gap must not be offered. The
// caller guarantees check-out is strictly after check-in.
func Calculate(snap *models.Snapshot, guests int) *models.SearchResult {
	nights := Nights(snap.CheckIn, snap.CheckOut)

	result := &models.SearchResult{
		CheckIn:  snap.CheckIn,
		CheckOut: snap.CheckOut,
		Nights:   len(nights),
	}

	// Блокировка дня администратором закрывает весь поиск целиком
	for _, night := range nights {
		if snap.BlockedDays[models.DayKey(night)] {
			result.Status = models.AvailabilityBlockedDays
			return result
		}
	}

	for _, room := range snap.Rooms {
		ra := models.RoomAvailability{Room: room}
		freeAllNights := make(map[int64]bool, len(room.Beds))
		for _, bed := range room.Beds {
			freeAllNights[bed.ID] = true
		}

		for _, night := range nights {
			occupied := snap.Occupied[models.DayKey(night)]
			na := models.NightAvailability{Night: night}
			for _, bed := range room.Beds {
				free := !occupied[bed.ID]
				na.Beds = append(na.Beds, models.BedAvailability{Bed: bed, Available: free})
				if !free {
					freeAllNights[bed.ID] = false
				}
			}
			ra.Nights = append(ra.Nights, na)
		}

		for _, bed := range room.Beds {
			if freeAllNights[bed.ID] {
				ra.FreeBeds = append(ra.FreeBeds, bed)
			}
		}
		ra.FreeCount = len(ra.FreeBeds)
		result.TotalFree += ra.FreeCount
		result.Rooms = append(result.Rooms, ra)
	}

	switch {
	case result.TotalFree == 0:
		result.Status = models.AvailabilitySoldOut
	case result.TotalFree < guests:
		result.Status = models.AvailabilityTooLittle
		result.Deficit = guests - result.TotalFree
	default:
		result.Status = models.AvailabilityEnough
	}

	return result
}

// BedFreeOnNight reports whether a bed is sellable on one night of the
// snapshot. Used to validate privacy selections against live inventory.
func BedFreeOnNight(snap *models.Snapshot, night time.Time, bedID int64) bool {
	key := models.DayKey(night)
	if snap.BlockedDays[key] {
		return false
	}
	return !snap.Occupied[key][bedID]
}

// Nights lists every night of the stay, check-out day excluded.
func Nights(checkIn, checkOut time.Time) []time.Time {
	in := models.DayOf(checkIn)
	out := models.DayOf(checkOut)

	var nights []time.Time
	for d := in; d.Before(out); d = d.AddDate(0, 0, 1) {
		nights = append(nights, d)
	}
	return nights
}
