package models

import "time"

// Snapshot is the inventory picture for one date range: the room/bed graph
// plus everything that makes a bed unsellable on a given night.
type Snapshot struct {
	CheckIn  time.Time
	CheckOut time.Time
	Rooms    []Room
	// Occupied maps a night key (DayKey) to the set of occupied bed IDs.
	// Union of reservation beds and privacy blocks of active reservations.
	Occupied map[string]map[int64]bool
	// BlockedDays holds night keys the administration closed entirely.
	BlockedDays map[string]bool
}

// BedAvailability annotates one bed with its per-night flag.
type BedAvailability struct {
	Bed       Bed  `json:"bed"`
	Available bool `json:"available"`
}

// NightAvailability is the full bed list of one room on one night.
type NightAvailability struct {
	Night time.Time         `json:"night"`
	Beds  []BedAvailability `json:"beds"`
}

// RoomAvailability aggregates a room over the whole range. FreeBeds lists
// only beds free on every night in range.
type RoomAvailability struct {
	Room      Room                `json:"room"`
	Nights    []NightAvailability `json:"nights"`
	FreeBeds  []Bed               `json:"free_beds"`
	FreeCount int                 `json:"free_count"`
}

type SearchResult struct {
	Status    string             `json:"status"`
	Deficit   int                `json:"deficit,omitempty"`
	CheckIn   time.Time          `json:"check_in"`
	CheckOut  time.Time          `json:"check_out"`
	Nights    int                `json:"nights"`
	TotalFree int                `json:"total_free"`
	Rooms     []RoomAvailability `json:"rooms"`
}

// OccupancyDay is the admin calendar view of one room on one day.
type OccupancyDay struct {
	Day       time.Time `json:"day"`
	RoomID    int64     `json:"room_id"`
	Booked    int64     `json:"booked"`
	Available int64     `json:"available"`
	Blocked   bool      `json:"blocked"`
}
