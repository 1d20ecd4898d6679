package models

import "time"

type Reservation struct {
	ID        int64     `json:"id"`
	HoldID    string    `json:"hold_id"`
	GuestName string    `json:"guest_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	CheckIn   time.Time `json:"check_in"`
	CheckOut  time.Time `json:"check_out"`
	Pension   string    `json:"pension"`
	Status    string    `json:"status"`
	Total     float64   `json:"total"`
	CityTax   float64   `json:"city_tax"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ReservationBed is one occupied bed on one night.
type ReservationBed struct {
	ReservationID int64     `json:"reservation_id"`
	RoomID        int64     `json:"room_id"`
	BedID         int64     `json:"bed_id"`
	Night         time.Time `json:"night"`
}

// PrivacyBlock is a bed the guest paid to keep empty on one night.
type PrivacyBlock struct {
	ReservationID int64     `json:"reservation_id"`
	RoomID        int64     `json:"room_id"`
	BedID         int64     `json:"bed_id"`
	Night         time.Time `json:"night"`
}
