package models

import "time"

// PrivacyBlockSelection is the shopper's choice of beds to keep empty in one
// room on one night. Only beds free that night and not assigned to a guest
// may appear here.
type PrivacyBlockSelection struct {
	RoomID int64     `json:"room_id"`
	Night  time.Time `json:"night"`
	BedIDs []int64   `json:"bed_ids"`
}

// CartState is the transient shopping state attached to a hold. It lives in
// the state repository with a TTL and is discarded when the hold dies.
type CartState struct {
	HoldID        string                  `json:"hold_id"`
	CheckIn       time.Time               `json:"check_in"`
	CheckOut      time.Time               `json:"check_out"`
	Pension       string                  `json:"pension"`
	Guests        []Guest                 `json:"guests"`
	PrivacyBlocks []PrivacyBlockSelection `json:"privacy_blocks,omitempty"`
	ServicesCost  float64                 `json:"services_cost"`
	UpdatedAt     time.Time               `json:"updated_at"`
}

// GuestByID returns the index of the guest or -1.
func (c *CartState) GuestByID(id int64) int {
	for i := range c.Guests {
		if c.Guests[i].ID == id {
			return i
		}
	}
	return -1
}

// BedTaken reports whether a bed is already assigned to any guest.
func (c *CartState) BedTaken(roomID, bedID int64) bool {
	for _, g := range c.Guests {
		if g.RoomID == roomID && g.BedID == bedID {
			return true
		}
	}
	return false
}

// AllAssigned reports whether every guest has a bed.
func (c *CartState) AllAssigned() bool {
	for _, g := range c.Guests {
		if !g.Assigned() {
			return false
		}
	}
	return len(c.Guests) > 0
}
