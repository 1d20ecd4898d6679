package models

import "time"

type Bed struct {
	ID      int64   `yaml:"id" json:"id"`
	Name    string  `yaml:"name" json:"name"`
	PriceBB float64 `yaml:"price_bb" json:"price_bb"`
	PriceHB float64 `yaml:"price_hb" json:"price_hb"`
}

// NightlyPrice returns the base price for the pension type.
// Unknown pension types fall back to breakfast-only.
func (b Bed) NightlyPrice(pension string) float64 {
	if pension == PensionHB {
		return b.PriceHB
	}
	return b.PriceBB
}

type Room struct {
	ID        int64  `yaml:"id" json:"id"`
	Name      string `yaml:"name" json:"name"`
	SortOrder int64  `yaml:"sort_order" json:"sort_order"`
	Beds      []Bed  `yaml:"beds" json:"beds"`
}

func (r Room) BedByID(id int64) (Bed, bool) {
	for _, bed := range r.Beds {
		if bed.ID == id {
			return bed, true
		}
	}
	return Bed{}, false
}

type BlockedDay struct {
	ID        int64     `json:"id"`
	Day       time.Time `json:"day"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}
