package models

// GuestTypeRule maps a guest category label to its discount and city tax.
// At most one rule may exist per label; config validation enforces this.
type GuestTypeRule struct {
	ID              int64   `yaml:"id" json:"id"`
	Label           string  `yaml:"label" json:"label"`
	AgeFrom         int     `yaml:"age_from" json:"age_from"`
	AgeTo           int     `yaml:"age_to" json:"age_to"`
	DiscountPercent float64 `yaml:"discount_percent" json:"discount_percent"`
	CityTax         bool    `yaml:"city_tax" json:"city_tax"`
	CityTaxAmount   float64 `yaml:"city_tax_amount" json:"city_tax_amount"`
}

// Guest is a transient party member. RoomID and BedID stay zero until the
// shopper assigns a bed; the record becomes a reservation line only at
// checkout.
type Guest struct {
	ID     int64  `json:"id"`
	Type   string `json:"type"`
	RoomID int64  `json:"room_id,omitempty"`
	BedID  int64  `json:"bed_id,omitempty"`
}

func (g Guest) Assigned() bool {
	return g.RoomID != 0 && g.BedID != 0
}

// RuleForLabel returns the matching rule and whether one was found.
func RuleForLabel(rules []GuestTypeRule, label string) (GuestTypeRule, bool) {
	for _, rule := range rules {
		if rule.Label == label {
			return rule, true
		}
	}
	return GuestTypeRule{}, false
}
