// Package pricing computes stay prices. Every function is pure and total:
// missing reference data degrades to zero instead of failing, so a data-entry
// gap can never break checkout. The same functions back the search results,
// the cart drawer and the final charge.
package pricing

import (
	"ostello/internal/models"
)

// BedQuote is the price of one guest on one bed for the whole stay.
// Base is kept undiscounted for receipt display.
type BedQuote struct {
	BedID            int64   `json:"bed_id"`
	GuestType        string  `json:"guest_type"`
	Base             float64 `json:"base"`
	PerNight         float64 `json:"per_night"`
	DiscountFraction float64 `json:"discount_fraction"`
	Total            float64 `json:"total"`
	CityTax          float64 `json:"city_tax"`
}

type RoomQuote struct {
	RoomID  int64      `json:"room_id"`
	Beds    []BedQuote `json:"beds"`
	Total   float64    `json:"total"`
	CityTax float64    `json:"city_tax"`
}

type CartQuote struct {
	Rooms        []RoomQuote `json:"rooms"`
	RoomsTotal   float64     `json:"rooms_total"`
	PrivacyTotal float64     `json:"privacy_total"`
	Subtotal     float64     `json:"subtotal"`
	ServicesCost float64     `json:"services_cost"`
	CityTaxTotal float64     `json:"city_tax_total"`
	GrandTotal   float64     `json:"grand_total"`
}

// BedPrice prices one guest on one bed. The discount comes from the rule
// matching the guest type label; no match means no discount and no tax.
func BedPrice(bed models.Bed, guestType, pension string, nights int, rules []models.GuestTypeRule) BedQuote {
	if nights < 0 {
		nights = 0
	}

	base := bed.NightlyPrice(pension)
	quote := BedQuote{BedID: bed.ID, GuestType: guestType, Base: base}

	rule, ok := models.RuleForLabel(rules, guestType)
	if ok {
		quote.DiscountFraction = rule.DiscountPercent / 100
	}

	quote.PerNight = base * (1 - quote.DiscountFraction)
	quote.Total = quote.PerNight * float64(nights)

	if ok && rule.CityTax {
		quote.CityTax = rule.CityTaxAmount * float64(nights)
	}

	return quote
}

// RoomTotal sums BedPrice over every guest assigned to a bed in the room.
// Unassigned guests contribute nothing; the caller blocks checkout while any
// guest is unassigned.
func RoomTotal(room models.Room, guests []models.Guest, pension string, nights int, rules []models.GuestTypeRule) RoomQuote {
	quote := RoomQuote{RoomID: room.ID}

	for _, guest := range guests {
		if guest.RoomID != room.ID || guest.BedID == 0 {
			continue
		}
		bed, ok := room.BedByID(guest.BedID)
		if !ok {
			continue
		}
		bq := BedPrice(bed, guest.Type, pension, nights, rules)
		quote.Beds = append(quote.Beds, bq)
		quote.Total += bq.Total
		quote.CityTax += bq.CityTax
	}

	return quote
}

// PrivacyBlockPrice prices k blocked beds against the positional tier table:
// the n-th blocked bed in a room+night costs tiers[n-1], positions past the
// table clamp to the last tier. Only the count matters, never which physical
// beds were picked.
func PrivacyBlockPrice(blocked int, tiers []float64) float64 {
	if blocked <= 0 || len(tiers) == 0 {
		return 0
	}

	var total float64
	for i := 0; i < blocked; i++ {
		if i < len(tiers) {
			total += tiers[i]
		} else {
			total += tiers[len(tiers)-1]
		}
	}
	return total
}

// PrivacyTotal prices every selection in the cart, one room+night at a time.
func PrivacyTotal(selections []models.PrivacyBlockSelection, tiers []float64) float64 {
	var total float64
	for _, sel := range selections {
		total += PrivacyBlockPrice(len(sel.BedIDs), tiers)
	}
	return total
}

// CartTotal combines room quotes, privacy costs and extra services.
// grand = subtotal + services + cityTax, with subtotal = Σroom + Σprivacy.
// Every surface that displays or charges a total goes through here.
func CartTotal(rooms []RoomQuote, privacyTotal, servicesCost float64) CartQuote {
	quote := CartQuote{
		Rooms:        rooms,
		PrivacyTotal: privacyTotal,
		ServicesCost: servicesCost,
	}

	for _, room := range rooms {
		quote.RoomsTotal += room.Total
		quote.CityTaxTotal += room.CityTax
	}

	quote.Subtotal = quote.RoomsTotal + quote.PrivacyTotal
	quote.GrandTotal = quote.Subtotal + quote.ServicesCost + quote.CityTaxTotal
	return quote
}

// Quote prices a whole cart against the room graph.
func Quote(rooms []models.Room, cart *models.CartState, rules []models.GuestTypeRule, tiers []float64) CartQuote {
	nights := models.NightsBetween(cart.CheckIn, cart.CheckOut)

	var roomQuotes []RoomQuote
	for _, room := range rooms {
		rq := RoomTotal(room, cart.Guests, cart.Pension, nights, rules)
		if len(rq.Beds) == 0 {
			continue
		}
		roomQuotes = append(roomQuotes, rq)
	}

	privacy := PrivacyTotal(cart.PrivacyBlocks, tiers)
	return CartTotal(roomQuotes, privacy, cart.ServicesCost)
}
