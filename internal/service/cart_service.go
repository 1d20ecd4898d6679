package service

import (
	"context"
	"time"

	"ostello/internal/availability"
	"ostello/internal/database"
	"ostello/internal/domain"
	"ostello/internal/models"

	"github.com/rs/zerolog"
)

// CartService edits the shopping cart attached to a live hold. Edits are
// rejected once the hold leaves the active state; the cart is frozen during
// payment and gone after checkout.
type CartService struct {
	store  domain.Store
	holds  domain.HoldManager
	carts  domain.CartRepository
	logger *zerolog.Logger
}

func NewCartService(store domain.Store, holds domain.HoldManager, carts domain.CartRepository, logger *zerolog.Logger) *CartService {
	return &CartService{
		store:  store,
		holds:  holds,
		carts:  carts,
		logger: logger,
	}
}

// GetCart returns the cart as long as the hold is not dead; during payment
// the cart is still visible, just not editable.
func (s *CartService) GetCart(ctx context.Context, holdID string) (*models.CartState, error) {
	hold, err := s.holds.Get(ctx, holdID)
	if err != nil {
		return nil, err
	}
	if hold.Terminal() {
		return nil, database.ErrHoldTerminal
	}

	cart, err := s.carts.GetCart(ctx, holdID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, ErrCartNotFound
	}
	return cart, nil
}

// SetParty replaces the guest list. Существующие назначения коек сбрасываются:
// состав группы определяет, что вообще можно назначать.
func (s *CartService) SetParty(ctx context.Context, holdID string, guestTypes []string) (*models.CartState, error) {
	cart, err := s.liveCart(ctx, holdID)
	if err != nil {
		return nil, err
	}

	rules := s.store.Rules()
	guests := make([]models.Guest, 0, len(guestTypes))
	for i, label := range guestTypes {
		if _, ok := models.RuleForLabel(rules, label); !ok {
			return nil, ErrUnknownGuestType
		}
		guests = append(guests, models.Guest{ID: int64(i + 1), Type: label})
	}

	cart.Guests = guests
	return cart, s.save(ctx, cart)
}

// AssignBed puts a guest on a bed for the whole stay. The bed must exist,
// be free every night of the range and not be taken by another guest or a
// privacy selection in this cart.
func (s *CartService) AssignBed(ctx context.Context, holdID string, guestID, roomID, bedID int64) (*models.CartState, error) {
	cart, err := s.liveCart(ctx, holdID)
	if err != nil {
		return nil, err
	}

	idx := cart.GuestByID(guestID)
	if idx < 0 {
		return nil, ErrGuestNotFound
	}

	room, ok := s.store.RoomByID(roomID)
	if !ok {
		return nil, database.ErrRoomNotFound
	}
	if _, ok := room.BedByID(bedID); !ok {
		return nil, database.ErrBedNotFound
	}

	if cart.BedTaken(roomID, bedID) {
		return nil, ErrBedTaken
	}
	if s.bedInPrivacySelection(cart, roomID, bedID) {
		return nil, ErrBedTaken
	}

	free, err := s.bedFreeForStay(ctx, cart, bedID)
	if err != nil {
		return nil, err
	}
	if !free {
		return nil, ErrBedUnavailable
	}

	cart.Guests[idx].RoomID = roomID
	cart.Guests[idx].BedID = bedID
	return cart, s.save(ctx, cart)
}

func (s *CartService) UnassignBed(ctx context.Context, holdID string, guestID int64) (*models.CartState, error) {
	cart, err := s.liveCart(ctx, holdID)
	if err != nil {
		return nil, err
	}

	idx := cart.GuestByID(guestID)
	if idx < 0 {
		return nil, ErrGuestNotFound
	}

	cart.Guests[idx].RoomID = 0
	cart.Guests[idx].BedID = 0
	return cart, s.save(ctx, cart)
}

func (s *CartService) SetPension(ctx context.Context, holdID, pension string) (*models.CartState, error) {
	if pension != models.PensionBB && pension != models.PensionHB {
		return nil, ErrUnknownPension
	}

	cart, err := s.liveCart(ctx, holdID)
	if err != nil {
		return nil, err
	}

	cart.Pension = pension
	return cart, s.save(ctx, cart)
}

// SetPrivacyBlocks replaces the privacy selections wholesale. Every selected
// bed must be free on its night and not assigned to a guest in this cart.
func (s *CartService) SetPrivacyBlocks(ctx context.Context, holdID string, selections []models.PrivacyBlockSelection) (*models.CartState, error) {
	cart, err := s.liveCart(ctx, holdID)
	if err != nil {
		return nil, err
	}

	snap, err := s.store.Snapshot(ctx, cart.CheckIn, cart.CheckOut)
	if err != nil {
		return nil, err
	}

	for _, sel := range selections {
		room, ok := s.store.RoomByID(sel.RoomID)
		if !ok {
			return nil, database.ErrRoomNotFound
		}
		if !withinStay(sel.Night, cart.CheckIn, cart.CheckOut) {
			return nil, ErrNightOutOfRange
		}
		for _, bedID := range sel.BedIDs {
			if _, ok := room.BedByID(bedID); !ok {
				return nil, database.ErrBedNotFound
			}
			if cart.BedTaken(sel.RoomID, bedID) {
				return nil, ErrBedTaken
			}
			if !availability.BedFreeOnNight(snap, sel.Night, bedID) {
				return nil, ErrBedUnavailable
			}
		}
	}

	cart.PrivacyBlocks = selections
	return cart, s.save(ctx, cart)
}

func (s *CartService) SetServices(ctx context.Context, holdID string, cost float64) (*models.CartState, error) {
	if cost < 0 {
		return nil, ErrNegativeCost
	}

	cart, err := s.liveCart(ctx, holdID)
	if err != nil {
		return nil, err
	}

	cart.ServicesCost = cost
	return cart, s.save(ctx, cart)
}

// liveCart checks the hold is still active and loads the cart.
func (s *CartService) liveCart(ctx context.Context, holdID string) (*models.CartState, error) {
	hold, err := s.holds.Get(ctx, holdID)
	if err != nil {
		return nil, err
	}
	if hold.Status != models.HoldStatusActive {
		return nil, ErrHoldNotLive
	}

	cart, err := s.carts.GetCart(ctx, holdID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, ErrCartNotFound
	}
	return cart, nil
}

func (s *CartService) save(ctx context.Context, cart *models.CartState) error {
	cart.UpdatedAt = time.Now()
	return s.carts.SetCart(ctx, cart)
}

func (s *CartService) bedFreeForStay(ctx context.Context, cart *models.CartState, bedID int64) (bool, error) {
	snap, err := s.store.Snapshot(ctx, cart.CheckIn, cart.CheckOut)
	if err != nil {
		return false, err
	}

	for _, night := range availability.Nights(cart.CheckIn, cart.CheckOut) {
		if !availability.BedFreeOnNight(snap, night, bedID) {
			return false, nil
		}
	}
	return true, nil
}

func (s *CartService) bedInPrivacySelection(cart *models.CartState, roomID, bedID int64) bool {
	for _, sel := range cart.PrivacyBlocks {
		if sel.RoomID != roomID {
			continue
		}
		for _, id := range sel.BedIDs {
			if id == bedID {
				return true
			}
		}
	}
	return false
}

func withinStay(night, checkIn, checkOut time.Time) bool {
	day := models.DayOf(night)
	return !day.Before(models.DayOf(checkIn)) && day.Before(models.DayOf(checkOut))
}
