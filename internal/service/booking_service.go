package service

import (
	"context"
	"time"

	"ostello/internal/availability"
	"ostello/internal/database"
	"ostello/internal/domain"
	"ostello/internal/events"
	"ostello/internal/metrics"
	"ostello/internal/models"
	"ostello/internal/pricing"

	"github.com/rs/zerolog"
)

// BookingService drives the shopping flow end to end: search, hold, cart,
// quote, checkout. It never touches SQL directly; all contention sits behind
// the store and the hold manager.
type BookingService struct {
	store        domain.Store
	holds        domain.HoldManager
	carts        domain.CartRepository
	eventBus     domain.EventPublisher
	privacyTiers []float64
	logger       *zerolog.Logger
}

func NewBookingService(store domain.Store, holds domain.HoldManager, carts domain.CartRepository, eventBus domain.EventPublisher, privacyTiers []float64, logger *zerolog.Logger) *BookingService {
	return &BookingService{
		store:        store,
		holds:        holds,
		carts:        carts,
		eventBus:     eventBus,
		privacyTiers: privacyTiers,
		logger:       logger,
	}
}

// Search computes availability for a party over a date range.
func (s *BookingService) Search(ctx context.Context, checkIn, checkOut time.Time, guests int) (*models.SearchResult, error) {
	if models.NightsBetween(checkIn, checkOut) < 1 {
		return nil, database.ErrInvalidRange
	}

	snap, err := s.store.Snapshot(ctx, checkIn, checkOut)
	if err != nil {
		return nil, err
	}

	result := availability.Calculate(snap, guests)
	metrics.IncSearch(result.Status)
	return result, nil
}

// StartBooking acquires a hold for the range and opens an empty cart on it.
// Дальше покупатель наполняет корзину через CartService.
func (s *BookingService) StartBooking(ctx context.Context, checkIn, checkOut time.Time) (*models.Hold, error) {
	hold, err := s.holds.Acquire(ctx, checkIn, checkOut)
	if err != nil {
		return nil, err
	}

	cart := &models.CartState{
		HoldID:    hold.ID,
		CheckIn:   hold.CheckIn,
		CheckOut:  hold.CheckOut,
		Pension:   models.PensionBB,
		UpdatedAt: time.Now(),
	}
	if err := s.carts.SetCart(ctx, cart); err != nil {
		// Холд без корзины бесполезен, отпускаем его сразу
		if cancelErr := s.holds.Transition(ctx, hold.ID, models.HoldActionCancel); cancelErr != nil {
			s.logger.Error().Err(cancelErr).Str("hold_id", hold.ID).Msg("failed to cancel hold after cart error")
		}
		return nil, err
	}

	return hold, nil
}

// Quote prices the current cart. Allowed while the hold is alive, including
// entered_payment so the gateway page can re-display the amount.
func (s *BookingService) Quote(ctx context.Context, holdID string) (pricing.CartQuote, error) {
	hold, err := s.holds.Get(ctx, holdID)
	if err != nil {
		return pricing.CartQuote{}, err
	}
	if hold.Terminal() {
		return pricing.CartQuote{}, database.ErrHoldTerminal
	}

	cart, err := s.carts.GetCart(ctx, holdID)
	if err != nil {
		return pricing.CartQuote{}, err
	}
	if cart == nil {
		return pricing.CartQuote{}, ErrCartNotFound
	}

	quote := pricing.Quote(s.store.Rooms(), cart, s.store.Rules(), s.privacyTiers)
	metrics.IncQuote()
	return quote, nil
}

// EnterPayment freezes the cart and moves the hold to entered_payment. From
// here the hold no longer auto-expires; only checkout, cancel or the stale
// payment sweep end it.
func (s *BookingService) EnterPayment(ctx context.Context, holdID string) error {
	cart, err := s.carts.GetCart(ctx, holdID)
	if err != nil {
		return err
	}
	if cart == nil {
		return ErrCartNotFound
	}
	if !cart.AllAssigned() {
		return ErrPartyIncomplete
	}

	return s.holds.Transition(ctx, holdID, models.HoldActionEnterPayment)
}

// Finalize converts the cart into a reservation and finalizes the hold in
// one store transaction. The quote is recomputed server-side at this moment;
// whatever the client displayed earlier is advisory.
func (s *BookingService) Finalize(ctx context.Context, holdID, guestName, email, phone string) (*models.Reservation, error) {
	hold, err := s.holds.Get(ctx, holdID)
	if err != nil {
		return nil, err
	}

	cart, err := s.carts.GetCart(ctx, holdID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, ErrCartNotFound
	}
	if !cart.AllAssigned() {
		return nil, ErrPartyIncomplete
	}

	quote := pricing.Quote(s.store.Rooms(), cart, s.store.Rules(), s.privacyTiers)

	res := &models.Reservation{
		HoldID:    holdID,
		GuestName: guestName,
		Email:     email,
		Phone:     phone,
		CheckIn:   hold.CheckIn,
		CheckOut:  hold.CheckOut,
		Pension:   cart.Pension,
		Total:     quote.GrandTotal,
		CityTax:   quote.CityTaxTotal,
	}

	beds, blocks := expandCartRows(cart, hold.CheckIn, hold.CheckOut)
	if err := s.store.FinalizeReservation(ctx, res, beds, blocks); err != nil {
		return nil, err
	}

	if err := s.carts.ClearCart(ctx, holdID); err != nil {
		s.logger.Error().Err(err).Str("hold_id", holdID).Msg("failed to clear cart after checkout")
	}

	s.publishReservationEvent(events.EventReservationCreated, res)

	s.logger.Info().
		Int64("reservation_id", res.ID).
		Str("hold_id", holdID).
		Float64("total", res.Total).
		Msg("reservation created")

	return res, nil
}

// Abandon cancels the hold and discards the cart.
func (s *BookingService) Abandon(ctx context.Context, holdID string) error {
	if err := s.holds.Transition(ctx, holdID, models.HoldActionCancel); err != nil {
		return err
	}
	if err := s.carts.ClearCart(ctx, holdID); err != nil {
		s.logger.Error().Err(err).Str("hold_id", holdID).Msg("failed to clear cart after cancel")
	}
	return nil
}

func (s *BookingService) GetHold(ctx context.Context, holdID string) (*models.Hold, error) {
	return s.holds.Get(ctx, holdID)
}

func (s *BookingService) Heartbeat(ctx context.Context, holdID string) error {
	return s.holds.Heartbeat(ctx, holdID)
}

func (s *BookingService) GetReservation(ctx context.Context, id int64) (*models.Reservation, error) {
	return s.store.GetReservation(ctx, id)
}

// CancelReservation releases the reservation's beds back to inventory.
func (s *BookingService) CancelReservation(ctx context.Context, id int64) error {
	if err := s.store.CancelReservation(ctx, id); err != nil {
		return err
	}

	res, err := s.store.GetReservation(ctx, id)
	if err == nil {
		s.publishReservationEvent(events.EventReservationCanceled, res)
	}
	return nil
}

func (s *BookingService) Rooms() []models.Room {
	return s.store.Rooms()
}

func (s *BookingService) GetOccupancy(ctx context.Context, startDate time.Time, days int) ([]models.OccupancyDay, error) {
	return s.store.GetOccupancy(ctx, startDate, days)
}

func (s *BookingService) CreateBlockedDay(ctx context.Context, day *models.BlockedDay) error {
	return s.store.CreateBlockedDay(ctx, day)
}

func (s *BookingService) DeleteBlockedDay(ctx context.Context, day time.Time) error {
	return s.store.DeleteBlockedDay(ctx, day)
}

func (s *BookingService) ListBlockedDays(ctx context.Context, start, end time.Time) ([]models.BlockedDay, error) {
	return s.store.ListBlockedDays(ctx, start, end)
}

// expandCartRows unrolls cart assignments into per-night rows: каждый гость
// занимает свою койку каждую ночь диапазона.
func expandCartRows(cart *models.CartState, checkIn, checkOut time.Time) ([]models.ReservationBed, []models.PrivacyBlock) {
	var beds []models.ReservationBed
	for _, guest := range cart.Guests {
		if !guest.Assigned() {
			continue
		}
		for _, night := range availability.Nights(checkIn, checkOut) {
			beds = append(beds, models.ReservationBed{
				RoomID: guest.RoomID,
				BedID:  guest.BedID,
				Night:  night,
			})
		}
	}

	var blocks []models.PrivacyBlock
	for _, sel := range cart.PrivacyBlocks {
		for _, bedID := range sel.BedIDs {
			blocks = append(blocks, models.PrivacyBlock{
				RoomID: sel.RoomID,
				BedID:  bedID,
				Night:  sel.Night,
			})
		}
	}

	return beds, blocks
}

func (s *BookingService) publishReservationEvent(eventType string, res *models.Reservation) {
	if s.eventBus == nil {
		return
	}

	payload := events.ReservationEventPayload{
		ReservationID: res.ID,
		HoldID:        res.HoldID,
		GuestName:     res.GuestName,
		CheckIn:       res.CheckIn,
		CheckOut:      res.CheckOut,
		Total:         res.Total,
		CityTax:       res.CityTax,
		Status:        res.Status,
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("reservation_id", res.ID).Msg("publish event error")
	}
}
