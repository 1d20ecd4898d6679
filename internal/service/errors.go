package service

import "errors"

var (
	ErrCartNotFound     = errors.New("cart not found")
	ErrHoldNotLive      = errors.New("hold is not active")
	ErrGuestNotFound    = errors.New("guest not found in cart")
	ErrUnknownGuestType = errors.New("unknown guest type")
	ErrUnknownPension   = errors.New("unknown pension type")
	ErrBedUnavailable   = errors.New("bed is not available for the stay")
	ErrBedTaken         = errors.New("bed is already assigned in this cart")
	ErrPartyIncomplete  = errors.New("every guest needs a bed before checkout")
	ErrNegativeCost     = errors.New("cost must not be negative")
	ErrNightOutOfRange  = errors.New("night is outside the stay range")
)
