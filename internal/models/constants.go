package models

const (
	HoldStatusActive         = "active"
	HoldStatusEnteredPayment = "entered_payment"
	HoldStatusCancelled      = "cancelled"
	HoldStatusExpired        = "expired"
	HoldStatusFinalized      = "finalized"
)

const (
	HoldActionEnterPayment = "enter_payment"
	HoldActionCancel       = "cancel"
	HoldActionFinalize     = "finalize"
)

const (
	ReservationStatusActive    = "active"
	ReservationStatusCancelled = "cancelled"
)

const (
	PensionBB = "bb"
	PensionHB = "hb"
)

const (
	// Search statuses as the shopping UI consumes them.
	AvailabilityBlockedDays = "BLOCKED_DAYS"
	AvailabilitySoldOut     = "sold_out"
	AvailabilityTooLittle   = "too_little_availability"
	AvailabilityEnough      = "enough"
)

const (
	// DefaultHoldTTL время жизни холда в секундах без heartbeat
	DefaultHoldTTL = 900

	// DefaultHeartbeatInterval рекомендуемый интервал heartbeat для клиента
	DefaultHeartbeatInterval = 60

	// DefaultPaymentTimeoutMinutes вторичный таймаут для брошенных оплат
	DefaultPaymentTimeoutMinutes = 120

	// DefaultCartTTL время жизни состояния корзины в Redis
	DefaultCartTTL = 24 * 60 * 60 // 24 часа в секундах

	// DefaultMaxAdvanceDays максимальный горизонт бронирования
	DefaultMaxAdvanceDays = 365

	// DefaultSweepSchedule расписание фонового sweep'а холдов
	DefaultSweepSchedule = "@every 1m"
)
