package repository

import (
	"context"
	"sync/atomic"
	"time"

	"ostello/internal/domain"
	"ostello/internal/models"

	"github.com/rs/zerolog"
)

// FailoverCartRepository serves carts from Redis and falls back to the
// in-memory repository when Redis is unreachable, retrying the primary once
// a minute. Losing a cart on failover is acceptable; losing the hold is not,
// and holds never live here.
type FailoverCartRepository struct {
	primary   domain.CartRepository
	fallback  domain.CartRepository
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck time.Time
}

func NewFailoverCartRepository(primary, fallback domain.CartRepository, logger *zerolog.Logger) *FailoverCartRepository {
	return &FailoverCartRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverCartRepository) GetCart(ctx context.Context, holdID string) (*models.CartState, error) {
	if !r.isDown.Load() {
		cart, err := r.primary.GetCart(ctx, holdID)
		if err == nil {
			return cart, nil
		}
		r.logger.Error().Err(err).Msg("Primary cart repository failed, falling back to memory")
		r.isDown.Store(true)
		r.lastCheck = time.Now()
	}

	// Try to recover after 1 minute
	if r.isDown.Load() && time.Since(r.lastCheck) > time.Minute {
		cart, err := r.primary.GetCart(ctx, holdID)
		if err == nil {
			r.isDown.Store(false)
			return cart, nil
		}
		r.lastCheck = time.Now()
	}

	return r.fallback.GetCart(ctx, holdID)
}

func (r *FailoverCartRepository) SetCart(ctx context.Context, cart *models.CartState) error {
	if !r.isDown.Load() {
		err := r.primary.SetCart(ctx, cart)
		if err == nil {
			return nil
		}
		r.logger.Error().Err(err).Msg("Primary cart repository failed, falling back to memory")
		r.isDown.Store(true)
		r.lastCheck = time.Now()
	}

	return r.fallback.SetCart(ctx, cart)
}

func (r *FailoverCartRepository) ClearCart(ctx context.Context, holdID string) error {
	if !r.isDown.Load() {
		err := r.primary.ClearCart(ctx, holdID)
		if err == nil {
			return nil
		}
		r.logger.Error().Err(err).Msg("Primary cart repository failed, falling back to memory")
		r.isDown.Store(true)
		r.lastCheck = time.Now()
	}

	return r.fallback.ClearCart(ctx, holdID)
}
