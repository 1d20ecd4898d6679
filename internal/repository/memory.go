package repository

import (
	"context"
	"sync"
	"time"

	"ostello/internal/models"
)

type MemoryCartRepository struct {
	carts sync.Map
	ttl   time.Duration
}

func NewMemoryCartRepository(ttl time.Duration) *MemoryCartRepository {
	return &MemoryCartRepository{
		ttl: ttl,
	}
}

type cartEntry struct {
	cart      *models.CartState
	expiresAt time.Time
}

func (r *MemoryCartRepository) GetCart(ctx context.Context, holdID string) (*models.CartState, error) {
	val, ok := r.carts.Load(holdID)
	if !ok {
		return nil, nil
	}
	entry := val.(*cartEntry)
	if r.ttl > 0 && time.Now().After(entry.expiresAt) {
		r.carts.Delete(holdID)
		return nil, nil
	}
	return entry.cart, nil
}

func (r *MemoryCartRepository) SetCart(ctx context.Context, cart *models.CartState) error {
	r.carts.Store(cart.HoldID, &cartEntry{
		cart:      cart,
		expiresAt: time.Now().Add(r.ttl),
	})
	return nil
}

func (r *MemoryCartRepository) ClearCart(ctx context.Context, holdID string) error {
	r.carts.Delete(holdID)
	return nil
}
