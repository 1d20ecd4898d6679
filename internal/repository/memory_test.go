package repository

import (
	"context"
	"testing"
	"time"

	"ostello/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCartRepository(t *testing.T) {
	repo := NewMemoryCartRepository(time.Hour)
	ctx := context.Background()

	t.Run("SetAndGetCart", func(t *testing.T) {
		cart := &models.CartState{HoldID: "h123", Pension: models.PensionBB}
		err := repo.SetCart(ctx, cart)
		require.NoError(t, err)

		got, err := repo.GetCart(ctx, "h123")
		require.NoError(t, err)
		assert.Equal(t, cart, got)
	})

	t.Run("ClearCart", func(t *testing.T) {
		err := repo.ClearCart(ctx, "h123")
		require.NoError(t, err)
		got, _ := repo.GetCart(ctx, "h123")
		assert.Nil(t, got)
	})

	t.Run("TTLExpiry", func(t *testing.T) {
		short := NewMemoryCartRepository(10 * time.Millisecond)
		cart := &models.CartState{HoldID: "h-ttl"}
		require.NoError(t, short.SetCart(ctx, cart))

		time.Sleep(20 * time.Millisecond)

		got, err := short.GetCart(ctx, "h-ttl")
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}
