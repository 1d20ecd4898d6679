package repository

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"ostello/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockCartRepo struct {
	mock.Mock
}

func (m *mockCartRepo) GetCart(ctx context.Context, holdID string) (*models.CartState, error) {
	args := m.Called(ctx, holdID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CartState), args.Error(1)
}

func (m *mockCartRepo) SetCart(ctx context.Context, cart *models.CartState) error {
	args := m.Called(ctx, cart)
	return args.Error(0)
}

func (m *mockCartRepo) ClearCart(ctx context.Context, holdID string) error {
	args := m.Called(ctx, holdID)
	return args.Error(0)
}

func TestFailoverCartRepository(t *testing.T) {
	primary := new(mockCartRepo)
	fallback := new(mockCartRepo)
	logger := zerolog.New(io.Discard)
	repo := NewFailoverCartRepository(primary, fallback, &logger)
	ctx := context.Background()

	t.Run("PrimarySuccess", func(t *testing.T) {
		cart := &models.CartState{HoldID: "h1"}
		primary.On("GetCart", ctx, "h1").Return(cart, nil).Once()

		got, err := repo.GetCart(ctx, "h1")
		assert.NoError(t, err)
		assert.Equal(t, cart, got)
		primary.AssertExpectations(t)
	})

	t.Run("PrimaryFailFallbackSuccess", func(t *testing.T) {
		cart := &models.CartState{HoldID: "h2"}
		primary.On("GetCart", ctx, "h2").Return(nil, errors.New("fail")).Once()
		fallback.On("GetCart", ctx, "h2").Return(cart, nil).Once()

		got, err := repo.GetCart(ctx, "h2")
		assert.NoError(t, err)
		assert.Equal(t, cart, got)
		assert.True(t, repo.isDown.Load())
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("RecoveryAttempt", func(t *testing.T) {
		repo.isDown.Store(true)
		repo.lastCheck = time.Now().Add(-2 * time.Minute)

		cart := &models.CartState{HoldID: "h3"}
		primary.On("GetCart", ctx, "h3").Return(cart, nil).Once()

		got, err := repo.GetCart(ctx, "h3")
		assert.NoError(t, err)
		assert.Equal(t, cart, got)
		assert.False(t, repo.isDown.Load())
		primary.AssertExpectations(t)
	})

	t.Run("RecoveryAttemptFail", func(t *testing.T) {
		repo.isDown.Store(true)
		repo.lastCheck = time.Now().Add(-2 * time.Minute)

		primary.On("GetCart", ctx, "h33").Return(nil, errors.New("still fail")).Once()
		fallback.On("GetCart", ctx, "h33").Return(nil, nil).Once()

		_, err := repo.GetCart(ctx, "h33")
		assert.NoError(t, err)
		assert.True(t, repo.isDown.Load())
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("SetCartSuccess", func(t *testing.T) {
		repo.isDown.Store(false)
		cart := &models.CartState{HoldID: "h77"}
		primary.On("SetCart", ctx, cart).Return(nil).Once()

		err := repo.SetCart(ctx, cart)
		assert.NoError(t, err)
		primary.AssertExpectations(t)
	})

	t.Run("ClearCartSuccess", func(t *testing.T) {
		repo.isDown.Store(false)
		primary.On("ClearCart", ctx, "h88").Return(nil).Once()

		err := repo.ClearCart(ctx, "h88")
		assert.NoError(t, err)
		primary.AssertExpectations(t)
	})

	t.Run("SetCartFailover", func(t *testing.T) {
		repo.isDown.Store(false)
		cart := &models.CartState{HoldID: "h4"}
		primary.On("SetCart", ctx, cart).Return(errors.New("fail")).Once()
		fallback.On("SetCart", ctx, cart).Return(nil).Once()

		err := repo.SetCart(ctx, cart)
		assert.NoError(t, err)
		assert.True(t, repo.isDown.Load())
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("ClearCartFailover", func(t *testing.T) {
		repo.isDown.Store(false)
		primary.On("ClearCart", ctx, "h5").Return(errors.New("fail")).Once()
		fallback.On("ClearCart", ctx, "h5").Return(nil).Once()

		err := repo.ClearCart(ctx, "h5")
		assert.NoError(t, err)
		assert.True(t, repo.isDown.Load())
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("SetCartAlreadyDown", func(t *testing.T) {
		repo.isDown.Store(true)
		cart := &models.CartState{HoldID: "h44"}
		fallback.On("SetCart", ctx, cart).Return(nil).Once()

		err := repo.SetCart(ctx, cart)
		assert.NoError(t, err)
		fallback.AssertExpectations(t)
	})

	t.Run("ClearCartAlreadyDown", func(t *testing.T) {
		repo.isDown.Store(true)
		fallback.On("ClearCart", ctx, "h55").Return(nil).Once()

		err := repo.ClearCart(ctx, "h55")
		assert.NoError(t, err)
		fallback.AssertExpectations(t)
	})
}
