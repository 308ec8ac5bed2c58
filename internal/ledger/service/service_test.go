package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pacto/internal/ledger"
	id "pacto/pkg/domain"
	dErrors "pacto/pkg/domain-errors"
)

type fakeSubscriptions struct {
	subscribed map[id.UserID]bool
}

func (f *fakeSubscriptions) IsSubscribed(_ context.Context, userID id.UserID) (bool, error) {
	return f.subscribed[userID], nil
}

func newTestService(subscribed map[id.UserID]bool) (*Service, *ledger.InMemoryStore) {
	store := ledger.NewInMemoryStore()
	if subscribed == nil {
		subscribed = map[id.UserID]bool{}
	}
	svc := NewService(store, &fakeSubscriptions{subscribed: subscribed}, nil)
	return svc, store
}

func TestGetBalance(t *testing.T) {
	ctx := context.Background()

	t.Run("no ledger row means zero quantity, not an error", func(t *testing.T) {
		svc, _ := newTestService(nil)
		balance, err := svc.GetBalance(ctx, id.NewUserID())
		require.NoError(t, err)
		assert.Equal(t, 0, balance.Quantity)
		assert.False(t, balance.IsSubscribed)
		assert.False(t, balance.CanCreateConsent())
	})

	t.Run("subscription allows creation without credits", func(t *testing.T) {
		userID := id.NewUserID()
		svc, _ := newTestService(map[id.UserID]bool{userID: true})
		balance, err := svc.GetBalance(ctx, userID)
		require.NoError(t, err)
		assert.True(t, balance.CanCreateConsent())
	})

	t.Run("reports stored quantity", func(t *testing.T) {
		userID := id.NewUserID()
		svc, _ := newTestService(nil)
		_, err := svc.AddCredits(ctx, userID, 3)
		require.NoError(t, err)

		balance, err := svc.GetBalance(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, 3, balance.Quantity)
		assert.True(t, balance.CanCreateConsent())
	})
}

func TestConsumeOneCredit(t *testing.T) {
	ctx := context.Background()

	t.Run("fails with insufficient credit when empty", func(t *testing.T) {
		svc, _ := newTestService(nil)
		err := svc.ConsumeOneCredit(ctx, id.NewUserID())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInsufficientCredit))
	})

	t.Run("decrements down to zero, then fails", func(t *testing.T) {
		userID := id.NewUserID()
		svc, _ := newTestService(nil)
		_, err := svc.AddCredits(ctx, userID, 2)
		require.NoError(t, err)

		require.NoError(t, svc.ConsumeOneCredit(ctx, userID))
		require.NoError(t, svc.ConsumeOneCredit(ctx, userID))

		err = svc.ConsumeOneCredit(ctx, userID)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInsufficientCredit))

		balance, err := svc.GetBalance(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, 0, balance.Quantity)
	})

	t.Run("concurrent consumers never overspend", func(t *testing.T) {
		userID := id.NewUserID()
		svc, _ := newTestService(nil)
		_, err := svc.AddCredits(ctx, userID, 1)
		require.NoError(t, err)

		const attempts = 16
		var wg sync.WaitGroup
		var mu sync.Mutex
		successes := 0
		for range attempts {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := svc.ConsumeOneCredit(ctx, userID); err == nil {
					mu.Lock()
					successes++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, successes, "exactly one consumer may win the last credit")
		balance, err := svc.GetBalance(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, 0, balance.Quantity)
	})
}

func TestAddCredits(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects non-positive amounts", func(t *testing.T) {
		svc, _ := newTestService(nil)
		_, err := svc.AddCredits(ctx, id.NewUserID(), 0)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("creates row lazily and accumulates", func(t *testing.T) {
		userID := id.NewUserID()
		svc, store := newTestService(nil)

		quantity, err := svc.AddCredits(ctx, userID, 1)
		require.NoError(t, err)
		assert.Equal(t, 1, quantity)

		quantity, err = svc.AddCredits(ctx, userID, 10)
		require.NoError(t, err)
		assert.Equal(t, 11, quantity)

		entry, err := store.Get(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, 11, entry.Quantity)
	})

	t.Run("stamps purchase time from clock", func(t *testing.T) {
		userID := id.NewUserID()
		store := ledger.NewInMemoryStore()
		fixed := time.Date(2026, 2, 14, 12, 0, 0, 0, time.UTC)
		svc := NewService(store, &fakeSubscriptions{subscribed: map[id.UserID]bool{}}, nil,
			WithClock(func() time.Time { return fixed }))

		_, err := svc.AddCredits(ctx, userID, 1)
		require.NoError(t, err)

		entry, err := store.Get(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, fixed, entry.PurchasedAt)
	})
}
