//go:build integration

package ledger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "pacto/pkg/domain"
	"pacto/pkg/platform/sentinel"
	"pacto/pkg/testutil/containers"
)

func TestPostgresStoreCredits(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	store := NewPostgresStore(pg.DB)
	ctx := context.Background()

	t.Run("missing entry", func(t *testing.T) {
		_, err := store.Get(ctx, id.NewUserID())
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("add accumulates via upsert", func(t *testing.T) {
		userID := id.NewUserID()
		now := time.Now().UTC()

		quantity, err := store.AddCredits(ctx, userID, 10, now)
		require.NoError(t, err)
		assert.Equal(t, 10, quantity)

		quantity, err = store.AddCredits(ctx, userID, 5, now.Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 15, quantity)

		entry, err := store.Get(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, 15, entry.Quantity)
	})

	t.Run("consume is guarded at zero", func(t *testing.T) {
		userID := id.NewUserID()
		_, err := store.AddCredits(ctx, userID, 1, time.Now().UTC())
		require.NoError(t, err)

		require.NoError(t, store.ConsumeOne(ctx, userID))
		assert.ErrorIs(t, store.ConsumeOne(ctx, userID), sentinel.ErrInsufficient)
		assert.ErrorIs(t, store.ConsumeOne(ctx, id.NewUserID()), sentinel.ErrInsufficient)
	})

	t.Run("concurrent spenders get one credit total", func(t *testing.T) {
		userID := id.NewUserID()
		_, err := store.AddCredits(ctx, userID, 1, time.Now().UTC())
		require.NoError(t, err)

		const spenders = 8
		var wg sync.WaitGroup
		results := make(chan error, spenders)
		for i := 0; i < spenders; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results <- store.ConsumeOne(ctx, userID)
			}()
		}
		wg.Wait()
		close(results)

		var ok, insufficient int
		for err := range results {
			switch {
			case err == nil:
				ok++
			default:
				require.ErrorIs(t, err, sentinel.ErrInsufficient)
				insufficient++
			}
		}
		assert.Equal(t, 1, ok)
		assert.Equal(t, spenders-1, insufficient)
	})
}
