package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Techyana/RWP-Pilot/models"
)

func seedItem(t *testing.T, store *MemoryStore, id string, quantity int) {
	t.Helper()
	require.NoError(t, store.Create(context.Background(), &models.Item{
		ID:                id,
		Kind:              models.KindPart,
		Name:              "Part " + id,
		Status:            models.StatusAvailable,
		Quantity:          quantity,
		AvailableQuantity: quantity,
		CreatedAt:         time.Now(),
	}))
}

func TestClaimUnit(t *testing.T) {
	ctx := context.Background()

	t.Run("decrement is conditional on available stock", func(t *testing.T) {
		store := NewMemoryStore()
		seedItem(t, store, "p1", 1)

		item, err := store.ClaimUnit(ctx, "p1", "D. Lam", time.Now())
		require.NoError(t, err)
		assert.Equal(t, 0, item.AvailableQuantity)
		assert.Equal(t, models.StatusPendingCollection, item.Status)

		_, err = store.ClaimUnit(ctx, "p1", "M. Bek", time.Now())
		assert.ErrorIs(t, err, ErrNoStock)
	})

	t.Run("missing item", func(t *testing.T) {
		store := NewMemoryStore()
		_, err := store.ClaimUnit(ctx, "absent", "D. Lam", time.Now())
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("claim drops a pending request marker", func(t *testing.T) {
		store := NewMemoryStore()
		seedItem(t, store, "p1", 1)
		_, err := store.MarkRequested(ctx, "p1", "u-mbek", time.Now())
		require.NoError(t, err)

		item, err := store.ClaimUnit(ctx, "p1", "D. Lam", time.Now())
		require.NoError(t, err)
		assert.Empty(t, item.RequestedByID)
		assert.Nil(t, item.RequestedAt)

		returned, err := store.ReturnUnit(ctx, "p1")
		require.NoError(t, err)
		assert.Equal(t, models.StatusAvailable, returned.Status)
	})

	t.Run("racing claims never oversell", func(t *testing.T) {
		store := NewMemoryStore()
		seedItem(t, store, "p1", 5)

		const attempts = 50
		var wg sync.WaitGroup
		var mu sync.Mutex
		var wins int
		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := store.ClaimUnit(ctx, "p1", "racer", time.Now()); err == nil {
					mu.Lock()
					wins++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 5, wins)
		item, err := store.Get(ctx, "p1")
		require.NoError(t, err)
		assert.Equal(t, 0, item.AvailableQuantity)
	})
}

func TestCollectAndReturnUnits(t *testing.T) {
	ctx := context.Background()

	t.Run("collect removes a held unit", func(t *testing.T) {
		store := NewMemoryStore()
		seedItem(t, store, "p1", 2)
		_, err := store.ClaimUnit(ctx, "p1", "D. Lam", time.Now())
		require.NoError(t, err)

		item, err := store.CollectUnit(ctx, "p1")
		require.NoError(t, err)
		assert.Equal(t, 1, item.Quantity)
		assert.Equal(t, 1, item.AvailableQuantity)
		assert.Equal(t, models.StatusAvailable, item.Status)
	})

	t.Run("collect without a claimed unit conflicts", func(t *testing.T) {
		store := NewMemoryStore()
		seedItem(t, store, "p1", 2)

		_, err := store.CollectUnit(ctx, "p1")
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("return restores availability but never past the total", func(t *testing.T) {
		store := NewMemoryStore()
		seedItem(t, store, "p1", 1)
		_, err := store.ClaimUnit(ctx, "p1", "D. Lam", time.Now())
		require.NoError(t, err)

		item, err := store.ReturnUnit(ctx, "p1")
		require.NoError(t, err)
		assert.Equal(t, 1, item.AvailableQuantity)
		assert.Equal(t, models.StatusAvailable, item.Status)

		_, err = store.ReturnUnit(ctx, "p1")
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("last unit collected ends at COLLECTED", func(t *testing.T) {
		store := NewMemoryStore()
		seedItem(t, store, "p1", 1)
		_, err := store.ClaimUnit(ctx, "p1", "D. Lam", time.Now())
		require.NoError(t, err)

		item, err := store.CollectUnit(ctx, "p1")
		require.NoError(t, err)
		assert.Equal(t, 0, item.Quantity)
		assert.Equal(t, models.StatusCollected, item.Status)
	})
}

func TestMarkRequestedAndAddStock(t *testing.T) {
	ctx := context.Background()

	t.Run("only available items can be requested", func(t *testing.T) {
		store := NewMemoryStore()
		seedItem(t, store, "p1", 1)

		at := time.Now()
		item, err := store.MarkRequested(ctx, "p1", "u-dlam", at)
		require.NoError(t, err)
		assert.Equal(t, models.StatusRequested, item.Status)
		assert.Equal(t, "u-dlam", item.RequestedByID)

		_, err = store.MarkRequested(ctx, "p1", "u-mbek", at)
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("restock clears the request", func(t *testing.T) {
		store := NewMemoryStore()
		seedItem(t, store, "p1", 1)
		_, err := store.MarkRequested(ctx, "p1", "u-dlam", time.Now())
		require.NoError(t, err)

		item, err := store.AddStock(ctx, "p1", 3)
		require.NoError(t, err)
		assert.Equal(t, 4, item.Quantity)
		assert.Equal(t, models.StatusAvailable, item.Status)
		assert.Empty(t, item.RequestedByID)
		assert.Nil(t, item.RequestedAt)
	})
}

func TestLedgerAppendAndQuery(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

	entry := func(id string, typ models.TransactionType, delta int, userID string, at time.Time) *models.Transaction {
		return &models.Transaction{
			ID:            id,
			ItemID:        "p1",
			ItemKind:      models.KindPart,
			Type:          typ,
			UserID:        userID,
			QuantityDelta: delta,
			CreatedAt:     at,
		}
	}

	t.Run("append rejects malformed deltas", func(t *testing.T) {
		store := NewMemoryStore()
		err := store.Append(ctx, entry("t1", models.TxClaim, -3, "u1", base))
		require.Error(t, err)

		err = store.Append(ctx, entry("t2", models.TxAdd, 0, "u1", base))
		require.Error(t, err)
	})

	t.Run("query is newest first with stable ties", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.Append(ctx, entry("t1", models.TxAdd, 2, "u1", base)))
		require.NoError(t, store.Append(ctx, entry("t2", models.TxClaim, -1, "u1", base.Add(time.Hour))))
		require.NoError(t, store.Append(ctx, entry("t3", models.TxClaim, -1, "u2", base.Add(time.Hour))))

		out, err := store.QueryRecent(ctx, LedgerQuery{})
		require.NoError(t, err)
		require.Len(t, out, 3)
		// t2 and t3 share a timestamp; insertion order is preserved
		assert.Equal(t, []string{"t2", "t3", "t1"}, []string{out[0].ID, out[1].ID, out[2].ID})
	})

	t.Run("window excludes old entries, zero hours is unbounded", func(t *testing.T) {
		store := NewMemoryStore()
		now := base.Add(24 * time.Hour)
		store.SetClock(func() time.Time { return now })

		require.NoError(t, store.Append(ctx, entry("old", models.TxAdd, 1, "u1", base)))
		require.NoError(t, store.Append(ctx, entry("new", models.TxClaim, -1, "u1", now.Add(-time.Hour))))

		out, err := store.QueryRecent(ctx, LedgerQuery{Hours: 12})
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, "new", out[0].ID)

		out, err = store.QueryRecent(ctx, LedgerQuery{})
		require.NoError(t, err)
		assert.Len(t, out, 2)
	})

	t.Run("filters compose", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.Append(ctx, entry("t1", models.TxAdd, 1, "u1", base)))
		require.NoError(t, store.Append(ctx, entry("t2", models.TxClaim, -1, "u1", base.Add(time.Minute))))
		require.NoError(t, store.Append(ctx, entry("t3", models.TxClaim, -1, "u2", base.Add(2*time.Minute))))

		out, err := store.QueryRecent(ctx, LedgerQuery{
			Types:  []models.TransactionType{models.TxClaim},
			UserID: "u1",
		})
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, "t2", out[0].ID)
	})

	t.Run("list by item is oldest first", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.Append(ctx, entry("t1", models.TxAdd, 1, "u1", base)))
		require.NoError(t, store.Append(ctx, entry("t2", models.TxClaim, -1, "u1", base.Add(time.Minute))))

		out, err := store.ListByItem(ctx, "p1")
		require.NoError(t, err)
		require.Len(t, out, 2)
		assert.Equal(t, "t1", out[0].ID)
	})
}

func TestNotificationsStore(t *testing.T) {
	ctx := context.Background()

	t.Run("mark read scopes to the owner", func(t *testing.T) {
		store := NewMemoryStore()
		repo := store.Notifications()

		require.NoError(t, repo.Create(ctx, &models.Notification{ID: "n1", UserID: "u1", Timestamp: time.Now()}))

		err := repo.MarkRead(ctx, "n1", "u2")
		assert.ErrorIs(t, err, ErrNotFound)

		require.NoError(t, repo.MarkRead(ctx, "n1", "u1"))
		list, err := repo.ListByUser(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.True(t, list[0].IsRead)
	})

	t.Run("mark all read", func(t *testing.T) {
		store := NewMemoryStore()
		repo := store.Notifications()

		require.NoError(t, repo.Create(ctx, &models.Notification{ID: "n1", UserID: "u1", Timestamp: time.Now()}))
		require.NoError(t, repo.Create(ctx, &models.Notification{ID: "n2", UserID: "u1", Timestamp: time.Now()}))
		require.NoError(t, repo.Create(ctx, &models.Notification{ID: "n3", UserID: "u2", Timestamp: time.Now()}))

		require.NoError(t, repo.MarkAllRead(ctx, "u1"))

		list, _ := repo.ListByUser(ctx, "u1")
		for _, n := range list {
			assert.True(t, n.IsRead)
		}
		other, _ := repo.ListByUser(ctx, "u2")
		require.Len(t, other, 1)
		assert.False(t, other[0].IsRead)
	})
}
