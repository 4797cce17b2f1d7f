package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "github.com/Techyana/RWP-Pilot/common/errors"
	"github.com/Techyana/RWP-Pilot/models"
	"github.com/Techyana/RWP-Pilot/repository"
)

type projectionFixture struct {
	*fixture
	projection *ProjectionService
	now        time.Time
}

func newProjectionFixture(t *testing.T) *projectionFixture {
	t.Helper()
	pf := &projectionFixture{
		fixture: newFixture(t),
		now:     time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return pf.now }
	pf.store.SetClock(clock)
	pf.inventory.SetClock(clock)
	pf.projection = NewProjectionService(pf.store, pf.store.Devices(), pf.store, nil, 0, zap.NewNop())
	return pf
}

func (pf *projectionFixture) advance(d time.Duration) { pf.now = pf.now.Add(d) }

func TestMyActivity(t *testing.T) {
	ctx := context.Background()

	t.Run("entries older than the window drop out once closed", func(t *testing.T) {
		pf := newProjectionFixture(t)
		part := pf.addPart(t, "Fuser Unit", 5)

		// old claim, returned the same day
		_, err := pf.inventory.Claim(ctx, part.ID, engineerDlam, models.ClaimRequest{})
		require.NoError(t, err)
		_, err = pf.inventory.Return(ctx, part.ID, "", "not needed", engineerDlam)
		require.NoError(t, err)

		pf.advance(13 * time.Hour)

		// fresh claim inside the window
		_, err = pf.inventory.Claim(ctx, part.ID, engineerDlam, models.ClaimRequest{})
		require.NoError(t, err)

		activity, err := pf.projection.MyActivity(ctx, engineerDlam.ID, 12, "")
		require.NoError(t, err)
		require.Len(t, activity, 1)
		assert.Equal(t, models.TxClaim, activity[0].Type)
		assert.True(t, activity[0].Open)
	})

	t.Run("open claims stay visible past the window", func(t *testing.T) {
		pf := newProjectionFixture(t)
		part := pf.addPart(t, "Transfer Belt", 2)

		_, err := pf.inventory.Claim(ctx, part.ID, engineerDlam, models.ClaimRequest{})
		require.NoError(t, err)

		pf.advance(48 * time.Hour)

		activity, err := pf.projection.MyActivity(ctx, engineerDlam.ID, 12, "")
		require.NoError(t, err)
		require.Len(t, activity, 1)
		assert.True(t, activity[0].Open)
		require.NotNil(t, activity[0].Item)
		assert.Equal(t, part.ID, activity[0].Item.ID)
	})

	t.Run("stale open claims come back newest first", func(t *testing.T) {
		pf := newProjectionFixture(t)
		fuser := pf.addPart(t, "Fuser Unit", 2)
		belt := pf.addPart(t, "Transfer Belt", 2)
		drum := pf.addPart(t, "Drum Unit", 2)

		_, err := pf.inventory.Claim(ctx, fuser.ID, engineerDlam, models.ClaimRequest{})
		require.NoError(t, err)
		pf.advance(time.Hour)
		_, err = pf.inventory.Claim(ctx, belt.ID, engineerDlam, models.ClaimRequest{})
		require.NoError(t, err)
		pf.advance(time.Hour)
		_, err = pf.inventory.Claim(ctx, drum.ID, engineerDlam, models.ClaimRequest{})
		require.NoError(t, err)

		pf.advance(48 * time.Hour)

		activity, err := pf.projection.MyActivity(ctx, engineerDlam.ID, 12, "")
		require.NoError(t, err)
		require.Len(t, activity, 3)
		assert.Equal(t, drum.ID, activity[0].ItemID)
		assert.Equal(t, belt.ID, activity[1].ItemID)
		assert.Equal(t, fuser.ID, activity[2].ItemID)
	})

	t.Run("only the viewer's entries appear", func(t *testing.T) {
		pf := newProjectionFixture(t)
		part := pf.addPart(t, "Drum Unit", 4)

		_, err := pf.inventory.Claim(ctx, part.ID, engineerDlam, models.ClaimRequest{})
		require.NoError(t, err)
		_, err = pf.inventory.Claim(ctx, part.ID, engineerMbek, models.ClaimRequest{})
		require.NoError(t, err)

		activity, err := pf.projection.MyActivity(ctx, engineerMbek.ID, 12, "")
		require.NoError(t, err)
		require.Len(t, activity, 1)
		assert.Equal(t, engineerMbek.ID, activity[0].UserID)
	})

	t.Run("search narrows by item name", func(t *testing.T) {
		pf := newProjectionFixture(t)
		fuser := pf.addPart(t, "Fuser Unit", 2)
		belt := pf.addPart(t, "Transfer Belt", 2)

		_, err := pf.inventory.Claim(ctx, fuser.ID, engineerDlam, models.ClaimRequest{})
		require.NoError(t, err)
		_, err = pf.inventory.Claim(ctx, belt.ID, engineerDlam, models.ClaimRequest{})
		require.NoError(t, err)

		activity, err := pf.projection.MyActivity(ctx, engineerDlam.ID, 12, "fuser")
		require.NoError(t, err)
		require.Len(t, activity, 1)
		assert.Equal(t, fuser.ID, activity[0].ItemID)
	})
}

func TestCollectionsQueue(t *testing.T) {
	ctx := context.Background()

	t.Run("mixes open claims with recent collections", func(t *testing.T) {
		pf := newProjectionFixture(t)
		fuser := pf.addPart(t, "Fuser Unit", 2)
		belt := pf.addPart(t, "Transfer Belt", 2)

		_, err := pf.inventory.Claim(ctx, fuser.ID, engineerDlam, models.ClaimRequest{})
		require.NoError(t, err)
		_, err = pf.inventory.Claim(ctx, belt.ID, engineerDlam, models.ClaimRequest{})
		require.NoError(t, err)
		_, err = pf.inventory.Collect(ctx, belt.ID, "", engineerDlam)
		require.NoError(t, err)

		queue, err := pf.projection.CollectionsQueue(ctx, engineerDlam.ID, 12, "")
		require.NoError(t, err)
		require.Len(t, queue, 2)

		byItem := make(map[string]CollectionEntry)
		for _, entry := range queue {
			byItem[entry.ItemID] = entry
		}
		assert.False(t, byItem[fuser.ID].Collected)
		assert.True(t, byItem[belt.ID].Collected)
	})

	t.Run("collections age out of the window, open claims do not", func(t *testing.T) {
		pf := newProjectionFixture(t)
		fuser := pf.addPart(t, "Fuser Unit", 2)
		belt := pf.addPart(t, "Transfer Belt", 2)

		_, err := pf.inventory.Claim(ctx, fuser.ID, engineerDlam, models.ClaimRequest{})
		require.NoError(t, err)
		_, err = pf.inventory.Claim(ctx, belt.ID, engineerDlam, models.ClaimRequest{})
		require.NoError(t, err)
		_, err = pf.inventory.Collect(ctx, belt.ID, "", engineerDlam)
		require.NoError(t, err)

		pf.advance(13 * time.Hour)

		queue, err := pf.projection.CollectionsQueue(ctx, engineerDlam.ID, 12, "")
		require.NoError(t, err)
		require.Len(t, queue, 1)
		assert.Equal(t, fuser.ID, queue[0].ItemID)
		assert.False(t, queue[0].Collected)
	})
}

func TestAvailable(t *testing.T) {
	ctx := context.Background()

	t.Run("hides fully claimed items, keeps partially claimed ones", func(t *testing.T) {
		pf := newProjectionFixture(t)
		single := pf.addPart(t, "Fuser Unit", 1)
		multi := pf.addPart(t, "Transfer Belt", 3)

		_, err := pf.inventory.Claim(ctx, single.ID, engineerDlam, models.ClaimRequest{})
		require.NoError(t, err)
		_, err = pf.inventory.Claim(ctx, multi.ID, engineerDlam, models.ClaimRequest{})
		require.NoError(t, err)

		items, err := pf.projection.Available(ctx, models.KindPart, "")
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, multi.ID, items[0].ID)
		assert.Equal(t, 2, items[0].AvailableQuantity)
	})

	t.Run("requested items remain visible", func(t *testing.T) {
		pf := newProjectionFixture(t)
		part := pf.addPart(t, "Pickup Roller", 1)

		_, err := pf.inventory.Request(ctx, part.ID, engineerDlam)
		require.NoError(t, err)

		items, err := pf.projection.Available(ctx, models.KindPart, "")
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, models.StatusRequested, items[0].Status)
	})

	t.Run("search matches part number case-insensitively", func(t *testing.T) {
		pf := newProjectionFixture(t)
		pf.addPart(t, "Fuser Unit", 1)

		items, err := pf.projection.Available(ctx, models.KindPart, "pn-fuser")
		require.NoError(t, err)
		assert.Len(t, items, 1)

		items, err = pf.projection.Available(ctx, models.KindPart, "no-such")
		require.NoError(t, err)
		assert.Empty(t, items)
	})
}

func TestReplay(t *testing.T) {
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	entry := func(typ models.TransactionType, delta int, offset time.Duration) models.Transaction {
		return models.Transaction{
			ID:            string(typ) + offset.String(),
			ItemID:        "item-1",
			Type:          typ,
			UserID:        engineerDlam.ID,
			UserName:      engineerDlam.DisplayName(),
			QuantityDelta: delta,
			CreatedAt:     base.Add(offset),
		}
	}

	t.Run("folds a full lifecycle", func(t *testing.T) {
		state, err := Replay([]models.Transaction{
			entry(models.TxAdd, 3, 0),
			entry(models.TxClaim, -1, time.Minute),
			entry(models.TxClaim, -1, 2*time.Minute),
			entry(models.TxReturn, 1, 3*time.Minute),
			entry(models.TxCollect, 0, 4*time.Minute),
		})
		require.NoError(t, err)
		assert.Equal(t, 2, state.Quantity)
		assert.Equal(t, 2, state.AvailableQuantity)
		assert.Equal(t, models.StatusAvailable, state.Status)
	})

	t.Run("open claim leaves PENDING_COLLECTION", func(t *testing.T) {
		state, err := Replay([]models.Transaction{
			entry(models.TxAdd, 1, 0),
			entry(models.TxClaim, -1, time.Minute),
		})
		require.NoError(t, err)
		assert.Equal(t, 0, state.AvailableQuantity)
		assert.Equal(t, models.StatusPendingCollection, state.Status)
		assert.Equal(t, engineerDlam.DisplayName(), state.ClaimedByName)
	})

	t.Run("claim supersedes a pending request", func(t *testing.T) {
		state, err := Replay([]models.Transaction{
			entry(models.TxAdd, 1, 0),
			entry(models.TxRequest, 0, time.Minute),
			entry(models.TxClaim, -1, 2*time.Minute),
			entry(models.TxReturn, 1, 3*time.Minute),
		})
		require.NoError(t, err)
		assert.Equal(t, 1, state.AvailableQuantity)
		assert.Equal(t, models.StatusAvailable, state.Status)
	})

	t.Run("rejects a claim that overdraws stock", func(t *testing.T) {
		_, err := Replay([]models.Transaction{
			entry(models.TxAdd, 1, 0),
			entry(models.TxClaim, -1, time.Minute),
			entry(models.TxClaim, -1, 2*time.Minute),
		})
		assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidTransaction))
	})

	t.Run("rejects a return with no open claim", func(t *testing.T) {
		_, err := Replay([]models.Transaction{
			entry(models.TxAdd, 1, 0),
			entry(models.TxReturn, 1, time.Minute),
		})
		assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidTransaction))
	})

	t.Run("rejects malformed deltas", func(t *testing.T) {
		bad := entry(models.TxClaim, -2, 0)
		_, err := Replay([]models.Transaction{bad})
		assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidTransaction))
	})
}

func TestVerifyItem(t *testing.T) {
	ctx := context.Background()

	t.Run("cached state agrees with the ledger after a workflow", func(t *testing.T) {
		pf := newProjectionFixture(t)
		part := pf.addPart(t, "Fuser Unit", 3)

		_, err := pf.inventory.Claim(ctx, part.ID, engineerDlam, models.ClaimRequest{})
		require.NoError(t, err)
		_, err = pf.inventory.Claim(ctx, part.ID, engineerMbek, models.ClaimRequest{})
		require.NoError(t, err)
		_, err = pf.inventory.Collect(ctx, part.ID, "", engineerDlam)
		require.NoError(t, err)
		_, err = pf.inventory.Return(ctx, part.ID, "", "wrong part", engineerMbek)
		require.NoError(t, err)

		derived, err := pf.projection.VerifyItem(ctx, part.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, derived.Quantity)
		assert.Equal(t, 2, derived.AvailableQuantity)
		assert.Equal(t, models.StatusAvailable, derived.Status)
	})

	t.Run("requested item claimed and returned stays consistent", func(t *testing.T) {
		pf := newProjectionFixture(t)
		part := pf.addPart(t, "Pickup Roller", 1)

		_, err := pf.inventory.Request(ctx, part.ID, engineerMbek)
		require.NoError(t, err)
		_, err = pf.inventory.Claim(ctx, part.ID, engineerDlam, models.ClaimRequest{})
		require.NoError(t, err)
		_, err = pf.inventory.Return(ctx, part.ID, "", "claimed ahead of the request", engineerDlam)
		require.NoError(t, err)

		derived, err := pf.projection.VerifyItem(ctx, part.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusAvailable, derived.Status)
		assert.Equal(t, 1, derived.AvailableQuantity)

		current, err := pf.store.Get(ctx, part.ID)
		require.NoError(t, err)
		assert.Empty(t, current.RequestedByID)
	})

	t.Run("reports drift when the cached record is tampered with", func(t *testing.T) {
		pf := newProjectionFixture(t)
		part := pf.addPart(t, "Fuser Unit", 3)

		// write a doctored quantity directly, bypassing the ledger
		doctored := *part
		doctored.Quantity = 99
		require.NoError(t, pf.store.Create(ctx, &doctored))

		_, err := pf.projection.VerifyItem(ctx, part.ID)
		assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidTransaction))
	})
}

func TestProjectionCacheUse(t *testing.T) {
	ctx := context.Background()

	t.Run("second read is served from the cache", func(t *testing.T) {
		pf := newProjectionFixture(t)
		cache := &countingCache{data: make(map[string][]models.Item)}
		pf.projection = NewProjectionService(pf.store, pf.store.Devices(), pf.store, cache, time.Minute, zap.NewNop())
		pf.addPart(t, "Fuser Unit", 1)

		_, err := pf.projection.Available(ctx, models.KindPart, "")
		require.NoError(t, err)
		_, err = pf.projection.Available(ctx, models.KindPart, "")
		require.NoError(t, err)
		assert.Equal(t, 1, cache.sets)
		assert.Equal(t, 1, cache.hits)
	})
}

type countingCache struct {
	data map[string][]models.Item
	sets int
	hits int
}

func (c *countingCache) GetItems(_ context.Context, key string) ([]models.Item, bool) {
	items, ok := c.data[key]
	if ok {
		c.hits++
	}
	return items, ok
}

func (c *countingCache) SetItems(_ context.Context, key string, items []models.Item, _ time.Duration) {
	c.sets++
	c.data[key] = items
}

func (c *countingCache) Invalidate(_ context.Context, keys ...string) {
	for _, key := range keys {
		delete(c.data, key)
	}
}

var _ repository.ProjectionCache = (*countingCache)(nil)
