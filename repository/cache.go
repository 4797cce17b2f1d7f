package repository

import (
	"context"
	"time"

	"github.com/Techyana/RWP-Pilot/models"
)

// ProjectionCache holds short-lived copies of projected item lists. The read
// path tolerates staleness up to the cache TTL; any ledger activity seen on
// the change feed invalidates the affected keys.
type ProjectionCache interface {
	GetItems(ctx context.Context, key string) ([]models.Item, bool)
	SetItems(ctx context.Context, key string, items []models.Item, ttl time.Duration)
	Invalidate(ctx context.Context, keys ...string)
}

// NoopCache satisfies ProjectionCache without caching anything. Used when no
// Redis address is configured.
type NoopCache struct{}

func (NoopCache) GetItems(context.Context, string) ([]models.Item, bool) { return nil, false }
func (NoopCache) SetItems(context.Context, string, []models.Item, time.Duration) {}
func (NoopCache) Invalidate(context.Context, ...string) {}
