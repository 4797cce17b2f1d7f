package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/Techyana/RWP-Pilot/common/errors"
	"github.com/Techyana/RWP-Pilot/models"
	"github.com/Techyana/RWP-Pilot/repository"
)

// DerivedState is the item state recomputed from the ledger alone. The
// cached fields on the item record must always agree with it.
type DerivedState struct {
	Quantity          int
	AvailableQuantity int
	Status            models.ItemStatus
	ClaimedByName     string
	ClaimedAt         *time.Time
}

// Replay folds an item's ledger entries (oldest first) into its derived
// state. It validates the quantity invariant at every prefix: available
// stock never drops below zero or exceeds the total held.
func Replay(entries []models.Transaction) (DerivedState, error) {
	var (
		totalAdded  int
		collected   int
		openClaims  int
		openRequest bool
		state       DerivedState
	)

	for _, entry := range entries {
		if err := entry.ValidateDelta(); err != nil {
			return DerivedState{}, err
		}
		switch entry.Type {
		case models.TxAdd:
			totalAdded += entry.QuantityDelta
			openRequest = false
		case models.TxClaim:
			openClaims++
			// Claiming supersedes any pending request on the item.
			openRequest = false
			state.ClaimedByName = entry.UserName
			at := entry.CreatedAt
			state.ClaimedAt = &at
		case models.TxReturn:
			openClaims--
		case models.TxCollect:
			openClaims--
			collected++
		case models.TxRequest:
			openRequest = true
		}

		quantity := totalAdded - collected
		available := quantity - openClaims
		if openClaims < 0 || available < 0 || available > quantity {
			return DerivedState{}, apperrors.InvalidTransaction(
				"ledger replay for item %s breaks the quantity invariant at entry %s", entry.ItemID, entry.ID)
		}
	}

	state.Quantity = totalAdded - collected
	state.AvailableQuantity = state.Quantity - openClaims
	switch {
	case state.Quantity == 0 && collected > 0:
		state.Status = models.StatusCollected
	case openClaims > 0:
		state.Status = models.StatusPendingCollection
	case openRequest:
		state.Status = models.StatusRequested
	default:
		state.Status = models.StatusAvailable
	}
	return state, nil
}

// ActivityEntry is a ledger entry joined with its item's current base record.
type ActivityEntry struct {
	models.Transaction
	Item *models.Item `json:"item,omitempty"`
	Open bool         `json:"open"`
}

// CollectionEntry is a row of the collections queue: either an open claim
// awaiting pickup or a completed collection shown for audit.
type CollectionEntry struct {
	models.Transaction
	Item      *models.Item `json:"item,omitempty"`
	Collected bool         `json:"collected"`
}

// ProjectionService computes the viewer-facing queues from the ledger and the
// item base records. It never mutates state; search filters are applied after
// projection.
type ProjectionService struct {
	items    repository.ItemRepository
	devices  repository.DeviceRepository
	ledger   repository.LedgerRepository
	cache    repository.ProjectionCache
	cacheTTL time.Duration
	logger   *zap.Logger
}

func NewProjectionService(
	items repository.ItemRepository,
	devices repository.DeviceRepository,
	ledger repository.LedgerRepository,
	cache repository.ProjectionCache,
	cacheTTL time.Duration,
	logger *zap.Logger,
) *ProjectionService {
	if cache == nil {
		cache = repository.NoopCache{}
	}
	return &ProjectionService{
		items:    items,
		devices:  devices,
		ledger:   ledger,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// AvailableCacheKey is the projection cache key for a kind's available list.
func AvailableCacheKey(kind models.ItemKind) string {
	return "available:" + string(kind)
}

// Available returns the items a viewer may claim: AVAILABLE status or any
// free unit remaining. Served from the projection cache when warm.
func (s *ProjectionService) Available(ctx context.Context, kind models.ItemKind, query string) ([]models.Item, error) {
	key := AvailableCacheKey(kind)
	items, hit := s.cache.GetItems(ctx, key)
	if !hit {
		all, err := s.items.List(ctx, kind)
		if err != nil {
			return nil, fmt.Errorf("list items: %w", err)
		}
		items = items[:0]
		for _, item := range all {
			if item.Status == models.StatusAvailable || item.AvailableQuantity > 0 {
				items = append(items, item)
			}
		}
		s.cache.SetItems(ctx, key, items, s.cacheTTL)
	}

	if query == "" {
		return items, nil
	}
	filtered := make([]models.Item, 0, len(items))
	for _, item := range items {
		if item.MatchesSearch(query) {
			filtered = append(filtered, item)
		}
	}
	return filtered, nil
}

// ListItems returns every item of a kind regardless of status (admin view).
func (s *ProjectionService) ListItems(ctx context.Context, kind models.ItemKind, query string) ([]models.Item, error) {
	all, err := s.items.List(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	if query == "" {
		return all, nil
	}
	filtered := make([]models.Item, 0, len(all))
	for _, item := range all {
		if item.MatchesSearch(query) {
			filtered = append(filtered, item)
		}
	}
	return filtered, nil
}

// ListDevices returns disposal-bound devices, optionally filtered.
func (s *ProjectionService) ListDevices(ctx context.Context, query string) ([]models.Device, error) {
	devices, err := s.devices.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	if query == "" {
		return devices, nil
	}
	filtered := make([]models.Device, 0, len(devices))
	for _, d := range devices {
		if d.MatchesSearch(query) {
			filtered = append(filtered, d)
		}
	}
	return filtered, nil
}

// MyActivity returns a user's claims and requests in the window, newest
// first, each joined with the item's current record. Open claims are always
// included regardless of age; the window bounds historical entries only.
// An empty userID (admin variant) returns all users' activity.
func (s *ProjectionService) MyActivity(ctx context.Context, userID string, hours int, query string) ([]ActivityEntry, error) {
	recent, err := s.ledger.QueryRecent(ctx, repository.LedgerQuery{
		Hours:  hours,
		Types:  []models.TransactionType{models.TxClaim, models.TxRequest},
		UserID: userID,
	})
	if err != nil {
		return nil, fmt.Errorf("query recent activity: %w", err)
	}

	open, err := s.openClaimEntries(ctx, userID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(recent))
	for _, entry := range recent {
		seen[entry.ID] = true
	}

	out := make([]ActivityEntry, 0, len(recent)+len(open))
	for _, entry := range recent {
		out = append(out, ActivityEntry{Transaction: entry, Open: open[entry.ID].ID != ""})
	}
	// Open claims older than the window stay visible until collected.
	stale := make([]models.Transaction, 0, len(open))
	for id, entry := range open {
		if !seen[id] {
			stale = append(stale, entry)
		}
	}
	sort.Slice(stale, func(i, j int) bool { return stale[i].CreatedAt.After(stale[j].CreatedAt) })
	for _, entry := range stale {
		out = append(out, ActivityEntry{Transaction: entry, Open: true})
	}

	s.joinActivityItems(ctx, out)
	return filterActivity(out, query), nil
}

// CollectionsQueue returns the user's open claims awaiting pickup plus their
// collections inside the window, for audit display. An empty userID returns
// the queue across all users.
func (s *ProjectionService) CollectionsQueue(ctx context.Context, userID string, hours int, query string) ([]CollectionEntry, error) {
	open, err := s.openClaimEntries(ctx, userID)
	if err != nil {
		return nil, err
	}
	collects, err := s.ledger.QueryRecent(ctx, repository.LedgerQuery{
		Hours:  hours,
		Types:  []models.TransactionType{models.TxCollect},
		UserID: userID,
	})
	if err != nil {
		return nil, fmt.Errorf("query recent collections: %w", err)
	}

	out := make([]CollectionEntry, 0, len(open)+len(collects))
	for _, entry := range open {
		out = append(out, CollectionEntry{Transaction: entry, Collected: false})
	}
	for _, entry := range collects {
		out = append(out, CollectionEntry{Transaction: entry, Collected: true})
	}

	items := make(map[string]*models.Item)
	for i := range out {
		out[i].Item = s.lookupItem(ctx, items, out[i].ItemID)
	}

	if query == "" {
		return out, nil
	}
	filtered := make([]CollectionEntry, 0, len(out))
	for _, entry := range out {
		if entry.Item != nil && entry.Item.MatchesSearch(query) || entry.Item == nil && matchName(entry.ItemName, query) {
			filtered = append(filtered, entry)
		}
	}
	return filtered, nil
}

// RecentTransactions serves the rolling-window ledger view. Engineers are
// given only their own entries by the caller forcing userID; admins pass an
// empty userID to see everyone's.
func (s *ProjectionService) RecentTransactions(ctx context.Context, q repository.LedgerQuery) ([]models.Transaction, error) {
	entries, err := s.ledger.QueryRecent(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query recent transactions: %w", err)
	}
	return entries, nil
}

// VerifyItem replays the full ledger for an item and checks the cached
// status and quantities against the derived state.
func (s *ProjectionService) VerifyItem(ctx context.Context, itemID string) (*DerivedState, error) {
	item, err := s.items.Get(ctx, itemID)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, apperrors.NotFound("item %s not found", itemID)
		}
		return nil, fmt.Errorf("get item: %w", err)
	}

	entries, err := s.ledger.ListByItem(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("list item ledger: %w", err)
	}
	derived, err := Replay(entries)
	if err != nil {
		return nil, err
	}

	if derived.Quantity != item.Quantity ||
		derived.AvailableQuantity != item.AvailableQuantity ||
		derived.Status != item.Status {
		s.logger.Error("cached state drifted from ledger",
			zap.String("item_id", itemID),
			zap.Int("cached_quantity", item.Quantity),
			zap.Int("derived_quantity", derived.Quantity),
			zap.String("cached_status", string(item.Status)),
			zap.String("derived_status", string(derived.Status)),
		)
		return &derived, apperrors.InvalidTransaction(
			"item %s cached state disagrees with ledger replay", itemID)
	}
	return &derived, nil
}

// openClaimEntries returns the CLAIM entries that have not yet been consumed
// by a COLLECT or RETURN, keyed by entry id. For each (item, user) group the
// most recent claims are the open ones.
func (s *ProjectionService) openClaimEntries(ctx context.Context, userID string) (map[string]models.Transaction, error) {
	all, err := s.ledger.QueryRecent(ctx, repository.LedgerQuery{
		UserID: userID,
		Types:  []models.TransactionType{models.TxClaim, models.TxCollect, models.TxReturn},
	})
	if err != nil {
		return nil, fmt.Errorf("query claims: %w", err)
	}

	type group struct {
		claims   []models.Transaction // newest first, as returned
		consumed int
	}
	groups := make(map[string]*group)
	for _, entry := range all {
		key := entry.ItemID + "|" + entry.UserID
		g := groups[key]
		if g == nil {
			g = &group{}
			groups[key] = g
		}
		switch entry.Type {
		case models.TxClaim:
			g.claims = append(g.claims, entry)
		case models.TxCollect, models.TxReturn:
			g.consumed++
		}
	}

	open := make(map[string]models.Transaction)
	for _, g := range groups {
		outstanding := len(g.claims) - g.consumed
		// claims are newest first; the newest ones are still open
		for i := 0; i < outstanding && i < len(g.claims); i++ {
			open[g.claims[i].ID] = g.claims[i]
		}
	}
	return open, nil
}

func (s *ProjectionService) joinActivityItems(ctx context.Context, entries []ActivityEntry) {
	items := make(map[string]*models.Item)
	for i := range entries {
		entries[i].Item = s.lookupItem(ctx, items, entries[i].ItemID)
	}
}

func (s *ProjectionService) lookupItem(ctx context.Context, memo map[string]*models.Item, itemID string) *models.Item {
	if item, ok := memo[itemID]; ok {
		return item
	}
	item, err := s.items.Get(ctx, itemID)
	if err != nil {
		// Join is best effort; the entry still renders from its snapshot.
		memo[itemID] = nil
		return nil
	}
	memo[itemID] = item
	return item
}

func filterActivity(entries []ActivityEntry, query string) []ActivityEntry {
	if query == "" {
		return entries
	}
	filtered := make([]ActivityEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.Item != nil && entry.Item.MatchesSearch(query) || entry.Item == nil && matchName(entry.ItemName, query) {
			filtered = append(filtered, entry)
		}
	}
	return filtered
}

func matchName(name, query string) bool {
	item := models.Item{Name: name}
	return item.MatchesSearch(query)
}
