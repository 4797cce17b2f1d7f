package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Techyana/RWP-Pilot/models"
)

var (
	// ErrNotFound signals an unknown record id.
	ErrNotFound = errors.New("record not found")
	// ErrNoStock signals a conditional stock update that found no free unit.
	ErrNoStock = errors.New("no available stock")
	// ErrConflict signals a conditional update whose precondition failed
	// (wrong status, no open claim to consume, removal already recorded).
	ErrConflict = errors.New("state precondition failed")
)

// ItemRepository owns Part/Toner base records. All stock mutations are
// conditional updates applied atomically by the backing store; callers never
// read-then-write quantities across two calls.
type ItemRepository interface {
	Get(ctx context.Context, id string) (*models.Item, error)
	List(ctx context.Context, kind models.ItemKind) ([]models.Item, error)
	Create(ctx context.Context, item *models.Item) error

	// ClaimUnit decrements availableQuantity by one iff a unit is free,
	// stamps the denormalized claim fields, and clears any pending request
	// marker. Returns ErrNoStock otherwise.
	ClaimUnit(ctx context.Context, id, claimedByName string, at time.Time) (*models.Item, error)

	// ReturnUnit restores one claimed unit to availability. ErrConflict when
	// no unit is outstanding.
	ReturnUnit(ctx context.Context, id string) (*models.Item, error)

	// CollectUnit consumes one outstanding claimed unit: total quantity drops
	// by one, availability is unchanged. ErrConflict when no unit is
	// outstanding. When the last unit leaves, status becomes COLLECTED.
	CollectUnit(ctx context.Context, id string) (*models.Item, error)

	// UncollectUnit reverses a CollectUnit that could not be recorded in the
	// ledger: quantity rises by one, availability is unchanged.
	UncollectUnit(ctx context.Context, id string) (*models.Item, error)

	// MarkRequested flips an AVAILABLE item to REQUESTED. ErrConflict when the
	// item is in any other status.
	MarkRequested(ctx context.Context, id, requestedByID string, at time.Time) (*models.Item, error)

	// AddStock increments quantity and availableQuantity by n and clears a
	// pending request, returning the item to AVAILABLE.
	AddStock(ctx context.Context, id string, n int) (*models.Item, error)
}

// DeviceRepository owns disposal-bound device records.
type DeviceRepository interface {
	Get(ctx context.Context, id string) (*models.Device, error)
	List(ctx context.Context) ([]models.Device, error)
	Create(ctx context.Context, device *models.Device) error

	// AppendStrippedPart appends to the strip log. ErrConflict once the
	// device is REMOVED.
	AppendStrippedPart(ctx context.Context, id string, part models.StrippedPart) (*models.Device, error)

	// Remove transitions to REMOVED and writes the reason exactly once.
	// ErrConflict when already removed.
	Remove(ctx context.Context, id, reason string) (*models.Device, error)
}

// LedgerQuery filters a time-windowed ledger read. Hours <= 0 disables the
// time cutoff (full history).
type LedgerQuery struct {
	Hours    int
	Types    []models.TransactionType
	UserID   string
	ItemKind models.ItemKind
}

// LedgerRepository is the append-only transaction log. Entries are immutable
// once appended.
type LedgerRepository interface {
	// Append validates the entry's delta sign against its type and persists
	// it. The entry is never modified afterwards.
	Append(ctx context.Context, entry *models.Transaction) error

	// QueryRecent returns entries with createdAt >= now-hours matching the
	// optional filters, newest first, ties broken by insertion order.
	QueryRecent(ctx context.Context, q LedgerQuery) ([]models.Transaction, error)

	// ListByItem returns every entry for an item in insertion order, oldest
	// first. Used for replay and open-claim checks.
	ListByItem(ctx context.Context, itemID string) ([]models.Transaction, error)
}

// NotificationRepository persists per-user notifications. Only the IsRead
// flag ever changes after creation.
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByUser(ctx context.Context, userID string) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, userID string) error
	MarkAllRead(ctx context.Context, userID string) error
}
