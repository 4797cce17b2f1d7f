package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Techyana/RWP-Pilot/models"
)

// MemoryStore is an in-memory implementation of every repository interface,
// guarded by a single mutex so conditional stock updates are atomic. It backs
// the mock/demo mode and the test suite; the Mongo repositories back the live
// deployment.
type MemoryStore struct {
	mu            sync.Mutex
	items         map[string]*models.Item
	devices       map[string]*models.Device
	ledger        []models.Transaction
	notifications []models.Notification
	now           func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items:   make(map[string]*models.Item),
		devices: make(map[string]*models.Device),
		now:     time.Now,
	}
}

// SetClock overrides the store's clock. Test hook only.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// ---- ItemRepository ----

func (s *MemoryStore) Get(ctx context.Context, id string) (*models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *item
	return &cp, nil
}

func (s *MemoryStore) List(ctx context.Context, kind models.ItemKind) ([]models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Item, 0, len(s.items))
	for _, item := range s.items {
		if kind != "" && item.Kind != kind {
			continue
		}
		out = append(out, *item)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) Create(ctx context.Context, item *models.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *item
	s.items[item.ID] = &cp
	return nil
}

func (s *MemoryStore) ClaimUnit(ctx context.Context, id, claimedByName string, at time.Time) (*models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	if item.AvailableQuantity < 1 {
		return nil, ErrNoStock
	}
	item.AvailableQuantity--
	item.Status = models.StatusPendingCollection
	item.ClaimedByName = claimedByName
	claimedAt := at
	item.ClaimedAt = &claimedAt
	// A claim supersedes any pending request on the item.
	item.RequestedByID = ""
	item.RequestedAt = nil
	item.UpdatedAt = s.now()
	cp := *item
	return &cp, nil
}

func (s *MemoryStore) ReturnUnit(ctx context.Context, id string) (*models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	if item.AvailableQuantity >= item.Quantity {
		return nil, ErrConflict
	}
	item.AvailableQuantity++
	if item.AvailableQuantity == item.Quantity {
		item.Status = models.StatusAvailable
	}
	item.UpdatedAt = s.now()
	cp := *item
	return &cp, nil
}

func (s *MemoryStore) CollectUnit(ctx context.Context, id string) (*models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	if item.Quantity-item.AvailableQuantity < 1 {
		return nil, ErrConflict
	}
	item.Quantity--
	switch {
	case item.Quantity == 0:
		item.Status = models.StatusCollected
	case item.AvailableQuantity == item.Quantity:
		item.Status = models.StatusAvailable
	default:
		item.Status = models.StatusPendingCollection
	}
	item.UpdatedAt = s.now()
	cp := *item
	return &cp, nil
}

func (s *MemoryStore) UncollectUnit(ctx context.Context, id string) (*models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	item.Quantity++
	if item.AvailableQuantity == item.Quantity {
		item.Status = models.StatusAvailable
	} else {
		item.Status = models.StatusPendingCollection
	}
	item.UpdatedAt = s.now()
	cp := *item
	return &cp, nil
}

func (s *MemoryStore) MarkRequested(ctx context.Context, id, requestedByID string, at time.Time) (*models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	if item.Status != models.StatusAvailable {
		return nil, ErrConflict
	}
	item.Status = models.StatusRequested
	item.RequestedByID = requestedByID
	requestedAt := at
	item.RequestedAt = &requestedAt
	item.UpdatedAt = s.now()
	cp := *item
	return &cp, nil
}

func (s *MemoryStore) AddStock(ctx context.Context, id string, n int) (*models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	item.Quantity += n
	item.AvailableQuantity += n
	if item.Quantity == item.AvailableQuantity {
		item.Status = models.StatusAvailable
	} else {
		item.Status = models.StatusPendingCollection
	}
	item.RequestedByID = ""
	item.RequestedAt = nil
	item.UpdatedAt = s.now()
	cp := *item
	return &cp, nil
}

// ---- DeviceRepository ----

func (s *MemoryStore) GetDevice(ctx context.Context, id string) (*models.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	device, ok := s.devices[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := s.cloneDevice(device)
	return &cp, nil
}

func (s *MemoryStore) ListDevices(ctx context.Context) ([]models.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Device, 0, len(s.devices))
	for _, device := range s.devices {
		out = append(out, s.cloneDevice(device))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) CreateDevice(ctx context.Context, device *models.Device) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := s.cloneDevice(device)
	s.devices[device.ID] = &cp
	return nil
}

func (s *MemoryStore) AppendStrippedPart(ctx context.Context, id string, part models.StrippedPart) (*models.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	device, ok := s.devices[id]
	if !ok {
		return nil, ErrNotFound
	}
	if device.Status == models.StatusRemoved {
		return nil, ErrConflict
	}
	device.StrippedParts = append(device.StrippedParts, part)
	device.UpdatedAt = s.now()
	cp := s.cloneDevice(device)
	return &cp, nil
}

func (s *MemoryStore) Remove(ctx context.Context, id, reason string) (*models.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	device, ok := s.devices[id]
	if !ok {
		return nil, ErrNotFound
	}
	if device.Status == models.StatusRemoved {
		return nil, ErrConflict
	}
	device.Status = models.StatusRemoved
	device.RemovalReason = reason
	device.UpdatedAt = s.now()
	cp := s.cloneDevice(device)
	return &cp, nil
}

func (s *MemoryStore) cloneDevice(d *models.Device) models.Device {
	cp := *d
	cp.StrippedParts = append([]models.StrippedPart(nil), d.StrippedParts...)
	return cp
}

// ---- LedgerRepository ----

func (s *MemoryStore) Append(ctx context.Context, entry *models.Transaction) error {
	if err := entry.ValidateDelta(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledger = append(s.ledger, *entry)
	return nil
}

func (s *MemoryStore) QueryRecent(ctx context.Context, q LedgerQuery) ([]models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var cutoff time.Time
	if q.Hours > 0 {
		cutoff = s.now().Add(-time.Duration(q.Hours) * time.Hour)
	}
	var out []models.Transaction
	for _, entry := range s.ledger {
		if q.Hours > 0 && entry.CreatedAt.Before(cutoff) {
			continue
		}
		if !matchesQuery(&entry, q) {
			continue
		}
		out = append(out, entry)
	}
	// Stable sort preserves insertion order among equal timestamps.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) ListByItem(ctx context.Context, itemID string) ([]models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Transaction
	for _, entry := range s.ledger {
		if entry.ItemID == itemID {
			out = append(out, entry)
		}
	}
	return out, nil
}

func matchesQuery(entry *models.Transaction, q LedgerQuery) bool {
	if q.UserID != "" && entry.UserID != q.UserID {
		return false
	}
	if q.ItemKind != "" && entry.ItemKind != q.ItemKind {
		return false
	}
	if len(q.Types) > 0 {
		found := false
		for _, t := range q.Types {
			if entry.Type == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// ---- NotificationRepository ----

func (s *MemoryStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = append(s.notifications, *n)
	return nil
}

func (s *MemoryStore) ListByUser(ctx context.Context, userID string) ([]models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Notification
	for _, n := range s.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}

func (s *MemoryStore) MarkRead(ctx context.Context, id, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.notifications {
		if s.notifications[i].ID == id && s.notifications[i].UserID == userID {
			s.notifications[i].IsRead = true
			return nil
		}
	}
	return ErrNotFound
}

func (s *MemoryStore) MarkAllRead(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.notifications {
		if s.notifications[i].UserID == userID {
			s.notifications[i].IsRead = true
		}
	}
	return nil
}

// Adapters exposing the store under each repository interface without method
// name clashes between item and device accessors.

// Devices returns the store as a DeviceRepository.
func (s *MemoryStore) Devices() DeviceRepository { return memoryDevices{s} }

// Notifications returns the store as a NotificationRepository.
func (s *MemoryStore) Notifications() NotificationRepository { return memoryNotifications{s} }

type memoryDevices struct{ s *MemoryStore }

func (m memoryDevices) Get(ctx context.Context, id string) (*models.Device, error) {
	return m.s.GetDevice(ctx, id)
}
func (m memoryDevices) List(ctx context.Context) ([]models.Device, error) {
	return m.s.ListDevices(ctx)
}
func (m memoryDevices) Create(ctx context.Context, device *models.Device) error {
	return m.s.CreateDevice(ctx, device)
}
func (m memoryDevices) AppendStrippedPart(ctx context.Context, id string, part models.StrippedPart) (*models.Device, error) {
	return m.s.AppendStrippedPart(ctx, id, part)
}
func (m memoryDevices) Remove(ctx context.Context, id, reason string) (*models.Device, error) {
	return m.s.Remove(ctx, id, reason)
}

type memoryNotifications struct{ s *MemoryStore }

func (m memoryNotifications) Create(ctx context.Context, n *models.Notification) error {
	return m.s.CreateNotification(ctx, n)
}
func (m memoryNotifications) ListByUser(ctx context.Context, userID string) ([]models.Notification, error) {
	return m.s.ListByUser(ctx, userID)
}
func (m memoryNotifications) MarkRead(ctx context.Context, id, userID string) error {
	return m.s.MarkRead(ctx, id, userID)
}
func (m memoryNotifications) MarkAllRead(ctx context.Context, userID string) error {
	return m.s.MarkAllRead(ctx, userID)
}
