package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/Techyana/RWP-Pilot/common/errors"
	"github.com/Techyana/RWP-Pilot/models"
	"github.com/Techyana/RWP-Pilot/repository"
)

// InventoryService implements the claim/collection protocol. Every mutation
// is a conditional item update followed by a ledger append; if the append
// fails the item update is compensated, so no caller ever observes a state
// the ledger cannot explain.
type InventoryService struct {
	items   repository.ItemRepository
	devices repository.DeviceRepository
	ledger  repository.LedgerRepository
	sink    NotificationSink
	logger  *zap.Logger
	now     func() time.Time
}

func NewInventoryService(
	items repository.ItemRepository,
	devices repository.DeviceRepository,
	ledger repository.LedgerRepository,
	sink NotificationSink,
	logger *zap.Logger,
) *InventoryService {
	return &InventoryService{
		items:   items,
		devices: devices,
		ledger:  ledger,
		sink:    sink,
		logger:  logger,
		now:     time.Now,
	}
}

// SetClock overrides the service clock. Test hook only.
func (s *InventoryService) SetClock(now func() time.Time) { s.now = now }

// Claim reserves one unit for the actor. The decrement is a conditional
// update in the store, never a read-then-write, so two claims racing for the
// last unit cannot both succeed.
func (s *InventoryService) Claim(ctx context.Context, itemID string, actor models.User, req models.ClaimRequest) (*models.Item, error) {
	at := s.now().UTC()
	item, err := s.items.ClaimUnit(ctx, itemID, actor.DisplayName(), at)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, apperrors.NotFound("item %s not found", itemID)
		case errors.Is(err, repository.ErrNoStock):
			return nil, apperrors.NotAvailable("no available unit of item %s to claim", itemID)
		}
		return nil, fmt.Errorf("claim unit: %w", err)
	}

	entry := &models.Transaction{
		ID:            uuid.NewString(),
		ItemID:        item.ID,
		ItemKind:      item.Kind,
		ItemName:      item.Name,
		Type:          models.TxClaim,
		UserID:        actor.ID,
		UserName:      actor.DisplayName(),
		QuantityDelta: -1,
		CreatedAt:     at,
	}
	if req != (models.ClaimRequest{}) {
		entry.Meta = &models.TransactionMeta{
			SerialNumber: req.TargetDeviceSerial,
			DeviceModel:  req.TargetDeviceModel,
			ClientName:   req.ClientName,
			MeterReading: req.MeterReading,
		}
	}
	if err := s.ledger.Append(ctx, entry); err != nil {
		_, rbErr := s.items.ReturnUnit(ctx, itemID)
		if rbErr != nil {
			s.logger.Error("claim rollback failed", zap.String("item_id", itemID), zap.Error(rbErr))
		}
		return nil, fmt.Errorf("append claim entry: %w", err)
	}

	s.notify(ctx, &models.Notification{
		UserID:  actor.ID,
		Message: fmt.Sprintf("You claimed %s. Confirm collection when you pick it up.", item.Name),
		Type:    models.NotifyPartClaimed,
		Meta:    &models.NotificationMeta{PartID: item.ID},
	})

	s.logger.Info("item claimed",
		zap.String("item_id", item.ID),
		zap.String("user_id", actor.ID),
		zap.Int("available_quantity", item.AvailableQuantity),
	)
	return item, nil
}

// Request records a no-stock-impact ask for an item to be sourced. Only
// AVAILABLE items can be requested.
func (s *InventoryService) Request(ctx context.Context, itemID string, actor models.User) (*models.Item, error) {
	at := s.now().UTC()
	item, err := s.items.MarkRequested(ctx, itemID, actor.ID, at)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, apperrors.NotFound("item %s not found", itemID)
		case errors.Is(err, repository.ErrConflict):
			return nil, apperrors.NotAvailable("item %s is not available to request", itemID)
		}
		return nil, fmt.Errorf("mark requested: %w", err)
	}

	entry := &models.Transaction{
		ID:            uuid.NewString(),
		ItemID:        item.ID,
		ItemKind:      item.Kind,
		ItemName:      item.Name,
		Type:          models.TxRequest,
		UserID:        actor.ID,
		UserName:      actor.DisplayName(),
		QuantityDelta: 0,
		CreatedAt:     at,
	}
	if err := s.ledger.Append(ctx, entry); err != nil {
		_, rbErr := s.items.AddStock(ctx, itemID, 0)
		if rbErr != nil {
			s.logger.Error("request rollback failed", zap.String("item_id", itemID), zap.Error(rbErr))
		}
		return nil, fmt.Errorf("append request entry: %w", err)
	}

	s.logger.Info("item requested", zap.String("item_id", item.ID), zap.String("user_id", actor.ID))
	return item, nil
}

// Collect confirms physical pickup, consuming one open claim. claimantID may
// name another user only when the actor can manage inventory; engineers can
// confirm their own claims only.
func (s *InventoryService) Collect(ctx context.Context, itemID, claimantID string, actor models.User) (*models.Item, error) {
	if claimantID == "" {
		claimantID = actor.ID
	}
	if claimantID != actor.ID && !actor.Role.CanManageInventory() {
		return nil, apperrors.Forbidden("only the claimant or an admin may confirm this collection")
	}

	entries, err := s.ledger.ListByItem(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("list item ledger: %w", err)
	}
	open, lastClaim := openClaimCount(entries, claimantID)
	if open < 1 {
		return nil, apperrors.NotClaimed("no open claim on item %s for user %s", itemID, claimantID)
	}

	item, err := s.items.CollectUnit(ctx, itemID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, apperrors.NotFound("item %s not found", itemID)
		case errors.Is(err, repository.ErrConflict):
			return nil, apperrors.NotClaimed("no outstanding claimed unit of item %s", itemID)
		}
		return nil, fmt.Errorf("collect unit: %w", err)
	}

	entry := &models.Transaction{
		ID:            uuid.NewString(),
		ItemID:        item.ID,
		ItemKind:      item.Kind,
		ItemName:      item.Name,
		Type:          models.TxCollect,
		UserID:        claimantID,
		UserName:      lastClaim.UserName,
		QuantityDelta: 0,
		CreatedAt:     s.now().UTC(),
	}
	if err := s.ledger.Append(ctx, entry); err != nil {
		_, rbErr := s.items.UncollectUnit(ctx, itemID)
		if rbErr != nil {
			s.logger.Error("collect rollback failed", zap.String("item_id", itemID), zap.Error(rbErr))
		}
		return nil, fmt.Errorf("append collect entry: %w", err)
	}

	s.notify(ctx, &models.Notification{
		UserID:  claimantID,
		Message: fmt.Sprintf("Collection of %s confirmed.", item.Name),
		Type:    models.NotifyPartCollected,
		Meta:    &models.NotificationMeta{PartID: item.ID},
	})

	s.logger.Info("collection confirmed",
		zap.String("item_id", item.ID),
		zap.String("claimant_id", claimantID),
		zap.String("actor_id", actor.ID),
	)
	return item, nil
}

// Return releases an open claim back to stock.
func (s *InventoryService) Return(ctx context.Context, itemID, claimantID, reason string, actor models.User) (*models.Item, error) {
	if claimantID == "" {
		claimantID = actor.ID
	}
	if claimantID != actor.ID && !actor.Role.CanManageInventory() {
		return nil, apperrors.Forbidden("only the claimant or an admin may return this claim")
	}
	if strings.TrimSpace(reason) == "" {
		return nil, apperrors.Validation("a return reason is required")
	}

	entries, err := s.ledger.ListByItem(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("list item ledger: %w", err)
	}
	open, lastClaim := openClaimCount(entries, claimantID)
	if open < 1 {
		return nil, apperrors.NotClaimed("no open claim on item %s for user %s", itemID, claimantID)
	}

	item, err := s.items.ReturnUnit(ctx, itemID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, apperrors.NotFound("item %s not found", itemID)
		case errors.Is(err, repository.ErrConflict):
			return nil, apperrors.NotClaimed("no outstanding claimed unit of item %s", itemID)
		}
		return nil, fmt.Errorf("return unit: %w", err)
	}

	entry := &models.Transaction{
		ID:            uuid.NewString(),
		ItemID:        item.ID,
		ItemKind:      item.Kind,
		ItemName:      item.Name,
		Type:          models.TxReturn,
		UserID:        claimantID,
		UserName:      lastClaim.UserName,
		QuantityDelta: 1,
		CreatedAt:     s.now().UTC(),
		Meta:          &models.TransactionMeta{Reason: reason},
	}
	if err := s.ledger.Append(ctx, entry); err != nil {
		_, rbErr := s.items.ClaimUnit(ctx, itemID, lastClaim.UserName, lastClaim.CreatedAt)
		if rbErr != nil {
			s.logger.Error("return rollback failed", zap.String("item_id", itemID), zap.Error(rbErr))
		}
		return nil, fmt.Errorf("append return entry: %w", err)
	}

	s.logger.Info("claim returned", zap.String("item_id", item.ID), zap.String("claimant_id", claimantID))
	return item, nil
}

// Fulfill closes a REQUESTED item with incoming stock and notifies the
// requester. Admin/supervisor only.
func (s *InventoryService) Fulfill(ctx context.Context, itemID string, quantity int, actor models.User) (*models.Item, error) {
	if !actor.Role.CanManageInventory() {
		return nil, apperrors.Forbidden("only admins may fulfill requests")
	}
	if quantity < 1 {
		quantity = 1
	}

	current, err := s.items.Get(ctx, itemID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("item %s not found", itemID)
		}
		return nil, fmt.Errorf("get item: %w", err)
	}
	if current.Status != models.StatusRequested {
		return nil, apperrors.Validation("item %s has no pending request", itemID)
	}
	requesterID := current.RequestedByID

	item, err := s.addStockWithLedger(ctx, itemID, quantity, actor, nil)
	if err != nil {
		return nil, err
	}

	if requesterID != "" {
		s.notify(ctx, &models.Notification{
			UserID:  requesterID,
			Message: fmt.Sprintf("%s is now available for collection.", item.Name),
			Type:    models.NotifyPartAvailable,
			Meta:    &models.NotificationMeta{PartID: item.ID},
		})
	}

	s.logger.Info("request fulfilled",
		zap.String("item_id", item.ID),
		zap.String("requester_id", requesterID),
		zap.Int("quantity", quantity),
	)
	return item, nil
}

// AddPart creates a new part record with its opening ADD entry.
func (s *InventoryService) AddPart(ctx context.Context, req models.AddPartRequest, actor models.User) (*models.Item, error) {
	if !actor.Role.CanManageInventory() {
		return nil, apperrors.Forbidden("only admins may add inventory")
	}
	item := &models.Item{
		ID:                uuid.NewString(),
		Kind:              models.KindPart,
		Name:              req.Name,
		PartNumber:        req.PartNumber,
		Status:            models.StatusAvailable,
		Quantity:          req.Quantity,
		AvailableQuantity: req.Quantity,
		ForDeviceModels:   req.ForDeviceModels,
		CreatedAt:         s.now().UTC(),
		UpdatedAt:         s.now().UTC(),
	}
	return s.createItem(ctx, item, actor)
}

// AddToner creates a new toner record with its opening ADD entry.
func (s *InventoryService) AddToner(ctx context.Context, req models.AddTonerRequest, actor models.User) (*models.Item, error) {
	if !actor.Role.CanManageInventory() {
		return nil, apperrors.Forbidden("only admins may add inventory")
	}
	item := &models.Item{
		ID:                uuid.NewString(),
		Kind:              models.KindToner,
		Name:              fmt.Sprintf("%s %s", req.Model, req.Color),
		Model:             req.Model,
		EDPCode:           req.EDPCode,
		Color:             req.Color,
		Yield:             req.Yield,
		Status:            models.StatusAvailable,
		Quantity:          req.Quantity,
		AvailableQuantity: req.Quantity,
		ForDeviceModels:   req.ForDeviceModels,
		CreatedAt:         s.now().UTC(),
		UpdatedAt:         s.now().UTC(),
	}
	return s.createItem(ctx, item, actor)
}

// AddDevice registers a disposal-bound device.
func (s *InventoryService) AddDevice(ctx context.Context, req models.AddDeviceRequest, actor models.User) (*models.Device, error) {
	if !actor.Role.CanManageInventory() {
		return nil, apperrors.Forbidden("only admins may add devices")
	}
	condition := req.Condition
	if condition == "" {
		condition = models.ConditionFair
	}
	device := &models.Device{
		ID:            uuid.NewString(),
		Model:         req.Model,
		SerialNumber:  req.SerialNumber,
		Status:        models.StatusApprovedForDisposal,
		CustomerName:  req.CustomerName,
		Condition:     condition,
		Comments:      req.Comments,
		StrippedParts: []models.StrippedPart{},
		CreatedAt:     s.now().UTC(),
		UpdatedAt:     s.now().UTC(),
	}
	if err := s.devices.Create(ctx, device); err != nil {
		return nil, fmt.Errorf("create device: %w", err)
	}
	s.logger.Info("device added", zap.String("device_id", device.ID), zap.String("model", device.Model))
	return device, nil
}

// RemoveDevice transitions a device to REMOVED with a mandatory reason. The
// reason is written exactly once; repeating the call fails without touching
// it.
func (s *InventoryService) RemoveDevice(ctx context.Context, deviceID, reason string, actor models.User) (*models.Device, error) {
	if !actor.Role.CanManageInventory() {
		return nil, apperrors.Forbidden("only admins may remove devices")
	}
	if strings.TrimSpace(reason) == "" {
		return nil, apperrors.Validation("a removal reason is required")
	}

	device, err := s.devices.Remove(ctx, deviceID, reason)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, apperrors.NotFound("device %s not found", deviceID)
		case errors.Is(err, repository.ErrConflict):
			return nil, apperrors.AlreadyRemoved("device %s is already removed", deviceID)
		}
		return nil, fmt.Errorf("remove device: %w", err)
	}

	s.logger.Info("device removed",
		zap.String("device_id", device.ID),
		zap.String("actor_id", actor.ID),
	)
	return device, nil
}

// StripPart appends to a device's strip log.
func (s *InventoryService) StripPart(ctx context.Context, deviceID string, req models.StripPartRequest, actor models.User) (*models.Device, error) {
	part := models.StrippedPart{
		PartID:     req.PartID,
		PartName:   req.PartName,
		StrippedAt: s.now().UTC(),
	}
	device, err := s.devices.AppendStrippedPart(ctx, deviceID, part)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, apperrors.NotFound("device %s not found", deviceID)
		case errors.Is(err, repository.ErrConflict):
			return nil, apperrors.AlreadyRemoved("device %s is removed; its strip log is closed", deviceID)
		}
		return nil, fmt.Errorf("append stripped part: %w", err)
	}
	s.logger.Info("part stripped",
		zap.String("device_id", deviceID),
		zap.String("part_name", req.PartName),
		zap.String("actor_id", actor.ID),
	)
	return device, nil
}

// LogArrival applies a shipment manifest: every line must reference an
// existing item, and no item may appear on more than one line. Lines are
// validated up front, then applied with best-effort
// rollback if a later line fails, and each successful line gains an ADD entry
// plus an arrival notification to the item's requester, if any.
func (s *InventoryService) LogArrival(ctx context.Context, req models.ArrivalRequest, actor models.User) ([]models.Item, error) {
	if !actor.Role.CanManageInventory() {
		return nil, apperrors.Forbidden("only admins may log arrivals")
	}

	requesters := make(map[string]string, len(req.Lines))
	for _, line := range req.Lines {
		if _, dup := requesters[line.ItemID]; dup {
			return nil, apperrors.Validation("item %s appears on more than one manifest line", line.ItemID)
		}
		item, err := s.items.Get(ctx, line.ItemID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, apperrors.NotFound("item %s not found", line.ItemID)
			}
			return nil, fmt.Errorf("get item: %w", err)
		}
		requesters[line.ItemID] = item.RequestedByID
	}

	meta := &models.TransactionMeta{ShipmentNumber: req.ShipmentNumber}
	applied := make([]models.Item, 0, len(req.Lines))
	for _, line := range req.Lines {
		item, err := s.addStockWithLedger(ctx, line.ItemID, line.Quantity, actor, meta)
		if err != nil {
			// applied[i] was produced by req.Lines[i], so each rollback
			// reverses that line's own quantity.
			for i, done := range applied {
				if _, rbErr := s.items.AddStock(ctx, done.ID, -req.Lines[i].Quantity); rbErr != nil {
					s.logger.Error("arrival rollback failed", zap.String("item_id", done.ID), zap.Error(rbErr))
				}
			}
			return nil, err
		}
		applied = append(applied, *item)

		if requesterID := requesters[line.ItemID]; requesterID != "" {
			s.notify(ctx, &models.Notification{
				UserID:  requesterID,
				Message: fmt.Sprintf("%s has arrived (shipment %s).", item.Name, req.ShipmentNumber),
				Type:    models.NotifyPartArrival,
				Meta:    &models.NotificationMeta{PartID: item.ID, ShipmentNumber: req.ShipmentNumber},
			})
		}
	}

	s.logger.Info("arrival logged",
		zap.String("shipment", req.ShipmentNumber),
		zap.Int("lines", len(applied)),
		zap.String("actor_id", actor.ID),
	)
	return applied, nil
}

// createItem persists a new item and its opening ADD ledger entry.
func (s *InventoryService) createItem(ctx context.Context, item *models.Item, actor models.User) (*models.Item, error) {
	if err := s.items.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}

	entry := &models.Transaction{
		ID:            uuid.NewString(),
		ItemID:        item.ID,
		ItemKind:      item.Kind,
		ItemName:      item.Name,
		Type:          models.TxAdd,
		UserID:        actor.ID,
		UserName:      actor.DisplayName(),
		QuantityDelta: item.Quantity,
		CreatedAt:     item.CreatedAt,
	}
	if err := s.ledger.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("append opening entry: %w", err)
	}

	s.logger.Info("item added",
		zap.String("item_id", item.ID),
		zap.String("kind", string(item.Kind)),
		zap.Int("quantity", item.Quantity),
	)
	return item, nil
}

// addStockWithLedger applies a conditional stock increment and records it.
func (s *InventoryService) addStockWithLedger(ctx context.Context, itemID string, n int, actor models.User, meta *models.TransactionMeta) (*models.Item, error) {
	item, err := s.items.AddStock(ctx, itemID, n)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("item %s not found", itemID)
		}
		return nil, fmt.Errorf("add stock: %w", err)
	}

	entry := &models.Transaction{
		ID:            uuid.NewString(),
		ItemID:        item.ID,
		ItemKind:      item.Kind,
		ItemName:      item.Name,
		Type:          models.TxAdd,
		UserID:        actor.ID,
		UserName:      actor.DisplayName(),
		QuantityDelta: n,
		CreatedAt:     s.now().UTC(),
		Meta:          meta,
	}
	if err := s.ledger.Append(ctx, entry); err != nil {
		if _, rbErr := s.items.AddStock(ctx, itemID, -n); rbErr != nil {
			s.logger.Error("add stock rollback failed", zap.String("item_id", itemID), zap.Error(rbErr))
		}
		return nil, fmt.Errorf("append add entry: %w", err)
	}
	return item, nil
}

func (s *InventoryService) notify(ctx context.Context, n *models.Notification) {
	if s.sink == nil {
		return
	}
	if err := s.sink.Notify(ctx, n); err != nil {
		s.logger.Warn("notification delivery failed",
			zap.String("user_id", n.UserID),
			zap.String("type", string(n.Type)),
			zap.Error(err),
		)
	}
}

// openClaimCount returns how many of userID's claims on the item remain
// unconsumed, along with the most recent CLAIM entry. entries are oldest
// first.
func openClaimCount(entries []models.Transaction, userID string) (int, models.Transaction) {
	var open int
	var lastClaim models.Transaction
	for _, entry := range entries {
		if entry.UserID != userID {
			continue
		}
		switch entry.Type {
		case models.TxClaim:
			open++
			lastClaim = entry
		case models.TxCollect, models.TxReturn:
			open--
		}
	}
	return open, lastClaim
}
