package models

import (
	"strings"
	"time"
)

// ItemKind tags the inventory item variant. Dispatch on it explicitly; there
// is no duck typing on optional fields.
type ItemKind string

const (
	KindPart   ItemKind = "PART"
	KindToner  ItemKind = "TONER"
	KindDevice ItemKind = "DEVICE"
)

// ItemStatus is the denormalized lifecycle state of an item. It is a derived
// cache: the transaction ledger is authoritative and the status must always
// be reproducible by replay.
type ItemStatus string

const (
	StatusAvailable         ItemStatus = "AVAILABLE"
	StatusClaimed           ItemStatus = "CLAIMED"
	StatusPendingCollection ItemStatus = "PENDING_COLLECTION"
	StatusCollected         ItemStatus = "COLLECTED"
	StatusRequested         ItemStatus = "REQUESTED"
	StatusRemoved           ItemStatus = "REMOVED"

	// Device-only statuses
	StatusApprovedForDisposal ItemStatus = "APPROVED_FOR_DISPOSAL"
)

// TonerColor enumerates the CMYK toner variants.
type TonerColor string

const (
	TonerBlack   TonerColor = "Black"
	TonerCyan    TonerColor = "Cyan"
	TonerMagenta TonerColor = "Magenta"
	TonerYellow  TonerColor = "Yellow"
)

// Item is a quantity-bearing inventory record (Part or Toner).
//
// Quantity is the number of units currently held (collected units leave it);
// AvailableQuantity is the subset not reserved by an open claim. The
// invariant 0 <= AvailableQuantity <= Quantity holds at all times.
type Item struct {
	ID     string     `bson:"_id" json:"id"`
	Kind   ItemKind   `bson:"kind" json:"kind"`
	Name   string     `bson:"name" json:"name"`
	Status ItemStatus `bson:"status" json:"status"`

	Quantity          int `bson:"quantity" json:"quantity"`
	AvailableQuantity int `bson:"available_quantity" json:"availableQuantity"`

	// Part fields
	PartNumber string `bson:"part_number,omitempty" json:"partNumber,omitempty"`

	// Toner fields
	Model   string     `bson:"model,omitempty" json:"model,omitempty"`
	EDPCode string     `bson:"edp_code,omitempty" json:"edpCode,omitempty"`
	Color   TonerColor `bson:"color,omitempty" json:"color,omitempty"`
	Yield   int        `bson:"yield,omitempty" json:"yield,omitempty"`

	// Denormalized snapshot of the most recent claim. Display cache only;
	// reconstructable from the ledger.
	ClaimedByName string     `bson:"claimed_by_name,omitempty" json:"claimedByName,omitempty"`
	ClaimedAt     *time.Time `bson:"claimed_at,omitempty" json:"claimedAt,omitempty"`

	RequestedByID string     `bson:"requested_by_id,omitempty" json:"requestedById,omitempty"`
	RequestedAt   *time.Time `bson:"requested_at,omitempty" json:"requestedAt,omitempty"`

	ForDeviceModels []string `bson:"for_device_models,omitempty" json:"forDeviceModels,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// MatchesSearch reports whether q matches the item's display name or one of
// its identifiers. Matching is case-insensitive substring; an empty query
// matches everything.
func (i *Item) MatchesSearch(q string) bool {
	if q == "" {
		return true
	}
	q = strings.ToLower(q)
	for _, field := range []string{i.Name, i.PartNumber, i.Model, i.EDPCode} {
		if field != "" && strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

// CompatibleWith reports whether the item is listed for the given device
// model (case-insensitive substring on either side).
func (i *Item) CompatibleWith(model string) bool {
	model = strings.ToLower(strings.TrimSpace(model))
	if model == "" {
		return false
	}
	for _, m := range i.ForDeviceModels {
		lm := strings.ToLower(m)
		if strings.Contains(lm, model) || strings.Contains(model, lm) {
			return true
		}
	}
	return false
}
