package models

import (
	"time"

	apperrors "github.com/Techyana/RWP-Pilot/common/errors"
)

// TransactionType classifies ledger entries.
type TransactionType string

const (
	TxClaim   TransactionType = "CLAIM"
	TxRequest TransactionType = "REQUEST"
	TxCollect TransactionType = "COLLECT"
	TxReturn  TransactionType = "RETURN"
	TxAdd     TransactionType = "ADD"
)

// TransactionMeta carries optional context recorded with an entry.
type TransactionMeta struct {
	SerialNumber   string `bson:"serial_number,omitempty" json:"serialNumber,omitempty"`
	DeviceModel    string `bson:"device_model,omitempty" json:"deviceModel,omitempty"`
	ClientName     string `bson:"client_name,omitempty" json:"clientName,omitempty"`
	ShipmentNumber string `bson:"shipment_number,omitempty" json:"shipmentNumber,omitempty"`
	MeterReading   int    `bson:"meter_reading,omitempty" json:"meterReading,omitempty"`
	Reason         string `bson:"reason,omitempty" json:"reason,omitempty"`
}

// Transaction is one immutable ledger entry. The ledger is append-only and is
// the single source of truth for item state; entries are never mutated or
// deleted. Ordering is by CreatedAt with insertion order breaking ties.
type Transaction struct {
	ID            string           `bson:"_id" json:"id"`
	ItemID        string           `bson:"item_id" json:"itemId"`
	ItemKind      ItemKind         `bson:"item_kind" json:"itemKind"`
	ItemName      string           `bson:"item_name" json:"itemName"`
	Type          TransactionType  `bson:"type" json:"type"`
	UserID        string           `bson:"user_id" json:"userId"`
	UserName      string           `bson:"user_name" json:"userName"`
	QuantityDelta int              `bson:"quantity_delta" json:"quantityDelta"`
	CreatedAt     time.Time        `bson:"created_at" json:"createdAt"`
	Meta          *TransactionMeta `bson:"meta,omitempty" json:"meta,omitempty"`
}

// ValidateDelta enforces the sign rules for each entry type: CLAIM is a
// single-unit reservation (-1), REQUEST and COLLECT carry no stock impact,
// RETURN restores one unit (+1) and ADD brings new stock (positive).
func (t *Transaction) ValidateDelta() error {
	switch t.Type {
	case TxClaim:
		if t.QuantityDelta != -1 {
			return apperrors.InvalidTransaction("CLAIM entry must carry quantityDelta -1, got %d", t.QuantityDelta)
		}
	case TxRequest, TxCollect:
		if t.QuantityDelta != 0 {
			return apperrors.InvalidTransaction("%s entry must carry quantityDelta 0, got %d", t.Type, t.QuantityDelta)
		}
	case TxReturn:
		if t.QuantityDelta != 1 {
			return apperrors.InvalidTransaction("RETURN entry must carry quantityDelta +1, got %d", t.QuantityDelta)
		}
	case TxAdd:
		if t.QuantityDelta <= 0 {
			return apperrors.InvalidTransaction("ADD entry must carry a positive quantityDelta, got %d", t.QuantityDelta)
		}
	default:
		return apperrors.InvalidTransaction("unknown transaction type %q", t.Type)
	}
	return nil
}
