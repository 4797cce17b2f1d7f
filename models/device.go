package models

import (
	"strings"
	"time"
)

// DeviceCondition grades a disposal-bound device.
type DeviceCondition string

const (
	ConditionGood DeviceCondition = "Good"
	ConditionFair DeviceCondition = "Fair"
	ConditionPoor DeviceCondition = "Poor"
)

// StrippedPart is one entry in a device's append-only strip log.
type StrippedPart struct {
	PartID     string    `bson:"part_id" json:"partId"`
	PartName   string    `bson:"part_name" json:"partName"`
	StrippedAt time.Time `bson:"stripped_at" json:"strippedAt"`
}

// Device is a copier approved for disposal. It carries no quantity; its
// lifecycle is APPROVED_FOR_DISPOSAL -> REMOVED. RemovalReason is set exactly
// once, on removal, and never changes afterwards.
type Device struct {
	ID            string          `bson:"_id" json:"id"`
	Model         string          `bson:"model" json:"model"`
	SerialNumber  string          `bson:"serial_number" json:"serialNumber"`
	Status        ItemStatus      `bson:"status" json:"status"`
	CustomerName  string          `bson:"customer_name" json:"customerName"`
	Condition     DeviceCondition `bson:"condition" json:"condition"`
	Comments      string          `bson:"comments,omitempty" json:"comments,omitempty"`
	StrippedParts []StrippedPart  `bson:"stripped_parts" json:"strippedParts"`
	RemovalReason string          `bson:"removal_reason,omitempty" json:"removalReason,omitempty"`
	CreatedAt     time.Time       `bson:"created_at" json:"createdAt"`
	UpdatedAt     time.Time       `bson:"updated_at" json:"updatedAt"`
}

// MatchesSearch matches model, serial number or customer name.
func (d *Device) MatchesSearch(q string) bool {
	if q == "" {
		return true
	}
	q = strings.ToLower(q)
	for _, field := range []string{d.Model, d.SerialNumber, d.CustomerName} {
		if field != "" && strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}
