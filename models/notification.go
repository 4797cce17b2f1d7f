package models

import "time"

// NotificationType classifies portal notifications.
type NotificationType string

const (
	NotifyPartArrival   NotificationType = "PART_ARRIVAL"
	NotifyPartAvailable NotificationType = "PART_AVAILABLE"
	NotifyPartClaimed   NotificationType = "PART_CLAIMED"
	NotifyPartCollected NotificationType = "PART_COLLECTED"
	NotifyGeneral       NotificationType = "GENERAL"
)

// NotificationMeta links a notification back to the item or shipment that
// produced it.
type NotificationMeta struct {
	PartID         string `bson:"part_id,omitempty" json:"partId,omitempty"`
	ShipmentNumber string `bson:"shipment_number,omitempty" json:"shipmentNumber,omitempty"`
}

// Notification is a per-user message. Only IsRead ever changes after
// creation; notifications are not deleted.
type Notification struct {
	ID        string            `bson:"_id" json:"id"`
	UserID    string            `bson:"user_id" json:"userId"`
	Message   string            `bson:"message" json:"message"`
	Timestamp time.Time         `bson:"timestamp" json:"timestamp"`
	IsRead    bool              `bson:"is_read" json:"isRead"`
	Type      NotificationType  `bson:"type" json:"type"`
	Meta      *NotificationMeta `bson:"meta,omitempty" json:"meta,omitempty"`
}
