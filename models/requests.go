package models

// Request payloads bound by the HTTP layer. Validation tags mirror the gin
// binding conventions used across the services.

// ClaimRequest carries optional job context recorded with a claim.
type ClaimRequest struct {
	ClientName         string `json:"clientName"`
	TargetDeviceSerial string `json:"targetDeviceSerial"`
	TargetDeviceModel  string `json:"targetDeviceModel"`
	MeterReading       int    `json:"meterReading" binding:"omitempty,gte=0"`
}

// CollectRequest confirms physical pickup. UserID is only honoured for
// admin/supervisor callers collecting on behalf of the claimant.
type CollectRequest struct {
	UserID string `json:"userId"`
}

// ReturnRequest releases an open claim back to stock. UserID is only
// honoured for admin/supervisor callers returning on behalf of the claimant.
type ReturnRequest struct {
	UserID string `json:"userId"`
	Reason string `json:"reason" binding:"required"`
}

// FulfillRequest closes out a REQUESTED item with incoming stock.
type FulfillRequest struct {
	Quantity int `json:"quantity" binding:"omitempty,min=1"`
}

// AddPartRequest creates a new part.
type AddPartRequest struct {
	Name            string   `json:"name" binding:"required"`
	PartNumber      string   `json:"partNumber" binding:"required"`
	Quantity        int      `json:"quantity" binding:"required,min=1"`
	ForDeviceModels []string `json:"forDeviceModels"`
}

// AddTonerRequest creates a new toner.
type AddTonerRequest struct {
	Model           string     `json:"model" binding:"required"`
	EDPCode         string     `json:"edpCode" binding:"required"`
	Color           TonerColor `json:"color" binding:"required"`
	Yield           int        `json:"yield" binding:"omitempty,gte=0"`
	Quantity        int        `json:"quantity" binding:"required,min=1"`
	ForDeviceModels []string   `json:"forDeviceModels"`
}

// AddDeviceRequest registers a disposal-bound device.
type AddDeviceRequest struct {
	Model        string          `json:"model" binding:"required"`
	SerialNumber string          `json:"serialNumber" binding:"required"`
	CustomerName string          `json:"customerName"`
	Condition    DeviceCondition `json:"condition"`
	Comments     string          `json:"comments"`
}

// RemoveDeviceRequest records the mandatory removal reason.
type RemoveDeviceRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// StripPartRequest appends to a device's strip log.
type StripPartRequest struct {
	PartID   string `json:"partId"`
	PartName string `json:"partName" binding:"required"`
}

// ArrivalLine is one row of a shipment manifest. ItemID targets an existing
// item; quantity is the number of units received.
type ArrivalLine struct {
	ItemID   string `json:"itemId" binding:"required"`
	Quantity int    `json:"quantity" binding:"required,min=1"`
}

// ArrivalRequest logs a shipment arrival against existing inventory.
type ArrivalRequest struct {
	ShipmentNumber string        `json:"shipmentNumber" binding:"required"`
	Lines          []ArrivalLine `json:"lines" binding:"required,dive"`
}
