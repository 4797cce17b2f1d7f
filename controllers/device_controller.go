package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/Techyana/RWP-Pilot/common/errors"
	"github.com/Techyana/RWP-Pilot/middleware"
	"github.com/Techyana/RWP-Pilot/models"
	"github.com/Techyana/RWP-Pilot/services"
)

// DeviceController handles HTTP requests for disposal-bound devices.
type DeviceController struct {
	inventory  *services.InventoryService
	projection *services.ProjectionService
}

func NewDeviceController(inventory *services.InventoryService, projection *services.ProjectionService) *DeviceController {
	return &DeviceController{inventory: inventory, projection: projection}
}

// ListDevices returns devices approved for disposal.
// GET /devices?q=
func (dc *DeviceController) ListDevices(c *gin.Context) {
	devices, err := dc.projection.ListDevices(c.Request.Context(), c.Query("q"))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, devices)
}

// AddDevice registers a device for stripping.
// POST /admin/devices
func (dc *DeviceController) AddDevice(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	var req models.AddDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	device, err := dc.inventory.AddDevice(c.Request.Context(), req, user)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, device)
}

// StripPart appends to a device's strip log.
// POST /devices/:id/strip
func (dc *DeviceController) StripPart(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	var req models.StripPartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	device, err := dc.inventory.StripPart(c.Request.Context(), c.Param("id"), req, user)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, device)
}

// RemoveDevice retires a device from the disposal queue.
// DELETE /admin/devices/:id
func (dc *DeviceController) RemoveDevice(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	var req models.RemoveDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	device, err := dc.inventory.RemoveDevice(c.Request.Context(), c.Param("id"), req.Reason, user)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, device)
}
