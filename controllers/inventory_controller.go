package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/Techyana/RWP-Pilot/common/errors"
	"github.com/Techyana/RWP-Pilot/middleware"
	"github.com/Techyana/RWP-Pilot/models"
	"github.com/Techyana/RWP-Pilot/services"
)

// InventoryController handles HTTP requests for parts and toners.
type InventoryController struct {
	inventory  *services.InventoryService
	projection *services.ProjectionService
}

func NewInventoryController(inventory *services.InventoryService, projection *services.ProjectionService) *InventoryController {
	return &InventoryController{inventory: inventory, projection: projection}
}

// ListParts returns the parts queue.
// GET /parts?q=&model=&all=
func (ic *InventoryController) ListParts(c *gin.Context) {
	ic.listItems(c, models.KindPart)
}

// ListToners returns the toners queue.
// GET /toners?q=&all=
func (ic *InventoryController) ListToners(c *gin.Context) {
	ic.listItems(c, models.KindToner)
}

func (ic *InventoryController) listItems(c *gin.Context, kind models.ItemKind) {
	user, _ := middleware.CurrentUser(c)
	query := c.Query("q")

	var (
		items []models.Item
		err   error
	)
	if c.Query("all") == "true" && user.Role.CanManageInventory() {
		items, err = ic.projection.ListItems(c.Request.Context(), kind, query)
	} else {
		items, err = ic.projection.Available(c.Request.Context(), kind, query)
	}
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	if model := c.Query("model"); model != "" {
		compatible := make([]models.Item, 0, len(items))
		for _, item := range items {
			if item.CompatibleWith(model) {
				compatible = append(compatible, item)
			}
		}
		items = compatible
	}
	c.JSON(http.StatusOK, items)
}

// Claim reserves one unit for the caller.
// POST /items/:id/claim
func (ic *InventoryController) Claim(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	var req models.ClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	item, err := ic.inventory.Claim(c.Request.Context(), c.Param("id"), user, req)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// Request asks for an item to be sourced; no stock impact.
// POST /items/:id/request
func (ic *InventoryController) Request(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	item, err := ic.inventory.Request(c.Request.Context(), c.Param("id"), user)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// Collect confirms physical pickup of a claimed unit.
// POST /items/:id/collect
func (ic *InventoryController) Collect(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	var req models.CollectRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	item, err := ic.inventory.Collect(c.Request.Context(), c.Param("id"), req.UserID, user)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// Return releases an open claim back to stock.
// POST /items/:id/return
func (ic *InventoryController) Return(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	var req models.ReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	item, err := ic.inventory.Return(c.Request.Context(), c.Param("id"), req.UserID, req.Reason, user)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// AddPart creates a new part.
// POST /admin/parts
func (ic *InventoryController) AddPart(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	var req models.AddPartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	item, err := ic.inventory.AddPart(c.Request.Context(), req, user)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

// AddToner creates a new toner.
// POST /admin/toners
func (ic *InventoryController) AddToner(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	var req models.AddTonerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	item, err := ic.inventory.AddToner(c.Request.Context(), req, user)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

// Fulfill closes out a REQUESTED item with incoming stock.
// POST /admin/items/:id/fulfill
func (ic *InventoryController) Fulfill(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	var req models.FulfillRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	item, err := ic.inventory.Fulfill(c.Request.Context(), c.Param("id"), req.Quantity, user)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// LogArrival applies a shipment manifest.
// POST /admin/arrivals
func (ic *InventoryController) LogArrival(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	var req models.ArrivalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	items, err := ic.inventory.LogArrival(c.Request.Context(), req, user)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":  "Arrival logged",
		"shipment": req.ShipmentNumber,
		"items":    items,
	})
}

// VerifyItem replays an item's ledger against its cached state.
// GET /admin/items/:id/verify
func (ic *InventoryController) VerifyItem(c *gin.Context) {
	derived, err := ic.projection.VerifyItem(c.Request.Context(), c.Param("id"))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":            derived.Status,
		"quantity":          derived.Quantity,
		"availableQuantity": derived.AvailableQuantity,
		"consistent":        true,
	})
}
