package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Techyana/RWP-Pilot/controllers"
	"github.com/Techyana/RWP-Pilot/middleware"
)

// Controllers groups the handler sets wired into the router.
type Controllers struct {
	Inventory     *controllers.InventoryController
	Devices       *controllers.DeviceController
	Transactions  *controllers.TransactionController
	Notifications *controllers.NotificationController
}

// RegisterRoutes mounts all endpoints. Everything except /health requires a
// valid bearer token; the admin group additionally requires a manager role.
func RegisterRoutes(router *gin.Engine, jwtSecret string, ctrl Controllers) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	api := router.Group("/", middleware.AuthMiddleware(jwtSecret))
	{
		api.GET("/parts", ctrl.Inventory.ListParts)
		api.GET("/toners", ctrl.Inventory.ListToners)
		api.POST("/items/:id/claim", ctrl.Inventory.Claim)
		api.POST("/items/:id/request", ctrl.Inventory.Request)
		api.POST("/items/:id/collect", ctrl.Inventory.Collect)
		api.POST("/items/:id/return", ctrl.Inventory.Return)

		api.GET("/devices", ctrl.Devices.ListDevices)
		api.POST("/devices/:id/strip", ctrl.Devices.StripPart)

		api.GET("/transactions/recent", ctrl.Transactions.Recent)
		api.GET("/transactions/activity", ctrl.Transactions.MyActivity)
		api.GET("/transactions/collections", ctrl.Transactions.Collections)

		api.GET("/notifications", ctrl.Notifications.List)
		api.POST("/notifications/:id/read", ctrl.Notifications.MarkRead)
		api.POST("/notifications/read-all", ctrl.Notifications.MarkAllRead)
	}

	admin := api.Group("/admin", middleware.RequireManager())
	{
		admin.POST("/parts", ctrl.Inventory.AddPart)
		admin.POST("/toners", ctrl.Inventory.AddToner)
		admin.POST("/arrivals", ctrl.Inventory.LogArrival)
		admin.POST("/items/:id/fulfill", ctrl.Inventory.Fulfill)
		admin.GET("/items/:id/verify", ctrl.Inventory.VerifyItem)

		admin.POST("/devices", ctrl.Devices.AddDevice)
		admin.DELETE("/devices/:id", ctrl.Devices.RemoveDevice)
	}
}
