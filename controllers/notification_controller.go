package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/Techyana/RWP-Pilot/common/errors"
	"github.com/Techyana/RWP-Pilot/middleware"
	"github.com/Techyana/RWP-Pilot/services"
)

// NotificationController serves a user's notification feed.
type NotificationController struct {
	notifications *services.NotificationService
}

func NewNotificationController(notifications *services.NotificationService) *NotificationController {
	return &NotificationController{notifications: notifications}
}

// List returns the caller's notifications, newest first.
// GET /notifications
func (nc *NotificationController) List(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	list, err := nc.notifications.ListForUser(c.Request.Context(), user.ID)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// MarkRead marks one of the caller's notifications as read.
// POST /notifications/:id/read
func (nc *NotificationController) MarkRead(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	if err := nc.notifications.MarkRead(c.Request.Context(), c.Param("id"), user.ID); err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}

// MarkAllRead marks all of the caller's notifications as read.
// POST /notifications/read-all
func (nc *NotificationController) MarkAllRead(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	if err := nc.notifications.MarkAllRead(c.Request.Context(), user.ID); err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "All notifications marked as read"})
}
