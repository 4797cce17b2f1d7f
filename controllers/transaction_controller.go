package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/Techyana/RWP-Pilot/common/errors"
	"github.com/Techyana/RWP-Pilot/middleware"
	"github.com/Techyana/RWP-Pilot/models"
	"github.com/Techyana/RWP-Pilot/repository"
	"github.com/Techyana/RWP-Pilot/services"
)

// TransactionController serves ledger-derived views.
type TransactionController struct {
	projection  *services.ProjectionService
	windowHours int
}

func NewTransactionController(projection *services.ProjectionService, windowHours int) *TransactionController {
	return &TransactionController{projection: projection, windowHours: windowHours}
}

// Recent returns ledger entries newest first, filtered by the query string.
// Engineers only ever see their own entries.
// GET /transactions/recent?hours=&types=&userId=&kind=
func (tc *TransactionController) Recent(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	q := repository.LedgerQuery{
		Hours:    tc.hoursParam(c),
		UserID:   c.Query("userId"),
		ItemKind: models.ItemKind(c.Query("kind")),
	}
	if raw := c.Query("types"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				q.Types = append(q.Types, models.TransactionType(t))
			}
		}
	}
	if !user.Role.CanManageInventory() {
		q.UserID = user.ID
	}

	entries, err := tc.projection.RecentTransactions(c.Request.Context(), q)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// MyActivity returns the caller's claims and requests inside the window,
// plus any still-open claims regardless of age.
// GET /transactions/activity?hours=&q=
func (tc *TransactionController) MyActivity(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	entries, err := tc.projection.MyActivity(c.Request.Context(), user.ID, tc.hoursParam(c), c.Query("q"))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// Collections returns the caller's pending and recently collected units.
// GET /transactions/collections?hours=&q=
func (tc *TransactionController) Collections(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	entries, err := tc.projection.CollectionsQueue(c.Request.Context(), user.ID, tc.hoursParam(c), c.Query("q"))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (tc *TransactionController) hoursParam(c *gin.Context) int {
	raw := c.Query("hours")
	if raw == "" {
		return tc.windowHours
	}
	hours, err := strconv.Atoi(raw)
	if err != nil || hours < 0 {
		return tc.windowHours
	}
	return hours
}
