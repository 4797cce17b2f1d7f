package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Techyana/RWP-Pilot/models"
	"github.com/Techyana/RWP-Pilot/repository"
	"github.com/Techyana/RWP-Pilot/services"
)

func setupRouter(t *testing.T, user models.User) (*gin.Engine, *services.InventoryService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := repository.NewMemoryStore()
	logger := zap.NewNop()
	notifications := services.NewNotificationService(store.Notifications(), logger)
	inventory := services.NewInventoryService(store, store.Devices(), store, notifications, logger)
	projection := services.NewProjectionService(store, store.Devices(), store, nil, 0, logger)
	ic := NewInventoryController(inventory, projection)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("currentUser", user)
		c.Next()
	})
	r.GET("/parts", ic.ListParts)
	r.POST("/items/:id/claim", ic.Claim)
	r.POST("/items/:id/return", ic.Return)
	return r, inventory
}

func testCtx() context.Context { return context.Background() }

func doJSON(r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestClaimEndpoint(t *testing.T) {
	engineer := models.User{ID: "u-dlam", Name: "D", Surname: "Lam", Role: models.RoleEngineer}
	admin := models.User{ID: "u-admin", Role: models.RoleAdmin}

	t.Run("claims an available unit", func(t *testing.T) {
		r, inventory := setupRouter(t, engineer)
		part, err := inventory.AddPart(testCtx(), models.AddPartRequest{Name: "Fuser Unit", PartNumber: "PN1", Quantity: 2}, admin)
		require.NoError(t, err)

		w := doJSON(r, http.MethodPost, "/items/"+part.ID+"/claim", models.ClaimRequest{ClientName: "Acme"})
		assert.Equal(t, http.StatusOK, w.Code)

		var got models.Item
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, 1, got.AvailableQuantity)
		assert.Equal(t, models.StatusPendingCollection, got.Status)
	})

	t.Run("conflict when no unit is free", func(t *testing.T) {
		r, inventory := setupRouter(t, engineer)
		part, err := inventory.AddPart(testCtx(), models.AddPartRequest{Name: "Belt", PartNumber: "PN2", Quantity: 1}, admin)
		require.NoError(t, err)

		w := doJSON(r, http.MethodPost, "/items/"+part.ID+"/claim", nil)
		require.Equal(t, http.StatusOK, w.Code)

		w = doJSON(r, http.MethodPost, "/items/"+part.ID+"/claim", nil)
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "NOT_AVAILABLE")
	})

	t.Run("unknown item is 404", func(t *testing.T) {
		r, _ := setupRouter(t, engineer)
		w := doJSON(r, http.MethodPost, "/items/missing/claim", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("return without a reason is a 400", func(t *testing.T) {
		r, inventory := setupRouter(t, engineer)
		part, err := inventory.AddPart(testCtx(), models.AddPartRequest{Name: "Belt", PartNumber: "PN3", Quantity: 1}, admin)
		require.NoError(t, err)

		w := doJSON(r, http.MethodPost, "/items/"+part.ID+"/claim", nil)
		require.Equal(t, http.StatusOK, w.Code)

		w = doJSON(r, http.MethodPost, "/items/"+part.ID+"/return", map[string]string{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestListPartsEndpoint(t *testing.T) {
	engineer := models.User{ID: "u-dlam", Role: models.RoleEngineer}
	admin := models.User{ID: "u-admin", Role: models.RoleAdmin}

	t.Run("engineer sees only claimable items", func(t *testing.T) {
		r, inventory := setupRouter(t, engineer)
		_, err := inventory.AddPart(testCtx(), models.AddPartRequest{Name: "Fuser Unit", PartNumber: "PN1", Quantity: 1}, admin)
		require.NoError(t, err)
		drained, err := inventory.AddPart(testCtx(), models.AddPartRequest{Name: "Belt", PartNumber: "PN2", Quantity: 1}, admin)
		require.NoError(t, err)
		_, err = inventory.Claim(testCtx(), drained.ID, engineer, models.ClaimRequest{})
		require.NoError(t, err)

		w := doJSON(r, http.MethodGet, "/parts", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var items []models.Item
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
		require.Len(t, items, 1)
		assert.Equal(t, "Fuser Unit", items[0].Name)
	})

	t.Run("admin with all=true sees everything", func(t *testing.T) {
		r, inventory := setupRouter(t, admin)
		part, err := inventory.AddPart(testCtx(), models.AddPartRequest{Name: "Belt", PartNumber: "PN2", Quantity: 1}, admin)
		require.NoError(t, err)
		_, err = inventory.Claim(testCtx(), part.ID, admin, models.ClaimRequest{})
		require.NoError(t, err)

		w := doJSON(r, http.MethodGet, "/parts?all=true", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var items []models.Item
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
		assert.Len(t, items, 1)
	})

	t.Run("model filter keeps compatible items only", func(t *testing.T) {
		r, inventory := setupRouter(t, engineer)
		_, err := inventory.AddPart(testCtx(), models.AddPartRequest{
			Name: "Fuser Unit", PartNumber: "PN1", Quantity: 1,
			ForDeviceModels: []string{"MP C3004"},
		}, admin)
		require.NoError(t, err)
		_, err = inventory.AddPart(testCtx(), models.AddPartRequest{
			Name: "Transfer Belt", PartNumber: "PN2", Quantity: 1,
			ForDeviceModels: []string{"IM C2000"},
		}, admin)
		require.NoError(t, err)

		w := doJSON(r, http.MethodGet, "/parts?model=mp+c3004", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var items []models.Item
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
		require.Len(t, items, 1)
		assert.Equal(t, "Fuser Unit", items[0].Name)
	})

	t.Run("search narrows the list", func(t *testing.T) {
		r, inventory := setupRouter(t, engineer)
		_, err := inventory.AddPart(testCtx(), models.AddPartRequest{Name: "Fuser Unit", PartNumber: "PN1", Quantity: 1}, admin)
		require.NoError(t, err)
		_, err = inventory.AddPart(testCtx(), models.AddPartRequest{Name: "Transfer Belt", PartNumber: "PN2", Quantity: 1}, admin)
		require.NoError(t, err)

		w := doJSON(r, http.MethodGet, "/parts?q=belt", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var items []models.Item
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
		require.Len(t, items, 1)
		assert.Equal(t, "Transfer Belt", items[0].Name)
	})
}
