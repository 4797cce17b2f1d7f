package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Techyana/RWP-Pilot/models"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func newRouter(handler gin.HandlerFunc, extra ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	chain := append([]gin.HandlerFunc{AuthMiddleware(testSecret)}, extra...)
	chain = append(chain, handler)
	r.GET("/protected", chain...)
	return r
}

func request(r *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	echoUser := func(c *gin.Context) {
		user, _ := CurrentUser(c)
		c.JSON(http.StatusOK, gin.H{"id": user.ID, "role": string(user.Role)})
	}

	t.Run("valid token populates the current user", func(t *testing.T) {
		token := signToken(t, testSecret, jwt.MapClaims{
			"uid":     "u-dlam",
			"name":    "D",
			"surname": "Lam",
			"role":    string(models.RoleEngineer),
			"exp":     time.Now().Add(time.Hour).Unix(),
		})

		w := request(newRouter(echoUser), token)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "u-dlam")
		assert.Contains(t, w.Body.String(), string(models.RoleEngineer))
	})

	t.Run("missing header", func(t *testing.T) {
		w := request(newRouter(echoUser), "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("wrong signing key", func(t *testing.T) {
		token := signToken(t, "other-secret", jwt.MapClaims{"uid": "u-dlam"})
		w := request(newRouter(echoUser), token)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("expired token", func(t *testing.T) {
		token := signToken(t, testSecret, jwt.MapClaims{
			"uid": "u-dlam",
			"exp": time.Now().Add(-time.Hour).Unix(),
		})
		w := request(newRouter(echoUser), token)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("token without a user id", func(t *testing.T) {
		token := signToken(t, testSecret, jwt.MapClaims{"role": "ENGINEER"})
		w := request(newRouter(echoUser), token)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestRequireManager(t *testing.T) {
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }

	tokenFor := func(t *testing.T, role models.Role) string {
		return signToken(t, testSecret, jwt.MapClaims{
			"uid":  "u-1",
			"role": string(role),
			"exp":  time.Now().Add(time.Hour).Unix(),
		})
	}

	t.Run("admin passes", func(t *testing.T) {
		w := request(newRouter(ok, RequireManager()), tokenFor(t, models.RoleAdmin))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("supervisor passes", func(t *testing.T) {
		w := request(newRouter(ok, RequireManager()), tokenFor(t, models.RoleSupervisor))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("engineer is rejected", func(t *testing.T) {
		w := request(newRouter(ok, RequireManager()), tokenFor(t, models.RoleEngineer))
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}
