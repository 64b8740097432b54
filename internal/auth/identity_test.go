package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestVerifierParse(t *testing.T) {
	v := &Verifier{secret: []byte("test-secret")}

	t.Run("role claim", func(t *testing.T) {
		tok := signToken(t, "test-secret", jwt.MapClaims{"sub": "u-1", "role": "ROLE_EDITOR"})
		id, err := v.Parse(tok)
		require.NoError(t, err)
		assert.Equal(t, "u-1", id.UserID)
		assert.Equal(t, RoleEditor, id.Role)
		assert.Equal(t, tok, id.Token)
	})

	t.Run("roles list claim", func(t *testing.T) {
		tok := signToken(t, "test-secret", jwt.MapClaims{"sub": "u-2", "roles": []string{"PUBLISHER", "EDITOR"}})
		id, err := v.Parse(tok)
		require.NoError(t, err)
		assert.Equal(t, RolePublisher, id.Role)
	})

	t.Run("wrong secret rejected", func(t *testing.T) {
		tok := signToken(t, "other-secret", jwt.MapClaims{"sub": "u-1", "role": "EDITOR"})
		_, err := v.Parse(tok)
		assert.Error(t, err)
	})

	t.Run("missing role rejected", func(t *testing.T) {
		tok := signToken(t, "test-secret", jwt.MapClaims{"sub": "u-1"})
		_, err := v.Parse(tok)
		assert.Error(t, err)
	})

	t.Run("garbage rejected", func(t *testing.T) {
		_, err := v.Parse("not-a-jwt")
		assert.Error(t, err)
	})
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	v := &Verifier{secret: []byte("test-secret")}

	router := gin.New()
	router.GET("/protected", v.Middleware(), func(c *gin.Context) {
		id := IdentityFrom(c)
		require.NotNil(t, id)
		c.JSON(http.StatusOK, gin.H{"user": id.UserID})
	})

	t.Run("valid token passes", func(t *testing.T) {
		tok := signToken(t, "test-secret", jwt.MapClaims{"sub": "u-1", "role": "ADMIN"})
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("missing header is 401", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("malformed token is 401", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
