package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dhoini/subscription-service/internal/config"
	"github.com/Dhoini/subscription-service/pkg/logger"
)

const testJWTSecret = "test-jwt-secret"

func newTestLogger() *logger.Logger {
	log := logger.New(logger.ERROR)
	log.SetOutput(io.Discard)
	return log
}

func newAuthRouter(t *testing.T) *gin.Engine {
	t.Helper()

	gin.SetMode(gin.TestMode)
	cfg := &config.Config{Auth: config.AuthConfig{JWTSecret: testJWTSecret}}
	m, err := NewAuthMiddleware(cfg, newTestLogger())
	require.NoError(t, err)

	r := gin.New()
	r.GET("/protected", m.RequireAuth(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"userID": UserIDFromContext(c)})
	})
	return r
}

func signedToken(t *testing.T, secret, subject string) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func getProtected(r *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAuthValidToken(t *testing.T) {
	r := newAuthRouter(t)

	w := getProtected(r, "Bearer "+signedToken(t, testJWTSecret, "user-1"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "user-1")
}

func TestRequireAuthMissingHeader(t *testing.T) {
	r := newAuthRouter(t)

	w := getProtected(r, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAuthMalformedHeader(t *testing.T) {
	r := newAuthRouter(t)

	w := getProtected(r, signedToken(t, testJWTSecret, "user-1"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAuthWrongSecret(t *testing.T) {
	r := newAuthRouter(t)

	w := getProtected(r, "Bearer "+signedToken(t, "other-secret", "user-1"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAuthExpiredToken(t *testing.T) {
	r := newAuthRouter(t)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	})
	signed, err := token.SignedString([]byte(testJWTSecret))
	require.NoError(t, err)

	w := getProtected(r, "Bearer "+signed)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAuthTokenWithoutSubject(t *testing.T) {
	r := newAuthRouter(t)

	w := getProtected(r, "Bearer "+signedToken(t, testJWTSecret, ""))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestNewAuthMiddlewareEmptySecret(t *testing.T) {
	cfg := &config.Config{}
	_, err := NewAuthMiddleware(cfg, newTestLogger())
	assert.Error(t, err)
}
