package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/Dhoini/subscription-service/internal/config"
	"github.com/Dhoini/subscription-service/pkg/logger"
	"github.com/Dhoini/subscription-service/pkg/res"
)

const (
	// ContextUserIDKey ключ для хранения ID пользователя в контексте Gin
	ContextUserIDKey = "userID"

	authHeaderPrefix = "Bearer "
)

// AuthMiddleware проверяет bearer-токен и извлекает ID пользователя.
// Проверка токена намеренно тонкая: выпуск и жизненный цикл токенов
// принадлежат внешнему провайдеру аутентификации.
type AuthMiddleware struct {
	secret []byte
	log    *logger.Logger
}

// NewAuthMiddleware создает новый middleware аутентификации
func NewAuthMiddleware(cfg *config.Config, log *logger.Logger) (*AuthMiddleware, error) {
	if cfg.Auth.JWTSecret == "" {
		log.Errorw("JWT secret is not configured")
		return nil, errors.New("jwt secret is not configured")
	}

	return &AuthMiddleware{
		secret: []byte(cfg.Auth.JWTSecret),
		log:    log,
	}, nil
}

// RequireAuth возвращает обработчик, требующий валидный bearer-токен
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			m.handleAuthError(c, "Missing authorization token")
			return
		}

		tokenString := strings.TrimPrefix(authHeader, authHeaderPrefix)
		if tokenString == authHeader {
			m.handleAuthError(c, "Malformed authorization header")
			return
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return m.secret, nil
		})
		if err != nil || !token.Valid {
			m.handleAuthError(c, "Token validation failed")
			return
		}

		userID, err := token.Claims.GetSubject()
		if err != nil || userID == "" {
			m.handleAuthError(c, "Token has no subject")
			return
		}

		c.Set(ContextUserIDKey, userID)
		c.Next()
	}
}

// handleAuthError отклоняет запрос без деталей проверки токена
func (m *AuthMiddleware) handleAuthError(c *gin.Context, message string) {
	m.log.Warnw("Authentication failed", "reason", message, "path", c.Request.URL.Path)
	res.JsonResponse(c.Writer, res.ErrorResponse{Error: "Unauthorized"}, http.StatusUnauthorized)
	c.Abort()
}

// UserIDFromContext возвращает ID пользователя, сохраненный RequireAuth
func UserIDFromContext(c *gin.Context) string {
	return c.GetString(ContextUserIDKey)
}
