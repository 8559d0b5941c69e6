package middleware

import (
	"net/http"
	"strings"

	"skate_battle/internal/logger"
	"skate_battle/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ключи gin.Context
const (
	PlayerIDKey  = "player_id"
	RequestIDKey = "request_id"
)

// RequestID берет X-Request-ID или генерирует новый и кладет его в контекст запроса
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader("X-Request-ID"))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(RequestIDKey, id)
		c.Writer.Header().Set("X-Request-ID", id)
		c.Request = c.Request.WithContext(logger.ContextWithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

// Auth проверяет Bearer JWT, sub токена - id игрока
func Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			abortUnauthenticated(c, "missing bearer token")
			return
		}

		playerID, err := service.ParseJWT(strings.TrimSpace(token))
		if err != nil {
			abortUnauthenticated(c, "invalid token")
			return
		}

		c.Set(PlayerIDKey, playerID)
		c.Request = c.Request.WithContext(logger.ContextWithPlayerID(c.Request.Context(), playerID))
		c.Next()
	}
}

func abortUnauthenticated(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{"code": "UNAUTHENTICATED", "message": msg},
	})
}
