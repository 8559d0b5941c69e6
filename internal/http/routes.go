package http

import (
	"strconv"

	"skate_battle/internal/http/handlers"
	"skate_battle/internal/http/middleware"
	"skate_battle/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouteConfig - зависимости маршрутов помимо обработчиков
type RouteConfig struct {
	RateLimiter        middleware.Counter
	RateLimitPerMinute int
}

// RegisterRoutes вешает REST API батлов на /api/v1
func RegisterRoutes(r *gin.Engine, h *handlers.Handler, cfg RouteConfig) {
	r.Use(middleware.RequestID(), countRequests())

	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	api.Use(middleware.Auth(), middleware.RateLimit(cfg.RateLimiter, cfg.RateLimitPerMinute))
	{
		api.POST("/games", h.CreateGame)
		api.GET("/games/:id", h.GetGame)
		api.POST("/games/:id/join", h.JoinGame)
		api.POST("/games/:id/turns", h.SubmitTurn)
		api.GET("/games/:id/history", h.GameHistory)
		api.GET("/me/games", h.MyGames)
	}
}

func countRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
