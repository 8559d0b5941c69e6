package handlers

import (
	"skate_battle/internal/http/middleware"
	"skate_battle/internal/service"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	Battles *service.BattleService
	Audit   *service.AuditService
	Version string
}

func NewHandler(battles *service.BattleService, audit *service.AuditService, version string) *Handler {
	return &Handler{Battles: battles, Audit: audit, Version: version}
}

// id игрока из JWT, ставится middleware.Auth
func getPlayerID(c *gin.Context) (string, bool) {
	id := c.GetString(middleware.PlayerIDKey)
	return id, id != ""
}
