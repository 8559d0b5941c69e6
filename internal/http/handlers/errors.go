package handlers

import (
	"errors"
	"net/http"

	"skate_battle/internal/game"
	"skate_battle/internal/logger"

	"github.com/gin-gonic/gin"
)

var statusByCode = map[game.Code]int{
	game.CodeNotFound:           http.StatusNotFound,
	game.CodeAlreadyExists:      http.StatusConflict,
	game.CodePermissionDenied:   http.StatusForbidden,
	game.CodeFailedPrecondition: http.StatusPreconditionFailed,
	game.CodeValidation:         http.StatusBadRequest,
	game.CodeConflict:           http.StatusConflict,
	game.CodeExpired:            http.StatusGone,
}

func errorBody(code, message string) gin.H {
	return gin.H{"error": gin.H{"code": code, "message": message}}
}

// writeError отдает конверт ошибки, внутренние детали не уходят клиенту
func writeError(c *gin.Context, err error) {
	var rej *game.Rejection
	if errors.As(err, &rej) {
		status, ok := statusByCode[rej.Code]
		if ok {
			c.JSON(status, errorBody(string(rej.Code), rej.Message))
			return
		}
	}
	logger.WithContext(c.Request.Context()).Error("request failed", "path", c.FullPath(), "error", err)
	c.JSON(http.StatusInternalServerError, errorBody("INTERNAL", "internal error"))
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, errorBody(string(game.CodeValidation), message))
}
