package handlers

import (
	"errors"
	"net/http"
	"strings"

	"skate_battle/internal/domain"
	"skate_battle/internal/game"
	"skate_battle/internal/logger"

	"github.com/gin-gonic/gin"
)

type createGameRequest struct {
	ClipRef string `json:"clipRef"`
	GameID  string `json:"gameId"`
}

// поля указателями, чтобы отличать "не передано" от нулевого значения
type submitTurnRequest struct {
	Kind    string  `json:"kind"`
	ClipRef *string `json:"clipRef"`
	Landed  *bool   `json:"landed"`
}

// Создание вызова, ход сразу за соперником
func (h *Handler) CreateGame(c *gin.Context) {
	playerID, ok := getPlayerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorBody("UNAUTHENTICATED", "player not found"))
		return
	}

	var req createGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	if strings.TrimSpace(req.ClipRef) == "" {
		badRequest(c, "clipRef is required")
		return
	}

	ctx := c.Request.Context()
	out, err := h.Battles.Create(ctx, playerID, req.ClipRef, strings.TrimSpace(req.GameID))
	gameID := out.Game.ID
	if gameID == "" {
		gameID = req.GameID
	}
	h.Audit.LogBattle(ctx, playerID, gameID, game.KindCreate, err, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"gameId": out.Game.ID})
}

func (h *Handler) GetGame(c *gin.Context) {
	g, err := h.Battles.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newGameView(g))
}

// Присоединение к вызову, соперник - вызывающий
func (h *Handler) JoinGame(c *gin.Context) {
	playerID, ok := getPlayerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorBody("UNAUTHENTICATED", "player not found"))
		return
	}
	h.apply(c, playerID, c.Param("id"), game.JoinGame{OpponentID: playerID})
}

// Ход: постановка трюка, попытка или вердикт
func (h *Handler) SubmitTurn(c *gin.Context) {
	playerID, ok := getPlayerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorBody("UNAUTHENTICATED", "player not found"))
		return
	}

	var req submitTurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	action, msg := turnAction(playerID, req)
	if action == nil {
		badRequest(c, msg)
		return
	}
	h.apply(c, playerID, c.Param("id"), action)
}

// turnAction проверяет, что у каждого вида ровно свои поля
func turnAction(playerID string, req submitTurnRequest) (game.Action, string) {
	clip := ""
	if req.ClipRef != nil {
		clip = strings.TrimSpace(*req.ClipRef)
	}

	switch req.Kind {
	case "set", "attempt":
		if req.Landed != nil {
			return nil, "landed is only allowed for judge"
		}
		if clip == "" {
			return nil, "clipRef is required for " + req.Kind
		}
		if req.Kind == "set" {
			return game.SubmitSet{ActorID: playerID, ClipRef: clip}, ""
		}
		return game.SubmitAttempt{ActorID: playerID, ClipRef: clip}, ""
	case "judge":
		if req.Landed == nil {
			return nil, "landed is required for judge"
		}
		return game.SubmitJudgment{ActorID: playerID, Landed: *req.Landed, AttemptRef: clip}, ""
	case "":
		return nil, "kind is required"
	default:
		return nil, "kind must be one of set, attempt, judge"
	}
}

func (h *Handler) apply(c *gin.Context, playerID, gameID string, action game.Action) {
	ctx := logger.ContextWithGameID(c.Request.Context(), gameID)
	out, err := h.Battles.Apply(ctx, gameID, action)
	h.Audit.LogBattle(ctx, playerID, gameID, action.Kind(), err, c.ClientIP(), c.Request.UserAgent())

	var rej *game.Rejection
	if errors.As(err, &rej) && rej.Code == game.CodeExpired {
		// опоздавший ход проигран, клиенту нужно итоговое состояние
		body := errorBody(string(rej.Code), rej.Message)
		body["game"] = newGameView(&out.Game)
		c.JSON(http.StatusGone, body)
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newGameView(&out.Game))
}

func (h *Handler) GameHistory(c *gin.Context) {
	entries, err := h.Battles.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": newHistoryView(entries)})
}

// Батлы текущего игрока, ?status= фильтрует
func (h *Handler) MyGames(c *gin.Context) {
	playerID, ok := getPlayerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorBody("UNAUTHENTICATED", "player not found"))
		return
	}

	status := domain.GameStatus(strings.ToUpper(strings.TrimSpace(c.Query("status"))))
	games, err := h.Battles.ListForPlayer(c.Request.Context(), playerID, status)
	if err != nil {
		writeError(c, err)
		return
	}

	views := make([]GameStateView, 0, len(games))
	for _, g := range games {
		views = append(views, newGameView(g))
	}
	c.JSON(http.StatusOK, gin.H{"games": views})
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": h.Version})
}
