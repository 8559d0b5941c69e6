package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"skate_battle/internal/game"
	"skate_battle/internal/http/handlers"
	"skate_battle/internal/repository"
	"skate_battle/internal/service"

	"github.com/gin-gonic/gin"
)

type gatewayClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *gatewayClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *gatewayClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type gateway struct {
	t      *testing.T
	router *gin.Engine
	clock  *gatewayClock
	store  *repository.MemoryStore
}

func newGateway(t *testing.T) *gateway {
	t.Helper()
	gin.SetMode(gin.TestMode)
	if err := service.InitJWT("gateway-secret"); err != nil {
		t.Fatalf("InitJWT: %v", err)
	}
	clock := &gatewayClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := repository.NewMemoryStore()
	battles := service.NewBattleService(store, service.BattleConfig{
		Rules:         game.DefaultRules(),
		RetryInterval: time.Millisecond,
		Now:           clock.Now,
	})
	h := handlers.NewHandler(battles, service.NewAuditService(store), "test")

	r := gin.New()
	RegisterRoutes(r, h, RouteConfig{})
	return &gateway{t: t, router: r, clock: clock, store: store}
}

// do выполняет запрос от имени игрока (пустой - без токена)
func (g *gateway) do(method, path, player string, body any) (int, map[string]any) {
	g.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			g.t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if player != "" {
		token, err := service.IssueJWT(player, time.Hour)
		if err != nil {
			g.t.Fatalf("IssueJWT: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	g.router.ServeHTTP(w, req)

	out := map[string]any{}
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			g.t.Fatalf("%s %s: ответ не json: %s", method, path, w.Body.String())
		}
	}
	return w.Code, out
}

func (g *gateway) expect(method, path, player string, body any, status int) map[string]any {
	g.t.Helper()
	code, out := g.do(method, path, player, body)
	if code != status {
		g.t.Fatalf("%s %s: ожидался %d, получено %d: %v", method, path, status, code, out)
	}
	return out
}

func errorCode(out map[string]any) string {
	e, _ := out["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func letters(out map[string]any, player string) string {
	l, _ := out["letters"].(map[string]any)
	s, _ := l[player].(string)
	return s
}

func TestGatewayBattleFlow(t *testing.T) {
	g := newGateway(t)

	g.expect(http.MethodPost, "/api/v1/games", "", map[string]any{"clipRef": "clipA"}, http.StatusUnauthorized)

	out := g.expect(http.MethodPost, "/api/v1/games", "p1", map[string]any{"clipRef": "clipA", "gameId": "g1"}, http.StatusCreated)
	if out["gameId"] != "g1" {
		t.Fatalf("ожидался gameId g1: %v", out)
	}
	out = g.expect(http.MethodPost, "/api/v1/games", "p2", map[string]any{"clipRef": "x", "gameId": "g1"}, http.StatusConflict)
	if errorCode(out) != "ALREADY_EXISTS" {
		t.Fatalf("ожидался ALREADY_EXISTS: %v", out)
	}

	out = g.expect(http.MethodGet, "/api/v1/games/g1", "p2", nil, http.StatusOK)
	if out["status"] != "PENDING" || out["turnKind"] != nil {
		t.Fatalf("ожидался PENDING без turnKind: %v", out)
	}

	g.expect(http.MethodPost, "/api/v1/games/g1/join", "p1", nil, http.StatusForbidden)
	out = g.expect(http.MethodPost, "/api/v1/games/g1/join", "p2", nil, http.StatusOK)
	if out["status"] != "ACTIVE" || out["turnHolderId"] != "p2" || out["turnKind"] != "ATTEMPT_MATCH" {
		t.Fatalf("неверное состояние после присоединения: %v", out)
	}

	out = g.expect(http.MethodPost, "/api/v1/games/g1/turns", "p1", map[string]any{"kind": "judge", "landed": false}, http.StatusForbidden)
	if errorCode(out) != "PERMISSION_DENIED" {
		t.Fatalf("ожидался PERMISSION_DENIED: %v", out)
	}

	out = g.expect(http.MethodPost, "/api/v1/games/g1/turns", "p2", map[string]any{"kind": "attempt", "clipRef": "clipB"}, http.StatusOK)
	if out["status"] != "JUDGING" || out["turnHolderId"] != "p1" {
		t.Fatalf("ожидался JUDGING у сеттера: %v", out)
	}

	judge := map[string]any{"kind": "judge", "landed": false, "clipRef": "clipB"}
	out = g.expect(http.MethodPost, "/api/v1/games/g1/turns", "p1", judge, http.StatusOK)
	if letters(out, "p2") != "S" || out["turnHolderId"] != "p1" || out["turnKind"] != "SET_TRICK" {
		t.Fatalf("неверное состояние после промаха: %v", out)
	}

	out = g.expect(http.MethodPost, "/api/v1/games/g1/turns", "p1", judge, http.StatusPreconditionFailed)
	if errorCode(out) != "FAILED_PRECONDITION" {
		t.Fatalf("повторный вердикт: %v", out)
	}

	out = g.expect(http.MethodGet, "/api/v1/games/g1/history", "p1", nil, http.StatusOK)
	if h, _ := out["history"].([]any); len(h) != 4 {
		t.Fatalf("ожидалось 4 записи журнала: %v", out)
	}

	out = g.expect(http.MethodGet, "/api/v1/me/games?status=active", "p2", nil, http.StatusOK)
	if games, _ := out["games"].([]any); len(games) != 1 {
		t.Fatalf("ожидалась одна активная игра: %v", out)
	}
	g.expect(http.MethodGet, "/api/v1/me/games?status=bogus", "p2", nil, http.StatusBadRequest)

	if logs := g.store.AuditLogs(); len(logs) == 0 {
		t.Fatalf("действия не попали в аудит")
	}
}

func TestGatewayTurnValidation(t *testing.T) {
	g := newGateway(t)
	g.expect(http.MethodPost, "/api/v1/games", "p1", map[string]any{"clipRef": "clipA", "gameId": "g1"}, http.StatusCreated)
	g.expect(http.MethodPost, "/api/v1/games/g1/join", "p2", nil, http.StatusOK)

	cases := []map[string]any{
		{"kind": "attempt", "clipRef": "c", "landed": true},
		{"kind": "attempt"},
		{"kind": "set", "clipRef": "  "},
		{"kind": "judge", "clipRef": "c"},
		{"kind": "dance", "clipRef": "c"},
		{},
	}
	for _, body := range cases {
		out := g.expect(http.MethodPost, "/api/v1/games/g1/turns", "p2", body, http.StatusBadRequest)
		if errorCode(out) != "VALIDATION_ERROR" {
			t.Fatalf("%v: ожидался VALIDATION_ERROR, получено %v", body, out)
		}
	}
	g.expect(http.MethodPost, "/api/v1/games", "p1", map[string]any{}, http.StatusBadRequest)
}

func TestGatewayNotFoundAndExpired(t *testing.T) {
	g := newGateway(t)
	out := g.expect(http.MethodGet, "/api/v1/games/missing", "p1", nil, http.StatusNotFound)
	if errorCode(out) != "NOT_FOUND" {
		t.Fatalf("ожидался NOT_FOUND: %v", out)
	}
	g.expect(http.MethodPost, "/api/v1/games/missing/join", "p2", nil, http.StatusNotFound)

	g.expect(http.MethodPost, "/api/v1/games", "p1", map[string]any{"clipRef": "clipA", "gameId": "g1"}, http.StatusCreated)
	g.expect(http.MethodPost, "/api/v1/games/g1/join", "p2", nil, http.StatusOK)

	g.clock.Advance(25 * time.Hour)
	out = g.expect(http.MethodPost, "/api/v1/games/g1/turns", "p2", map[string]any{"kind": "attempt", "clipRef": "late"}, http.StatusGone)
	if errorCode(out) != "EXPIRED" {
		t.Fatalf("ожидался EXPIRED: %v", out)
	}
	view, _ := out["game"].(map[string]any)
	if view["status"] != "FORFEITED" || view["winnerId"] != "p1" {
		t.Fatalf("в ответе должен быть итог форфейта: %v", view)
	}
}

func TestGatewayHealth(t *testing.T) {
	g := newGateway(t)
	out := g.expect(http.MethodGet, "/health", "", nil, http.StatusOK)
	if out["status"] != "ok" {
		t.Fatalf("health: %v", out)
	}
}
