package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"skate_battle/internal/service"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type memCounter struct {
	mu   sync.Mutex
	hits map[string]int64
	err  error
}

func (m *memCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hits == nil {
		m.hits = map[string]int64{}
	}
	m.hits[key]++
	return m.hits[key], nil
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	handlers = append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"player": c.GetString(PlayerIDKey)})
	})
	r.GET("/x", handlers...)
	return r
}

func do(r *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuth(t *testing.T) {
	if err := service.InitJWT("mw-secret"); err != nil {
		t.Fatalf("InitJWT: %v", err)
	}
	r := newRouter(RequestID(), Auth())

	if w := do(r, ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("без токена ожидался 401, получено %d", w.Code)
	}
	if w := do(r, "Bearer nope"); w.Code != http.StatusUnauthorized {
		t.Fatalf("с мусором ожидался 401, получено %d", w.Code)
	}

	token, _ := service.IssueJWT("p1", time.Hour)
	w := do(r, "Bearer "+token)
	if w.Code != http.StatusOK {
		t.Fatalf("ожидался 200, получено %d: %s", w.Code, w.Body.String())
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatalf("нет X-Request-ID в ответе")
	}
}

func TestRateLimit(t *testing.T) {
	counter := &memCounter{}
	r := newRouter(RateLimit(counter, 2))

	for i := 0; i < 2; i++ {
		if w := do(r, ""); w.Code != http.StatusOK {
			t.Fatalf("запрос %d: ожидался 200, получено %d", i, w.Code)
		}
	}
	if w := do(r, ""); w.Code != http.StatusTooManyRequests {
		t.Fatalf("ожидался 429, получено %d", w.Code)
	}
}

func TestRateLimitFailsOpen(t *testing.T) {
	r := newRouter(RateLimit(&memCounter{err: errors.New("redis down")}, 1))
	for i := 0; i < 3; i++ {
		if w := do(r, ""); w.Code != http.StatusOK {
			t.Fatalf("при недоступном redis запросы пропускаются, получено %d", w.Code)
		}
	}
}
