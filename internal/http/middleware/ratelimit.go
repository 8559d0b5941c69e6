package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"skate_battle/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Counter - счетчик в фиксированном окне
type Counter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RedisCounter - INCR + EXPIRE в одной транзакции
type RedisCounter struct {
	rdb *redis.Client
}

func NewRedisCounter(rdb *redis.Client) *RedisCounter {
	return &RedisCounter{rdb: rdb}
}

func (r *RedisCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	pipe := r.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// RateLimit ограничивает запросы игрока (или ip до авторизации) в минуту.
// Ошибка redis не блокирует игру, запрос пропускается.
func RateLimit(counter Counter, perMinute int) gin.HandlerFunc {
	return func(c *gin.Context) {
		if counter == nil || perMinute <= 0 {
			c.Next()
			return
		}

		who := c.GetString(PlayerIDKey)
		if who == "" {
			who = "ip:" + c.ClientIP()
		}
		bucket := time.Now().Unix() / 60
		key := fmt.Sprintf("skate:rl:%s:%d", who, bucket)

		n, err := counter.Incr(c.Request.Context(), key, time.Minute)
		if err != nil {
			logger.WithContext(c.Request.Context()).Warn("rate limiter unavailable", "error", err)
			c.Next()
			return
		}

		remaining := int64(perMinute) - n
		if remaining < 0 {
			remaining = 0
		}
		c.Writer.Header().Set("X-RateLimit-Limit", strconv.Itoa(perMinute))
		c.Writer.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if n > int64(perMinute) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": gin.H{"code": "RATE_LIMITED", "message": "too many requests"},
			})
			return
		}
		c.Next()
	}
}
