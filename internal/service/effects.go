package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"skate_battle/internal/domain"
	"skate_battle/internal/logger"
	"skate_battle/internal/metrics"
	"skate_battle/internal/repository"

	"github.com/redis/go-redis/v9"
)

// Publisher доставляет эффекты подписчикам (ledger наград, уведомления)
type Publisher interface {
	Publish(ctx context.Context, e domain.Effect) error
}

// RedisEffectPublisher пишет эффекты в redis stream.
// Доставка at-least-once, подписчики дедуплицируют по id.
// Поле terminal отмечает завершение игры, по нему фильтрует ledger наград.
type RedisEffectPublisher struct {
	rdb    *redis.Client
	stream string
	maxLen int64
}

func NewRedisEffectPublisher(rdb *redis.Client, stream string) *RedisEffectPublisher {
	return &RedisEffectPublisher{rdb: rdb, stream: stream, maxLen: 100000}
}

func (p *RedisEffectPublisher) Publish(ctx context.Context, e domain.Effect) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return p.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"id":       strconv.FormatInt(e.ID, 10),
			"game_id":  e.GameID,
			"version":  strconv.FormatInt(e.Version, 10),
			"type":     string(e.Type),
			"terminal": strconv.FormatBool(e.IsTerminal()),
			"payload":  string(payload),
		},
	}).Err()
}

// LogPublisher только пишет эффекты в лог, для запуска без redis
type LogPublisher struct{}

func (LogPublisher) Publish(ctx context.Context, e domain.Effect) error {
	logger.WithContext(ctx).Info("effect",
		"id", e.ID,
		"game_id", e.GameID,
		"version", e.Version,
		"type", e.Type,
		"player_id", e.PlayerID,
		"winner_id", e.WinnerID,
		"terminal", e.IsTerminal())
	return nil
}

// EffectRelay переносит эффекты из outbox в шину
type EffectRelay struct {
	outbox    repository.EffectOutbox
	publisher Publisher
	interval  time.Duration
	batch     int
	mu        sync.Mutex
	stop      chan struct{}
	running   bool
	stopped   bool
}

func NewEffectRelay(outbox repository.EffectOutbox, publisher Publisher, interval time.Duration, batch int) *EffectRelay {
	if batch <= 0 {
		batch = 100
	}
	return &EffectRelay{
		outbox:    outbox,
		publisher: publisher,
		interval:  interval,
		batch:     batch,
		stop:      make(chan struct{}),
	}
}

// Start запускает релей в фоновом режиме
func (r *EffectRelay) Start() {
	r.mu.Lock()
	// Stop до Start: не запускаться вовсе
	if r.running || r.stopped {
		r.mu.Unlock()
		return
	}
	r.running = true
	r.mu.Unlock()

	log := logger.Get()
	log.Info("запуск effect relay", "interval", r.interval)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.tick()
		case <-r.stop:
			log.Info("остановка effect relay")
			return
		}
	}
}

// Stop останавливает релей
func (r *EffectRelay) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.stopped {
		close(r.stop)
		r.stopped = true
	}
	r.running = false
}

func (r *EffectRelay) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := r.RelayOnce(ctx); err != nil {
		logger.Error("effect relay: ошибка публикации", "error", err)
	}
}

// RelayOnce публикует одну пачку. Публикация идет по порядку и
// останавливается на первой ошибке, отмечаются только доставленные.
func (r *EffectRelay) RelayOnce(ctx context.Context) (int, error) {
	pending, err := r.outbox.PendingEffects(ctx, r.batch)
	if err != nil {
		return 0, fmt.Errorf("load pending effects: %w", err)
	}

	var (
		published []int64
		pubErr    error
	)
	for _, e := range pending {
		if err := r.publisher.Publish(ctx, e); err != nil {
			pubErr = fmt.Errorf("publish effect %d: %w", e.ID, err)
			break
		}
		published = append(published, e.ID)
		metrics.EffectsPublished.WithLabelValues(string(e.Type)).Inc()
	}

	if err := r.outbox.MarkPublished(ctx, published); err != nil {
		return 0, fmt.Errorf("mark published: %w", err)
	}
	return len(published), pubErr
}
