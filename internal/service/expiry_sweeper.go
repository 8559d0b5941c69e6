package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"skate_battle/internal/game"
	"skate_battle/internal/logger"
	"skate_battle/internal/metrics"
	"skate_battle/internal/repository"
)

const (
	DefaultSweepInterval = 2 * time.Minute
	DefaultSweepBatch    = 100
	sweepLockKey         = "skate:sweeper:lock"
)

// ExpirySweeper периодически отдает ForfeitExpired просроченным батлам.
// Идет через тот же контроллер, поэтому гонка с игроком решается CAS.
type ExpirySweeper struct {
	battles  *BattleService
	store    repository.GameStore
	locker   Locker
	interval time.Duration
	batch    int
	mu       sync.Mutex
	stop     chan struct{}
	running  bool
	stopped  bool
}

func NewExpirySweeper(battles *BattleService, store repository.GameStore, interval time.Duration, batch int) *ExpirySweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if batch <= 0 {
		batch = DefaultSweepBatch
	}
	return &ExpirySweeper{
		battles:  battles,
		store:    store,
		interval: interval,
		batch:    batch,
		stop:     make(chan struct{}),
	}
}

// SetLocker включает лидерскую блокировку, без нее тикает каждый инстанс
func (w *ExpirySweeper) SetLocker(l Locker) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.locker = l
}

// Start запускает sweeper в фоновом режиме
func (w *ExpirySweeper) Start() {
	w.mu.Lock()
	// Stop до Start: не запускаться вовсе
	if w.running || w.stopped {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.mu.Unlock()

	log := logger.Get()
	log.Info("запуск expiry sweeper", "interval", w.interval, "batch", w.batch)

	w.tick()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.tick()
		case <-w.stop:
			log.Info("остановка expiry sweeper")
			return
		}
	}
}

// Stop останавливает sweeper
func (w *ExpirySweeper) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.stopped {
		close(w.stop)
		w.stopped = true
	}
	w.running = false
}

func (w *ExpirySweeper) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), w.interval)
	defer cancel()

	w.mu.Lock()
	locker := w.locker
	w.mu.Unlock()
	if locker != nil {
		ok, err := locker.TryLock(ctx, sweepLockKey, w.interval)
		if err != nil {
			logger.Warn("expiry sweeper: ошибка блокировки", "error", err)
			return
		}
		if !ok {
			logger.Debug("expiry sweeper: другой инстанс держит блокировку")
			return
		}
	}

	n, err := w.SweepOnce(ctx)
	if err != nil {
		logger.Error("expiry sweeper: ошибка прохода", "error", err)
		return
	}
	if n > 0 {
		logger.Info("expiry sweeper: батлы закрыты по таймауту", "count", n)
	}
}

// SweepOnce закрывает одну пачку просроченных батлов, возвращает число закрытых.
// Отказы и конфликты означают, что игрок или другой инстанс успел раньше.
func (w *ExpirySweeper) SweepOnce(ctx context.Context) (int, error) {
	ids, err := w.store.ListExpired(ctx, w.battles.Now(), w.batch)
	if err != nil {
		return 0, fmt.Errorf("list expired: %w", err)
	}

	forfeited := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return forfeited, err
		}
		_, err := w.battles.Apply(ctx, id, game.ForfeitExpired{})
		var rej *game.Rejection
		switch {
		case err == nil:
			forfeited++
			metrics.SweptGames.Inc()
		case errors.As(err, &rej):
			logger.Debug("expiry sweeper: пропуск", "game_id", id, "code", rej.Code)
		default:
			logger.Warn("expiry sweeper: ошибка форфейта", "game_id", id, "error", err)
		}
	}
	return forfeited, nil
}
