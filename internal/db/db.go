package db

import (
	"context"
	"fmt"
	"time"

	"skate_battle/internal/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Open создает пул и проверяет соединение
func Open(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 20
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// Connect открывает пул и накатывает миграции, при ошибке завершает процесс
func Connect(databaseURL string) *pgxpool.Pool {
	ctx := context.Background()
	pool, err := Open(ctx, databaseURL)
	if err != nil {
		logger.Fatal("failed to connect to database", "error", err)
	}
	applied, err := Migrate(ctx, pool)
	if err != nil {
		logger.Fatal("failed to apply migrations", "error", err)
	}
	if applied > 0 {
		logger.Info("migrations applied", "count", applied)
	}
	return pool
}
