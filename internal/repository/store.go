package repository

import (
	"context"
	"errors"
	"time"

	"skate_battle/internal/domain"
)

var (
	ErrNotFound      = errors.New("game not found")
	ErrConflict      = errors.New("game version conflict")
	ErrAlreadyExists = errors.New("game already exists")
)

// GameStore - хранилище батлов с условной записью по версии.
// Commit проходит только если сохраненная версия равна expectedVersion,
// журнал и эффекты пишутся в той же транзакции.
type GameStore interface {
	Insert(ctx context.Context, g *domain.GameState, history []domain.HistoryEntry, effects []domain.Effect) error
	Get(ctx context.Context, id string) (*domain.GameState, error)
	Commit(ctx context.Context, next *domain.GameState, expectedVersion int64, history []domain.HistoryEntry, effects []domain.Effect) error
	ListExpired(ctx context.Context, now time.Time, limit int) ([]string, error)
	ListForPlayer(ctx context.Context, playerID string, status domain.GameStatus, limit int) ([]*domain.GameState, error)
	History(ctx context.Context, gameID string) ([]domain.HistoryEntry, error)
}

// EffectOutbox - неопубликованные эффекты для релея
type EffectOutbox interface {
	PendingEffects(ctx context.Context, limit int) ([]domain.Effect, error)
	MarkPublished(ctx context.Context, ids []int64) error
}

// AuditStore пишет журнал обращений
type AuditStore interface {
	Create(ctx context.Context, log *domain.AuditLog) error
}
