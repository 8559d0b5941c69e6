package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"skate_battle/internal/domain"
	"skate_battle/internal/game"
	"skate_battle/internal/logger"
	"skate_battle/internal/metrics"
	"skate_battle/internal/repository"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
)

const (
	DefaultCommitMaxAttempts = 5
	defaultRetryInterval     = 20 * time.Millisecond
	listLimit                = 100
)

// BattleConfig - параметры контроллера, нулевые значения заменяются дефолтами
type BattleConfig struct {
	Rules         game.Rules
	MaxAttempts   int
	RetryInterval time.Duration
	Now           func() time.Time
}

// Outcome - закоммиченное состояние после действия
type Outcome struct {
	Game    domain.GameState
	History []domain.HistoryEntry
	Effects []domain.Effect
	Expired bool
}

// BattleService сериализует действия над одним батлом через условную запись по версии.
// Конфликт - перечитать и повторить, не больше MaxAttempts раз.
type BattleService struct {
	store         repository.GameStore
	rules         game.Rules
	maxAttempts   int
	retryInterval time.Duration
	now           func() time.Time
}

func NewBattleService(store repository.GameStore, cfg BattleConfig) *BattleService {
	s := &BattleService{
		store:         store,
		rules:         cfg.Rules,
		maxAttempts:   cfg.MaxAttempts,
		retryInterval: cfg.RetryInterval,
		now:           cfg.Now,
	}
	if s.rules.TurnWindow <= 0 {
		s.rules.TurnWindow = game.DefaultTurnWindow
	}
	if s.maxAttempts < 1 {
		s.maxAttempts = DefaultCommitMaxAttempts
	}
	if s.retryInterval <= 0 {
		s.retryInterval = defaultRetryInterval
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Apply применяет действие к батлу gameID.
// Ошибки движка возвращаются как *game.Rejection. Для опоздавшего действия
// возвращается закоммиченный форфейт вместе с отказом EXPIRED.
func (s *BattleService) Apply(ctx context.Context, gameID string, action game.Action) (Outcome, error) {
	if action == nil {
		return Outcome{}, game.NewRejection(game.CodeValidation, "action is required")
	}
	if create, ok := action.(game.CreateGame); ok {
		gameID = create.GameID
	}
	ctx = logger.ContextWithGameID(ctx, gameID)
	kind := string(action.Kind())

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.retryInterval
	b.MaxInterval = s.retryInterval * 16

	attempts := 0
	out, err := backoff.Retry(ctx, func() (Outcome, error) {
		attempts++
		out, err := s.attempt(ctx, gameID, action)
		if errors.Is(err, repository.ErrConflict) {
			metrics.CommitConflicts.Inc()
			return out, err
		}
		if err != nil {
			return out, backoff.Permanent(err)
		}
		return out, nil
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(s.maxAttempts)),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.WithContext(ctx).Debug("commit conflict, retrying", "kind", kind, "next", next)
		}),
	)
	metrics.CommitAttempts.Observe(float64(attempts))

	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		err = perm.Unwrap()
	}
	if errors.Is(err, repository.ErrConflict) {
		logger.WithContext(ctx).Warn("commit attempts exhausted", "kind", kind, "attempts", attempts)
		err = game.NewRejection(game.CodeConflict, "game %s changed concurrently, retry the action", gameID)
	}

	switch {
	case err != nil:
		result := string(game.CodeOf(err))
		if result == "" {
			result = "error"
			logger.WithContext(ctx).Error("battle action failed", "kind", kind, "error", err)
		}
		metrics.Actions.WithLabelValues(kind, result).Inc()
		return Outcome{}, err
	case out.Expired:
		metrics.Actions.WithLabelValues(kind, string(game.CodeExpired)).Inc()
	default:
		metrics.Actions.WithLabelValues(kind, "ok").Inc()
	}
	if out.Game.Status.IsTerminal() {
		metrics.GamesFinished.WithLabelValues(string(out.Game.Status)).Inc()
		logger.WithContext(ctx).Info("battle finished", "status", out.Game.Status, "winner", out.Game.Winner())
	}
	if out.Expired {
		return out, game.NewRejection(game.CodeExpired, "turn deadline passed, game forfeited")
	}
	return out, nil
}

// одна попытка: чтение, переход, условная запись
func (s *BattleService) attempt(ctx context.Context, gameID string, action game.Action) (Outcome, error) {
	var current *domain.GameState
	if _, isCreate := action.(game.CreateGame); !isCreate {
		g, err := s.store.Get(ctx, gameID)
		if errors.Is(err, repository.ErrNotFound) {
			return Outcome{}, game.NewRejection(game.CodeNotFound, "game %s not found", gameID)
		}
		if err != nil {
			return Outcome{}, fmt.Errorf("load game %s: %w", gameID, err)
		}
		current = g
	}

	res, rej := game.Apply(current, action, s.now(), s.rules)
	if rej != nil {
		return Outcome{}, rej
	}
	if err := game.CheckInvariants(&res.State); err != nil {
		return Outcome{}, fmt.Errorf("invariant violated after %s: %w", action.Kind(), err)
	}

	if current == nil {
		err := s.store.Insert(ctx, &res.State, res.History, res.Effects)
		if errors.Is(err, repository.ErrAlreadyExists) {
			return Outcome{}, game.NewRejection(game.CodeAlreadyExists, "game %s already exists", gameID)
		}
		if err != nil {
			return Outcome{}, fmt.Errorf("insert game %s: %w", gameID, err)
		}
	} else {
		err := s.store.Commit(ctx, &res.State, current.Version, res.History, res.Effects)
		switch {
		case errors.Is(err, repository.ErrConflict):
			return Outcome{}, err
		case errors.Is(err, repository.ErrNotFound):
			return Outcome{}, game.NewRejection(game.CodeNotFound, "game %s not found", gameID)
		case err != nil:
			return Outcome{}, fmt.Errorf("commit game %s: %w", gameID, err)
		}
	}

	return Outcome{Game: res.State, History: res.History, Effects: res.Effects, Expired: res.Expired}, nil
}

// Create открывает вызов, пустой gameID - сгенерировать uuid
func (s *BattleService) Create(ctx context.Context, challengerID, clipRef, gameID string) (Outcome, error) {
	if strings.TrimSpace(gameID) == "" {
		gameID = uuid.NewString()
	}
	return s.Apply(ctx, gameID, game.CreateGame{GameID: gameID, ChallengerID: challengerID, ClipRef: clipRef})
}

func (s *BattleService) Get(ctx context.Context, gameID string) (*domain.GameState, error) {
	g, err := s.store.Get(ctx, gameID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, game.NewRejection(game.CodeNotFound, "game %s not found", gameID)
	}
	return g, err
}

func (s *BattleService) History(ctx context.Context, gameID string) ([]domain.HistoryEntry, error) {
	h, err := s.store.History(ctx, gameID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, game.NewRejection(game.CodeNotFound, "game %s not found", gameID)
	}
	return h, err
}

// ListForPlayer - батлы игрока, статус пустой - все
func (s *BattleService) ListForPlayer(ctx context.Context, playerID string, status domain.GameStatus) ([]*domain.GameState, error) {
	if status != "" && !status.Valid() {
		return nil, game.NewRejection(game.CodeValidation, "unknown status %q", status)
	}
	return s.store.ListForPlayer(ctx, playerID, status, listLimit)
}

// Now - часы контроллера, sweeper использует те же
func (s *BattleService) Now() time.Time {
	return s.now()
}
