package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"skate_battle/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// отвечает за батлы, журнал ходов и outbox эффектов в postgres
type GameRepository struct {
	db *pgxpool.Pool
}

func NewGameRepository(db *pgxpool.Pool) *GameRepository {
	return &GameRepository{db: db}
}

const gameColumns = `id, challenger_id, opponent_id, status, letters, turn_holder_id, turn_kind,
		       current_trick, pending_attempt, turn_expires_at, winner_id, version, created_at, updated_at`

// создает батл, ON CONFLICT DO NOTHING отличает повторный id от ошибки
func (r *GameRepository) Insert(ctx context.Context, g *domain.GameState, history []domain.HistoryEntry, effects []domain.Effect) error {
	row, err := encodeGame(g)
	if err != nil {
		return err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		INSERT INTO games (id, challenger_id, opponent_id, status, letters, turn_holder_id, turn_kind,
		                   current_trick, pending_attempt, turn_expires_at, winner_id, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO NOTHING
	`, g.ID, g.ChallengerID, g.OpponentID, g.Status, row.letters, g.TurnHolderID, g.TurnKind,
		row.trick, row.attempt, g.TurnExpiresAt, g.WinnerID, g.Version, g.CreatedAt, g.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert game: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyExists
	}

	if err := r.appendWithTx(ctx, tx, history, effects); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// получает батл по id
func (r *GameRepository) Get(ctx context.Context, id string) (*domain.GameState, error) {
	row := r.db.QueryRow(ctx, `SELECT `+gameColumns+` FROM games WHERE id = $1`, id)
	g, err := scanGame(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return g, err
}

// условная запись: UPDATE ... WHERE version = expected, 0 строк - конфликт или нет игры
func (r *GameRepository) Commit(ctx context.Context, next *domain.GameState, expectedVersion int64, history []domain.HistoryEntry, effects []domain.Effect) error {
	row, err := encodeGame(next)
	if err != nil {
		return err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE games
		SET opponent_id = $3, status = $4, letters = $5, turn_holder_id = $6, turn_kind = $7,
		    current_trick = $8, pending_attempt = $9, turn_expires_at = $10, winner_id = $11,
		    version = version + 1, updated_at = $12
		WHERE id = $1 AND version = $2
	`, next.ID, expectedVersion, next.OpponentID, next.Status, row.letters, next.TurnHolderID, next.TurnKind,
		row.trick, row.attempt, next.TurnExpiresAt, next.WinnerID, next.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update game: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM games WHERE id = $1)`, next.ID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		return ErrConflict
	}

	if err := r.appendWithTx(ctx, tx, history, effects); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// журнал и outbox в той же транзакции что и состояние
func (r *GameRepository) appendWithTx(ctx context.Context, tx pgx.Tx, history []domain.HistoryEntry, effects []domain.Effect) error {
	for _, h := range history {
		_, err := tx.Exec(ctx, `
			INSERT INTO game_history (game_id, seq, actor_id, kind, clip_ref, outcome, at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, h.GameID, h.Seq, h.ActorID, h.Kind, h.ClipRef, h.Outcome, h.At)
		if err != nil {
			return fmt.Errorf("insert history: %w", err)
		}
	}
	for _, e := range effects {
		payload, err := json.Marshal(e)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO game_effects (game_id, version, type, payload, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`, e.GameID, e.Version, e.Type, payload, e.At)
		if err != nil {
			return fmt.Errorf("insert effect: %w", err)
		}
	}
	return nil
}

// id игр с истекшим дедлайном, самые старые первыми
func (r *GameRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]string, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id FROM games
		WHERE status NOT IN ('COMPLETED', 'FORFEITED')
		  AND turn_expires_at IS NOT NULL
		  AND turn_expires_at < $1
		ORDER BY turn_expires_at ASC
		LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// батлы игрока, статус пустой - все
func (r *GameRepository) ListForPlayer(ctx context.Context, playerID string, status domain.GameStatus, limit int) ([]*domain.GameState, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+gameColumns+`
		FROM games
		WHERE (challenger_id = $1 OR opponent_id = $1)
		  AND ($2 = '' OR status = $2)
		ORDER BY updated_at DESC
		LIMIT $3
	`, playerID, string(status), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var games []*domain.GameState
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		games = append(games, g)
	}
	return games, rows.Err()
}

// журнал ходов в порядке seq
func (r *GameRepository) History(ctx context.Context, gameID string) ([]domain.HistoryEntry, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM games WHERE id = $1)`, gameID).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNotFound
	}

	rows, err := r.db.Query(ctx, `
		SELECT game_id, seq, actor_id, kind, clip_ref, outcome, at
		FROM game_history
		WHERE game_id = $1
		ORDER BY seq ASC
	`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.HistoryEntry
	for rows.Next() {
		var h domain.HistoryEntry
		if err := rows.Scan(&h.GameID, &h.Seq, &h.ActorID, &h.Kind, &h.ClipRef, &h.Outcome, &h.At); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// неопубликованные эффекты в порядке записи
func (r *GameRepository) PendingEffects(ctx context.Context, limit int) ([]domain.Effect, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, payload FROM game_effects
		WHERE published_at IS NULL
		ORDER BY id ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Effect
	for rows.Next() {
		var (
			id      int64
			payload []byte
			e       domain.Effect
		)
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("decode effect %d: %w", id, err)
		}
		e.ID = id
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *GameRepository) MarkPublished(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.db.Exec(ctx, `UPDATE game_effects SET published_at = NOW() WHERE id = ANY($1)`, ids)
	return err
}

type encodedGame struct {
	letters []byte
	trick   []byte
	attempt []byte
}

func encodeGame(g *domain.GameState) (encodedGame, error) {
	var out encodedGame
	letters := g.Letters
	if letters == nil {
		letters = map[string]string{}
	}
	var err error
	if out.letters, err = json.Marshal(letters); err != nil {
		return out, err
	}
	// nil -> SQL NULL, а не json null
	if g.CurrentTrick != nil {
		if out.trick, err = json.Marshal(g.CurrentTrick); err != nil {
			return out, err
		}
	}
	if g.PendingAttempt != nil {
		if out.attempt, err = json.Marshal(g.PendingAttempt); err != nil {
			return out, err
		}
	}
	return out, nil
}

// преобразует строку из БД в GameState
func scanGame(row pgx.Row) (*domain.GameState, error) {
	var (
		g                      domain.GameState
		letters, trick, attmpt []byte
	)
	err := row.Scan(&g.ID, &g.ChallengerID, &g.OpponentID, &g.Status, &letters, &g.TurnHolderID, &g.TurnKind,
		&trick, &attmpt, &g.TurnExpiresAt, &g.WinnerID, &g.Version, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(letters, &g.Letters); err != nil {
		return nil, fmt.Errorf("decode letters: %w", err)
	}
	if len(trick) > 0 {
		g.CurrentTrick = &domain.Trick{}
		if err := json.Unmarshal(trick, g.CurrentTrick); err != nil {
			return nil, fmt.Errorf("decode trick: %w", err)
		}
	}
	if len(attmpt) > 0 {
		g.PendingAttempt = &domain.Attempt{}
		if err := json.Unmarshal(attmpt, g.PendingAttempt); err != nil {
			return nil, fmt.Errorf("decode attempt: %w", err)
		}
	}
	return &g, nil
}
