package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"skate_battle/internal/domain"
)

// MemoryStore - хранилище в памяти для локального запуска и тестов.
// Та же семантика CAS что и у postgres.
type MemoryStore struct {
	mu        sync.Mutex
	games     map[string]domain.GameState
	history   map[string][]domain.HistoryEntry
	effects   []domain.Effect
	published map[int64]bool
	audit     []domain.AuditLog
	nextID    int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		games:     make(map[string]domain.GameState),
		history:   make(map[string][]domain.HistoryEntry),
		published: make(map[int64]bool),
	}
}

func (s *MemoryStore) Insert(ctx context.Context, g *domain.GameState, history []domain.HistoryEntry, effects []domain.Effect) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.games[g.ID]; ok {
		return ErrAlreadyExists
	}
	s.games[g.ID] = g.Clone()
	s.appendLocked(g.ID, history, effects)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*domain.GameState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.games[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := g.Clone()
	return &out, nil
}

func (s *MemoryStore) Commit(ctx context.Context, next *domain.GameState, expectedVersion int64, history []domain.HistoryEntry, effects []domain.Effect) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.games[next.ID]
	if !ok {
		return ErrNotFound
	}
	if cur.Version != expectedVersion {
		return ErrConflict
	}
	stored := next.Clone()
	stored.Version = expectedVersion + 1
	s.games[next.ID] = stored
	s.appendLocked(next.ID, history, effects)
	return nil
}

func (s *MemoryStore) appendLocked(gameID string, history []domain.HistoryEntry, effects []domain.Effect) {
	s.history[gameID] = append(s.history[gameID], history...)
	for _, e := range effects {
		s.nextID++
		e.ID = s.nextID
		s.effects = append(s.effects, e)
	}
}

func (s *MemoryStore) ListExpired(ctx context.Context, now time.Time, limit int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	type due struct {
		id string
		at time.Time
	}
	var expired []due
	for id, g := range s.games {
		if g.Status.IsTerminal() || g.TurnExpiresAt == nil {
			continue
		}
		if now.After(*g.TurnExpiresAt) {
			expired = append(expired, due{id: id, at: *g.TurnExpiresAt})
		}
	}
	sort.Slice(expired, func(i, j int) bool {
		if expired[i].at.Equal(expired[j].at) {
			return expired[i].id < expired[j].id
		}
		return expired[i].at.Before(expired[j].at)
	})

	ids := make([]string, 0, len(expired))
	for _, d := range expired {
		if limit > 0 && len(ids) >= limit {
			break
		}
		ids = append(ids, d.id)
	}
	return ids, nil
}

func (s *MemoryStore) ListForPlayer(ctx context.Context, playerID string, status domain.GameStatus, limit int) ([]*domain.GameState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*domain.GameState
	for _, g := range s.games {
		if !g.IsPlayer(playerID) {
			continue
		}
		if status != "" && g.Status != status {
			continue
		}
		c := g.Clone()
		out = append(out, &c)
	}
	// свежие сверху
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) History(ctx context.Context, gameID string) ([]domain.HistoryEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.games[gameID]; !ok {
		return nil, ErrNotFound
	}
	out := make([]domain.HistoryEntry, len(s.history[gameID]))
	copy(out, s.history[gameID])
	return out, nil
}

func (s *MemoryStore) PendingEffects(ctx context.Context, limit int) ([]domain.Effect, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Effect
	for _, e := range s.effects {
		if s.published[e.ID] {
			continue
		}
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *MemoryStore) MarkPublished(ctx context.Context, ids []int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		s.published[id] = true
	}
	return nil
}

func (s *MemoryStore) Create(ctx context.Context, log *domain.AuditLog) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	entry := *log
	entry.ID = s.nextID
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.audit = append(s.audit, entry)
	log.ID = entry.ID
	return nil
}

// AuditLogs - копия журнала аудита, для тестов и skatectl
func (s *MemoryStore) AuditLogs() []domain.AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.AuditLog, len(s.audit))
	copy(out, s.audit)
	return out
}
