package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"skate_battle/internal/domain"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newGame(id string, expires time.Time) *domain.GameState {
	return &domain.GameState{
		ID:            id,
		ChallengerID:  "p1",
		OpponentID:    domain.StringPtr("p2"),
		Status:        domain.StatusActive,
		Letters:       map[string]string{"p1": "", "p2": ""},
		TurnHolderID:  domain.StringPtr("p2"),
		TurnKind:      domain.TurnAttemptMatch,
		TurnExpiresAt: &expires,
		Version:       1,
		CreatedAt:     t0,
		UpdatedAt:     t0,
	}
}

func TestInsertDuplicate(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	if err := s.Insert(ctx, newGame("g1", t0), nil, nil); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.Insert(ctx, newGame("g1", t0), nil, nil); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("ожидался ErrAlreadyExists, получено %v", err)
	}
	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("ожидался ErrNotFound, получено %v", err)
	}
}

func TestCommitCompareAndSwap(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	g := newGame("g1", t0)
	_ = s.Insert(ctx, g, nil, nil)

	next := g.Clone()
	next.Version = 2
	history := []domain.HistoryEntry{{GameID: "g1", Seq: 2, Kind: domain.HistoryAttempt}}
	effects := []domain.Effect{{GameID: "g1", Version: 2, Type: domain.EffectTurnAssigned}}
	if err := s.Commit(ctx, &next, 1, history, effects); err != nil {
		t.Fatalf("commit: %v", err)
	}
	// тот же expectedVersion второй раз
	if err := s.Commit(ctx, &next, 1, history, effects); !errors.Is(err, ErrConflict) {
		t.Fatalf("ожидался ErrConflict, получено %v", err)
	}

	stored, _ := s.Get(ctx, "g1")
	if stored.Version != 2 {
		t.Fatalf("версия %d, ожидалась 2", stored.Version)
	}
	h, _ := s.History(ctx, "g1")
	if len(h) != 1 {
		t.Fatalf("журнал записан при конфликте: %d записей", len(h))
	}
	pending, _ := s.PendingEffects(ctx, 10)
	if len(pending) != 1 || pending[0].ID == 0 {
		t.Fatalf("ожидался один эффект с id: %+v", pending)
	}
	_ = s.MarkPublished(ctx, []int64{pending[0].ID})
	if pending, _ = s.PendingEffects(ctx, 10); len(pending) != 0 {
		t.Fatalf("опубликованный эффект вернулся: %+v", pending)
	}
}

func TestConcurrentCommitsOneWins(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	g := newGame("g1", t0)
	_ = s.Insert(ctx, g, nil, nil)

	const writers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok, confl int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			next := g.Clone()
			next.Version = 2
			err := s.Commit(ctx, &next, 1, nil, nil)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, ErrConflict):
				confl++
			default:
				t.Errorf("неожиданная ошибка: %v", err)
			}
		}()
	}
	wg.Wait()
	if ok != 1 || confl != writers-1 {
		t.Fatalf("ожидалась одна успешная запись, ok=%d conflicts=%d", ok, confl)
	}
}

func TestStoredStateIsIsolated(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	g := newGame("g1", t0)
	_ = s.Insert(ctx, g, nil, nil)
	g.Letters["p2"] = "S"

	got, _ := s.Get(ctx, "g1")
	got.Letters["p1"] = "SK"
	again, _ := s.Get(ctx, "g1")
	if again.Letters["p1"] != "" || again.Letters["p2"] != "" {
		t.Fatalf("хранилище делит память с вызывающим: %v", again.Letters)
	}
}

func TestListExpiredAndForPlayer(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	_ = s.Insert(ctx, newGame("late", t0.Add(-2*time.Hour)), nil, nil)
	_ = s.Insert(ctx, newGame("later", t0.Add(-time.Hour)), nil, nil)
	_ = s.Insert(ctx, newGame("fresh", t0.Add(time.Hour)), nil, nil)
	done := newGame("done", t0.Add(-3*time.Hour))
	done.Status = domain.StatusCompleted
	_ = s.Insert(ctx, done, nil, nil)

	ids, err := s.ListExpired(ctx, t0, 10)
	if err != nil {
		t.Fatalf("list expired: %v", err)
	}
	if len(ids) != 2 || ids[0] != "late" || ids[1] != "later" {
		t.Fatalf("неверный список просроченных: %v", ids)
	}
	if ids, _ = s.ListExpired(ctx, t0, 1); len(ids) != 1 {
		t.Fatalf("limit не соблюден: %v", ids)
	}

	all, _ := s.ListForPlayer(ctx, "p2", "", 0)
	if len(all) != 4 {
		t.Fatalf("ожидалось 4 игры игрока, получено %d", len(all))
	}
	completed, _ := s.ListForPlayer(ctx, "p1", domain.StatusCompleted, 0)
	if len(completed) != 1 || completed[0].ID != "done" {
		t.Fatalf("фильтр по статусу не работает: %v", completed)
	}
	if none, _ := s.ListForPlayer(ctx, "stranger", "", 0); len(none) != 0 {
		t.Fatalf("чужие игры в выдаче")
	}
}
