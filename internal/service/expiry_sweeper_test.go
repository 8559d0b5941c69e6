package service

import (
	"context"
	"testing"
	"time"

	"skate_battle/internal/domain"
	"skate_battle/internal/game"
	"skate_battle/internal/repository"
)

type fakeLocker struct {
	granted bool
	calls   int
}

func (l *fakeLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	l.calls++
	return l.granted, nil
}

func TestSweepOnceForfeitsExpired(t *testing.T) {
	store := repository.NewMemoryStore()
	clock := newClock()
	svc := newService(store, clock, 0)
	ctx := context.Background()

	seedActive(t, svc)
	if _, err := svc.Create(ctx, p1, "clipX", "pending"); err != nil {
		t.Fatalf("create: %v", err)
	}

	clock.Advance(25 * time.Hour)
	if _, err := svc.Create(ctx, p2, "clipY", "fresh"); err != nil {
		t.Fatalf("create: %v", err)
	}

	sweeper := NewExpirySweeper(svc, store, time.Minute, 10)
	n, err := sweeper.SweepOnce(ctx)
	if err != nil || n != 1 {
		t.Fatalf("ожидался один форфейт, n=%d err=%v", n, err)
	}
	g1, _ := svc.Get(ctx, "g1")
	if g1.Status != domain.StatusForfeited || g1.Winner() != p1 {
		t.Fatalf("g1 должен проиграть P2 по таймауту: %+v", g1)
	}

	// вызовы без соперника истекают через окно присоединения
	clock.Advance(game.DefaultJoinWindow + time.Hour)
	n, _ = sweeper.SweepOnce(ctx)
	if n != 2 {
		t.Fatalf("ожидалось закрытие двух просроченных вызовов, n=%d", n)
	}
	pending, _ := svc.Get(ctx, "pending")
	if pending.Status != domain.StatusForfeited || pending.WinnerID != nil {
		t.Fatalf("просроченный вызов без победителя: %+v", pending)
	}

	if n, _ = sweeper.SweepOnce(ctx); n != 0 {
		t.Fatalf("повторный проход не должен ничего закрывать, n=%d", n)
	}
}

func TestSweepSkipsGamesAlreadyClosedByPlayer(t *testing.T) {
	store := repository.NewMemoryStore()
	clock := newClock()
	svc := newService(store, clock, 0)
	ctx := context.Background()
	seedActive(t, svc)

	clock.Advance(25 * time.Hour)
	_, err := svc.Apply(ctx, "g1", game.SubmitAttempt{ActorID: p2, ClipRef: "late"})
	expectCode(t, err, game.CodeExpired)

	sweeper := NewExpirySweeper(svc, store, time.Minute, 10)
	if n, err := sweeper.SweepOnce(ctx); n != 0 || err != nil {
		t.Fatalf("игра уже закрыта: n=%d err=%v", n, err)
	}
	h, _ := svc.History(ctx, "g1")
	if len(h) != 3 {
		t.Fatalf("форфейт должен быть записан один раз: %d записей", len(h))
	}
}

func TestSweeperRespectsLeaderLock(t *testing.T) {
	store := repository.NewMemoryStore()
	clock := newClock()
	svc := newService(store, clock, 0)
	seedActive(t, svc)
	clock.Advance(25 * time.Hour)

	sweeper := NewExpirySweeper(svc, store, time.Minute, 10)
	locker := &fakeLocker{granted: false}
	sweeper.SetLocker(locker)
	sweeper.tick()

	g, _ := svc.Get(context.Background(), "g1")
	if locker.calls != 1 || g.Status != domain.StatusActive {
		t.Fatalf("без блокировки проход выполняться не должен: calls=%d status=%s", locker.calls, g.Status)
	}

	locker.granted = true
	sweeper.tick()
	g, _ = svc.Get(context.Background(), "g1")
	if g.Status != domain.StatusForfeited {
		t.Fatalf("лидер должен закрыть игру: %s", g.Status)
	}
}

func TestSweeperStartStop(t *testing.T) {
	store := repository.NewMemoryStore()
	sweeper := NewExpirySweeper(newService(store, newClock(), 0), store, 10*time.Millisecond, 10)

	done := make(chan struct{})
	go func() {
		sweeper.Start()
		close(done)
	}()
	time.Sleep(30 * time.Millisecond)
	sweeper.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("sweeper не остановился")
	}
}

func TestStopBeforeStartPreventsLoop(t *testing.T) {
	store := repository.NewMemoryStore()
	sweeper := NewExpirySweeper(newService(store, newClock(), 0), store, 10*time.Millisecond, 10)
	relay := NewEffectRelay(store, &recordingPublisher{}, 10*time.Millisecond, 10)

	// сигнал пришел раньше, чем горутины успели стартовать
	sweeper.Stop()
	relay.Stop()
	sweeper.Stop()

	done := make(chan struct{})
	go func() {
		sweeper.Start()
		relay.Start()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("остановленный до старта цикл продолжил работу")
	}
}
