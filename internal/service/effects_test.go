package service

import (
	"context"
	"errors"
	"testing"

	"skate_battle/internal/domain"
	"skate_battle/internal/game"
	"skate_battle/internal/repository"
)

type recordingPublisher struct {
	got    []domain.Effect
	failAt int
}

func (p *recordingPublisher) Publish(ctx context.Context, e domain.Effect) error {
	if p.failAt > 0 && len(p.got)+1 == p.failAt {
		return errors.New("bus down")
	}
	p.got = append(p.got, e)
	return nil
}

func TestRelayPublishesInOrder(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := newService(store, newClock(), 0)
	ctx := context.Background()
	seedActive(t, svc)

	pub := &recordingPublisher{}
	relay := NewEffectRelay(store, pub, 0, 10)
	n, err := relay.RelayOnce(ctx)
	if err != nil || n != 2 {
		t.Fatalf("ожидалось 2 эффекта присоединения, n=%d err=%v", n, err)
	}
	if pub.got[0].Type != domain.EffectPlayerJoined || pub.got[1].Type != domain.EffectTurnAssigned {
		t.Fatalf("неверный порядок эффектов: %+v", pub.got)
	}
	if n, _ = relay.RelayOnce(ctx); n != 0 {
		t.Fatalf("опубликованные эффекты не должны повторяться")
	}
}

func TestRelayStopsOnFailure(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := newService(store, newClock(), 0)
	ctx := context.Background()
	seedActive(t, svc)

	relay := NewEffectRelay(store, &recordingPublisher{failAt: 2}, 0, 10)
	n, err := relay.RelayOnce(ctx)
	if err == nil || n != 1 {
		t.Fatalf("ожидалась ошибка после первого эффекта, n=%d err=%v", n, err)
	}

	pending, _ := store.PendingEffects(ctx, 0)
	if len(pending) != 1 || pending[0].Type != domain.EffectTurnAssigned {
		t.Fatalf("недоставленный эффект должен остаться в outbox: %+v", pending)
	}

	retry := &recordingPublisher{}
	if n, err := NewEffectRelay(store, retry, 0, 10).RelayOnce(ctx); err != nil || n != 1 {
		t.Fatalf("повторная доставка: n=%d err=%v", n, err)
	}
}

func TestAuditLogsRejections(t *testing.T) {
	store := repository.NewMemoryStore()
	audit := NewAuditService(store)
	ctx := context.Background()

	audit.LogBattle(ctx, p1, "g1", game.KindJoin, nil, "127.0.0.1", "test")
	audit.LogBattle(ctx, p2, "g1", game.KindJudge, game.NewRejection(game.CodePermissionDenied, "nope"), "", "")

	logs := store.AuditLogs()
	if len(logs) != 2 {
		t.Fatalf("ожидалось 2 записи аудита, получено %d", len(logs))
	}
	if logs[0].Action != domain.AuditActionJoin || logs[0].IP != "127.0.0.1" {
		t.Fatalf("неверная запись: %+v", logs[0])
	}
	if logs[1].Action != domain.AuditActionRejected || logs[1].Details["code"] != "PERMISSION_DENIED" {
		t.Fatalf("отказ должен писаться с кодом: %+v", logs[1])
	}

	var nilAudit *AuditService
	nilAudit.LogBattle(ctx, p1, "g1", game.KindSet, nil, "", "")
}

func TestAuditLogsSystemAction(t *testing.T) {
	store := repository.NewMemoryStore()
	NewAuditService(store).LogSystem(context.Background(), domain.AuditActionSweep, map[string]interface{}{"forfeited": 3})

	logs := store.AuditLogs()
	if len(logs) != 1 || logs[0].Category != domain.AuditCategorySystem || logs[0].PlayerID != "" {
		t.Fatalf("неверная служебная запись: %+v", logs)
	}
}

func TestRedisPublisherMarksTerminalEffects(t *testing.T) {
	_, rdb := newTestRedis(t)
	ctx := context.Background()
	pub := NewRedisEffectPublisher(rdb, "skate:effects")

	effects := []domain.Effect{
		{ID: 1, GameID: "g1", Version: 3, Type: domain.EffectTurnAssigned},
		{ID: 2, GameID: "g1", Version: 4, Type: domain.EffectGameCompleted, WinnerID: p1, LoserID: p2},
	}
	for _, e := range effects {
		if err := pub.Publish(ctx, e); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}

	msgs, err := rdb.XRange(ctx, "skate:effects", "-", "+").Result()
	if err != nil || len(msgs) != 2 {
		t.Fatalf("ожидалось 2 сообщения в stream: %v %v", msgs, err)
	}
	if msgs[0].Values["terminal"] != "false" || msgs[1].Values["terminal"] != "true" {
		t.Fatalf("неверная отметка terminal: %v / %v", msgs[0].Values, msgs[1].Values)
	}
	if msgs[1].Values["type"] != string(domain.EffectGameCompleted) || msgs[1].Values["id"] != "2" {
		t.Fatalf("неверные поля сообщения: %v", msgs[1].Values)
	}
}
