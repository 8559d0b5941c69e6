package service

import (
	"context"

	"skate_battle/internal/domain"
	"skate_battle/internal/game"
	"skate_battle/internal/logger"
	"skate_battle/internal/repository"
)

// обрабатывает логирование аудита
type AuditService struct {
	repo repository.AuditStore
}

// создает новый сервис аудита
func NewAuditService(repo repository.AuditStore) *AuditService {
	return &AuditService{repo: repo}
}

// создает запись аудита с информацией о запросе (ip, user-agent)
func (s *AuditService) LogWithRequest(ctx context.Context, playerID, gameID, action, category, ip, userAgent string, details map[string]interface{}) {
	if s == nil || s.repo == nil {
		return
	}
	log := &domain.AuditLog{
		PlayerID:  playerID,
		GameID:    gameID,
		Action:    action,
		Category:  category,
		Details:   details,
		IP:        ip,
		UserAgent: userAgent,
	}

	if err := s.repo.Create(ctx, log); err != nil {
		logger.Error("не удалось создать запись аудита", "error", err, "action", action, "player_id", playerID)
	}
}

// логирует действие батла, отказ пишется как battle_rejected с кодом
func (s *AuditService) LogBattle(ctx context.Context, playerID, gameID string, kind game.ActionKind, err error, ip, userAgent string) {
	action := auditAction(kind)
	details := map[string]interface{}{"kind": string(kind)}
	if err != nil {
		details["action"] = action
		details["code"] = string(game.CodeOf(err))
		action = domain.AuditActionRejected
	}
	s.LogWithRequest(ctx, playerID, gameID, action, domain.AuditCategoryBattle, ip, userAgent, details)
}

func auditAction(kind game.ActionKind) string {
	switch kind {
	case game.KindCreate:
		return domain.AuditActionCreate
	case game.KindJoin:
		return domain.AuditActionJoin
	case game.KindSet:
		return domain.AuditActionSet
	case game.KindAttempt:
		return domain.AuditActionAttempt
	case game.KindJudge:
		return domain.AuditActionJudge
	default:
		return domain.AuditActionForfeit
	}
}

// служебная запись без игрока, например ручной проход sweeper
func (s *AuditService) LogSystem(ctx context.Context, action string, details map[string]interface{}) {
	s.LogWithRequest(ctx, "", "", action, domain.AuditCategorySystem, "", "", details)
}
