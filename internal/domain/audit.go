package domain

import "time"

// журнал обращений к шлюзу, отдельно от истории батла
type AuditLog struct {
	ID        int64                  `db:"id" json:"id"`
	PlayerID  string                 `db:"player_id" json:"player_id"`
	GameID    string                 `db:"game_id" json:"game_id,omitempty"`
	Action    string                 `db:"action" json:"action"`
	Category  string                 `db:"category" json:"category"`
	Details   map[string]interface{} `db:"details" json:"details"`
	IP        string                 `db:"ip" json:"ip,omitempty"`
	UserAgent string                 `db:"user_agent" json:"user_agent,omitempty"`
	CreatedAt time.Time              `db:"created_at" json:"created_at"`
}

// категории
const (
	AuditCategoryBattle = "battle"
	AuditCategorySystem = "system"
)

const (
	AuditActionCreate   = "battle_create"
	AuditActionJoin     = "battle_join"
	AuditActionSet      = "battle_set"
	AuditActionAttempt  = "battle_attempt"
	AuditActionJudge    = "battle_judge"
	AuditActionForfeit  = "battle_forfeit"
	AuditActionRejected = "battle_rejected"
	AuditActionSweep    = "sweep_run"
)
