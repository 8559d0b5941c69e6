package domain

import "time"

type EffectType string

const (
	EffectPlayerJoined  EffectType = "player_joined"
	EffectTurnAssigned  EffectType = "turn_assigned"
	EffectLetterAwarded EffectType = "letter_awarded"
	EffectGameCompleted EffectType = "game_completed"
	EffectGameForfeited EffectType = "game_forfeited"
)

// Effect - событие перехода для внешних подписчиков (ledger наград, уведомления).
// Движок только публикует, начислением занимаются подписчики.
type Effect struct {
	ID        int64      `db:"id" json:"id,omitempty"`
	GameID    string     `db:"game_id" json:"game_id"`
	Version   int64      `db:"version" json:"version"`
	Type      EffectType `db:"type" json:"type"`
	PlayerID  string     `db:"player_id" json:"player_id,omitempty"`
	WinnerID  string     `db:"winner_id" json:"winner_id,omitempty"`
	LoserID   string     `db:"loser_id" json:"loser_id,omitempty"`
	Letters   string     `db:"letters" json:"letters,omitempty"`
	TurnKind  TurnKind   `db:"turn_kind" json:"turn_kind,omitempty"`
	ExpiresAt *time.Time `db:"expires_at" json:"expires_at,omitempty"`
	At        time.Time  `db:"at" json:"at"`
}

// IsTerminal - эффект завершения игры
func (e Effect) IsTerminal() bool {
	return e.Type == EffectGameCompleted || e.Type == EffectGameForfeited
}
