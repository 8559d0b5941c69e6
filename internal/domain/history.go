package domain

import "time"

// вид записи в журнале батла
type HistoryKind string

const (
	HistoryCreate  HistoryKind = "create"
	HistoryJoin    HistoryKind = "join"
	HistorySet     HistoryKind = "set"
	HistoryAttempt HistoryKind = "attempt"
	HistoryJudge   HistoryKind = "judge"
	HistoryForfeit HistoryKind = "forfeit"
)

// исход записи журнала
const (
	OutcomeLanded  = "landed"
	OutcomeBailed  = "bailed"
	OutcomeExpired = "expired"
)

// HistoryEntry - append-only журнал, ключ (game_id, seq).
// seq совпадает с версией игры после применения действия.
type HistoryEntry struct {
	GameID  string      `db:"game_id" json:"game_id"`
	Seq     int64       `db:"seq" json:"seq"`
	ActorID string      `db:"actor_id" json:"actor_id,omitempty"`
	Kind    HistoryKind `db:"kind" json:"kind"`
	ClipRef string      `db:"clip_ref" json:"clip_ref,omitempty"`
	Outcome string      `db:"outcome" json:"outcome,omitempty"`
	At      time.Time   `db:"at" json:"at"`
}
