package domain

import "time"

// статус батла
type GameStatus string

const (
	StatusPending   GameStatus = "PENDING"
	StatusActive    GameStatus = "ACTIVE"
	StatusJudging   GameStatus = "JUDGING"
	StatusCompleted GameStatus = "COMPLETED"
	StatusForfeited GameStatus = "FORFEITED"
)

// IsTerminal - после COMPLETED/FORFEITED игра неизменяема
func (s GameStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusForfeited
}

func (s GameStatus) Valid() bool {
	switch s {
	case StatusPending, StatusActive, StatusJudging, StatusCompleted, StatusForfeited:
		return true
	}
	return false
}

// какое действие сейчас ожидается от держателя хода
type TurnKind string

const (
	TurnNone         TurnKind = ""
	TurnSetTrick     TurnKind = "SET_TRICK"
	TurnAttemptMatch TurnKind = "ATTEMPT_MATCH"
	TurnJudgeAttempt TurnKind = "JUDGE_ATTEMPT"
)

// трюк, который сейчас нужно повторить
type Trick struct {
	ClipRef  string    `json:"clip_ref"`
	SetterID string    `json:"setter_id"`
	SetAt    time.Time `json:"set_at"`
}

// попытка повторить трюк, ждет судейства
type Attempt struct {
	ClipRef     string    `json:"clip_ref"`
	AttempterID string    `json:"attempter_id"`
	AttemptedAt time.Time `json:"attempted_at"`
}

// GameState - единственная изменяемая сущность батла.
// История ходов хранится отдельно (HistoryEntry), чтобы запись не росла.
type GameState struct {
	ID             string            `db:"id" json:"id"`
	ChallengerID   string            `db:"challenger_id" json:"challenger_id"`
	OpponentID     *string           `db:"opponent_id" json:"opponent_id,omitempty"`
	Status         GameStatus        `db:"status" json:"status"`
	Letters        map[string]string `db:"letters" json:"letters"`
	TurnHolderID   *string           `db:"turn_holder_id" json:"turn_holder_id,omitempty"`
	TurnKind       TurnKind          `db:"turn_kind" json:"turn_kind,omitempty"`
	CurrentTrick   *Trick            `db:"current_trick" json:"current_trick,omitempty"`
	PendingAttempt *Attempt          `db:"pending_attempt" json:"pending_attempt,omitempty"`
	TurnExpiresAt  *time.Time        `db:"turn_expires_at" json:"turn_expires_at,omitempty"`
	WinnerID       *string           `db:"winner_id" json:"winner_id,omitempty"`
	Version        int64             `db:"version" json:"version"`
	CreatedAt      time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time         `db:"updated_at" json:"updated_at"`
}

// Clone делает глубокую копию, движок никогда не меняет входное состояние
func (g *GameState) Clone() GameState {
	out := *g
	out.OpponentID = cloneString(g.OpponentID)
	out.TurnHolderID = cloneString(g.TurnHolderID)
	out.WinnerID = cloneString(g.WinnerID)
	if g.TurnExpiresAt != nil {
		t := *g.TurnExpiresAt
		out.TurnExpiresAt = &t
	}
	if g.CurrentTrick != nil {
		tr := *g.CurrentTrick
		out.CurrentTrick = &tr
	}
	if g.PendingAttempt != nil {
		at := *g.PendingAttempt
		out.PendingAttempt = &at
	}
	if g.Letters != nil {
		out.Letters = make(map[string]string, len(g.Letters))
		for k, v := range g.Letters {
			out.Letters[k] = v
		}
	}
	return out
}

// IsPlayer - зарегистрирован ли игрок в батле
func (g *GameState) IsPlayer(playerID string) bool {
	if playerID == "" {
		return false
	}
	if g.ChallengerID == playerID {
		return true
	}
	return g.OpponentID != nil && *g.OpponentID == playerID
}

// Other возвращает соперника игрока, пустую строку если его нет
func (g *GameState) Other(playerID string) string {
	if g.ChallengerID == playerID {
		if g.OpponentID != nil {
			return *g.OpponentID
		}
		return ""
	}
	if g.OpponentID != nil && *g.OpponentID == playerID {
		return g.ChallengerID
	}
	return ""
}

// TurnHolder возвращает держателя хода или пустую строку
func (g *GameState) TurnHolder() string {
	if g.TurnHolderID == nil {
		return ""
	}
	return *g.TurnHolderID
}

func (g *GameState) Opponent() string {
	if g.OpponentID == nil {
		return ""
	}
	return *g.OpponentID
}

func (g *GameState) Winner() string {
	if g.WinnerID == nil {
		return ""
	}
	return *g.WinnerID
}

// StringPtr - хелпер для nullable полей
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
