package handlers

import (
	"time"

	"skate_battle/internal/domain"
)

type TrickView struct {
	ClipRef  string    `json:"clipRef"`
	SetterID string    `json:"setterId"`
	SetAt    time.Time `json:"setAt"`
}

type AttemptView struct {
	ClipRef     string    `json:"clipRef"`
	AttempterID string    `json:"attempterId"`
	AttemptedAt time.Time `json:"attemptedAt"`
}

// GameStateView - публичное представление батла
type GameStateView struct {
	GameID         string            `json:"gameId"`
	ChallengerID   string            `json:"challengerId"`
	OpponentID     *string           `json:"opponentId"`
	Status         domain.GameStatus `json:"status"`
	Letters        map[string]string `json:"letters"`
	TurnHolderID   *string           `json:"turnHolderId"`
	TurnKind       *domain.TurnKind  `json:"turnKind"`
	CurrentTrick   *TrickView        `json:"currentTrick"`
	PendingAttempt *AttemptView      `json:"pendingAttempt"`
	TurnExpiresAt  *time.Time        `json:"turnExpiresAt"`
	WinnerID       *string           `json:"winnerId"`
	Version        int64             `json:"version"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}

type HistoryView struct {
	Seq     int64              `json:"seq"`
	ActorID string             `json:"actorId,omitempty"`
	Kind    domain.HistoryKind `json:"kind"`
	ClipRef string             `json:"clipRef,omitempty"`
	Outcome string             `json:"outcome,omitempty"`
	At      time.Time          `json:"at"`
}

func newGameView(g *domain.GameState) GameStateView {
	v := GameStateView{
		GameID:        g.ID,
		ChallengerID:  g.ChallengerID,
		OpponentID:    g.OpponentID,
		Status:        g.Status,
		Letters:       g.Letters,
		TurnHolderID:  g.TurnHolderID,
		TurnExpiresAt: g.TurnExpiresAt,
		WinnerID:      g.WinnerID,
		Version:       g.Version,
		CreatedAt:     g.CreatedAt,
		UpdatedAt:     g.UpdatedAt,
	}
	if v.Letters == nil {
		v.Letters = map[string]string{}
	}
	if g.TurnKind != domain.TurnNone {
		kind := g.TurnKind
		v.TurnKind = &kind
	}
	if t := g.CurrentTrick; t != nil {
		v.CurrentTrick = &TrickView{ClipRef: t.ClipRef, SetterID: t.SetterID, SetAt: t.SetAt}
	}
	if a := g.PendingAttempt; a != nil {
		v.PendingAttempt = &AttemptView{ClipRef: a.ClipRef, AttempterID: a.AttempterID, AttemptedAt: a.AttemptedAt}
	}
	return v
}

func newHistoryView(entries []domain.HistoryEntry) []HistoryView {
	out := make([]HistoryView, 0, len(entries))
	for _, e := range entries {
		out = append(out, HistoryView{
			Seq:     e.Seq,
			ActorID: e.ActorID,
			Kind:    e.Kind,
			ClipRef: e.ClipRef,
			Outcome: e.Outcome,
			At:      e.At,
		})
	}
	return out
}
