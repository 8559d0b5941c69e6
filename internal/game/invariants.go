package game

import (
	"fmt"

	"skate_battle/internal/domain"
)

// CheckInvariants проверяет состояние после любого перехода
func CheckInvariants(g *domain.GameState) error {
	if g == nil {
		return fmt.Errorf("nil game state")
	}
	if !g.Status.Valid() {
		return fmt.Errorf("unknown status %q", g.Status)
	}

	var eliminated []string
	for player, letters := range g.Letters {
		if !IsLadderPrefix(letters) {
			return fmt.Errorf("letters %q of %s are not a ladder rung", letters, player)
		}
		if !g.IsPlayer(player) {
			return fmt.Errorf("letters recorded for non-player %s", player)
		}
		if IsComplete(letters) {
			eliminated = append(eliminated, player)
		}
	}

	if g.Status == domain.StatusCompleted {
		if len(eliminated) != 1 {
			return fmt.Errorf("completed game must have exactly one eliminated player, got %d", len(eliminated))
		}
		if g.WinnerID == nil || *g.WinnerID != g.Other(eliminated[0]) {
			return fmt.Errorf("winner must be the opponent of %s", eliminated[0])
		}
	} else if len(eliminated) > 0 {
		return fmt.Errorf("%s has %s but game is %s", eliminated[0], FullWord, g.Status)
	}
	if g.WinnerID != nil && !g.Status.IsTerminal() {
		return fmt.Errorf("winner set on a %s game", g.Status)
	}

	if g.Status.IsTerminal() {
		if g.TurnHolderID != nil {
			return fmt.Errorf("terminal game has a turn holder")
		}
		return nil
	}

	if g.TurnHolderID == nil {
		return fmt.Errorf("%s game has no turn holder", g.Status)
	}
	if g.OpponentID != nil && !g.IsPlayer(*g.TurnHolderID) {
		return fmt.Errorf("turn holder %s is not a player", *g.TurnHolderID)
	}

	switch g.Status {
	case domain.StatusActive:
		if g.TurnKind == domain.TurnSetTrick && (g.CurrentTrick != nil || g.PendingAttempt != nil) {
			return fmt.Errorf("SET_TRICK turn must have no trick and no attempt")
		}
		if g.TurnKind == domain.TurnJudgeAttempt {
			return fmt.Errorf("JUDGE_ATTEMPT turn outside of JUDGING")
		}
	case domain.StatusJudging:
		if g.PendingAttempt == nil || g.CurrentTrick == nil {
			return fmt.Errorf("JUDGING requires a trick and a pending attempt")
		}
		if *g.TurnHolderID != g.CurrentTrick.SetterID {
			return fmt.Errorf("JUDGING must be held by the setter")
		}
		if g.TurnKind != domain.TurnJudgeAttempt {
			return fmt.Errorf("JUDGING requires JUDGE_ATTEMPT, got %s", g.TurnKind)
		}
	}
	return nil
}

// CheckTransition - буквы растут не больше чем на одну ступень за переход и не убывают
func CheckTransition(prev, next *domain.GameState) error {
	if prev == nil || next == nil {
		return nil
	}
	if next.Version != prev.Version+1 {
		return fmt.Errorf("version must grow by one: %d -> %d", prev.Version, next.Version)
	}
	grown := 0
	for player, before := range prev.Letters {
		after := next.Letters[player]
		switch {
		case after == before:
		case after == NextLetter(before) && len(after) == len(before)+1:
			grown++
		default:
			return fmt.Errorf("letters of %s moved %q -> %q", player, before, after)
		}
	}
	if grown > 1 {
		return fmt.Errorf("more than one player received a letter")
	}
	return nil
}
