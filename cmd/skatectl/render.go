package main

import (
	"io"
	"time"

	"skate_battle/internal/domain"

	"github.com/jedib0t/go-pretty/v6/table"
)

func renderGame(w io.Writer, g *domain.GameState) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendRows([]table.Row{
		{"ID", g.ID},
		{"Status", g.Status},
		{"Challenger", g.ChallengerID + lettersSuffix(g, g.ChallengerID)},
		{"Opponent", g.Opponent() + lettersSuffix(g, g.Opponent())},
		{"Turn", g.TurnHolder() + " " + string(g.TurnKind)},
		{"Expires", formatTime(g.TurnExpiresAt)},
		{"Winner", g.Winner()},
		{"Version", g.Version},
	})
	if g.CurrentTrick != nil {
		tw.AppendRow(table.Row{"Trick", g.CurrentTrick.ClipRef + " by " + g.CurrentTrick.SetterID})
	}
	if g.PendingAttempt != nil {
		tw.AppendRow(table.Row{"Attempt", g.PendingAttempt.ClipRef + " by " + g.PendingAttempt.AttempterID})
	}
	tw.Render()
}

func renderHistory(w io.Writer, entries []domain.HistoryEntry) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Seq", "At", "Actor", "Kind", "Clip", "Outcome"})
	for _, e := range entries {
		tw.AppendRow(table.Row{e.Seq, e.At.Format(time.RFC3339), e.ActorID, e.Kind, e.ClipRef, e.Outcome})
	}
	tw.Render()
}

func renderGames(w io.Writer, games []*domain.GameState) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"ID", "Status", "Challenger", "Opponent", "Turn", "Expires", "Winner"})
	for _, g := range games {
		tw.AppendRow(table.Row{g.ID, g.Status, g.ChallengerID, g.Opponent(), g.TurnHolder(), formatTime(g.TurnExpiresAt), g.Winner()})
	}
	tw.Render()
}

func renderAudit(w io.Writer, logs []*domain.AuditLog) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"ID", "At", "Player", "Game", "Action", "Code", "IP"})
	for _, l := range logs {
		code, _ := l.Details["code"].(string)
		tw.AppendRow(table.Row{l.ID, l.CreatedAt.UTC().Format(time.RFC3339), l.PlayerID, l.GameID, l.Action, code, l.IP})
	}
	tw.Render()
}

func lettersSuffix(g *domain.GameState, player string) string {
	if player == "" {
		return ""
	}
	if l := g.Letters[player]; l != "" {
		return " (" + l + ")"
	}
	return ""
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
