package game

import (
	"strings"
	"time"

	"skate_battle/internal/domain"
)

// Result - следующее состояние и все, что из него следует.
// Expired=true: действие игрока пришло после дедлайна и вместо него применен форфейт.
type Result struct {
	State   domain.GameState
	History []domain.HistoryEntry
	Effects []domain.Effect
	Expired bool
}

// Apply - чистая функция перехода (GameState, Action) -> (GameState, Effects) | Rejection.
// Без I/O, входное состояние не меняется. state == nil только для CreateGame.
func Apply(state *domain.GameState, action Action, now time.Time, rules Rules) (Result, *Rejection) {
	if action == nil {
		return Result{}, reject(CodeValidation, "action is required")
	}
	if rej := validate(action); rej != nil {
		return Result{}, rej
	}
	now = now.UTC()

	if create, ok := action.(CreateGame); ok {
		if state != nil {
			return Result{}, reject(CodeAlreadyExists, "game %s already exists", state.ID)
		}
		return applyCreate(create, now, rules), nil
	}
	if state == nil {
		return Result{}, reject(CodeNotFound, "game does not exist")
	}
	if state.Status.IsTerminal() {
		return Result{}, reject(CodeFailedPrecondition, "game is %s", state.Status)
	}

	switch act := action.(type) {
	case ForfeitExpired:
		if !isExpired(state, now) {
			return Result{}, reject(CodeFailedPrecondition, "turn has not expired")
		}
		return forfeit(state, now, false), nil
	case JoinGame:
		return applyJoin(state, act, now, rules)
	}

	if state.Status == domain.StatusPending {
		return Result{}, reject(CodeFailedPrecondition, "game is waiting for an opponent")
	}
	actor := ActorOf(action)
	if !state.IsPlayer(actor) {
		return Result{}, reject(CodePermissionDenied, "%s is not a player in this game", actor)
	}
	// опоздавшее действие превращается в форфейт держателя хода
	if isExpired(state, now) {
		return forfeit(state, now, true), nil
	}

	switch act := action.(type) {
	case SubmitSet:
		return applySet(state, act, now, rules)
	case SubmitAttempt:
		return applyAttempt(state, act, now, rules)
	case SubmitJudgment:
		return applyJudgment(state, act, now, rules)
	}
	return Result{}, reject(CodeValidation, "unknown action %T", action)
}

func validate(action Action) *Rejection {
	switch act := action.(type) {
	case CreateGame:
		if blank(act.GameID) {
			return reject(CodeValidation, "game id is required")
		}
		if blank(act.ChallengerID) {
			return reject(CodeValidation, "challenger id is required")
		}
		if blank(act.ClipRef) {
			return reject(CodeValidation, "clip reference is required")
		}
	case JoinGame:
		if blank(act.OpponentID) {
			return reject(CodeValidation, "opponent id is required")
		}
	case SubmitSet:
		if blank(act.ActorID) {
			return reject(CodeValidation, "actor id is required")
		}
		if blank(act.ClipRef) {
			return reject(CodeValidation, "clip reference is required to set a trick")
		}
	case SubmitAttempt:
		if blank(act.ActorID) {
			return reject(CodeValidation, "actor id is required")
		}
		if blank(act.ClipRef) {
			return reject(CodeValidation, "clip reference is required to attempt a trick")
		}
	case SubmitJudgment:
		if blank(act.ActorID) {
			return reject(CodeValidation, "actor id is required")
		}
	case ForfeitExpired:
	default:
		return reject(CodeValidation, "unknown action %T", action)
	}
	return nil
}

func applyCreate(act CreateGame, now time.Time, rules Rules) Result {
	challenger := act.ChallengerID
	g := domain.GameState{
		ID:           act.GameID,
		ChallengerID: challenger,
		Status:       domain.StatusPending,
		Letters:      map[string]string{challenger: ""},
		TurnHolderID: domain.StringPtr(challenger),
		TurnKind:     domain.TurnNone,
		CurrentTrick: &domain.Trick{ClipRef: act.ClipRef, SetterID: challenger, SetAt: now},
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if rules.JoinWindow > 0 {
		g.TurnExpiresAt = deadline(now, rules.JoinWindow)
	}
	return Result{
		State: g,
		History: []domain.HistoryEntry{{
			GameID: g.ID, Seq: g.Version, ActorID: challenger,
			Kind: domain.HistoryCreate, ClipRef: act.ClipRef, At: now,
		}},
	}
}

func applyJoin(state *domain.GameState, act JoinGame, now time.Time, rules Rules) (Result, *Rejection) {
	if state.Status != domain.StatusPending || state.OpponentID != nil {
		return Result{}, reject(CodeFailedPrecondition, "game already has an opponent")
	}
	if act.OpponentID == state.ChallengerID {
		return Result{}, reject(CodePermissionDenied, "challenger cannot join their own game")
	}
	if isExpired(state, now) {
		return forfeit(state, now, true), nil
	}

	next := advance(state, now)
	next.OpponentID = domain.StringPtr(act.OpponentID)
	next.Status = domain.StatusActive
	next.Letters[act.OpponentID] = ""
	if _, ok := next.Letters[next.ChallengerID]; !ok {
		next.Letters[next.ChallengerID] = ""
	}
	passTurn(&next, act.OpponentID, domain.TurnAttemptMatch, now, rules)

	res := Result{State: next}
	res.History = append(res.History, entry(&next, act.OpponentID, domain.HistoryJoin, "", "", now))
	joined := effect(&next, domain.EffectPlayerJoined, now)
	joined.PlayerID = act.OpponentID
	res.Effects = append(res.Effects, joined, turnAssigned(&next, now))
	return res, nil
}

func applySet(state *domain.GameState, act SubmitSet, now time.Time, rules Rules) (Result, *Rejection) {
	if rej := requireHolder(state, act.ActorID); rej != nil {
		return Result{}, rej
	}
	if state.Status != domain.StatusActive || state.TurnKind != domain.TurnSetTrick {
		return Result{}, reject(CodeFailedPrecondition, "expected %s, got a trick set", state.TurnKind)
	}

	next := advance(state, now)
	next.CurrentTrick = &domain.Trick{ClipRef: act.ClipRef, SetterID: act.ActorID, SetAt: now}
	next.PendingAttempt = nil
	passTurn(&next, next.Other(act.ActorID), domain.TurnAttemptMatch, now, rules)

	return Result{
		State:   next,
		History: []domain.HistoryEntry{entry(&next, act.ActorID, domain.HistorySet, act.ClipRef, "", now)},
		Effects: []domain.Effect{turnAssigned(&next, now)},
	}, nil
}

func applyAttempt(state *domain.GameState, act SubmitAttempt, now time.Time, rules Rules) (Result, *Rejection) {
	if rej := requireHolder(state, act.ActorID); rej != nil {
		return Result{}, rej
	}
	if state.TurnKind != domain.TurnAttemptMatch || state.CurrentTrick == nil {
		return Result{}, reject(CodeFailedPrecondition, "expected %s, got an attempt", state.TurnKind)
	}

	next := advance(state, now)
	next.Status = domain.StatusJudging
	next.PendingAttempt = &domain.Attempt{ClipRef: act.ClipRef, AttempterID: act.ActorID, AttemptedAt: now}
	// судит всегда сеттер, не тот кто пытался
	passTurn(&next, next.CurrentTrick.SetterID, domain.TurnJudgeAttempt, now, rules)

	return Result{
		State:   next,
		History: []domain.HistoryEntry{entry(&next, act.ActorID, domain.HistoryAttempt, act.ClipRef, "", now)},
		Effects: []domain.Effect{turnAssigned(&next, now)},
	}, nil
}

func applyJudgment(state *domain.GameState, act SubmitJudgment, now time.Time, rules Rules) (Result, *Rejection) {
	// повтор уже примененного вердикта: трюк и попытка уже сброшены
	if state.CurrentTrick == nil {
		return Result{}, reject(CodeFailedPrecondition, "no trick is in play")
	}
	if act.AttemptRef != "" && (state.PendingAttempt == nil || state.PendingAttempt.ClipRef != act.AttemptRef) {
		return Result{}, reject(CodeFailedPrecondition, "attempt %s is not awaiting judgment", act.AttemptRef)
	}
	if rej := requireHolder(state, act.ActorID); rej != nil {
		return Result{}, rej
	}
	if state.TurnKind != domain.TurnJudgeAttempt || state.PendingAttempt == nil {
		return Result{}, reject(CodeFailedPrecondition, "expected %s, got a judgment", state.TurnKind)
	}
	setter := state.CurrentTrick.SetterID
	if act.ActorID != setter {
		return Result{}, reject(CodePermissionDenied, "only the setter can judge")
	}

	attempt := *state.PendingAttempt
	next := advance(state, now)
	next.CurrentTrick = nil
	next.PendingAttempt = nil
	next.Status = domain.StatusActive

	res := Result{}
	if act.Landed {
		// повторил - теперь он ставит трюк
		passTurn(&next, attempt.AttempterID, domain.TurnSetTrick, now, rules)
		res.History = append(res.History, entry(&next, act.ActorID, domain.HistoryJudge, attempt.ClipRef, domain.OutcomeLanded, now))
		res.Effects = append(res.Effects, turnAssigned(&next, now))
		res.State = next
		return res, nil
	}

	letters := NextLetter(next.Letters[attempt.AttempterID])
	next.Letters[attempt.AttempterID] = letters
	res.History = append(res.History, entry(&next, act.ActorID, domain.HistoryJudge, attempt.ClipRef, domain.OutcomeBailed, now))
	awarded := effect(&next, domain.EffectLetterAwarded, now)
	awarded.PlayerID = attempt.AttempterID
	awarded.Letters = letters
	res.Effects = append(res.Effects, awarded)

	if IsComplete(letters) {
		next.Status = domain.StatusCompleted
		next.WinnerID = domain.StringPtr(setter)
		clearTurn(&next)
		done := effect(&next, domain.EffectGameCompleted, now)
		done.WinnerID = setter
		done.LoserID = attempt.AttempterID
		res.Effects = append(res.Effects, done)
		res.State = next
		return res, nil
	}

	// промах: сеттер сохраняет роль и обязан поставить новый трюк
	passTurn(&next, setter, domain.TurnSetTrick, now, rules)
	res.Effects = append(res.Effects, turnAssigned(&next, now))
	res.State = next
	return res, nil
}

// forfeit - держатель хода проспал дедлайн, побеждает соперник
func forfeit(state *domain.GameState, now time.Time, expired bool) Result {
	loser := state.TurnHolder()
	winner := state.Other(loser)

	next := advance(state, now)
	next.Status = domain.StatusForfeited
	next.WinnerID = domain.StringPtr(winner)
	next.CurrentTrick = nil
	next.PendingAttempt = nil
	clearTurn(&next)

	ev := effect(&next, domain.EffectGameForfeited, now)
	ev.WinnerID = winner
	ev.LoserID = loser
	return Result{
		State:   next,
		History: []domain.HistoryEntry{entry(&next, "", domain.HistoryForfeit, "", domain.OutcomeExpired, now)},
		Effects: []domain.Effect{ev},
		Expired: expired,
	}
}

func requireHolder(state *domain.GameState, actor string) *Rejection {
	if state.TurnHolder() != actor {
		return reject(CodePermissionDenied, "it is not %s's turn", actor)
	}
	return nil
}

func isExpired(state *domain.GameState, now time.Time) bool {
	return state.TurnExpiresAt != nil && now.After(*state.TurnExpiresAt)
}

// advance - копия с увеличенной версией
func advance(state *domain.GameState, now time.Time) domain.GameState {
	next := state.Clone()
	if next.Letters == nil {
		next.Letters = map[string]string{}
	}
	next.Version = state.Version + 1
	next.UpdatedAt = now
	return next
}

func passTurn(g *domain.GameState, holder string, kind domain.TurnKind, now time.Time, rules Rules) {
	g.TurnHolderID = domain.StringPtr(holder)
	g.TurnKind = kind
	g.TurnExpiresAt = deadline(now, rules.turnWindow())
}

func clearTurn(g *domain.GameState) {
	g.TurnHolderID = nil
	g.TurnKind = domain.TurnNone
	g.TurnExpiresAt = nil
}

func deadline(now time.Time, window time.Duration) *time.Time {
	t := now.Add(window)
	return &t
}

func entry(g *domain.GameState, actor string, kind domain.HistoryKind, clip, outcome string, now time.Time) domain.HistoryEntry {
	return domain.HistoryEntry{
		GameID:  g.ID,
		Seq:     g.Version,
		ActorID: actor,
		Kind:    kind,
		ClipRef: clip,
		Outcome: outcome,
		At:      now,
	}
}

func effect(g *domain.GameState, typ domain.EffectType, now time.Time) domain.Effect {
	return domain.Effect{GameID: g.ID, Version: g.Version, Type: typ, At: now}
}

func turnAssigned(g *domain.GameState, now time.Time) domain.Effect {
	ev := effect(g, domain.EffectTurnAssigned, now)
	ev.PlayerID = g.TurnHolder()
	ev.TurnKind = g.TurnKind
	if g.TurnExpiresAt != nil {
		t := *g.TurnExpiresAt
		ev.ExpiresAt = &t
	}
	return ev
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
