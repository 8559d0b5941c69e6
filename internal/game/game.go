package game

import "time"

// значения по умолчанию для окон хода
const (
	DefaultTurnWindow = 24 * time.Hour
	DefaultJoinWindow = 7 * 24 * time.Hour
)

// Rules - продуктовые параметры батла.
// Правило "при промахе сеттер сохраняет роль" зашито в движок и не настраивается.
type Rules struct {
	// сколько времени у держателя хода на действие
	TurnWindow time.Duration
	// сколько ждать соперника, 0 - без ограничения
	JoinWindow time.Duration
}

func DefaultRules() Rules {
	return Rules{TurnWindow: DefaultTurnWindow, JoinWindow: DefaultJoinWindow}
}

func (r Rules) turnWindow() time.Duration {
	if r.TurnWindow <= 0 {
		return DefaultTurnWindow
	}
	return r.TurnWindow
}

// Action - закрытый тип-сумма действий, у каждого вида ровно свои поля
type Action interface {
	Kind() ActionKind
	isAction()
}

type ActionKind string

const (
	KindCreate  ActionKind = "create"
	KindJoin    ActionKind = "join"
	KindSet     ActionKind = "set"
	KindAttempt ActionKind = "attempt"
	KindJudge   ActionKind = "judge"
	KindForfeit ActionKind = "forfeit"
)

type CreateGame struct {
	GameID       string
	ChallengerID string
	ClipRef      string
}

type JoinGame struct {
	OpponentID string
}

type SubmitSet struct {
	ActorID string
	ClipRef string
}

type SubmitAttempt struct {
	ActorID string
	ClipRef string
}

// SubmitJudgment - вердикт сеттера.
// AttemptRef необязателен, если задан - должен совпасть с ожидающей попыткой.
type SubmitJudgment struct {
	ActorID    string
	Landed     bool
	AttemptRef string
}

// ForfeitExpired выдает система (sweeper), не игрок
type ForfeitExpired struct{}

func (CreateGame) Kind() ActionKind     { return KindCreate }
func (JoinGame) Kind() ActionKind       { return KindJoin }
func (SubmitSet) Kind() ActionKind      { return KindSet }
func (SubmitAttempt) Kind() ActionKind  { return KindAttempt }
func (SubmitJudgment) Kind() ActionKind { return KindJudge }
func (ForfeitExpired) Kind() ActionKind { return KindForfeit }

func (CreateGame) isAction()     {}
func (JoinGame) isAction()       {}
func (SubmitSet) isAction()      {}
func (SubmitAttempt) isAction()  {}
func (SubmitJudgment) isAction() {}
func (ForfeitExpired) isAction() {}

// ActorOf возвращает игрока-инициатора действия, пусто для системных
func ActorOf(a Action) string {
	switch act := a.(type) {
	case CreateGame:
		return act.ChallengerID
	case JoinGame:
		return act.OpponentID
	case SubmitSet:
		return act.ActorID
	case SubmitAttempt:
		return act.ActorID
	case SubmitJudgment:
		return act.ActorID
	}
	return ""
}
