package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// действия батла по виду и результату (ok, expired, код отказа)
	Actions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "skate",
		Name:      "actions_total",
		Help:      "Battle actions by kind and result.",
	}, []string{"kind", "result"})

	// проигранные гонки условной записи
	CommitConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "skate",
		Name:      "commit_conflicts_total",
		Help:      "Version conflicts on game commit.",
	})

	CommitAttempts = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "skate",
		Name:      "commit_attempts",
		Help:      "Attempts needed to commit one action.",
		Buckets:   []float64{1, 2, 3, 4, 5, 8},
	})

	GamesFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "skate",
		Name:      "games_finished_total",
		Help:      "Games that reached a terminal status.",
	}, []string{"status"})

	SweptGames = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "skate",
		Name:      "swept_games_total",
		Help:      "Games forfeited by the expiry sweeper.",
	})

	EffectsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "skate",
		Name:      "effects_published_total",
		Help:      "Effects relayed to the bus by type.",
	}, []string{"type"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "skate",
		Name:      "http_requests_total",
		Help:      "Gateway requests by route and status.",
	}, []string{"route", "status"})
)
