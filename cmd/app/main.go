package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"skate_battle/internal/config"
	"skate_battle/internal/db"
	"skate_battle/internal/game"
	httpServer "skate_battle/internal/http"
	"skate_battle/internal/http/handlers"
	"skate_battle/internal/http/middleware"
	"skate_battle/internal/logger"
	"skate_battle/internal/repository"
	"skate_battle/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Version устанавливается при сборке
var Version = "dev"

// хранилище выбранного режима, закрывает пул при остановке
type stores struct {
	games  repository.GameStore
	outbox repository.EffectOutbox
	audit  repository.AuditStore
	close  func()
}

func main() {
	cfg := config.Load()

	// Инициализация структурированного логгера
	logger.Init(cfg.LogLevel, cfg.LogFormat == "json")
	log := logger.Get()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid config", "error", err)
	}
	if err := service.InitJWT(cfg.JWTSecret); err != nil {
		logger.Fatal("failed to init jwt", "error", err)
	}

	st := openStores(cfg)
	defer st.close()

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal("invalid REDIS_URL", "error", err)
		}
		rdb = redis.NewClient(opts)
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logger.Fatal("redis ping failed", "error", err)
		}
		defer rdb.Close()
	} else {
		log.Warn("REDIS_URL not set - effects go to log, rate limit and sweeper lock disabled")
	}

	battles := service.NewBattleService(st.games, service.BattleConfig{
		Rules:       game.Rules{TurnWindow: cfg.TurnWindow, JoinWindow: cfg.JoinWindow},
		MaxAttempts: cfg.CommitMaxAttempts,
	})
	audit := service.NewAuditService(st.audit)

	r := gin.New()
	r.Use(gin.Recovery())

	// CORS для фронта на другом домене
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		}
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	routeCfg := httpServer.RouteConfig{RateLimitPerMinute: cfg.RateLimitPerMinute}
	var publisher service.Publisher = service.LogPublisher{}
	if rdb != nil {
		routeCfg.RateLimiter = middleware.NewRedisCounter(rdb)
		publisher = service.NewRedisEffectPublisher(rdb, cfg.EffectsStream)
	}
	httpServer.RegisterRoutes(r, handlers.NewHandler(battles, audit, Version), routeCfg)

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: r,
	}

	go func() {
		log.Info("server started", "port", cfg.AppPort, "version", Version, "store", cfg.Store)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", "error", err)
		}
	}()

	// форфейт просроченных ходов
	sweeper := service.NewExpirySweeper(battles, st.games, cfg.SweepInterval, cfg.SweepBatch)
	if rdb != nil {
		sweeper.SetLocker(service.NewRedisLocker(rdb))
	}
	go sweeper.Start()

	// доставка эффектов подписчикам
	relay := service.NewEffectRelay(st.outbox, publisher, cfg.RelayInterval, 100)
	go relay.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	sweeper.Stop()
	relay.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", "error", err)
	}

	log.Info("server exited")
}

func openStores(cfg *config.Config) stores {
	if cfg.Store == config.StoreMemory {
		logger.Warn("STORE=memory - games are lost on restart, do not use in production")
		mem := repository.NewMemoryStore()
		return stores{games: mem, outbox: mem, audit: mem, close: func() {}}
	}

	pool := db.Connect(cfg.DatabaseURL)
	games := repository.NewGameRepository(pool)
	return stores{
		games:  games,
		outbox: games,
		audit:  repository.NewAuditRepository(pool),
		close:  pool.Close,
	}
}
