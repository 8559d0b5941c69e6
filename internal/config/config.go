package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// режимы хранилища
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	AppPort     string
	DatabaseURL string
	RedisURL    string
	JWTSecret   string
	Store       string

	TurnWindow        time.Duration
	JoinWindow        time.Duration
	SweepInterval     time.Duration
	SweepBatch        int
	CommitMaxAttempts int

	RateLimitPerMinute int
	EffectsStream      string
	RelayInterval      time.Duration

	LogLevel  string
	LogFormat string
}

// Load читает .env (если есть) и переменные окружения
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		AppPort:     getEnv("APP_PORT", "8080"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),
		JWTSecret:   getEnv("JWT_SECRET", ""),
		Store:       strings.ToLower(getEnv("STORE", StorePostgres)),

		TurnWindow:        getDuration("TURN_WINDOW", 24*time.Hour),
		JoinWindow:        getDuration("JOIN_WINDOW", 7*24*time.Hour),
		SweepInterval:     getDuration("SWEEP_INTERVAL", 2*time.Minute),
		SweepBatch:        getInt("SWEEP_BATCH", 100),
		CommitMaxAttempts: getInt("COMMIT_MAX_ATTEMPTS", 5),

		RateLimitPerMinute: getInt("RATE_LIMIT_PER_MINUTE", 120),
		EffectsStream:      getEnv("EFFECTS_STREAM", "skate:effects"),
		RelayInterval:      getDuration("RELAY_INTERVAL", 2*time.Second),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}
}

// Validate отбрасывает бессмысленные значения до старта сервера
func (c *Config) Validate() error {
	switch c.Store {
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for STORE=postgres")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown STORE %q", c.Store)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.TurnWindow <= 0 {
		return fmt.Errorf("TURN_WINDOW must be positive")
	}
	if c.JoinWindow < 0 {
		return fmt.Errorf("JOIN_WINDOW must not be negative")
	}
	if c.SweepInterval <= 0 || c.RelayInterval <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL and RELAY_INTERVAL must be positive")
	}
	if c.SweepBatch <= 0 {
		return fmt.Errorf("SWEEP_BATCH must be positive")
	}
	if c.CommitMaxAttempts < 1 {
		return fmt.Errorf("COMMIT_MAX_ATTEMPTS must be at least 1")
	}
	if c.RateLimitPerMinute < 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must not be negative")
	}
	return nil
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return n
}

// принимает "90s", "24h" или число секунд
func getDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return def
}
