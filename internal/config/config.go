// Package config loads the server configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rewear/service_layer/pkg/logger"
)

// Config is the full server configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	AI       AIConfig
	Logging  logger.LoggingConfig
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// DatabaseConfig controls the postgres store. An empty URL selects the
// in-memory store.
type DatabaseConfig struct {
	URL           string
	MigrationsDir string
}

// RedisConfig controls the listing cache. An empty Addr disables caching.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// AuthConfig controls token issuance.
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// AIConfig controls the text generator. An empty Endpoint disables it.
type AIConfig struct {
	Endpoint string
	APIKey   string
	Model    string
}

// Load reads configuration from the environment.
func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Addr:            envOr("SERVER_ADDR", ":8080"),
			ShutdownTimeout: 15 * time.Second,
		},
		Database: DatabaseConfig{
			URL:           strings.TrimSpace(os.Getenv("DATABASE_URL")),
			MigrationsDir: envOr("MIGRATIONS_DIR", "migrations"),
		},
		Redis: RedisConfig{
			Addr:     strings.TrimSpace(os.Getenv("REDIS_ADDR")),
			Password: os.Getenv("REDIS_PASSWORD"),
			TTL:      time.Minute,
		},
		Auth: AuthConfig{
			JWTSecret: os.Getenv("JWT_SECRET"),
			TokenTTL:  7 * 24 * time.Hour,
		},
		AI: AIConfig{
			Endpoint: strings.TrimSpace(os.Getenv("AI_ENDPOINT")),
			APIKey:   os.Getenv("AI_API_KEY"),
			Model:    envOr("AI_MODEL", "gpt-4o-mini"),
		},
		Logging: logger.LoggingConfig{
			Level:  envOr("LOG_LEVEL", "info"),
			Format: envOr("LOG_FORMAT", "json"),
			Output: envOr("LOG_OUTPUT", "console"),
		},
	}

	if raw := os.Getenv("REDIS_DB"); raw != "" {
		db, err := strconv.Atoi(raw)
		if err != nil {
			return Config{}, fmt.Errorf("parse REDIS_DB: %w", err)
		}
		cfg.Redis.DB = db
	}
	if raw := os.Getenv("REDIS_CACHE_TTL"); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("parse REDIS_CACHE_TTL: %w", err)
		}
		cfg.Redis.TTL = ttl
	}
	if raw := os.Getenv("JWT_TTL"); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("parse JWT_TTL: %w", err)
		}
		cfg.Auth.TokenTTL = ttl
	}
	if raw := os.Getenv("SHUTDOWN_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("parse SHUTDOWN_TIMEOUT: %w", err)
		}
		cfg.Server.ShutdownTimeout = d
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
