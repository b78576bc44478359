// Package config loads server settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds every server setting. Field defaults match the documented environment.
type Config struct {
	Host string `env:"PONG_HOST" envDefault:""`
	Port int    `env:"PONG_PORT" envDefault:"8080"`

	// Storage selects the backend: memory, redis or sqlite
	Storage    string `env:"PONG_STORAGE" envDefault:"memory"`
	RedisURL   string `env:"PONG_REDIS_URL" envDefault:"redis://localhost:6379"`
	SQLitePath string `env:"PONG_SQLITE_PATH" envDefault:"pongladder.db"`

	KFactor          float64 `env:"PONG_K_FACTOR" envDefault:"32"`
	RecentGames      int     `env:"PONG_RECENT_GAMES" envDefault:"20"`
	H2HRecentGames   int     `env:"PONG_H2H_RECENT_GAMES" envDefault:"30"`
	Timezone         string  `env:"PONG_TIMEZONE" envDefault:"Europe/London"`
	AchievementsFile string  `env:"PONG_ACHIEVEMENTS_FILE"`

	LogLevel string `env:"PONG_LOG_LEVEL" envDefault:"info"`
}

// Load reads an optional .env file from each path, then parses the environment.
// Variables already set in the environment take precedence over .env values.
func Load(envFiles ...string) (Config, error) {
	for _, path := range envFiles {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", path, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with
func (c Config) Validate() error {
	switch c.Storage {
	case "memory", "redis", "sqlite":
	default:
		return fmt.Errorf("PONG_STORAGE must be memory, redis or sqlite, got %q", c.Storage)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PONG_PORT out of range: %d", c.Port)
	}
	if c.KFactor <= 0 {
		return fmt.Errorf("PONG_K_FACTOR must be positive")
	}
	if c.RecentGames <= 0 || c.H2HRecentGames <= 0 {
		return fmt.Errorf("recent game limits must be positive")
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// SlogLevel returns the configured log level
func (c Config) SlogLevel() slog.Level {
	level, _ := ParseLogLevel(c.LogLevel)
	return level
}

// ParseLogLevel maps debug, info, warn and error to slog levels
func ParseLogLevel(value string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(value))); err != nil {
		return slog.LevelInfo, fmt.Errorf("PONG_LOG_LEVEL: %w", err)
	}
	return level, nil
}
