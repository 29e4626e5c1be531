// Package config reads server settings from the environment, with an
// optional .env file loaded first.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Storage backends
const (
	StorageMemory   = "memory"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
)

const insecureSeed = "dev-only-economy-seed"

// Config holds all server configuration parsed from environment variables
type Config struct {
	// Server
	Host            string        `env:"HOST"`
	Port            int           `env:"PORT" envDefault:"8080"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`

	// Storage
	StorageType string `env:"STORAGE_TYPE" envDefault:"memory"`
	RedisURL    string `env:"REDIS_URL" envDefault:"redis://localhost:6379"`
	DatabaseURL string `env:"DATABASE_URL"`
	PGHost      string `env:"PGHOST" envDefault:"localhost"`
	PGPort      int    `env:"PGPORT" envDefault:"5432"`
	PGUser      string `env:"PGUSER" envDefault:"sqrrr"`
	PGPassword  string `env:"PGPASSWORD" envDefault:"sqrrr"`
	PGDatabase  string `env:"PGDATABASE" envDefault:"sqrrr"`

	// Content
	DictionaryPath    string `env:"DICTIONARY_PATH" envDefault:"data/words.txt"`
	CatalogPath       string `env:"CATALOG_PATH" envDefault:"data/catalog.json"`
	AudioDir          string `env:"AUDIO_DIR" envDefault:"data/audio"`
	EconomyConfigPath string `env:"ECONOMY_CONFIG"`

	// Economy outcomes are derived from this seed; keep it secret
	EconomySeed string `env:"ECONOMY_SEED"`

	// Auth
	SessionDuration time.Duration `env:"SESSION_DURATION" envDefault:"24h"`
	AdminUsernames  []string      `env:"ADMIN_USERNAMES" envSeparator:","`

	// Rounds
	RoundDuration     time.Duration `env:"ROUND_DURATION" envDefault:"30s"`
	ExtendQuorumRatio float64       `env:"EXTEND_QUORUM_RATIO" envDefault:"0.5"`
	AutoplayDelay     time.Duration `env:"AUTOPLAY_DELAY" envDefault:"5s"`
	ChatHistoryLimit  int           `env:"CHAT_HISTORY_LIMIT" envDefault:"50"`

	// Audio tokens
	AssetTokenTTL      time.Duration `env:"ASSET_TOKEN_TTL" envDefault:"2m"`
	AssetSweepInterval time.Duration `env:"ASSET_SWEEP_INTERVAL" envDefault:"1m"`

	// Socket
	AllowedOrigins  []string `env:"ALLOWED_ORIGINS" envSeparator:","`
	SocketRateLimit float64  `env:"SOCKET_RATE_LIMIT" envDefault:"10"`
	SocketRateBurst int      `env:"SOCKET_RATE_BURST" envDefault:"20"`

	// Dev
	AllowInsecureDefaults bool `env:"ALLOW_INSECURE_DEFAULTS" envDefault:"false"`
}

// Load reads an optional .env file and then parses the environment.
// Variables already set in the environment win over the file.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// LoadFrom parses the given variables only, ignoring the process environment
func LoadFrom(vars map[string]string) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Environment: vars}); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Validate checks for values the server cannot run with
func (c *Config) Validate() error {
	switch c.StorageType {
	case StorageMemory, StorageRedis, StoragePostgres:
	default:
		return fmt.Errorf("STORAGE_TYPE must be memory, redis or postgres, got %q", c.StorageType)
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("PORT out of range: %d", c.Port)
	}
	if c.ExtendQuorumRatio <= 0 || c.ExtendQuorumRatio > 1 {
		return fmt.Errorf("EXTEND_QUORUM_RATIO must be in (0, 1], got %v", c.ExtendQuorumRatio)
	}
	if c.RoundDuration <= 0 {
		return fmt.Errorf("ROUND_DURATION must be positive")
	}
	if c.ChatHistoryLimit < 0 {
		return fmt.Errorf("CHAT_HISTORY_LIMIT must not be negative")
	}
	if c.SocketRateLimit <= 0 || c.SocketRateBurst < 1 {
		return fmt.Errorf("SOCKET_RATE_LIMIT and SOCKET_RATE_BURST must be positive")
	}

	if c.AllowInsecureDefaults {
		return nil
	}
	if len(c.EconomySeed) < 32 {
		return fmt.Errorf("ECONOMY_SEED is too short (%d chars); minimum 32 characters required, or set ALLOW_INSECURE_DEFAULTS=true for local dev", len(c.EconomySeed))
	}
	return nil
}

// Seed returns the economy seed, falling back to a fixed development seed
// when insecure defaults are allowed
func (c *Config) Seed() []byte {
	if c.EconomySeed == "" && c.AllowInsecureDefaults {
		return []byte(insecureSeed)
	}
	return []byte(c.EconomySeed)
}

// DSN returns the PostgreSQL connection string, preferring DATABASE_URL if set
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.PGUser, c.PGPassword, c.PGHost, c.PGPort, c.PGDatabase)
}

// Level parses LogLevel, defaulting to info
func (c *Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
