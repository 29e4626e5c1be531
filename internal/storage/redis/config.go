package redis

import "time"

// Config holds Redis connection and behavior settings
type Config struct {
	// URL is the Redis connection URL (e.g., redis://localhost:6379)
	URL string

	// Pool settings
	PoolSize     int
	MinIdleConns int

	// ChatTTL expires idle room chat logs. Zero keeps them forever.
	ChatTTL time.Duration

	// DialTimeout bounds the startup ping
	DialTimeout time.Duration
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		URL:          "redis://localhost:6379",
		PoolSize:     10,
		MinIdleConns: 2,
		ChatTTL:      7 * 24 * time.Hour,
		DialTimeout:  5 * time.Second,
	}
}
