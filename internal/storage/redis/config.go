package redis

// Config holds Redis connection settings
type Config struct {
	// URL is the Redis connection URL (e.g., redis://localhost:6379)
	URL string

	// Pool settings
	PoolSize     int
	MinIdleConns int

	// MaxViewAttempts bounds how often a snapshot read is retried while
	// commits keep landing underneath it
	MaxViewAttempts int
}

// DefaultMaxViewAttempts is used when Config.MaxViewAttempts is not positive
const DefaultMaxViewAttempts = 10

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		URL:             "redis://localhost:6379",
		PoolSize:        10,
		MinIdleConns:    2,
		MaxViewAttempts: DefaultMaxViewAttempts,
	}
}
