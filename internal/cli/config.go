package cli

import "os"

// Config holds server process configuration. Flags take precedence,
// then environment variables, then defaults; resolve applies the
// fallback chain after any .env file has been loaded.
type Config struct {
	// Addr is the TCP listen address for the client protocol.
	Addr string
	// HTTPAddr is the listen address for the status pages.
	HTTPAddr string
	// StorageType selects the storage backend ("memory" or "redis").
	StorageType string
	// RedisURL configures the redis backend.
	RedisURL string
	// EnvFile is an optional .env file loaded before reading the rest.
	EnvFile string
	// Debug lowers the log level to debug.
	Debug bool
}

func (c *Config) resolve() {
	if c.Addr == "" {
		c.Addr = getEnvOrDefault("BNCHO_ADDR", ":13381")
	}
	if c.HTTPAddr == "" {
		c.HTTPAddr = getEnvOrDefault("BNCHO_HTTP_ADDR", ":8080")
	}
	if c.StorageType == "" {
		c.StorageType = getEnvOrDefault("STORAGE_TYPE", "memory")
	}
	if c.RedisURL == "" {
		c.RedisURL = os.Getenv("REDIS_URL")
	}
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
