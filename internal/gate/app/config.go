package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	DatabaseFile string // Path to the SQLite database file (default: ./gatekeep.db)

	RedisAddr     string // Optional: address of the shared throttle counter backend; empty keeps counters in-process
	RedisPassword string // Optional: Redis auth
	RedisDB       int    // Optional: Redis database number

	DefaultTokenTTL     time.Duration // Token TTL applied to newly created clients and renewals without overrides (default: 24h)
	DefaultThrottleRate string        // Default rate for the user_per_client scope, "<count>/<period>" (default: 60/m); empty disables
	TokenLength         int           // Hex character length of issued tokens (default: 64, must be even and >= 40)

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // How often expired tokens are purged (default: 1h)
	TokenRetention       time.Duration // How long expired tokens linger before the purge removes them (default: 720h)
}

func LoadConfig() Config {
	return Config{
		DatabaseFile:  getEnvOrDefault("GATE_DATABASE_FILE", "gatekeep.db"),
		RedisAddr:     os.Getenv("GATE_REDIS_ADDR"),
		RedisPassword: os.Getenv("GATE_REDIS_PASSWORD"),
		RedisDB:       getEnvIntOrDefault("GATE_REDIS_DB", 0),

		DefaultTokenTTL:     getEnvDurationOrDefault("GATE_DEFAULT_TOKEN_TTL", 24*time.Hour),
		DefaultThrottleRate: getEnvOrDefault("GATE_DEFAULT_THROTTLE_RATE", "60/m"),
		TokenLength:         getEnvIntOrDefault("GATE_TOKEN_LENGTH", 64),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
		TokenRetention:       getEnvDurationOrDefault("GATE_TOKEN_RETENTION", 30*24*time.Hour),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Fall back to bare integer seconds
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}
