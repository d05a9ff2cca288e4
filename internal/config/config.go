package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	DatabaseURL        string
	ServerPort         string
	FrontendURL        string
	RemoteAPIURL       string
	RemoteAPIToken     string
	RedisURL           string
	RabbitMQURL        string
	RabbitMQPrefetch   int
	SyncInterval       time.Duration
	SubscribeInterval  time.Duration
	CacheTTL           time.Duration
	PendingStaleAfter  time.Duration
	AuthJWKSURL        string
	AuthIssuer         string
	RateLimit          string
	WorkerDebugMode    bool
	ServerDebugMode    bool
	OTELEnabled        bool
	OTELEndpoint       string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		ServerPort:        getEnv("SERVER_PORT", "8080"),
		FrontendURL:       getEnv("FRONTEND_URL", "http://localhost:3000"),
		RemoteAPIURL:      getEnv("REMOTE_API_URL", ""),
		RemoteAPIToken:    getEnv("REMOTE_API_TOKEN", ""),
		RedisURL:          getEnv("REDIS_URL", "redis://localhost:6379/0"),
		RabbitMQURL:       getEnv("RABBITMQ_URL", ""),
		RabbitMQPrefetch:  getEnvInt("RABBITMQ_PREFETCH", 1),
		SyncInterval:      getEnvDuration("SYNC_INTERVAL", 5*time.Minute),
		SubscribeInterval: getEnvDuration("SUBSCRIBE_INTERVAL", 30*time.Second),
		CacheTTL:          getEnvDuration("CACHE_TTL", 30*time.Second),
		PendingStaleAfter: getEnvDuration("PENDING_STALE_AFTER", 15*time.Minute),
		AuthJWKSURL:       getEnv("AUTH_JWKS_URL", ""),
		AuthIssuer:        getEnv("AUTH_ISSUER", ""),
		RateLimit:         getEnv("RATE_LIMIT", "10-S"),
		WorkerDebugMode:   getEnvBool("WORKER_DEBUG_MODE", false),
		ServerDebugMode:   getEnvBool("SERVER_DEBUG_MODE", false),
		OTELEnabled:       getEnvBool("OTEL_ENABLED", false),
		OTELEndpoint:      getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.RabbitMQURL == "" {
		return nil, fmt.Errorf("RABBITMQ_URL is required for sync job queueing")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
