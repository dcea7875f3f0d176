// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	Upload   UploadConfig
	Address  AddressConfig
	Redis    RedisConfig
	Events   EventsConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
	Janitor  JanitorConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" envAlt:"PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 30s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"30s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// StoreConfig selects and configures batch persistence.
type StoreConfig struct {
	// Driver is memory or postgres (default: memory)
	Driver string `env:"STORE_DRIVER" default:"memory"`

	// URL is the PostgreSQL connection string, required for the postgres driver.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 20)
	MaxConns int `env:"DB_MAX_CONNS" default:"20"`

	// MinConns is the minimum number of connections to keep open (default: 4)
	MinConns int `env:"DB_MIN_CONNS" default:"4"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// UploadConfig holds batch file upload settings.
type UploadConfig struct {
	// MaxFileSize is the maximum allowed file size in bytes (default: 10MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"10485760"`

	// MaxConcurrent is the maximum number of parallel ingests (default: 5)
	MaxConcurrent int `env:"UPLOAD_MAX_CONCURRENT" default:"5"`

	// MaxWaitTime is how long to wait for an ingest slot (default: 30s)
	MaxWaitTime time.Duration `env:"UPLOAD_MAX_WAIT_TIME" default:"30s"`

	// Timeout is the maximum duration for a single ingest (default: 2m)
	Timeout time.Duration `env:"UPLOAD_TIMEOUT" default:"2m"`
}

// AddressConfig selects the address validation provider.
type AddressConfig struct {
	// Provider is usps, google, or mock (default: mock)
	Provider string `env:"ADDRESS_PROVIDER" envAlt:"ADDRESS_VALIDATION_PROVIDER" default:"mock"`

	// USPSUserID is the USPS Web Tools user id
	USPSUserID string `env:"USPS_USER_ID"`

	// USPSURL overrides the USPS endpoint
	USPSURL string `env:"USPS_API_URL"`

	// GoogleAPIKey is the Google Address Validation API key
	GoogleAPIKey string `env:"GOOGLE_ADDRESS_API_KEY"`

	// GoogleURL overrides the Google endpoint
	GoogleURL string `env:"GOOGLE_ADDRESS_API_URL"`

	// Timeout bounds each provider call; exceeding it falls back (default: 5s)
	Timeout time.Duration `env:"ADDRESS_PROVIDER_TIMEOUT" default:"5s"`

	// RateLimit is the minimum interval between provider calls, 0 for none (default: 0s)
	RateLimit time.Duration `env:"ADDRESS_PROVIDER_RATE_LIMIT" default:"0s"`

	// Workers is the number of rows validated in parallel (default: 8)
	Workers int `env:"VALIDATION_WORKERS" default:"8"`
}

// RedisConfig enables distributed batch locks when Addr is set.
type RedisConfig struct {
	// Addr is host:port of the Redis server; empty uses in-process locks
	Addr string `env:"REDIS_ADDR"`

	// Password for Redis AUTH
	Password string `env:"REDIS_PASSWORD"`

	// DB is the Redis database number (default: 0)
	DB int `env:"REDIS_DB" default:"0"`

	// LockTTL is how long a batch lock is held before it expires (default: 30s)
	LockTTL time.Duration `env:"BATCH_LOCK_TTL" default:"30s"`

	// LockWait is how long to retry obtaining a busy lock (default: 5s)
	LockWait time.Duration `env:"BATCH_LOCK_WAIT" default:"5s"`
}

// EventsConfig enables Kafka event publishing when Brokers is set.
type EventsConfig struct {
	// Brokers is a comma-separated list of Kafka brokers; empty logs events instead
	Brokers []string `env:"KAFKA_BROKERS"`

	// Topic receives batch lifecycle events (default: batch-events)
	Topic string `env:"KAFKA_TOPIC" default:"batch-events"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// UploadLimit is requests per minute for upload endpoints (default: 10)
	UploadLimit int `env:"RATE_LIMIT_UPLOAD" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// RequireAPIKey rejects /api requests without a valid X-API-Key (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted API keys. An entry of the
	// form user:key scopes requests made with that key to the user.
	APIKeys []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// JanitorConfig holds stale batch cleanup settings.
type JanitorConfig struct {
	// DraftRetention is how long untouched draft and cancelled batches are kept (default: 168h)
	DraftRetention time.Duration `env:"JANITOR_DRAFT_RETENTION" default:"168h"`

	// CheckInterval is how often the janitor runs, 0 to disable (default: 1h)
	CheckInterval time.Duration `env:"JANITOR_CHECK_INTERVAL" default:"1h"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
