// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Recommend RecommendConfig
	Logging   LoggingConfig
	Tracing   TracingConfig
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Addr            string
	TLSCert         string
	TLSKey          string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	SessionTTL      time.Duration
}

// DatabaseConfig contains database configuration. An empty URL selects the
// in-memory stores.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig contains Redis configuration. An empty Addr disables caching.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	UseTLS   bool
}

// RecommendConfig contains the recommendation cache settings.
type RecommendConfig struct {
	CacheTTL          time.Duration
	CacheTimeout      time.Duration
	InvalidateTimeout time.Duration
	KeyPrefix         string
	DefaultLimit      int
	MaxLimit          int
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level string
}

// TracingConfig contains OpenTelemetry configuration.
type TracingConfig struct {
	Host        string
	Probability float64
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Addr:            getEnv("HTTP_ADDR", ":8443"),
			TLSCert:         getEnv("TLS_CERT", ""),
			TLSKey:          getEnv("TLS_KEY", ""),
			ReadTimeout:     getEnvAsDuration("HTTP_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvAsDuration("HTTP_WRITE_TIMEOUT", 10*time.Second),
			ShutdownTimeout: getEnvAsDuration("HTTP_SHUTDOWN_TIMEOUT", 15*time.Second),
			SessionTTL:      getEnvAsDuration("SESSION_TTL", time.Hour),
		},
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			UseTLS:   getEnvAsBool("REDIS_TLS", false),
		},
		Recommend: RecommendConfig{
			CacheTTL:          getEnvAsDuration("RECOMMEND_CACHE_TTL", 30*time.Minute),
			CacheTimeout:      getEnvAsDuration("RECOMMEND_CACHE_TIMEOUT", 50*time.Millisecond),
			InvalidateTimeout: getEnvAsDuration("RECOMMEND_INVALIDATE_TIMEOUT", 2*time.Second),
			KeyPrefix:         getEnv("RECOMMEND_KEY_PREFIX", "recommendations:"),
			DefaultLimit:      getEnvAsInt("RECOMMEND_DEFAULT_LIMIT", 4),
			MaxLimit:          getEnvAsInt("RECOMMEND_MAX_LIMIT", 50),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Tracing: TracingConfig{
			Host:        getEnv("OTEL_HOST", ""),
			Probability: getEnvAsFloat("OTEL_SAMPLE_RATIO", 1.0),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if (c.Server.TLSCert == "") != (c.Server.TLSKey == "") {
		return fmt.Errorf("TLS_CERT and TLS_KEY must be set together")
	}
	if c.Recommend.CacheTTL <= 0 {
		return fmt.Errorf("RECOMMEND_CACHE_TTL must be positive, got %s", c.Recommend.CacheTTL)
	}
	if c.Recommend.DefaultLimit <= 0 || c.Recommend.MaxLimit < c.Recommend.DefaultLimit {
		return fmt.Errorf("invalid recommendation limits: default %d, max %d", c.Recommend.DefaultLimit, c.Recommend.MaxLimit)
	}
	if c.Tracing.Probability < 0 || c.Tracing.Probability > 1 {
		return fmt.Errorf("OTEL_SAMPLE_RATIO must be within [0,1], got %v", c.Tracing.Probability)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	value, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}
