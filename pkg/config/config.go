package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/snagtrack/snag/pkg/auth"
	"github.com/snagtrack/snag/pkg/observability"
	"github.com/snagtrack/snag/pkg/storage/postgres"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Storage configuration
	Storage StorageConfig

	// Auth configuration
	Auth AuthConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// StorageConfig holds database, session and blob storage settings
type StorageConfig struct {
	Postgres postgres.Config

	RedisURL string

	// BlobBackend selects where attachment content lives:
	// "filesystem" or "s3"
	BlobBackend    string
	FilesystemRoot string

	S3Endpoint     string
	S3Region       string
	S3Bucket       string
	S3AccessKey    string
	S3SecretKey    string
	S3UsePathStyle bool
}

// AuthConfig holds session and policy settings
type AuthConfig struct {
	SessionTTL time.Duration

	// PolicyFile optionally overrides the built-in workflow and
	// permission matrix
	PolicyFile string
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Storage:       loadStorageConfig(),
		Auth:          loadAuthConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadServerConfig loads server configuration from environment
func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("SNAG_HOST", "0.0.0.0"),
		Port:            getEnv("SNAG_PORT", "8080"),
		ReadTimeout:     getEnvDuration("SNAG_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("SNAG_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("SNAG_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("SNAG_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("SNAG_HEALTH_PORT", "9090"),
	}
}

// loadStorageConfig loads storage configuration from environment
func loadStorageConfig() StorageConfig {
	return StorageConfig{
		Postgres: postgres.Config{
			URL:      getEnv("SNAG_POSTGRES_URL", ""),
			MaxConns: getEnvInt("SNAG_POSTGRES_MAX_CONNS", 20),
			MinConns: getEnvInt("SNAG_POSTGRES_MIN_CONNS", 5),
			Timeout:  getEnvDuration("SNAG_POSTGRES_TIMEOUT", 10*time.Second),
		},
		RedisURL:       getEnv("SNAG_REDIS_URL", "redis://localhost:6379/0"),
		BlobBackend:    getEnv("SNAG_BLOB_BACKEND", "filesystem"),
		FilesystemRoot: getEnv("SNAG_BLOB_ROOT", "/var/lib/snag/blobs"),
		S3Endpoint:     getEnv("SNAG_S3_ENDPOINT", ""),
		S3Region:       getEnv("SNAG_S3_REGION", "us-east-1"),
		S3Bucket:       getEnv("SNAG_S3_BUCKET", ""),
		S3AccessKey:    getEnv("SNAG_S3_ACCESS_KEY", ""),
		S3SecretKey:    getEnv("SNAG_S3_SECRET_KEY", ""),
		S3UsePathStyle: getEnvBool("SNAG_S3_USE_PATH_STYLE", false),
	}
}

// loadAuthConfig loads session configuration from environment
func loadAuthConfig() AuthConfig {
	return AuthConfig{
		SessionTTL: getEnvDuration("SNAG_SESSION_TTL", auth.DefaultSessionTTL),
		PolicyFile: getEnv("SNAG_POLICY_FILE", ""),
	}
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:       parseLogLevel(getEnv("SNAG_LOG_LEVEL", "info")),
		MetricsEnabled: getEnvBool("SNAG_METRICS_ENABLED", true),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.Storage.Postgres.URL == "" {
		return fmt.Errorf("postgres URL is required")
	}
	if c.Storage.RedisURL == "" {
		return fmt.Errorf("redis URL is required")
	}

	switch c.Storage.BlobBackend {
	case "filesystem":
		if c.Storage.FilesystemRoot == "" {
			return fmt.Errorf("blob root is required for filesystem blob storage")
		}
	case "s3":
		if c.Storage.S3Bucket == "" {
			return fmt.Errorf("S3 bucket is required for s3 blob storage")
		}
	default:
		return fmt.Errorf("invalid blob backend: %s (must be filesystem or s3)", c.Storage.BlobBackend)
	}

	if c.Auth.SessionTTL <= 0 {
		return fmt.Errorf("session TTL must be positive")
	}

	return nil
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
