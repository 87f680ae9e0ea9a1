package config

import (
	"fmt"
	"time"

	"github.com/hireflow/hireflow/internal/configs/env"
)

// Config holds all configuration for the application
type Config struct {
	// MongoDB
	MongoURI    string
	MongoDBName string

	// Redis
	RedisHost               string
	RedisPassword           string
	RedisStreamKey          string
	RedisConsumerGroup      string
	RedisDeadLetterKey      string
	StreamRetentionDuration time.Duration

	// Document service (applicant profile enrichment for exports)
	DocServiceBaseURL string
	DocServiceAPIKey  string
	ExportTimeout     time.Duration
	ExportMaxAttempts int

	// JWT
	JWTSecret string
	JWTIssuer string

	// Rate Limiting
	RateLimitRPS float64

	// Proctoring
	TabSwitchLimit    int
	TabSwitchDebounce time.Duration
	TerminationGrace  time.Duration

	// How long finished sessions stay in memory before eviction
	SessionRetention time.Duration

	// Camera lifecycle
	CameraAcquireTimeout time.Duration
	CameraMaxAttempts    int
	CameraBackoffBase    time.Duration
	CameraBackoffCap     time.Duration

	// Logging
	LogLevel string

	// Server
	ServerPort string
}

func Load() (*Config, error) {
	cfg := &Config{}

	// MongoDB
	cfg.MongoURI = env.GetEnv("MONGO_URI", "")
	cfg.MongoDBName = env.GetEnv("MONGO_DB_NAME", "")

	// Redis
	cfg.RedisHost = env.GetEnv("REDIS_HOST", "localhost:6379")
	cfg.RedisPassword = env.GetEnv("REDIS_PASSWORD", "")
	cfg.RedisStreamKey = env.GetEnv("REDIS_STREAM_KEY", "coderuns:stream")
	cfg.RedisConsumerGroup = env.GetEnv("REDIS_CONSUMER_GROUP", "coderuns:group")
	cfg.RedisDeadLetterKey = env.GetEnv("REDIS_DEAD_LETTER_KEY", "coderuns:dlq")
	retentionHours := env.GetEnvInt("STREAM_RETENTION_DURATION", 24)
	cfg.StreamRetentionDuration = time.Duration(retentionHours) * time.Hour

	// Document service
	cfg.DocServiceBaseURL = env.GetEnv("DOC_SERVICE_BASE_URL", "")
	cfg.DocServiceAPIKey = env.GetEnv("DOC_SERVICE_API_KEY", "")
	cfg.ExportTimeout = env.GetEnvDuration("EXPORT_TIMEOUT", 60*time.Second)
	cfg.ExportMaxAttempts = env.GetEnvInt("EXPORT_MAX_ATTEMPTS", 3)

	// JWT
	cfg.JWTSecret = env.GetEnv("JWT_SECRET", "")
	cfg.JWTIssuer = env.GetEnv("JWT_ISSUER", "hireflow")

	// Rate Limiting
	cfg.RateLimitRPS = env.GetEnvFloat("RATE_LIMIT_RPS", 10.0)

	// Proctoring
	cfg.TabSwitchLimit = env.GetEnvInt("TAB_SWITCH_LIMIT", 4)
	cfg.TabSwitchDebounce = env.GetEnvDuration("TAB_SWITCH_DEBOUNCE", 2*time.Second)
	cfg.TerminationGrace = env.GetEnvDuration("TERMINATION_GRACE", 5*time.Second)
	cfg.SessionRetention = env.GetEnvDuration("SESSION_RETENTION", time.Hour)

	// Camera lifecycle
	cfg.CameraAcquireTimeout = env.GetEnvDuration("CAMERA_ACQUIRE_TIMEOUT", 12*time.Second)
	cfg.CameraMaxAttempts = env.GetEnvInt("CAMERA_MAX_ATTEMPTS", 3)
	cfg.CameraBackoffBase = env.GetEnvDuration("CAMERA_BACKOFF_BASE", 2*time.Second)
	cfg.CameraBackoffCap = env.GetEnvDuration("CAMERA_BACKOFF_CAP", 8*time.Second)

	// Logging
	cfg.LogLevel = env.GetEnv("LOG_LEVEL", "info")

	// Server
	cfg.ServerPort = env.GetEnv("SERVER_PORT", "8080")

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.MongoURI == "" {
		return fmt.Errorf("MONGO_URI is required")
	}
	if c.MongoDBName == "" {
		return fmt.Errorf("MONGO_DB_NAME is required")
	}
	if c.RedisHost == "" {
		return fmt.Errorf("REDIS_HOST is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.TabSwitchLimit <= 0 {
		return fmt.Errorf("TAB_SWITCH_LIMIT must be greater than 0")
	}
	if c.SessionRetention <= 0 {
		return fmt.Errorf("SESSION_RETENTION must be greater than 0")
	}
	if c.CameraMaxAttempts <= 0 {
		return fmt.Errorf("CAMERA_MAX_ATTEMPTS must be greater than 0")
	}
	if c.ExportMaxAttempts <= 0 {
		return fmt.Errorf("EXPORT_MAX_ATTEMPTS must be greater than 0")
	}
	if c.StreamRetentionDuration <= 0 {
		return fmt.Errorf("STREAM_RETENTION_DURATION must be greater than 0")
	}
	return nil
}
