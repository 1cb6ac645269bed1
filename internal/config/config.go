package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/olenev/userhub/pkg/database"
)

// Config holds the runtime configuration for the API server and the
// mailer worker. Values come from the environment, with an optional
// .env file loaded first.
type Config struct {
	ServiceName string
	Environment string
	LogLevel    string
	Version     string

	HTTPPort    string
	JaegerURL   string
	CORSOrigins []string

	Database database.Config

	Redis RedisConfig
	Auth  AuthConfig
	Kafka KafkaConfig
	SMTP  SMTPConfig

	UploadDir string

	RateLimit RateLimitConfig
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// AuthConfig holds token signing settings.
type AuthConfig struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	EmailTTL   time.Duration
}

// KafkaConfig holds event pipeline settings. Empty Brokers disables
// Kafka and switches email dispatch to the in-process path.
type KafkaConfig struct {
	Brokers []string
	GroupID string
}

// SMTPConfig holds outbound mail settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	FromAddr string
	FromName string
}

// RateLimitConfig holds the request budgets enforced per client.
type RateLimitConfig struct {
	Requests     int
	AuthRequests int
	Window       time.Duration
}

// Load reads the configuration from the environment. A .env file in the
// working directory is applied first when present.
func Load(serviceName string) *Config {
	_ = godotenv.Load()

	return &Config{
		ServiceName: getEnv("OTEL_SERVICE_NAME", serviceName),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Version:     getEnv("SERVICE_VERSION", "1.0.0"),

		HTTPPort:    getEnv("HTTP_PORT", "8080"),
		JaegerURL:   getEnv("JAEGER_ENDPOINT", "http://localhost:14268/api/traces"),
		CORSOrigins: getEnvList("CORS_ORIGINS", "*"),

		Database: database.Config{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "userhub"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},

		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},

		Auth: AuthConfig{
			Secret:     getEnv("JWT_SECRET", "change-me-in-production"),
			AccessTTL:  getEnvDuration("JWT_ACCESS_TTL", 15*time.Minute),
			RefreshTTL: getEnvDuration("JWT_REFRESH_TTL", 7*24*time.Hour),
			EmailTTL:   getEnvDuration("JWT_EMAIL_TTL", 7*24*time.Hour),
		},

		Kafka: KafkaConfig{
			Brokers: getEnvList("KAFKA_BROKERS", ""),
			GroupID: getEnv("KAFKA_GROUP_ID", "userhub-mailer"),
		},

		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", "localhost"),
			Port:     getEnvInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			FromAddr: getEnv("SMTP_FROM_ADDR", "no-reply@userhub.local"),
			FromName: getEnv("SMTP_FROM_NAME", "userhub"),
		},

		UploadDir: getEnv("UPLOAD_DIR", "./uploads"),

		RateLimit: RateLimitConfig{
			Requests:     getEnvInt("RATE_LIMIT_REQUESTS", 100),
			AuthRequests: getEnvInt("RATE_LIMIT_AUTH_REQUESTS", 10),
			Window:       getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
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

// getEnvList splits a comma-separated variable, dropping empty entries.
func getEnvList(key, defaultValue string) []string {
	value := getEnv(key, defaultValue)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
