package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds everything the server reads from the environment. Loaded once
// at startup; missing required variables fail fast, unknown variables are
// simply never read.
type Config struct {
	Environment string
	Port        string

	// Database
	DatabaseURL     string
	DBMaxOpenConns  int
	DBMaxIdleConns  int
	DBConnLifetime  time.Duration

	// Cache
	RedisHost     string
	RedisPort     string
	RedisPassword string
	CacheTTL      time.Duration

	// Auth
	JWTSecret      []byte
	AccessTokenTTL time.Duration

	// CORS
	AllowedOrigins []string

	// Rate limiting
	RateLimitRPM   int
	RateLimitBurst int

	// Uploads
	MaxUploadBytes   int64
	AllowedFileTypes []string

	// Logging
	LogLevel string
	LogFile  string
}

// Load builds a Config from the environment. The only hard requirements are
// a database DSN (or its parts) and the JWT secret.
func Load() (*Config, error) {
	cfg := &Config{
		Environment:      getEnvOrDefault("ENVIRONMENT", "development"),
		Port:             getEnvOrDefault("PORT", "8080"),
		DBMaxOpenConns:   getEnvIntOrDefault("DB_MAX_OPEN_CONNS", 150),
		DBMaxIdleConns:   getEnvIntOrDefault("DB_MAX_IDLE_CONNS", 50),
		DBConnLifetime:   getEnvDurationOrDefault("DB_CONN_LIFETIME", time.Hour),
		RedisHost:        getEnvOrDefault("REDIS_HOST", "localhost"),
		RedisPort:        getEnvOrDefault("REDIS_PORT", "6379"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		CacheTTL:         getEnvDurationOrDefault("CACHE_TTL", 5*time.Minute),
		AccessTokenTTL:   getEnvDurationOrDefault("ACCESS_TOKEN_TTL", 24*time.Hour),
		RateLimitRPM:     getEnvIntOrDefault("RATE_LIMIT_RPM", 60),
		RateLimitBurst:   getEnvIntOrDefault("RATE_LIMIT_BURST", 100),
		MaxUploadBytes:   int64(getEnvIntOrDefault("MAX_UPLOAD_BYTES", 10*1024*1024)),
		AllowedFileTypes: splitAndTrim(getEnvOrDefault("ALLOWED_FILE_TYPES", "image/jpeg,image/png,image/webp")),
		LogLevel:         getEnvOrDefault("LOG_LEVEL", "info"),
		LogFile:          getEnvOrDefault("LOG_FILE", "server.log"),
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		host := getEnvOrDefault("DB_HOST", "localhost")
		port := getEnvOrDefault("DB_PORT", "5432")
		user := getEnvOrDefault("DB_USER", "postgres")
		password := os.Getenv("DB_PASSWORD")
		dbname := getEnvOrDefault("DB_NAME", "reviewinn")
		sslmode := getEnvOrDefault("DB_SSLMODE", "disable")
		cfg.DatabaseURL = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			host, port, user, password, dbname, sslmode)
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}
	cfg.JWTSecret = []byte(secret)

	origins := getEnvOrDefault("ALLOWED_ORIGINS", "")
	if origins == "" {
		if cfg.Environment == "production" {
			return nil, fmt.Errorf("ALLOWED_ORIGINS is required in production")
		}
		origins = "http://localhost:3000,http://localhost:5173"
	}
	cfg.AllowedOrigins = splitAndTrim(origins)

	return cfg, nil
}

// IsDevelopment reports whether the server runs in development mode.
// Error responses only carry internal detail in this mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
