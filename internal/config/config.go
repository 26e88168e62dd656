package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Security
	JWTSecret   string
	JWTTTLHours int

	// Application
	AppEnv   string
	AppPort  string
	LogLevel string
	Timezone string

	// Optional integrations
	RedisAddr string
	BotToken  string

	// Rate Limiting (requests per minute)
	RateLimitPerUser int
	RateLimitPerIP   int

	// Gamification
	PointsPerTask       int64
	CompletionGraceDays int
	DailyTaskLimit      int

	// Recurrence
	MaxOccurrences int
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "calendar"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "calendar_db"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		JWTSecret:   getEnv("JWT_SECRET_KEY", ""),
		JWTTTLHours: getEnvInt("JWT_TTL_HOURS", 24),

		AppEnv:   getEnv("APP_ENV", "development"),
		AppPort:  getEnv("APP_PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Timezone: getEnv("APP_TIMEZONE", "UTC"),

		RedisAddr: getEnv("REDIS_ADDR", ""),
		BotToken:  getEnv("BOT_TOKEN", ""),

		RateLimitPerUser: getEnvInt("RATE_LIMIT_PER_USER", 120),
		RateLimitPerIP:   getEnvInt("RATE_LIMIT_PER_IP", 300),

		PointsPerTask:       getEnvInt64("POINTS_PER_TASK", 10),
		CompletionGraceDays: getEnvInt("COMPLETION_GRACE_DAYS", 1),
		DailyTaskLimit:      getEnvInt("DAILY_TASK_LIMIT", 10),

		MaxOccurrences: getEnvInt("MAX_OCCURRENCES", 366),
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.DBPassword == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET_KEY must be at least 32 characters")
	}
	if c.JWTTTLHours <= 0 {
		return fmt.Errorf("JWT_TTL_HOURS must be positive")
	}
	if c.PointsPerTask <= 0 {
		return fmt.Errorf("POINTS_PER_TASK must be positive")
	}
	if c.CompletionGraceDays < 0 {
		return fmt.Errorf("COMPLETION_GRACE_DAYS must not be negative")
	}
	if c.DailyTaskLimit < 0 {
		return fmt.Errorf("DAILY_TASK_LIMIT must not be negative")
	}
	if c.MaxOccurrences <= 0 {
		return fmt.Errorf("MAX_OCCURRENCES must be positive")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid APP_TIMEZONE: %w", err)
	}
	return nil
}

func (c *Config) ValidateProductionSecurity() error {
	if c.AppEnv != "production" {
		return nil
	}

	if c.DBSSLMode != "require" {
		return fmt.Errorf("DB_SSLMODE must be 'require' in production")
	}
	if c.JWTSecret == "your_jwt_secret_minimum_32_chars_here_change_this" {
		return fmt.Errorf("JWT_SECRET_KEY must be changed from default in production")
	}

	return nil
}

func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}

func (c *Config) GetTokenTTL() time.Duration {
	return time.Duration(c.JWTTTLHours) * time.Hour
}

// GetLocation returns the zone used to decide calendar days and ISO weeks.
func (c *Config) GetLocation() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}
