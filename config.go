package main

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the process configuration read from the environment.
type Config struct {
	HTTPPort        int
	TaskDBPath      string
	UserDBPath      string
	StoragePath     string
	RedisAddr       string
	JWTSecretKey    string
	JWTIssuer       string
	AdminEmails     []string
	DefaultPageSize int
	SessionTTL      time.Duration
	AuthRateLimit   int
	AuthRateWindow  time.Duration
	AllowedOrigins  string
	LogFile         string
	LogMaxSizeMB    int
	LogMaxBackups   int
	LogMaxAgeDays   int
}

// loadConfig reads an optional .env file and then the environment.
func loadConfig() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: failed to load .env file: %v", err)
	}

	return Config{
		HTTPPort:        getEnvInt("HTTP_PORT", 3000),
		TaskDBPath:      getEnv("TASK_DB_PATH", "tasks.db"),
		UserDBPath:      getEnv("USER_DB_PATH", "users.db"),
		StoragePath:     getEnv("STORAGE_PATH", "/tmp/todo-tracker"),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		JWTSecretKey:    getEnv("JWT_SECRET_KEY", "change-me-in-production"),
		JWTIssuer:       getEnv("JWT_ISSUER", "todo-tracker"),
		AdminEmails:     splitList(getEnv("ADMIN_EMAILS", "")),
		DefaultPageSize: getEnvInt("DEFAULT_PAGE_SIZE", 3),
		SessionTTL:      getEnvDuration("SESSION_TTL", 24*time.Hour),
		AuthRateLimit:   getEnvInt("AUTH_RATE_LIMIT", 10),
		AuthRateWindow:  getEnvDuration("AUTH_RATE_WINDOW", time.Minute),
		AllowedOrigins:  getEnv("CORS_ALLOWED_ORIGINS", "*"),
		LogFile:         getEnv("LOG_FILE", ""),
		LogMaxSizeMB:    getEnvInt("LOG_MAX_SIZE_MB", 10),
		LogMaxBackups:   getEnvInt("LOG_MAX_BACKUPS", 3),
		LogMaxAgeDays:   getEnvInt("LOG_MAX_AGE_DAYS", 28),
	}
}

// getEnv returns environment variable value or default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns environment variable as int or default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
		log.Printf("Warning: invalid int value for %s: %s, using default: %d", key, value, defaultValue)
	}
	return defaultValue
}

// getEnvDuration returns environment variable as time.Duration or default.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		log.Printf("Warning: invalid duration value for %s: %s, using default: %s", key, value, defaultValue)
	}
	return defaultValue
}

// splitList splits a comma separated value, dropping blanks.
func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
