package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	ServerPort string

	// StoreBackend selects the document store: "sql", "firestore" or "memory"
	StoreBackend   string
	DatabaseType   string
	DatabasePath   string
	DatabaseURL    string
	MigrationsPath string

	// RedisURL enables cross-process change notification for the SQL store
	RedisURL string

	FirebaseProjectID string
	FirebaseCredPath  string

	JWTSecret  string
	AppBaseURL string

	// JoinRateLimit is how many join attempts a caller may make per minute
	JoinRateLimit int

	AWSRegion    string
	SESFromEmail string
	SESFromName  string

	LogLevel string
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is loaded first when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerPort:        getEnv("PORT", "8080"),
		StoreBackend:      getEnv("STORE_BACKEND", "sql"),
		DatabaseType:      getEnv("DB_TYPE", "sqlite"),
		DatabasePath:      getEnv("DB_PATH", "./screentime.db"),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		MigrationsPath:    getEnv("MIGRATIONS_PATH", "./migrations"),
		RedisURL:          getEnv("REDIS_URL", ""),
		FirebaseProjectID: getEnv("FIREBASE_PROJECT_ID", ""),
		FirebaseCredPath:  getEnv("FIREBASE_CREDENTIALS", ""),
		JWTSecret:         getEnv("AUTH_JWT_SECRET", ""),
		AppBaseURL:        getEnv("APP_BASE_URL", "http://localhost:8080"),
		JoinRateLimit:     getEnvInt("JOIN_RATE_LIMIT", 10),
		AWSRegion:         getEnv("AWS_REGION", "us-east-1"),
		SESFromEmail:      getEnv("SES_FROM_EMAIL", ""),
		SESFromName:       getEnv("SES_FROM_NAME", "Screen Time"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
	}
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt reads an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
