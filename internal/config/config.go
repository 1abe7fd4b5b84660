package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Document store (articles, comments, users, settings)
	Mongo MongoConfig

	// Relational store (comment statistics)
	Database DatabaseConfig

	// Object storage for article images
	Storage StorageConfig

	// Outbound notifications
	Notify NotifyConfig

	// Identity resolution
	Auth AuthConfig

	// Comment settings behaviour
	Settings SettingsConfig

	// Monthly comment rollup
	Rollup RollupConfig

	// Logging configuration
	Log LogConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	MaxUploadSize   int64 // in bytes
}

// MongoConfig holds document store connection settings
type MongoConfig struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	Name           string
	SSLMode        string
	MaxOpenConns   int
	MaxIdleConns   int
	MaxLifetime    time.Duration
	MigrationsPath string
}

// StorageConfig holds GridFS settings
type StorageConfig struct {
	Bucket        string
	PublicBaseURL string
}

// NotifyConfig holds notification dispatcher settings
type NotifyConfig struct {
	WebhookURL string
	Timeout    time.Duration
}

// AuthConfig holds JWT verification settings
type AuthConfig struct {
	JWTSecret string
	Issuer    string
}

// SettingsConfig holds comment settings options
type SettingsConfig struct {
	// StrictNotifyMerge keeps the previous notify value on partial saves
	// instead of deriving it from the previous limit.
	StrictNotifyMerge bool
}

// RollupConfig holds scheduler settings for the monthly rollup
type RollupConfig struct {
	Enabled    bool
	DayOfMonth int
	At         string // HH:MM, local time
	MaxWorkers int
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string
	Format string // "json" or "pretty"
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// A missing .env is fine; the environment wins either way.
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			MaxUploadSize:   getInt64Env("MAX_UPLOAD_SIZE", 5*1024*1024), // 5MB
		},
		Mongo: MongoConfig{
			URI:            getEnv("MONGO_URI", "mongodb://localhost:27017"),
			Database:       getEnv("MONGO_DATABASE", "content"),
			ConnectTimeout: getDurationEnv("MONGO_CONNECT_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnv("DB_PORT", "5432"),
			User:           getEnv("DB_USER", "postgres"),
			Password:       getEnv("DB_PASSWORD", "postgres"),
			Name:           getEnv("DB_NAME", "content_stats"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:   getIntEnv("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:   getIntEnv("DB_MAX_IDLE_CONNS", 2),
			MaxLifetime:    getDurationEnv("DB_MAX_LIFETIME", 5*time.Minute),
			MigrationsPath: getEnv("MIGRATIONS_PATH", "./migrations"),
		},
		Storage: StorageConfig{
			Bucket:        getEnv("STORAGE_BUCKET", "images"),
			PublicBaseURL: strings.TrimRight(getEnv("STORAGE_PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
		},
		Notify: NotifyConfig{
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
			Timeout:    getDurationEnv("NOTIFY_TIMEOUT", 10*time.Second),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			Issuer:    getEnv("JWT_ISSUER", ""),
		},
		Settings: SettingsConfig{
			StrictNotifyMerge: getBoolEnv("SETTINGS_STRICT_NOTIFY_MERGE", false),
		},
		Rollup: RollupConfig{
			Enabled:    getBoolEnv("ROLLUP_ENABLED", true),
			DayOfMonth: getIntEnv("ROLLUP_DAY_OF_MONTH", 1),
			At:         getEnv("ROLLUP_AT", "00:30"),
			MaxWorkers: getIntEnv("ROLLUP_MAX_WORKERS", 8),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Mongo.URI == "" {
		return fmt.Errorf("MONGO_URI is required")
	}
	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Rollup.DayOfMonth < 1 || c.Rollup.DayOfMonth > 28 {
		return fmt.Errorf("ROLLUP_DAY_OF_MONTH must be between 1 and 28")
	}
	if _, err := time.Parse("15:04", c.Rollup.At); err != nil {
		return fmt.Errorf("ROLLUP_AT must be HH:MM")
	}
	if c.Rollup.MaxWorkers < 1 {
		return fmt.Errorf("ROLLUP_MAX_WORKERS must be positive")
	}
	return nil
}

// GetDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
