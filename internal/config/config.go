package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	NodeEnv   string
	Port      string
	JWTSecret string
	PublicURL string // base URL printed in process sheet QR codes
	Database  DatabaseConfig
	ERP       ERPConfig
	Log       LogConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
	DataPath string
	Alter    bool
}

// ERPConfig holds the XML-RPC connection used to pull products and units
type ERPConfig struct {
	URL          string
	Database     string
	Username     string
	Password     string
	SyncSchedule string // cron format, empty disables the scheduled pull
	BatchSize    int
}

// Enabled reports whether an ERP is configured.
func (c ERPConfig) Enabled() bool {
	return c.URL != "" && c.Database != ""
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	nodeEnv := getEnv("NODE_ENV", "development")
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" && nodeEnv == "production" {
		return nil, fmt.Errorf("JWT_SECRET is required in production")
	}

	batchSize, err := strconv.Atoi(getEnv("ERP_BATCH_SIZE", "500"))
	if err != nil || batchSize <= 0 {
		return nil, fmt.Errorf("ERP_BATCH_SIZE must be a positive integer")
	}

	return &Config{
		NodeEnv:   nodeEnv,
		Port:      getEnv("PORT", "3001"),
		JWTSecret: jwtSecret,
		PublicURL: os.Getenv("PUBLIC_URL"),
		Database: DatabaseConfig{
			Host:     getEnv("PG_HOST", "localhost"),
			Port:     getEnv("PG_PORT", "5432"),
			Username: getEnv("PG_USERNAME", "postgres"),
			Password: os.Getenv("PG_PASSWORD"),
			Database: getEnv("PG_DATABASE", "eckmrp"),
			DataPath: getEnv("PG_DATA_PATH", "./db_data"),
			Alter:    getEnv("DB_ALTER", "false") == "true",
		},
		ERP: ERPConfig{
			URL:          os.Getenv("ERP_URL"),
			Database:     os.Getenv("ERP_DATABASE"),
			Username:     os.Getenv("ERP_USERNAME"),
			Password:     os.Getenv("ERP_PASSWORD"),
			SyncSchedule: os.Getenv("ERP_SYNC_SCHEDULE"),
			BatchSize:    batchSize,
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", defaultLogFormat(nodeEnv)),
		},
	}, nil
}

func defaultLogFormat(nodeEnv string) string {
	if nodeEnv == "production" {
		return "json"
	}
	return "console"
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
