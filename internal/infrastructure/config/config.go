package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// App
	AppVersion string

	// Server
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// MongoDB
	MongoURI      string
	MongoDB       string
	MongoUser     string
	MongoPassword string

	// PostgreSQL (airline/airport reference data)
	PostgresURI string

	// Gmail
	GmailClientID     string
	GmailClientSecret string
	GmailRefreshToken string

	// SMS gateway
	SMSGatewayURL   string
	SMSGatewayToken string
	SMSSenderID     string

	// Notifications
	FromAddress        string
	UnsubscribeBaseURL string
	MaxPerHour         int
	MaxPerDay          int
	RetryAttempts      int
	RetryDelay         time.Duration
	SweepInterval      time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	// Set defaults and override with env vars
	config := &Config{
		AppVersion:   getEnv("APP_VERSION", "1.0.0"),
		Port:         getEnv("PORT", "8080"),
		ReadTimeout:  time.Duration(getEnvAsInt("READ_TIMEOUT", 30)) * time.Second,
		WriteTimeout: time.Duration(getEnvAsInt("WRITE_TIMEOUT", 30)) * time.Second,

		MongoURI:      getEnv("MONGODB_DSN", "mongodb://localhost:27017"),
		MongoDB:       getEnv("MONGO_DB", "flightcast"),
		MongoUser:     getEnv("MONGO_USER", ""),
		MongoPassword: getEnv("MONGO_PASSWORD", ""),

		PostgresURI: getEnv("POSTGRES_DSN", "postgres://localhost:5432/flightcast"),

		GmailClientID:     getEnv("GMAIL_CLIENT_ID", ""),
		GmailClientSecret: getEnv("GMAIL_CLIENT_SECRET", ""),
		GmailRefreshToken: getEnv("GMAIL_REFRESH_TOKEN", ""),

		SMSGatewayURL:   getEnv("SMS_GATEWAY_URL", ""),
		SMSGatewayToken: getEnv("SMS_GATEWAY_TOKEN", ""),
		SMSSenderID:     getEnv("SMS_SENDER_ID", "FLIGHTCAST"),

		FromAddress:        getEnv("NOTIFY_FROM", "notifications@flightcast.io"),
		UnsubscribeBaseURL: getEnv("UNSUBSCRIBE_BASE_URL", "https://flightcast.io"),
		MaxPerHour:         getEnvAsInt("NOTIFY_MAX_PER_HOUR", 10),
		MaxPerDay:          getEnvAsInt("NOTIFY_MAX_PER_DAY", 50),
		RetryAttempts:      getEnvAsInt("NOTIFY_RETRY_ATTEMPTS", 3),
		RetryDelay:         time.Duration(getEnvAsInt("NOTIFY_RETRY_DELAY", 5)) * time.Second,
		SweepInterval:      time.Duration(getEnvAsInt("SWEEP_INTERVAL", 300)) * time.Second,
	}

	return config, nil
}

// Helper functions to get environment variables
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}
